package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(i int) *int { return &i }

func TestTopologyFromMode(t *testing.T) {
	tests := []struct {
		mode gltf.PrimitiveMode
		want Topology
		err  bool
	}{
		{gltf.PrimitiveTriangles, TopologyTriangleList, false},
		{gltf.PrimitiveTriangleStrip, TopologyTriangleStrip, false},
		{gltf.PrimitiveLines, TopologyLineList, false},
		{gltf.PrimitiveLineStrip, TopologyLineStrip, false},
		{gltf.PrimitivePoints, TopologyPointList, false},
		{gltf.PrimitiveLineLoop, 0, true},
		{gltf.PrimitiveTriangleFan, 0, true},
	}
	for _, tt := range tests {
		got, err := TopologyFromMode(tt.mode)
		if tt.err {
			assert.ErrorIs(t, err, ErrUnsupportedTopology)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewKeyDefaults(t *testing.T) {
	k := NewKey(shader.Flags{LightCount: 1})
	assert.Equal(t, TopologyTriangleList, k.Topology)
	assert.Equal(t, CullModeBack, k.Cull)
	assert.False(t, k.Blended())

	k = NewKey(shader.Flags{}, WithDoubleSided(true), WithBlend(true), WithIndexFormat(IndexFormatUint16))
	assert.Equal(t, CullModeNone, k.Cull)
	assert.True(t, k.Blended())
	assert.Equal(t, 2, k.Index.Size())
}

func TestCachePipelineIdentity(t *testing.T) {
	c := NewCache[string]()
	calls := 0
	create := func(k Key) (string, error) {
		calls++
		return k.String(), nil
	}

	a := NewKey(shader.Flags{LightCount: 1})
	b := NewKey(shader.Flags{LightCount: 1}, WithDoubleSided(true))

	id1, p1, err := c.Pipeline(a, create)
	require.NoError(t, err)
	id2, p2, err := c.Pipeline(a, create)
	require.NoError(t, err)
	id3, _, err := c.Pipeline(b, create)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, p1, p2)
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, c.Len())
}

func TestCacheCreateErrorNotCached(t *testing.T) {
	c := NewCache[int]()
	boom := errors.New("boom")
	_, _, err := c.Pipeline(NewKey(shader.Flags{}), func(Key) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	id, p, err := c.Pipeline(NewKey(shader.Flags{}), func(Key) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, ID(0), id)
	assert.Equal(t, 7, p)
}

func TestCacheOpaqueAndBlendedOrder(t *testing.T) {
	c := NewCache[int]()
	n := 0
	create := func(Key) (int, error) { n++; return n, nil }

	blendA, _, _ := c.Pipeline(NewKey(shader.Flags{}, WithBlend(true)), create)
	opaqueA, _, _ := c.Pipeline(NewKey(shader.Flags{}), create)
	blendB, _, _ := c.Pipeline(NewKey(shader.Flags{VertexColor: true}, WithBlend(true)), create)
	opaqueB, _, _ := c.Pipeline(NewKey(shader.Flags{VertexColor: true}), create)

	assert.Equal(t, []ID{opaqueA, opaqueB}, c.Opaque())
	assert.Equal(t, []ID{blendA, blendB}, c.Blended())
}

func TestCacheRegisterGroups(t *testing.T) {
	c := NewCache[int]()
	id, _, err := c.Pipeline(NewKey(shader.Flags{}), func(Key) (int, error) { return 1, nil })
	require.NoError(t, err)

	require.NoError(t, c.Register(id, 3, 0))
	require.NoError(t, c.Register(id, 1, 1))
	require.NoError(t, c.Register(id, 3, 2))

	assert.Error(t, c.Register(id, 1, 2))
	assert.Error(t, c.Register(ID(9), 1, 5))

	assert.Equal(t, []Group{
		{Material: 3, Primitives: []int{0, 2}},
		{Material: 1, Primitives: []int{1}},
	}, c.Groups(id))
}

// interleavedDoc stores position and normal interleaved in view 0 (stride 24), texcoords tightly
// packed in view 1, and ubyte indices in view 2.
func interleavedDoc() *gltf.Document {
	return &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: 256}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 72, ByteStride: 24},
			{Buffer: 0, ByteOffset: 72, ByteLength: 24},
			{Buffer: 0, ByteOffset: 96, ByteLength: 3},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: ptr(0), ByteOffset: 0, Count: 3, Type: gltf.AccessorVec3, ComponentType: gltf.ComponentFloat},
			{BufferView: ptr(0), ByteOffset: 12, Count: 3, Type: gltf.AccessorVec3, ComponentType: gltf.ComponentFloat},
			{BufferView: ptr(1), ByteOffset: 0, Count: 3, Type: gltf.AccessorVec2, ComponentType: gltf.ComponentFloat},
			{BufferView: ptr(2), ByteOffset: 0, Count: 3, Type: gltf.AccessorScalar, ComponentType: gltf.ComponentUbyte},
			{Count: 3, Type: gltf.AccessorVec3, ComponentType: gltf.ComponentFloat},
		},
	}
}

func TestLayoutForInterleaved(t *testing.T) {
	doc := interleavedDoc()
	prim := scene.Primitive{
		Attributes: map[string]int{gltf.POSITION: 0, gltf.NORMAL: 1, gltf.TEXCOORD_0: 2},
		Indices:    ptr(3),
		Count:      3,
	}

	pl, err := LayoutFor(doc, prim, shader.Flags{BaseColorMap: true, LightCount: 1})
	require.NoError(t, err)

	slots := pl.Layout.Slots()
	require.Len(t, slots, 3)

	assert.Equal(t, uint32(24), slots[0].Stride)
	assert.Equal(t, LocationPosition, slots[0].Attribute.Location)
	assert.Equal(t, uint32(0), slots[0].Attribute.Offset)

	assert.Equal(t, uint32(24), slots[1].Stride)
	assert.Equal(t, LocationNormal, slots[1].Attribute.Location)
	assert.Equal(t, uint32(12), slots[1].Attribute.Offset)
	assert.Equal(t, uint64(0), pl.Sources[1].Offset)

	assert.Equal(t, uint32(8), slots[2].Stride)
	assert.Equal(t, LocationTexCoord0, slots[2].Attribute.Location)
	assert.Equal(t, 1, pl.Sources[2].View)

	assert.Equal(t, IndexFormatUint8, pl.Index)
	assert.Equal(t, 2, pl.IndexView)
	assert.Equal(t, 3, pl.IndexAccessor)
}

func TestLayoutForDefaultNormal(t *testing.T) {
	doc := interleavedDoc()
	prim := scene.Primitive{Attributes: map[string]int{gltf.POSITION: 0, gltf.TEXCOORD_0: 2}}

	// TEXCOORD_0 is present but unused by a factor-only variant.
	pl, err := LayoutFor(doc, prim, shader.Flags{LightCount: 1})
	require.NoError(t, err)

	require.Equal(t, 2, pl.Layout.Count)
	assert.Equal(t, LocationNormal, pl.Layout.Buffers[1].Attribute.Location)
	assert.Equal(t, uint32(0), pl.Layout.Buffers[1].Stride)
	assert.Equal(t, DefaultNormalView, pl.Sources[1].View)
	assert.Equal(t, IndexFormatNone, pl.Index)
	assert.Equal(t, -1, pl.IndexView)
}

func TestLayoutForErrors(t *testing.T) {
	doc := interleavedDoc()

	_, err := LayoutFor(doc, scene.Primitive{
		Attributes: map[string]int{gltf.POSITION: 0},
		Mode:       gltf.PrimitiveTriangleFan,
	}, shader.Flags{})
	assert.ErrorIs(t, err, ErrUnsupportedTopology)

	_, err = LayoutFor(doc, scene.Primitive{
		Attributes: map[string]int{gltf.POSITION: 4},
	}, shader.Flags{})
	assert.ErrorIs(t, err, ErrUnsupportedVertexFormat)
}

func TestLayoutKeyIdentity(t *testing.T) {
	doc := interleavedDoc()
	prim := scene.Primitive{Attributes: map[string]int{gltf.POSITION: 0, gltf.NORMAL: 1}}

	a, err := LayoutFor(doc, prim, shader.Flags{})
	require.NoError(t, err)
	b, err := LayoutFor(doc, prim, shader.Flags{})
	require.NoError(t, err)

	ka := NewKey(shader.Flags{}, WithVertexLayout(a.Layout))
	kb := NewKey(shader.Flags{}, WithVertexLayout(b.Layout))
	assert.Equal(t, ka, kb)

	m := map[Key]int{ka: 1}
	assert.Equal(t, 1, m[kb])
}
