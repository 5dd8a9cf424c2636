package assembler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(i int) *int { return &i }

type recorder struct {
	calls []string
}

func (r *recorder) SetPipeline(id pipeline.ID) { r.calls = append(r.calls, fmt.Sprintf("pipeline %d", id)) }
func (r *recorder) SetMaterial(m int)          { r.calls = append(r.calls, fmt.Sprintf("material %d", m)) }
func (r *recorder) Draw(p int, n uint32)       { r.calls = append(r.calls, fmt.Sprintf("draw %d x%d", p, n)) }
func (r *recorder) DrawIndexed(p int, n uint32) {
	r.calls = append(r.calls, fmt.Sprintf("indexed %d x%d", p, n))
}

var _ batch.Encoder = &recorder{}

// twoMaterialScene has a blended primitive first in traversal order, an opaque textured primitive
// second and a triangle fan third.
func twoMaterialScene(t *testing.T) scene.Scene {
	t.Helper()
	sc, err := scene.NewScene(twoMaterialDoc())
	require.NoError(t, err)
	return sc
}

func twoMaterialDoc() *gltf.Document {
	return &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: 128, Data: make([]byte, 128)}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 24},
			{Buffer: 0, ByteOffset: 60, ByteLength: 6},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: ptr(0), Count: 3, Type: gltf.AccessorVec3, ComponentType: gltf.ComponentFloat},
			{BufferView: ptr(1), Count: 3, Type: gltf.AccessorVec2, ComponentType: gltf.ComponentFloat},
			{BufferView: ptr(2), Count: 3, Type: gltf.AccessorScalar, ComponentType: gltf.ComponentUshort},
		},
		Images:   []*gltf.Image{{URI: "albedo.png"}},
		Textures: []*gltf.Texture{{Source: ptr(0)}},
		Materials: []*gltf.Material{
			{
				Name: "glass",
				PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
					BaseColorFactor: &[4]float64{1, 1, 1, 0.5},
				},
				AlphaMode: gltf.AlphaBlend,
			},
			{
				Name: "wood",
				PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
					BaseColorTexture: &gltf.TextureInfo{Index: 0},
				},
			},
		},
		Meshes: []*gltf.Mesh{{Primitives: []*gltf.Primitive{
			{Attributes: map[string]int{gltf.POSITION: 0}, Material: ptr(0)},
			{Attributes: map[string]int{gltf.POSITION: 0, gltf.TEXCOORD_0: 1}, Indices: ptr(2), Material: ptr(1)},
			{Attributes: map[string]int{gltf.POSITION: 0}, Mode: gltf.PrimitiveTriangleFan},
		}}},
		Nodes:  []*gltf.Node{{Mesh: ptr(0)}},
		Scenes: []*gltf.Scene{{Nodes: []int{0}}},
	}
}

type fixture struct {
	cfg      Config[string, pipeline.Key, string]
	compiles int
	prepared []int
}

func newFixture(sc scene.Scene) *fixture {
	f := &fixture{}
	f.cfg = Config[string, pipeline.Key, string]{
		Variants: shader.NewCache(shader.WGSLSources(), func(flags shader.Flags, _, _ string) (string, error) {
			f.compiles++
			return flags.String(), nil
		}),
		Pipelines:  pipeline.NewCache[pipeline.Key](),
		Materials:  material.NewTable[string](sc.Document()),
		LightCount: 1,
		CreatePipeline: func(key pipeline.Key, _ *shader.Variant[string]) (pipeline.Key, error) {
			return key, nil
		},
		BindMaterial: func(m material.Material) (string, error) {
			return m.Name(), nil
		},
		Prepare: func(prim scene.Primitive, _ pipeline.PrimitiveLayout) error {
			f.prepared = append(f.prepared, prim.ID)
			return nil
		},
	}
	return f
}

func TestAssembleTwoPrimitives(t *testing.T) {
	sc := twoMaterialScene(t)
	f := newFixture(sc)

	res, err := Assemble(sc, f.cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Drawn)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 2, f.cfg.Pipelines.Len())
	assert.Equal(t, 2, f.compiles)
	assert.Equal(t, 2, f.cfg.Materials.Len())
	assert.Equal(t, []int{0, 1}, f.prepared)
	assert.Equal(t, 2, res.Plan.DrawCount())

	rec := &recorder{}
	res.Plan.Replay(rec)
	assert.Equal(t, []string{
		"pipeline 1",
		"material 1",
		"indexed 1 x3",
		"pipeline 0",
		"material 0",
		"draw 0 x3",
	}, rec.calls)

	opaqueKey, ok := f.cfg.Pipelines.Key(1)
	require.True(t, ok)
	assert.True(t, opaqueKey.Flags.BaseColorMap)
	assert.Equal(t, pipeline.IndexFormatUint16, opaqueKey.Index)

	blendedKey, ok := f.cfg.Pipelines.Key(0)
	require.True(t, ok)
	assert.True(t, blendedKey.Blended())
	assert.False(t, blendedKey.Flags.BaseColorMap)
}

func TestAssembleSharesPipelines(t *testing.T) {
	sc := twoMaterialScene(t)
	f := newFixture(sc)
	_, err := Assemble(sc, f.cfg)
	require.NoError(t, err)

	// shader variants outlive the pipeline cache they were compiled for
	f.cfg.Pipelines = pipeline.NewCache[pipeline.Key]()
	_, err = Assemble(sc, f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, f.compiles)
}

func TestAssembleCompileErrorIsFatal(t *testing.T) {
	sc := twoMaterialScene(t)
	f := newFixture(sc)
	boom := errors.New("syntax error")
	f.cfg.Variants = shader.NewCache(shader.WGSLSources(), func(shader.Flags, string, string) (string, error) {
		return "", boom
	})

	_, err := Assemble(sc, f.cfg)
	assert.ErrorIs(t, err, shader.ErrCompile)
	assert.ErrorIs(t, err, boom)
}

func TestAssembleUnsupportedFormatDrops(t *testing.T) {
	sc := twoMaterialScene(t)
	f := newFixture(sc)
	created := 0
	f.cfg.CreatePipeline = func(key pipeline.Key, _ *shader.Variant[string]) (pipeline.Key, error) {
		created++
		return key, nil
	}
	f.cfg.Validate = func(layout pipeline.PrimitiveLayout) error {
		if layout.Index != pipeline.IndexFormatNone {
			return fmt.Errorf("%w: test", pipeline.ErrUnsupportedVertexFormat)
		}
		return nil
	}

	res, err := Assemble(sc, f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Drawn)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 1, res.Plan.DrawCount())

	// the rejected primitive never reaches pipeline creation
	assert.Equal(t, 1, f.cfg.Pipelines.Len())
	assert.Equal(t, 1, created)
	assert.Equal(t, []int{0}, f.prepared)
}

func TestAssembleValidateErrorIsFatal(t *testing.T) {
	sc := twoMaterialScene(t)
	f := newFixture(sc)
	boom := errors.New("device lost")
	f.cfg.Validate = func(pipeline.PrimitiveLayout) error {
		return boom
	}

	_, err := Assemble(sc, f.cfg)
	assert.ErrorIs(t, err, boom)
}

func TestAssembleUnsupportedTopologyCompilesNothing(t *testing.T) {
	doc := twoMaterialDoc()
	// keep only the triangle fan
	doc.Meshes[0].Primitives = doc.Meshes[0].Primitives[2:]
	sc, err := scene.NewScene(doc)
	require.NoError(t, err)
	f := newFixture(sc)

	res, err := Assemble(sc, f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Drawn)
	assert.Equal(t, 1, res.Dropped)
	assert.Zero(t, f.compiles)
	assert.Zero(t, f.cfg.Variants.Len())
	assert.Zero(t, f.cfg.Pipelines.Len())
	assert.Empty(t, f.prepared)
}

func TestAttributesOf(t *testing.T) {
	attrs := AttributesOf(scene.Primitive{Attributes: map[string]int{
		gltf.POSITION: 0, gltf.NORMAL: 1, gltf.COLOR_0: 2,
	}})
	assert.Equal(t, shader.AttributeSet{Normal: true, Color0: true}, attrs)
}
