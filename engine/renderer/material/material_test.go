package material

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(i int) *int          { return &i }
func fptr(f float64) *float64 { return &f }

func pbrDoc() *gltf.Document {
	return &gltf.Document{
		Images:   []*gltf.Image{{URI: "albedo.png"}, {URI: "normal.png"}},
		Textures: []*gltf.Texture{{Source: ptr(0)}, {Source: ptr(1)}},
		Materials: []*gltf.Material{
			{
				Name: "painted",
				PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
					BaseColorFactor:  &[4]float64{1, 0.5, 0.25, 1},
					BaseColorTexture: &gltf.TextureInfo{Index: 0},
					MetallicFactor:   fptr(0),
					RoughnessFactor:  fptr(0.5),
				},
				NormalTexture:   &gltf.NormalTexture{Index: ptr(1), Scale: fptr(2)},
				EmissiveFactor:  [3]float64{0.1, 0.2, 0.3},
				EmissiveTexture: &gltf.TextureInfo{Index: 0, TexCoord: 1},
				AlphaMode:       gltf.AlphaBlend,
				DoubleSided:     true,
			},
		},
	}
}

func TestFromGLTF(t *testing.T) {
	m := FromGLTF(pbrDoc(), 0)

	assert.Equal(t, "painted", m.Name())
	assert.Equal(t, 0, m.Index())
	assert.Equal(t, [4]float32{1, 0.5, 0.25, 1}, m.BaseColor())
	assert.Equal(t, float32(0), m.Metallic())
	assert.Equal(t, float32(0.5), m.Roughness())
	assert.True(t, m.Blended())
	assert.True(t, m.DoubleSided())

	base := m.Texture(SlotBaseColor)
	require.NotNil(t, base)
	assert.Equal(t, binder.TextureKey{Image: 0, SRGB: true}, base.Key)
	assert.Equal(t, binder.DefaultSampler, base.Sampler)

	normal := m.Texture(SlotNormal)
	require.NotNil(t, normal)
	assert.Equal(t, binder.TextureKey{Image: 1, SRGB: false}, normal.Key)

	assert.Nil(t, m.Texture(SlotEmissive), "TEXCOORD_1 textures are ignored")

	set := m.TextureSet()
	assert.True(t, set.BaseColor)
	assert.True(t, set.Normal)
	assert.False(t, set.MetallicRoughness)
	assert.False(t, set.Emissive)

	f := m.Factors()
	assert.Equal(t, float32(2), f.NormalScale)
	assert.Equal(t, float32(1), f.OcclusionStrength)
	assert.InDelta(t, 0.2, f.Emissive[1], 1e-6)
}

func TestDefaultMaterial(t *testing.T) {
	m := FromGLTF(pbrDoc(), scene.DefaultMaterial)
	assert.Equal(t, scene.DefaultMaterial, m.Index())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.BaseColor())
	assert.Equal(t, float32(1), m.Metallic())
	assert.Equal(t, float32(1), m.Roughness())
	assert.False(t, m.Blended())
	assert.False(t, m.DoubleSided())
	for s := Slot(0); s < SlotCount; s++ {
		assert.Nil(t, m.Texture(s))
	}
}

func TestResolvePlaceholders(t *testing.T) {
	ref := &TextureRef{Key: binder.TextureKey{Image: 3, SRGB: true}, Sampler: binder.DefaultSampler}
	var textures [SlotCount]*TextureRef
	textures[SlotBaseColor] = ref

	out := Resolve(textures)

	assert.False(t, out[SlotBaseColor].IsPlaceholder)
	assert.Equal(t, *ref, out[SlotBaseColor].Ref)

	assert.True(t, out[SlotNormal].IsPlaceholder)
	assert.Equal(t, [4]byte{128, 128, 255, 255}, out[SlotNormal].Placeholder.RGBA())
	assert.Equal(t, PlaceholderWhite, out[SlotMetallicRoughness].Placeholder)
	assert.Equal(t, PlaceholderWhite, out[SlotOcclusion].Placeholder)
	assert.Equal(t, [4]byte{0, 0, 0, 255}, out[SlotEmissive].Placeholder.RGBA())

	tex := PlaceholderWhite.Texture()
	assert.Equal(t, uint32(1), tex.Width())
	assert.Equal(t, []byte{255, 255, 255, 255}, tex.Levels[0].Pixels)
}

func TestGPUMaterialFactorsMarshal(t *testing.T) {
	f := GPUMaterialFactors{
		BaseColor:         [4]float32{1, 2, 3, 4},
		Emissive:          [3]float32{5, 6, 7},
		OcclusionStrength: 8,
		Metallic:          9,
		Roughness:         10,
		NormalScale:       11,
	}
	assert.Equal(t, 48, f.Size())

	buf := f.Marshal()
	require.Len(t, buf, 48)
	for i, want := range []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 0} {
		assert.Equal(t, want, common.Float32At(buf, i*4))
	}
}

func TestTableBindOnce(t *testing.T) {
	tbl := NewTable[string](pbrDoc())
	calls := 0
	build := func(m Material) (string, error) {
		calls++
		return m.Name(), nil
	}

	b1, err := tbl.Bind(0, build)
	require.NoError(t, err)
	b2, err := tbl.Bind(0, build)
	require.NoError(t, err)
	_, err = tbl.Bind(scene.DefaultMaterial, build)
	require.NoError(t, err)

	assert.Equal(t, "painted", b1)
	assert.Equal(t, b1, b2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, tbl.Len())
	assert.Same(t, tbl.Material(0), tbl.Material(0))

	var ids []int
	tbl.Each(func(id int, _ string) { ids = append(ids, id) })
	assert.Equal(t, []int{0, scene.DefaultMaterial}, ids)
}

func TestTableBuildErrorNotCached(t *testing.T) {
	tbl := NewTable[int](pbrDoc())
	boom := errors.New("boom")

	_, err := tbl.Bind(0, func(Material) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := tbl.Get(0)
	assert.False(t, ok)

	b, err := tbl.Bind(0, func(Material) (int, error) { return 4, nil })
	require.NoError(t, err)
	assert.Equal(t, 4, b)
}
