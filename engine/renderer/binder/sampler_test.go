package binder

import (
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
)

func TestSamplerFromCodes(t *testing.T) {
	tests := []struct {
		name                  string
		mag, min, wrapS, wrap int
		want                  SamplerDescriptor
	}{
		{
			name: "trilinear repeat",
			mag:  CodeLinear, min: CodeLinearMipmapLinear, wrapS: CodeRepeat, wrap: CodeRepeat,
			want: SamplerDescriptor{Mag: FilterLinear, Min: FilterLinear, Mipmap: MipmapLinear, AddressU: AddressRepeat, AddressV: AddressRepeat},
		},
		{
			name: "nearest mipmap nearest",
			mag:  CodeNearest, min: CodeNearestMipmapNearest, wrapS: CodeMirroredRepeat, wrap: CodeClampToEdge,
			want: SamplerDescriptor{Mag: FilterNearest, Min: FilterNearest, Mipmap: MipmapNearest, AddressU: AddressMirrorRepeat, AddressV: AddressClampToEdge},
		},
		{
			name: "linear mipmap nearest",
			mag:  CodeLinear, min: CodeLinearMipmapNearest, wrapS: CodeRepeat, wrap: CodeRepeat,
			want: SamplerDescriptor{Mag: FilterLinear, Min: FilterLinear, Mipmap: MipmapNearest, AddressU: AddressRepeat, AddressV: AddressRepeat},
		},
		{
			name: "nearest mipmap linear",
			mag:  CodeNearest, min: CodeNearestMipmapLinear, wrapS: CodeRepeat, wrap: CodeRepeat,
			want: SamplerDescriptor{Mag: FilterNearest, Min: FilterNearest, Mipmap: MipmapLinear, AddressU: AddressRepeat, AddressV: AddressRepeat},
		},
		{
			name: "unknown codes",
			mag:  1234, min: 5678, wrapS: 42, wrap: 0,
			want: SamplerDescriptor{Mag: FilterLinear, Min: FilterLinear, Mipmap: MipmapLinear, AddressU: AddressClampToEdge, AddressV: AddressClampToEdge},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SamplerFromCodes(tt.mag, tt.min, tt.wrapS, tt.wrap))
		})
	}
}

func TestCodesFromGLTF(t *testing.T) {
	mag, minCode, s, tt := CodesFromGLTF(&gltf.Sampler{})
	assert.Equal(t, 0, mag)
	assert.Equal(t, 0, minCode)
	assert.Equal(t, CodeRepeat, s)
	assert.Equal(t, CodeRepeat, tt)

	mag, minCode, s, tt = CodesFromGLTF(&gltf.Sampler{
		MagFilter: gltf.MagLinear,
		MinFilter: gltf.MinLinearMipMapNearest,
		WrapS:     gltf.WrapMirroredRepeat,
		WrapT:     gltf.WrapClampToEdge,
	})
	assert.Equal(t, CodeLinear, mag)
	assert.Equal(t, CodeLinearMipmapNearest, minCode)
	assert.Equal(t, CodeMirroredRepeat, s)
	assert.Equal(t, CodeClampToEdge, tt)
}

func TestTextureSource(t *testing.T) {
	doc := &gltf.Document{
		Images:   []*gltf.Image{{URI: "a.png"}},
		Samplers: []*gltf.Sampler{{MagFilter: gltf.MagNearest}},
		Textures: []*gltf.Texture{
			{Source: ptr(0), Sampler: ptr(0)},
			{Source: ptr(0)},
			{},
		},
	}

	key, desc, ok := TextureSource(doc, 0, true)
	assert.True(t, ok)
	assert.Equal(t, TextureKey{Image: 0, SRGB: true}, key)
	assert.Equal(t, FilterNearest, desc.Mag)
	assert.Equal(t, AddressRepeat, desc.AddressU)

	_, desc, ok = TextureSource(doc, 1, false)
	assert.True(t, ok)
	assert.Equal(t, DefaultSampler, desc)

	_, _, ok = TextureSource(doc, 2, false)
	assert.False(t, ok)
	_, _, ok = TextureSource(doc, 7, false)
	assert.False(t, ok)
}
