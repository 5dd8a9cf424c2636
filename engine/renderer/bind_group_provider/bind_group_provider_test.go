package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func materialLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Material",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 1, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
			{Binding: 2, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
		},
	}
}

func TestEntriesResolveEveryBinding(t *testing.T) {
	buf := &wgpu.Buffer{}
	view := &wgpu.TextureView{}
	sampler := &wgpu.Sampler{}

	p := NewBindGroupProvider("Material 0",
		WithBuffer(0, buf),
		WithTextureView(1, view),
		WithSampler(2, sampler),
	)

	entries, err := p.Entries(materialLayout())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Same(t, buf, entries[0].Buffer)
	assert.Equal(t, wgpu.WholeSize, entries[0].Size)
	assert.Same(t, view, entries[1].TextureView)
	assert.Nil(t, entries[1].Buffer)
	assert.Same(t, sampler, entries[2].Sampler)
	assert.Equal(t, uint32(2), entries[2].Binding)
}

func TestEntriesMissingResource(t *testing.T) {
	p := NewBindGroupProvider("Material 1",
		WithBuffer(0, &wgpu.Buffer{}),
		WithSampler(2, &wgpu.Sampler{}),
	)

	_, err := p.Entries(materialLayout())
	assert.ErrorIs(t, err, ErrMissingResource)
	assert.ErrorContains(t, err, "texture binding 1")

	p.SetTextureView(1, &wgpu.TextureView{})
	_, err = p.Entries(materialLayout())
	assert.NoError(t, err)
}

func TestProviderAccessors(t *testing.T) {
	p := NewBindGroupProvider("Frame")
	assert.Equal(t, "Frame", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.Buffer(0))

	buf := &wgpu.Buffer{}
	p.SetBuffer(0, buf)
	assert.Same(t, buf, p.Buffer(0))
	assert.Nil(t, p.TextureView(0))
	assert.Nil(t, p.Sampler(0))
}

func TestWriteSkipsUnsetBindings(t *testing.T) {
	p := NewBindGroupProvider("Instance")

	// No buffer is set, so the queue is never touched.
	skipped := Write(nil,
		BufferWrite{Provider: p, Binding: 0, Data: []byte{1, 2, 3, 4}},
		BufferWrite{Provider: p, Binding: 3, Data: []byte{5, 6, 7, 8}},
	)
	assert.Equal(t, 2, skipped)
}
