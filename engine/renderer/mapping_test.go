package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWGPUVertexFormat(t *testing.T) {
	vf, err := wgpuVertexFormat(pipeline.VertexFormat{Component: gltf.ComponentFloat, Type: gltf.AccessorVec3})
	require.NoError(t, err)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, vf)

	vf, err = wgpuVertexFormat(pipeline.VertexFormat{Component: gltf.ComponentUbyte, Type: gltf.AccessorVec4, Normalized: true})
	require.NoError(t, err)
	assert.Equal(t, wgpu.VertexFormatUnorm8x4, vf)

	_, err = wgpuVertexFormat(pipeline.VertexFormat{Component: gltf.ComponentUshort, Type: gltf.AccessorVec3, Normalized: true})
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedVertexFormat)

	_, err = wgpuVertexFormat(pipeline.VertexFormat{Component: gltf.ComponentUbyte, Type: gltf.AccessorVec4})
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedVertexFormat)
}

func TestWGPUVertexBuffersRejectUnaligned(t *testing.T) {
	position := pipeline.VertexBuffer{
		Stride: 12,
		Attribute: pipeline.VertexAttribute{
			Location: pipeline.LocationPosition,
			Format:   pipeline.VertexFormat{Component: gltf.ComponentFloat, Type: gltf.AccessorVec3},
		},
	}
	layout := pipeline.VertexLayout{Count: 1}
	layout.Buffers[0] = position

	buffers, err := wgpuVertexBuffers(layout)
	require.NoError(t, err)
	require.Len(t, buffers, 1)
	assert.Equal(t, uint64(12), buffers[0].ArrayStride)
	assert.Equal(t, pipeline.LocationPosition, buffers[0].Attributes[0].ShaderLocation)

	layout.Buffers[0].Stride = 14
	_, err = wgpuVertexBuffers(layout)
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedVertexFormat)
}

func TestWGPUValidateLayout(t *testing.T) {
	layout := pipeline.PrimitiveLayout{
		Index:       pipeline.IndexFormatUint16,
		IndexOffset: 6,
	}
	layout.Layout.Count = 2
	layout.Layout.Buffers[0] = pipeline.VertexBuffer{
		Stride: 12,
		Attribute: pipeline.VertexAttribute{
			Location: pipeline.LocationPosition,
			Format:   pipeline.VertexFormat{Component: gltf.ComponentFloat, Type: gltf.AccessorVec3},
		},
	}
	layout.Layout.Buffers[1] = pipeline.VertexBuffer{
		Attribute: pipeline.VertexAttribute{
			Location: pipeline.LocationNormal,
			Format:   pipeline.VertexFormat{Component: gltf.ComponentFloat, Type: gltf.AccessorVec3},
		},
	}
	layout.Sources[0] = pipeline.VertexSource{View: 0, Offset: 24}
	layout.Sources[1] = pipeline.VertexSource{View: pipeline.DefaultNormalView}
	require.NoError(t, wgpuValidateLayout(layout))

	misaligned := layout
	misaligned.Sources[0].Offset = 26
	assert.ErrorIs(t, wgpuValidateLayout(misaligned), pipeline.ErrUnsupportedVertexFormat)

	misaligned = layout
	misaligned.IndexOffset = 7
	assert.ErrorIs(t, wgpuValidateLayout(misaligned), pipeline.ErrUnsupportedVertexFormat)

	// uint8 indices are copied into a widened buffer, so any offset binds
	widened := misaligned
	widened.Index = pipeline.IndexFormatUint8
	assert.NoError(t, wgpuValidateLayout(widened))

	unreadable := layout
	unreadable.Layout.Buffers[0].Attribute.Format = pipeline.VertexFormat{
		Component: gltf.ComponentUshort, Type: gltf.AccessorVec3, Normalized: true,
	}
	assert.ErrorIs(t, wgpuValidateLayout(unreadable), pipeline.ErrUnsupportedVertexFormat)
}

func TestWGPUIndexFormat(t *testing.T) {
	assert.Equal(t, wgpu.IndexFormatUint16, wgpuIndexFormat(pipeline.IndexFormatUint8))
	assert.Equal(t, wgpu.IndexFormatUint16, wgpuIndexFormat(pipeline.IndexFormatUint16))
	assert.Equal(t, wgpu.IndexFormatUint32, wgpuIndexFormat(pipeline.IndexFormatUint32))
	assert.Equal(t, wgpu.IndexFormatUndefined, wgpuIndexFormat(pipeline.IndexFormatNone))
}

func TestWGPUTopology(t *testing.T) {
	topo, err := wgpuTopology(pipeline.TopologyLineStrip)
	require.NoError(t, err)
	assert.Equal(t, wgpu.PrimitiveTopologyLineStrip, topo)

	_, err = wgpuTopology(pipeline.Topology(42))
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedTopology)
}

func TestWGPUSamplerDescriptor(t *testing.T) {
	desc := wgpuSamplerDescriptor(binder.SamplerDescriptor{
		Mag:      binder.FilterNearest,
		Min:      binder.FilterLinear,
		Mipmap:   binder.MipmapNone,
		AddressU: binder.AddressRepeat,
		AddressV: binder.AddressMirrorRepeat,
	})
	assert.Equal(t, wgpu.FilterModeNearest, desc.MagFilter)
	assert.Equal(t, wgpu.FilterModeLinear, desc.MinFilter)
	assert.Equal(t, wgpu.AddressModeRepeat, desc.AddressModeU)
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, desc.AddressModeV)
	assert.Zero(t, desc.LodMaxClamp)

	desc = wgpuSamplerDescriptor(binder.DefaultSampler)
	assert.Equal(t, wgpu.MipmapFilterModeLinear, desc.MipmapFilter)
	assert.Equal(t, float32(32), desc.LodMaxClamp)
}

func TestGLMinFilter(t *testing.T) {
	cases := []struct {
		min    binder.FilterMode
		mipmap binder.MipmapMode
		want   int32
	}{
		{binder.FilterNearest, binder.MipmapNone, gl.NEAREST},
		{binder.FilterLinear, binder.MipmapNone, gl.LINEAR},
		{binder.FilterNearest, binder.MipmapNearest, gl.NEAREST_MIPMAP_NEAREST},
		{binder.FilterLinear, binder.MipmapNearest, gl.LINEAR_MIPMAP_NEAREST},
		{binder.FilterNearest, binder.MipmapLinear, gl.NEAREST_MIPMAP_LINEAR},
		{binder.FilterLinear, binder.MipmapLinear, gl.LINEAR_MIPMAP_LINEAR},
	}
	for _, c := range cases {
		got := glMinFilter(binder.SamplerDescriptor{Min: c.min, Mipmap: c.mipmap})
		assert.Equal(t, c.want, got, "min %d mipmap %d", c.min, c.mipmap)
	}
}

func TestGLMappings(t *testing.T) {
	mode, err := glMode(pipeline.TopologyTriangleStrip)
	require.NoError(t, err)
	assert.Equal(t, uint32(gl.TRIANGLE_STRIP), mode)

	_, err = glMode(pipeline.Topology(42))
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedTopology)

	typ, err := glComponentType(gltf.ComponentUshort)
	require.NoError(t, err)
	assert.Equal(t, uint32(gl.UNSIGNED_SHORT), typ)

	assert.Equal(t, uint32(gl.UNSIGNED_BYTE), glIndexType(pipeline.IndexFormatUint8))
	assert.Equal(t, uint32(gl.UNSIGNED_INT), glIndexType(pipeline.IndexFormatUint32))
	assert.Equal(t, int32(gl.MIRRORED_REPEAT), glWrap(binder.AddressMirrorRepeat))
	assert.Equal(t, int32(gl.SRGB8_ALPHA8), glInternalFormat(true))
	assert.Equal(t, 1, glSwapInterval(PresentModeVSync))
	assert.Equal(t, 0, glSwapInterval(PresentModeUncapped))
}
