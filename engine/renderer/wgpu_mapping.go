package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/qmuntal/gltf"
)

// wgpuVertexFormats maps float-readable glTF attribute formats to WebGPU vertex formats.
// Three-component 8 and 16 bit formats have no WebGPU equivalent.
var wgpuVertexFormats = map[pipeline.VertexFormat]wgpu.VertexFormat{
	{Component: gltf.ComponentFloat, Type: gltf.AccessorScalar}: wgpu.VertexFormatFloat32,
	{Component: gltf.ComponentFloat, Type: gltf.AccessorVec2}:   wgpu.VertexFormatFloat32x2,
	{Component: gltf.ComponentFloat, Type: gltf.AccessorVec3}:   wgpu.VertexFormatFloat32x3,
	{Component: gltf.ComponentFloat, Type: gltf.AccessorVec4}:   wgpu.VertexFormatFloat32x4,

	{Component: gltf.ComponentUbyte, Type: gltf.AccessorVec2, Normalized: true}: wgpu.VertexFormatUnorm8x2,
	{Component: gltf.ComponentUbyte, Type: gltf.AccessorVec4, Normalized: true}: wgpu.VertexFormatUnorm8x4,
	{Component: gltf.ComponentByte, Type: gltf.AccessorVec2, Normalized: true}:  wgpu.VertexFormatSnorm8x2,
	{Component: gltf.ComponentByte, Type: gltf.AccessorVec4, Normalized: true}:  wgpu.VertexFormatSnorm8x4,

	{Component: gltf.ComponentUshort, Type: gltf.AccessorVec2, Normalized: true}: wgpu.VertexFormatUnorm16x2,
	{Component: gltf.ComponentUshort, Type: gltf.AccessorVec4, Normalized: true}: wgpu.VertexFormatUnorm16x4,
	{Component: gltf.ComponentShort, Type: gltf.AccessorVec2, Normalized: true}:  wgpu.VertexFormatSnorm16x2,
	{Component: gltf.ComponentShort, Type: gltf.AccessorVec4, Normalized: true}:  wgpu.VertexFormatSnorm16x4,
}

// wgpuVertexFormat maps an attribute format to a WebGPU vertex format.
//
// Parameters:
//   - f: the glTF attribute format
//
// Returns:
//   - wgpu.VertexFormat: the vertex format
//   - error: ErrUnsupportedVertexFormat when WebGPU cannot read the data as floats
func wgpuVertexFormat(f pipeline.VertexFormat) (wgpu.VertexFormat, error) {
	if vf, ok := wgpuVertexFormats[f]; ok {
		return vf, nil
	}
	return 0, fmt.Errorf("%w: component %d, type %v, normalized %t",
		pipeline.ErrUnsupportedVertexFormat, f.Component, f.Type, f.Normalized)
}

// wgpuValidateLayout checks that WebGPU can bind a primitive's layout as is: every attribute has a
// float-readable format, strides and offsets are 4-byte aligned, and the index offset is aligned
// to the index size. uint8 indices are widened into a fresh buffer, so their offset is free.
//
// Parameters:
//   - layout: the primitive layout
//
// Returns:
//   - error: ErrUnsupportedVertexFormat describing the first violation
func wgpuValidateLayout(layout pipeline.PrimitiveLayout) error {
	if _, err := wgpuVertexBuffers(layout.Layout); err != nil {
		return err
	}
	for i := range layout.Layout.Count {
		src := layout.Sources[i]
		if src.View != pipeline.DefaultNormalView && src.Offset%4 != 0 {
			return fmt.Errorf("%w: vertex offset %d not 4-byte aligned", pipeline.ErrUnsupportedVertexFormat, src.Offset)
		}
	}
	switch layout.Index {
	case pipeline.IndexFormatNone, pipeline.IndexFormatUint8:
	default:
		if layout.IndexOffset%uint64(layout.Index.Size()) != 0 {
			return fmt.Errorf("%w: index offset %d not aligned to %d bytes",
				pipeline.ErrUnsupportedVertexFormat, layout.IndexOffset, layout.Index.Size())
		}
	}
	return nil
}

// wgpuVertexBuffers builds the vertex buffer layouts of a pipeline key. Strides and attribute
// offsets must be multiples of 4; a zero stride is allowed for the constant default normal.
func wgpuVertexBuffers(layout pipeline.VertexLayout) ([]wgpu.VertexBufferLayout, error) {
	buffers := make([]wgpu.VertexBufferLayout, 0, layout.Count)
	for i, slot := range layout.Slots() {
		format, err := wgpuVertexFormat(slot.Attribute.Format)
		if err != nil {
			return nil, err
		}
		if slot.Stride%4 != 0 || slot.Attribute.Offset%4 != 0 {
			return nil, fmt.Errorf("%w: slot %d stride %d offset %d not 4-byte aligned",
				pipeline.ErrUnsupportedVertexFormat, i, slot.Stride, slot.Attribute.Offset)
		}
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: uint64(slot.Stride),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{{
				Format:         format,
				Offset:         uint64(slot.Attribute.Offset),
				ShaderLocation: slot.Attribute.Location,
			}},
		})
	}
	return buffers, nil
}

func wgpuTopology(t pipeline.Topology) (wgpu.PrimitiveTopology, error) {
	switch t {
	case pipeline.TopologyTriangleList:
		return wgpu.PrimitiveTopologyTriangleList, nil
	case pipeline.TopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, nil
	case pipeline.TopologyLineList:
		return wgpu.PrimitiveTopologyLineList, nil
	case pipeline.TopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, nil
	case pipeline.TopologyPointList:
		return wgpu.PrimitiveTopologyPointList, nil
	default:
		return 0, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedTopology, t)
	}
}

// wgpuIndexFormat maps an index format. WebGPU has no 8-bit indices; uint8 data is widened to
// uint16 at upload.
func wgpuIndexFormat(f pipeline.IndexFormat) wgpu.IndexFormat {
	switch f {
	case pipeline.IndexFormatUint8, pipeline.IndexFormatUint16:
		return wgpu.IndexFormatUint16
	case pipeline.IndexFormatUint32:
		return wgpu.IndexFormatUint32
	default:
		return wgpu.IndexFormatUndefined
	}
}

func wgpuCullMode(c pipeline.CullMode) wgpu.CullMode {
	if c == pipeline.CullModeBack {
		return wgpu.CullModeBack
	}
	return wgpu.CullModeNone
}

func wgpuFilterMode(f binder.FilterMode) wgpu.FilterMode {
	if f == binder.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func wgpuAddressMode(a binder.AddressMode) wgpu.AddressMode {
	switch a {
	case binder.AddressRepeat:
		return wgpu.AddressModeRepeat
	case binder.AddressMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

// wgpuSamplerDescriptor builds the WebGPU sampler of a neutral descriptor. MipmapNone clamps
// sampling to the base level.
func wgpuSamplerDescriptor(desc binder.SamplerDescriptor) *wgpu.SamplerDescriptor {
	mipmap := wgpu.MipmapFilterModeLinear
	lodMax := float32(32)
	switch desc.Mipmap {
	case binder.MipmapNone:
		mipmap = wgpu.MipmapFilterModeNearest
		lodMax = 0
	case binder.MipmapNearest:
		mipmap = wgpu.MipmapFilterModeNearest
	}
	return &wgpu.SamplerDescriptor{
		Label:         "Material Sampler",
		AddressModeU:  wgpuAddressMode(desc.AddressU),
		AddressModeV:  wgpuAddressMode(desc.AddressV),
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpuFilterMode(desc.Mag),
		MinFilter:     wgpuFilterMode(desc.Min),
		MipmapFilter:  mipmap,
		LodMinClamp:   0,
		LodMaxClamp:   lodMax,
		MaxAnisotropy: 1,
	}
}

func wgpuPresentMode(mode PresentMode) wgpu.PresentMode {
	if mode == PresentModeVSync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

// wgpuTextureFormat selects the sampled format of a staged texture.
func wgpuTextureFormat(srgb bool) wgpu.TextureFormat {
	if srgb {
		return wgpu.TextureFormatRGBA8UnormSrgb
	}
	return wgpu.TextureFormatRGBA8Unorm
}

// wgpuAlphaBlend is the src-alpha / one-minus-src-alpha blend of BLEND materials.
var wgpuAlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}
