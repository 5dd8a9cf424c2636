package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/qmuntal/gltf"
)

// Uniform block bindings of the GLSL sources.
const (
	glFrameBlock    uint32 = 0
	glMaterialBlock uint32 = 1
)

// glSamplerUniforms names the sampler uniform of each material slot; slot i reads texture
// unit i.
var glSamplerUniforms = [...]string{
	"u_base_color_texture\x00",
	"u_normal_texture\x00",
	"u_metallic_roughness_texture\x00",
	"u_occlusion_texture\x00",
	"u_emissive_texture\x00",
}

func glMode(t pipeline.Topology) (uint32, error) {
	switch t {
	case pipeline.TopologyTriangleList:
		return gl.TRIANGLES, nil
	case pipeline.TopologyTriangleStrip:
		return gl.TRIANGLE_STRIP, nil
	case pipeline.TopologyLineList:
		return gl.LINES, nil
	case pipeline.TopologyLineStrip:
		return gl.LINE_STRIP, nil
	case pipeline.TopologyPointList:
		return gl.POINTS, nil
	default:
		return 0, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedTopology, t)
	}
}

// glComponentType maps a glTF component type to the GL attribute type. GL converts every
// component type to float in the shader, so no attribute format is rejected.
func glComponentType(c gltf.ComponentType) (uint32, error) {
	switch c {
	case gltf.ComponentFloat:
		return gl.FLOAT, nil
	case gltf.ComponentByte:
		return gl.BYTE, nil
	case gltf.ComponentUbyte:
		return gl.UNSIGNED_BYTE, nil
	case gltf.ComponentShort:
		return gl.SHORT, nil
	case gltf.ComponentUshort:
		return gl.UNSIGNED_SHORT, nil
	case gltf.ComponentUint:
		return gl.UNSIGNED_INT, nil
	default:
		return 0, fmt.Errorf("%w: component type %d", pipeline.ErrUnsupportedVertexFormat, c)
	}
}

func glIndexType(f pipeline.IndexFormat) uint32 {
	switch f {
	case pipeline.IndexFormatUint8:
		return gl.UNSIGNED_BYTE
	case pipeline.IndexFormatUint16:
		return gl.UNSIGNED_SHORT
	default:
		return gl.UNSIGNED_INT
	}
}

// glMinFilter combines the minification and mip filters into one GL filter.
func glMinFilter(desc binder.SamplerDescriptor) int32 {
	nearest := desc.Min == binder.FilterNearest
	switch desc.Mipmap {
	case binder.MipmapNearest:
		if nearest {
			return gl.NEAREST_MIPMAP_NEAREST
		}
		return gl.LINEAR_MIPMAP_NEAREST
	case binder.MipmapLinear:
		if nearest {
			return gl.NEAREST_MIPMAP_LINEAR
		}
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		if nearest {
			return gl.NEAREST
		}
		return gl.LINEAR
	}
}

func glMagFilter(desc binder.SamplerDescriptor) int32 {
	if desc.Mag == binder.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func glWrap(a binder.AddressMode) int32 {
	switch a {
	case binder.AddressRepeat:
		return gl.REPEAT
	case binder.AddressMirrorRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

func glInternalFormat(srgb bool) int32 {
	if srgb {
		return gl.SRGB8_ALPHA8
	}
	return gl.RGBA8
}

func glSwapInterval(mode PresentMode) int {
	if mode == PresentModeVSync {
		return 1
	}
	return 0
}
