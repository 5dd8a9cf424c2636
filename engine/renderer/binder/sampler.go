package binder

import (
	"github.com/qmuntal/gltf"
)

// glTF sampler codes, shared with OpenGL.
const (
	CodeNearest              = 9728
	CodeLinear               = 9729
	CodeNearestMipmapNearest = 9984
	CodeLinearMipmapNearest  = 9985
	CodeNearestMipmapLinear  = 9986
	CodeLinearMipmapLinear   = 9987
	CodeClampToEdge          = 33071
	CodeMirroredRepeat       = 33648
	CodeRepeat               = 10497
)

// FilterMode is a texel filter.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// MipmapMode selects filtering between mip levels.
type MipmapMode int

const (
	// MipmapNone samples level 0 only.
	MipmapNone MipmapMode = iota
	MipmapNearest
	MipmapLinear
)

// AddressMode is a texture coordinate wrap mode.
type AddressMode int

const (
	AddressClampToEdge AddressMode = iota
	AddressRepeat
	AddressMirrorRepeat
)

// SamplerDescriptor is the backend-neutral, comparable description of a sampler. Equal
// descriptors share one GPU sampler.
type SamplerDescriptor struct {
	Mag      FilterMode
	Min      FilterMode
	Mipmap   MipmapMode
	AddressU AddressMode
	AddressV AddressMode
}

// DefaultSampler is used by textures that reference no sampler: trilinear filtering with repeat
// wrapping.
var DefaultSampler = SamplerDescriptor{
	Mag:      FilterLinear,
	Min:      FilterLinear,
	Mipmap:   MipmapLinear,
	AddressU: AddressRepeat,
	AddressV: AddressRepeat,
}

// SamplerFromCodes maps glTF numeric sampler codes to a SamplerDescriptor. Codes outside the glTF
// set fall back to linear filtering and clamp-to-edge addressing; an unknown minification code
// keeps linear mip filtering.
//
// Parameters:
//   - magCode: the magnification filter code
//   - minCode: the minification filter code
//   - wrapS: the S wrap code
//   - wrapT: the T wrap code
//
// Returns:
//   - SamplerDescriptor: the neutral descriptor
func SamplerFromCodes(magCode, minCode, wrapS, wrapT int) SamplerDescriptor {
	desc := SamplerDescriptor{
		AddressU: addressFromCode(wrapS),
		AddressV: addressFromCode(wrapT),
	}

	if magCode == CodeNearest {
		desc.Mag = FilterNearest
	} else {
		desc.Mag = FilterLinear
	}

	switch minCode {
	case CodeNearest:
		desc.Min, desc.Mipmap = FilterNearest, MipmapNone
	case CodeLinear:
		desc.Min, desc.Mipmap = FilterLinear, MipmapNone
	case CodeNearestMipmapNearest:
		desc.Min, desc.Mipmap = FilterNearest, MipmapNearest
	case CodeLinearMipmapNearest:
		desc.Min, desc.Mipmap = FilterLinear, MipmapNearest
	case CodeNearestMipmapLinear:
		desc.Min, desc.Mipmap = FilterNearest, MipmapLinear
	case CodeLinearMipmapLinear:
		desc.Min, desc.Mipmap = FilterLinear, MipmapLinear
	default:
		desc.Min, desc.Mipmap = FilterLinear, MipmapLinear
	}
	return desc
}

func addressFromCode(code int) AddressMode {
	switch code {
	case CodeRepeat:
		return AddressRepeat
	case CodeMirroredRepeat:
		return AddressMirrorRepeat
	default:
		return AddressClampToEdge
	}
}

// CodesFromGLTF converts a decoded glTF sampler back to its numeric codes. Undefined filters
// become 0, which SamplerFromCodes treats as unknown.
//
// Parameters:
//   - s: the glTF sampler
//
// Returns:
//   - magCode, minCode, wrapS, wrapT: the numeric codes
func CodesFromGLTF(s *gltf.Sampler) (magCode, minCode, wrapS, wrapT int) {
	switch s.MagFilter {
	case gltf.MagNearest:
		magCode = CodeNearest
	case gltf.MagLinear:
		magCode = CodeLinear
	}

	switch s.MinFilter {
	case gltf.MinNearest:
		minCode = CodeNearest
	case gltf.MinLinear:
		minCode = CodeLinear
	case gltf.MinNearestMipMapNearest:
		minCode = CodeNearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		minCode = CodeLinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		minCode = CodeNearestMipmapLinear
	case gltf.MinLinearMipMapLinear:
		minCode = CodeLinearMipmapLinear
	}

	return magCode, minCode, wrapCode(s.WrapS), wrapCode(s.WrapT)
}

func wrapCode(w gltf.WrappingMode) int {
	switch w {
	case gltf.WrapClampToEdge:
		return CodeClampToEdge
	case gltf.WrapMirroredRepeat:
		return CodeMirroredRepeat
	default:
		return CodeRepeat
	}
}
