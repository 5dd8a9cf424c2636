package material

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// GPUMaterialFactors is the per-material uniform block. Matches the MaterialFactors struct of the
// WGSL source and the std140 Material block of the GLSL source.
// Size: 48 bytes.
type GPUMaterialFactors struct {
	BaseColor         [4]float32 // offset 0
	Emissive          [3]float32 // offset 16
	OcclusionStrength float32    // offset 28, packs into the vec3 tail
	Metallic          float32    // offset 32
	Roughness         float32    // offset 36
	NormalScale       float32    // offset 40
	_                 float32    // offset 44
}

// Size returns the size of the GPUMaterialFactors struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialFactors) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialFactors struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUMaterialFactors) Marshal() []byte {
	buf := make([]byte, 48)
	off := common.PutFloat32s(buf, 0, g.BaseColor[:]...)
	off = common.PutFloat32s(buf, off, g.Emissive[:]...)
	common.PutFloat32s(buf, off, g.OcclusionStrength, g.Metallic, g.Roughness, g.NormalScale)
	return buf
}
