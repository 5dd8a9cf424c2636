package frame

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUFrameUniforms is the per-frame uniform block, written once per frame before any draw.
// Matches the WGSL FrameUniforms struct and the std140 Frame block of the GLSL sources.
// Size: 176 bytes.
type GPUFrameUniforms struct {
	Projection     [16]float32 // offset   0: mat4x4<f32>
	View           [16]float32 // offset  64: mat4x4<f32>
	CameraPosition [3]float32  // offset 128: vec3<f32>
	_pad0          float32     // offset 140
	LightDirection [3]float32  // offset 144: direction the light travels
	_pad1          float32     // offset 156
	LightColor     [3]float32  // offset 160: linear RGB
	LightIntensity float32     // offset 172
}

// Size returns the size of the GPUFrameUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (176)
func (g *GPUFrameUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFrameUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutFloat32s(buf, 0, g.Projection[:]...)
	off = common.PutFloat32s(buf, off, g.View[:]...)
	common.PutFloat32s(buf, off, g.CameraPosition[:]...)
	common.PutFloat32s(buf, 144, g.LightDirection[:]...)
	common.PutFloat32s(buf, 160, g.LightColor[:]...)
	common.PutFloat32s(buf, 172, g.LightIntensity)
	return buf
}

// GPUInstanceUniforms is the per-primitive transform block.
// Matches the WGSL InstanceUniforms struct; the GL backend uploads the same matrices as plain
// uniforms.
// Size: 128 bytes.
type GPUInstanceUniforms struct {
	Model        [16]float32 // offset  0: world transform
	NormalMatrix [16]float32 // offset 64: inverse transpose of the world transform
}

// NewInstanceUniforms builds the instance block of a world transform. A singular transform uses
// the transform itself as normal matrix.
//
// Parameters:
//   - world: the primitive's world transform
//
// Returns:
//   - GPUInstanceUniforms: the instance block
func NewInstanceUniforms(world mgl32.Mat4) GPUInstanceUniforms {
	normal := world
	if world.Det() != 0 {
		normal = world.Inv().Transpose()
	}
	return GPUInstanceUniforms{
		Model:        world,
		NormalMatrix: normal,
	}
}

// Size returns the size of the GPUInstanceUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (g *GPUInstanceUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstanceUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUInstanceUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutFloat32s(buf, 0, g.Model[:]...)
	common.PutFloat32s(buf, off, g.NormalMatrix[:]...)
	return buf
}

// WebGPUClip remaps an OpenGL style clip-space projection (z in [-1, 1]) to the [0, 1] depth
// range WebGPU uses.
var WebGPUClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}
