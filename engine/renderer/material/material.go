package material

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

// material is the implementation of the Material interface.
type material struct {
	name              string
	index             int
	baseColor         [4]float32
	metallic          float32
	roughness         float32
	emissive          [3]float32
	occlusionStrength float32
	normalScale       float32
	textures          [SlotCount]*TextureRef
	blended           bool
	doubleSided       bool
}

// Material is a read-only view of a glTF metallic-roughness material: its factors, its texture
// references and the render state it implies.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Index retrieves the glTF material index, scene.DefaultMaterial for the default material.
	//
	// Returns:
	//   - int: the material index
	Index() int

	// BaseColor retrieves the linear RGBA base color factor.
	//
	// Returns:
	//   - [4]float32: the base color factor
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Emissive retrieves the linear RGB emissive factor.
	//
	// Returns:
	//   - [3]float32: the emissive factor
	Emissive() [3]float32

	// Texture retrieves the texture bound in a slot, or nil if none is set.
	//
	// Parameters:
	//   - slot: the texture slot
	//
	// Returns:
	//   - *TextureRef: the texture reference, or nil
	Texture(slot Slot) *TextureRef

	// Textures retrieves every slot's texture reference, nil where absent.
	//
	// Returns:
	//   - [SlotCount]*TextureRef: the texture references in slot order
	Textures() [SlotCount]*TextureRef

	// TextureSet reports which slots carry a texture, for shader variant selection.
	//
	// Returns:
	//   - shader.TextureSet: the present textures
	TextureSet() shader.TextureSet

	// Blended reports whether the material uses alpha blending (alphaMode BLEND).
	//
	// Returns:
	//   - bool: true for blended materials
	Blended() bool

	// DoubleSided reports whether back faces are rendered.
	//
	// Returns:
	//   - bool: true for double-sided materials
	DoubleSided() bool

	// Factors packs the material's scalar inputs into the uniform block layout.
	//
	// Returns:
	//   - GPUMaterialFactors: the uniform data
	Factors() GPUMaterialFactors
}

var _ Material = &material{}

// NewMaterial creates a new Material configured with the provided options. Unset properties take
// the glTF defaults: white base color, metallic and roughness 1, no emission, no textures.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		index:             scene.DefaultMaterial,
		baseColor:         [4]float32{1, 1, 1, 1},
		metallic:          1.0,
		roughness:         1.0,
		occlusionStrength: 1.0,
		normalScale:       1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// FromGLTF builds the Material view of a glTF material. scene.DefaultMaterial yields the glTF
// default material. Textures that are missing, or that read a texture coordinate set other than
// TEXCOORD_0, are treated as absent.
//
// Parameters:
//   - doc: the document
//   - index: the material index or scene.DefaultMaterial
//
// Returns:
//   - Material: the material view
func FromGLTF(doc *gltf.Document, index int) Material {
	if index == scene.DefaultMaterial || index < 0 || index >= len(doc.Materials) {
		return NewMaterial(WithName("default"))
	}

	src := doc.Materials[index]
	opts := []MaterialBuilderOption{
		WithName(src.Name),
		WithIndex(index),
		WithEmissive(toFloat3(src.EmissiveFactor)),
		WithBlend(src.AlphaMode == gltf.AlphaBlend),
		WithDoubleSided(src.DoubleSided),
	}

	texture := func(slot Slot, texIndex int, texCoord int) {
		if texCoord != 0 {
			logger.L().Debug("texture uses an unsupported texture coordinate set",
				zap.Int("material", index),
				zap.Stringer("slot", slot),
				zap.Int("texcoord", texCoord),
			)
			return
		}
		key, sampler, ok := binder.TextureSource(doc, texIndex, slot.SRGB())
		if !ok {
			return
		}
		opts = append(opts, WithTexture(slot, &TextureRef{Key: key, Sampler: sampler}))
	}

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			opts = append(opts, WithBaseColor(toFloat4(*pbr.BaseColorFactor)))
		}
		if pbr.MetallicFactor != nil {
			opts = append(opts, WithMetallic(float32(*pbr.MetallicFactor)))
		}
		if pbr.RoughnessFactor != nil {
			opts = append(opts, WithRoughness(float32(*pbr.RoughnessFactor)))
		}
		if t := pbr.BaseColorTexture; t != nil {
			texture(SlotBaseColor, int(t.Index), int(t.TexCoord))
		}
		if t := pbr.MetallicRoughnessTexture; t != nil {
			texture(SlotMetallicRoughness, int(t.Index), int(t.TexCoord))
		}
	}
	if t := src.NormalTexture; t != nil && t.Index != nil {
		texture(SlotNormal, int(*t.Index), int(t.TexCoord))
		if t.Scale != nil {
			opts = append(opts, WithNormalScale(float32(*t.Scale)))
		}
	}
	if t := src.OcclusionTexture; t != nil && t.Index != nil {
		texture(SlotOcclusion, int(*t.Index), int(t.TexCoord))
		if t.Strength != nil {
			opts = append(opts, WithOcclusionStrength(float32(*t.Strength)))
		}
	}
	if t := src.EmissiveTexture; t != nil {
		texture(SlotEmissive, int(t.Index), int(t.TexCoord))
	}

	return NewMaterial(opts...)
}

func toFloat4(v [4]float64) [4]float32 {
	return [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
}

func toFloat3(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Index() int {
	return m.index
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Emissive() [3]float32 {
	return m.emissive
}

func (m *material) Texture(slot Slot) *TextureRef {
	if slot < 0 || int(slot) >= SlotCount {
		return nil
	}
	return m.textures[slot]
}

func (m *material) Textures() [SlotCount]*TextureRef {
	return m.textures
}

func (m *material) TextureSet() shader.TextureSet {
	return shader.TextureSet{
		BaseColor:         m.textures[SlotBaseColor] != nil,
		Normal:            m.textures[SlotNormal] != nil,
		MetallicRoughness: m.textures[SlotMetallicRoughness] != nil,
		Occlusion:         m.textures[SlotOcclusion] != nil,
		Emissive:          m.textures[SlotEmissive] != nil,
	}
}

func (m *material) Blended() bool {
	return m.blended
}

func (m *material) DoubleSided() bool {
	return m.doubleSided
}

func (m *material) Factors() GPUMaterialFactors {
	return GPUMaterialFactors{
		BaseColor:         m.baseColor,
		Emissive:          m.emissive,
		OcclusionStrength: m.occlusionStrength,
		Metallic:          m.metallic,
		Roughness:         m.roughness,
		NormalScale:       m.normalScale,
	}
}
