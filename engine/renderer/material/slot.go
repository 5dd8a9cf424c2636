package material

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
)

// Slot is one of the five texture inputs of a metallic-roughness material.
type Slot int

const (
	SlotBaseColor Slot = iota
	SlotNormal
	SlotMetallicRoughness
	SlotOcclusion
	SlotEmissive

	// SlotCount is the number of texture slots.
	SlotCount = 5
)

// SRGB reports whether the slot holds color data decoded with the sRGB transfer function.
func (s Slot) SRGB() bool {
	return s == SlotBaseColor || s == SlotEmissive
}

// Placeholder returns the texture bound in the slot when the material has none.
func (s Slot) Placeholder() Placeholder {
	switch s {
	case SlotNormal:
		return PlaceholderNormal
	case SlotEmissive:
		return PlaceholderBlack
	default:
		return PlaceholderWhite
	}
}

func (s Slot) String() string {
	switch s {
	case SlotBaseColor:
		return "base_color"
	case SlotNormal:
		return "normal"
	case SlotMetallicRoughness:
		return "metallic_roughness"
	case SlotOcclusion:
		return "occlusion"
	case SlotEmissive:
		return "emissive"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Placeholder is a 1x1 texture standing in for a missing material texture.
type Placeholder int

const (
	// PlaceholderWhite is neutral for base color, metallic-roughness and occlusion.
	PlaceholderWhite Placeholder = iota
	// PlaceholderNormal is a flat tangent-space normal.
	PlaceholderNormal
	// PlaceholderBlack is neutral for emissive.
	PlaceholderBlack

	// PlaceholderCount is the number of placeholders.
	PlaceholderCount = 3
)

// RGBA returns the placeholder's texel.
func (p Placeholder) RGBA() [4]byte {
	switch p {
	case PlaceholderNormal:
		return [4]byte{128, 128, 255, 255}
	case PlaceholderBlack:
		return [4]byte{0, 0, 0, 255}
	default:
		return [4]byte{255, 255, 255, 255}
	}
}

// Texture returns the staged 1x1 texture for the placeholder. Placeholders are linear; their
// texels are exact at both ends of the range, where sRGB decoding is the identity.
func (p Placeholder) Texture() common.TextureStagingData {
	names := [PlaceholderCount]string{"placeholder_white", "placeholder_normal", "placeholder_black"}
	return common.SolidTexture(names[p], p.RGBA(), false)
}

// TextureRef is a material's reference to a bound image and its sampler.
type TextureRef struct {
	Key     binder.TextureKey
	Sampler binder.SamplerDescriptor
}

// Binding is the resolved input of one slot: either a texture reference or a placeholder.
type Binding struct {
	Slot        Slot
	Ref         TextureRef
	Placeholder Placeholder
	// IsPlaceholder is true when Ref is unset and Placeholder must be bound.
	IsPlaceholder bool
}

// Resolve fills every slot, substituting the slot's placeholder where the material has no texture.
//
// Parameters:
//   - textures: the material's texture references, nil where absent
//
// Returns:
//   - [SlotCount]Binding: one binding per slot
func Resolve(textures [SlotCount]*TextureRef) [SlotCount]Binding {
	var out [SlotCount]Binding
	for i, ref := range textures {
		slot := Slot(i)
		out[i] = Binding{Slot: slot}
		if ref == nil {
			out[i].Placeholder = slot.Placeholder()
			out[i].IsPlaceholder = true
			continue
		}
		out[i].Ref = *ref
	}
	return out
}

// PlaceholderSampler is bound alongside placeholders.
var PlaceholderSampler = binder.SamplerDescriptor{
	Mag:      binder.FilterNearest,
	Min:      binder.FilterNearest,
	Mipmap:   binder.MipmapNone,
	AddressU: binder.AddressRepeat,
	AddressV: binder.AddressRepeat,
}
