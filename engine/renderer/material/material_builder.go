package material

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithIndex is an option builder that sets the glTF material index.
//
// Parameters:
//   - index: the material index in the document
//
// Returns:
//   - MaterialBuilderOption: a function that applies the index option to a material
func WithIndex(index int) MaterialBuilderOption {
	return func(m *material) {
		m.index = index
	}
}

// WithBaseColor is an option builder that sets the linear RGBA base color factor of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithEmissive is an option builder that sets the linear RGB emissive factor.
//
// Parameters:
//   - emissive: the emissive color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive option to a material
func WithEmissive(emissive [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = emissive
	}
}

// WithOcclusionStrength is an option builder that sets how strongly the occlusion texture applies.
//
// Parameters:
//   - strength: the occlusion strength (0.0 = none, 1.0 = full)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the occlusion strength to a material
func WithOcclusionStrength(strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.occlusionStrength = strength
	}
}

// WithNormalScale is an option builder that scales the X and Y of sampled normals.
//
// Parameters:
//   - scale: the normal scale
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal scale to a material
func WithNormalScale(scale float32) MaterialBuilderOption {
	return func(m *material) {
		m.normalScale = scale
	}
}

// WithTexture is an option builder that binds a texture reference to a slot. A nil reference
// clears the slot.
//
// Parameters:
//   - slot: the texture slot
//   - ref: the texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture to a material
func WithTexture(slot Slot, ref *TextureRef) MaterialBuilderOption {
	return func(m *material) {
		if slot < 0 || int(slot) >= SlotCount {
			return
		}
		m.textures[slot] = ref
	}
}

// WithBlend is an option builder that enables alpha blending.
//
// Parameters:
//   - blended: true for alphaMode BLEND
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blend option to a material
func WithBlend(blended bool) MaterialBuilderOption {
	return func(m *material) {
		m.blended = blended
	}
}

// WithDoubleSided is an option builder that disables back-face culling for the material.
//
// Parameters:
//   - doubleSided: true to render back faces
//
// Returns:
//   - MaterialBuilderOption: a function that applies the double-sided option to a material
func WithDoubleSided(doubleSided bool) MaterialBuilderOption {
	return func(m *material) {
		m.doubleSided = doubleSided
	}
}
