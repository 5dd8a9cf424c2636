package shader

import (
	"strconv"
	"strings"
)

// Preprocessor define names emitted for a variant.
const (
	DefineVertexColor     = "USE_VERTEX_COLOR"
	DefineNormalMap       = "USE_NORMAL_MAP"
	DefineBaseColorMap    = "USE_BASE_COLOR_MAP"
	DefineMetalRoughMap   = "USE_METAL_ROUGH_MAP"
	DefineOcclusion       = "USE_OCCLUSION"
	DefineEmissiveTexture = "USE_EMISSIVE_TEXTURE"
	DefineFullyRough      = "FULLY_ROUGH"
	DefineLightCount      = "LIGHT_COUNT"

	// DefineTexCoord0 is derived: it is set whenever any texture flag is set so the sources can
	// declare the texture coordinate attribute once.
	DefineTexCoord0 = "USE_TEXCOORD_0"
)

// AttributeSet records which optional vertex attributes a primitive provides.
// POSITION is mandatory and therefore not tracked.
type AttributeSet struct {
	Normal    bool
	Tangent   bool
	TexCoord0 bool
	TexCoord1 bool
	Color0    bool
}

// TextureSet records which of the five material texture slots reference a real texture.
type TextureSet struct {
	BaseColor         bool
	Normal            bool
	MetallicRoughness bool
	Occlusion         bool
	Emissive          bool
}

// Flags is the shader variant key. Two primitives with equal Flags share one compiled variant,
// so Flags is used directly as a map key.
type Flags struct {
	VertexColor     bool
	NormalMap       bool
	BaseColorMap    bool
	MetalRoughMap   bool
	Occlusion       bool
	EmissiveTexture bool
	FullyRough      bool
	LightCount      int
}

// FlagsFor derives the variant flags for a primitive from its attributes, its material textures,
// its material roughness factor and the scene light count.
//
// Every texture flag requires TEXCOORD_0; the normal map additionally requires TANGENT.
// FULLY_ROUGH is set only when no metallic-roughness texture is in use and the roughness factor is
// exactly 1.0.
//
// Parameters:
//   - attrs: the optional attributes present on the primitive
//   - tex: the texture slots referenced by the primitive's material
//   - roughness: the material roughness factor
//   - lightCount: the number of lights the variant shades with
//
// Returns:
//   - Flags: the derived variant key
func FlagsFor(attrs AttributeSet, tex TextureSet, roughness float32, lightCount int) Flags {
	uv := attrs.TexCoord0

	f := Flags{
		VertexColor:     attrs.Color0,
		NormalMap:       uv && tex.Normal && attrs.Tangent,
		BaseColorMap:    uv && tex.BaseColor,
		MetalRoughMap:   uv && tex.MetallicRoughness,
		Occlusion:       uv && tex.Occlusion,
		EmissiveTexture: uv && tex.Emissive,
		LightCount:      lightCount,
	}
	f.FullyRough = !f.MetalRoughMap && roughness == 1.0
	return f
}

// UsesTexCoord0 reports whether any texture flag is set.
//
// Returns:
//   - bool: true when the variant samples at least one material texture
func (f Flags) UsesTexCoord0() bool {
	return f.NormalMap || f.BaseColorMap || f.MetalRoughMap || f.Occlusion || f.EmissiveTexture
}

// Defines returns the preprocessor defines for the variant. Boolean flags map to "1" and are
// omitted when unset; LIGHT_COUNT is always present.
//
// Returns:
//   - map[string]string: define name to value
func (f Flags) Defines() map[string]string {
	defines := map[string]string{
		DefineLightCount: strconv.Itoa(f.LightCount),
	}
	for _, d := range f.enabled() {
		defines[d] = "1"
	}
	if f.UsesTexCoord0() {
		defines[DefineTexCoord0] = "1"
	}
	return defines
}

// String renders the flags in a fixed order, e.g. "USE_BASE_COLOR_MAP|LIGHT_COUNT=1".
// Equal flags always render to the same string.
func (f Flags) String() string {
	parts := append(f.enabled(), DefineLightCount+"="+strconv.Itoa(f.LightCount))
	return strings.Join(parts, "|")
}

func (f Flags) enabled() []string {
	var out []string
	for _, e := range []struct {
		on   bool
		name string
	}{
		{f.VertexColor, DefineVertexColor},
		{f.NormalMap, DefineNormalMap},
		{f.BaseColorMap, DefineBaseColorMap},
		{f.MetalRoughMap, DefineMetalRoughMap},
		{f.Occlusion, DefineOcclusion},
		{f.EmissiveTexture, DefineEmissiveTexture},
		{f.FullyRough, DefineFullyRough},
	} {
		if e.on {
			out = append(out, e.name)
		}
	}
	return out
}
