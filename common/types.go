// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// MipLevel is a single level of an RGBA8 mip chain.
type MipLevel struct {
	// Pixels is the tightly packed RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of this level in pixels.
	Width uint32
	// Height is the height of this level in pixels.
	Height uint32
}

// TextureStagingData holds decoded RGBA pixel data for a texture pending GPU upload.
// Level 0 is always the full resolution image; further levels are successive mips down to 1x1.
type TextureStagingData struct {
	// Label is a debug label forwarded to the GPU object.
	Label string
	// Levels is the mip chain, never empty for a valid texture.
	Levels []MipLevel
	// SRGB marks color data that must be sampled with sRGB decoding (base color, emissive).
	SRGB bool
}

// Width returns the width of the base level in pixels.
//
// Returns:
//   - uint32: the base width, or 0 when no levels are staged
func (t TextureStagingData) Width() uint32 {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[0].Width
}

// Height returns the height of the base level in pixels.
//
// Returns:
//   - uint32: the base height, or 0 when no levels are staged
func (t TextureStagingData) Height() uint32 {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[0].Height
}

// MipLevelCount returns the number of staged mip levels.
//
// Returns:
//   - uint32: the level count
func (t TextureStagingData) MipLevelCount() uint32 {
	return uint32(len(t.Levels))
}

// SolidTexture builds a 1x1 single-level texture filled with one RGBA color.
//
// Parameters:
//   - label: the debug label for the texture
//   - rgba: the pixel color
//   - srgb: whether the texture holds sRGB color data
//
// Returns:
//   - TextureStagingData: the staged texture
func SolidTexture(label string, rgba [4]byte, srgb bool) TextureStagingData {
	return TextureStagingData{
		Label: label,
		Levels: []MipLevel{{
			Pixels: []byte{rgba[0], rgba[1], rgba[2], rgba[3]},
			Width:  1,
			Height: 1,
		}},
		SRGB: srgb,
	}
}

// Coalesce returns the first value that is not the zero value of T, or the zero value when every
// value is zero. Used for name fallbacks.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
