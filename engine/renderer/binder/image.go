package binder

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes png, jpeg or webp bytes into straight-alpha RGBA8.
//
// Parameters:
//   - data: the encoded image
//
// Returns:
//   - *image.NRGBA: the decoded image
//   - error: if the format is unknown or the data is corrupt
func DecodeImage(data []byte) (*image.NRGBA, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decoded %s image is empty", format)
	}
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) && nrgba.Stride == 4*nrgba.Rect.Dx() {
		return nrgba, nil
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst, nil
}

// GenerateMips builds the full mip chain of an image, halving each dimension (never below 1) until
// a 1x1 level. Each level is filtered from the previous one with a bilinear kernel.
//
// Parameters:
//   - base: the level 0 image
//
// Returns:
//   - []common.MipLevel: level 0 first, ending at 1x1
func GenerateMips(base *image.NRGBA) []common.MipLevel {
	levels := []common.MipLevel{levelFrom(base)}

	prev := base
	w, h := base.Rect.Dx(), base.Rect.Dy()
	for w > 1 || h > 1 {
		w = max(1, w/2)
		h = max(1, h/2)
		next := image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), xdraw.Src, nil)
		levels = append(levels, levelFrom(next))
		prev = next
	}
	return levels
}

// MipCount returns the number of levels in a full chain for a width x height image.
//
// Parameters:
//   - width: the base width
//   - height: the base height
//
// Returns:
//   - int: the level count, at least 1
func MipCount(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width = max(1, width/2)
		height = max(1, height/2)
		n++
	}
	return n
}

func levelFrom(img *image.NRGBA) common.MipLevel {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pixels := img.Pix
	if img.Stride != 4*w {
		pixels = make([]byte, 0, 4*w*h)
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+4*w]
			pixels = append(pixels, row...)
		}
	}
	return common.MipLevel{
		Pixels: pixels,
		Width:  uint32(w),
		Height: uint32(h),
	}
}
