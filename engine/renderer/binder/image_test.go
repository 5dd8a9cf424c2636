package binder

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage(encodePNG(t, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Rect.Dx())
	assert.Equal(t, 5, img.Rect.Dy())
	assert.Equal(t, uint8(200), img.Pix[0])

	_, err = DecodeImage([]byte("garbage"))
	assert.Error(t, err)
}

func TestGenerateMips(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 8, 2))
	for i := range base.Pix {
		base.Pix[i] = 255
	}

	levels := GenerateMips(base)
	require.Len(t, levels, MipCount(8, 2))
	require.Len(t, levels, 4)

	sizes := [][2]uint32{{8, 2}, {4, 1}, {2, 1}, {1, 1}}
	for i, l := range levels {
		assert.Equal(t, sizes[i][0], l.Width)
		assert.Equal(t, sizes[i][1], l.Height)
		assert.Len(t, l.Pixels, int(4*l.Width*l.Height))
	}
	assert.Equal(t, uint8(255), levels[3].Pixels[3])
}

func TestMipCount(t *testing.T) {
	assert.Equal(t, 1, MipCount(1, 1))
	assert.Equal(t, 9, MipCount(256, 256))
	assert.Equal(t, 3, MipCount(4, 2))
}
