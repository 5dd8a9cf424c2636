package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "a", Coalesce("", "a"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestPutFloat32sRoundTrip(t *testing.T) {
	buf := make([]byte, 12)
	next := PutFloat32s(buf, 4, 1.5, -2)
	require.Equal(t, 12, next)
	assert.Equal(t, float32(0), Float32At(buf, 0))
	assert.Equal(t, float32(1.5), Float32At(buf, 4))
	assert.Equal(t, float32(-2), Float32At(buf, 8))
}

func TestSolidTexture(t *testing.T) {
	tex := SolidTexture("white", [4]byte{255, 255, 255, 255}, true)
	assert.Equal(t, uint32(1), tex.Width())
	assert.Equal(t, uint32(1), tex.Height())
	assert.Equal(t, uint32(1), tex.MipLevelCount())
	assert.Equal(t, []byte{255, 255, 255, 255}, tex.Levels[0].Pixels)
	assert.True(t, tex.SRGB)
}

func TestEmptyStagingData(t *testing.T) {
	var tex TextureStagingData
	assert.Zero(t, tex.Width())
	assert.Zero(t, tex.Height())
}
