package frame

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUFrameUniformsLayout(t *testing.T) {
	u := GPUFrameUniforms{
		Projection:     mgl32.Ident4(),
		View:           mgl32.Translate3D(1, 2, 3),
		CameraPosition: [3]float32{4, 5, 6},
		LightDirection: [3]float32{0, -1, 0},
		LightColor:     [3]float32{1, 0.5, 0.25},
		LightIntensity: 3,
	}
	assert.Equal(t, 176, u.Size())

	buf := u.Marshal()
	require.Len(t, buf, 176)
	assert.Equal(t, float32(1), common.Float32At(buf, 0))
	assert.Equal(t, float32(1), common.Float32At(buf, 64+12*4))
	assert.Equal(t, float32(4), common.Float32At(buf, 128))
	assert.Equal(t, float32(-1), common.Float32At(buf, 148))
	assert.Equal(t, float32(0.25), common.Float32At(buf, 168))
	assert.Equal(t, float32(3), common.Float32At(buf, 172))
}

func TestInstanceUniforms(t *testing.T) {
	world := mgl32.Translate3D(1, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	u := NewInstanceUniforms(world)
	assert.Equal(t, 128, u.Size())

	n := mgl32.Mat4(u.NormalMatrix)
	dir := n.Mul4x1(mgl32.Vec4{0, 1, 0, 0}).Vec3()
	assert.InDelta(t, 0.5, dir.Y(), 1e-6)
	assert.InDelta(t, 0, dir.X(), 1e-6)

	singular := NewInstanceUniforms(mgl32.Scale3D(0, 1, 1))
	assert.Equal(t, singular.Model, singular.NormalMatrix)

	buf := u.Marshal()
	require.Len(t, buf, 128)
	assert.Equal(t, float32(2), common.Float32At(buf, 0))
	assert.Equal(t, float32(1), common.Float32At(buf, 12*4))
}

func TestWebGPUClip(t *testing.T) {
	near := WebGPUClip.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	far := WebGPUClip.Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	assert.InDelta(t, 0, near.Z()/near.W(), 1e-6)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-6)
}

func TestRingReusesReleasedBuffers(t *testing.T) {
	next := 0
	r := NewRing(func() (int, error) {
		next++
		return next, nil
	})

	a, err := r.Acquire()
	require.NoError(t, err)
	b, err := r.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.InFlight())

	r.Release(a)
	c, err := r.Acquire()
	require.NoError(t, err)
	assert.Equal(t, a, c)
	assert.Equal(t, 2, r.Created())

	r.Release(b)
	r.Release(c)
	assert.Equal(t, 0, r.InFlight())

	var drained []int
	r.Drain(func(v int) { drained = append(drained, v) })
	assert.ElementsMatch(t, []int{1, 2}, drained)
}

func TestRingCreateError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRing(func() (int, error) { return 0, boom })
	_, err := r.Acquire()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.InFlight())
}
