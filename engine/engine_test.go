package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow runs its update callback until closed or maxIterations is reached. onIteration
// runs before each update to inject input.
type fakeWindow struct {
	maxIterations int
	onIteration   func(w *fakeWindow, i int)

	update      func()
	resize      func(width, height int)
	scroll      func(delta float32)
	keyDown     func(keyCode uint32)
	mouseButton func(button window.MouseButton, down bool, x, y int32)
	mouseMove   func(x, y int32)

	closed int
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(cb func()) {
	w.update = cb
}

func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) {
	w.resize = cb
}

func (w *fakeWindow) SetScrollCallback(cb func(delta float32)) {
	w.scroll = cb
}

func (w *fakeWindow) SetKeyDownCallback(cb func(keyCode uint32)) {
	w.keyDown = cb
}

func (w *fakeWindow) SetMouseMoveCallback(cb func(x, y int32)) {
	w.mouseMove = cb
}

func (w *fakeWindow) SetMouseButtonCallback(cb func(button window.MouseButton, down bool, x, y int32)) {
	w.mouseButton = cb
}

func (w *fakeWindow) ClientAPI() window.ClientAPI {
	return window.ClientAPINone
}

func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (w *fakeWindow) MakeContextCurrent() {}

func (w *fakeWindow) SwapBuffers() {}

func (w *fakeWindow) SetSwapInterval(interval int) {}

func (w *fakeWindow) SetTitle(title string) {}

func (w *fakeWindow) IsRunning() bool {
	return w.closed == 0
}

func (w *fakeWindow) Width() int {
	return 640
}

func (w *fakeWindow) Height() int {
	return 480
}

func (w *fakeWindow) Close() error {
	w.closed++
	return nil
}

func (w *fakeWindow) ProcessMessages() {
	for i := 0; i < w.maxIterations && w.IsRunning(); i++ {
		if w.onIteration != nil {
			w.onIteration(w, i)
		}
		if w.update != nil {
			w.update()
		}
	}
}

type fakeRenderer struct {
	camera   camera.Camera
	frameErr error
	frames   int
	releases int
	width    int
	height   int
}

var _ renderer.Renderer = &fakeRenderer{}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{camera: camera.NewCamera()}
}

func (r *fakeRenderer) Init(ctx context.Context) error {
	return nil
}

func (r *fakeRenderer) SetGltf(ctx context.Context, sc scene.Scene) error {
	return nil
}

func (r *fakeRenderer) OnResize(width, height int) {
	r.width, r.height = width, height
}

func (r *fakeRenderer) Stats() renderer.Stats {
	return renderer.Stats{Frames: uint64(r.frames)}
}

func (r *fakeRenderer) Camera() camera.Camera {
	return r.camera
}

func (r *fakeRenderer) Light() light.Light {
	return light.NewLight()
}

func (r *fakeRenderer) BackendType() renderer.RendererBackendType {
	return renderer.BackendTypeWGPU
}

func (r *fakeRenderer) Release() {
	r.releases++
}

func (r *fakeRenderer) OnFrame(timestamp time.Duration) error {
	if r.frameErr != nil {
		return r.frameErr
	}
	r.frames++
	return nil
}

func TestNewEngineNeedsWindowAndRenderer(t *testing.T) {
	_, err := NewEngine(nil, newFakeRenderer())
	assert.Error(t, err)
	_, err = NewEngine(&fakeWindow{}, nil)
	assert.Error(t, err)
}

func TestRunUntilWindowCloses(t *testing.T) {
	w := &fakeWindow{maxIterations: 3}
	r := newFakeRenderer()
	e, err := NewEngine(w, r, WithProfiling(true))
	require.NoError(t, err)

	calls := 0
	e.SetRenderCallback(func(float32) { calls++ })

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, r.frames)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, r.releases)
	assert.Equal(t, 1, w.closed)
}

func TestEscapeQuits(t *testing.T) {
	w := &fakeWindow{
		maxIterations: 100,
		onIteration: func(w *fakeWindow, i int) {
			if i == 2 {
				w.keyDown(KeyEscape)
			}
		},
	}
	r := newFakeRenderer()
	e, err := NewEngine(w, r)
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 2, r.frames)
	assert.Equal(t, 1, r.releases)
	assert.Equal(t, 1, w.closed)
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWindow{maxIterations: 100}
	r := newFakeRenderer()
	e, err := NewEngine(w, r)
	require.NoError(t, err)

	require.NoError(t, e.Run(ctx))
	assert.Zero(t, r.frames)
	assert.Equal(t, 1, r.releases)
}

func TestFrameErrorStops(t *testing.T) {
	w := &fakeWindow{maxIterations: 100}
	r := newFakeRenderer()
	r.frameErr = renderer.ErrNotInitialized
	e, err := NewEngine(w, r)
	require.NoError(t, err)

	err = e.Run(context.Background())
	assert.True(t, errors.Is(err, renderer.ErrNotInitialized))
	assert.Equal(t, 1, w.closed)
}

func TestResizeForwardsToRenderer(t *testing.T) {
	w := &fakeWindow{}
	r := newFakeRenderer()
	_, err := NewEngine(w, r)
	require.NoError(t, err)

	w.resize(1024, 768)
	assert.Equal(t, 1024, r.width)
	assert.Equal(t, 768, r.height)
}

func TestOrbitInput(t *testing.T) {
	c := camera.NewCamera()
	in := newOrbitInput(c)

	// No controller before the camera is framed.
	in.mouseButton(window.MouseButtonLeft, true, 0, 0)
	in.mouseMove(10, 10)
	in.scroll(1)

	c.Frame(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	start := c.Position()

	in.mouseButton(window.MouseButtonLeft, true, 100, 100)
	in.mouseMove(140, 100)
	orbited := c.Position()
	assert.NotEqual(t, start, orbited)
	assert.InDelta(t, start.Len(), orbited.Len(), 1e-3)

	in.mouseButton(window.MouseButtonLeft, false, 140, 100)
	in.mouseMove(200, 200)
	assert.Equal(t, orbited, c.Position())

	radius := c.Controller().Radius()
	in.scroll(1)
	assert.Less(t, c.Controller().Radius(), radius)

	in.mouseButton(window.MouseButtonRight, true, 0, 0)
	in.mouseMove(20, 0)
	assert.NotEqual(t, orbited, c.Position())
}
