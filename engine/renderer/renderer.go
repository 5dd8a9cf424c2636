package renderer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"go.uber.org/zap"
)

// rendererConfig is the pre-creation config collected from builder options.
type rendererConfig struct {
	msaa                 MSAASampleCount
	presentMode          PresentMode
	mipmaps              bool
	clearColor           [4]float64
	forceFallbackAdapter bool
	workers              int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	cfg         rendererConfig

	camera camera.Camera
	light  light.Light

	initialized bool
	loaded      bool
	width       int
	height      int
	stats       Stats
}

// Renderer draws a loaded glTF scene with physically based shading through one GPU backend.
//
// The Renderer owns the view state (camera, light) and forwards scene loading and frame
// rendering to its backend. All methods must be called from the thread that created the
// window; a second SetGltf while one is in progress is not supported.
type Renderer interface {
	// Init acquires the GPU device or context and creates the scene-independent resources.
	// Calling Init again is a no-op.
	//
	// Parameters:
	//   - ctx: cancels device acquisition
	//
	// Returns:
	//   - error: ErrBackendUnavailable if no device or context could be acquired
	Init(ctx context.Context) error

	// SetGltf loads a scene, replacing the previous one, and frames the camera on its bounds.
	//
	// Parameters:
	//   - ctx: cancels texture decoding
	//   - sc: the scene to render
	//
	// Returns:
	//   - error: ErrNotInitialized before Init, or a fatal load error
	SetGltf(ctx context.Context, sc scene.Scene) error

	// OnResize rebuilds the size-dependent attachments and updates the camera aspect. Sizes
	// of zero or less, as reported for minimized windows, are ignored.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	OnResize(width, height int)

	// OnFrame renders exactly one frame. With no scene loaded the frame is only cleared.
	//
	// Parameters:
	//   - timestamp: the time since the loop started
	//
	// Returns:
	//   - error: ErrNotInitialized before Init, or a surface error
	OnFrame(timestamp time.Duration) error

	// Stats returns a snapshot of the cache sizes and frame counters.
	//
	// Returns:
	//   - Stats: the snapshot
	Stats() Stats

	// Camera returns the renderer's camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Light returns the renderer's directional light.
	//
	// Returns:
	//   - light.Light: the light
	Light() light.Light

	// BackendType returns the backend the renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Release tears down the scene and the device resources.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given backend and window. The backend is created but
// not initialized; call Init before loading a scene.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - win: the window to render into; its client API must match the backend
//   - options: a variadic list of options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the backend type is unknown or does not match the window
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		cfg: rendererConfig{
			msaa:        MSAA4x,
			presentMode: PresentModeVSync,
			mipmaps:     true,
			clearColor:  [4]float64{0.1, 0.1, 0.1, 1},
		},
	}

	for _, opt := range options {
		opt(r)
	}

	if r.camera == nil {
		r.camera = camera.NewCamera()
	}
	if r.light == nil {
		r.light = light.NewLight()
	}
	if win != nil {
		r.width, r.height = win.Width(), win.Height()
	}

	if r.backend != nil {
		return r, nil
	}
	if win == nil {
		return nil, fmt.Errorf("%s renderer needs a window", backendType)
	}

	switch backendType {
	case BackendTypeWGPU:
		if win.ClientAPI() != window.ClientAPINone {
			return nil, fmt.Errorf("wgpu renderer needs a window without a client API")
		}
		r.backend = newWGPURendererBackend(win, r.cfg)
	case BackendTypeGL:
		if win.ClientAPI() != window.ClientAPIOpenGL {
			return nil, fmt.Errorf("gl renderer needs a window with an OpenGL context")
		}
		r.backend = newGLRendererBackend(win, r.cfg)
	default:
		return nil, fmt.Errorf("unknown renderer backend %s", backendType)
	}
	return r, nil
}

func (r *renderer) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}
	if err := r.backend.Init(ctx); err != nil {
		return err
	}
	r.backend.SetPresentMode(r.cfg.presentMode)
	if r.width > 0 && r.height > 0 {
		r.backend.Resize(r.width, r.height)
		r.camera.SetAspect(float32(r.width) / float32(r.height))
	}
	r.initialized = true
	r.stats = Stats{Backend: r.backendType}
	logger.L().Info("renderer initialized",
		zap.Stringer("backend", r.backendType),
		zap.Int("width", r.width),
		zap.Int("height", r.height),
	)
	return nil
}

func (r *renderer) SetGltf(ctx context.Context, sc scene.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}

	if r.loaded {
		r.backend.Unload()
		r.loaded = false
	}

	stats, err := r.backend.Load(ctx, sc, r.light.Count())
	if err != nil {
		r.backend.Unload()
		return fmt.Errorf("failed to load scene %q: %w", sc.Name(), err)
	}
	r.loaded = true

	stats.Backend = r.backendType
	stats.Frames = r.stats.Frames
	r.stats = stats

	if lo, hi, ok := sc.Bounds(); ok {
		r.camera.Frame(lo, hi)
	}
	return nil
}

func (r *renderer) OnResize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	r.width, r.height = width, height
	r.camera.SetAspect(float32(width) / float32(height))
	if r.initialized {
		r.backend.Resize(width, height)
	}
}

func (r *renderer) OnFrame(timestamp time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	if r.width <= 0 || r.height <= 0 {
		return nil
	}

	r.camera.Update()
	draws, err := r.backend.Render(r.frameUniforms())
	if err != nil {
		return fmt.Errorf("frame at %s: %w", timestamp, err)
	}
	r.stats.DrawCalls = draws
	r.stats.Frames++
	return nil
}

// frameUniforms builds the per-frame block from the camera and light. A disabled light keeps
// its color but contributes no intensity.
func (r *renderer) frameUniforms() frame.GPUFrameUniforms {
	intensity := r.light.Intensity()
	if !r.light.Enabled() {
		intensity = 0
	}
	return frame.GPUFrameUniforms{
		Projection:     r.camera.ProjectionMatrix(),
		View:           r.camera.ViewMatrix(),
		CameraPosition: r.camera.Position(),
		LightDirection: r.light.Direction(),
		LightColor:     r.light.Color(),
		LightIntensity: intensity,
	}
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Camera() camera.Camera {
	return r.camera
}

func (r *renderer) Light() light.Light {
	return r.light
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		r.backend.Unload()
		r.loaded = false
	}
	if r.initialized {
		r.backend.Release()
		r.initialized = false
	}
}
