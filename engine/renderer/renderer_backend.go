package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
)

var (
	// ErrBackendUnavailable is returned by Init when no adapter, device or GL context can be
	// acquired.
	ErrBackendUnavailable = errors.New("renderer backend unavailable")

	// ErrNotInitialized is returned when a scene is loaded or a frame rendered before Init.
	ErrNotInitialized = errors.New("renderer not initialized")
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeGL selects the OpenGL 3.3 core rendering backend.
	BackendTypeGL
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeGL:
		return "gl"
	default:
		return fmt.Sprintf("backend(%d)", int(t))
	}
}

// ParseBackendType maps a backend name to its type. Accepted names are "wgpu", "webgpu", "gl"
// and "opengl", case-insensitive.
//
// Parameters:
//   - name: the backend name
//
// Returns:
//   - RendererBackendType: the backend type
//   - error: an error if the name is unknown
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	case "gl", "opengl":
		return BackendTypeGL, nil
	default:
		return 0, fmt.Errorf("unknown renderer backend %q", name)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent. The GL
// backend requests the count as a default framebuffer hint when the window is created.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Stats is a snapshot of the renderer's caches and counters.
type Stats struct {
	Backend RendererBackendType
	// Primitives is the number of primitives in the draw plan.
	Primitives int
	// Dropped is the number of primitives left out for unsupported data.
	Dropped   int
	Variants  int
	Pipelines int
	Materials int
	Textures  int
	// DrawCalls is the number of draws issued by the last frame.
	DrawCalls int
	// Frames is the number of frames rendered since Init.
	Frames uint64
}

// RendererBackend is the per-API half of the Renderer. Each implementation owns its device,
// its caches and the scene resources, and renders a recorded draw plan.
type RendererBackend interface {
	// Init acquires the device or context and creates the scene-independent resources: fixed
	// layouts, the frame uniform buffer and the placeholder textures.
	//
	// Parameters:
	//   - ctx: cancels adapter and device acquisition
	//
	// Returns:
	//   - error: ErrBackendUnavailable wrapped with the cause, or a resource creation error
	Init(ctx context.Context) error

	// Load builds every GPU object the scene needs and records its draw plan. Resources of a
	// previously loaded scene must be released with Unload first.
	//
	// Parameters:
	//   - ctx: cancels texture decoding
	//   - sc: the scene
	//   - lightCount: the LIGHT_COUNT of every shader variant
	//
	// Returns:
	//   - Stats: the cache sizes after the load
	//   - error: a fatal load error (shader compile, resource creation)
	Load(ctx context.Context, sc scene.Scene, lightCount int) (Stats, error)

	// Unload releases the resources of the loaded scene. Safe to call when nothing is loaded.
	Unload()

	// Resize rebuilds the size-dependent attachments.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	Resize(width, height int)

	// Render writes the frame uniforms once, replays the draw plan and presents.
	//
	// Parameters:
	//   - u: the frame uniforms
	//
	// Returns:
	//   - int: the number of draws issued
	//   - error: a surface or submission error
	Render(u frame.GPUFrameUniforms) (int, error)

	// SetPresentMode changes the present mode; applied at the next Resize.
	//
	// Parameters:
	//   - mode: the present mode
	SetPresentMode(mode PresentMode)

	// Release tears down the scene and device resources.
	Release()
}
