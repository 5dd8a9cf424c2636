package renderer

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.msaa = count
	}
}

// WithMipmaps toggles mip chain generation for scene textures. Enabled by default.
//
// Parameters:
//   - enabled: true to generate mip chains
//
// Returns:
//   - RendererBuilderOption: a function that applies the mipmap option to a renderer
func WithMipmaps(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.mipmaps = enabled
	}
}

// WithClearColor sets the color the frame is cleared to before drawing.
//
// Parameters:
//   - color: linear RGBA clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(color [4]float64) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.clearColor = color
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Ignored by the GL backend.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.forceFallbackAdapter = force
	}
}

// WithWorkers sets the number of texture decode workers used while loading a scene.
//
// Parameters:
//   - n: the worker count, values below 1 use the binder default
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker option to a renderer
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.workers = n
	}
}

// WithCamera replaces the default orbit camera.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(c camera.Camera) RendererBuilderOption {
	return func(r *renderer) {
		r.camera = c
	}
}

// WithLight replaces the default directional light.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - RendererBuilderOption: a function that applies the light option to a renderer
func WithLight(l light.Light) RendererBuilderOption {
	return func(r *renderer) {
		r.light = l
	}
}

// WithBackend supplies a ready backend instead of creating one for the backend type.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(b RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = b
	}
}
