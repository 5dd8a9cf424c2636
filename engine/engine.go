package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"go.uber.org/zap"
)

// KeyEscape is the GLFW key code that quits the viewer.
const KeyEscape uint32 = 256

// engine implements the Engine interface.
// Drives the renderer from the window's message loop on the calling thread.
type engine struct {
	window   window.Window
	renderer renderer.Renderer
	input    *orbitInput

	profiler         profiler.Profiler
	profilingEnabled bool

	renderCallback   func(deltaTime float32)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	start      time.Time
	lastRender time.Time
	err        error

	quit         chan struct{}
	quitOnce     sync.Once
	shutdownOnce sync.Once
}

// Engine is the main entry point of the viewer.
// It wires window input to the camera and renders one frame per message loop iteration.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer the engine drives.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run renders until the window closes, ctx is cancelled or Quit is called, then releases the
	// renderer and closes the window. It must be called from the thread that created the window.
	//
	// Parameters:
	//   - ctx: stops the loop when cancelled
	//
	// Returns:
	//   - error: the frame error that stopped the loop, if any
	Run(ctx context.Context) error

	// Quit stops the loop at the next iteration.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine for an initialized renderer and its window.
//
// Parameters:
//   - win: the window the renderer draws into
//   - r: the renderer
//   - options: functional options for engine configuration (profiling, frame limit)
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the window or renderer is nil
func NewEngine(win window.Window, r renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	if win == nil || r == nil {
		return nil, errors.New("engine needs a window and a renderer")
	}

	e := &engine{
		window:   win,
		renderer: r,
		input:    newOrbitInput(r.Camera()),
		quit:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithFields(e.rendererFields))
	}

	win.SetResizeCallback(r.OnResize)
	win.SetMouseButtonCallback(e.input.mouseButton)
	win.SetMouseMoveCallback(e.input.mouseMove)
	win.SetScrollCallback(e.input.scroll)
	win.SetKeyDownCallback(func(keyCode uint32) {
		if keyCode == KeyEscape {
			e.Quit()
		}
	})
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run(ctx context.Context) error {
	e.start = time.Now()
	e.lastRender = e.start
	e.profiler.Reset(e.start)

	e.window.SetUpdateCallback(func() {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case <-e.quit:
			e.shutdown()
			return
		default:
		}
		if err := e.frame(); err != nil {
			e.err = err
			e.shutdown()
		}
	})
	e.window.ProcessMessages()

	// The loop also ends when the user closes the window.
	e.shutdown()
	return e.err
}

// frame renders one frame and applies the frame limit.
func (e *engine) frame() error {
	now := time.Now()
	dt := float32(now.Sub(e.lastRender).Seconds())
	e.lastRender = now

	if err := e.renderer.OnFrame(now.Sub(e.start)); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.profilingEnabled {
		e.profiler.Tick(now)
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return nil
}

// shutdown releases the renderer while its context is alive, then closes the window.
func (e *engine) shutdown() {
	e.shutdownOnce.Do(func() {
		e.renderer.Release()
		if err := e.window.Close(); err != nil {
			logger.L().Warn("failed to close window", zap.Error(err))
		}
	})
}

func (e *engine) rendererFields() []zap.Field {
	s := e.renderer.Stats()
	return []zap.Field{
		zap.Stringer("backend", s.Backend),
		zap.Int("draw_calls", s.DrawCalls),
		zap.Int("primitives", s.Primitives),
		zap.Int("pipelines", s.Pipelines),
		zap.Uint64("frames", s.Frames),
	}
}

// Quit stops the loop at the next iteration.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quit)
	})
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
