package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// Config is the viewer configuration read from a TOML file.
type Config struct {
	Backend string       `toml:"backend"`
	Window  WindowConfig `toml:"window"`
	Render  RenderConfig `toml:"render"`
	Light   LightConfig  `toml:"light"`
	Log     LogConfig    `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type RenderConfig struct {
	// MSAA is the sample count: 1, 4, 8 or 16.
	MSAA       int        `toml:"msaa"`
	VSync      bool       `toml:"vsync"`
	Mipmaps    bool       `toml:"mipmaps"`
	Workers    int        `toml:"workers"`
	ClearColor [4]float64 `toml:"clear_color"`
	// Software forces the WebGPU fallback adapter.
	Software bool `toml:"software"`
	// FrameLimit caps the frame rate; 0 is uncapped.
	FrameLimit float64 `toml:"frame_limit"`
}

type LightConfig struct {
	Enabled   bool       `toml:"enabled"`
	Direction [3]float32 `toml:"direction"`
	Color     [3]float32 `toml:"color"`
	Intensity float32    `toml:"intensity"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	Profile bool   `toml:"profile"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Backend: "wgpu",
		Window: WindowConfig{
			Title:  "oxy-gltf",
			Width:  1280,
			Height: 720,
		},
		Render: RenderConfig{
			MSAA:       4,
			VSync:      true,
			Mipmaps:    true,
			ClearColor: [4]float64{0.1, 0.1, 0.1, 1},
		},
		Light: LightConfig{
			Enabled:   true,
			Direction: light.DefaultDirection,
			Color:     [3]float32{1, 1, 1},
			Intensity: 3,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads a TOML file over the defaults. Keys missing from the file keep their default;
// unknown keys are an error.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the merged configuration
//   - error: an error if the file cannot be read or decoded
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be fixed up silently.
func (c Config) Validate() error {
	if _, err := renderer.ParseBackendType(c.Backend); err != nil {
		return err
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	switch renderer.MSAASampleCount(c.Render.MSAA) {
	case renderer.MSAAOff, renderer.MSAA4x, renderer.MSAA8x, renderer.MSAA16x:
	default:
		return fmt.Errorf("msaa %d must be 1, 4, 8 or 16", c.Render.MSAA)
	}
	return nil
}

// BackendType returns the parsed backend; call Validate first.
func (c Config) BackendType() renderer.RendererBackendType {
	t, _ := renderer.ParseBackendType(c.Backend)
	return t
}

// RendererOptions converts the render and light sections to renderer options.
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	mode := renderer.PresentModeUncapped
	if c.Render.VSync {
		mode = renderer.PresentModeVSync
	}
	l := light.NewLight(
		light.WithDirection(mgl32.Vec3(c.Light.Direction)),
		light.WithColor(mgl32.Vec3(c.Light.Color)),
		light.WithIntensity(c.Light.Intensity),
		light.WithEnabled(c.Light.Enabled),
	)
	return []renderer.RendererBuilderOption{
		renderer.WithMSAA(renderer.MSAASampleCount(c.Render.MSAA)),
		renderer.WithPresentMode(mode),
		renderer.WithMipmaps(c.Render.Mipmaps),
		renderer.WithWorkers(c.Render.Workers),
		renderer.WithClearColor(c.Render.ClearColor),
		renderer.WithForceSoftwareRenderer(c.Render.Software),
		renderer.WithLight(l),
	}
}
