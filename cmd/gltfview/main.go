// Command gltfview opens a glTF 2.0 file in a window and renders it with physically based
// shading through the WebGPU or OpenGL backend.
//
//	gltfview [-config gltfview.toml] [-backend wgpu|gl] [flags] model.gltf
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/Carmen-Shannon/oxy-gltf/engine"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"go.uber.org/zap"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg, model, err := parseArgs(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "gltfview:", err)
		os.Exit(2)
	}
	if err := run(cfg, model); err != nil {
		fmt.Fprintln(os.Stderr, "gltfview:", err)
		os.Exit(1)
	}
}

// parseArgs reads the config file named by -config, then applies the flags that were set on
// the command line over it.
func parseArgs(args []string, output io.Writer) (Config, string, error) {
	fs := flag.NewFlagSet("gltfview", flag.ContinueOnError)
	fs.SetOutput(output)

	configPath := fs.String("config", "", "TOML config file")
	backend := fs.String("backend", "", "renderer backend: wgpu or gl")
	width := fs.Int("width", 0, "window width in pixels")
	height := fs.Int("height", 0, "window height in pixels")
	msaa := fs.Int("msaa", 0, "MSAA sample count: 1, 4, 8 or 16")
	vsync := fs.Bool("vsync", true, "wait for vertical blank")
	mipmaps := fs.Bool("mipmaps", true, "generate texture mip chains")
	software := fs.Bool("software", false, "force the WebGPU fallback adapter")
	level := fs.String("log", "", "log level: debug, info, warn or error")
	profile := fs.Bool("profile", false, "log frame and memory statistics every second")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: gltfview [flags] model.gltf")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return Config{}, "", fmt.Errorf("expected one model path, got %d arguments", fs.NArg())
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			return Config{}, "", err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "width":
			cfg.Window.Width = *width
		case "height":
			cfg.Window.Height = *height
		case "msaa":
			cfg.Render.MSAA = *msaa
		case "vsync":
			cfg.Render.VSync = *vsync
		case "mipmaps":
			cfg.Render.Mipmaps = *mipmaps
		case "software":
			cfg.Render.Software = *software
		case "log":
			cfg.Log.Level = *level
		case "profile":
			cfg.Log.Profile = *profile
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, fs.Arg(0), nil
}

func run(cfg Config, model string) error {
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLogger(log)
	defer log.Sync()

	sc, err := loader.Load(model)
	if err != nil {
		return err
	}

	backend := cfg.BackendType()
	api := window.ClientAPINone
	if backend == renderer.BackendTypeGL {
		api = window.ClientAPIOpenGL
	}
	win, err := window.NewWindow(
		window.WithTitle(fmt.Sprintf("%s - %s (%s)", cfg.Window.Title, sc.Name(), backend)),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
		window.WithClientAPI(api),
		window.WithSamples(cfg.Render.MSAA),
	)
	if err != nil {
		return err
	}

	r, err := renderer.NewRenderer(backend, win, cfg.RendererOptions()...)
	if err != nil {
		win.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := r.Init(ctx); err != nil {
		win.Close()
		return err
	}
	if err := r.SetGltf(ctx, sc); err != nil {
		r.Release()
		win.Close()
		return err
	}

	stats := r.Stats()
	logger.L().Info("scene loaded",
		zap.String("model", model),
		zap.Stringer("backend", stats.Backend),
		zap.Int("primitives", stats.Primitives),
		zap.Int("dropped", stats.Dropped),
		zap.Int("variants", stats.Variants),
		zap.Int("pipelines", stats.Pipelines),
		zap.Int("materials", stats.Materials),
		zap.Int("textures", stats.Textures),
	)

	eng, err := engine.NewEngine(win, r,
		engine.WithProfiling(cfg.Log.Profile),
		engine.WithRenderFrameLimit(cfg.Render.FrameLimit),
	)
	if err != nil {
		r.Release()
		win.Close()
		return err
	}
	return eng.Run(ctx)
}
