package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gltfview.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, renderer.BackendTypeWGPU, cfg.BackendType())
	assert.Len(t, cfg.RendererOptions(), 7)
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
backend = "opengl"

[render]
msaa = 8
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, renderer.BackendTypeGL, cfg.BackendType())
	assert.Equal(t, 8, cfg.Render.MSAA)
	assert.True(t, cfg.Render.VSync)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[render]
msaa = 4
shadows = true
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "shadows")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := LoadConfig("gltfview.toml")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Render.Workers)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"backend": func(c *Config) { c.Backend = "vulkan" },
		"size":    func(c *Config) { c.Window.Height = 0 },
		"msaa":    func(c *Config) { c.Render.MSAA = 2 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
backend = "gl"

[window]
width = 800
height = 600

[render]
vsync = true
`)
	cfg, model, err := parseArgs([]string{"-config", path, "-width", "1024", "-vsync=false", "scene.glb"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "scene.glb", model)
	assert.Equal(t, renderer.BackendTypeGL, cfg.BackendType())
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.False(t, cfg.Render.VSync)
	// Unset flags keep the file and default values.
	assert.True(t, cfg.Render.Mipmaps)
}

func TestParseArgsErrors(t *testing.T) {
	_, _, err := parseArgs([]string{}, io.Discard)
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"-msaa", "3", "a.gltf"}, io.Discard)
	assert.ErrorContains(t, err, "msaa")

	_, _, err = parseArgs([]string{"-backend", "dx12", "a.gltf"}, io.Discard)
	assert.Error(t, err)
}
