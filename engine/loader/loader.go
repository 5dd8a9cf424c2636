package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"go.uber.org/zap"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	sceneCache map[string]scene.Scene
	sceneOpts  []scene.SceneBuilderOption

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching glTF scenes.
// It abstracts the file format behind a backend and manages a cache of previously loaded scenes.
type Loader interface {
	// Load imports a .gltf or .glb file and caches the flattened scene by its path.
	// If the scene is already cached, the cached version is returned.
	// External buffers and images are resolved relative to the file's directory.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - scene.Scene: the loaded and cached scene
	//   - error: error if reading, parsing or flattening fails
	Load(path string) (scene.Scene, error)

	// LoadReader imports a self-contained glTF stream (GLB, or glTF with data URIs) and caches it
	// by the given name.
	//
	// Parameters:
	//   - name: the cache key and scene name
	//   - r: the reader providing model data
	//   - baseDir: the directory images with relative URIs are resolved against
	//
	// Returns:
	//   - scene.Scene: the loaded and cached scene
	//   - error: error if decoding or flattening fails
	LoadReader(name string, r io.Reader, baseDir string) (scene.Scene, error)

	// Scene retrieves a cached scene.
	//
	// Parameters:
	//   - key: the cache key (path or name)
	//
	// Returns:
	//   - scene.Scene: the cached scene, or nil
	//   - bool: true if the key was cached
	Scene(key string) (scene.Scene, bool)

	// Evict removes a scene from the cache.
	//
	// Parameters:
	//   - key: the cache key (path or name)
	Evict(key string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader for the given backend type.
//
// Parameters:
//   - backendType: the file format backend
//   - opts: LoaderBuilderOption functions
//
// Returns:
//   - Loader: the loader
func NewLoader(backendType LoaderBackendType, opts ...LoaderBuilderOption) Loader {
	l := &loader{
		sceneCache: make(map[string]scene.Scene),
	}

	switch backendType {
	case BackendTypeGLTF:
		fallthrough
	default:
		l.backend = newGLTFLoaderBackend()
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load is a convenience wrapper that loads a file with a fresh glTF loader.
//
// Parameters:
//   - path: the .gltf or .glb file path
//   - opts: options forwarded to scene construction
//
// Returns:
//   - scene.Scene: the flattened scene
//   - error: error if loading fails
func Load(path string, opts ...scene.SceneBuilderOption) (scene.Scene, error) {
	return NewLoader(BackendTypeGLTF, WithSceneOptions(opts...)).Load(path)
}

// LoadReader is a convenience wrapper that decodes a stream with a fresh glTF loader.
//
// Parameters:
//   - name: the scene name
//   - r: the reader providing model data
//   - opts: options forwarded to scene construction
//
// Returns:
//   - scene.Scene: the flattened scene
//   - error: error if loading fails
func LoadReader(name string, r io.Reader, opts ...scene.SceneBuilderOption) (scene.Scene, error) {
	return NewLoader(BackendTypeGLTF, WithSceneOptions(opts...)).LoadReader(name, r, "")
}

func (l *loader) Load(path string) (scene.Scene, error) {
	if s, ok := l.Scene(path); ok {
		return s, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("unsupported model file extension %q", filepath.Ext(path))
	}

	doc, err := l.backend.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	opts := append([]scene.SceneBuilderOption{scene.WithName(name), scene.WithBaseDir(filepath.Dir(path))}, l.sceneOpts...)
	s, err := scene.NewScene(doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene from %s: %w", path, err)
	}

	l.store(path, s)
	logger.L().Info("loaded glTF", zap.String("path", path), zap.Int("primitives", len(s.Primitives())))
	return s, nil
}

func (l *loader) LoadReader(name string, r io.Reader, baseDir string) (scene.Scene, error) {
	if s, ok := l.Scene(name); ok {
		return s, nil
	}

	doc, err := l.backend.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	opts := append([]scene.SceneBuilderOption{scene.WithName(name), scene.WithBaseDir(baseDir)}, l.sceneOpts...)
	s, err := scene.NewScene(doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene %s: %w", name, err)
	}

	l.store(name, s)
	return s, nil
}

func (l *loader) Scene(key string) (scene.Scene, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.sceneCache[key]
	return s, ok
}

func (l *loader) Evict(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sceneCache, key)
}

func (l *loader) store(key string, s scene.Scene) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sceneCache[key] = s
}
