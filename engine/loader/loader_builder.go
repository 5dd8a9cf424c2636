package loader

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithSceneOptions appends options applied to every scene the Loader builds. They run after the
// loader's own name and base directory options, so they can override them.
//
// Parameters:
//   - opts: scene options
//
// Returns:
//   - LoaderBuilderOption: a function that applies the scene options to a loader
func WithSceneOptions(opts ...scene.SceneBuilderOption) LoaderBuilderOption {
	return func(l *loader) {
		l.sceneOpts = append(l.sceneOpts, opts...)
	}
}

// WithScene is an option builder that pre-populates the scene cache.
//
// Parameters:
//   - key: the cache key for the scene
//   - s: the scene to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the scene option to a loader
func WithScene(key string, s scene.Scene) LoaderBuilderOption {
	return func(l *loader) {
		l.sceneCache[key] = s
	}
}
