package scene

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the display name of the scene, overriding the glTF scene name.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithBaseDir sets the directory external buffer and image URIs are resolved against.
//
// Parameters:
//   - dir: the base directory, usually the directory of the .gltf file
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBaseDir(dir string) SceneBuilderOption {
	return func(s *scene) {
		s.baseDir = dir
	}
}

// WithSceneIndex selects which glTF scene to flatten instead of the document default.
//
// Parameters:
//   - index: the index into the document's scenes
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSceneIndex(index int) SceneBuilderOption {
	return func(s *scene) {
		s.sceneIndex = &index
	}
}
