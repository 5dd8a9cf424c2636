package loader

import (
	"io"

	"github.com/qmuntal/gltf"
)

// loaderBackend defines the generic interface for reading glTF documents from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Open reads and parses the document at path, loading external buffers.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *gltf.Document: the parsed document
	//   - error: error if loading fails
	Open(path string) (*gltf.Document, error)

	// Decode parses a document from a stream.
	//
	// Parameters:
	//   - r: the reader providing glTF JSON or GLB data
	//
	// Returns:
	//   - *gltf.Document: the parsed document
	//   - error: error if decoding fails
	Decode(r io.Reader) (*gltf.Document, error)
}
