package material

import (
	"fmt"
	"sync"

	"github.com/qmuntal/gltf"
)

// BuildFunc builds the backend binding of a material: a WebGPU bind group, a GL texture-unit set.
type BuildFunc[B any] func(m Material) (B, error)

type tableEntry[B any] struct {
	binding B
	bound   bool
}

// table is the implementation of the Table interface.
type table[B any] struct {
	mu        *sync.Mutex
	doc       *gltf.Document
	materials map[int]Material
	entries   map[int]*tableEntry[B]
	order     []int
}

// Table caches one Material view and one backend binding per material index.
type Table[B any] interface {
	// Material returns the Material view of a material index, built once.
	//
	// Parameters:
	//   - id: the material index or scene.DefaultMaterial
	//
	// Returns:
	//   - Material: the material view
	Material(id int) Material

	// Bind returns the backend binding of a material, calling build the first time it is requested.
	// A failed build is returned and not cached.
	//
	// Parameters:
	//   - id: the material index or scene.DefaultMaterial
	//   - build: creates the binding
	//
	// Returns:
	//   - B: the binding
	//   - error: the build error
	Bind(id int, build BuildFunc[B]) (B, error)

	// Get returns a binding already built by Bind.
	Get(id int) (B, bool)

	// Len returns the number of bound materials.
	Len() int

	// Each calls fn for every bound material in bind order.
	Each(fn func(id int, binding B))
}

var _ Table[int] = &table[int]{}

// NewTable creates an empty material table over a document.
//
// Parameters:
//   - doc: the document whose materials are bound
//
// Returns:
//   - Table[B]: the material table
func NewTable[B any](doc *gltf.Document) Table[B] {
	return &table[B]{
		mu:        &sync.Mutex{},
		doc:       doc,
		materials: make(map[int]Material),
		entries:   make(map[int]*tableEntry[B]),
	}
}

func (t *table[B]) Material(id int) Material {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.material(id)
}

func (t *table[B]) material(id int) Material {
	if m, ok := t.materials[id]; ok {
		return m
	}
	m := FromGLTF(t.doc, id)
	t.materials[id] = m
	return m
}

func (t *table[B]) Bind(id int, build BuildFunc[B]) (B, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok && e.bound {
		return e.binding, nil
	}

	b, err := build(t.material(id))
	if err != nil {
		var zero B
		return zero, fmt.Errorf("failed to bind material %d: %w", id, err)
	}
	t.entries[id] = &tableEntry[B]{binding: b, bound: true}
	t.order = append(t.order, id)
	return b, nil
}

func (t *table[B]) Get(id int) (B, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		var zero B
		return zero, false
	}
	return e.binding, true
}

func (t *table[B]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

func (t *table[B]) Each(fn func(id int, binding B)) {
	t.mu.Lock()
	order := append([]int(nil), t.order...)
	entries := make([]B, len(order))
	for i, id := range order {
		entries[i] = t.entries[id].binding
	}
	t.mu.Unlock()

	for i, id := range order {
		fn(id, entries[i])
	}
}
