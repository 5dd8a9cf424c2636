package pipeline

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"go.uber.org/zap"
)

// ID identifies a cached pipeline. IDs are dense and assigned in creation order.
type ID int

// CreateFunc builds the backend pipeline object for a key.
type CreateFunc[P any] func(key Key) (P, error)

// Group is one material bucket of a pipeline: the material and the primitives drawn with it, in
// registration order.
type Group struct {
	Material   int
	Primitives []int
}

type entry[P any] struct {
	key      Key
	pipeline P
	groups   []Group
	// byMaterial maps a material id to its position in groups.
	byMaterial map[int]int
}

// cache is the implementation of the Cache interface.
type cache[P any] struct {
	mu         *sync.Mutex
	entries    []*entry[P]
	byKey      map[Key]ID
	opaque     []ID
	blended    []ID
	registered map[int]ID
}

// Cache deduplicates backend pipelines by Key and owns the ordered pipeline -> material ->
// primitive index the draw plan is recorded from.
type Cache[P any] interface {
	// Pipeline returns the pipeline for key, calling create exactly once per distinct key. New
	// pipelines are appended to the opaque or blended list in first-seen order.
	//
	// Parameters:
	//   - key: the pipeline identity
	//   - create: builds the backend object on a miss
	//
	// Returns:
	//   - ID: the pipeline id
	//   - P: the backend pipeline
	//   - error: the create error, in which case nothing is cached
	Pipeline(key Key, create CreateFunc[P]) (ID, P, error)

	// Register places a primitive in the material bucket of a pipeline. A primitive can be
	// registered once.
	//
	// Parameters:
	//   - id: the pipeline id
	//   - material: the material id
	//   - primitive: the primitive id
	//
	// Returns:
	//   - error: if the pipeline is unknown or the primitive is already registered
	Register(id ID, material, primitive int) error

	// Opaque returns the opaque pipelines in first-seen order.
	Opaque() []ID

	// Blended returns the blended pipelines in first-seen order.
	Blended() []ID

	// Get returns the backend pipeline for id.
	Get(id ID) (P, bool)

	// Key returns the key a pipeline was created for.
	Key(id ID) (Key, bool)

	// Groups returns the material buckets of a pipeline, materials in first-registered order.
	Groups(id ID) []Group

	// Len returns the number of pipelines.
	Len() int

	// Each calls fn for every pipeline in creation order.
	Each(fn func(id ID, key Key, p P))
}

var _ Cache[int] = &cache[int]{}

// NewCache creates an empty pipeline cache.
//
// Returns:
//   - Cache[P]: the pipeline cache
func NewCache[P any]() Cache[P] {
	return &cache[P]{
		mu:         &sync.Mutex{},
		byKey:      make(map[Key]ID),
		registered: make(map[int]ID),
	}
}

func (c *cache[P]) Pipeline(key Key, create CreateFunc[P]) (ID, P, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byKey[key]; ok {
		return id, c.entries[id].pipeline, nil
	}

	p, err := create(key)
	if err != nil {
		var zero P
		return -1, zero, fmt.Errorf("failed to create pipeline %s: %w", key, err)
	}

	id := ID(len(c.entries))
	c.entries = append(c.entries, &entry[P]{
		key:        key,
		pipeline:   p,
		byMaterial: make(map[int]int),
	})
	c.byKey[key] = id
	if key.Blended() {
		c.blended = append(c.blended, id)
	} else {
		c.opaque = append(c.opaque, id)
	}

	logger.L().Debug("pipeline cache miss", zap.Int("id", int(id)), zap.Stringer("key", key))
	return id, p, nil
}

func (c *cache[P]) Register(id ID, material, primitive int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id < 0 || int(id) >= len(c.entries) {
		return fmt.Errorf("unknown pipeline %d", id)
	}
	if prev, ok := c.registered[primitive]; ok {
		return fmt.Errorf("primitive %d already registered with pipeline %d", primitive, prev)
	}

	e := c.entries[id]
	gi, ok := e.byMaterial[material]
	if !ok {
		gi = len(e.groups)
		e.groups = append(e.groups, Group{Material: material})
		e.byMaterial[material] = gi
	}
	e.groups[gi].Primitives = append(e.groups[gi].Primitives, primitive)
	c.registered[primitive] = id
	return nil
}

func (c *cache[P]) Opaque() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ID(nil), c.opaque...)
}

func (c *cache[P]) Blended() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ID(nil), c.blended...)
}

func (c *cache[P]) Get(id ID) (P, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id < 0 || int(id) >= len(c.entries) {
		var zero P
		return zero, false
	}
	return c.entries[id].pipeline, true
}

func (c *cache[P]) Key(id ID) (Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id < 0 || int(id) >= len(c.entries) {
		return Key{}, false
	}
	return c.entries[id].key, true
}

func (c *cache[P]) Groups(id ID) []Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id < 0 || int(id) >= len(c.entries) {
		return nil
	}
	groups := make([]Group, len(c.entries[id].groups))
	for i, g := range c.entries[id].groups {
		groups[i] = Group{Material: g.Material, Primitives: append([]int(nil), g.Primitives...)}
	}
	return groups
}

func (c *cache[P]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache[P]) Each(fn func(id ID, key Key, p P)) {
	c.mu.Lock()
	entries := append([]*entry[P](nil), c.entries...)
	c.mu.Unlock()
	for i, e := range entries {
		fn(ID(i), e.key, e.pipeline)
	}
}
