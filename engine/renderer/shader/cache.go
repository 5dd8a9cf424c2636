package shader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"go.uber.org/zap"
)

// ErrCompile is returned, wrapped, when a variant fails to expand or compile.
var ErrCompile = errors.New("shader variant compilation failed")

// CompileFunc turns expanded vertex and fragment sources into a backend shader object
// (a WebGPU shader module, a linked GL program).
type CompileFunc[M any] func(flags Flags, vertex, fragment string) (M, error)

// Variant is one compiled shader variant.
type Variant[M any] struct {
	// Flags is the key the variant was compiled for.
	Flags Flags
	// Module is the backend shader object.
	Module M
}

// cache is the implementation of the Cache interface.
type cache[M any] struct {
	mu       *sync.Mutex
	sources  Sources
	compile  CompileFunc[M]
	pp       PreProcessor
	variants map[Flags]*Variant[M]
	order    []*Variant[M]
}

// Cache is a content-addressed store of compiled shader variants. The flags are the identity: a
// variant is compiled the first time its flags are requested and shared by every later request.
type Cache[M any] interface {
	// Variant returns the variant for flags, compiling it on first use.
	// A failed compile is returned wrapped in ErrCompile and is not cached.
	//
	// Parameters:
	//   - flags: the variant key
	//
	// Returns:
	//   - *Variant[M]: the shared variant; identical flags always yield the same pointer
	//   - error: a wrapped ErrCompile if expansion or compilation failed
	Variant(flags Flags) (*Variant[M], error)

	// Len returns the number of compiled variants.
	Len() int

	// Variants returns every compiled variant in compile order.
	Variants() []*Variant[M]
}

var _ Cache[int] = &cache[int]{}

// NewCache creates an empty variant cache over the given sources.
//
// Parameters:
//   - sources: the unexpanded shader sources
//   - compile: the backend compile function
//
// Returns:
//   - Cache[M]: the variant cache
func NewCache[M any](sources Sources, compile CompileFunc[M]) Cache[M] {
	return &cache[M]{
		mu:       &sync.Mutex{},
		sources:  sources,
		compile:  compile,
		pp:       NewPreProcessor(),
		variants: make(map[Flags]*Variant[M]),
	}
}

func (c *cache[M]) Variant(flags Flags) (*Variant[M], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.variants[flags]; ok {
		return v, nil
	}

	defines := flags.Defines()
	vertex, err := c.pp.Process(c.sources.Vertex, defines)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: vertex: %w", ErrCompile, flags, err)
	}
	fragment := vertex
	if c.sources.Fragment != c.sources.Vertex {
		fragment, err = c.pp.Process(c.sources.Fragment, defines)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: fragment: %w", ErrCompile, flags, err)
		}
	}

	module, err := c.compile(flags, vertex, fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, flags, err)
	}

	v := &Variant[M]{Flags: flags, Module: module}
	c.variants[flags] = v
	c.order = append(c.order, v)
	logger.L().Debug("compiled shader variant", zap.Stringer("flags", flags), zap.Int("variants", len(c.order)))
	return v, nil
}

func (c *cache[M]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *cache[M]) Variants() []*Variant[M] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Variant[M], len(c.order))
	copy(out, c.order)
	return out
}
