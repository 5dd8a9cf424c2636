package pipeline

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
)

// KeyBuilderOption is a functional option used to configure a Key during construction.
type KeyBuilderOption func(*Key)

// NewKey creates a pipeline Key for a shader variant. Unset fields default to an opaque,
// back-face culled, non-indexed triangle list with an empty vertex layout.
//
// Parameters:
//   - flags: the shader variant flags
//   - opts: KeyBuilderOption functions
//
// Returns:
//   - Key: the pipeline key
func NewKey(flags shader.Flags, opts ...KeyBuilderOption) Key {
	k := Key{
		Flags:    flags,
		Topology: TopologyTriangleList,
		Cull:     CullModeBack,
		Blend:    BlendModeOpaque,
		Index:    IndexFormatNone,
	}
	for _, opt := range opts {
		opt(&k)
	}
	return k
}

// WithTopology sets the primitive topology.
//
// Parameters:
//   - t: the topology
//
// Returns:
//   - KeyBuilderOption: a function that sets the topology
func WithTopology(t Topology) KeyBuilderOption {
	return func(k *Key) {
		k.Topology = t
	}
}

// WithDoubleSided disables back-face culling when doubleSided is true.
//
// Parameters:
//   - doubleSided: the material's double-sided flag
//
// Returns:
//   - KeyBuilderOption: a function that sets the cull mode
func WithDoubleSided(doubleSided bool) KeyBuilderOption {
	return func(k *Key) {
		if doubleSided {
			k.Cull = CullModeNone
		} else {
			k.Cull = CullModeBack
		}
	}
}

// WithBlend enables alpha blending when blended is true.
//
// Parameters:
//   - blended: whether the material uses alpha blending
//
// Returns:
//   - KeyBuilderOption: a function that sets the blend mode
func WithBlend(blended bool) KeyBuilderOption {
	return func(k *Key) {
		if blended {
			k.Blend = BlendModeAlpha
		} else {
			k.Blend = BlendModeOpaque
		}
	}
}

// WithVertexLayout sets the vertex buffer layout.
//
// Parameters:
//   - layout: the vertex layout
//
// Returns:
//   - KeyBuilderOption: a function that sets the layout
func WithVertexLayout(layout VertexLayout) KeyBuilderOption {
	return func(k *Key) {
		k.Layout = layout
	}
}

// WithIndexFormat sets the index format.
//
// Parameters:
//   - f: the index format
//
// Returns:
//   - KeyBuilderOption: a function that sets the index format
func WithIndexFormat(f IndexFormat) KeyBuilderOption {
	return func(k *Key) {
		k.Index = f
	}
}
