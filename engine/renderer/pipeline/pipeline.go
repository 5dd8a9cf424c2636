package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/qmuntal/gltf"
)

var (
	// ErrUnsupportedTopology is returned for glTF draw modes no backend renders (line loop,
	// triangle fan). Primitives with these modes are dropped, not fatal.
	ErrUnsupportedTopology = errors.New("unsupported primitive topology")

	// ErrUnsupportedVertexFormat is returned for attribute or index data a backend cannot bind
	// directly. Primitives with such data are dropped, not fatal.
	ErrUnsupportedVertexFormat = errors.New("unsupported vertex format")
)

// Topology is the primitive assembly mode of a pipeline.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

// IsStrip reports whether the topology is a strip, which on explicit APIs needs the index format
// baked into the pipeline.
func (t Topology) IsStrip() bool {
	return t == TopologyTriangleStrip || t == TopologyLineStrip
}

func (t Topology) String() string {
	switch t {
	case TopologyTriangleList:
		return "triangle-list"
	case TopologyTriangleStrip:
		return "triangle-strip"
	case TopologyLineList:
		return "line-list"
	case TopologyLineStrip:
		return "line-strip"
	case TopologyPointList:
		return "point-list"
	default:
		return fmt.Sprintf("topology(%d)", int(t))
	}
}

// TopologyFromMode maps a glTF draw mode to a Topology.
//
// Parameters:
//   - mode: the glTF primitive mode
//
// Returns:
//   - Topology: the matching topology
//   - error: ErrUnsupportedTopology for line loops and triangle fans
func TopologyFromMode(mode gltf.PrimitiveMode) (Topology, error) {
	switch mode {
	case gltf.PrimitiveTriangles:
		return TopologyTriangleList, nil
	case gltf.PrimitiveTriangleStrip:
		return TopologyTriangleStrip, nil
	case gltf.PrimitiveLines:
		return TopologyLineList, nil
	case gltf.PrimitiveLineStrip:
		return TopologyLineStrip, nil
	case gltf.PrimitivePoints:
		return TopologyPointList, nil
	default:
		return 0, fmt.Errorf("%w: glTF mode %d", ErrUnsupportedTopology, mode)
	}
}

// CullMode selects face culling.
type CullMode int

const (
	// CullModeBack culls back faces (single-sided materials).
	CullModeBack CullMode = iota
	// CullModeNone disables culling (double-sided materials).
	CullModeNone
)

// BlendMode selects the color blend state.
type BlendMode int

const (
	// BlendModeOpaque writes color without blending.
	BlendModeOpaque BlendMode = iota
	// BlendModeAlpha blends src-alpha / one-minus-src-alpha.
	BlendModeAlpha
)

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatNone IndexFormat = iota
	IndexFormatUint8
	IndexFormatUint16
	IndexFormatUint32
)

// Size returns the size of one index in bytes, 0 for IndexFormatNone.
func (f IndexFormat) Size() int {
	switch f {
	case IndexFormatUint8:
		return 1
	case IndexFormatUint16:
		return 2
	case IndexFormatUint32:
		return 4
	default:
		return 0
	}
}

// Key is the structural identity of a pipeline. Equal keys share one backend pipeline object, so
// every field is comparable and Key is used directly as a map key.
type Key struct {
	// Flags is the shader variant.
	Flags shader.Flags
	// Topology is the primitive assembly mode.
	Topology Topology
	// Cull is the face culling mode.
	Cull CullMode
	// Blend is the color blend mode.
	Blend BlendMode
	// Layout is the vertex buffer layout.
	Layout VertexLayout
	// Index is the index format; it only affects the pipeline for strip topologies but is always
	// part of the identity.
	Index IndexFormat
}

// Blended reports whether the pipeline draws in the blended pass.
func (k Key) Blended() bool {
	return k.Blend == BlendModeAlpha
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/cull=%d/blend=%d/index=%d/buffers=%d", k.Flags, k.Topology, k.Cull, k.Blend, k.Index, k.Layout.Count)
}
