package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/qmuntal/gltf"
)

// Shader input locations shared by the WGSL and GLSL sources.
const (
	LocationPosition  uint32 = 0
	LocationNormal    uint32 = 1
	LocationTangent   uint32 = 2
	LocationTexCoord0 uint32 = 3
	LocationColor0    uint32 = 5
)

// MaxVertexBuffers is the number of attribute slots a layout can hold: position, normal, tangent,
// texcoord and color, one buffer slot each.
const MaxVertexBuffers = 5

// DefaultNormalView marks a vertex source fed from the renderer's constant +Z normal instead of a
// glTF buffer view. Its slot has stride 0, so every vertex reads the same element.
const DefaultNormalView = -1

// VertexFormat describes the element type of one attribute in glTF terms.
type VertexFormat struct {
	Component  gltf.ComponentType
	Type       gltf.AccessorType
	Normalized bool
}

// Size returns the size of one element in bytes.
func (f VertexFormat) Size() uint32 {
	return uint32(gltf.SizeOfElement(f.Component, f.Type))
}

// Components returns the number of components of one element.
func (f VertexFormat) Components() int {
	return int(f.Type.Components())
}

// VertexAttribute is one shader input read from a vertex buffer slot.
type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	// Offset is the byte offset of the attribute within one stride.
	Offset uint32
}

// VertexBuffer is one vertex buffer slot. Each slot feeds exactly one attribute, so interleaved
// buffer views bind the same GPU buffer to several slots.
type VertexBuffer struct {
	Stride    uint32
	Attribute VertexAttribute
}

// VertexLayout is the fixed-size, comparable vertex layout of a pipeline.
type VertexLayout struct {
	Buffers [MaxVertexBuffers]VertexBuffer
	Count   int
}

// Slots returns the used buffer slots in binding order.
func (l VertexLayout) Slots() []VertexBuffer {
	return l.Buffers[:l.Count]
}

// VertexSource locates the bytes feeding one vertex buffer slot.
type VertexSource struct {
	// View is the glTF buffer view holding the data, or DefaultNormalView.
	View int
	// Offset is the byte offset into the view where the first element's stride begins.
	Offset uint64
}

// PrimitiveLayout is everything a backend needs to bind and draw one primitive.
type PrimitiveLayout struct {
	Topology Topology
	Layout   VertexLayout
	// Sources has one entry per used layout slot.
	Sources [MaxVertexBuffers]VertexSource

	Index IndexFormat
	// IndexAccessor is the index accessor, -1 when the primitive is not indexed.
	IndexAccessor int
	// IndexView is the buffer view holding indices, -1 when not indexed.
	IndexView int
	// IndexOffset is the byte offset of the first index within IndexView.
	IndexOffset uint64
}

// LayoutFor derives the vertex layout and buffer sources of a primitive for a shader variant.
// POSITION is always bound; NORMAL falls back to the constant default normal; TANGENT, TEXCOORD_0
// and COLOR_0 are bound only when the variant reads them.
//
// Parameters:
//   - doc: the document the primitive belongs to
//   - prim: the primitive
//   - flags: the variant the primitive will be drawn with
//
// Returns:
//   - PrimitiveLayout: the layout, sources and index binding
//   - error: ErrUnsupportedTopology, ErrUnsupportedVertexFormat, or a malformed reference
func LayoutFor(doc *gltf.Document, prim scene.Primitive, flags shader.Flags) (PrimitiveLayout, error) {
	topology, err := TopologyFromMode(prim.Mode)
	if err != nil {
		return PrimitiveLayout{}, err
	}

	pl := PrimitiveLayout{
		Topology:      topology,
		IndexAccessor: -1,
		IndexView:     -1,
	}

	bind := func(location uint32, semantic string) error {
		accIdx := prim.Attributes[semantic]
		vb, src, err := attributeSlot(doc, accIdx, location)
		if err != nil {
			return fmt.Errorf("%s: %w", semantic, err)
		}
		pl.Layout.Buffers[pl.Layout.Count] = vb
		pl.Sources[pl.Layout.Count] = src
		pl.Layout.Count++
		return nil
	}

	if err := bind(LocationPosition, gltf.POSITION); err != nil {
		return PrimitiveLayout{}, err
	}

	if prim.Has(gltf.NORMAL) {
		if err := bind(LocationNormal, gltf.NORMAL); err != nil {
			return PrimitiveLayout{}, err
		}
	} else {
		pl.Layout.Buffers[pl.Layout.Count] = VertexBuffer{
			Stride: 0,
			Attribute: VertexAttribute{
				Location: LocationNormal,
				Format:   VertexFormat{Component: gltf.ComponentFloat, Type: gltf.AccessorVec3},
			},
		}
		pl.Sources[pl.Layout.Count] = VertexSource{View: DefaultNormalView}
		pl.Layout.Count++
	}

	optional := []struct {
		enabled  bool
		location uint32
		semantic string
	}{
		{flags.NormalMap, LocationTangent, gltf.TANGENT},
		{flags.UsesTexCoord0(), LocationTexCoord0, gltf.TEXCOORD_0},
		{flags.VertexColor, LocationColor0, gltf.COLOR_0},
	}
	for _, o := range optional {
		if !o.enabled {
			continue
		}
		if err := bind(o.location, o.semantic); err != nil {
			return PrimitiveLayout{}, err
		}
	}

	if prim.Indices != nil {
		acc := doc.Accessors[*prim.Indices]
		if acc.BufferView == nil {
			return PrimitiveLayout{}, fmt.Errorf("%w: index accessor %d has no buffer view", ErrUnsupportedVertexFormat, *prim.Indices)
		}
		switch acc.ComponentType {
		case gltf.ComponentUbyte:
			pl.Index = IndexFormatUint8
		case gltf.ComponentUshort:
			pl.Index = IndexFormatUint16
		case gltf.ComponentUint:
			pl.Index = IndexFormatUint32
		default:
			return PrimitiveLayout{}, fmt.Errorf("%w: index component type %d", ErrUnsupportedVertexFormat, acc.ComponentType)
		}
		pl.IndexAccessor = *prim.Indices
		pl.IndexView = int(*acc.BufferView)
		pl.IndexOffset = uint64(acc.ByteOffset)
	}

	return pl, nil
}

// attributeSlot builds the buffer slot for one accessor. An accessor offset larger than the stride
// is split into a whole number of strides carried by the binding offset and a remainder carried by
// the attribute offset.
func attributeSlot(doc *gltf.Document, accIdx int, location uint32) (VertexBuffer, VertexSource, error) {
	if accIdx < 0 || accIdx >= len(doc.Accessors) {
		return VertexBuffer{}, VertexSource{}, fmt.Errorf("accessor %d out of range", accIdx)
	}
	acc := doc.Accessors[accIdx]
	if acc.BufferView == nil {
		return VertexBuffer{}, VertexSource{}, fmt.Errorf("%w: accessor %d has no buffer view", ErrUnsupportedVertexFormat, accIdx)
	}
	viewIdx := int(*acc.BufferView)
	if viewIdx < 0 || viewIdx >= len(doc.BufferViews) {
		return VertexBuffer{}, VertexSource{}, fmt.Errorf("accessor %d: buffer view %d out of range", accIdx, viewIdx)
	}

	format := VertexFormat{
		Component:  acc.ComponentType,
		Type:       acc.Type,
		Normalized: acc.Normalized,
	}
	stride := uint32(doc.BufferViews[viewIdx].ByteStride)
	if stride == 0 {
		stride = format.Size()
	}

	offset := uint32(acc.ByteOffset)
	remainder := offset % stride

	return VertexBuffer{
			Stride: stride,
			Attribute: VertexAttribute{
				Location: location,
				Format:   format,
				Offset:   remainder,
			},
		}, VertexSource{
			View:   viewIdx,
			Offset: uint64(offset - remainder),
		}, nil
}
