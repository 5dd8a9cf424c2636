package scene

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

// DefaultMaterial is the material index used by primitives that reference no material.
const DefaultMaterial = -1

// Primitive is one drawable glTF mesh primitive placed in the world by its node.
// The same mesh referenced by two nodes yields two Primitives with distinct IDs.
type Primitive struct {
	// ID is the dense index of the primitive in flattened traversal order.
	ID int
	// Node is the index of the node that instantiates the mesh.
	Node int
	// Mesh is the index of the mesh in the document.
	Mesh int
	// Index is the position of the primitive within its mesh.
	Index int
	// World is the composed node transform.
	World mgl32.Mat4
	// Attributes maps attribute semantics (gltf.POSITION, gltf.NORMAL, ...) to accessor indices.
	Attributes map[string]int
	// Indices is the index accessor, or nil for non-indexed draws.
	Indices *int
	// Mode is the glTF draw mode.
	Mode gltf.PrimitiveMode
	// Material is the material index, or DefaultMaterial.
	Material int
	// Count is the index count for indexed primitives, the vertex count otherwise.
	Count uint32
}

// Has reports whether the primitive provides the attribute semantic.
//
// Parameters:
//   - semantic: the attribute name, e.g. gltf.TANGENT
//
// Returns:
//   - bool: true if an accessor is bound for the semantic
func (p Primitive) Has(semantic string) bool {
	_, ok := p.Attributes[semantic]
	return ok
}

// Indexed reports whether the primitive is drawn with an index buffer.
func (p Primitive) Indexed() bool {
	return p.Indices != nil
}

// scene is the implementation of the Scene interface.
type scene struct {
	name       string
	baseDir    string
	sceneIndex *int

	doc        *gltf.Document
	primitives []Primitive
	skipped    int

	min, max  mgl32.Vec3
	hasBounds bool
}

// Scene is a read-only, flattened view of a glTF document: every mesh primitive reachable from
// the selected scene, with its world transform resolved. The document itself is never mutated;
// GPU resources derived from it live in side tables owned by the renderer.
type Scene interface {
	// Name returns the scene's display name.
	//
	// Returns:
	//   - string: the name given at construction, or the glTF scene name
	Name() string

	// Document returns the underlying glTF document.
	//
	// Returns:
	//   - *gltf.Document: the parsed document
	Document() *gltf.Document

	// BaseDir returns the directory external URIs are resolved against.
	//
	// Returns:
	//   - string: the base directory, empty when unknown
	BaseDir() string

	// Primitives returns every usable primitive in traversal order. Index i holds the primitive
	// with ID i.
	//
	// Returns:
	//   - []Primitive: the flattened primitives
	Primitives() []Primitive

	// Primitive returns the primitive with the given ID.
	//
	// Parameters:
	//   - id: the primitive ID
	//
	// Returns:
	//   - Primitive: the primitive
	//   - bool: false if the ID is out of range
	Primitive(id int) (Primitive, bool)

	// Skipped returns the number of primitives left out because they had no POSITION attribute.
	Skipped() int

	// Bounds returns the world-space axis aligned bounds of all primitives.
	//
	// Returns:
	//   - mgl32.Vec3: minimum corner
	//   - mgl32.Vec3: maximum corner
	//   - bool: false when no primitive carried POSITION min/max
	Bounds() (mgl32.Vec3, mgl32.Vec3, bool)
}

var _ Scene = &scene{}

// NewScene flattens a glTF document into a Scene.
//
// The traversal starts at the scene selected by WithSceneIndex, else the document's default scene,
// else scene 0, else every root node. Node transforms compose parent to child.
//
// Parameters:
//   - doc: the parsed glTF document
//   - opts: SceneBuilderOption functions
//
// Returns:
//   - Scene: the flattened scene
//   - error: an error if the document references missing nodes, meshes or accessors
func NewScene(doc *gltf.Document, opts ...SceneBuilderOption) (Scene, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil glTF document")
	}

	s := &scene{doc: doc}
	for _, opt := range opts {
		opt(s)
	}

	roots, err := s.roots()
	if err != nil {
		return nil, err
	}

	visited := make(map[int]bool)
	for _, root := range roots {
		if err := s.visit(root, mgl32.Ident4(), visited); err != nil {
			return nil, err
		}
	}

	logger.L().Info("scene flattened",
		zap.String("scene", s.name),
		zap.Int("primitives", len(s.primitives)),
		zap.Int("skipped", s.skipped),
	)
	return s, nil
}

func (s *scene) roots() ([]int, error) {
	idx := s.sceneIndex
	if idx == nil {
		idx = s.doc.Scene
	}
	if idx == nil && len(s.doc.Scenes) > 0 {
		zero := 0
		idx = &zero
	}

	if idx != nil {
		if *idx < 0 || *idx >= len(s.doc.Scenes) {
			return nil, fmt.Errorf("scene index %d out of range (%d scenes)", *idx, len(s.doc.Scenes))
		}
		sc := s.doc.Scenes[*idx]
		s.name = common.Coalesce(s.name, sc.Name)
		return sc.Nodes, nil
	}

	isChild := make(map[int]bool)
	for _, n := range s.doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	roots := make([]int, 0, len(s.doc.Nodes))
	for i := range s.doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

func (s *scene) visit(nodeIdx int, parent mgl32.Mat4, visited map[int]bool) error {
	if nodeIdx < 0 || nodeIdx >= len(s.doc.Nodes) {
		return fmt.Errorf("node index %d out of range", nodeIdx)
	}
	if visited[nodeIdx] {
		return fmt.Errorf("node %d visited twice: the node hierarchy is not a forest", nodeIdx)
	}
	visited[nodeIdx] = true

	node := s.doc.Nodes[nodeIdx]
	world := parent.Mul4(LocalTransform(node))

	if node.Mesh != nil {
		if err := s.addMesh(nodeIdx, *node.Mesh, world); err != nil {
			return err
		}
	}

	for _, child := range node.Children {
		if err := s.visit(child, world, visited); err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) addMesh(nodeIdx, meshIdx int, world mgl32.Mat4) error {
	if meshIdx < 0 || meshIdx >= len(s.doc.Meshes) {
		return fmt.Errorf("node %d: mesh index %d out of range", nodeIdx, meshIdx)
	}

	for primIdx, prim := range s.doc.Meshes[meshIdx].Primitives {
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			s.skipped++
			logger.L().Warn("skipping primitive without POSITION",
				zap.Int("mesh", meshIdx), zap.Int("primitive", primIdx))
			continue
		}

		for semantic, accIdx := range prim.Attributes {
			if accIdx < 0 || accIdx >= len(s.doc.Accessors) {
				return fmt.Errorf("mesh %d primitive %d: %s accessor %d out of range", meshIdx, primIdx, semantic, accIdx)
			}
		}

		count := uint32(s.doc.Accessors[posIdx].Count)
		if prim.Indices != nil {
			if *prim.Indices < 0 || *prim.Indices >= len(s.doc.Accessors) {
				return fmt.Errorf("mesh %d primitive %d: index accessor %d out of range", meshIdx, primIdx, *prim.Indices)
			}
			count = uint32(s.doc.Accessors[*prim.Indices].Count)
		}

		material := DefaultMaterial
		if prim.Material != nil {
			if *prim.Material < 0 || *prim.Material >= len(s.doc.Materials) {
				return fmt.Errorf("mesh %d primitive %d: material %d out of range", meshIdx, primIdx, *prim.Material)
			}
			material = *prim.Material
		}

		s.primitives = append(s.primitives, Primitive{
			ID:         len(s.primitives),
			Node:       nodeIdx,
			Mesh:       meshIdx,
			Index:      primIdx,
			World:      world,
			Attributes: prim.Attributes,
			Indices:    prim.Indices,
			Mode:       prim.Mode,
			Material:   material,
			Count:      count,
		})
		s.growBounds(s.doc.Accessors[posIdx], world)
	}
	return nil
}

func (s *scene) growBounds(acc *gltf.Accessor, world mgl32.Mat4) {
	if len(acc.Min) < 3 || len(acc.Max) < 3 {
		return
	}

	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{
			pick(i&1 != 0, acc.Max[0], acc.Min[0]),
			pick(i&2 != 0, acc.Max[1], acc.Min[1]),
			pick(i&4 != 0, acc.Max[2], acc.Min[2]),
		}
		p := mgl32.TransformCoordinate(corner, world)
		if !s.hasBounds {
			s.min, s.max, s.hasBounds = p, p, true
			continue
		}
		for axis := 0; axis < 3; axis++ {
			s.min[axis] = float32(math.Min(float64(s.min[axis]), float64(p[axis])))
			s.max[axis] = float32(math.Max(float64(s.max[axis]), float64(p[axis])))
		}
	}
}

func pick(cond bool, a, b float64) float32 {
	if cond {
		return float32(a)
	}
	return float32(b)
}

// LocalTransform returns a node's local transform: its matrix when one other than identity is
// set, else the composition translation * rotation * scale. Zero rotation and scale arrays are
// treated as absent.
//
// Parameters:
//   - node: the glTF node
//
// Returns:
//   - mgl32.Mat4: the local transform
func LocalTransform(node *gltf.Node) mgl32.Mat4 {
	if node.Matrix != ([16]float64{}) && node.Matrix != identityMatrix {
		var out mgl32.Mat4
		for i, v := range node.Matrix {
			out[i] = float32(v)
		}
		return out
	}

	t := node.Translation
	r := node.Rotation
	if r == ([4]float64{}) {
		r = [4]float64{0, 0, 0, 1}
	}
	sc := node.Scale
	if sc == ([3]float64{}) {
		sc = [3]float64{1, 1, 1}
	}

	rotation := mgl32.Quat{
		W: float32(r[3]),
		V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])},
	}.Normalize()

	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rotation.Mat4()).
		Mul4(mgl32.Scale3D(float32(sc[0]), float32(sc[1]), float32(sc[2])))
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Document() *gltf.Document {
	return s.doc
}

func (s *scene) BaseDir() string {
	return s.baseDir
}

func (s *scene) Primitives() []Primitive {
	return s.primitives
}

func (s *scene) Primitive(id int) (Primitive, bool) {
	if id < 0 || id >= len(s.primitives) {
		return Primitive{}, false
	}
	return s.primitives[id], true
}

func (s *scene) Skipped() int {
	return s.skipped
}

func (s *scene) Bounds() (mgl32.Vec3, mgl32.Vec3, bool) {
	return s.min, s.max, s.hasBounds
}
