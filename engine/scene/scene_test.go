package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(i int) *int { return &i }

// twoNodeDoc has a root node translated by +2 on X carrying a child translated by +1 on Y.
// Both nodes reference mesh 0; mesh 1 has one primitive without POSITION.
func twoNodeDoc() *gltf.Document {
	return &gltf.Document{
		Accessors: []*gltf.Accessor{
			{Count: 3, Type: gltf.AccessorVec3, ComponentType: gltf.ComponentFloat, Min: []float64{-1, -1, -1}, Max: []float64{1, 1, 1}},
			{Count: 6, Type: gltf.AccessorScalar, ComponentType: gltf.ComponentUshort},
		},
		Meshes: []*gltf.Mesh{
			{Primitives: []*gltf.Primitive{
				{Attributes: map[string]int{gltf.POSITION: 0}, Indices: ptr(1), Material: ptr(0)},
				{Attributes: map[string]int{gltf.POSITION: 0}, Mode: gltf.PrimitivePoints},
			}},
			{Primitives: []*gltf.Primitive{
				{Attributes: map[string]int{gltf.NORMAL: 0}},
			}},
		},
		Materials: []*gltf.Material{{Name: "red"}},
		Nodes: []*gltf.Node{
			{Name: "root", Mesh: ptr(0), Translation: [3]float64{2, 0, 0}, Children: []int{1}},
			{Name: "child", Mesh: ptr(0), Translation: [3]float64{0, 1, 0}, Children: []int{2}},
			{Name: "broken", Mesh: ptr(1)},
		},
		Scenes: []*gltf.Scene{{Name: "main", Nodes: []int{0}}},
	}
}

func TestNewSceneFlattensHierarchy(t *testing.T) {
	s, err := NewScene(twoNodeDoc())
	require.NoError(t, err)

	assert.Equal(t, "main", s.Name())
	prims := s.Primitives()
	require.Len(t, prims, 4)
	assert.Equal(t, 1, s.Skipped())

	for i, p := range prims {
		assert.Equal(t, i, p.ID)
	}

	root := prims[0]
	assert.Equal(t, 0, root.Node)
	assert.Equal(t, 0, root.Material)
	assert.True(t, root.Indexed())
	assert.Equal(t, uint32(6), root.Count)
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, mgl32.TransformCoordinate(mgl32.Vec3{}, root.World))

	points := prims[1]
	assert.False(t, points.Indexed())
	assert.Equal(t, uint32(3), points.Count)
	assert.Equal(t, DefaultMaterial, points.Material)
	assert.Equal(t, gltf.PrimitivePoints, points.Mode)

	child := prims[2]
	assert.Equal(t, 1, child.Node)
	assert.Equal(t, mgl32.Vec3{2, 1, 0}, mgl32.TransformCoordinate(mgl32.Vec3{}, child.World))
}

func TestSceneBounds(t *testing.T) {
	s, err := NewScene(twoNodeDoc())
	require.NoError(t, err)

	min, max, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, -1, -1}, min)
	assert.Equal(t, mgl32.Vec3{3, 2, 1}, max)
}

func TestSceneWithoutScenesUsesRootNodes(t *testing.T) {
	doc := twoNodeDoc()
	doc.Scenes = nil

	s, err := NewScene(doc, WithName("loose"), WithBaseDir("/tmp/assets"))
	require.NoError(t, err)
	assert.Equal(t, "loose", s.Name())
	assert.Equal(t, "/tmp/assets", s.BaseDir())
	assert.Len(t, s.Primitives(), 4)
}

func TestSceneIndexOutOfRange(t *testing.T) {
	_, err := NewScene(twoNodeDoc(), WithSceneIndex(4))
	assert.Error(t, err)
}

func TestSceneRejectsBadReferences(t *testing.T) {
	doc := twoNodeDoc()
	doc.Meshes[0].Primitives[0].Indices = ptr(9)
	_, err := NewScene(doc)
	assert.Error(t, err)

	doc = twoNodeDoc()
	doc.Nodes[2].Children = []int{0}
	_, err = NewScene(doc)
	assert.Error(t, err)
}

func TestPrimitiveLookup(t *testing.T) {
	s, err := NewScene(twoNodeDoc())
	require.NoError(t, err)

	p, ok := s.Primitive(3)
	require.True(t, ok)
	assert.Equal(t, 3, p.ID)
	_, ok = s.Primitive(4)
	assert.False(t, ok)
	assert.True(t, p.Has(gltf.POSITION))
	assert.False(t, p.Has(gltf.TANGENT))
}

func TestLocalTransform(t *testing.T) {
	n := &gltf.Node{
		Translation: [3]float64{1, 2, 3},
		Scale:       [3]float64{2, 2, 2},
	}
	got := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, LocalTransform(n))
	assert.True(t, got.ApproxEqual(mgl32.Vec3{3, 2, 3}))

	m := &gltf.Node{Matrix: [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 6, 7, 1}}
	got = mgl32.TransformCoordinate(mgl32.Vec3{}, LocalTransform(m))
	assert.Equal(t, mgl32.Vec3{5, 6, 7}, got)

	// quarter turn about Y maps +X to -Z
	r := &gltf.Node{Rotation: [4]float64{0, 0.7071067811865476, 0, 0.7071067811865476}}
	got = mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, LocalTransform(r))
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5))
}
