package batch

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) SetPipeline(id pipeline.ID) {
	r.calls = append(r.calls, fmt.Sprintf("pipeline %d", id))
}

func (r *recorder) SetMaterial(material int) {
	r.calls = append(r.calls, fmt.Sprintf("material %d", material))
}

func (r *recorder) Draw(primitive int, count uint32) {
	r.calls = append(r.calls, fmt.Sprintf("draw %d x%d", primitive, count))
}

func (r *recorder) DrawIndexed(primitive int, count uint32) {
	r.calls = append(r.calls, fmt.Sprintf("indexed %d x%d", primitive, count))
}

func TestRecordOrdersOpaqueBeforeBlended(t *testing.T) {
	idx := 0
	prims := []scene.Primitive{
		{ID: 0, Count: 3},
		{ID: 1, Count: 6, Indices: &idx},
		{ID: 2, Count: 9},
		{ID: 3, Count: 12, Indices: &idx},
	}
	lookup := func(id int) (scene.Primitive, bool) {
		if id < 0 || id >= len(prims) {
			return scene.Primitive{}, false
		}
		return prims[id], true
	}

	cache := pipeline.NewCache[int]()
	create := func(pipeline.Key) (int, error) { return 0, nil }

	blended, _, err := cache.Pipeline(pipeline.NewKey(shader.Flags{}, pipeline.WithBlend(true)), create)
	require.NoError(t, err)
	opaque, _, err := cache.Pipeline(pipeline.NewKey(shader.Flags{}), create)
	require.NoError(t, err)
	// a pipeline with no registered primitives records nothing
	_, _, err = cache.Pipeline(pipeline.NewKey(shader.Flags{VertexColor: true}), create)
	require.NoError(t, err)

	require.NoError(t, cache.Register(blended, 2, 0))
	require.NoError(t, cache.Register(opaque, 1, 1))
	require.NoError(t, cache.Register(opaque, 0, 2))
	require.NoError(t, cache.Register(opaque, 1, 3))

	plan := Record(cache, lookup)
	assert.Equal(t, 4, plan.DrawCount())

	rec := &recorder{}
	assert.Equal(t, 4, plan.Replay(rec))
	assert.Equal(t, []string{
		"pipeline 1",
		"material 1",
		"indexed 1 x6",
		"indexed 3 x12",
		"material 0",
		"draw 2 x9",
		"pipeline 0",
		"material 2",
		"draw 0 x3",
	}, rec.calls)
}

func TestReplayIsRepeatable(t *testing.T) {
	cache := pipeline.NewCache[int]()
	id, _, err := cache.Pipeline(pipeline.NewKey(shader.Flags{}), func(pipeline.Key) (int, error) { return 0, nil })
	require.NoError(t, err)
	require.NoError(t, cache.Register(id, 0, 0))

	plan := Record(cache, func(int) (scene.Primitive, bool) { return scene.Primitive{Count: 3}, true })

	first, second := &recorder{}, &recorder{}
	plan.Replay(first)
	plan.Replay(second)
	assert.Equal(t, first.calls, second.calls)
	assert.Len(t, plan.Commands(), 3)
}
