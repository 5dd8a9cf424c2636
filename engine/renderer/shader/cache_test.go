package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheVariantIdentity(t *testing.T) {
	compiles := 0
	c := NewCache(GLSLSources(), func(flags Flags, vertex, fragment string) (string, error) {
		compiles++
		return flags.String(), nil
	})

	a := Flags{BaseColorMap: true, LightCount: 1}
	v1, err := c.Variant(a)
	require.NoError(t, err)
	v2, err := c.Variant(Flags{BaseColorMap: true, LightCount: 1})
	require.NoError(t, err)

	assert.Same(t, v1, v2)
	assert.Equal(t, 1, compiles)
	assert.Equal(t, a, v1.Flags)

	v3, err := c.Variant(Flags{LightCount: 1})
	require.NoError(t, err)
	assert.NotSame(t, v1, v3)
	assert.Equal(t, 2, compiles)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []*Variant[string]{v1, v3}, c.Variants())
}

func TestCachePassesExpandedSources(t *testing.T) {
	var gotVertex, gotFragment string
	c := NewCache(GLSLSources(), func(flags Flags, vertex, fragment string) (int, error) {
		gotVertex, gotFragment = vertex, fragment
		return 1, nil
	})

	_, err := c.Variant(Flags{VertexColor: true, LightCount: 1})
	require.NoError(t, err)
	assert.Contains(t, gotVertex, "a_color")
	assert.Contains(t, gotFragment, "v_color")
	assert.True(t, strings.HasPrefix(gotFragment, "#version 330 core\n"))
	assert.Contains(t, gotFragment, "#define USE_VERTEX_COLOR 1")
}

func TestCacheWGSLExpandsOnce(t *testing.T) {
	c := NewCache(WGSLSources(), func(flags Flags, vertex, fragment string) (int, error) {
		assert.Equal(t, vertex, fragment)
		return 1, nil
	})
	_, err := c.Variant(Flags{LightCount: 1})
	require.NoError(t, err)
}

func TestCacheCompileFailureIsNotCached(t *testing.T) {
	fail := true
	calls := 0
	c := NewCache(GLSLSources(), func(flags Flags, vertex, fragment string) (int, error) {
		calls++
		if fail {
			return 0, errors.New("link failed")
		}
		return 7, nil
	})

	_, err := c.Variant(Flags{LightCount: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompile)
	assert.Contains(t, err.Error(), "link failed")
	assert.Equal(t, 0, c.Len())

	fail = false
	v, err := c.Variant(Flags{LightCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 7, v.Module)
	assert.Equal(t, 2, calls)
}

func TestCachePreprocessFailureWrapsErrCompile(t *testing.T) {
	c := NewCache(Sources{Vertex: "#ifdef X", Fragment: "ok"}, func(flags Flags, vertex, fragment string) (int, error) {
		t.Fatal("compile must not run")
		return 0, nil
	})
	_, err := c.Variant(Flags{})
	assert.ErrorIs(t, err, ErrCompile)
}
