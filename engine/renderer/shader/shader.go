package shader

import (
	_ "embed"
)

// ShaderType identifies a programmable pipeline stage.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage.
	ShaderTypeFragment
)

// Entry points of the WGSL module.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

//go:embed assets/pbr.wgsl
var pbrWGSL string

//go:embed assets/pbr.vert.glsl
var pbrVertexGLSL string

//go:embed assets/pbr.frag.glsl
var pbrFragmentGLSL string

// Sources holds the unexpanded vertex and fragment source of one shading model.
// For WGSL both stages live in one module, so Vertex and Fragment are the same text.
type Sources struct {
	Vertex   string
	Fragment string
}

// Source returns the source of the given stage.
//
// Parameters:
//   - t: the stage to look up
//
// Returns:
//   - string: the unexpanded source for the stage
func (s Sources) Source(t ShaderType) string {
	if t == ShaderTypeFragment {
		return s.Fragment
	}
	return s.Vertex
}

// WGSLSources returns the embedded PBR WGSL module.
func WGSLSources() Sources {
	return Sources{Vertex: pbrWGSL, Fragment: pbrWGSL}
}

// GLSLSources returns the embedded PBR GLSL 3.30 core vertex and fragment shaders.
func GLSLSources() Sources {
	return Sources{Vertex: pbrVertexGLSL, Fragment: pbrFragmentGLSL}
}
