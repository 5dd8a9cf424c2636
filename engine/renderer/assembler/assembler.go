package assembler

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

// Config wires the backend into the assembly of a scene. M is the backend shader object, P the
// pipeline object and B the material binding.
type Config[M, P, B any] struct {
	// Variants compiles shader variants.
	Variants shader.Cache[M]
	// Pipelines deduplicates pipelines and owns the draw index.
	Pipelines pipeline.Cache[P]
	// Materials caches material views and bindings.
	Materials material.Table[B]
	// LightCount is the LIGHT_COUNT of every variant.
	LightCount int

	// CreatePipeline builds a backend pipeline for a key from its compiled variant.
	CreatePipeline func(key pipeline.Key, variant *shader.Variant[M]) (P, error)
	// BindMaterial builds a material's backend binding.
	BindMaterial material.BuildFunc[B]
	// Validate rejects layouts the backend cannot bind, before any pipeline is created for them.
	// Optional.
	Validate func(layout pipeline.PrimitiveLayout) error
	// Prepare creates per-primitive state (vertex bindings, instance uniforms). Optional.
	Prepare func(prim scene.Primitive, layout pipeline.PrimitiveLayout) error
}

// Result summarizes an assembled scene.
type Result struct {
	// Plan is the recorded draw sequence.
	Plan *batch.Plan
	// Drawn is the number of primitives in the plan.
	Drawn int
	// Dropped is the number of primitives left out for unsupported topology or vertex data.
	Dropped int
}

// Assemble builds every backend object a scene needs and records its draw plan. For each primitive
// it resolves the material, derives the shader flags, computes and validates the vertex layout,
// compiles the variant, creates or reuses the pipeline, binds the material, prepares the primitive and
// registers it under its pipeline and material.
//
// Primitives with an unsupported topology or vertex format are dropped with a warning before a
// variant or pipeline is built for them. Shader compile errors and backend creation errors abort
// the assembly.
//
// Parameters:
//   - sc: the scene
//   - cfg: the backend wiring
//
// Returns:
//   - *Result: the plan and counters
//   - error: the first fatal error
func Assemble[M, P, B any](sc scene.Scene, cfg Config[M, P, B]) (*Result, error) {
	doc := sc.Document()
	res := &Result{}

	for _, prim := range sc.Primitives() {
		if _, err := pipeline.TopologyFromMode(prim.Mode); err != nil {
			drop(res, prim, err)
			continue
		}

		m := cfg.Materials.Material(prim.Material)
		flags := shader.FlagsFor(AttributesOf(prim), m.TextureSet(), m.Roughness(), cfg.LightCount)

		layout, err := pipeline.LayoutFor(doc, prim, flags)
		if err != nil {
			if unsupported(err) {
				drop(res, prim, err)
				continue
			}
			return nil, fmt.Errorf("primitive %d: %w", prim.ID, err)
		}
		if cfg.Validate != nil {
			if err := cfg.Validate(layout); err != nil {
				if unsupported(err) {
					drop(res, prim, err)
					continue
				}
				return nil, fmt.Errorf("primitive %d: %w", prim.ID, err)
			}
		}

		variant, err := cfg.Variants.Variant(flags)
		if err != nil {
			return nil, err
		}

		key := pipeline.NewKey(flags,
			pipeline.WithTopology(layout.Topology),
			pipeline.WithDoubleSided(m.DoubleSided()),
			pipeline.WithBlend(m.Blended()),
			pipeline.WithVertexLayout(layout.Layout),
			pipeline.WithIndexFormat(layout.Index),
		)
		id, _, err := cfg.Pipelines.Pipeline(key, func(k pipeline.Key) (P, error) {
			return cfg.CreatePipeline(k, variant)
		})
		if err != nil {
			if unsupported(err) {
				drop(res, prim, err)
				continue
			}
			return nil, err
		}

		if _, err := cfg.Materials.Bind(prim.Material, cfg.BindMaterial); err != nil {
			return nil, err
		}

		if cfg.Prepare != nil {
			if err := cfg.Prepare(prim, layout); err != nil {
				if unsupported(err) {
					drop(res, prim, err)
					continue
				}
				return nil, fmt.Errorf("failed to prepare primitive %d: %w", prim.ID, err)
			}
		}

		if err := cfg.Pipelines.Register(id, prim.Material, prim.ID); err != nil {
			return nil, err
		}
		res.Drawn++
	}

	res.Plan = batch.Record(cfg.Pipelines, sc.Primitive)

	logger.L().Info("scene assembled",
		zap.String("scene", sc.Name()),
		zap.Int("primitives", res.Drawn),
		zap.Int("dropped", res.Dropped),
		zap.Int("variants", cfg.Variants.Len()),
		zap.Int("pipelines", cfg.Pipelines.Len()),
		zap.Int("materials", cfg.Materials.Len()),
	)
	return res, nil
}

// AttributesOf reports which optional vertex attributes a primitive provides.
//
// Parameters:
//   - prim: the primitive
//
// Returns:
//   - shader.AttributeSet: the present attributes
func AttributesOf(prim scene.Primitive) shader.AttributeSet {
	return shader.AttributeSet{
		Normal:    prim.Has(gltf.NORMAL),
		Tangent:   prim.Has(gltf.TANGENT),
		TexCoord0: prim.Has(gltf.TEXCOORD_0),
		TexCoord1: prim.Has(gltf.TEXCOORD_1),
		Color0:    prim.Has(gltf.COLOR_0),
	}
}

func unsupported(err error) bool {
	return errors.Is(err, pipeline.ErrUnsupportedTopology) || errors.Is(err, pipeline.ErrUnsupportedVertexFormat)
}

func drop(res *Result, prim scene.Primitive, err error) {
	res.Dropped++
	logger.L().Warn("dropping primitive",
		zap.Int("primitive", prim.ID),
		zap.Int("mesh", prim.Mesh),
		zap.Int("index", prim.Index),
		zap.Error(err),
	)
}
