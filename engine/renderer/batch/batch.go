package batch

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
)

// Encoder receives a replayed draw plan. Backends implement it over their command encoder or
// GL state; the batcher never touches a GPU API.
type Encoder interface {
	// SetPipeline binds the pipeline subsequent draws use.
	SetPipeline(id pipeline.ID)

	// SetMaterial binds the material subsequent draws use.
	SetMaterial(material int)

	// Draw issues a non-indexed draw of count vertices for a primitive.
	Draw(primitive int, count uint32)

	// DrawIndexed issues an indexed draw of count indices for a primitive.
	DrawIndexed(primitive int, count uint32)
}

// CommandKind is the kind of a recorded command.
type CommandKind int

const (
	CommandSetPipeline CommandKind = iota
	CommandSetMaterial
	CommandDraw
	CommandDrawIndexed
)

// Command is one recorded encoder call.
type Command struct {
	Kind      CommandKind
	Pipeline  pipeline.ID
	Material  int
	Primitive int
	Count     uint32
}

// Plan is the draw sequence of a scene, recorded once after load and replayed every frame:
// opaque pipelines in first-seen order, then blended pipelines; within a pipeline each material
// once; within a material each primitive.
type Plan struct {
	commands []Command
	draws    int
}

// Record builds a Plan from the pipeline cache's ordered index.
//
// Parameters:
//   - cache: the pipeline cache holding the pipeline -> material -> primitive index
//   - lookup: resolves a primitive id to its primitive
//
// Returns:
//   - *Plan: the recorded plan
func Record[P any](cache pipeline.Cache[P], lookup func(id int) (scene.Primitive, bool)) *Plan {
	p := &Plan{}
	for _, ids := range [][]pipeline.ID{cache.Opaque(), cache.Blended()} {
		for _, id := range ids {
			groups := cache.Groups(id)
			if len(groups) == 0 {
				continue
			}
			p.commands = append(p.commands, Command{Kind: CommandSetPipeline, Pipeline: id})
			for _, g := range groups {
				p.commands = append(p.commands, Command{Kind: CommandSetMaterial, Pipeline: id, Material: g.Material})
				for _, primID := range g.Primitives {
					prim, ok := lookup(primID)
					if !ok {
						continue
					}
					kind := CommandDraw
					if prim.Indexed() {
						kind = CommandDrawIndexed
					}
					p.commands = append(p.commands, Command{
						Kind:      kind,
						Pipeline:  id,
						Material:  g.Material,
						Primitive: primID,
						Count:     prim.Count,
					})
					p.draws++
				}
			}
		}
	}
	return p
}

// Replay issues the plan's commands on an encoder.
//
// Parameters:
//   - enc: the encoder
//
// Returns:
//   - int: the number of draw calls issued
func (p *Plan) Replay(enc Encoder) int {
	for _, c := range p.commands {
		switch c.Kind {
		case CommandSetPipeline:
			enc.SetPipeline(c.Pipeline)
		case CommandSetMaterial:
			enc.SetMaterial(c.Material)
		case CommandDraw:
			enc.Draw(c.Primitive, c.Count)
		case CommandDrawIndexed:
			enc.DrawIndexed(c.Primitive, c.Count)
		}
	}
	return p.draws
}

// DrawCount returns the number of draws per replay.
func (p *Plan) DrawCount() int {
	return p.draws
}

// Commands returns the recorded commands.
func (p *Plan) Commands() []Command {
	return p.commands
}
