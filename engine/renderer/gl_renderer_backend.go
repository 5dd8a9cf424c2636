package renderer

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/assembler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"github.com/go-gl/gl/v3.3-core/gl"
	"go.uber.org/zap"
)

// glPipeline is a linked program plus the fixed-function state of one pipeline key.
type glPipeline struct {
	program      uint32
	mode         uint32
	cull         bool
	blend        bool
	model        int32
	normalMatrix int32
}

// glMaterial is a material's factor block and the texture and sampler bound to each unit.
type glMaterial struct {
	ubo      uint32
	textures [material.SlotCount]uint32
	samplers [material.SlotCount]uint32
}

// glPrimitive is a primitive's vertex array and transform.
type glPrimitive struct {
	vao         uint32
	instance    frame.GPUInstanceUniforms
	indexType   uint32
	indexOffset uintptr
}

// glFence guards a frame uniform buffer until the GPU has consumed it.
type glFence struct {
	sync uintptr
	ubo  uint32
}

// glScene holds every GL object derived from one loaded scene.
type glScene struct {
	binder    binder.Binder[uint32, uint32, uint32]
	variants  shader.Cache[uint32]
	pipelines pipeline.Cache[*glPipeline]
	materials material.Table[*glMaterial]
	prims     map[int]*glPrimitive
	plan      *batch.Plan
}

// glRendererBackendImpl is the OpenGL 3.3 core implementation of RendererBackend. Every call
// must come from the thread the window's context is current on.
type glRendererBackendImpl struct {
	mu  *sync.Mutex
	win window.Window
	cfg rendererConfig

	initialized  bool
	width        int32
	height       int32
	swapInterval int

	// uploads rotates the frame uniform buffers; fences hold the ones still read by the GPU.
	uploads            frame.Ring[uint32]
	fences             []glFence
	placeholders       [material.PlaceholderCount]uint32
	placeholderSampler uint32

	scene *glScene
}

var _ RendererBackend = &glRendererBackendImpl{}

func newGLRendererBackend(win window.Window, cfg rendererConfig) RendererBackend {
	return &glRendererBackendImpl{
		mu:           &sync.Mutex{},
		win:          win,
		cfg:          cfg,
		swapInterval: glSwapInterval(cfg.presentMode),
	}
}

func (b *glRendererBackendImpl) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	runtime.LockOSThread()
	b.win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	logger.L().Info("gl context acquired",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Uint32("msaa", uint32(b.cfg.msaa)),
	)

	gl.Enable(gl.FRAMEBUFFER_SRGB)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.FrontFace(gl.CCW)
	gl.CullFace(gl.BACK)
	gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	if b.cfg.msaa > 1 {
		gl.Enable(gl.MULTISAMPLE)
	}
	// Primitives without normals leave the attribute disabled and read this constant.
	gl.VertexAttrib3f(pipeline.LocationNormal, 0, 0, 1)

	b.uploads = frame.NewRing(func() (uint32, error) {
		var u frame.GPUFrameUniforms
		var ubo uint32
		gl.GenBuffers(1, &ubo)
		gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
		gl.BufferData(gl.UNIFORM_BUFFER, u.Size(), nil, gl.DYNAMIC_DRAW)
		gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
		return ubo, nil
	})

	dev := &glDevice{}
	for i := range material.PlaceholderCount {
		tex, err := dev.CreateTexture(binder.TextureKey{Image: -1}, material.Placeholder(i).Texture())
		if err != nil {
			return err
		}
		b.placeholders[i] = tex
	}
	s, err := dev.CreateSampler(material.PlaceholderSampler)
	if err != nil {
		return err
	}
	b.placeholderSampler = s

	b.win.SetSwapInterval(b.swapInterval)
	b.initialized = true
	return nil
}

func (b *glRendererBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	b.width, b.height = int32(width), int32(height)
}

func (b *glRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.swapInterval = glSwapInterval(mode)
	if b.initialized {
		b.win.SetSwapInterval(b.swapInterval)
	}
}

func (b *glRendererBackendImpl) Load(ctx context.Context, sc scene.Scene, lightCount int) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return Stats{}, ErrNotInitialized
	}

	s := &glScene{
		binder:    binder.NewBinder[uint32, uint32, uint32](binder.WithMipmaps(b.cfg.mipmaps), binder.WithWorkers(b.cfg.workers)),
		variants:  shader.NewCache(shader.GLSLSources(), glCompileProgram),
		pipelines: pipeline.NewCache[*glPipeline](),
		materials: material.NewTable[*glMaterial](sc.Document()),
		prims:     make(map[int]*glPrimitive),
	}
	b.scene = s

	if err := s.binder.Bind(ctx, sc, &glDevice{}); err != nil {
		return Stats{}, err
	}

	res, err := assembler.Assemble(sc, assembler.Config[uint32, *glPipeline, *glMaterial]{
		Variants:       s.variants,
		Pipelines:      s.pipelines,
		Materials:      s.materials,
		LightCount:     lightCount,
		CreatePipeline: glCreatePipeline,
		BindMaterial: func(m material.Material) (*glMaterial, error) {
			return b.bindMaterial(s, m), nil
		},
		Prepare: func(prim scene.Primitive, layout pipeline.PrimitiveLayout) error {
			return b.preparePrimitive(s, prim, layout)
		},
	})
	if err != nil {
		return Stats{}, err
	}
	s.plan = res.Plan

	_, textures, _ := s.binder.Resources()
	return Stats{
		Primitives: res.Drawn,
		Dropped:    res.Dropped,
		Variants:   s.variants.Len(),
		Pipelines:  s.pipelines.Len(),
		Materials:  s.materials.Len(),
		Textures:   len(textures),
	}, nil
}

// glCompileProgram compiles and links a variant, then binds its uniform blocks and sampler
// units.
func glCompileProgram(flags shader.Flags, vertex, fragment string) (uint32, error) {
	vs, err := glCompileShader(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	fs, err := glCompileShader(gl.FRAGMENT_SHADER, fragment)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, fmt.Errorf("fragment: %w", err)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(msg))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %s", strings.TrimRight(msg, "\x00"))
	}

	if idx := gl.GetUniformBlockIndex(program, gl.Str("Frame\x00")); idx != gl.INVALID_INDEX {
		gl.UniformBlockBinding(program, idx, glFrameBlock)
	}
	if idx := gl.GetUniformBlockIndex(program, gl.Str("Material\x00")); idx != gl.INVALID_INDEX {
		gl.UniformBlockBinding(program, idx, glMaterialBlock)
	}
	gl.UseProgram(program)
	for unit, name := range glSamplerUniforms {
		if loc := gl.GetUniformLocation(program, gl.Str(name)); loc >= 0 {
			gl.Uniform1i(loc, int32(unit))
		}
	}
	gl.UseProgram(0)

	logger.L().Debug("linked gl program", zap.Stringer("flags", flags), zap.Uint32("program", program))
	return program, nil
}

func glCompileShader(typ uint32, src string) (uint32, error) {
	handle := gl.CreateShader(typ)

	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(handle, logLength, nil, gl.Str(msg))
		gl.DeleteShader(handle)
		return 0, fmt.Errorf("failed to compile: %s", strings.TrimRight(msg, "\x00"))
	}
	return handle, nil
}

// glCreatePipeline pairs a variant's program with the key's draw state. Every glTF vertex
// format is readable by GL, so only the topology can be rejected.
func glCreatePipeline(key pipeline.Key, variant *shader.Variant[uint32]) (*glPipeline, error) {
	mode, err := glMode(key.Topology)
	if err != nil {
		return nil, err
	}
	for _, slot := range key.Layout.Slots() {
		if _, err := glComponentType(slot.Attribute.Format.Component); err != nil {
			return nil, err
		}
	}
	return &glPipeline{
		program:      variant.Module,
		mode:         mode,
		cull:         key.Cull == pipeline.CullModeBack,
		blend:        key.Blended(),
		model:        gl.GetUniformLocation(variant.Module, gl.Str("u_model\x00")),
		normalMatrix: gl.GetUniformLocation(variant.Module, gl.Str("u_normal_matrix\x00")),
	}, nil
}

func (b *glRendererBackendImpl) bindMaterial(s *glScene, m material.Material) *glMaterial {
	factors := m.Factors()
	data := factors.Marshal()

	out := &glMaterial{}
	gl.GenBuffers(1, &out.ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, out.ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)

	for _, bnd := range material.Resolve(m.Textures()) {
		out.textures[bnd.Slot] = b.placeholders[bnd.Slot.Placeholder()]
		out.samplers[bnd.Slot] = b.placeholderSampler
		if bnd.IsPlaceholder {
			continue
		}
		tex, texOK := s.binder.Texture(bnd.Ref.Key)
		sampler, samplerOK := s.binder.Sampler(bnd.Ref.Sampler)
		if texOK && samplerOK {
			out.textures[bnd.Slot] = tex
			out.samplers[bnd.Slot] = sampler
		}
	}
	return out
}

// preparePrimitive records a primitive's vertex and index bindings in a vertex array object.
func (b *glRendererBackendImpl) preparePrimitive(s *glScene, prim scene.Primitive, layout pipeline.PrimitiveLayout) error {
	p := &glPrimitive{instance: frame.NewInstanceUniforms(prim.World)}

	gl.GenVertexArrays(1, &p.vao)
	gl.BindVertexArray(p.vao)

	for i, slot := range layout.Layout.Slots() {
		src := layout.Sources[i]
		if src.View == pipeline.DefaultNormalView {
			continue
		}
		buf, ok := s.binder.Buffer(src.View)
		if !ok {
			gl.BindVertexArray(0)
			gl.DeleteVertexArrays(1, &p.vao)
			return fmt.Errorf("buffer view %d was not uploaded", src.View)
		}
		typ, err := glComponentType(slot.Attribute.Format.Component)
		if err != nil {
			gl.BindVertexArray(0)
			gl.DeleteVertexArrays(1, &p.vao)
			return err
		}

		loc := slot.Attribute.Location
		gl.BindBuffer(gl.ARRAY_BUFFER, buf)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(
			loc,
			int32(slot.Attribute.Format.Components()),
			typ,
			slot.Attribute.Format.Normalized,
			int32(slot.Stride),
			uintptr(src.Offset)+uintptr(slot.Attribute.Offset),
		)
	}

	if layout.Index != pipeline.IndexFormatNone {
		buf, ok := s.binder.Buffer(layout.IndexView)
		if !ok {
			gl.BindVertexArray(0)
			gl.DeleteVertexArrays(1, &p.vao)
			return fmt.Errorf("index buffer view %d was not uploaded", layout.IndexView)
		}
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf)
		p.indexType = glIndexType(layout.Index)
		p.indexOffset = uintptr(layout.IndexOffset)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	s.prims[prim.ID] = p
	return nil
}

func (b *glRendererBackendImpl) Render(u frame.GPUFrameUniforms) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return 0, ErrNotInitialized
	}
	if b.width <= 0 || b.height <= 0 {
		return 0, nil
	}

	b.reclaim()

	ubo, err := b.uploads.Acquire()
	if err != nil {
		return 0, fmt.Errorf("failed to acquire frame uniform buffer: %w", err)
	}
	data := u.Marshal()
	gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, glFrameBlock, ubo)

	c := b.cfg.clearColor
	gl.Viewport(0, 0, b.width, b.height)
	gl.ClearColor(float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3]))
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	draws := 0
	if b.scene != nil && b.scene.plan != nil {
		draws = b.scene.plan.Replay(&glEncoder{scene: b.scene})
	}
	gl.BindVertexArray(0)

	b.fences = append(b.fences, glFence{
		sync: gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0),
		ubo:  ubo,
	})
	b.win.SwapBuffers()
	return draws, nil
}

// reclaim returns the uniform buffers of completed frames to the ring. Fences are polled
// without waiting.
func (b *glRendererBackendImpl) reclaim() {
	pending := b.fences[:0]
	for _, f := range b.fences {
		status := gl.ClientWaitSync(f.sync, 0, 0)
		if status == gl.ALREADY_SIGNALED || status == gl.CONDITION_SATISFIED {
			gl.DeleteSync(f.sync)
			b.uploads.Release(f.ubo)
			continue
		}
		pending = append(pending, f)
	}
	b.fences = pending
}

func (b *glRendererBackendImpl) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unload()
}

func (b *glRendererBackendImpl) unload() {
	s := b.scene
	if s == nil {
		return
	}
	b.scene = nil

	for _, p := range s.prims {
		gl.DeleteVertexArrays(1, &p.vao)
	}
	s.materials.Each(func(_ int, m *glMaterial) {
		gl.DeleteBuffers(1, &m.ubo)
	})
	for _, v := range s.variants.Variants() {
		gl.DeleteProgram(v.Module)
	}
	s.binder.Release()
	buffers, textures, samplers := s.binder.Resources()
	if len(buffers) > 0 {
		gl.DeleteBuffers(int32(len(buffers)), &buffers[0])
	}
	if len(textures) > 0 {
		gl.DeleteTextures(int32(len(textures)), &textures[0])
	}
	if len(samplers) > 0 {
		gl.DeleteSamplers(int32(len(samplers)), &samplers[0])
	}
}

func (b *glRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.unload()
	if !b.initialized {
		return
	}

	gl.Finish()
	for _, f := range b.fences {
		gl.DeleteSync(f.sync)
		b.uploads.Release(f.ubo)
	}
	b.fences = nil
	b.uploads.Drain(func(ubo uint32) {
		gl.DeleteBuffers(1, &ubo)
	})
	gl.DeleteTextures(int32(len(b.placeholders)), &b.placeholders[0])
	gl.DeleteSamplers(1, &b.placeholderSampler)
	b.initialized = false
}

// glDevice uploads binder resources to the current context.
type glDevice struct{}

var _ binder.Device[uint32, uint32, uint32] = &glDevice{}

func (d *glDevice) CreateBuffer(_ int, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty buffer view")
	}
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return buf, nil
}

func (d *glDevice) CreateTexture(key binder.TextureKey, staging common.TextureStagingData) (uint32, error) {
	if len(staging.Levels) == 0 {
		return 0, fmt.Errorf("texture %q has no levels", staging.Label)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	for level, mip := range staging.Levels {
		gl.TexImage2D(
			gl.TEXTURE_2D,
			int32(level),
			glInternalFormat(key.SRGB),
			int32(mip.Width),
			int32(mip.Height),
			0,
			gl.RGBA,
			gl.UNSIGNED_BYTE,
			gl.Ptr(mip.Pixels),
		)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, int32(len(staging.Levels)-1))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex, nil
}

func (d *glDevice) CreateSampler(desc binder.SamplerDescriptor) (uint32, error) {
	var s uint32
	gl.GenSamplers(1, &s)
	gl.SamplerParameteri(s, gl.TEXTURE_MIN_FILTER, glMinFilter(desc))
	gl.SamplerParameteri(s, gl.TEXTURE_MAG_FILTER, glMagFilter(desc))
	gl.SamplerParameteri(s, gl.TEXTURE_WRAP_S, glWrap(desc.AddressU))
	gl.SamplerParameteri(s, gl.TEXTURE_WRAP_T, glWrap(desc.AddressV))
	return s, nil
}

// glEncoder replays a draw plan as immediate GL calls.
type glEncoder struct {
	scene   *glScene
	current *glPipeline
}

var _ batch.Encoder = &glEncoder{}

func (e *glEncoder) SetPipeline(id pipeline.ID) {
	p, ok := e.scene.pipelines.Get(id)
	if !ok {
		e.current = nil
		return
	}
	e.current = p

	gl.UseProgram(p.program)
	if p.cull {
		gl.Enable(gl.CULL_FACE)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	if p.blend {
		gl.Enable(gl.BLEND)
		gl.DepthMask(false)
	} else {
		gl.Disable(gl.BLEND)
		gl.DepthMask(true)
	}
}

func (e *glEncoder) SetMaterial(id int) {
	m, ok := e.scene.materials.Get(id)
	if !ok {
		return
	}
	gl.BindBufferBase(gl.UNIFORM_BUFFER, glMaterialBlock, m.ubo)
	for unit := range material.SlotCount {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, m.textures[unit])
		gl.BindSampler(uint32(unit), m.samplers[unit])
	}
}

func (e *glEncoder) Draw(primitive int, count uint32) {
	if p := e.bind(primitive); p != nil {
		gl.DrawArrays(e.current.mode, 0, int32(count))
	}
}

func (e *glEncoder) DrawIndexed(primitive int, count uint32) {
	if p := e.bind(primitive); p != nil {
		gl.DrawElementsWithOffset(e.current.mode, int32(count), p.indexType, p.indexOffset)
	}
}

func (e *glEncoder) bind(primitive int) *glPrimitive {
	p, ok := e.scene.prims[primitive]
	if !ok || e.current == nil {
		return nil
	}
	gl.UniformMatrix4fv(e.current.model, 1, false, &p.instance.Model[0])
	gl.UniformMatrix4fv(e.current.normalMatrix, 1, false, &p.instance.NormalMatrix[0])
	gl.BindVertexArray(p.vao)
	return p
}
