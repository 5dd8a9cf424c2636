package renderer

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/assembler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/binder"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/naga"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// Bind group indices of the PBR module.
const (
	wgpuGroupFrame    = 0
	wgpuGroupMaterial = 1
	wgpuGroupInstance = 2
)

// wgpuTexture is a sampled texture and its default view.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

// wgpuPrimitive is the per-primitive draw state: vertex buffer bindings, the index binding and
// the instance group.
type wgpuPrimitive struct {
	vertexBuffers [pipeline.MaxVertexBuffers]*wgpu.Buffer
	vertexOffsets [pipeline.MaxVertexBuffers]uint64
	slots         int

	indexBuffer *wgpu.Buffer
	indexFormat wgpu.IndexFormat
	indexOffset uint64
	// ownsIndex is set when the index buffer was widened from uint8 and belongs to the primitive.
	ownsIndex bool

	instance bind_group_provider.BindGroupProvider
}

func (p *wgpuPrimitive) Release() {
	if p.ownsIndex && p.indexBuffer != nil {
		p.indexBuffer.Release()
	}
	if p.instance != nil {
		p.instance.Release()
	}
}

// wgpuScene holds every GPU object derived from one loaded scene.
type wgpuScene struct {
	binder    binder.Binder[*wgpu.Buffer, *wgpuTexture, *wgpu.Sampler]
	variants  shader.Cache[*wgpu.ShaderModule]
	pipelines pipeline.Cache[*wgpu.RenderPipeline]
	materials material.Table[bind_group_provider.BindGroupProvider]
	prims     map[int]*wgpuPrimitive
	plan      *batch.Plan
}

// wgpuRendererBackendImpl is the WebGPU implementation of RendererBackend.
type wgpuRendererBackendImpl struct {
	mu  *sync.Mutex
	win window.Window
	cfg rendererConfig

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   wgpu.PresentMode

	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	frameLayoutDesc    wgpu.BindGroupLayoutDescriptor
	materialLayoutDesc wgpu.BindGroupLayoutDescriptor
	instanceLayoutDesc wgpu.BindGroupLayoutDescriptor
	frameLayout        *wgpu.BindGroupLayout
	materialLayout     *wgpu.BindGroupLayout
	instanceLayout     *wgpu.BindGroupLayout
	pipelineLayout     *wgpu.PipelineLayout

	// frameGroup owns the frame uniform buffer at binding 0.
	frameGroup bind_group_provider.BindGroupProvider
	// uploads rotates the mapped staging buffers the frame uniforms are copied from.
	uploads            frame.Ring[*wgpu.Buffer]
	placeholders       [material.PlaceholderCount]*wgpuTexture
	placeholderSampler *wgpu.Sampler
	defaultNormal      *wgpu.Buffer

	scene *wgpuScene
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(win window.Window, cfg rendererConfig) RendererBackend {
	return &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		win:         win,
		cfg:         cfg,
		presentMode: wgpuPresentMode(cfg.presentMode),
	}
}

func (b *wgpuRendererBackendImpl) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	runtime.LockOSThread()
	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(b.win.SurfaceDescriptor())

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.cfg.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return fmt.Errorf("%w: request adapter: %w", ErrBackendUnavailable, err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: request device: %w", ErrBackendUnavailable, err)
	}
	b.device = d
	b.queue = d.GetQueue()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return fmt.Errorf("%w: surface is not compatible with the adapter", ErrBackendUnavailable)
	}
	b.surfaceFormat = capabilities.Formats[0]
	b.alphaMode = capabilities.AlphaModes[0]

	logger.L().Info("wgpu device acquired",
		zap.Bool("fallback", b.cfg.forceFallbackAdapter),
		zap.Uint32("surface_format", uint32(b.surfaceFormat)),
		zap.Uint32("msaa", uint32(b.cfg.msaa)),
	)

	if err := b.createLayouts(); err != nil {
		return err
	}
	if err := b.createFrameResources(); err != nil {
		return err
	}
	return b.createPlaceholders()
}

// createLayouts builds the fixed frame, material and instance bind group layouts shared by
// every pipeline.
func (b *wgpuRendererBackendImpl) createLayouts() error {
	var frameUniforms frame.GPUFrameUniforms
	var instanceUniforms frame.GPUInstanceUniforms
	var factors material.GPUMaterialFactors

	b.frameLayoutDesc = wgpu.BindGroupLayoutDescriptor{
		Label: "Frame Layout",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64(frameUniforms.Size()),
			},
		}},
	}

	materialEntries := []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: wgpu.ShaderStageFragment,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: uint64(factors.Size()),
		},
	}}
	for slot := range material.SlotCount {
		materialEntries = append(materialEntries,
			wgpu.BindGroupLayoutEntry{
				Binding:    wgpuTextureBinding(material.Slot(slot)),
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			wgpu.BindGroupLayoutEntry{
				Binding:    wgpuSamplerBinding(material.Slot(slot)),
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		)
	}
	b.materialLayoutDesc = wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Layout",
		Entries: materialEntries,
	}

	b.instanceLayoutDesc = wgpu.BindGroupLayoutDescriptor{
		Label: "Instance Layout",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64(instanceUniforms.Size()),
			},
		}},
	}

	var err error
	if b.frameLayout, err = b.device.CreateBindGroupLayout(&b.frameLayoutDesc); err != nil {
		return fmt.Errorf("failed to create frame layout: %w", err)
	}
	if b.materialLayout, err = b.device.CreateBindGroupLayout(&b.materialLayoutDesc); err != nil {
		return fmt.Errorf("failed to create material layout: %w", err)
	}
	if b.instanceLayout, err = b.device.CreateBindGroupLayout(&b.instanceLayoutDesc); err != nil {
		return fmt.Errorf("failed to create instance layout: %w", err)
	}

	b.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "PBR Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.frameLayout, b.materialLayout, b.instanceLayout},
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	return nil
}

// createFrameResources creates the frame uniform buffer and group, the upload ring and the
// constant default normal.
func (b *wgpuRendererBackendImpl) createFrameResources() error {
	var u frame.GPUFrameUniforms
	size := uint64(u.Size())

	ubo, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Frame Uniforms",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.frameGroup = bind_group_provider.NewBindGroupProvider("Frame", bind_group_provider.WithBuffer(0, ubo))
	if err := b.createBindGroup(b.frameGroup, b.frameLayout, b.frameLayoutDesc); err != nil {
		return err
	}

	b.uploads = frame.NewRing(func() (*wgpu.Buffer, error) {
		return b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            "Frame Upload",
			Size:             size,
			Usage:            wgpu.BufferUsageMapWrite | wgpu.BufferUsageCopySrc,
			MappedAtCreation: true,
		})
	})

	normal := common.SliceToBytes([]float32{0, 0, 1, 0})
	b.defaultNormal, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Default Normal",
		Size:  uint64(len(normal)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(b.defaultNormal, 0, normal)
	return nil
}

func (b *wgpuRendererBackendImpl) createPlaceholders() error {
	dev := &wgpuDevice{b: b}
	for i := range material.PlaceholderCount {
		tex, err := dev.CreateTexture(binder.TextureKey{Image: -1}, material.Placeholder(i).Texture())
		if err != nil {
			return fmt.Errorf("failed to create placeholder %d: %w", i, err)
		}
		b.placeholders[i] = tex
	}
	s, err := dev.CreateSampler(material.PlaceholderSampler)
	if err != nil {
		return err
	}
	b.placeholderSampler = s
	return nil
}

func (b *wgpuRendererBackendImpl) createBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout, desc wgpu.BindGroupLayoutDescriptor) error {
	entries, err := provider.Entries(desc)
	if err != nil {
		return err
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bg)
	return nil
}

func (b *wgpuRendererBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil || width <= 0 || height <= 0 {
		return
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   b.alphaMode,
	})

	b.releaseAttachments()
	if err := b.createAttachments(uint32(width), uint32(height)); err != nil {
		logger.L().Error("failed to create render attachments", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
		b.releaseAttachments()
	}
}

// createAttachments builds the MSAA color target, the depth target and the cached render pass
// descriptor for a surface size.
func (b *wgpuRendererBackendImpl) createAttachments(width, height uint32) error {
	count := uint32(b.cfg.msaa)
	msaaEnabled := count > 1
	size := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	if msaaEnabled {
		// The pass draws into the MSAA texture and resolves into the swapchain view.
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return err
		}
		b.msaaTexture = tex
		if b.msaaTextureView, err = tex.CreateView(nil); err != nil {
			return err
		}
	}

	// Depth texture sample count must match the color attachment.
	depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	b.depthTexture = depth
	if b.depthTextureView, err = depth.CreateView(nil); err != nil {
		return err
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	c := b.cfg.clearColor
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    b.msaaTextureView, // nil when MSAA is off; set per frame
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: storeOp,
			ClearValue: wgpu.Color{
				R: c[0], G: c[1], B: c[2], A: c[3],
			},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	return nil
}

func (b *wgpuRendererBackendImpl) releaseAttachments() {
	b.renderPassDescriptor = nil
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = wgpuPresentMode(mode)
}

func (b *wgpuRendererBackendImpl) Load(ctx context.Context, sc scene.Scene, lightCount int) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return Stats{}, ErrNotInitialized
	}

	s := &wgpuScene{
		binder:    binder.NewBinder[*wgpu.Buffer, *wgpuTexture, *wgpu.Sampler](binder.WithMipmaps(b.cfg.mipmaps), binder.WithWorkers(b.cfg.workers)),
		variants:  shader.NewCache(shader.WGSLSources(), b.compileVariant),
		pipelines: pipeline.NewCache[*wgpu.RenderPipeline](),
		materials: material.NewTable[bind_group_provider.BindGroupProvider](sc.Document()),
		prims:     make(map[int]*wgpuPrimitive),
	}
	b.scene = s

	if err := s.binder.Bind(ctx, sc, &wgpuDevice{b: b}); err != nil {
		return Stats{}, err
	}

	res, err := assembler.Assemble(sc, assembler.Config[*wgpu.ShaderModule, *wgpu.RenderPipeline, bind_group_provider.BindGroupProvider]{
		Variants:       s.variants,
		Pipelines:      s.pipelines,
		Materials:      s.materials,
		LightCount:     lightCount,
		CreatePipeline: b.createPipeline,
		Validate:       wgpuValidateLayout,
		BindMaterial: func(m material.Material) (bind_group_provider.BindGroupProvider, error) {
			return b.bindMaterial(s, m)
		},
		Prepare: func(prim scene.Primitive, layout pipeline.PrimitiveLayout) error {
			return b.preparePrimitive(sc, s, prim, layout)
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

// compileVariant creates the shader module of a variant. The expanded WGSL is validated with
// naga first; a validation failure is logged and the device has the final say.
func (b *wgpuRendererBackendImpl) compileVariant(flags shader.Flags, vertex, _ string) (*wgpu.ShaderModule, error) {
	if _, err := naga.Compile(vertex); err != nil {
		logger.L().Warn("naga rejected shader variant", zap.Stringer("flags", flags), zap.Error(err))
	}
	return b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "PBR " + flags.String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: vertex,
		},
	})
}

func (b *wgpuRendererBackendImpl) createPipeline(key pipeline.Key, variant *shader.Variant[*wgpu.ShaderModule]) (*wgpu.RenderPipeline, error) {
	buffers, err := wgpuVertexBuffers(key.Layout)
	if err != nil {
		return nil, err
	}
	topology, err := wgpuTopology(key.Topology)
	if err != nil {
		return nil, err
	}

	primitive := wgpu.PrimitiveState{
		Topology:  topology,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpuCullMode(key.Cull),
	}
	if key.Topology.IsStrip() {
		primitive.StripIndexFormat = wgpuIndexFormat(key.Index)
	}

	target := wgpu.ColorTargetState{
		Format:    b.surfaceFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if key.Blended() {
		blend := wgpuAlphaBlend
		target.Blend = &blend
	}

	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key.String(),
		Layout: b.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     variant.Module,
			EntryPoint: shader.VertexEntryPoint,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     variant.Module,
			EntryPoint: shader.FragmentEntryPoint,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.cfg.msaa),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: !key.Blended(),
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
}

// bindMaterial creates a material's factor buffer and bind group. Every slot is bound: the
// material's texture when it was uploaded, otherwise the slot's placeholder.
func (b *wgpuRendererBackendImpl) bindMaterial(s *wgpuScene, m material.Material) (bind_group_provider.BindGroupProvider, error) {
	factors := m.Factors()
	data := factors.Marshal()

	label := fmt.Sprintf("Material %d", m.Index())
	ubo, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	provider := bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBuffer(0, ubo))
	bind_group_provider.Write(b.queue, bind_group_provider.BufferWrite{Provider: provider, Binding: 0, Data: data})
	for _, bnd := range material.Resolve(m.Textures()) {
		view, sampler := b.slotResources(s, bnd)
		provider.SetTextureView(int(wgpuTextureBinding(bnd.Slot)), view)
		provider.SetSampler(int(wgpuSamplerBinding(bnd.Slot)), sampler)
	}

	if err := b.createBindGroup(provider, b.materialLayout, b.materialLayoutDesc); err != nil {
		provider.Release()
		return nil, err
	}
	return provider, nil
}

func (b *wgpuRendererBackendImpl) slotResources(s *wgpuScene, bnd material.Binding) (*wgpu.TextureView, *wgpu.Sampler) {
	if !bnd.IsPlaceholder {
		tex, texOK := s.binder.Texture(bnd.Ref.Key)
		sampler, samplerOK := s.binder.Sampler(bnd.Ref.Sampler)
		if texOK && samplerOK {
			return tex.view, sampler
		}
	}
	return b.placeholders[bnd.Slot.Placeholder()].view, b.placeholderSampler
}

// preparePrimitive resolves a primitive's vertex and index buffers and creates its instance
// group. The layout has already passed wgpuValidateLayout.
func (b *wgpuRendererBackendImpl) preparePrimitive(sc scene.Scene, s *wgpuScene, prim scene.Primitive, layout pipeline.PrimitiveLayout) error {
	p := &wgpuPrimitive{slots: layout.Layout.Count}

	for i := range layout.Layout.Count {
		src := layout.Sources[i]
		if src.View == pipeline.DefaultNormalView {
			p.vertexBuffers[i] = b.defaultNormal
			continue
		}
		buf, ok := s.binder.Buffer(src.View)
		if !ok {
			return fmt.Errorf("buffer view %d was not uploaded", src.View)
		}
		p.vertexBuffers[i] = buf
		p.vertexOffsets[i] = src.Offset
	}

	if layout.Index != pipeline.IndexFormatNone {
		if err := b.prepareIndices(sc, s, p, layout); err != nil {
			return err
		}
	}

	instance := frame.NewInstanceUniforms(prim.World)
	data := instance.Marshal()
	ubo, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Instance %d", prim.ID),
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return err
	}

	p.instance = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Instance %d", prim.ID), bind_group_provider.WithBuffer(0, ubo))
	bind_group_provider.Write(b.queue, bind_group_provider.BufferWrite{Provider: p.instance, Binding: 0, Data: data})
	if err := b.createBindGroup(p.instance, b.instanceLayout, b.instanceLayoutDesc); err != nil {
		p.Release()
		return err
	}

	s.prims[prim.ID] = p
	return nil
}

// prepareIndices binds the index data of a primitive. uint8 indices are widened into a uint16
// buffer owned by the primitive; wider formats bind the uploaded buffer view directly.
func (b *wgpuRendererBackendImpl) prepareIndices(sc scene.Scene, s *wgpuScene, p *wgpuPrimitive, layout pipeline.PrimitiveLayout) error {
	p.indexFormat = wgpuIndexFormat(layout.Index)

	if layout.Index == pipeline.IndexFormatUint8 {
		doc := sc.Document()
		indices, err := modeler.ReadIndices(doc, doc.Accessors[layout.IndexAccessor], nil)
		if err != nil {
			return fmt.Errorf("failed to read indices: %w", err)
		}
		data := make([]byte, binder.Align4(len(indices)*2))
		for i, idx := range indices {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(idx))
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("Widened Indices %d", layout.IndexAccessor),
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, data)
		p.indexBuffer = buf
		p.ownsIndex = true
		return nil
	}

	buf, ok := s.binder.Buffer(layout.IndexView)
	if !ok {
		return fmt.Errorf("index buffer view %d was not uploaded", layout.IndexView)
	}
	p.indexBuffer = buf
	p.indexOffset = layout.IndexOffset
	return nil
}

func (b *wgpuRendererBackendImpl) Render(u frame.GPUFrameUniforms) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return 0, ErrNotInitialized
	}
	if b.renderPassDescriptor == nil {
		return 0, nil
	}

	// Completed map callbacks return their staging buffers to the ring.
	b.device.Poll(false, nil)

	u.Projection = frame.WebGPUClip.Mul4(mgl32.Mat4(u.Projection))
	data := u.Marshal()

	staging, err := b.uploads.Acquire()
	if err != nil {
		return 0, fmt.Errorf("failed to acquire frame upload buffer: %w", err)
	}
	copy(staging.GetMappedRange(0, uint(len(data))), data)
	staging.Unmap()
	defer b.recycle(staging, uint64(len(data)))

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return 0, err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return 0, err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return 0, err
	}
	defer encoder.Release()

	encoder.CopyBufferToBuffer(staging, 0, b.frameGroup.Buffer(0), 0, uint64(len(data)))

	// With MSAA the swapchain view is the resolve target, otherwise it is drawn to directly.
	if b.cfg.msaa > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)
	pass.SetBindGroup(wgpuGroupFrame, b.frameGroup.BindGroup(), nil)

	draws := 0
	if b.scene != nil && b.scene.plan != nil {
		draws = b.scene.plan.Replay(&wgpuEncoder{pass: pass, scene: b.scene})
	}
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return 0, err
	}
	defer commandBuffer.Release()

	b.queue.Submit(commandBuffer)
	b.surface.Present()
	return draws, nil
}

// recycle maps a staging buffer for writing again; it re-enters the ring once the GPU is done
// with the copy that reads it.
func (b *wgpuRendererBackendImpl) recycle(staging *wgpu.Buffer, size uint64) {
	staging.MapAsync(wgpu.MapModeWrite, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			logger.L().Warn("frame upload buffer map failed", zap.Int("status", int(status)))
			staging.Release()
			return
		}
		b.uploads.Release(staging)
	})
}

func (b *wgpuRendererBackendImpl) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unload()
}

func (b *wgpuRendererBackendImpl) unload() {
	s := b.scene
	if s == nil {
		return
	}
	b.scene = nil

	for _, p := range s.prims {
		p.Release()
	}
	if s.materials != nil {
		s.materials.Each(func(_ int, provider bind_group_provider.BindGroupProvider) {
			provider.Release()
		})
	}
	if s.pipelines != nil {
		s.pipelines.Each(func(_ pipeline.ID, _ pipeline.Key, p *wgpu.RenderPipeline) {
			p.Release()
		})
	}
	if s.variants != nil {
		for _, v := range s.variants.Variants() {
			v.Module.Release()
		}
	}
	s.binder.Release()
	buffers, textures, samplers := s.binder.Resources()
	for _, buf := range buffers {
		buf.Release()
	}
	for _, tex := range textures {
		tex.Release()
	}
	for _, sampler := range samplers {
		sampler.Release()
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.unload()
	if b.device == nil {
		return
	}

	// Flush outstanding map callbacks so in-flight uploads return to the ring.
	b.device.Poll(true, nil)
	b.uploads.Drain(func(buf *wgpu.Buffer) {
		buf.Release()
	})

	b.releaseAttachments()
	for i, tex := range b.placeholders {
		if tex != nil {
			tex.Release()
			b.placeholders[i] = nil
		}
	}
	if b.placeholderSampler != nil {
		b.placeholderSampler.Release()
	}
	if b.defaultNormal != nil {
		b.defaultNormal.Release()
	}
	if b.frameGroup != nil {
		b.frameGroup.Release()
	}
	for _, l := range []*wgpu.BindGroupLayout{b.frameLayout, b.materialLayout, b.instanceLayout} {
		if l != nil {
			l.Release()
		}
	}
	if b.pipelineLayout != nil {
		b.pipelineLayout.Release()
	}

	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
	b.device = nil
}

// wgpuTextureBinding is the material group binding of a slot's texture.
func wgpuTextureBinding(slot material.Slot) uint32 {
	return 1 + 2*uint32(slot)
}

// wgpuSamplerBinding is the material group binding of a slot's sampler.
func wgpuSamplerBinding(slot material.Slot) uint32 {
	return 2 + 2*uint32(slot)
}

// wgpuDevice uploads binder resources. It is only used while the backend lock is held.
type wgpuDevice struct {
	b *wgpuRendererBackendImpl
}

var _ binder.Device[*wgpu.Buffer, *wgpuTexture, *wgpu.Sampler] = &wgpuDevice{}

func (d *wgpuDevice) CreateBuffer(view int, data []byte) (*wgpu.Buffer, error) {
	buf, err := d.b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Buffer View %d", view),
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	d.b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (d *wgpuDevice) CreateTexture(key binder.TextureKey, staging common.TextureStagingData) (*wgpuTexture, error) {
	tex, err := d.b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     staging.Label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width(),
			Height:             staging.Height(),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpuTextureFormat(key.SRGB),
		MipLevelCount: staging.MipLevelCount(),
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	for level, mip := range staging.Levels {
		d.b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(level),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			mip.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  mip.Width * 4,
				RowsPerImage: mip.Height,
			},
			&wgpu.Extent3D{
				Width:              mip.Width,
				Height:             mip.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{texture: tex, view: view}, nil
}

func (d *wgpuDevice) CreateSampler(desc binder.SamplerDescriptor) (*wgpu.Sampler, error) {
	return d.b.device.CreateSampler(wgpuSamplerDescriptor(desc))
}

// wgpuEncoder replays a draw plan into a render pass.
type wgpuEncoder struct {
	pass  *wgpu.RenderPassEncoder
	scene *wgpuScene
}

var _ batch.Encoder = &wgpuEncoder{}

func (e *wgpuEncoder) SetPipeline(id pipeline.ID) {
	if p, ok := e.scene.pipelines.Get(id); ok {
		e.pass.SetPipeline(p)
	}
}

func (e *wgpuEncoder) SetMaterial(id int) {
	if provider, ok := e.scene.materials.Get(id); ok {
		e.pass.SetBindGroup(wgpuGroupMaterial, provider.BindGroup(), nil)
	}
}

func (e *wgpuEncoder) Draw(primitive int, count uint32) {
	if e.bind(primitive) == nil {
		return
	}
	e.pass.Draw(count, 1, 0, 0)
}

func (e *wgpuEncoder) DrawIndexed(primitive int, count uint32) {
	p := e.bind(primitive)
	if p == nil || p.indexBuffer == nil {
		return
	}
	e.pass.SetIndexBuffer(p.indexBuffer, p.indexFormat, p.indexOffset, wgpu.WholeSize)
	e.pass.DrawIndexed(count, 1, 0, 0, 0)
}

func (e *wgpuEncoder) bind(primitive int) *wgpuPrimitive {
	p, ok := e.scene.prims[primitive]
	if !ok {
		return nil
	}
	e.pass.SetBindGroup(wgpuGroupInstance, p.instance.BindGroup(), nil)
	for slot := range p.slots {
		e.pass.SetVertexBuffer(uint32(slot), p.vertexBuffers[slot], p.vertexOffsets[slot], wgpu.WholeSize)
	}
	return p
}
