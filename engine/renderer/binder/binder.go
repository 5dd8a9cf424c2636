package binder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrReleased is returned by Bind after Release.
var ErrReleased = errors.New("binder released")

// Align4 rounds n up to the next multiple of 4.
//
// Parameters:
//   - n: a byte count
//
// Returns:
//   - int: n aligned to 4
func Align4(n int) int {
	return (n + 3) &^ 3
}

// PadTo4 returns data zero-padded to a multiple of 4 bytes. Already aligned data is returned as is.
//
// Parameters:
//   - data: the bytes to pad
//
// Returns:
//   - []byte: the padded bytes
func PadTo4(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	padded := make([]byte, Align4(len(data)))
	copy(padded, data)
	return padded
}

// TextureKey identifies one GPU texture: an image decoded for sRGB or linear sampling.
type TextureKey struct {
	Image int
	SRGB  bool
}

// TextureSource resolves a glTF texture index to the texture key and sampler it binds.
//
// Parameters:
//   - doc: the document
//   - texture: the texture index
//   - srgb: whether the slot holds color data
//
// Returns:
//   - TextureKey: the image key
//   - SamplerDescriptor: the sampler, DefaultSampler when the texture names none
//   - bool: false if the texture index or its image is missing
func TextureSource(doc *gltf.Document, texture int, srgb bool) (TextureKey, SamplerDescriptor, bool) {
	if texture < 0 || texture >= len(doc.Textures) {
		return TextureKey{}, SamplerDescriptor{}, false
	}
	tex := doc.Textures[texture]
	if tex.Source == nil || int(*tex.Source) < 0 || int(*tex.Source) >= len(doc.Images) {
		return TextureKey{}, SamplerDescriptor{}, false
	}

	desc := DefaultSampler
	if tex.Sampler != nil && int(*tex.Sampler) >= 0 && int(*tex.Sampler) < len(doc.Samplers) {
		desc = SamplerFromCodes(CodesFromGLTF(doc.Samplers[*tex.Sampler]))
	}
	return TextureKey{Image: int(*tex.Source), SRGB: srgb}, desc, true
}

// Device creates the backend objects the binder caches.
type Device[B, T, S any] interface {
	// CreateBuffer uploads one buffer view, already padded to 4 bytes.
	CreateBuffer(view int, data []byte) (B, error)

	// CreateTexture uploads a decoded image with its staged mip chain.
	CreateTexture(key TextureKey, staging common.TextureStagingData) (T, error)

	// CreateSampler creates a sampler for a descriptor.
	CreateSampler(desc SamplerDescriptor) (S, error)
}

// binder is the implementation of the Binder interface.
type binder[B, T, S any] struct {
	mu      *sync.Mutex
	mipmaps bool
	workers int
	pool    worker.DynamicWorkerPool
	// released is set once the pool has been stopped.
	released bool

	buffers  map[int]B
	textures map[TextureKey]T
	samplers map[SamplerDescriptor]S
}

// Binder is the side table of GPU resources derived from a scene: one buffer per glTF buffer view,
// one texture per (image, color space) and one sampler per distinct descriptor. The scene and its
// document are never mutated.
type Binder[B, T, S any] interface {
	// Bind stages and uploads every buffer view, texture and sampler the scene's primitives and
	// materials reference. Staging (buffer slicing, image decode, mip generation) runs concurrently
	// and is joined before the first device call; uploads happen on the calling goroutine.
	// Images that fail to load are logged and left unbound so their slots fall back to
	// placeholders.
	//
	// Parameters:
	//   - ctx: cancels staging
	//   - sc: the scene to bind
	//   - dev: the backend device
	//
	// Returns:
	//   - error: a malformed buffer reference, a device error, or the context error
	Bind(ctx context.Context, sc scene.Scene, dev Device[B, T, S]) error

	// Buffer returns the GPU buffer of a buffer view.
	Buffer(view int) (B, bool)

	// Texture returns the GPU texture of an image key.
	Texture(key TextureKey) (T, bool)

	// Sampler returns the GPU sampler of a descriptor.
	Sampler(desc SamplerDescriptor) (S, bool)

	// Mipmaps reports whether textures are uploaded with a full mip chain.
	Mipmaps() bool

	// Resources returns every cached object, for release.
	Resources() (buffers []B, textures []T, samplers []S)

	// Release stops the staging worker pool. The cached GPU objects stay valid and are destroyed
	// by the caller through Resources. Bind fails with ErrReleased afterwards. Safe to call more
	// than once.
	Release()
}

var _ Binder[int, int, int] = &binder[int, int, int]{}

// NewBinder creates an empty Binder.
//
// Parameters:
//   - options: BinderBuilderOption functions
//
// Returns:
//   - Binder[B, T, S]: the binder
func NewBinder[B, T, S any](options ...BinderBuilderOption) Binder[B, T, S] {
	cfg := &binderConfig{
		mipmaps: true,
		workers: 4,
	}
	for _, opt := range options {
		opt(cfg)
	}

	return &binder[B, T, S]{
		mu:       &sync.Mutex{},
		mipmaps:  cfg.mipmaps,
		workers:  cfg.workers,
		pool:     worker.NewDynamicWorkerPool(cfg.workers, 256, 1*time.Second),
		buffers:  make(map[int]B),
		textures: make(map[TextureKey]T),
		samplers: make(map[SamplerDescriptor]S),
	}
}

// references is the set of resources a scene needs.
type references struct {
	views    []int
	textures []TextureKey
	samplers []SamplerDescriptor
}

func collect(doc *gltf.Document, prims []scene.Primitive) references {
	var refs references
	seenView := make(map[int]bool)
	seenTex := make(map[TextureKey]bool)
	seenSampler := make(map[SamplerDescriptor]bool)
	seenMat := make(map[int]bool)

	addAccessor := func(acc int) {
		if acc < 0 || acc >= len(doc.Accessors) || doc.Accessors[acc].BufferView == nil {
			return
		}
		v := int(*doc.Accessors[acc].BufferView)
		if !seenView[v] {
			seenView[v] = true
			refs.views = append(refs.views, v)
		}
	}
	addTexture := func(index *int, srgb bool) {
		if index == nil {
			return
		}
		key, desc, ok := TextureSource(doc, int(*index), srgb)
		if !ok {
			return
		}
		if !seenTex[key] {
			seenTex[key] = true
			refs.textures = append(refs.textures, key)
		}
		if !seenSampler[desc] {
			seenSampler[desc] = true
			refs.samplers = append(refs.samplers, desc)
		}
	}

	for _, p := range prims {
		for _, acc := range p.Attributes {
			addAccessor(acc)
		}
		if p.Indices != nil {
			addAccessor(*p.Indices)
		}

		if p.Material == scene.DefaultMaterial || seenMat[p.Material] {
			continue
		}
		seenMat[p.Material] = true
		m := doc.Materials[p.Material]
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorTexture != nil {
				addTexture(&pbr.BaseColorTexture.Index, true)
			}
			if pbr.MetallicRoughnessTexture != nil {
				addTexture(&pbr.MetallicRoughnessTexture.Index, false)
			}
		}
		if m.NormalTexture != nil {
			addTexture(m.NormalTexture.Index, false)
		}
		if m.OcclusionTexture != nil {
			addTexture(m.OcclusionTexture.Index, false)
		}
		if m.EmissiveTexture != nil {
			addTexture(&m.EmissiveTexture.Index, true)
		}
	}

	slices.Sort(refs.views)
	return refs
}

func viewBytes(doc *gltf.Document, view int) ([]byte, error) {
	if view < 0 || view >= len(doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", view)
	}
	bv := doc.BufferViews[view]
	if int(bv.Buffer) < 0 || int(bv.Buffer) >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer %d out of range", view, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data
	start, end := int(bv.ByteOffset), int(bv.ByteOffset)+int(bv.ByteLength)
	if start < 0 || end > len(data) || start > end {
		return nil, fmt.Errorf("buffer view %d: range [%d, %d) exceeds buffer of %d bytes", view, start, end, len(data))
	}
	return data[start:end], nil
}

func imageBytes(doc *gltf.Document, baseDir string, index int) ([]byte, error) {
	img := doc.Images[index]
	if img.BufferView != nil {
		return viewBytes(doc, int(*img.BufferView))
	}
	if img.IsEmbeddedResource() {
		return img.MarshalData()
	}
	if img.URI == "" {
		return nil, fmt.Errorf("image %d has neither a uri nor a buffer view", index)
	}
	p, err := url.PathUnescape(img.URI)
	if err != nil {
		return nil, fmt.Errorf("image %d: invalid uri: %w", index, err)
	}
	return os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(p)))
}

func (b *binder[B, T, S]) Bind(ctx context.Context, sc scene.Scene, dev Device[B, T, S]) error {
	b.mu.Lock()
	released := b.released
	b.mu.Unlock()
	if released {
		return ErrReleased
	}

	doc := sc.Document()
	refs := collect(doc, sc.Primitives())

	stagedBuffers := make(map[int][]byte, len(refs.views))
	decoded := make(map[int][]common.MipLevel)
	var stageMu sync.Mutex

	images := make([]int, 0, len(refs.textures))
	for _, key := range refs.textures {
		if !slices.Contains(images, key.Image) {
			images = append(images, key.Image)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for _, v := range refs.views {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := viewBytes(doc, v)
			if err != nil {
				return err
			}
			padded := PadTo4(data)
			stageMu.Lock()
			stagedBuffers[v] = padded
			stageMu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		// the worker pool has no per-batch join, so a WaitGroup is the barrier
		var wg sync.WaitGroup
		for _, idx := range images {
			wg.Add(1)
			imgIdx := idx
			b.pool.SubmitTask(worker.Task{
				ID: imgIdx,
				Do: func() (any, error) {
					defer wg.Done()
					if gctx.Err() != nil {
						return nil, gctx.Err()
					}

					levels, err := b.stageImage(doc, sc.BaseDir(), imgIdx)
					if err != nil {
						logger.L().Warn("image skipped, using placeholder",
							zap.Int("image", imgIdx),
							zap.Error(err),
						)
						return nil, err
					}

					stageMu.Lock()
					decoded[imgIdx] = levels
					stageMu.Unlock()
					return nil, nil
				},
			})
		}
		wg.Wait()
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to stage scene resources: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, v := range refs.views {
		if _, ok := b.buffers[v]; ok {
			continue
		}
		buf, err := dev.CreateBuffer(v, stagedBuffers[v])
		if err != nil {
			return fmt.Errorf("failed to create buffer for view %d: %w", v, err)
		}
		b.buffers[v] = buf
	}

	for _, key := range refs.textures {
		levels, ok := decoded[key.Image]
		if !ok {
			continue
		}
		if _, ok := b.textures[key]; ok {
			continue
		}
		name := doc.Images[key.Image].Name
		if name == "" {
			name = fmt.Sprintf("image_%d", key.Image)
		}
		tex, err := dev.CreateTexture(key, common.TextureStagingData{
			Label:  name,
			Levels: levels,
			SRGB:   key.SRGB,
		})
		if err != nil {
			return fmt.Errorf("failed to create texture for image %d: %w", key.Image, err)
		}
		b.textures[key] = tex
	}

	for _, desc := range refs.samplers {
		if _, ok := b.samplers[desc]; ok {
			continue
		}
		s, err := dev.CreateSampler(desc)
		if err != nil {
			return fmt.Errorf("failed to create sampler: %w", err)
		}
		b.samplers[desc] = s
	}

	logger.L().Info("scene resources bound",
		zap.Int("buffers", len(b.buffers)),
		zap.Int("textures", len(b.textures)),
		zap.Int("samplers", len(b.samplers)),
		zap.Int("workers", b.workers),
	)
	return nil
}

func (b *binder[B, T, S]) stageImage(doc *gltf.Document, baseDir string, index int) ([]common.MipLevel, error) {
	data, err := imageBytes(doc, baseDir, index)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if !b.mipmaps {
		return []common.MipLevel{levelFrom(img)}, nil
	}
	return GenerateMips(img), nil
}

func (b *binder[B, T, S]) Buffer(view int) (B, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[view]
	return buf, ok
}

func (b *binder[B, T, S]) Texture(key TextureKey) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.textures[key]
	return tex, ok
}

func (b *binder[B, T, S]) Sampler(desc SamplerDescriptor) (S, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.samplers[desc]
	return s, ok
}

func (b *binder[B, T, S]) Mipmaps() bool {
	return b.mipmaps
}

func (b *binder[B, T, S]) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.pool.Stop()
}

func (b *binder[B, T, S]) Resources() (buffers []B, textures []T, samplers []S) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, buf := range b.buffers {
		buffers = append(buffers, buf)
	}
	for _, tex := range b.textures {
		textures = append(textures, tex)
	}
	for _, s := range b.samplers {
		samplers = append(samplers, s)
	}
	return buffers, textures, samplers
}
