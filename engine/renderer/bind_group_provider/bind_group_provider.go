package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrMissingResource is returned by Entries when a layout binding has no resource set on the
// provider.
var ErrMissingResource = errors.New("bind group binding has no resource")

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroup is the GPU bind group created for this provider, or nil until SetBindGroup.
	bindGroup *wgpu.BindGroup
	// buffers holds the uniform buffers owned by this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds borrowed texture views keyed by binding index. Views belong to the
	// texture binder or the placeholder set and are not released here.
	textureViews map[int]*wgpu.TextureView
	// samplers holds borrowed samplers keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider collects the resources of one WebGPU bind group: the frame group, a
// material group or a primitive's instance group.
//
// Usage pattern:
//  1. The backend creates a provider and sets the buffers, views and samplers per binding
//  2. Entries resolves the bind group entries against the group's layout descriptor
//  3. The backend creates the bind group and stores it with SetBindGroup
//  4. BindGroup() is bound during draw replay
type BindGroupProvider interface {
	// Release releases the bind group and the owned buffers. Borrowed views and samplers are
	// only forgotten.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil before SetBindGroup.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// SetBindGroup stores the bind group created from Entries.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// Buffer returns the buffer at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer stores an owned buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer, released with the provider
	SetBuffer(binding int, buf *wgpu.Buffer)

	// TextureView returns the texture view at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// SetTextureView stores a borrowed texture view at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// Sampler returns the sampler at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// SetSampler stores a borrowed sampler at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// Entries builds the bind group entries for a layout. Each layout entry is classified as a
	// texture, a sampler or a buffer binding and resolved against the resources set on the
	// provider. Buffers are bound whole.
	//
	// Parameters:
	//   - descriptor: the layout descriptor the bind group is created against
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: one entry per layout entry, in layout order
	//   - error: ErrMissingResource naming the first unresolved binding
	Entries(descriptor wgpu.BindGroupLayoutDescriptor) ([]wgpu.BindGroupEntry, error)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label of the group
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Entries(descriptor wgpu.BindGroupLayoutDescriptor) ([]wgpu.BindGroupEntry, error) {
	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture:
			tv := p.textureViews[binding]
			if tv == nil {
				return nil, fmt.Errorf("%s: texture binding %d: %w", p.label, binding, ErrMissingResource)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		case isSampler:
			s := p.samplers[binding]
			if s == nil {
				return nil, fmt.Errorf("%s: sampler binding %d: %w", p.label, binding, ErrMissingResource)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: s,
			}
		default:
			buf := p.buffers[binding]
			if buf == nil {
				return nil, fmt.Errorf("%s: buffer binding %d: %w", p.label, binding, ErrMissingResource)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}
	return entries, nil
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	clear(p.textureViews)
	clear(p.samplers)
}
