package frame

import (
	"fmt"
	"sync"
)

// ring is the implementation of the Ring interface.
type ring[B any] struct {
	mu       *sync.Mutex
	create   func() (B, error)
	free     []B
	created  int
	inFlight int
}

// Ring is a pool of rotating upload buffers. A buffer is acquired for one frame's writes and only
// returns to the free list when the GPU signals it is done with it (a WebGPU map callback, a GL
// fence), so a buffer still read by an earlier frame is never overwritten.
type Ring[B any] interface {
	// Acquire returns a free buffer, creating a new one when none is free.
	//
	// Returns:
	//   - B: the buffer, owned by the caller until Release
	//   - error: the create error
	Acquire() (B, error)

	// Release returns a buffer to the free list. Called from the completion callback.
	//
	// Parameters:
	//   - b: the buffer
	Release(b B)

	// Created returns the number of buffers created so far.
	Created() int

	// InFlight returns the number of acquired, unreleased buffers.
	InFlight() int

	// Drain hands every free buffer to release and empties the free list. In-flight buffers are
	// left to their owners.
	//
	// Parameters:
	//   - release: destroys one buffer
	Drain(release func(B))
}

var _ Ring[int] = &ring[int]{}

// NewRing creates an empty Ring.
//
// Parameters:
//   - create: allocates a new buffer
//
// Returns:
//   - Ring[B]: the ring
func NewRing[B any](create func() (B, error)) Ring[B] {
	return &ring[B]{
		mu:     &sync.Mutex{},
		create: create,
	}
}

func (r *ring[B]) Acquire() (B, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		b := r.free[n-1]
		r.free = r.free[:n-1]
		r.inFlight++
		return b, nil
	}

	b, err := r.create()
	if err != nil {
		var zero B
		return zero, fmt.Errorf("failed to create upload buffer: %w", err)
	}
	r.created++
	r.inFlight++
	return b, nil
}

func (r *ring[B]) Release(b B) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free = append(r.free, b)
	if r.inFlight > 0 {
		r.inFlight--
	}
}

func (r *ring[B]) Created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

func (r *ring[B]) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

func (r *ring[B]) Drain(release func(B)) {
	r.mu.Lock()
	free := r.free
	r.free = nil
	r.mu.Unlock()

	for _, b := range free {
		release(b)
	}
}
