package segment

import (
	"sync"
	"sync/atomic"
)

// Uniform is a 1<<bits array made of equal chunks of 1<<chunkBits items.
type Uniform[T any] struct {
	chunks    [][]T
	mask      uint64
	chunkBits uint8
	bits      uint8
}

// NewUniform builds a Uniform of 1<<bits items taking chunks from pool. pool may be nil.
func NewUniform[T any](bits, chunkBits uint8, pool *Pool[T]) *Uniform[T] {
	chunkBits = min(chunkBits, bits)
	u := &Uniform[T]{chunks: make([][]T, 1<<(bits-chunkBits)), mask: 1<<chunkBits - 1, chunkBits: chunkBits, bits: bits}
	for i := range u.chunks {
		u.chunks[i] = pool.Get(chunkBits)
	}
	return u
}

// At returns the address of item i, i < Len.
func (u *Uniform[T]) At(i uint64) *T {
	return &u.chunks[i>>u.chunkBits][i&u.mask]
}

// Len of the array.
func (u *Uniform[T]) Len() uint64 {
	return 1 << u.bits
}

// Bits is log2 of Len.
func (u *Uniform[T]) Bits() uint8 {
	return u.bits
}

// Chunks is the number of chunks backing the array. It doesn't change on Release.
func (u *Uniform[T]) Chunks() int {
	return 1 << (u.bits - u.chunkBits)
}

// Release zeroes every chunk and returns it to pool. The Uniform must be unreachable by readers, and can't be used afterwards.
func (u *Uniform[T]) Release(pool *Pool[T]) {
	for i, c := range u.chunks {
		pool.Put(u.chunkBits, c)
		u.chunks[i] = nil
	}
	u.chunks = nil
}

// Pool recycles released chunks by size. A nil *Pool allocates and drops.
type Pool[T any] struct {
	tiers        [64]sync.Pool
	reused, made atomic.Uint64
}

// Get a zeroed chunk of 1<<bits items.
func (p *Pool[T]) Get(bits uint8) []T {
	if p != nil {
		if v := p.tiers[bits].Get(); v != nil {
			p.reused.Add(1)
			return *v.(*[]T)
		}
		p.made.Add(1)
	}
	return make([]T, 1<<bits)
}

// Put zeroes c and keeps it for a later Get of the same size.
func (p *Pool[T]) Put(bits uint8, c []T) {
	clear(c)
	if p != nil {
		p.tiers[bits].Put(&c)
	}
}

// Counts returns how many chunks were served from recycled memory and how many were freshly made.
func (p *Pool[T]) Counts() (reused, made uint64) {
	return p.reused.Load(), p.made.Load()
}
