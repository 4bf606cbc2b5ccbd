/*
Package segment holds the storage blocks the collections are built from. A block is allocated once and never resized or moved, so a pointer into a block stays valid for as long as the block itself is reachable.

# Tiered
Tiered is a growable sequence of blocks whose lengths double: block k holds base<<k items. The spine is a fixed array of atomic block pointers, so appending a block never relocates the spine or any existing block. Readers bound their accesses with a counter published by the owner, writers add blocks under the owner's lock.

# Uniform
Uniform is a fixed power-of-two array split into equal chunks. It is built completely before being published and never changes shape afterwards. Its chunks can be handed back to a Pool once no reader can reach them anymore.
*/
package segment

import (
	"errors"
	"math/bits"
	"sync/atomic"
)

// MaxSegments bounds the spine of a Tiered. With the smallest base this is still far beyond addressable memory.
const MaxSegments = 48

// ErrExhausted is returned when a Tiered has no spine entry left for another block, or when the next block length can't be represented.
var ErrExhausted = errors.New("segment: spine exhausted")

// Locate returns the block index and the offset inside that block of item i, for a Tiered whose first block holds 1<<baseBits items.
func Locate(baseBits uint8, i uint64) (seg int, off uint64) {
	j := i + 1<<baseBits
	seg = bits.Len64(j) - 1 - int(baseBits)
	off = j - 1<<(uint(seg)+uint(baseBits))
	return
}

// CapOf is the total capacity of the first n blocks.
func CapOf(baseBits uint8, n int) uint64 {
	return (uint64(1)<<n - 1) << baseBits
}

// Tiered is the doubling block storage. The zero value must be initialized with Init before use.
type Tiered[T any] struct {
	spine    [MaxSegments]atomic.Pointer[[]T]
	segs     atomic.Int32 //number of published blocks.
	baseBits uint8
}

// Init sets the length of the first block to 1<<baseBits. It must be called before the Tiered is shared.
func (s *Tiered[T]) Init(baseBits uint8) {
	s.baseBits = baseBits
}

// BaseBits returns log2 of the first block's length.
func (s *Tiered[T]) BaseBits() uint8 {
	return s.baseBits
}

// Segments is the number of allocated blocks.
func (s *Tiered[T]) Segments() int {
	return int(s.segs.Load())
}

// Cap is the number of items the allocated blocks can hold.
func (s *Tiered[T]) Cap() uint64 {
	return CapOf(s.baseBits, s.Segments())
}

// At returns the address of item i. i must be below Cap, otherwise At panics.
func (s *Tiered[T]) At(i uint64) *T {
	seg, off := Locate(s.baseBits, i)
	return &(*s.spine[seg].Load())[off]
}

// Segment returns block k, or nil if it isn't allocated.
func (s *Tiered[T]) Segment(k int) []T {
	if p := s.spine[k].Load(); p != nil {
		return *p
	}
	return nil
}

// Grow allocates the next block and publishes it, returning its length. Only one goroutine may call Grow at a time.
func (s *Tiered[T]) Grow() (int, error) {
	k := int(s.segs.Load())
	if k >= MaxSegments || uint(k)+uint(s.baseBits) >= bits.UintSize-2 {
		return 0, ErrExhausted
	}
	block := make([]T, 1<<(uint(k)+uint(s.baseBits)))
	s.spine[k].Store(&block)
	s.segs.Store(int32(k + 1))
	return len(block), nil
}

// Ensure grows until at least n items fit, returning how many blocks were added.
func (s *Tiered[T]) Ensure(n uint64) (added int, err error) {
	for s.Cap() < n {
		if _, err = s.Grow(); err != nil {
			return
		}
		added++
	}
	return
}

// Range calls yield for the first n items in order, one block at a time. n must not exceed Cap.
func (s *Tiered[T]) Range(n uint64, yield func(i uint64, v *T) bool) {
	for k, i := 0, uint64(0); i < n; k++ {
		block := *s.spine[k].Load()
		for j := range block {
			if i == n || !yield(i, &block[j]) {
				return
			}
			i++
		}
	}
}
