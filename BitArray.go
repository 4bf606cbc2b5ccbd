package horde

import (
	"math/bits"
)

// NewBitArray returns a BitArray holding at least size bits, all down.
func NewBitArray(size uint64) BitArray {
	return BitArray{bits: make([]uint, (size+bits.UintSize-1)/bits.UintSize)}
}

// BitArray is a fixed set of bits. It isn't safe for concurrent writes.
type BitArray struct {
	bits []uint
}

func (u BitArray) Len() uint64 {
	return uint64(len(u.bits)) * bits.UintSize
}

func (u BitArray) Get(i uint64) bool {
	return (u.bits[i/bits.UintSize]>>(i%bits.UintSize))&1 == 1
}

func (u BitArray) Up(i uint64) {
	u.bits[i/bits.UintSize] |= 1 << (i % bits.UintSize)
}

func (u BitArray) Down(i uint64) {
	u.bits[i/bits.UintSize] &^= 1 << (i % bits.UintSize)
}

// Count of bits up.
func (u BitArray) Count() (n int) {
	for _, w := range u.bits {
		n += bits.OnesCount(w)
	}
	return
}

// Ones calls yield with the index of every bit that's up, in increasing order, until yield returns false.
func (u BitArray) Ones(yield func(uint64) bool) {
	for i, w := range u.bits {
		for ; w != 0; w &= w - 1 {
			if !yield(uint64(i)*bits.UintSize + uint64(bits.TrailingZeros(w))) {
				return
			}
		}
	}
}
