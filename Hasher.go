package horde

import (
	"hash/maphash"
	"math/bits"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// Hasher is a seeded hash strategy. Create it with NewHasher; the zero value hashes with a zero seed. The receivers are thread-safe.
type Hasher struct {
	ms   maphash.Seed
	seed uint64
}

// NewHasher returns a Hasher with a random seed.
func NewHasher() Hasher {
	ms := maphash.MakeSeed()
	return Hasher{ms, maphash.String(ms, "horde")}
}

// mix is the murmur3 64-bit finalizer; it spreads every input bit over the low bits used for bucket selection.
func mix(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// HashUint64 hashes v.
func (h Hasher) HashUint64(v uint64) uint64 {
	return mix(v ^ h.seed)
}

// HashString hashes the contents of v.
func (h Hasher) HashString(v string) uint64 {
	return mix(xxhash.Sum64String(v) ^ bits.RotateLeft64(h.seed, 17))
}

// HashBytes hashes the contents of b.
func (h Hasher) HashBytes(b []byte) uint64 {
	return mix(xxhash.Sum64(b) ^ bits.RotateLeft64(h.seed, 17))
}

// HashComparable hashes any comparable value the way the runtime hashes map keys. It's slower than the typed variants.
func HashComparable[K comparable](h Hasher, v K) uint64 {
	if h.seed == 0 { //zero Hasher has no maphash.Seed.
		h = zeroSeeded
	}
	return maphash.Comparable(h.ms, v)
}

var zeroSeeded = NewHasher()

// IntHasher returns a hash strategy for integer keys.
func IntHasher[K constraints.Integer](h Hasher) func(K) uint64 {
	return func(k K) uint64 {
		return h.HashUint64(uint64(k))
	}
}

// StringHasher returns a hash strategy for string keys.
func StringHasher[K ~string](h Hasher) func(K) uint64 {
	return func(k K) uint64 {
		return h.HashString(string(k))
	}
}

// DefaultHasher picks a hash strategy for K: integers and strings get their fast paths, everything else falls back to HashComparable. Integer keys hash the same as under IntHasher.
func DefaultHasher[K comparable](h Hasher) func(K) uint64 {
	var zero K
	switch any(zero).(type) {
	case string:
		return func(k K) uint64 { return h.HashString(*(*string)(unsafe.Pointer(&k))) }
	case int:
		return asInt[K, int](h)
	case uint:
		return asInt[K, uint](h)
	case uintptr:
		return asInt[K, uintptr](h)
	case int64:
		return asInt[K, int64](h)
	case uint64:
		return asInt[K, uint64](h)
	case int32:
		return asInt[K, int32](h)
	case uint32:
		return asInt[K, uint32](h)
	case int16:
		return asInt[K, int16](h)
	case uint16:
		return asInt[K, uint16](h)
	case int8:
		return asInt[K, int8](h)
	case uint8:
		return asInt[K, uint8](h)
	}
	return func(k K) uint64 { return HashComparable(h, k) }
}

// asInt hashes K as I; K must be I.
func asInt[K comparable, I constraints.Integer](h Hasher) func(K) uint64 {
	return func(k K) uint64 { return h.HashUint64(uint64(*(*I)(unsafe.Pointer(&k)))) }
}
