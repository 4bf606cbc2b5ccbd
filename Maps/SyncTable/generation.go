package SyncTable

import (
	"sync/atomic"
	"unsafe"

	"github.com/g-m-twostay/horde"
	"github.com/g-m-twostay/horde/internal/segment"
	"go.uber.org/zap"
)

const (
	minBits uint8 = 3
	maxBits uint8 = 48
)

// slot is one bucket. ctrl is 0 while the slot is empty, otherwise the probe distance plus one; it's stored last, so a reader that sees it set can read the rest.
type slot[K comparable, V any] struct {
	ctrl atomic.Uint32
	seq  uint64 //insertion order, used by Iter.
	hash uint64
	key  K
	val  V
}

// generation is one bucket array. Its shape never changes; growing builds a new generation.
type generation[K comparable, V any] struct {
	slots    *segment.Uniform[slot[K, V]]
	mask     uint64
	limit    uint64 //items allowed before the load factor forces a grow.
	items    atomic.Uint64
	maxDist  atomic.Int32
	occupied horde.BitArray //writer only.
}

// loadLimit is capacity*num/den without overflowing.
func loadLimit(capacity, num, den uint64) uint64 {
	return capacity/den*num + capacity%den*num/den
}

func (t *SyncTable[K, V]) newGeneration(bits uint8) *generation[K, V] {
	u := segment.NewUniform(bits, t.chunkBits, &t.pool)
	return &generation[K, V]{slots: u, mask: u.Len() - 1, limit: loadLimit(u.Len(), t.loadNum, t.loadDen), occupied: horde.NewBitArray(u.Len())}
}

// bitsFor is the smallest generation size that holds n items under the load factor.
func (t *SyncTable[K, V]) bitsFor(n uint64) uint8 {
	b := minBits
	for b < maxBits && loadLimit(uint64(1)<<b, t.loadNum, t.loadDen) < n {
		b++
	}
	return b
}

// slotLimit is the largest generation t's byte budget allows, in slots.
func (t *SyncTable[K, V]) slotLimit() uint64 {
	limit := uint64(1) << maxBits
	if size := uint64(unsafe.Sizeof(slot[K, V]{})); t.maxMem/size < limit {
		limit = t.maxMem / size
	}
	return limit
}

// lookup is the reader's probe: it stops at an empty slot or past the longest distance in g.
func (t *SyncTable[K, V]) lookup(g *generation[K, V], key K) *slot[K, V] {
	h := t.hash(key)
	home, bound := h&g.mask, uint64(g.maxDist.Load())
	for d := uint64(0); d <= bound; d++ {
		s := g.slots.At((home + d) & g.mask)
		if s.ctrl.Load() == 0 {
			break
		}
		if s.hash == h && t.eq(s.key, key) {
			return s
		}
	}
	return nil
}

// probe is the writer's probe. A vacancy is only accepted within maxProbe, but matches are searched up to the longest distance present, since migration may place entries further out.
func (t *SyncTable[K, V]) probe(g *generation[K, V], h uint64, key K) (idx uint64, dist int, st slotState) {
	home := h & g.mask
	bound := min(max(t.maxProbe, int(g.maxDist.Load())), int(g.mask))
	for d := 0; d <= bound; d++ {
		idx = (home + uint64(d)) & g.mask
		s := g.slots.At(idx)
		if s.ctrl.Load() == 0 {
			if d <= t.maxProbe {
				return idx, d, vacant
			}
			return 0, d, needsGrow
		}
		if s.hash == h && t.eq(s.key, key) {
			return idx, d, occupied
		}
	}
	return 0, bound + 1, needsGrow
}

// place writes an entry into the empty slot idx of g and publishes it.
func place[K comparable, V any](g *generation[K, V], idx uint64, dist int, seq, h uint64, key K, val V) *slot[K, V] {
	s := g.slots.At(idx)
	s.seq, s.hash, s.key, s.val = seq, h, key, val
	if int32(dist) > g.maxDist.Load() {
		g.maxDist.Store(int32(dist))
	}
	s.ctrl.Store(uint32(dist) + 1)
	g.occupied.Up(idx)
	return s
}

// grow builds a generation of 1<<bits slots holding every entry of the current one, publishes it, and retires the old one.
func (t *SyncTable[K, V]) grow(op string, old *generation[K, V], bits uint8) (*generation[K, V], error) {
	if limit := t.slotLimit(); bits > maxBits || uint64(1)<<bits > limit {
		err := horde.NewCapacityError(op, uint64(1)<<bits, limit, nil)
		t.log.Error("table size limit reached", zap.Uint8("bits", bits), zap.Uint64("maxBytes", t.maxMem))
		return nil, err
	}
	ng := t.newGeneration(bits)
	old.occupied.Ones(func(i uint64) bool {
		s := old.slots.At(i)
		home := s.hash & ng.mask
		for d := uint64(0); ; d++ {
			if idx := (home + d) & ng.mask; ng.slots.At(idx).ctrl.Load() == 0 {
				place(ng, idx, int(d), s.seq, s.hash, s.key, s.val)
				return true
			}
		}
	})
	ng.items.Store(old.items.Load())
	t.gen.Store(ng)
	t.generations.Add(1)
	t.retired.Add(1)
	oldCap := old.slots.Len()
	epoch := t.domain.Retire(func() {
		old.slots.Release(&t.pool)
		t.reclaimed.Add(1)
		t.log.Debug("generation reclaimed", zap.Uint64("capacity", oldCap))
	})
	t.log.Debug("generation published", zap.Uint64("capacity", ng.slots.Len()), zap.Uint64("items", ng.items.Load()), zap.Int32("maxDist", ng.maxDist.Load()), zap.Uint64("epoch", epoch))
	return ng, nil
}
