/*
Package SyncTable implements an insert-only concurrent hash table. Any number of readers run alongside a single writer without locking.

# Generations
The buckets of a table form a generation: a power-of-two array with linear probing, where every occupied slot records its probe distance. Entries are never moved inside a generation. When the load factor or the probe bound is passed, the writer builds a larger generation, migrates every entry into it, and publishes it with one atomic store. Readers see either the old or the new generation in full.

# Pins
A superseded generation is handed to the table's horde.Domain and recycled once every horde.Pin taken before the swap is released. Reading a table requires a live Pin from that Domain, and addresses returned by a Read stay valid while the Pin is live. Addresses returned through a LockedWrite point into the current generation; once the guard is released or the table grows, only a live Pin keeps them valid, since reclaimed storage is zeroed and reused by later generations.

# Insert-only
Inserting a key that's already present leaves the stored value as it is and returns its address. Values must not be modified after insertion, since readers may be looking at them concurrently.
*/
package SyncTable

import (
	"iter"
	"math"
	"sync/atomic"

	"github.com/g-m-twostay/horde"
	"github.com/g-m-twostay/horde/internal/segment"
	"go.uber.org/zap"
)

// maxProbeGrows bounds how many times one insert grows the table because of the probe bound.
const maxProbeGrows = 2

// SyncTable is the table. It must not be copied after first use.
type SyncTable[K comparable, V any] struct {
	gen              atomic.Pointer[generation[K, V]]
	lock             horde.WriteLock
	hash             func(K) uint64
	eq               func(K, K) bool
	pool             segment.Pool[slot[K, V]]
	domain           *horde.Domain
	chunkBits        uint8
	loadNum, loadDen uint64
	maxProbe         int
	maxLen           uint64
	maxMem           uint64
	generations      atomic.Uint64
	retired          atomic.Uint64
	reclaimed        atomic.Uint64
	log              *zap.Logger
}

// New returns a table hashing keys with horde.DefaultHasher under a random seed.
func New[K comparable, V any](opts ...horde.Option) *SyncTable[K, V] {
	return NewWith[K, V](horde.DefaultHasher[K](horde.NewHasher()), func(a, b K) bool { return a == b }, opts...)
}

// NewWith returns a table using the given hash and equality strategies. Keys that are equal under eq must hash the same.
func NewWith[K comparable, V any](hash func(K) uint64, eq func(K, K) bool, opts ...horde.Option) *SyncTable[K, V] {
	cfg := horde.NewConfig(opts...)
	t := &SyncTable[K, V]{hash: hash, eq: eq, domain: cfg.DomainOrDefault(), chunkBits: cfg.ChunkBits, loadNum: cfg.LoadNum, loadDen: cfg.LoadDen, maxProbe: cfg.MaxProbe, maxLen: cfg.MaxLen, maxMem: cfg.MaxBytes, log: cfg.Logger.Named("synctable")}
	if t.maxLen == 0 {
		t.maxLen = math.MaxInt
	}
	t.lock.SetGuardCheck(cfg.GuardCheck)
	b := t.bitsFor(min(uint64(cfg.Capacity), t.maxLen))
	if uint64(1)<<b > t.slotLimit() {
		t.log.Warn("initial capacity not allocated", zap.Int("capacity", cfg.Capacity), zap.Uint64("maxBytes", t.maxMem))
		b = minBits
	}
	t.gen.Store(t.newGeneration(b))
	t.generations.Store(1)
	return t
}

// Len is the number of entries. It needs no Pin.
func (t *SyncTable[K, V]) Len() int {
	return int(t.gen.Load().items.Load())
}

// Domain the table retires generations to.
func (t *SyncTable[K, V]) Domain() *horde.Domain {
	return t.domain
}

// Read returns a read handle bound to pin, which must be live and come from the table's Domain.
func (t *SyncTable[K, V]) Read(pin *horde.Pin) Read[K, V] {
	pin.MustLive("SyncTable.Read", t.domain)
	return Read[K, V]{t, pin}
}

func (t *SyncTable[K, V]) Write() Write[K, V] {
	return Write[K, V]{t}
}

// Lock is shorthand for Write().Lock().
func (t *SyncTable[K, V]) Lock() *LockedWrite[K, V] {
	return t.Write().Lock()
}

// TryLock is shorthand for Write().TryLock().
func (t *SyncTable[K, V]) TryLock() (*LockedWrite[K, V], bool) {
	return t.Write().TryLock()
}

func (t *SyncTable[K, V]) Stats() horde.Stats {
	g := t.gen.Load()
	return horde.Stats{
		Len:         g.items.Load(),
		Capacity:    g.slots.Len(),
		Segments:    g.slots.Chunks(),
		Generations: t.generations.Load(),
		Retired:     t.retired.Load(),
		Reclaimed:   t.reclaimed.Load(),
		MaxProbe:    int(g.maxDist.Load()),
	}
}

// Read is the shareable read handle. It's valid while its Pin is live.
type Read[K comparable, V any] struct {
	t   *SyncTable[K, V]
	pin *horde.Pin
}

func (r Read[K, V]) current(op string) *generation[K, V] {
	r.pin.MustLive(op, r.t.domain)
	return r.t.gen.Load()
}

// Get returns the address of key's value.
func (r Read[K, V]) Get(key K) (*V, bool) {
	if s := r.t.lookup(r.current("SyncTable.Get"), key); s != nil {
		return &s.val, true
	}
	return nil, false
}

func (r Read[K, V]) Contains(key K) bool {
	return r.t.lookup(r.current("SyncTable.Contains"), key) != nil
}

func (r Read[K, V]) Len() int {
	return int(r.current("SyncTable.Len").items.Load())
}

// Capacity is the number of buckets of the current generation.
func (r Read[K, V]) Capacity() int {
	return int(r.current("SyncTable.Capacity").slots.Len())
}

// Iter yields the entries published when Iter was called, from the generation current at that time. Entries inserted later are skipped even if they land in that generation.
func (r Read[K, V]) Iter() iter.Seq2[K, *V] {
	g := r.current("SyncTable.Iter")
	n := g.items.Load()
	return func(yield func(K, *V) bool) {
		r.pin.MustLive("SyncTable.Iter", r.t.domain)
		for i, seen := uint64(0), uint64(0); i < g.slots.Len() && seen < n; i++ {
			if s := g.slots.At(i); s.ctrl.Load() != 0 && s.seq < n {
				seen++
				if !yield(s.key, &s.val) {
					return
				}
			}
		}
	}
}

// Write is the shareable right to lock the table for writing.
type Write[K comparable, V any] struct {
	t *SyncTable[K, V]
}

func (w Write[K, V]) Read(pin *horde.Pin) Read[K, V] {
	return w.t.Read(pin)
}

// Lock blocks until no other LockedWrite is live.
func (w Write[K, V]) Lock() *LockedWrite[K, V] {
	return &LockedWrite[K, V]{w.t, w.t.lock.Acquire()}
}

// TryLock returns false instead of blocking.
func (w Write[K, V]) TryLock() (*LockedWrite[K, V], bool) {
	if s, ok := w.t.lock.TryAcquire(); ok {
		return &LockedWrite[K, V]{w.t, s}, true
	}
	return nil, false
}

// LockedWrite is the exclusive write guard. It must be released with Unlock by the goroutine that locked it, and neither it nor the PotentialSlots it produced can be used afterwards.
type LockedWrite[K comparable, V any] struct {
	t      *SyncTable[K, V]
	serial uint64
}

func (w *LockedWrite[K, V]) Unlock() {
	w.t.lock.Release("SyncTable.Unlock", w.serial)
}

func (w *LockedWrite[K, V]) Len() int {
	w.t.lock.Check("SyncTable.Len", w.serial)
	return w.t.Len()
}

// Get needs no Pin because only the guard holder can retire a generation. The returned address is valid while the guard is held and the table doesn't grow; hold a Pin from the table's Domain to use it past either.
func (w *LockedWrite[K, V]) Get(key K) (*V, bool) {
	w.t.lock.Check("SyncTable.Get", w.serial)
	if s := w.t.lookup(w.t.gen.Load(), key); s != nil {
		return &s.val, true
	}
	return nil, false
}

// Find probes the current generation for key.
func (w *LockedWrite[K, V]) Find(key K) PotentialSlot[K, V] {
	w.t.lock.Check("SyncTable.Find", w.serial)
	return w.find(w.t.gen.Load(), w.t.hash(key), key)
}

func (w *LockedWrite[K, V]) find(g *generation[K, V], h uint64, key K) PotentialSlot[K, V] {
	idx, dist, st := w.t.probe(g, h, key)
	return PotentialSlot[K, V]{t: w.t, serial: w.serial, gen: g, items: g.items.Load(), hash: h, key: key, index: idx, dist: dist, state: st}
}

// InsertSlot inserts value at a slot returned by Find on this guard. If the slot is occupied, or the key was inserted since Find, nothing changes and inserted is false. The table grows first when needed.
// The returned address follows the same validity rule as Get's.
func (w *LockedWrite[K, V]) InsertSlot(slot PotentialSlot[K, V], value V) (v *V, inserted bool, err error) {
	const op = "SyncTable.InsertSlot"
	w.t.lock.Check(op, w.serial)
	if slot.t != w.t || slot.serial != w.serial {
		horde.Violation(op, "slot belongs to another guard")
	}
	return w.insert(op, slot, func() V { return value })
}

// Insert inserts key with value unless key is present, in which case the stored value is kept. It returns the address of the stored value, valid while the guard is held and the table doesn't grow, or while a Pin from the table's Domain is live.
func (w *LockedWrite[K, V]) Insert(key K, value V) (*V, bool, error) {
	w.t.lock.Check("SyncTable.Insert", w.serial)
	return w.insert("SyncTable.Insert", w.find(w.t.gen.Load(), w.t.hash(key), key), func() V { return value })
}

// GetOrInsertWith returns key's value, inserting fn() first if key is absent. fn is only called when the insert goes ahead. The address is valid as for Insert.
func (w *LockedWrite[K, V]) GetOrInsertWith(key K, fn func() V) (*V, bool, error) {
	w.t.lock.Check("SyncTable.GetOrInsertWith", w.serial)
	return w.insert("SyncTable.GetOrInsertWith", w.find(w.t.gen.Load(), w.t.hash(key), key), fn)
}

func (w *LockedWrite[K, V]) insert(op string, s PotentialSlot[K, V], value func() V) (*V, bool, error) {
	t, g := w.t, w.t.gen.Load()
	//a grow or another insert since Find may have taken the vacancy or added the key.
	if s.gen != g || s.items != g.items.Load() || s.state == vacant && g.slots.At(s.index).ctrl.Load() != 0 {
		s = w.find(g, s.hash, s.key)
	}
	if s.state == occupied {
		return &g.slots.At(s.index).val, false, nil
	}
	n := g.items.Load()
	if n+1 > t.maxLen {
		t.log.Error("length limit reached", zap.Uint64("limit", t.maxLen))
		return nil, false, horde.NewCapacityError(op, n+1, t.maxLen, nil)
	}
	var err error
	if n+1 > g.limit {
		if g, err = t.grow(op, g, g.slots.Bits()+1); err != nil {
			return nil, false, err
		}
		s = w.find(g, s.hash, s.key)
	}
	for grows := 0; s.state == needsGrow; grows++ {
		t.log.Warn("probe bound exceeded", zap.Int("distance", s.dist), zap.Int("bound", t.maxProbe), zap.Uint64("capacity", g.slots.Len()), zap.Uint64("items", n))
		if grows == maxProbeGrows || n*4 < g.slots.Len() {
			err := &horde.ProbeError{Distance: s.dist, Bound: t.maxProbe, Capacity: g.slots.Len()}
			t.log.Error("insert rejected", zap.Error(err))
			return nil, false, err
		}
		if g, err = t.grow(op, g, g.slots.Bits()+1); err != nil {
			return nil, false, err
		}
		s = w.find(g, s.hash, s.key)
	}
	sl := place(g, s.index, s.dist, n, s.hash, s.key, value())
	g.items.Store(n + 1)
	return &sl.val, true, nil
}

// Reserve grows the table so that extra more entries fit without another grow.
func (w *LockedWrite[K, V]) Reserve(extra int) error {
	const op = "SyncTable.Reserve"
	w.t.lock.Check(op, w.serial)
	if extra <= 0 {
		return nil
	}
	t, g := w.t, w.t.gen.Load()
	want := g.items.Load() + uint64(extra)
	if want > t.maxLen {
		return horde.NewCapacityError(op, want, t.maxLen, nil)
	}
	if want <= g.limit {
		return nil
	}
	b := t.bitsFor(want)
	if limit := t.slotLimit(); loadLimit(uint64(1)<<b, t.loadNum, t.loadDen) < want || uint64(1)<<b > limit {
		t.log.Error("reserve rejected", zap.Uint64("requested", want), zap.Uint64("maxBytes", t.maxMem))
		return horde.NewCapacityError(op, want, loadLimit(limit, t.loadNum, t.loadDen), nil)
	}
	_, err := t.grow(op, g, b)
	return err
}
