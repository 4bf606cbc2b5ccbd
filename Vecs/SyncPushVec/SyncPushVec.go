/*
Package SyncPushVec implements an append-only vector that readers can index without locking while a writer pushes.

# Address stability
Elements live in segments that double in length and are never moved or freed, so the pointer returned by Get or PushRef stays valid for the lifetime of the vector. Growing allocates a new segment; nothing is copied.

# Publication
The writer stores the element first and the length last. A reader that observes length n can read any of the first n elements, and never sees one that is partially written.
*/
package SyncPushVec

import (
	"iter"
	"math"
	"unsafe"

	"github.com/g-m-twostay/horde"
	"github.com/g-m-twostay/horde/internal/segment"
	"go.uber.org/zap"
)

// SyncPushVec is the vector. It must not be copied after first use.
type SyncPushVec[T any] struct {
	n      horde.PaddedUint64 //published length.
	segs   segment.Tiered[T]
	lock   horde.WriteLock
	maxLen uint64
	maxMem uint64 //bytes of segment storage allowed.
	log    *zap.Logger
}

// New returns an empty vector. WithCapacity allocates segments up front, WithMaxLen bounds the length, WithSegmentBits sets the first segment's length.
func New[T any](opts ...horde.Option) *SyncPushVec[T] {
	cfg := horde.NewConfig(opts...)
	v := &SyncPushVec[T]{maxLen: cfg.MaxLen, maxMem: cfg.MaxBytes, log: cfg.Logger.Named("syncpushvec")}
	if v.maxLen == 0 {
		v.maxLen = math.MaxInt
	}
	v.segs.Init(cfg.SegmentBits)
	v.lock.SetGuardCheck(cfg.GuardCheck)
	if cfg.Capacity > 0 {
		if err := v.ensure("SyncPushVec.New", min(uint64(cfg.Capacity), v.maxLen)); err != nil {
			v.log.Warn("initial capacity not allocated", zap.Int("capacity", cfg.Capacity), zap.Error(err))
		}
	}
	return v
}

// Len is the number of published elements.
func (v *SyncPushVec[T]) Len() int {
	return int(v.n.Load())
}

// Read returns a read handle. Reads never block and need no Pin because segments are never reclaimed.
func (v *SyncPushVec[T]) Read() Read[T] {
	return Read[T]{v}
}

// Write returns a write handle.
func (v *SyncPushVec[T]) Write() Write[T] {
	return Write[T]{v}
}

// Lock is shorthand for Write().Lock().
func (v *SyncPushVec[T]) Lock() *LockedWrite[T] {
	return v.Write().Lock()
}

// TryLock is shorthand for Write().TryLock().
func (v *SyncPushVec[T]) TryLock() (*LockedWrite[T], bool) {
	return v.Write().TryLock()
}

func (v *SyncPushVec[T]) Stats() horde.Stats {
	return horde.Stats{Len: v.n.Load(), Capacity: v.segs.Cap(), Segments: v.segs.Segments()}
}

// Read is the shareable read handle.
type Read[T any] struct {
	v *SyncPushVec[T]
}

// Get returns the address of element i, or false if i isn't below the published length.
func (r Read[T]) Get(i int) (*T, bool) {
	if i < 0 || uint64(i) >= r.v.n.Load() {
		return nil, false
	}
	return r.v.segs.At(uint64(i)), true
}

func (r Read[T]) Len() int {
	return r.v.Len()
}

// Capacity is the number of elements that fit without allocating another segment.
func (r Read[T]) Capacity() int {
	return int(min(r.v.segs.Cap(), math.MaxInt))
}

// Iter yields the index and address of every element published when Iter was called.
func (r Read[T]) Iter() iter.Seq2[int, *T] {
	n := r.v.n.Load()
	return func(yield func(int, *T) bool) {
		r.v.segs.Range(n, func(i uint64, v *T) bool {
			return yield(int(i), v)
		})
	}
}

// All copies the published elements into a new slice.
func (r Read[T]) All() []T {
	n := r.v.n.Load()
	out := make([]T, 0, n)
	r.v.segs.Range(n, func(_ uint64, v *T) bool {
		out = append(out, *v)
		return true
	})
	return out
}

// Write is the shareable right to lock the vector for writing.
type Write[T any] struct {
	v *SyncPushVec[T]
}

func (w Write[T]) Read() Read[T] {
	return Read[T]{w.v}
}

// Lock blocks until no other LockedWrite is live.
func (w Write[T]) Lock() *LockedWrite[T] {
	return &LockedWrite[T]{w.v, w.v.lock.Acquire()}
}

// TryLock returns false instead of blocking.
func (w Write[T]) TryLock() (*LockedWrite[T], bool) {
	if s, ok := w.v.lock.TryAcquire(); ok {
		return &LockedWrite[T]{w.v, s}, true
	}
	return nil, false
}

// LockedWrite is the exclusive write guard. It must be released with Unlock by the goroutine that locked it, and can't be used afterwards.
type LockedWrite[T any] struct {
	v      *SyncPushVec[T]
	serial uint64
}

// Unlock releases the guard. Calling it twice panics with a *horde.ContractError.
func (w *LockedWrite[T]) Unlock() {
	w.v.lock.Release("SyncPushVec.Unlock", w.serial)
}

func (w *LockedWrite[T]) Read() Read[T] {
	w.v.lock.Check("SyncPushVec.Read", w.serial)
	return Read[T]{w.v}
}

func (w *LockedWrite[T]) Len() int {
	w.v.lock.Check("SyncPushVec.Len", w.serial)
	return w.v.Len()
}

// Push appends value and returns its index.
func (w *LockedWrite[T]) Push(value T) (int, error) {
	_, n, err := w.push("SyncPushVec.Push", value)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PushRef appends value and returns its address, which stays valid for the lifetime of the vector.
func (w *LockedWrite[T]) PushRef(value T) (*T, error) {
	p, _, err := w.push("SyncPushVec.PushRef", value)
	return p, err
}

func (w *LockedWrite[T]) push(op string, value T) (*T, uint64, error) {
	w.v.lock.Check(op, w.serial)
	n := w.v.n.Load()
	if err := w.v.ensure(op, n+1); err != nil {
		return nil, 0, err
	}
	p := w.v.segs.At(n)
	*p = value
	w.v.n.Store(n + 1)
	return p, n, nil
}

// Reserve makes room for at least extra more elements without changing the length.
func (w *LockedWrite[T]) Reserve(extra int) error {
	w.v.lock.Check("SyncPushVec.Reserve", w.serial)
	if extra <= 0 {
		return nil
	}
	return w.v.ensure("SyncPushVec.Reserve", w.v.n.Load()+uint64(extra))
}

// Extend appends values and publishes them together. On error nothing is appended.
func (w *LockedWrite[T]) Extend(values ...T) error {
	w.v.lock.Check("SyncPushVec.Extend", w.serial)
	n := w.v.n.Load()
	if err := w.v.ensure("SyncPushVec.Extend", n+uint64(len(values))); err != nil {
		return err
	}
	for i, value := range values {
		*w.v.segs.At(n + uint64(i)) = value
	}
	w.v.n.Store(n + uint64(len(values)))
	return nil
}

// ensure grows the segments until want elements fit. Only called under the lock.
func (v *SyncPushVec[T]) ensure(op string, want uint64) error {
	if want > v.maxLen {
		err := horde.NewCapacityError(op, want, v.maxLen, nil)
		v.log.Error("length limit reached", zap.Uint64("requested", want), zap.Uint64("limit", v.maxLen))
		return err
	}
	k := v.segs.Segments()
	for k < segment.MaxSegments && segment.CapOf(v.segs.BaseBits(), k) < want {
		k++
	}
	if size := uint64(unsafe.Sizeof(*new(T))); size > 0 && segment.CapOf(v.segs.BaseBits(), k) > v.maxMem/size {
		err := horde.NewCapacityError(op, want, v.maxMem/size, nil)
		v.log.Error("memory limit reached", zap.Uint64("requested", want), zap.Uint64("maxBytes", v.maxMem))
		return err
	}
	added, err := v.segs.Ensure(want)
	if added > 0 {
		v.log.Debug("segments allocated", zap.Int("added", added), zap.Int("segments", v.segs.Segments()), zap.Uint64("capacity", v.segs.Cap()))
	}
	if err != nil {
		v.log.Error("segment allocation failed", zap.Uint64("requested", want), zap.Error(err))
		return horde.NewCapacityError(op, want, v.segs.Cap(), err)
	}
	return nil
}
