package horde

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/g-m-twostay/horde/Queues"
	"github.com/g-m-twostay/horde/internal/segment"
	"go.uber.org/zap"
)

const (
	pinSlotBits    uint8 = 3
	firstEpoch           = 1
	pendingInitCap       = 8
)

// pinSlot records the epoch a live Pin started in; 0 means the slot is free.
type pinSlot struct {
	epoch PaddedUint64
}

type retired struct {
	epoch uint64
	fn    func()
}

// Domain is a reclamation domain. Storage retired to a Domain is reclaimed only once every Pin that might still reference it has been released.
//
// Each Pin records the epoch it observed when it was taken. Retiring storage advances the epoch to R after the storage was unpublished, and the storage is reclaimed once no live Pin recorded an epoch below R. A Pin that observed R or later was taken after the storage became unreachable, so it can't hold references into it.
type Domain struct {
	epoch     PaddedUint64
	nslots    atomic.Uint64
	slots     segment.Tiered[pinSlot]
	growMu    sync.Mutex
	free      sync.Pool //*pinSlot hints, always re-claimed by CAS.
	active    atomic.Int64
	queued    atomic.Int64
	inbox     *Queues.ConcLinkedQueue[retired]
	reclaimMu sync.Mutex
	pending   Queues.ArrayQueue[retired] //guarded by reclaimMu.
	reclaimed atomic.Uint64
	log       *zap.Logger
}

// NewDomain returns an empty Domain. Only the Logger option is used.
func NewDomain(opts ...Option) *Domain {
	cfg := NewConfig(opts...)
	d := &Domain{inbox: Queues.NewConcLinkedQueue[retired](), pending: Queues.MakeArrayQueue[retired](pendingInitCap), log: cfg.Logger.Named("domain")}
	d.epoch.Store(firstEpoch)
	d.slots.Init(pinSlotBits)
	return d
}

var defaultDomain = sync.OnceValue(func() *Domain { return NewDomain() })

// DefaultDomain is the Domain used by NewPin and by collections built without WithDomain.
func DefaultDomain() *Domain {
	return defaultDomain()
}

// Pin is a scoped guarantee that storage reachable while it's live is not reclaimed until it's released. Pins never block writers; they only delay reclamation. A Pin may be shared between goroutines but must be released exactly once.
type Pin struct {
	d        *Domain
	slot     *pinSlot
	epoch    uint64
	released atomic.Bool
}

// NewPin takes a Pin on DefaultDomain.
func NewPin() *Pin {
	return DefaultDomain().Pin()
}

// Pinned runs fn under a Pin of DefaultDomain.
func Pinned(fn func(p *Pin)) {
	p := NewPin()
	defer p.Release()
	fn(p)
}

// Pin takes a Pin on d. It never blocks, except briefly when the slot registry has to grow.
func (d *Domain) Pin() *Pin {
	e := d.epoch.Load() //a stale epoch is only more conservative.
	if s, _ := d.free.Get().(*pinSlot); s != nil && s.epoch.CompareAndSwap(0, e) {
		return d.pinned(s, e)
	}
	for i, n := uint64(0), d.nslots.Load(); i < n; i++ {
		if s := d.slots.At(i); s.epoch.Load() == 0 && s.epoch.CompareAndSwap(0, e) {
			return d.pinned(s, e)
		}
	}
	d.growMu.Lock()
	defer d.growMu.Unlock()
	i := d.nslots.Load()
	if i == d.slots.Cap() {
		if _, err := d.slots.Grow(); err != nil {
			panic(NewCapacityError("Domain.Pin", i+1, i, err))
		}
	}
	s := d.slots.At(i)
	s.epoch.Store(e)
	d.nslots.Store(i + 1)
	return d.pinned(s, e)
}

func (d *Domain) pinned(s *pinSlot, e uint64) *Pin {
	d.active.Add(1)
	return &Pin{d: d, slot: s, epoch: e}
}

// Release ends the Pin. Releasing twice panics with a *ContractError.
func (p *Pin) Release() {
	if !p.released.CompareAndSwap(false, true) {
		Violation("Pin.Release", "pin released twice")
	}
	p.slot.epoch.Store(0)
	p.d.free.Put(p.slot)
	p.d.active.Add(-1)
	if p.d.queued.Load() > 0 {
		p.d.tryReclaim()
	}
}

// Live reports whether the Pin hasn't been released.
func (p *Pin) Live() bool {
	return p != nil && !p.released.Load()
}

// MustLive panics with a *ContractError naming op unless the Pin is live and belongs to d.
func (p *Pin) MustLive(op string, d *Domain) {
	if !p.Live() {
		Violation(op, "pin is nil or released")
	}
	if p.d != d {
		Violation(op, "pin belongs to another domain")
	}
}

// Epoch the Pin started in.
func (p *Pin) Epoch() uint64 {
	return p.epoch
}

// Domain the Pin was taken on.
func (p *Pin) Domain() *Domain {
	return p.d
}

// Retire schedules fn to run once no live Pin predates this call. The caller must have made the retired storage unreachable before calling Retire. It returns the retirement epoch.
func (d *Domain) Retire(fn func()) uint64 {
	r := d.epoch.Add(1)
	d.inbox.Push(retired{r, fn})
	d.queued.Add(1)
	d.tryReclaim()
	return r
}

// Reclaim runs every retirement that has become safe and returns how many ran. It blocks while another goroutine is reclaiming.
func (d *Domain) Reclaim() int {
	d.reclaimMu.Lock()
	defer d.reclaimMu.Unlock()
	return d.reclaimLocked()
}

func (d *Domain) tryReclaim() {
	if d.reclaimMu.TryLock() {
		defer d.reclaimMu.Unlock()
		d.reclaimLocked()
	}
}

func (d *Domain) reclaimLocked() (n int) {
	d.inbox.Drain(func(r retired) { d.pending.Push(r) })
	if d.pending.Empty() {
		return
	}
	oldest := d.oldestPin()
	for r, ok := d.pending.Peek(); ok && r.epoch <= oldest; r, ok = d.pending.Peek() {
		d.pending.Pop()
		r.fn()
		n++
	}
	if n > 0 {
		d.queued.Add(-int64(n))
		d.reclaimed.Add(uint64(n))
		d.log.Debug("reclaimed retired storage", zap.Int("count", n), zap.Uint("pending", d.pending.Size()), zap.Uint64("oldestPin", oldest))
	}
	return
}

// oldestPin is the smallest epoch recorded by a live Pin, or MaxUint64 if none is live.
func (d *Domain) oldestPin() uint64 {
	oldest := uint64(math.MaxUint64)
	for i, n := uint64(0), d.nslots.Load(); i < n; i++ {
		if e := d.slots.At(i).epoch.Load(); e != 0 && e < oldest {
			oldest = e
		}
	}
	return oldest
}

// DomainStats is a point in time view of a Domain.
type DomainStats struct {
	Epoch      uint64
	ActivePins int64
	PinSlots   uint64
	Pending    int64
	Reclaimed  uint64
}

// Stats of the domain. Fields are read independently and may be mutually inconsistent under concurrency.
func (d *Domain) Stats() DomainStats {
	return DomainStats{
		Epoch:      d.epoch.Load(),
		ActivePins: d.active.Load(),
		PinSlots:   d.nslots.Load(),
		Pending:    d.queued.Load(),
		Reclaimed:  d.reclaimed.Load(),
	}
}
