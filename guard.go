package horde

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// GoroutineID parses the current goroutine's id out of its stack header. Go doesn't expose goroutine identity, so this is only meant for fail-fast checks.
func GoroutineID() uint64 {
	var buf [64]byte
	data := buf[:runtime.Stack(buf[:], false)]
	data = bytes.TrimPrefix(data, []byte("goroutine "))
	if i := bytes.IndexByte(data, ' '); i >= 0 {
		data = data[:i]
	}
	id, _ := strconv.ParseUint(string(data), 10, 64)
	return id
}

// WriteLock is the mutex behind a collection's LockedWrite guard. Every acquisition gets a fresh serial number; the guard keeps it and presents it back, so a guard that was already released, or anything derived from it, is caught instead of silently mutating under someone else's lock.
type WriteLock struct {
	mu     sync.Mutex
	serial atomic.Uint64
	owner  atomic.Uint64
	held   atomic.Bool
	lax    bool //skip the goroutine check in Check; Release always does it.
}

// SetGuardCheck turns the goroutine identity check of Check on or off; it's on for the zero value. Release checks the goroutine either way. It must be called before the lock is shared.
func (l *WriteLock) SetGuardCheck(on bool) {
	l.lax = !on
}

// Acquire blocks until the lock is free and returns the serial of this acquisition.
func (l *WriteLock) Acquire() uint64 {
	l.mu.Lock()
	return l.acquired()
}

// TryAcquire is the non-blocking Acquire.
func (l *WriteLock) TryAcquire() (uint64, bool) {
	if !l.mu.TryLock() {
		return 0, false
	}
	return l.acquired(), true
}

func (l *WriteLock) acquired() uint64 {
	l.owner.Store(GoroutineID())
	l.held.Store(true)
	return l.serial.Add(1)
}

// Check panics unless serial is the current acquisition and, with the guard check on, the caller is the goroutine that acquired it.
func (l *WriteLock) Check(op string, serial uint64) {
	l.check(op, serial, !l.lax)
}

func (l *WriteLock) check(op string, serial uint64, owner bool) {
	if !l.held.Load() || l.serial.Load() != serial {
		Violation(op, "guard already released")
	}
	if owner && l.owner.Load() != GoroutineID() {
		Violation(op, "guard used outside the goroutine that acquired it")
	}
}

// Release unlocks the acquisition identified by serial. It must run on the goroutine that acquired it; otherwise it panics and the lock stays held.
func (l *WriteLock) Release(op string, serial uint64) {
	l.check(op, serial, true)
	if !l.held.CompareAndSwap(true, false) {
		Violation(op, "guard released twice")
	}
	l.mu.Unlock()
}

// Held reports whether some guard is live.
func (l *WriteLock) Held() bool {
	return l.held.Load()
}
