package horde

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// PaddedUint64 is an atomic counter that owns its cache line, so that a hot counter written by one goroutine doesn't slow down readers of its neighbours.
type PaddedUint64 struct {
	_ cpu.CacheLinePad
	atomic.Uint64
	_ cpu.CacheLinePad
}

// PaddedInt64 is the signed PaddedUint64.
type PaddedInt64 struct {
	_ cpu.CacheLinePad
	atomic.Int64
	_ cpu.CacheLinePad
}
