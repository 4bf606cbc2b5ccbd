package comparisons

import (
	"sync/atomic"
	"testing"

	"github.com/alphadose/haxmap"
	"github.com/cornelk/hashmap"
	"github.com/g-m-twostay/horde"
	"github.com/g-m-twostay/horde/Maps/SyncTable"
	"github.com/puzpuzpuz/xsync/v3"
)

const benchmarkItemCount = 1024

var hasher = horde.NewHasher()

func hashUintptr(x uintptr) uint64 {
	return hasher.HashUint64(uint64(x))
}

// compares with https://github.com/cornelk/hashmap using https://github.com/cornelk/hashmap/blob/main/benchmarks/benchmark_test.go.
// compares with https://github.com/alphadose/haxmap and https://github.com/puzpuzpuz/xsync using the same benchmarks.
// SyncTable is insert-only, so writers insert fresh keys instead of overwriting.
func setupHashMap(b *testing.B) *hashmap.Map[uintptr, uintptr] {
	b.Helper()
	m := hashmap.New[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	return m
}

func setupHaxMap(b *testing.B) *haxmap.Map[uintptr, uintptr] {
	b.Helper()
	m := haxmap.New[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	return m
}

func setupXSyncMap(b *testing.B) *xsync.MapOf[uintptr, uintptr] {
	b.Helper()
	m := xsync.NewMapOf[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Store(i, i)
	}
	return m
}

func setupSyncTable(b *testing.B) *SyncTable.SyncTable[uintptr, uintptr] {
	b.Helper()
	m := SyncTable.NewWith[uintptr, uintptr](hashUintptr, func(x, y uintptr) bool { return x == y }, horde.WithDomain(horde.NewDomain()), horde.WithGuardCheck(false))
	w := m.Lock()
	defer w.Unlock()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		if _, _, err := w.Insert(i, i); err != nil {
			b.Fatal(err)
		}
	}
	return m
}

func Benchmark1ReadHashMapUint(b *testing.B) {
	m := setupHashMap(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for i := uintptr(0); i < benchmarkItemCount; i++ {
				if j, _ := m.Get(i); j != i {
					b.Fail()
				}
			}
		}
	})
}

func Benchmark1ReadHaxMapUint(b *testing.B) {
	m := setupHaxMap(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for i := uintptr(0); i < benchmarkItemCount; i++ {
				if j, _ := m.Get(i); j != i {
					b.Fail()
				}
			}
		}
	})
}

func Benchmark1ReadXSyncMapUint(b *testing.B) {
	m := setupXSyncMap(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for i := uintptr(0); i < benchmarkItemCount; i++ {
				if j, _ := m.Load(i); j != i {
					b.Fail()
				}
			}
		}
	})
}

func Benchmark1ReadSyncTableUint(b *testing.B) {
	m := setupSyncTable(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p := m.Domain().Pin()
			r := m.Read(p)
			for i := uintptr(0); i < benchmarkItemCount; i++ {
				if j, ok := r.Get(i); !ok || *j != i {
					b.Fail()
				}
			}
			p.Release()
		}
	})
}

func Benchmark1ReadHashMapWithWritesUint(b *testing.B) {
	m := setupHashMap(b)
	var writer atomic.Bool
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		// use 1 goroutine as writer
		if writer.CompareAndSwap(false, true) {
			for n := uintptr(benchmarkItemCount); pb.Next(); n += benchmarkItemCount {
				for i := n; i < n+benchmarkItemCount; i++ {
					m.Set(i, i)
				}
			}
		} else {
			for pb.Next() {
				for i := uintptr(0); i < benchmarkItemCount; i++ {
					if j, _ := m.Get(i); j != i {
						b.Fail()
					}
				}
			}
		}
	})
}

func Benchmark1ReadHaxMapWithWritesUint(b *testing.B) {
	m := setupHaxMap(b)
	var writer atomic.Bool
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		if writer.CompareAndSwap(false, true) {
			for n := uintptr(benchmarkItemCount); pb.Next(); n += benchmarkItemCount {
				for i := n; i < n+benchmarkItemCount; i++ {
					m.Set(i, i)
				}
			}
		} else {
			for pb.Next() {
				for i := uintptr(0); i < benchmarkItemCount; i++ {
					if j, _ := m.Get(i); j != i {
						b.Fail()
					}
				}
			}
		}
	})
}

func Benchmark1ReadXSyncMapWithWritesUint(b *testing.B) {
	m := setupXSyncMap(b)
	var writer atomic.Bool
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		if writer.CompareAndSwap(false, true) {
			for n := uintptr(benchmarkItemCount); pb.Next(); n += benchmarkItemCount {
				for i := n; i < n+benchmarkItemCount; i++ {
					m.Store(i, i)
				}
			}
		} else {
			for pb.Next() {
				for i := uintptr(0); i < benchmarkItemCount; i++ {
					if j, _ := m.Load(i); j != i {
						b.Fail()
					}
				}
			}
		}
	})
}

func Benchmark1ReadSyncTableWithWritesUint(b *testing.B) {
	m := setupSyncTable(b)
	var writer atomic.Bool
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		if writer.CompareAndSwap(false, true) {
			for n := uintptr(benchmarkItemCount); pb.Next(); n += benchmarkItemCount {
				w := m.Lock()
				for i := n; i < n+benchmarkItemCount; i++ {
					if _, _, err := w.Insert(i, i); err != nil {
						b.Error(err)
					}
				}
				w.Unlock()
			}
		} else {
			for pb.Next() {
				p := m.Domain().Pin()
				r := m.Read(p)
				for i := uintptr(0); i < benchmarkItemCount; i++ {
					if j, ok := r.Get(i); !ok || *j != i {
						b.Fail()
					}
				}
				p.Release()
			}
		}
	})
}

func Benchmark1FillHashMapUint(b *testing.B) {
	for n := 0; n < b.N; n++ {
		m := hashmap.New[uintptr, uintptr]()
		for i := uintptr(0); i < benchmarkItemCount; i++ {
			m.Set(i, i)
		}
	}
}

func Benchmark1FillHaxMapUint(b *testing.B) {
	for n := 0; n < b.N; n++ {
		m := haxmap.New[uintptr, uintptr]()
		for i := uintptr(0); i < benchmarkItemCount; i++ {
			m.Set(i, i)
		}
	}
}

func Benchmark1FillXSyncMapUint(b *testing.B) {
	for n := 0; n < b.N; n++ {
		m := xsync.NewMapOf[uintptr, uintptr]()
		for i := uintptr(0); i < benchmarkItemCount; i++ {
			m.Store(i, i)
		}
	}
}

func Benchmark1FillSyncTableUint(b *testing.B) {
	d := horde.NewDomain()
	for n := 0; n < b.N; n++ {
		m := SyncTable.NewWith[uintptr, uintptr](hashUintptr, func(x, y uintptr) bool { return x == y }, horde.WithDomain(d), horde.WithGuardCheck(false))
		w := m.Lock()
		for i := uintptr(0); i < benchmarkItemCount; i++ {
			if _, _, err := w.Insert(i, i); err != nil {
				b.Fatal(err)
			}
		}
		w.Unlock()
	}
}
