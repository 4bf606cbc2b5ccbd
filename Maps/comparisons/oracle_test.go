package comparisons

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/g-m-twostay/horde"
	"github.com/g-m-twostay/horde/Maps/SyncTable"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Concurrent first-writer-wins inserts must agree with xsync's LoadOrStore.
func TestSyncTableAgainstXSync(t *testing.T) {
	const thrds, ops, keyRange = 8, 5000, 4096
	d := horde.NewDomain()
	m := SyncTable.New[uint32, uint32](horde.WithDomain(d))
	oracle := xsync.NewMapOf[uint32, uint32]()
	var g errgroup.Group
	for i := range thrds {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(i), 7))
			for range ops {
				k, v := rng.Uint32N(keyRange), rng.Uint32()
				w := m.Lock()
				got, inserted, err := w.Insert(k, v)
				if err == nil {
					// both stores happen under the table guard, so they agree on the winner.
					prev, loaded := oracle.LoadOrStore(k, v)
					if loaded == inserted || prev != *got {
						err = errMismatch
					}
				}
				w.Unlock()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	p := d.Pin()
	defer p.Release()
	r := m.Read(p)
	require.Equal(t, oracle.Size(), r.Len())
	oracle.Range(func(k, v uint32) bool {
		got, ok := r.Get(k)
		require.True(t, ok)
		require.Equal(t, v, *got)
		return true
	})
}

var errMismatch = errors.New("table and oracle disagree")
