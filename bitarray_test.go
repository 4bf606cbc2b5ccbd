package horde

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitArray(t *testing.T) {
	b := NewBitArray(130)
	require.GreaterOrEqual(t, b.Len(), uint64(130))
	require.Zero(t, b.Count())
	for _, i := range []uint64{0, 5, 63, 64, 129} {
		b.Up(i)
	}
	require.True(t, b.Get(63))
	require.False(t, b.Get(62))
	require.Equal(t, 5, b.Count())
	b.Down(5)
	require.False(t, b.Get(5))

	var ones []uint64
	b.Ones(func(i uint64) bool {
		ones = append(ones, i)
		return true
	})
	require.Equal(t, []uint64{0, 63, 64, 129}, ones)

	ones = ones[:0]
	b.Ones(func(i uint64) bool {
		ones = append(ones, i)
		return len(ones) < 2
	})
	require.Equal(t, []uint64{0, 63}, ones)
}
