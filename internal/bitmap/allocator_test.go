package bitmap_test

import (
	"testing"

	"github.com/RoManTic127/filesystem-of-linux/internal/bitmap"
	"github.com/stretchr/testify/require"
)

func TestAllocateLowestFree(t *testing.T) {
	alloc := bitmap.New(8, 2)

	n, ok := alloc.Allocate()
	require.True(t, ok)
	require.Equal(t, uint32(2), n)

	n, ok = alloc.Allocate()
	require.True(t, ok)
	require.Equal(t, uint32(3), n)
}

func TestFreeThenReallocateReturnsLowest(t *testing.T) {
	alloc := bitmap.New(4, 0)

	a, _ := alloc.Allocate()
	b, _ := alloc.Allocate()
	require.Equal(t, uint32(0), a)
	require.Equal(t, uint32(1), b)

	require.NoError(t, alloc.Free(a))

	next, ok := alloc.Allocate()
	require.True(t, ok)
	require.Equal(t, uint32(0), next)
}

func TestExhaustion(t *testing.T) {
	alloc := bitmap.New(2, 0)
	_, ok := alloc.Allocate()
	require.True(t, ok)
	_, ok = alloc.Allocate()
	require.True(t, ok)

	_, ok = alloc.Allocate()
	require.False(t, ok)
}

func TestDoubleFreeIsNoOp(t *testing.T) {
	alloc := bitmap.New(4, 0)
	n, _ := alloc.Allocate()
	before := alloc.FreeCount()

	require.NoError(t, alloc.Free(n))
	afterFirst := alloc.FreeCount()
	require.Equal(t, before+1, afterFirst)

	require.NoError(t, alloc.Free(n))
	require.Equal(t, afterFirst, alloc.FreeCount())
}

func TestFreeCountMatchesReservedFloor(t *testing.T) {
	alloc := bitmap.New(10, 4)
	require.Equal(t, uint32(6), alloc.FreeCount())
	for i := uint32(0); i < 4; i++ {
		require.True(t, alloc.Test(i))
	}
}
