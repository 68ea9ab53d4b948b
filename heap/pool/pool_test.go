package pool

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/relheap/internal/format"
)

func TestFormat_Undersized(t *testing.T) {
	_, err := Format(make([]byte, format.PoolHeaderSize-1), nil)
	require.ErrorIs(t, err, ErrUndersized)
}

func TestFormat_HeaderOnly(t *testing.T) {
	// A span with no room for a single tag formats but cannot allocate.
	p := newTestPool(t, format.PoolHeaderSize)
	assert.Equal(t, 0, p.TotalCapacity())
	assert.Equal(t, 1.0, p.Utilization())

	_, _, err := p.Alloc(0)
	require.ErrorIs(t, err, ErrNoSpace)
	assertInvariants(t, p)
}

// TestMini allocates the whole capacity, frees it, and checks one byte more
// does not fit.
func TestMini(t *testing.T) {
	p := newTestPool(t, 1024)

	ref, buf, err := p.Alloc(p.TotalCapacity())
	require.NoError(t, err)
	require.Len(t, buf, p.TotalCapacity())
	assert.Equal(t, 1.0, p.Utilization())
	assertInvariants(t, p)

	require.NoError(t, p.Free(ref))
	assert.Equal(t, 0, p.Used())

	_, _, err = p.Alloc(p.TotalCapacity() + 1)
	require.ErrorIs(t, err, ErrNoSpace)
	assert.True(t, IsNoSpace(err))

	require.NoError(t, p.Reset())
	p.Cleanup()
	_, _, err = p.Alloc(1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestRequiredSize_OneByte(t *testing.T) {
	p := newTestPool(t, RequiredSize(1, 1))

	_, _, err := p.Alloc(1)
	require.NoError(t, err)
	_, _, err = p.Alloc(0)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestRequiredSize_Exact(t *testing.T) {
	// A span of exactly RequiredSize(n, c) holds c blocks of n bytes.
	for _, tc := range []struct{ size, count int }{
		{1, 1}, {8, 3}, {9, 7}, {64, 100}, {1000, 13},
	} {
		p := newTestPool(t, RequiredSize(tc.size, tc.count))
		for i := 0; i < tc.count; i++ {
			_, _, err := p.Alloc(tc.size)
			require.NoError(t, err, "size=%d count=%d i=%d", tc.size, tc.count, i)
		}
		assert.Equal(t, 1.0, p.Utilization())
		assertInvariants(t, p)
	}
}

func TestAttach(t *testing.T) {
	mem := make([]byte, 1024)
	mem[0] = 1

	_, err := Attach(mem, nil)
	require.ErrorIs(t, err, ErrBadMarker)

	_, err = Format(mem, nil)
	require.NoError(t, err)
	p, err := Attach(mem, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, p.Used())
	assert.Equal(t, len(mem), p.TotalSize())
	assert.Equal(t, p.TotalCapacity(), p.TotalSize()-Overhead(len(mem)))
	assert.Equal(t, UsableCapacity(len(mem)), p.TotalCapacity())
}

func TestAttach_Truncated(t *testing.T) {
	mem := make([]byte, 1024)
	_, err := Format(mem, nil)
	require.NoError(t, err)

	_, err = Attach(mem[:512], nil)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = Attach(mem[:16], nil)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestAttach_BadGeometry(t *testing.T) {
	mem := make([]byte, 1024)
	_, err := Format(mem, nil)
	require.NoError(t, err)

	format.PutU64(mem, format.PoolNTagsOffset, 1000)
	_, err = Attach(mem, nil)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestBalance(t *testing.T) {
	p := newTestPool(t, RequiredSize(8, 3))
	assert.Equal(t, 0, p.Used())

	v1, _, err := p.Alloc(8)
	require.NoError(t, err)
	v2, _, err := p.Alloc(8)
	require.NoError(t, err)
	v3, _, err := p.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, 16*3, p.Used())

	require.NoError(t, p.Free(v2))
	assert.Equal(t, 16*2, p.Used())
	require.NoError(t, p.Free(v1))
	require.NoError(t, p.Free(v3))
	assert.Equal(t, 0, p.Used())

	v4, _, err := p.Alloc(16 + 16 + 8)
	require.NoError(t, err)
	assert.Equal(t, 16*3, p.Used())
	assert.Greater(t, p.Utilization(), 0.9)

	require.NoError(t, p.Free(v4))
	assert.Equal(t, 0, p.Used())
	assert.Less(t, p.Utilization(), 0.1)

	r1, b1, err := p.Alloc(16)
	require.NoError(t, err)
	assert.Equal(t, 32, p.Used())
	b1[0], b1[1] = 111, 222

	r2, b2, err := p.Realloc(r1, 16)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.Equal(t, 32, p.Used())
	assert.Equal(t, []byte{111, 222}, b2[:2])

	r1, b1, err = p.Realloc(r2, 8)
	require.NoError(t, err)
	assert.Equal(t, r2, r1)
	assert.Equal(t, 16, p.Used())
	assert.Equal(t, byte(111), b1[0])

	r2, b2, err = p.Realloc(r1, 24)
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
	assert.Equal(t, 32, p.Used())
	assert.Equal(t, byte(111), b2[0])
	assertInvariants(t, p)
}

func TestFreeSpace(t *testing.T) {
	p := newTestPool(t, RequiredSize(8, 4))
	assert.Equal(t, p.TotalCapacity(), p.FreeSpace())

	refs := make([]Ref, 4)
	for i := range refs {
		var err error
		refs[i], _, err = p.Alloc(8)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, p.FreeSpace())

	// Two separate free blocks each give up one header.
	require.NoError(t, p.Free(refs[0]))
	require.NoError(t, p.Free(refs[2]))
	assert.Equal(t, 2*(16-8), p.FreeSpace())
}

func TestZallocAndMemdup(t *testing.T) {
	p := newTestPool(t, 4096)

	ref, b, err := p.Alloc(100)
	require.NoError(t, err)
	fill(b, 7)
	require.NoError(t, p.Free(ref))

	_, z, err := p.Zalloc(100)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, cap(z)), z[:cap(z)])

	_, _, err = p.Memdup(nil)
	require.ErrorIs(t, err, ErrEmpty)

	src := []byte("relocatable")
	dref, d, err := p.Memdup(src)
	require.NoError(t, err)
	assert.Equal(t, src, d)

	got, err := p.Bytes(dref)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, src))

	n, err := p.SizeOf(dref)
	require.NoError(t, err)
	assert.Equal(t, format.PayloadSize(format.AlignTag(len(src))), n)
}

func TestAlloc_NegativeSize(t *testing.T) {
	p := newTestPool(t, 1024)
	_, _, err := p.Alloc(-1)
	require.ErrorIs(t, err, ErrBadSize)
}

func TestFree_Nil(t *testing.T) {
	p := newTestPool(t, 1024)
	require.NoError(t, p.Free(Nil))
}

func TestFree_BadRef(t *testing.T) {
	p := newTestPool(t, 1024)
	ref, _, err := p.Alloc(32)
	require.NoError(t, err)

	require.ErrorIs(t, p.Free(ref+1), ErrBadRef)
	require.ErrorIs(t, p.Free(Ref(4)), ErrBadRef)
	require.ErrorIs(t, p.Free(Ref(1<<20)), ErrBadRef)

	// None of those touched the pool.
	assertInvariants(t, p)
	require.NoError(t, p.Free(ref))
}

func TestFree_Double(t *testing.T) {
	p := newTestPool(t, 1024)
	a, _, err := p.Alloc(32)
	require.NoError(t, err)
	_, _, err = p.Alloc(32)
	require.NoError(t, err)

	require.NoError(t, p.Free(a))
	require.ErrorIs(t, p.Free(a), ErrDoubleFree)

	// A double free is a usage error, not damage.
	_, _, err = p.Alloc(8)
	require.NoError(t, err)
	assertInvariants(t, p)
}

func TestCorruption_Poisons(t *testing.T) {
	p := newTestPool(t, 1024)
	ref, _, err := p.Alloc(32)
	require.NoError(t, err)

	// Lose track of the allocation.
	format.PutU64(p.Span(), format.PoolBalanceOffset, 0)

	err = p.Free(ref)
	require.ErrorIs(t, err, ErrCorrupt)
	var ce *CorruptionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "free", ce.Op)

	_, _, err = p.Alloc(8)
	require.ErrorIs(t, err, ErrCorrupt)

	// Reset recovers the pool.
	require.NoError(t, p.Reset())
	_, _, err = p.Alloc(8)
	require.NoError(t, err)
}

func TestCorruption_OverlappingFreeList(t *testing.T) {
	p := newTestPool(t, 1024)
	refs := make([]Ref, 4)
	for i := range refs {
		var err error
		refs[i], _, err = p.Alloc(24)
		require.NoError(t, err)
	}
	require.NoError(t, p.Free(refs[0]))

	// Grow the free block over its allocated neighbour.
	tag := int(refs[0]) - format.TagHeaderSize
	format.PutU64(p.Span(), tag, 64)

	require.ErrorIs(t, p.Check(), ErrCorrupt)
}

func TestCheck_StrayBitmapBit(t *testing.T) {
	p := newTestPool(t, 1024)
	_, _, err := p.Alloc(40)
	require.NoError(t, err)
	assertInvariants(t, p)

	// Mark the second unit of the allocated block as a free start.
	p.Span()[format.PoolHeaderSize] |= 1 << 1
	require.ErrorIs(t, p.Check(), ErrCorrupt)
}

func TestBlocks(t *testing.T) {
	p := newTestPool(t, RequiredSize(8, 4))
	a, _, err := p.Alloc(8)
	require.NoError(t, err)
	_, _, err = p.Alloc(24)
	require.NoError(t, err)
	require.NoError(t, p.Free(a))

	var got []Block
	require.NoError(t, p.Blocks(func(b Block) bool {
		got = append(got, b)
		return true
	}))
	require.Len(t, got, 3)
	assert.True(t, got[0].Free)
	assert.Equal(t, 16, got[0].Size)
	assert.False(t, got[1].Free)
	assert.Equal(t, 32, got[1].Size)
	assert.True(t, got[2].Free)
	assert.Equal(t, a, got[0].Payload())
}

func TestRoot(t *testing.T) {
	mem := make([]byte, 1024)
	p, err := Format(mem, nil)
	require.NoError(t, err)
	assert.Equal(t, Nil, p.Root())

	ref, _, err := p.Alloc(16)
	require.NoError(t, err)
	require.NoError(t, p.SetRoot(ref))

	q, err := Attach(mem, nil)
	require.NoError(t, err)
	assert.Equal(t, ref, q.Root())

	require.NoError(t, q.SetRoot(Nil))
	assert.Equal(t, Nil, p.Root())

	require.NoError(t, p.Free(ref))
	require.ErrorIs(t, p.SetRoot(ref), ErrBadRef)
}

func TestSequences(t *testing.T) {
	p := newTestPool(t, 1024)
	primary, secondary := p.Sequences()
	assert.Zero(t, primary)
	assert.Zero(t, secondary)

	require.NoError(t, p.SetSequences(3, 2))
	primary, secondary = p.Sequences()
	assert.Equal(t, uint32(3), primary)
	assert.Equal(t, uint32(2), secondary)

	// Reset keeps the transaction history.
	require.NoError(t, p.Reset())
	primary, _ = p.Sequences()
	assert.Equal(t, uint32(3), primary)
}

func TestDirtyTracking(t *testing.T) {
	rec := &rangeRecorder{}
	p, err := Format(make([]byte, 4096), &Options{Tracker: rec})
	require.NoError(t, err)
	assert.True(t, rec.covers(format.PoolMarkerOffset, 8))

	rec.ranges = nil
	ref, _, err := p.Alloc(100)
	require.NoError(t, err)
	assert.True(t, rec.covers(format.PoolBalanceOffset, 8))
	assert.True(t, rec.covers(format.PoolFreeOffset, 8))

	rec.ranges = nil
	p.Touch(ref, 100)
	assert.True(t, rec.covers(int(ref), 100))
}

func TestDump(t *testing.T) {
	p := newTestPool(t, 1024)
	_, _, err := p.Alloc(8)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, p.Dump(&out))
	assert.Contains(t, out.String(), "used")
	assert.Contains(t, out.String(), "free next=nil")
}

func TestStats(t *testing.T) {
	p := newTestPool(t, RequiredSize(8, 2))
	a, _, err := p.Alloc(8)
	require.NoError(t, err)
	b, _, err := p.Alloc(8)
	require.NoError(t, err)
	_, _, err = p.Alloc(8)
	require.ErrorIs(t, err, ErrNoSpace)
	require.NoError(t, p.Free(a))
	require.NoError(t, p.Free(b))

	s := p.Stats()
	assert.Equal(t, 3, s.AllocCalls)
	assert.Equal(t, 1, s.AllocFailures)
	assert.Equal(t, 2, s.FreeCalls)
	assert.Equal(t, 1, s.Splits)
	assert.Equal(t, 1, s.Merges)
	assert.Equal(t, s.BytesAllocated, s.BytesFreed)
}
