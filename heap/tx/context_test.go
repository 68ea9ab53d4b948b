//go:build unix

package tx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/pool"
	"github.com/joshuapare/relheap/heap/shm"
	"github.com/joshuapare/relheap/heap/tx"
	"github.com/joshuapare/relheap/internal/testutil"
)

// setupSegment formats a pool in a fresh shared segment and returns a
// manager that locks the segment.
func setupSegment(t *testing.T) (*shm.Segment, *pool.Pool, *tx.Manager) {
	t.Helper()
	seg := testutil.SetupSegment(t, "txtest", 64<<10)

	dt := dirty.NewTracker(seg.Span())
	p, err := pool.Format(seg.Bytes(), &pool.Options{Tracker: dt})
	require.NoError(t, err)
	return seg, p, tx.NewManager(p, seg, dt, dirty.FlushAuto)
}

func TestManager_Begin_PreCancelled(t *testing.T) {
	_, _, tm := setupSegment(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tm.Begin(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled),
		"expected context.Canceled, got: %v", err)
}

func TestManager_Commit_PreCancelled(t *testing.T) {
	seg, _, tm := setupSegment(t)

	require.NoError(t, tm.Begin(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tm.Commit(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled),
		"expected context.Canceled, got: %v", err)
	require.True(t, seg.Locked())

	tm.Rollback()
	require.False(t, seg.Locked())
}

func TestManager_BeginCommit_Success(t *testing.T) {
	seg, p, tm := setupSegment(t)
	ctx := context.Background()

	require.NoError(t, tm.Begin(ctx))
	require.True(t, tm.InTransaction())
	require.True(t, seg.Locked())

	ref, b, err := p.Alloc(100)
	require.NoError(t, err)
	copy(b, "committed")
	p.Touch(ref, len(b))

	require.NoError(t, tm.Commit(ctx))
	require.False(t, tm.InTransaction())
	require.False(t, seg.Locked())
	require.True(t, tx.Consistent(p))
}

// A second manager on another handle waits for the first to commit.
func TestManager_LockContention(t *testing.T) {
	seg, p, tm := setupSegment(t)
	ctx := context.Background()

	other, err := shm.Open(seg.Name())
	require.NoError(t, err)
	defer other.Close()
	p2, err := pool.Attach(other.Bytes(), nil)
	require.NoError(t, err)
	tm2 := tx.NewManager(p2, other, dirty.NewTracker(other.Span()), dirty.FlushAuto)

	require.NoError(t, tm.Begin(ctx))

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, tm2.Begin(short), context.DeadlineExceeded)

	require.NoError(t, tm.Commit(ctx))
	require.NoError(t, tm2.Begin(ctx))
	primary, _ := p.Sequences()
	require.Equal(t, tm2.CurrentSequence(), primary)
	require.NoError(t, tm2.Commit(ctx))
}
