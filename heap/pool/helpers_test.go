package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestPool formats a fresh span of size bytes.
func newTestPool(t testing.TB, size int) *Pool {
	t.Helper()
	p, err := Format(make([]byte, size), nil)
	require.NoError(t, err)
	return p
}

// assertInvariants fails the test when the heap structures are inconsistent.
func assertInvariants(t testing.TB, p *Pool) {
	t.Helper()
	require.NoError(t, p.Check())
}

// fill writes a pattern derived from seed so overlapping blocks show up as
// clobbered contents.
func fill(b []byte, seed int) {
	for i := range b {
		b[i] = byte(seed*31 + i)
	}
}

func holds(b []byte, seed int) bool {
	for i := range b {
		if b[i] != byte(seed*31+i) {
			return false
		}
	}
	return true
}

// rangeRecorder is a DirtyTracker that keeps every range it is given.
type rangeRecorder struct {
	ranges [][2]int
}

func (r *rangeRecorder) Add(off, length int) {
	r.ranges = append(r.ranges, [2]int{off, length})
}

func (r *rangeRecorder) covers(off, length int) bool {
	for _, rg := range r.ranges {
		if rg[0] <= off && off+length <= rg[0]+rg[1] {
			return true
		}
	}
	return false
}
