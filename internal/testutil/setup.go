// Package testutil holds fixtures shared by tests across packages.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/relheap/heap"
	"github.com/joshuapare/relheap/heap/catalog"
	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/pool"
	"github.com/joshuapare/relheap/heap/shm"
)

// SetupHeapFile creates a file-backed span of size bytes in a temporary
// directory. The span is closed when the test ends.
//
// Example:
//
//	s := testutil.SetupHeapFile(t, 3*4096)
//	dt := dirty.NewTracker(s)
func SetupHeapFile(t testing.TB, size int) *heap.Span {
	t.Helper()

	s, err := heap.Create(filepath.Join(t.TempDir(), "test.heap"), size)
	require.NoError(t, err, "create test span")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SetupSegment points shm at a temporary directory for the rest of the test
// and creates the named segment in it. The handle is closed when the test
// ends; the directory goes with t.TempDir.
func SetupSegment(t testing.TB, name string, size int) *shm.Segment {
	t.Helper()
	UseShmDir(t)

	seg, err := shm.Create(name, size)
	require.NoError(t, err, "create segment %s", name)
	t.Cleanup(func() { _ = seg.Close() })
	return seg
}

// UseShmDir points shm at a fresh temporary directory.
func UseShmDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(shm.EnvDir, dir)
	return dir
}

// FormatCatalog formats mem as a pool holding an empty catalog. dt may be
// nil.
func FormatCatalog(t testing.TB, mem []byte, dt *dirty.Tracker) (*pool.Pool, *catalog.Catalog) {
	t.Helper()

	opts := &pool.Options{}
	copts := &catalog.Options{}
	if dt != nil {
		opts.Tracker = dt
		copts.Tracker = dt
	}
	p, err := pool.Format(mem, opts)
	require.NoError(t, err, "format pool")
	c, err := catalog.Create(p, copts)
	require.NoError(t, err, "create catalog")
	return p, c
}
