package dirty

import "context"

// DirtyTracker is the minimal interface for tracking dirty (modified) byte ranges.
// Implementations track which regions of a mapped span have been modified
// and need to be flushed to its backing file.
//
// This interface is intended for components that only need to notify about dirty regions
// but don't manage flushing themselves (e.g., pools, containers, catalogs).
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the span, length is the number of bytes.
	Add(off, length int)
}

// FlushableTracker extends DirtyTracker with methods for flushing dirty regions to disk.
// This interface is intended for components that need to control when and how
// dirty data is persisted (e.g., transaction managers).
type FlushableTracker interface {
	DirtyTracker

	// FlushDataOnly flushes only the data regions (not the header page).
	FlushDataOnly(ctx context.Context) error

	// FlushHeaderAndMeta flushes the header page and syncs according to mode.
	FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error
}

// Mapping is the span a Tracker flushes. heap.Span satisfies it.
type Mapping interface {
	// Bytes returns the mapped bytes.
	Bytes() []byte

	// FD returns the backing file descriptor, or -1 when there is none.
	FD() int

	// Mapped reports whether Bytes is an OS mapping. Flushing plain
	// process memory is a no-op.
	Mapped() bool
}

var _ FlushableTracker = (*Tracker)(nil)
