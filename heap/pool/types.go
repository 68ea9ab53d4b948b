package pool

import "log/slog"

// Ref is the span offset of a block payload. Offsets below the end of the
// pool header never name a payload, so the zero Ref doubles as null.
type Ref int

// Nil is the null reference.
const Nil Ref = 0

// Allocator is the allocation surface shared by pools and anything that
// wraps one.
type Allocator interface {
	// Alloc returns a block with room for n payload bytes.
	Alloc(n int) (Ref, []byte, error)

	// Realloc resizes a block, moving it when it grows.
	Realloc(ref Ref, n int) (Ref, []byte, error)

	// Free returns a block to the pool. Freeing Nil is a no-op.
	Free(ref Ref) error
}

var _ Allocator = (*Pool)(nil)

// Options configures Format and Attach. A nil *Options means defaults.
type Options struct {
	// Tracker receives every byte range the pool writes. Optional.
	Tracker DirtyTracker

	// Logger receives debug and corruption records. Defaults to the
	// package-wide logger, which discards unless configured.
	Logger *slog.Logger
}

// Block describes one block of the arena, as reported by Blocks.
type Block struct {
	Offset int  // span offset of the block header
	Size   int  // bytes spanned, header included
	Free   bool // whether the block is on the free list
}

// Payload returns the reference a caller would hold for an allocated block.
func (b Block) Payload() Ref {
	return Ref(b.Offset + tagHeader)
}

// Stats holds in-process operation counters. They are not stored in the span
// and restart from zero on every Format or Attach.
type Stats struct {
	AllocCalls     int   // Alloc, Zalloc and Memdup calls
	AllocFailures  int   // allocations that returned ErrNoSpace
	FreeCalls      int   // Free calls with a non-nil reference
	ReallocCalls   int   // Realloc calls with a non-nil reference
	Splits         int   // free blocks split to satisfy a request
	Merges         int   // adjacent free blocks coalesced
	BytesAllocated int64 // tag bytes handed out, headers included
	BytesFreed     int64 // tag bytes returned, headers included
}
