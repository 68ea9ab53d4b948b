package dirty

import (
	"context"
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	// This reduces allocations during typical workloads.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability guarantees for transaction commits.
type FlushMode int

const (
	// FlushAuto provides safe defaults for most use cases:
	// - msync() dirty data pages
	// - fdatasync() after header write
	// - On macOS, uses F_FULLFSYNC for maximum durability.
	FlushAuto FlushMode = iota

	// FlushDataOnly only flushes dirty data pages via msync().
	// The caller is responsible for calling fdatasync() later.
	// Use this when batching multiple transactions together.
	FlushDataOnly

	// FlushFull provides ultra-safe durability:
	// - msync() dirty data pages
	// - msync() header page
	// - fdatasync() file descriptor
	// - On macOS, uses F_FULLFSYNC
	// Use this for power-loss sensitive workflows.
	FlushFull
)

// String returns the flag spelling of the mode.
func (m FlushMode) String() string {
	switch m {
	case FlushAuto:
		return "auto"
	case FlushDataOnly:
		return "data"
	case FlushFull:
		return "full"
	}
	return "unknown"
}

// ParseFlushMode maps "auto", "data" or "full" to a FlushMode.
func ParseFlushMode(s string) (FlushMode, bool) {
	for _, m := range []FlushMode{FlushAuto, FlushDataOnly, FlushFull} {
		if m.String() == s {
			return m, true
		}
	}
	return FlushAuto, false
}

// Range represents a dirty byte range (span offsets).
type Range struct {
	Off int64 // Offset in the span
	Len int64 // Length in bytes
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	m        Mapping
	ranges   []Range // Dirty data ranges (will be coalesced at flush time)
	pageSize int64   // OS page size (typically 4096)
}

// NewTracker creates a dirty tracker for the given mapping.
//
// The tracker pre-allocates capacity for 64 ranges to minimize allocations
// during typical workloads.
func NewTracker(m Mapping) *Tracker {
	return &Tracker{
		m:        m,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records a dirty range.
//
// The range will be page-aligned and coalesced with other ranges at flush time.
// This method only appends to a slice.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Pending returns the number of raw ranges recorded since the last flush.
func (t *Tracker) Pending() int {
	return len(t.ranges)
}

// FlushDataOnly flushes all dirty data ranges (not header) to disk.
//
// This method:
//  1. Coalesces all ranges into page-aligned, non-overlapping ranges
//  2. Flushes each range using msync() (Unix) or FlushViewOfFile (Windows)
//  3. Clears the ranges slice
//
// The header page (offset 0, length 4096) is NOT flushed.
//
// The context can be used to cancel the flush operation. If cancelled during
// flushing, some ranges may have been flushed while others have not.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}

	// Check for cancellation before starting
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.m.Bytes()
	if len(data) == 0 || !t.m.Mapped() {
		t.ranges = t.ranges[:0]
		return nil
	}

	// Platform-specific flushing
	if err := t.flushRanges(ctx, data); err != nil {
		return err
	}

	t.ranges = t.ranges[:0]
	return nil
}

// FlushHeaderAndMeta flushes the header page and optionally syncs the file descriptor.
//
// This method:
//  1. Flushes the header page (offset 0, length 4096) using msync()
//  2. Calls fdatasync() based on the FlushMode:
//     - FlushAuto: fdatasync()
//     - FlushDataOnly: no fdatasync()
//     - FlushFull: fdatasync() + F_FULLFSYNC on macOS
//
// The context can be used to cancel the operation. Note that if cancelled after
// the header is flushed but before fdatasync completes, the header may be
// inconsistent with the data pages on disk.
func (t *Tracker) FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.m.Bytes()
	if len(data) == 0 || !t.m.Mapped() {
		return nil
	}

	headerLen := min(int(t.pageSize), len(data))
	if err := msync(data[:headerLen]); err != nil {
		return err
	}

	// Check for cancellation before fdatasync
	if err := ctx.Err(); err != nil {
		return err
	}

	fd := t.m.FD()
	if mode == FlushDataOnly || fd < 0 {
		return nil
	}
	return fdatasync(fd, mode == FlushFull)
}

// Reset clears all tracked ranges.
//
// This is useful for testing or when aborting a transaction.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns the current dirty ranges (for testing/debugging).
//
// The returned ranges are the raw, uncoalesced ranges.
func (t *Tracker) DebugRanges() []Range {
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// DebugCoalescedRanges returns the coalesced dirty ranges (for testing/debugging).
//
// These are page-aligned, sorted, and merged ranges that will be flushed.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
//
// Returns a new slice of non-overlapping, sorted ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		// Round down start to page boundary
		start := (r.Off / t.pageSize) * t.pageSize

		// Round up end to page boundary
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}

		aligned[i] = Range{
			Off: start,
			Len: end - start,
		}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	// Merge overlapping/adjacent ranges
	merged := make([]Range, 0, len(aligned))
	current := aligned[0]

	for i := 1; i < len(aligned); i++ {
		next := aligned[i]

		if next.Off <= current.Off+current.Len {
			end := max(current.Off+current.Len, next.Off+next.Len)
			current.Len = end - current.Off
		} else {
			merged = append(merged, current)
			current = next
		}
	}

	merged = append(merged, current)

	return merged
}

// dataRanges returns the coalesced ranges with the header page removed and
// the tails clipped to the mapping.
func (t *Tracker) dataRanges(size int) []Range {
	coalesced := t.coalesce()
	out := coalesced[:0]
	for _, r := range coalesced {
		if r.Off < t.pageSize {
			r.Len -= t.pageSize - r.Off
			r.Off = t.pageSize
		}
		if r.Off+r.Len > int64(size) {
			r.Len = int64(size) - r.Off
		}
		if r.Len > 0 {
			out = append(out, r)
		}
	}
	return out
}
