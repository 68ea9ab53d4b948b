package pool

import (
	"math"

	"github.com/joshuapare/relheap/internal/buf"
	"github.com/joshuapare/relheap/internal/format"
)

const (
	tagUnit   = format.TagUnit
	tagHeader = format.TagHeaderSize
)

// RequiredSize returns the smallest span that can hold count simultaneous
// blocks of itemSize payload bytes each. Negative arguments count as zero.
// A result that would overflow int is reported as math.MaxInt.
func RequiredSize(itemSize, count int) int {
	itemSize = max(itemSize, 0)
	count = max(count, 0)
	if itemSize > math.MaxInt-2*tagUnit {
		return math.MaxInt
	}
	arena, ok := buf.MulOverflowSafe(format.AlignTag(itemSize), count)
	if !ok {
		return math.MaxInt
	}
	meta := format.PoolHeaderSize + format.BitmapBytes(arena/tagUnit)
	total, ok := buf.AddOverflowSafe(meta, arena)
	if !ok {
		return math.MaxInt
	}
	return total
}

// UsableCapacity returns the largest single payload a freshly formatted span
// of total bytes can hand out.
func UsableCapacity(total int) int {
	n := tagCapacity(total)
	if n == 0 {
		return 0
	}
	return n*tagUnit - tagHeader
}

// Overhead returns the bytes of a span of total bytes not available as payload.
func Overhead(total int) int {
	return max(total, 0) - UsableCapacity(total)
}

// tagCapacity returns the number of tag units that fit in a span of total
// bytes alongside the header and a bitmap covering them. It starts from the
// closed-form estimate and settles on the largest n that still fits.
func tagCapacity(total int) int {
	if total < format.PoolHeaderSize {
		return 0
	}
	avail := total - format.PoolHeaderSize
	fits := func(n int) bool {
		return format.BitmapBytes(n)+n*tagUnit <= avail
	}
	n := avail / (tagUnit*8 + 1) * 8
	for fits(n + 1) {
		n++
	}
	for n > 0 && !fits(n) {
		n--
	}
	return n
}
