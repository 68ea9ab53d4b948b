package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrUndersized indicates the span cannot even hold the pool header.
	ErrUndersized = errors.New("pool: span too small")

	// ErrBadMarker indicates Attach found no pool marker at the start of the span.
	ErrBadMarker = errors.New("pool: span is not a formatted pool")

	// ErrTruncated indicates the span is shorter than the pool recorded in it.
	ErrTruncated = errors.New("pool: span shorter than formatted pool")

	// ErrNoSpace indicates that no free block large enough was found.
	ErrNoSpace = errors.New("pool: no free block large enough")

	// ErrBadSize indicates a negative allocation size.
	ErrBadSize = errors.New("pool: negative size")

	// ErrBadRef indicates a reference that does not point at a block payload.
	ErrBadRef = errors.New("pool: bad block reference")

	// ErrDoubleFree indicates a reference to a block that is already free.
	ErrDoubleFree = errors.New("pool: block already free")

	// ErrEmpty indicates Memdup was given nothing to copy.
	ErrEmpty = errors.New("pool: empty source")

	// ErrClosed indicates use of a pool after Cleanup.
	ErrClosed = errors.New("pool: used after cleanup")

	// ErrCorrupt indicates the heap structures inside the span are damaged.
	ErrCorrupt = errors.New("pool: heap corrupted")
)

// CorruptionError describes damage detected while operating on a pool.
type CorruptionError struct {
	Op     string // operation that detected the damage
	Offset int    // span offset of the block involved
	Detail string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("pool: heap corrupted during %s at offset %d: %s", e.Op, e.Offset, e.Detail)
}

// Is makes errors.Is(err, ErrCorrupt) hold for every CorruptionError.
func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}
