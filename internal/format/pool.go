package format

import (
	"fmt"

	"github.com/joshuapare/relheap/internal/buf"
)

// PoolHeader is the decoded fixed part of a pool. Relative pointers are
// returned resolved to span offsets; -1 means null.
type PoolHeader struct {
	Marker       uint64
	Size         uint64
	Balance      uint64
	NTags        uint64
	Bits         int
	Tags         int
	Free         int
	Root         int
	PrimarySeq   uint32
	SecondarySeq uint32
}

// DecodePoolHeader decodes the pool header at the start of b. It only checks
// that the header fits and carries the marker; structural validation of the
// remaining fields belongs to the pool package.
func DecodePoolHeader(b []byte) (PoolHeader, error) {
	if !buf.Has(b, 0, PoolHeaderSize) {
		return PoolHeader{}, fmt.Errorf("pool header: %w (have %d, need %d)", ErrTruncated, len(b), PoolHeaderSize)
	}
	h := PoolHeader{
		Marker:       ReadU64(b, PoolMarkerOffset),
		Size:         ReadU64(b, PoolSizeOffset),
		Balance:      ReadU64(b, PoolBalanceOffset),
		NTags:        ReadU64(b, PoolNTagsOffset),
		Bits:         resolve(b, PoolBitsOffset),
		Tags:         resolve(b, PoolTagsOffset),
		Free:         resolve(b, PoolFreeOffset),
		Root:         resolve(b, PoolRootOffset),
		PrimarySeq:   ReadU32(b, PoolPrimarySeqOff),
		SecondarySeq: ReadU32(b, PoolSecondarySeqOff),
	}
	if h.Marker != PoolMarker {
		return h, fmt.Errorf("pool header: %w (marker 0x%016x)", ErrSignatureMismatch, h.Marker)
	}
	return h, nil
}

// resolve mirrors relptr.Get without importing it; format stays a leaf.
func resolve(b []byte, at int) int {
	v := ReadI64(b, at)
	switch v {
	case 0:
		return -1
	case selfOffset:
		return at
	}
	return at + int(v)
}

const selfOffset = -1 << 63
