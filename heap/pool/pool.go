package pool

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/relheap/heap/relptr"
	"github.com/joshuapare/relheap/internal/format"
	"github.com/joshuapare/relheap/internal/logger"
)

// Pool is a handle on a formatted span. All heap state lives in the span;
// the handle caches only the immutable geometry, so several handles (in one
// process or many) may describe the same bytes.
//
// NOT thread-safe.
type Pool struct {
	mem   []byte
	dt    DirtyTracker
	log   *slog.Logger
	trace bool

	// Geometry fixed at format time.
	bits  int // bitmap offset
	tags  int // arena offset
	ntags int // arena capacity in tag units
	end   int // arena end offset

	stats  Stats
	broken error // set on cleanup or corruption; returned by every later call
}

func newPool(mem []byte, opts *Options) *Pool {
	p := &Pool{mem: mem, trace: logger.AllocTracing()}
	var l *slog.Logger
	if opts != nil {
		p.dt = opts.Tracker
		l = opts.Logger
	}
	p.log = logger.Or(l).With("component", "pool")
	return p
}

// Format initialises mem as an empty pool and returns a handle on it. Any
// previous contents of the header and bitmap are overwritten.
func Format(mem []byte, opts *Options) (*Pool, error) {
	if need := RequiredSize(0, 0); len(mem) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need at least %d", ErrUndersized, len(mem), need)
	}
	p := newPool(mem, opts)
	p.ntags = tagCapacity(len(mem))
	p.bits = format.PoolHeaderSize
	p.tags = p.bits + format.BitmapBytes(p.ntags)
	p.end = p.tags + p.ntags*tagUnit

	clear(mem[:format.PoolHeaderSize])
	p.putU64(format.PoolSizeOffset, len(mem))
	p.putU64(format.PoolNTagsOffset, p.ntags)
	p.setPtr(format.PoolBitsOffset, p.bits)
	p.setPtr(format.PoolTagsOffset, p.tags)
	p.setPtr(format.PoolRootOffset, relptr.Nil)
	p.initArena()
	// The marker goes last so a half-formatted span never attaches.
	format.PutU64(mem, format.PoolMarkerOffset, format.PoolMarker)
	p.mark(format.PoolMarkerOffset, format.WordSize)

	p.log.Debug("formatted", "size", len(mem), "ntags", p.ntags, "capacity", p.TotalCapacity())
	return p, nil
}

// Attach returns a handle on a span previously formatted by Format, possibly
// by another process or at another address. The span is not modified.
func Attach(mem []byte, opts *Options) (*Pool, error) {
	h, err := format.DecodePoolHeader(mem)
	switch {
	case errors.Is(err, format.ErrTruncated):
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrBadMarker, err)
	}
	if h.Size > uint64(len(mem)) {
		return nil, fmt.Errorf("%w: recorded %d bytes, have %d", ErrTruncated, h.Size, len(mem))
	}

	p := newPool(mem, opts)
	p.ntags = int(h.NTags)
	p.bits = h.Bits
	p.tags = h.Tags
	p.end = p.tags + p.ntags*tagUnit
	if p.ntags != tagCapacity(int(h.Size)) ||
		p.bits != format.PoolHeaderSize ||
		p.tags != p.bits+format.BitmapBytes(p.ntags) ||
		p.end > int(h.Size) {
		return nil, &CorruptionError{Op: "attach", Offset: 0, Detail: "header geometry does not match recorded size"}
	}
	if h.Free != relptr.Nil && !p.inArena(h.Free) {
		return nil, &CorruptionError{Op: "attach", Offset: format.PoolFreeOffset, Detail: "free head outside arena"}
	}
	if h.PrimarySeq != h.SecondarySeq {
		p.log.Warn("attached with an unfinished transaction",
			"primary", h.PrimarySeq, "secondary", h.SecondarySeq)
	}
	p.log.Debug("attached", "size", h.Size, "ntags", p.ntags, "used", h.Balance)
	return p, nil
}

// Reset discards every allocation and the root record, returning the pool to
// its freshly formatted state. Sequence numbers are preserved.
func (p *Pool) Reset() error {
	if p.mem == nil {
		return ErrClosed
	}
	p.setPtr(format.PoolRootOffset, relptr.Nil)
	p.initArena()
	p.broken = nil
	p.stats = Stats{}
	p.log.Debug("reset", "ntags", p.ntags)
	return nil
}

// Cleanup detaches the handle. The span itself is left as is; any handle or
// process attached to it can keep using it.
func (p *Pool) Cleanup() {
	p.mem = nil
	p.broken = ErrClosed
}

// initArena clears the bitmap and turns the whole arena into one free block.
func (p *Pool) initArena() {
	n := format.BitmapBytes(p.ntags)
	clear(p.mem[p.bits : p.bits+n])
	p.mark(p.bits, n)
	p.putU64(format.PoolBalanceOffset, 0)
	if p.ntags == 0 {
		p.setHead(relptr.Nil)
		return
	}
	p.setTagSize(p.tags, p.ntags*tagUnit)
	p.setTagNext(p.tags, relptr.Nil)
	p.bitSet(p.tags)
	p.setHead(p.tags)
}

// Span returns the bytes the pool manages.
func (p *Pool) Span() []byte { return p.mem }

// TotalSize returns the span size recorded at format time.
func (p *Pool) TotalSize() int {
	if p.mem == nil {
		return 0
	}
	return p.u64(format.PoolSizeOffset)
}

// TotalCapacity returns the largest single payload the empty pool can hold.
func (p *Pool) TotalCapacity() int {
	if p.ntags == 0 {
		return 0
	}
	return p.ntags*tagUnit - tagHeader
}

// Used returns the bytes currently allocated, block headers included.
func (p *Pool) Used() int {
	if p.mem == nil {
		return 0
	}
	return p.balance()
}

// FreeSpace returns the payload bytes available across all free blocks.
// A free block of s bytes contributes s minus one header.
func (p *Pool) FreeSpace() int {
	if p.mem == nil {
		return 0
	}
	total := 0
	for tag, steps := p.head(), 0; tag != relptr.Nil && steps <= p.ntags; steps++ {
		if !p.inArena(tag) {
			break
		}
		total += format.PayloadSize(p.tagSize(tag))
		tag = p.tagNext(tag)
	}
	return total
}

// Utilization returns the fraction of the arena currently allocated.
// A pool with no arena reports 1.
func (p *Pool) Utilization() float64 {
	if p.ntags == 0 || p.mem == nil {
		return 1
	}
	return float64(p.balance()) / float64(p.ntags*tagUnit)
}

// Stats returns the operation counters gathered by this handle.
func (p *Pool) Stats() Stats { return p.stats }

// Root returns the caller's root record, or Nil when none is set.
func (p *Pool) Root() Ref {
	if p.mem == nil {
		return Nil
	}
	at := p.ptr(format.PoolRootOffset)
	if at == relptr.Nil {
		return Nil
	}
	return Ref(at)
}

// SetRoot records ref as the entry point for other processes attaching to
// the span. Nil clears it.
func (p *Pool) SetRoot(ref Ref) error {
	if err := p.usable(); err != nil {
		return err
	}
	at := relptr.Nil
	if ref != Nil {
		tag, err := p.tagOf(ref)
		if err != nil {
			return err
		}
		if p.bitTest(tag) {
			return fmt.Errorf("%w: root %d is a free block", ErrBadRef, ref)
		}
		at = int(ref)
	}
	p.setPtr(format.PoolRootOffset, at)
	return nil
}

// Sequences returns the transaction sequence pair stored in the header.
// They differ while a transaction is open.
func (p *Pool) Sequences() (primary, secondary uint32) {
	if p.mem == nil {
		return 0, 0
	}
	return format.ReadU32(p.mem, format.PoolPrimarySeqOff), format.ReadU32(p.mem, format.PoolSecondarySeqOff)
}

// SetSequences stores the transaction sequence pair.
func (p *Pool) SetSequences(primary, secondary uint32) error {
	if p.mem == nil {
		return ErrClosed
	}
	format.PutU32(p.mem, format.PoolPrimarySeqOff, primary)
	format.PutU32(p.mem, format.PoolSecondarySeqOff, secondary)
	p.mark(format.PoolPrimarySeqOff, 8)
	return nil
}

// Touch reports size bytes at ref to the dirty tracker. Callers that write
// payload through the slices returned by Alloc use it to have those writes
// flushed too.
func (p *Pool) Touch(ref Ref, size int) {
	if size > 0 {
		p.mark(int(ref), size)
	}
}

func (p *Pool) usable() error {
	return p.broken
}

// corrupt poisons the pool and returns the error every later call reports.
func (p *Pool) corrupt(op string, off int, detail string) error {
	err := &CorruptionError{Op: op, Offset: off, Detail: detail}
	p.broken = err
	p.log.Error("heap corrupted", "op", op, "offset", off, "detail", detail)
	return err
}

func (p *Pool) inArena(tag int) bool {
	return tag >= p.tags && tag < p.end && (tag-p.tags)%tagUnit == 0
}

// tagOf maps a payload reference to its block and validates the block size.
func (p *Pool) tagOf(ref Ref) (int, error) {
	tag := int(ref) - tagHeader
	if !p.inArena(tag) {
		return 0, fmt.Errorf("%w: %d", ErrBadRef, ref)
	}
	return tag, nil
}

func (p *Pool) checkSize(op string, tag int) (int, error) {
	size := p.tagSize(tag)
	if size < tagUnit || size%tagUnit != 0 || size > p.end-tag {
		return 0, p.corrupt(op, tag, fmt.Sprintf("block size %d invalid", size))
	}
	return size, nil
}

func (p *Pool) mark(off, n int) {
	if p.dt != nil {
		p.dt.Add(off, n)
	}
}

func (p *Pool) u64(off int) int {
	return int(format.ReadU64(p.mem, off))
}

func (p *Pool) putU64(off, v int) {
	format.PutU64(p.mem, off, uint64(v))
	p.mark(off, format.WordSize)
}

func (p *Pool) ptr(at int) int {
	return relptr.Get(p.mem, at)
}

func (p *Pool) setPtr(at, addr int) {
	relptr.Set(p.mem, at, addr)
	p.mark(at, relptr.Size)
}

func (p *Pool) balance() int     { return p.u64(format.PoolBalanceOffset) }
func (p *Pool) setBalance(v int) { p.putU64(format.PoolBalanceOffset, v) }
func (p *Pool) head() int        { return p.ptr(format.PoolFreeOffset) }
func (p *Pool) setHead(tag int)  { p.setPtr(format.PoolFreeOffset, tag) }

func (p *Pool) tagSize(tag int) int { return p.u64(tag + format.TagSizeOffset) }
func (p *Pool) tagNext(tag int) int { return p.ptr(tag + format.TagNextOffset) }

func (p *Pool) setTagSize(tag, n int) {
	p.putU64(tag+format.TagSizeOffset, n)
}

func (p *Pool) setTagNext(tag, next int) {
	p.setPtr(tag+format.TagNextOffset, next)
}
