package pool

import (
	"errors"
	"fmt"

	"github.com/joshuapare/relheap/heap/relptr"
	"github.com/joshuapare/relheap/internal/format"
)

// Alloc returns a block with room for n payload bytes and the payload slice.
// The slice has length n and capacity equal to the whole payload; its
// contents are whatever the span held before.
//
// Returns ErrNoSpace when no free block is large enough. The pool is left
// unchanged in that case.
func (p *Pool) Alloc(n int) (Ref, []byte, error) {
	if err := p.usable(); err != nil {
		return Nil, nil, err
	}
	if n < 0 {
		return Nil, nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	p.stats.AllocCalls++
	tag, err := p.alloc(n)
	if err != nil {
		return Nil, nil, err
	}
	if p.trace {
		p.log.Debug("alloc", "need", n, "ref", tag+tagHeader, "size", p.tagSize(tag))
	}
	p.mark(tag+tagHeader, n)
	return Ref(tag + tagHeader), p.payload(tag, n), nil
}

// Zalloc is Alloc with the whole payload zeroed.
func (p *Pool) Zalloc(n int) (Ref, []byte, error) {
	ref, b, err := p.Alloc(n)
	if err != nil {
		return Nil, nil, err
	}
	clear(b[:cap(b)])
	p.mark(int(ref), cap(b))
	return ref, b, nil
}

// Memdup allocates a block holding a copy of src.
func (p *Pool) Memdup(src []byte) (Ref, []byte, error) {
	if len(src) == 0 {
		return Nil, nil, ErrEmpty
	}
	ref, b, err := p.Alloc(len(src))
	if err != nil {
		return Nil, nil, err
	}
	copy(b, src)
	return ref, b, nil
}

// Free returns the block at ref to the pool and coalesces it with free
// neighbours. Freeing Nil is a no-op. Freeing a block twice returns
// ErrDoubleFree while the first free still stands as a block start.
func (p *Pool) Free(ref Ref) error {
	if err := p.usable(); err != nil {
		return err
	}
	if ref == Nil {
		return nil
	}
	p.stats.FreeCalls++
	tag, err := p.tagOf(ref)
	if err != nil {
		return err
	}
	if p.bitTest(tag) {
		return fmt.Errorf("%w: %d", ErrDoubleFree, ref)
	}
	size, err := p.checkSize("free", tag)
	if err != nil {
		return err
	}
	bal := p.balance()
	if bal < size {
		return p.corrupt("free", tag, fmt.Sprintf("balance %d below block size %d", bal, size))
	}
	p.setBalance(bal - size)
	p.stats.BytesFreed += int64(size)
	if p.trace {
		p.log.Debug("free", "ref", ref, "size", size)
	}
	return p.release("free", tag)
}

// Realloc resizes the block at ref to hold n payload bytes. A Nil ref
// behaves like Alloc. Shrinking happens in place and returns the tail to the
// pool. Growing allocates a new block, copies the old payload across, and
// frees the old block; on ErrNoSpace the old block is left intact.
func (p *Pool) Realloc(ref Ref, n int) (Ref, []byte, error) {
	if ref == Nil {
		return p.Alloc(n)
	}
	if err := p.usable(); err != nil {
		return Nil, nil, err
	}
	if n < 0 {
		return Nil, nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	p.stats.ReallocCalls++
	tag, err := p.tagOf(ref)
	if err != nil {
		return Nil, nil, err
	}
	if p.bitTest(tag) {
		return Nil, nil, fmt.Errorf("%w: %d is a free block", ErrBadRef, ref)
	}
	size, err := p.checkSize("realloc", tag)
	if err != nil {
		return Nil, nil, err
	}
	if n > p.TotalCapacity() {
		p.stats.AllocFailures++
		return Nil, nil, ErrNoSpace
	}

	need := format.AlignTag(n)
	switch {
	case need == size:
		p.mark(int(ref), n)
		return ref, p.payload(tag, n), nil

	case need < size:
		rest := size - need
		bal := p.balance()
		if bal < rest {
			return Nil, nil, p.corrupt("realloc", tag, fmt.Sprintf("balance %d below released tail %d", bal, rest))
		}
		p.setBalance(bal - rest)
		p.setTagSize(tag, need)
		p.setTagSize(tag+need, rest)
		p.stats.BytesFreed += int64(rest)
		if err := p.release("realloc", tag+need); err != nil {
			return Nil, nil, err
		}
		p.mark(int(ref), n)
		return ref, p.payload(tag, n), nil
	}

	moved, err := p.alloc(n)
	if err != nil {
		return Nil, nil, err
	}
	copy(p.mem[moved+tagHeader:moved+size], p.mem[tag+tagHeader:tag+size])
	p.mark(moved+tagHeader, n)
	p.setBalance(p.balance() - size)
	p.stats.BytesFreed += int64(size)
	if err := p.release("realloc", tag); err != nil {
		return Nil, nil, err
	}
	if p.trace {
		p.log.Debug("realloc moved", "from", ref, "to", moved+tagHeader, "need", n)
	}
	return Ref(moved + tagHeader), p.payload(moved, n), nil
}

// Bytes returns the whole payload of the allocated block at ref.
func (p *Pool) Bytes(ref Ref) ([]byte, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	tag, err := p.tagOf(ref)
	if err != nil {
		return nil, err
	}
	if p.bitTest(tag) {
		return nil, fmt.Errorf("%w: %d is a free block", ErrBadRef, ref)
	}
	size, err := p.checkSize("bytes", tag)
	if err != nil {
		return nil, err
	}
	return p.mem[tag+tagHeader : tag+size : tag+size], nil
}

// SizeOf returns the payload capacity of the allocated block at ref, which
// may exceed the size originally requested.
func (p *Pool) SizeOf(ref Ref) (int, error) {
	b, err := p.Bytes(ref)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// alloc takes the first free block of at least AlignTag(n) bytes off the
// free list, splitting off the remainder in place.
func (p *Pool) alloc(n int) (int, error) {
	if n > p.TotalCapacity() {
		p.stats.AllocFailures++
		return 0, ErrNoSpace
	}
	need := format.AlignTag(n)

	prev, tag := relptr.Nil, p.head()
	for steps := 0; tag != relptr.Nil; steps++ {
		if !p.inArena(tag) || steps > p.ntags {
			return 0, p.corrupt("alloc", tag, "free list leaves the arena")
		}
		if p.tagSize(tag) >= need {
			break
		}
		prev, tag = tag, p.tagNext(tag)
	}
	if tag == relptr.Nil {
		p.stats.AllocFailures++
		return 0, ErrNoSpace
	}

	size, err := p.checkSize("alloc", tag)
	if err != nil {
		return 0, err
	}
	if size > need {
		rest := tag + need
		p.setTagSize(rest, size-need)
		p.setTagNext(rest, p.tagNext(tag))
		p.setTagSize(tag, need)
		p.setTagNext(tag, rest)
		p.stats.Splits++
		if err := p.merge("alloc", rest); err != nil {
			return 0, err
		}
	}

	if prev == relptr.Nil {
		p.setHead(p.tagNext(tag))
	} else {
		p.setTagNext(prev, p.tagNext(tag))
	}
	p.bitClear(tag)
	p.setBalance(p.balance() + need)
	p.stats.BytesAllocated += int64(need)
	return tag, nil
}

// release links a block whose size is already set back into the address
// ordered free list and coalesces it on both sides. The caller has already
// taken the block's bytes out of the balance.
func (p *Pool) release(op string, tag int) error {
	head := p.head()
	if head == relptr.Nil || head > tag {
		p.setTagNext(tag, head)
		p.setHead(tag)
		return p.merge(op, tag)
	}

	left := p.leftFree(tag)
	if left == relptr.Nil {
		return p.corrupt(op, tag, "no free block start below a block past the free head")
	}
	next := p.tagNext(left)
	if next != relptr.Nil && next <= tag {
		return p.corrupt(op, tag, "free list out of address order")
	}
	p.setTagNext(tag, next)
	p.setTagNext(left, tag)
	if err := p.merge(op, tag); err != nil {
		return err
	}
	return p.merge(op, left)
}

// merge absorbs every free block that starts exactly where tag ends, then
// marks tag as a free block start.
func (p *Pool) merge(op string, tag int) error {
	for {
		next := p.tagNext(tag)
		if next == relptr.Nil {
			break
		}
		end := tag + p.tagSize(tag)
		if next > end {
			break
		}
		if next < end {
			return p.corrupt(op, next, fmt.Sprintf("free block overlaps the one at %d", tag))
		}
		if !p.inArena(next) {
			return p.corrupt(op, next, "free list leaves the arena")
		}
		p.setTagSize(tag, p.tagSize(tag)+p.tagSize(next))
		p.setTagNext(tag, p.tagNext(next))
		p.bitClear(next)
		p.stats.Merges++
	}
	p.bitSet(tag)
	return nil
}

func (p *Pool) payload(tag, n int) []byte {
	size := p.tagSize(tag)
	return p.mem[tag+tagHeader : tag+tagHeader+n : tag+size]
}

// IsNoSpace reports whether err is an out-of-space condition rather than a
// usage or corruption error.
func IsNoSpace(err error) bool {
	return errors.Is(err, ErrNoSpace)
}
