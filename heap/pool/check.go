package pool

import (
	"fmt"
	"io"

	"github.com/joshuapare/relheap/heap/relptr"
	"github.com/joshuapare/relheap/internal/format"
)

// Blocks walks the arena in address order and calls fn for every block until
// fn returns false. Block boundaries come from the size fields alone, so a
// walk over a damaged arena stops with a *CorruptionError.
func (p *Pool) Blocks(fn func(Block) bool) error {
	if p.mem == nil {
		return ErrClosed
	}
	for tag := p.tags; tag < p.end; {
		size := p.tagSize(tag)
		if size < tagUnit || size%tagUnit != 0 || size > p.end-tag {
			return &CorruptionError{Op: "blocks", Offset: tag, Detail: fmt.Sprintf("block size %d invalid", size)}
		}
		if !fn(Block{Offset: tag, Size: size, Free: p.bitTest(tag)}) {
			return nil
		}
		tag += size
	}
	return nil
}

// Check verifies the structural invariants of the heap without modifying it:
//
//   - blocks tile the arena exactly
//   - the bitmap marks exactly the free block starts
//   - the free list visits every free block once, in ascending address order
//   - no two free blocks are adjacent
//   - the balance equals the bytes spanned by allocated blocks
//
// The first violation is returned as a *CorruptionError. Check does not
// poison the pool.
func (p *Pool) Check() error {
	if p.mem == nil {
		return ErrClosed
	}
	bad := func(off int, msg string, args ...any) error {
		return &CorruptionError{Op: "check", Offset: off, Detail: fmt.Sprintf(msg, args...)}
	}

	var (
		starts   = make(map[int]bool)
		used     int
		nfree    int
		freeEnd  = -1 // end of the previous block when it was free
		adjacent = -1
	)
	err := p.Blocks(func(b Block) bool {
		starts[b.Offset] = true
		if !b.Free {
			used += b.Size
			freeEnd = -1
			return true
		}
		nfree++
		if freeEnd == b.Offset {
			adjacent = b.Offset
			return false
		}
		freeEnd = b.Offset + b.Size
		return true
	})
	if err != nil {
		return err
	}
	if adjacent >= 0 {
		return bad(adjacent, "free block adjacent to the previous free block")
	}

	for i := 0; i < p.ntags; i++ {
		tag := p.tags + i*tagUnit
		if p.bitTest(tag) && !starts[tag] {
			return bad(tag, "bitmap marks a unit inside a block")
		}
	}

	seen := 0
	last := relptr.Nil
	for tag := p.head(); tag != relptr.Nil; tag = p.tagNext(tag) {
		if seen > nfree {
			return bad(tag, "free list longer than the free blocks in the arena")
		}
		if !starts[tag] || !p.bitTest(tag) {
			return bad(tag, "free list entry is not a free block start")
		}
		if last != relptr.Nil && tag <= last {
			return bad(tag, "free list out of address order after %d", last)
		}
		last = tag
		seen++
	}
	if seen != nfree {
		return bad(0, "free list has %d entries, arena has %d free blocks", seen, nfree)
	}

	if bal := p.balance(); bal != used {
		return bad(format.PoolBalanceOffset, "balance %d, allocated blocks span %d", bal, used)
	}
	return nil
}

// Dump writes a human-readable description of the header and every block
// to w.
func (p *Pool) Dump(w io.Writer) error {
	if p.mem == nil {
		return ErrClosed
	}
	primary, secondary := p.Sequences()
	fmt.Fprintf(w, "pool size=%d ntags=%d bitmap=0x%x arena=0x%x end=0x%x\n",
		p.TotalSize(), p.ntags, p.bits, p.tags, p.end)
	fmt.Fprintf(w, "  used=%d free=%d capacity=%d utilization=%.2f%%\n",
		p.Used(), p.FreeSpace(), p.TotalCapacity(), p.Utilization()*100)
	fmt.Fprintf(w, "  free-head=%s root=%s seq=%d/%d\n",
		offsetString(p.head()), offsetString(p.ptr(format.PoolRootOffset)), primary, secondary)

	return p.Blocks(func(b Block) bool {
		state := "used"
		if b.Free {
			state = "free"
		}
		fmt.Fprintf(w, "  0x%08x %6d %s", b.Offset, b.Size, state)
		if b.Free {
			fmt.Fprintf(w, " next=%s", offsetString(p.tagNext(b.Offset)))
		} else {
			fmt.Fprintf(w, " ref=0x%x", int(b.Payload()))
		}
		fmt.Fprintln(w)
		return true
	})
}

func offsetString(off int) string {
	if off == relptr.Nil {
		return "nil"
	}
	return fmt.Sprintf("0x%x", off)
}
