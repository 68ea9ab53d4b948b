// Package pool formats an arbitrary span of bytes as a self-contained heap and
// allocates variable-sized blocks from it.
//
// # Overview
//
// A pool owns nothing but the bytes it is given. Its header, occupancy bitmap,
// and every block header live inside the span, and all links between them are
// relative pointers (see heap/relptr). The same bytes can therefore be copied,
// remapped at another address, or mapped by several processes and reattached
// with Attach without any rewriting.
//
// # Layout
//
//	0x00  header (marker, size, balance, ntags, bitmap, arena, free head, root, sequences)
//	0x48  occupancy bitmap, one bit per 16-byte tag unit
//	....  tag arena, tiled by blocks in ascending address order
//
// Every block starts with an 8-byte size field. While a block is free the next
// 8 bytes hold a relative pointer to the next free block; once allocated they
// become the first payload bytes. A block of n payload bytes spans
// (1 + (n+7)/16) * 16 bytes.
//
// # Allocation Policy
//
// The free list is kept sorted by address and searched first-fit. A block
// larger than the request is split and the remainder stays on the free list
// in the same position. Freed blocks are spliced back in address order and
// coalesced with free neighbours on both sides. Growing a block with Realloc
// always moves it; shrinking is done in place.
//
// The bitmap marks the start of every free block. Free uses it to find the
// nearest free block to the left of the one being released without walking
// the free list.
//
// # Usage Example
//
//	mem := make([]byte, pool.RequiredSize(64, 100))
//	p, err := pool.Format(mem, nil)
//	if err != nil {
//	    return err
//	}
//
//	ref, buf, err := p.Alloc(48)
//	if errors.Is(err, pool.ErrNoSpace) {
//	    // free something or give up
//	}
//	copy(buf, payload)
//
//	err = p.Free(ref)
//
// # Errors
//
// Running out of space returns ErrNoSpace and leaves the pool untouched.
// Detected damage to the heap structures (a balance underflow, a missing
// bitmap boundary, overlapping free blocks) returns a *CorruptionError that
// matches ErrCorrupt. The pool is poisoned afterwards: every later call
// returns the same error, since continuing would spread the damage.
//
// # Thread Safety
//
// Pools are not thread-safe. Callers serialise access themselves, typically
// with the segment lock from heap/shm and heap/tx when the span is shared.
//
// # Related Packages
//
//   - github.com/joshuapare/relheap/heap/avl: Intrusive tree for records allocated here
//   - github.com/joshuapare/relheap/heap/list: Intrusive list for records allocated here
//   - github.com/joshuapare/relheap/heap/dirty: Flushes the ranges a pool modified
package pool
