// Package heap provides the byte spans that pools, trees and lists live in.
//
// A Span is a contiguous run of bytes: plain process memory, an anonymous
// shared mapping, or a file mapped read-write with MAP_SHARED. Everything
// stored in a span links through relative pointers, so the same file can be
// mapped at different addresses by different processes.
//
// # Subpackages
//
//   - relptr: relative pointer encoding
//   - pool: block allocator formatted inside a span
//   - avl: intrusive balanced tree of records in a span
//   - list: intrusive doubly linked list of records in a span
//   - shm: named segments with a cross-process lock
//   - dirty, tx: page flushing and commit sequencing for file-backed spans
//   - catalog: a keyed record store combining all of the above
//
// # Usage
//
//	s, err := heap.Create("/tmp/data.heap", 1<<20)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	p, err := pool.Format(s.Bytes(), nil)
package heap
