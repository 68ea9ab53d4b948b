// Package list implements an intrusive doubly linked list whose nodes live
// inside a byte span and link through relative pointers.
//
// Like heap/avl, the list never allocates. A Node is the span offset of a
// NodeSize-byte link embedded in a caller record; the list head is HeadSize
// bytes, also in the span. Front and Back are O(1). Sort is a stable
// bottom-up merge sort that relinks nodes in place.
package list

import (
	"iter"

	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/relptr"
	"github.com/joshuapare/relheap/internal/format"
)

const (
	// NodeSize is the number of bytes a link occupies inside a record.
	NodeSize = format.ListNodeSize

	// HeadSize is the number of bytes of the list head.
	HeadSize = format.ListHeadSize
)

// Node is the span offset of an embedded list link.
type Node int

// Nil is the absent node.
const Nil Node = relptr.Nil

// Compare orders two nodes: negative, zero or positive as a sorts before,
// equal to, or after b.
type Compare func(a, b Node) int

// List is a handle on a list head stored in a span.
//
// NOT thread-safe.
type List struct {
	mem []byte
	off int
	dt  dirty.DirtyTracker
}

// Init writes an empty list head at mem[off:]. dt may be nil.
func Init(mem []byte, off int, dt dirty.DirtyTracker) *List {
	l := Open(mem, off, dt)
	l.setFront(Nil)
	l.setBack(Nil)
	return l
}

// Open returns a handle on an existing list head at mem[off:].
func Open(mem []byte, off int, dt dirty.DirtyTracker) *List {
	return &List{mem: mem, off: off, dt: dt}
}

// Offset returns the span offset of the list head.
func (l *List) Offset() int { return l.off }

// Front returns the first node, or Nil for an empty list.
func (l *List) Front() Node { return l.ptr(l.off + format.ListFirstOffset) }

// Back returns the last node, or Nil for an empty list.
func (l *List) Back() Node { return l.ptr(l.off + format.ListLastOffset) }

// Empty reports whether the list has no nodes.
func (l *List) Empty() bool { return l.Front() == Nil }

// Next returns the node after n, or Nil.
func (l *List) Next(n Node) Node { return l.next(n) }

// Prev returns the node before n, or Nil.
func (l *List) Prev(n Node) Node { return l.prev(n) }

// First walks back from n to the first node of its chain. It needs no head,
// only links.
func (l *List) First(n Node) Node {
	for n != Nil {
		p := l.prev(n)
		if p == Nil {
			break
		}
		n = p
	}
	return n
}

// Last walks forward from n to the last node of its chain.
func (l *List) Last(n Node) Node {
	for n != Nil {
		nx := l.next(n)
		if nx == Nil {
			break
		}
		n = nx
	}
	return n
}

// Len counts the nodes. It is O(n).
func (l *List) Len() int {
	n := 0
	for range l.All() {
		n++
	}
	return n
}

// All yields every node front to back. Removing the node just yielded is
// allowed.
func (l *List) All() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := l.Front(); n != Nil; {
			next := l.next(n)
			if !yield(n) {
				return
			}
			n = next
		}
	}
}

// Backward yields every node back to front.
func (l *List) Backward() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := l.Back(); n != Nil; {
			prev := l.prev(n)
			if !yield(n) {
				return
			}
			n = prev
		}
	}
}

// Lookup returns the first node comparing equal to key, or Nil.
func (l *List) Lookup(key Node, cmp Compare) Node {
	return l.LookupFunc(func(n Node) bool { return cmp(n, key) == 0 })
}

// LookupFunc returns the first node for which match reports true, or Nil.
func (l *List) LookupFunc(match func(Node) bool) Node {
	for n := range l.All() {
		if match(n) {
			return n
		}
	}
	return Nil
}

// InsertBefore links n directly before where, which must be in the list.
func (l *List) InsertBefore(where, n Node) {
	l.initNode(n)
	if prev := l.prev(where); prev != Nil {
		l.setNext(prev, n)
		l.setPrev(n, prev)
	}
	l.setPrev(where, n)
	l.setNext(n, where)
	if where == l.Front() {
		l.setFront(n)
	}
}

// InsertAfter links n directly after where, which must be in the list.
func (l *List) InsertAfter(where, n Node) {
	l.initNode(n)
	if next := l.next(where); next != Nil {
		l.setPrev(next, n)
		l.setNext(n, next)
	}
	l.setNext(where, n)
	l.setPrev(n, where)
	if where == l.Back() {
		l.setBack(n)
	}
}

// PushFront links n at the front.
func (l *List) PushFront(n Node) {
	if front := l.Front(); front != Nil {
		l.InsertBefore(front, n)
		return
	}
	l.initNode(n)
	l.setFront(n)
	l.setBack(n)
}

// PushBack links n at the back.
func (l *List) PushBack(n Node) {
	if back := l.Back(); back != Nil {
		l.InsertAfter(back, n)
		return
	}
	l.PushFront(n)
}

// Remove unlinks n and clears its links.
func (l *List) Remove(n Node) {
	prev, next := l.prev(n), l.next(n)
	if prev != Nil {
		l.setNext(prev, next)
	}
	if next != Nil {
		l.setPrev(next, prev)
	}
	if l.Front() == n {
		l.setFront(next)
	}
	if l.Back() == n {
		l.setBack(prev)
	}
	l.initNode(n)
}

// Replace puts n in old's position and clears old's links.
func (l *List) Replace(old, n Node) {
	l.initNode(n)
	prev, next := l.prev(old), l.next(old)
	if prev != Nil {
		l.setNext(prev, n)
		l.setPrev(n, prev)
	}
	if next != Nil {
		l.setPrev(next, n)
		l.setNext(n, next)
	}
	if l.Front() == old {
		l.setFront(n)
	}
	if l.Back() == old {
		l.setBack(n)
	}
	l.initNode(old)
}

// Swap exchanges the positions of a and b, both of which must be in the
// list. Swapping a node with itself is a no-op.
func (l *List) Swap(a, b Node) {
	if a == b {
		return
	}
	pa, na := l.prev(a), l.next(a)
	pb, nb := l.prev(b), l.next(b)

	switch {
	case na == b: // a b
		l.link(pa, b)
		l.link(b, a)
		l.link(a, nb)
	case pa == b: // b a
		l.link(pb, a)
		l.link(a, b)
		l.link(b, na)
	default:
		l.link(pa, b)
		l.link(b, na)
		l.link(pb, a)
		l.link(a, nb)
	}

	switch l.Front() {
	case a:
		l.setFront(b)
	case b:
		l.setFront(a)
	}
	switch l.Back() {
	case a:
		l.setBack(b)
	case b:
		l.setBack(a)
	}
}

// link makes b follow a. Either may be Nil.
func (l *List) link(a, b Node) {
	if a != Nil {
		l.setNext(a, b)
	}
	if b != Nil {
		l.setPrev(b, a)
	}
}

// Sort orders the list by cmp. Equal nodes keep their relative order. It
// merges runs of doubling length, so it needs no scratch memory and makes
// O(n log n) comparisons.
func (l *List) Sort(cmp Compare) {
	first := l.Front()
	if first == Nil {
		return
	}
	tail := Nil
	for run := 1; ; run *= 2 {
		p := first
		first, tail = Nil, Nil
		merges := 0

		for p != Nil {
			merges++
			q, psize := p, 0
			for i := 0; i < run && q != Nil; i++ {
				psize++
				q = l.next(q)
			}
			qsize := run

			for psize > 0 || (qsize > 0 && q != Nil) {
				var e Node
				switch {
				case psize == 0:
					e, q = q, l.next(q)
					qsize--
				case qsize == 0 || q == Nil:
					e, p = p, l.next(p)
					psize--
				case cmp(p, q) <= 0:
					e, p = p, l.next(p)
					psize--
				default:
					e, q = q, l.next(q)
					qsize--
				}

				if tail != Nil {
					l.setNext(tail, e)
				} else {
					first = e
				}
				l.setPrev(e, tail)
				tail = e
			}
			p = q
		}
		l.setNext(tail, Nil)

		if merges <= 1 {
			break
		}
	}
	l.setFront(first)
	l.setBack(tail)
}

func (l *List) ptr(at int) Node {
	return Node(relptr.Get(l.mem, at))
}

func (l *List) setPtr(at int, n Node) {
	relptr.Set(l.mem, at, int(n))
	if l.dt != nil {
		l.dt.Add(at, relptr.Size)
	}
}

func (l *List) next(n Node) Node { return l.ptr(int(n) + format.ListNextOffset) }
func (l *List) prev(n Node) Node { return l.ptr(int(n) + format.ListPrevOffset) }

func (l *List) setNext(n, v Node) { l.setPtr(int(n)+format.ListNextOffset, v) }
func (l *List) setPrev(n, v Node) { l.setPtr(int(n)+format.ListPrevOffset, v) }
func (l *List) setFront(n Node)   { l.setPtr(l.off+format.ListFirstOffset, n) }
func (l *List) setBack(n Node)    { l.setPtr(l.off+format.ListLastOffset, n) }

func (l *List) initNode(n Node) {
	l.setNext(n, Nil)
	l.setPrev(n, Nil)
}
