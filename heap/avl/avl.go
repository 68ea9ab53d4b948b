// Package avl implements an intrusive AVL tree whose nodes live inside a
// byte span and link to each other through relative pointers.
//
// A node is NodeSize bytes embedded in a caller record somewhere in the span.
// The tree never allocates: callers place records (typically with a pool),
// embed a node at a fixed field offset, and hand the node's span offset to
// Insert. Recovering the record from a node is plain arithmetic:
//
//	record := int(n) - nodeField
//
// Ordering comes entirely from a caller comparator. Compare(a, b) returns a
// negative, zero or positive value as a sorts before, equal to, or after b.
// Keys are unique; inserting an equal node returns the one already present.
//
// The tree header (root, height, first, last) is TreeSize bytes, also in the
// span, so a whole tree can be copied or remapped and reopened with Open.
package avl

import (
	"iter"

	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/relptr"
	"github.com/joshuapare/relheap/internal/format"
)

const (
	// NodeSize is the number of bytes a node occupies inside a record.
	NodeSize = format.AVLNodeSize

	// TreeSize is the number of bytes of the tree header.
	TreeSize = format.AVLTreeSize
)

// Node is the span offset of an embedded tree node.
type Node int

// Nil is the absent node.
const Nil Node = relptr.Nil

// Compare orders two nodes.
type Compare func(a, b Node) int

// Tree is a handle on a tree header stored in a span.
//
// NOT thread-safe.
type Tree struct {
	mem []byte
	off int
	dt  dirty.DirtyTracker
}

// Init writes an empty tree header at mem[off:] and returns a handle on it.
// dt may be nil.
func Init(mem []byte, off int, dt dirty.DirtyTracker) *Tree {
	t := Open(mem, off, dt)
	t.setRoot(Nil)
	t.setFirst(Nil)
	t.setLast(Nil)
	t.setHeight(-1)
	return t
}

// Open returns a handle on an existing tree header at mem[off:].
func Open(mem []byte, off int, dt dirty.DirtyTracker) *Tree {
	return &Tree{mem: mem, off: off, dt: dt}
}

// Offset returns the span offset of the tree header.
func (t *Tree) Offset() int { return t.off }

// Root returns the root node, or Nil for an empty tree.
func (t *Tree) Root() Node { return t.ptr(t.off + format.AVLTreeRootOffset) }

// First returns the smallest node.
func (t *Tree) First() Node { return t.ptr(t.off + format.AVLTreeFirstOffset) }

// Last returns the largest node.
func (t *Tree) Last() Node { return t.ptr(t.off + format.AVLTreeLastOffset) }

// Height returns the tracked height of the tree: -1 when empty, 0 for a
// single node.
func (t *Tree) Height() int {
	return int(format.ReadI64(t.mem, t.off+format.AVLTreeHeightOffset))
}

// Empty reports whether the tree has no nodes.
func (t *Tree) Empty() bool { return t.Root() == Nil }

// Next returns the in-order successor of n, or Nil.
func (t *Tree) Next(n Node) Node {
	if r := t.right(n); r != Nil {
		return t.leftmost(r)
	}
	p := t.parent(n)
	for p != Nil && t.right(p) == n {
		n, p = p, t.parent(p)
	}
	return p
}

// Prev returns the in-order predecessor of n, or Nil.
func (t *Tree) Prev(n Node) Node {
	if l := t.left(n); l != Nil {
		return t.rightmost(l)
	}
	p := t.parent(n)
	for p != Nil && t.left(p) == n {
		n, p = p, t.parent(p)
	}
	return p
}

// All yields every node in ascending order. The tree must not be modified
// during iteration except by removing the node just yielded.
func (t *Tree) All() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := t.First(); n != Nil; {
			next := t.Next(n)
			if !yield(n) {
				return
			}
			n = next
		}
	}
}

// Backward yields every node in descending order.
func (t *Tree) Backward() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := t.Last(); n != Nil; {
			prev := t.Prev(n)
			if !yield(n) {
				return
			}
			n = prev
		}
	}
}

// Lookup returns the node equal to key, or Nil.
func (t *Tree) Lookup(key Node, cmp Compare) Node {
	return t.LookupFunc(probe(key, cmp))
}

// LookupFunc is Lookup with a probe that compares a node against an
// implicit key: negative when the node sorts before the key.
func (t *Tree) LookupFunc(f func(Node) int) Node {
	found, _, _, _ := t.search(f)
	return found
}

// Lower returns the smallest node not less than key, or Nil.
func (t *Tree) Lower(key Node, cmp Compare) Node {
	return t.LowerFunc(probe(key, cmp))
}

// LowerFunc is Lower with a probe function.
func (t *Tree) LowerFunc(f func(Node) int) Node {
	prev := Nil
	for n := t.Root(); n != Nil; {
		rc := f(n)
		if rc == 0 {
			return n
		}
		if rc > 0 {
			prev = n
			n = t.left(n)
		} else {
			n = t.right(n)
		}
	}
	return prev
}

// Upper returns the smallest node strictly greater than key, or Nil.
func (t *Tree) Upper(key Node, cmp Compare) Node {
	return t.UpperFunc(probe(key, cmp))
}

// UpperFunc is Upper with a probe function.
func (t *Tree) UpperFunc(f func(Node) int) Node {
	n := t.LowerFunc(f)
	for n != Nil && f(n) == 0 {
		n = t.Next(n)
	}
	return n
}

func probe(key Node, cmp Compare) func(Node) int {
	return func(n Node) int { return cmp(n, key) }
}

// search descends towards the key. Besides a match it reports the would-be
// parent, whether the key belongs on its left, and the deepest ancestor on
// the path with a non-zero balance, which is where an insertion may need to
// rebalance.
func (t *Tree) search(f func(Node) int) (found, parent, unbalanced Node, isLeft bool) {
	n := t.Root()
	parent, unbalanced = Nil, n
	for n != Nil {
		if t.balance(n) != 0 {
			unbalanced = n
		}
		rc := f(n)
		if rc == 0 {
			return n, parent, unbalanced, isLeft
		}
		parent = n
		isLeft = rc > 0
		if isLeft {
			n = t.left(n)
		} else {
			n = t.right(n)
		}
	}
	return Nil, parent, unbalanced, isLeft
}

func (t *Tree) leftmost(n Node) Node {
	for l := t.left(n); l != Nil; l = t.left(n) {
		n = l
	}
	return n
}

func (t *Tree) rightmost(n Node) Node {
	for r := t.right(n); r != Nil; r = t.right(n) {
		n = r
	}
	return n
}

// Field access. Node links are relative pointers at fixed offsets.

func (t *Tree) ptr(at int) Node {
	return Node(relptr.Get(t.mem, at))
}

func (t *Tree) setPtr(at int, n Node) {
	relptr.Set(t.mem, at, int(n))
	if t.dt != nil {
		t.dt.Add(at, relptr.Size)
	}
}

func (t *Tree) left(n Node) Node   { return t.ptr(int(n) + format.AVLLeftOffset) }
func (t *Tree) right(n Node) Node  { return t.ptr(int(n) + format.AVLRightOffset) }
func (t *Tree) parent(n Node) Node { return t.ptr(int(n) + format.AVLParentOffset) }

func (t *Tree) setLeft(n, c Node)   { t.setPtr(int(n)+format.AVLLeftOffset, c) }
func (t *Tree) setRight(n, c Node)  { t.setPtr(int(n)+format.AVLRightOffset, c) }
func (t *Tree) setParent(n, p Node) { t.setPtr(int(n)+format.AVLParentOffset, p) }

func (t *Tree) setChild(n, c Node, left bool) {
	if left {
		t.setLeft(n, c)
	} else {
		t.setRight(n, c)
	}
}

func (t *Tree) balance(n Node) int {
	return int(int8(t.mem[int(n)+format.AVLBalanceOffset]))
}

func (t *Tree) setBalance(n Node, b int) {
	at := int(n) + format.AVLBalanceOffset
	t.mem[at] = byte(int8(b))
	if t.dt != nil {
		t.dt.Add(at, 1)
	}
}

func (t *Tree) addBalance(n Node, d int) int {
	b := t.balance(n) + d
	t.setBalance(n, b)
	return b
}

func (t *Tree) setRoot(n Node)  { t.setPtr(t.off+format.AVLTreeRootOffset, n) }
func (t *Tree) setFirst(n Node) { t.setPtr(t.off+format.AVLTreeFirstOffset, n) }
func (t *Tree) setLast(n Node)  { t.setPtr(t.off+format.AVLTreeLastOffset, n) }

func (t *Tree) setHeight(h int) {
	at := t.off + format.AVLTreeHeightOffset
	format.PutI64(t.mem, at, int64(h))
	if t.dt != nil {
		t.dt.Add(at, format.WordSize)
	}
}

// initNode clears the links of a node about to be inserted.
func (t *Tree) initNode(n Node) {
	t.setLeft(n, Nil)
	t.setRight(n, Nil)
	t.setParent(n, Nil)
	t.setBalance(n, 0)
}
