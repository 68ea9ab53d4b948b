package avl

import (
	"errors"
	"fmt"
)

// ErrCorrupt indicates a tree whose links or balance factors are inconsistent.
var ErrCorrupt = errors.New("avl: tree corrupted")

// Check walks the whole tree and verifies parent links, ordering under cmp,
// balance factors against real subtree heights, the cached first and last
// nodes, and the tracked height. It returns the first violation found.
func (t *Tree) Check(cmp Compare) error {
	root := t.Root()
	if root != Nil && t.parent(root) != Nil {
		return fmt.Errorf("%w: root %d has a parent", ErrCorrupt, root)
	}
	h, err := t.checkSubtree(root, cmp, 0)
	if err != nil {
		return err
	}
	if h != t.Height() {
		return fmt.Errorf("%w: tracked height %d, actual %d", ErrCorrupt, t.Height(), h)
	}
	if root == Nil {
		if t.First() != Nil || t.Last() != Nil {
			return fmt.Errorf("%w: empty tree with endpoints", ErrCorrupt)
		}
		return nil
	}
	if first := t.leftmost(root); t.First() != first {
		return fmt.Errorf("%w: first is %d, leftmost is %d", ErrCorrupt, t.First(), first)
	}
	if last := t.rightmost(root); t.Last() != last {
		return fmt.Errorf("%w: last is %d, rightmost is %d", ErrCorrupt, t.Last(), last)
	}
	prev := Nil
	for n := range t.All() {
		if prev != Nil && cmp(prev, n) >= 0 {
			return fmt.Errorf("%w: %d does not sort before %d", ErrCorrupt, prev, n)
		}
		prev = n
	}
	return nil
}

// checkSubtree returns the height of the subtree at n (-1 when empty).
func (t *Tree) checkSubtree(n Node, cmp Compare, depth int) (int, error) {
	if n == Nil {
		return -1, nil
	}
	if n < 0 || int(n)+NodeSize > len(t.mem) {
		return 0, fmt.Errorf("%w: node %d outside span", ErrCorrupt, n)
	}
	if depth > 128 {
		return 0, fmt.Errorf("%w: cycle through node %d", ErrCorrupt, n)
	}
	l, r := t.left(n), t.right(n)
	if l != Nil {
		if t.parent(l) != n {
			return 0, fmt.Errorf("%w: left child %d of %d has parent %d", ErrCorrupt, l, n, t.parent(l))
		}
		if cmp(l, n) >= 0 {
			return 0, fmt.Errorf("%w: left child %d not below %d", ErrCorrupt, l, n)
		}
	}
	if r != Nil {
		if t.parent(r) != n {
			return 0, fmt.Errorf("%w: right child %d of %d has parent %d", ErrCorrupt, r, n, t.parent(r))
		}
		if cmp(r, n) <= 0 {
			return 0, fmt.Errorf("%w: right child %d not above %d", ErrCorrupt, r, n)
		}
	}
	lh, err := t.checkSubtree(l, cmp, depth+1)
	if err != nil {
		return 0, err
	}
	rh, err := t.checkSubtree(r, cmp, depth+1)
	if err != nil {
		return 0, err
	}
	if b := t.balance(n); b != rh-lh || b < -1 || b > 1 {
		return 0, fmt.Errorf("%w: node %d balance %d, heights %d/%d", ErrCorrupt, n, b, lh, rh)
	}
	return max(lh, rh) + 1, nil
}
