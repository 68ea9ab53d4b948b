package avl

// Balance factors are height(right) - height(left).

// Insert links n into the tree. If a node comparing equal is already present
// the tree is left unchanged and that node is returned; otherwise Insert
// returns Nil. At most two rotations are performed.
func (t *Tree) Insert(n Node, cmp Compare) Node {
	found, parent, unbalanced, isLeft := t.search(probe(n, cmp))
	if found != Nil {
		return found
	}
	t.initNode(n)

	if parent == Nil {
		t.setRoot(n)
		t.setFirst(n)
		t.setLast(n)
		t.setHeight(t.Height() + 1)
		return Nil
	}

	if isLeft {
		if t.First() == parent {
			t.setFirst(n)
		}
	} else if t.Last() == parent {
		t.setLast(n)
	}
	t.setParent(n, parent)
	t.setChild(parent, n, isLeft)

	// Every node between the new leaf and the unbalanced ancestor had a zero
	// balance and now leans towards the leaf.
	for node := n; ; {
		if t.left(parent) == node {
			t.addBalance(parent, -1)
		} else {
			t.addBalance(parent, 1)
		}
		if parent == unbalanced {
			break
		}
		node, parent = parent, t.parent(parent)
	}

	switch t.balance(unbalanced) {
	case 1, -1:
		t.setHeight(t.Height() + 1)

	case 2:
		right := t.right(unbalanced)
		if t.balance(right) == 1 {
			t.setBalance(unbalanced, 0)
			t.setBalance(right, 0)
		} else {
			rl := t.left(right)
			switch t.balance(rl) {
			case 1:
				t.setBalance(unbalanced, -1)
				t.setBalance(right, 0)
			case 0:
				t.setBalance(unbalanced, 0)
				t.setBalance(right, 0)
			case -1:
				t.setBalance(unbalanced, 0)
				t.setBalance(right, 1)
			}
			t.setBalance(rl, 0)
			t.rotateRight(right)
		}
		t.rotateLeft(unbalanced)

	case -2:
		left := t.left(unbalanced)
		if t.balance(left) == -1 {
			t.setBalance(unbalanced, 0)
			t.setBalance(left, 0)
		} else {
			lr := t.right(left)
			switch t.balance(lr) {
			case 1:
				t.setBalance(unbalanced, 0)
				t.setBalance(left, -1)
			case 0:
				t.setBalance(unbalanced, 0)
				t.setBalance(left, 0)
			case -1:
				t.setBalance(unbalanced, 1)
				t.setBalance(left, 0)
			}
			t.setBalance(lr, 0)
			t.rotateLeft(left)
		}
		t.rotateRight(unbalanced)
	}
	return Nil
}

// Remove unlinks n, which must be in the tree, and clears its links.
// Rebalancing may rotate at every level up to the root.
func (t *Tree) Remove(n Node) {
	t.remove(n)
	t.initNode(n)
}

func (t *Tree) remove(n Node) {
	parent := t.parent(n)
	left := t.left(n)
	right := t.right(n)

	if n == t.First() {
		t.setFirst(t.Next(n))
	}
	if n == t.Last() {
		t.setLast(t.Prev(n))
	}

	var next Node
	switch {
	case left == Nil:
		next = right
	case right == Nil:
		next = left
	default:
		next = t.leftmost(right)
	}

	isLeft := false
	if parent != Nil {
		isLeft = t.left(parent) == n
		t.setChild(parent, next, isLeft)
	} else {
		t.setRoot(next)
	}

	// node is the subtree that took the removed position; parent is where
	// the height change starts to propagate.
	var node Node
	if left != Nil && right != Nil {
		t.setBalance(next, t.balance(n))
		t.setLeft(next, left)
		t.setParent(left, next)

		if next != right {
			parent = t.parent(next)
			t.setParent(next, t.parent(n))

			node = t.right(next)
			t.setLeft(parent, node)
			isLeft = true

			t.setRight(next, right)
			t.setParent(right, next)
		} else {
			t.setParent(next, parent)
			parent = next
			node = t.right(parent)
			isLeft = false
		}
	} else {
		node = next
	}
	if node != Nil {
		t.setParent(node, parent)
	}

	for parent != Nil {
		node = parent
		parent = t.parent(parent)

		if isLeft {
			isLeft = parent != Nil && t.left(parent) == node

			switch t.addBalance(node, 1) {
			case 0: // shorter, keep going
				continue
			case 1: // same height, done
				return
			}
			right := t.right(node)
			switch t.balance(right) {
			case 0:
				t.setBalance(node, 1)
				t.setBalance(right, -1)
				t.rotateLeft(node)
				return
			case 1:
				t.setBalance(node, 0)
				t.setBalance(right, 0)
			case -1:
				rl := t.left(right)
				switch t.balance(rl) {
				case 1:
					t.setBalance(node, -1)
					t.setBalance(right, 0)
				case 0:
					t.setBalance(node, 0)
					t.setBalance(right, 0)
				case -1:
					t.setBalance(node, 0)
					t.setBalance(right, 1)
				}
				t.setBalance(rl, 0)
				t.rotateRight(right)
			}
			t.rotateLeft(node)
		} else {
			isLeft = parent != Nil && t.left(parent) == node

			switch t.addBalance(node, -1) {
			case 0:
				continue
			case -1:
				return
			}
			left := t.left(node)
			switch t.balance(left) {
			case 0:
				t.setBalance(node, -1)
				t.setBalance(left, 1)
				t.rotateRight(node)
				return
			case -1:
				t.setBalance(node, 0)
				t.setBalance(left, 0)
			case 1:
				lr := t.right(left)
				switch t.balance(lr) {
				case 1:
					t.setBalance(node, 0)
					t.setBalance(left, -1)
				case 0:
					t.setBalance(node, 0)
					t.setBalance(left, 0)
				case -1:
					t.setBalance(node, 1)
					t.setBalance(left, 0)
				}
				t.setBalance(lr, 0)
				t.rotateLeft(left)
			}
			t.rotateRight(node)
		}
	}
	t.setHeight(t.Height() - 1)
}

// Replace puts repl in the exact position of old, which must be in the tree.
// repl must compare equal to old. old's links are cleared.
func (t *Tree) Replace(old, repl Node) {
	parent := t.parent(old)
	left, right := t.left(old), t.right(old)

	if parent != Nil {
		t.setChild(parent, repl, t.left(parent) == old)
	} else {
		t.setRoot(repl)
	}
	if left != Nil {
		t.setParent(left, repl)
	}
	if right != Nil {
		t.setParent(right, repl)
	}
	if t.First() == old {
		t.setFirst(repl)
	}
	if t.Last() == old {
		t.setLast(repl)
	}

	t.setBalance(repl, t.balance(old))
	t.setParent(repl, parent)
	t.setLeft(repl, left)
	t.setRight(repl, right)
	t.initNode(old)
}

func (t *Tree) rotateLeft(p Node) {
	q := t.right(p)
	parent := t.parent(p)

	if parent != Nil {
		t.setChild(parent, q, t.left(parent) == p)
	} else {
		t.setRoot(q)
	}
	t.setParent(q, parent)
	t.setParent(p, q)

	ql := t.left(q)
	t.setRight(p, ql)
	if ql != Nil {
		t.setParent(ql, p)
	}
	t.setLeft(q, p)
}

func (t *Tree) rotateRight(p Node) {
	q := t.left(p)
	parent := t.parent(p)

	if parent != Nil {
		t.setChild(parent, q, t.left(parent) == p)
	} else {
		t.setRoot(q)
	}
	t.setParent(q, parent)
	t.setParent(p, q)

	qr := t.right(q)
	t.setLeft(p, qr)
	if qr != Nil {
		t.setParent(qr, p)
	}
	t.setRight(q, p)
}
