package list

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/relheap/internal/format"
)

// Test records are a link followed by two int64 fields: a sort key and a tag
// used to check stability.
const (
	keyField   = NodeSize
	tagField   = NodeSize + 8
	recordSize = NodeSize + 16
)

type fixture struct {
	mem  []byte
	list *List
}

func newFixture(t testing.TB, capacity int) *fixture {
	t.Helper()
	mem := make([]byte, HeadSize+capacity*recordSize)
	return &fixture{mem: mem, list: Init(mem, 0, nil)}
}

func (f *fixture) node(i int, key int64) Node {
	off := HeadSize + i*recordSize
	format.PutI64(f.mem, off+keyField, key)
	format.PutI64(f.mem, off+tagField, int64(i))
	return Node(off)
}

func (f *fixture) key(n Node) int64 { return format.ReadI64(f.mem, int(n)+keyField) }
func (f *fixture) tag(n Node) int64 { return format.ReadI64(f.mem, int(n)+tagField) }

func (f *fixture) cmp(a, b Node) int {
	ka, kb := f.key(a), f.key(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	}
	return 0
}

func (f *fixture) keys() []int64 {
	var out []int64
	for n := range f.list.All() {
		out = append(out, f.key(n))
	}
	return out
}

// requireLinked checks that prev links mirror next links and the head
// endpoints match the chain.
func requireLinked(t *testing.T, l *List) {
	t.Helper()
	prev := Nil
	for n := range l.All() {
		require.Equal(t, prev, l.Prev(n), "prev of %d", n)
		prev = n
	}
	require.Equal(t, prev, l.Back())
	if front := l.Front(); front != Nil {
		require.Equal(t, Nil, l.Prev(front))
	}
}

func TestInit_Empty(t *testing.T) {
	f := newFixture(t, 0)
	assert.True(t, f.list.Empty())
	assert.Equal(t, Nil, f.list.Front())
	assert.Equal(t, Nil, f.list.Back())
	assert.Zero(t, f.list.Len())
	f.list.Sort(f.cmp)
	assert.True(t, f.list.Empty())
}

func TestOperations(t *testing.T) {
	f := newFixture(t, 6)
	n1, n2, n3 := f.node(0, 1), f.node(1, 2), f.node(2, 3)
	n4, n5, n6 := f.node(3, 4), f.node(4, 5), f.node(5, 6)
	l := f.list

	// 5 -> 1
	l.PushBack(n5)
	l.InsertAfter(n5, n1)
	assert.Equal(t, n1, l.Next(n5))
	assert.Equal(t, n1, l.Last(n5))
	assert.Equal(t, n1, l.Last(n1))
	assert.Equal(t, n5, l.First(n1))

	// 5 -> 3 -> 1
	l.InsertBefore(n1, n3)
	assert.Equal(t, n3, l.Next(n5))
	assert.Equal(t, n1, l.Last(n5))
	assert.Equal(t, n3, l.Prev(n1))
	assert.Equal(t, n5, l.First(n3))

	// 1 -> 3 -> 5
	l.Swap(n5, n1)
	assert.Equal(t, n3, l.Next(n1))
	assert.Equal(t, n5, l.Last(n1))
	assert.Equal(t, n3, l.Prev(n5))
	assert.Equal(t, n1, l.First(n3))
	assert.Equal(t, n1, l.Front())
	assert.Equal(t, n5, l.Back())

	// 5 -> 3 -> 1
	l.Swap(n5, n1)
	assert.Equal(t, n3, l.Next(n5))
	assert.Equal(t, n1, l.Last(n5))
	assert.Equal(t, n3, l.Prev(n1))
	assert.Equal(t, n5, l.First(n3))

	// 2 -> 5 -> 3 -> 1
	l.PushFront(n2)
	assert.Equal(t, Nil, l.Prev(n2))
	assert.Equal(t, n1, l.Last(n2))
	assert.Equal(t, n2, l.Prev(n5))
	assert.Equal(t, n2, l.First(n3))

	// 2 -> 5 -> 3 -> 1 -> 4
	l.PushBack(n4)
	assert.Equal(t, Nil, l.Next(n4))
	assert.Equal(t, n4, l.Last(n2))
	assert.Equal(t, n1, l.Prev(n4))
	assert.Equal(t, n4, l.Next(n1))
	assert.Equal(t, n2, l.First(n4))
	assert.Equal(t, []int64{2, 5, 3, 1, 4}, f.keys())

	// 2 -> 5 -> 1 -> 4
	l.Remove(n3)
	assert.Equal(t, n1, l.Next(n5))
	assert.Equal(t, n5, l.Prev(n1))
	assert.Equal(t, Nil, l.Next(n3))
	assert.Equal(t, Nil, l.Prev(n3))

	// 2 -> 6 -> 1 -> 4
	l.Replace(n5, n6)
	assert.Equal(t, n1, l.Next(n6))
	assert.Equal(t, n6, l.Prev(n1))
	assert.Equal(t, n2, l.Prev(n6))
	assert.Equal(t, Nil, l.Next(n5))

	// 2 -> 1 -> 6 -> 4
	l.Swap(n6, n1)
	assert.Equal(t, n6, l.Next(n1))
	assert.Equal(t, n1, l.Prev(n6))
	assert.Equal(t, n4, l.Next(n6))

	// 2 -> 6 -> 1 -> 4
	l.Swap(n6, n1)
	assert.Equal(t, n1, l.Next(n6))
	assert.Equal(t, n6, l.Prev(n1))
	assert.Equal(t, n4, l.Next(n1))
	assert.Equal(t, n2, l.Prev(n6))

	assert.Equal(t, n2, l.Front())
	assert.Equal(t, n4, l.Back())
	requireLinked(t, l)

	l.Sort(f.cmp)
	assert.Equal(t, []int64{1, 2, 4, 6}, f.keys())
	assert.Equal(t, n1, l.Front())
	assert.Equal(t, n6, l.Back())
	requireLinked(t, l)
}

func TestSort_Stable(t *testing.T) {
	f := newFixture(t, 4)
	n1, n2, n3, n4 := f.node(0, 1), f.node(1, 2), f.node(2, 2), f.node(3, 3)
	l := f.list

	// 2 -> 1 -> 3 -> 2
	l.PushBack(n2)
	l.PushBack(n1)
	l.PushBack(n4)
	l.PushBack(n3)
	require.Equal(t, n2, l.Front())
	require.Equal(t, n3, l.Back())

	l.Sort(f.cmp)
	assert.Equal(t, n1, l.Front())
	assert.Equal(t, n2, l.Next(n1))
	assert.Equal(t, n3, l.Next(n2), "equal keys keep insertion order")
	assert.Equal(t, n4, l.Next(n3))
	assert.Equal(t, n4, l.Back())
	requireLinked(t, l)
}

func TestSort_Random(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 7))
	for _, size := range []int{1, 2, 3, 7, 64, 100, 1000} {
		f := newFixture(t, size)
		for i := range size {
			f.list.PushBack(f.node(i, rng.Int64N(int64(size/3+1))))
		}
		f.list.Sort(f.cmp)

		got := f.keys()
		require.True(t, slices.IsSorted(got), "size %d", size)
		require.Len(t, got, size)
		requireLinked(t, f.list)

		// Stability: among equal keys, tags (insertion order) ascend.
		prev := Nil
		for n := range f.list.All() {
			if prev != Nil && f.key(prev) == f.key(n) {
				require.Less(t, f.tag(prev), f.tag(n))
			}
			prev = n
		}
	}
}

func TestSwap(t *testing.T) {
	tests := []struct {
		name string
		a, b int
		want []int64
	}{
		{"adjacent forward", 1, 2, []int64{0, 2, 1, 3, 4}},
		{"adjacent backward", 2, 1, []int64{0, 2, 1, 3, 4}},
		{"one apart", 1, 3, []int64{0, 3, 2, 1, 4}},
		{"endpoints", 0, 4, []int64{4, 1, 2, 3, 0}},
		{"front and next", 0, 1, []int64{1, 0, 2, 3, 4}},
		{"back and prev", 4, 3, []int64{0, 1, 2, 4, 3}},
		{"same node", 2, 2, []int64{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 5)
			nodes := make([]Node, 5)
			for i := range nodes {
				nodes[i] = f.node(i, int64(i))
				f.list.PushBack(nodes[i])
			}
			f.list.Swap(nodes[tt.a], nodes[tt.b])
			assert.Equal(t, tt.want, f.keys())
			requireLinked(t, f.list)
		})
	}
}

func TestSwap_TwoNodes(t *testing.T) {
	f := newFixture(t, 2)
	a, b := f.node(0, 1), f.node(1, 2)
	f.list.PushBack(a)
	f.list.PushBack(b)

	f.list.Swap(b, a)
	assert.Equal(t, []int64{2, 1}, f.keys())
	assert.Equal(t, b, f.list.Front())
	assert.Equal(t, a, f.list.Back())
	requireLinked(t, f.list)
}

func TestRemove_Endpoints(t *testing.T) {
	f := newFixture(t, 3)
	a, b, c := f.node(0, 1), f.node(1, 2), f.node(2, 3)
	for _, n := range []Node{a, b, c} {
		f.list.PushBack(n)
	}

	f.list.Remove(a)
	assert.Equal(t, b, f.list.Front())
	f.list.Remove(c)
	assert.Equal(t, b, f.list.Back())
	assert.Equal(t, 1, f.list.Len())
	f.list.Remove(b)
	assert.True(t, f.list.Empty())
	assert.Equal(t, Nil, f.list.Back())
}

func TestReplace_Single(t *testing.T) {
	f := newFixture(t, 2)
	a, b := f.node(0, 1), f.node(1, 2)
	f.list.PushBack(a)
	f.list.Replace(a, b)
	assert.Equal(t, b, f.list.Front())
	assert.Equal(t, b, f.list.Back())
	assert.Equal(t, []int64{2}, f.keys())
}

func TestLookup(t *testing.T) {
	f := newFixture(t, 5)
	for i, k := range []int64{4, 7, 7, 1} {
		f.list.PushBack(f.node(i, k))
	}
	probe := f.node(4, 7)

	n := f.list.Lookup(probe, f.cmp)
	require.NotEqual(t, Nil, n)
	assert.Equal(t, int64(1), f.tag(n), "first match wins")

	f.node(4, 9)
	assert.Equal(t, Nil, f.list.Lookup(probe, f.cmp))
	assert.Equal(t, Nil, f.list.LookupFunc(func(n Node) bool { return f.key(n) > 100 }))
}

func TestAll_RemoveWhileIterating(t *testing.T) {
	f := newFixture(t, 6)
	for i := range 6 {
		f.list.PushBack(f.node(i, int64(i)))
	}
	for n := range f.list.All() {
		if f.key(n)%2 == 1 {
			f.list.Remove(n)
		}
	}
	assert.Equal(t, []int64{0, 2, 4}, f.keys())

	var back []int64
	for n := range f.list.Backward() {
		back = append(back, f.key(n))
	}
	assert.Equal(t, []int64{4, 2, 0}, back)
}

func TestRelocation(t *testing.T) {
	f := newFixture(t, 10)
	for i := range 10 {
		f.list.PushFront(f.node(i, int64(i*i)))
	}
	want := f.keys()

	moved := make([]byte, 2*len(f.mem))
	copy(moved[40:], f.mem)
	clear(f.mem)
	g := &fixture{mem: moved[40 : 40+len(f.mem)]}
	g.list = Open(g.mem, 0, nil)

	assert.Equal(t, want, g.keys())
	requireLinked(t, g.list)
	g.list.Sort(g.cmp)
	assert.Equal(t, []int64{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, g.keys())
}
