package catalog

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/relheap/heap/pool"
)

func newTestCatalog(t testing.TB, size int) (*pool.Pool, *Catalog) {
	t.Helper()
	p, err := pool.Format(make([]byte, size), nil)
	require.NoError(t, err)
	c, err := Create(p, nil)
	require.NoError(t, err)
	return p, c
}

func collect(seq func(func(string, []byte) bool)) []string {
	var out []string
	seq(func(k string, v []byte) bool {
		out = append(out, k+"="+string(v))
		return true
	})
	return out
}

func TestCreateOpen(t *testing.T) {
	p, c := newTestCatalog(t, 64<<10)
	require.NoError(t, c.Put("alpha", []byte("1")))

	_, err := Create(p, nil)
	require.ErrorIs(t, err, ErrExists)

	again, err := Open(p, nil)
	require.NoError(t, err)
	v, err := again.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))
}

func TestOpen_NoCatalog(t *testing.T) {
	p, err := pool.Format(make([]byte, 4096), nil)
	require.NoError(t, err)
	_, err = Open(p, nil)
	require.ErrorIs(t, err, ErrNoCatalog)

	ref, _, err := p.Zalloc(128)
	require.NoError(t, err)
	require.NoError(t, p.SetRoot(ref))
	_, err = Open(p, nil)
	require.ErrorIs(t, err, ErrNoCatalog)
}

func TestPutGetDelete(t *testing.T) {
	p, c := newTestCatalog(t, 64<<10)

	require.NoError(t, c.Put("b", []byte("bee")))
	require.NoError(t, c.Put("a", []byte("ay")))
	require.NoError(t, c.Put("c", nil))
	assert.Equal(t, 3, c.Len())

	v, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "ay", string(v))
	v, err = c.Get("c")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = c.Get("zzz")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, c.Has("zzz"))
	assert.True(t, c.Has("b"))

	require.NoError(t, c.Delete("b"))
	require.ErrorIs(t, c.Delete("b"), ErrNotFound)
	assert.Equal(t, []string{"a", "c"}, c.Keys())
	require.NoError(t, c.Check())
	require.NoError(t, p.Check())
}

func TestGet_ReturnsCopy(t *testing.T) {
	_, c := newTestCatalog(t, 8<<10)
	require.NoError(t, c.Put("k", []byte("value")))
	v, err := c.Get("k")
	require.NoError(t, err)
	v[0] = 'X'
	again, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(again))
}

func TestPut_ReplaceKeepsPosition(t *testing.T) {
	p, c := newTestCatalog(t, 64<<10)
	for _, k := range []string{"one", "two", "three"} {
		require.NoError(t, c.Put(k, []byte(k)))
	}
	used := p.Used()

	require.NoError(t, c.Put("two", []byte("TWO")))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"one=one", "two=TWO", "three=three"}, collect(c.Each()))
	assert.Equal(t, used, p.Used(), "old record freed")

	require.NoError(t, c.Put("two", []byte(strings.Repeat("x", 500))))
	v, err := c.Get("two")
	require.NoError(t, err)
	assert.Len(t, v, 500)
	require.NoError(t, c.Check())
	require.NoError(t, p.Check())
}

func TestKeys_Normalised(t *testing.T) {
	_, c := newTestCatalog(t, 8<<10)

	decomposed := "cafe\u0301"
	composed := "caf\u00e9"
	require.NoError(t, c.Put(decomposed, []byte("1")))
	v, err := c.Get(composed)
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))
	assert.Equal(t, []string{composed}, c.Keys())

	require.NoError(t, c.Put(composed, []byte("2")))
	assert.Equal(t, 1, c.Len())
}

func TestBadKeys(t *testing.T) {
	_, c := newTestCatalog(t, 8<<10)
	require.ErrorIs(t, c.Put("", []byte("x")), ErrBadKey)
	require.ErrorIs(t, c.Put("\xff\xfe", []byte("x")), ErrBadKey)
	_, err := c.Get("")
	require.ErrorIs(t, err, ErrBadKey)
	assert.Zero(t, c.Len())
}

func TestOrdering(t *testing.T) {
	_, c := newTestCatalog(t, 64<<10)
	for _, k := range []string{"m", "b", "x", "a", "q"} {
		require.NoError(t, c.Put(k, []byte(strings.ToUpper(k))))
	}

	assert.Equal(t, []string{"a", "b", "m", "q", "x"}, c.Keys())
	assert.Equal(t, []string{"m=M", "b=B", "x=X", "a=A", "q=Q"}, collect(c.Each()))

	oldest, ok := c.Oldest()
	require.True(t, ok)
	assert.Equal(t, "m", oldest)
}

func TestRange(t *testing.T) {
	_, c := newTestCatalog(t, 64<<10)
	for _, k := range []string{"apple", "banana", "cherry", "date", "fig"} {
		require.NoError(t, c.Put(k, []byte{k[0]}))
	}
	keys := func(from, to string) []string {
		var out []string
		for k := range c.Range(from, to) {
			out = append(out, k)
		}
		return out
	}

	assert.Equal(t, []string{"banana", "cherry", "date"}, keys("b", "date"))
	assert.Equal(t, []string{"cherry", "date", "fig"}, keys("c", ""))
	assert.Equal(t, []string{"apple", "banana"}, keys("", "c"))
	assert.Equal(t, []string{"cherry"}, keys("cherry", "cherry"))
	assert.Len(t, keys("", ""), 5)
	assert.Empty(t, keys("g", ""))
	assert.Empty(t, keys("d", "c"))
}

func TestEvictPromote(t *testing.T) {
	p, c := newTestCatalog(t, 64<<10)
	for i := range 5 {
		require.NoError(t, c.Put(fmt.Sprintf("k%d", i), []byte{byte(i)}))
	}

	require.NoError(t, c.Promote("k0"))
	require.NoError(t, c.Promote("k0"))
	require.ErrorIs(t, c.Promote("nope"), ErrNotFound)

	n, err := c.Evict(2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"k0", "k3", "k4"}, c.Keys())
	oldest, _ := c.Oldest()
	assert.Equal(t, "k3", oldest)

	n, err = c.Evict(10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, c.Len())
	_, ok := c.Oldest()
	assert.False(t, ok)

	require.NoError(t, c.Check())
	require.NoError(t, p.Check())
	assert.Equal(t, p.Used(), mustSize(t, p, p.Root()), "only the header remains")
}

func mustSize(t *testing.T, p *pool.Pool, ref pool.Ref) int {
	t.Helper()
	n, err := p.SizeOf(ref)
	require.NoError(t, err)
	// Used counts the block header and alignment; SizeOf the payload.
	return n + 8
}

func TestClear(t *testing.T) {
	_, c := newTestCatalog(t, 16<<10)
	for i := range 20 {
		require.NoError(t, c.Put(fmt.Sprint(i), nil))
	}
	require.NoError(t, c.Clear())
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Keys())
}

func TestReorder(t *testing.T) {
	_, c := newTestCatalog(t, 16<<10)
	for k, v := range map[string]string{"a": "xxx", "b": "x", "c": "xx", "d": "x"} {
		require.NoError(t, c.Put(k, []byte(v)))
	}
	// Force a known insertion order first.
	c.Reorder(func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	c.Reorder(func(a, b Entry) int { return len(a.Value) - len(b.Value) })

	assert.Equal(t, []string{"b=x", "d=x", "c=xx", "a=xxx"}, collect(c.Each()))
	assert.Equal(t, []string{"a", "b", "c", "d"}, c.Keys())
	require.NoError(t, c.Check())
}

func TestPut_NoSpace(t *testing.T) {
	p, c := newTestCatalog(t, pool.RequiredSize(256, 1))
	require.NoError(t, c.Put("small", []byte("v")))

	err := c.Put("big", make([]byte, 4096))
	require.Error(t, err)
	assert.True(t, pool.IsNoSpace(err))
	assert.Equal(t, []string{"small"}, c.Keys())
	require.NoError(t, c.Check())
	require.NoError(t, p.Check())
}

func TestRelocation(t *testing.T) {
	p, c := newTestCatalog(t, 32<<10)
	for i := range 50 {
		require.NoError(t, c.Put(fmt.Sprintf("key-%03d", i), []byte(fmt.Sprint(i*i))))
	}
	want := collect(c.All())

	moved := make([]byte, len(p.Span()))
	copy(moved, p.Span())
	clear(p.Span())

	p2, err := pool.Attach(moved, nil)
	require.NoError(t, err)
	c2, err := Open(p2, nil)
	require.NoError(t, err)

	assert.Equal(t, want, collect(c2.All()))
	require.NoError(t, c2.Check())
	v, err := c2.Get("key-007")
	require.NoError(t, err)
	assert.Equal(t, "49", string(v))
}

// TestRandomOps checks the catalog against a map under random puts,
// replacements and deletes.
func TestRandomOps(t *testing.T) {
	p, c := newTestCatalog(t, 256<<10)
	rng := rand.New(rand.NewPCG(11, 23))
	model := map[string]string{}

	for i := range 3000 {
		k := fmt.Sprintf("k%03d", rng.IntN(300))
		switch rng.IntN(3) {
		case 0, 1:
			v := strings.Repeat(string(rune('a'+rng.IntN(26))), rng.IntN(40))
			require.NoError(t, c.Put(k, []byte(v)))
			model[k] = v
		case 2:
			err := c.Delete(k)
			if _, ok := model[k]; ok {
				require.NoError(t, err)
				delete(model, k)
			} else {
				require.ErrorIs(t, err, ErrNotFound)
			}
		}
		if i%250 == 0 {
			require.NoError(t, c.Check())
			require.NoError(t, p.Check())
		}
	}

	require.Equal(t, len(model), c.Len())
	assert.Equal(t, slices.Sorted(maps.Keys(model)), c.Keys())
	for k, v := range model {
		got, err := c.Get(k)
		require.NoError(t, err)
		assert.Equal(t, v, string(got))
	}
}

type countingTracker struct{ ranges int }

func (c *countingTracker) Add(off, length int) { c.ranges++ }

func TestDirtyTracking(t *testing.T) {
	dt := &countingTracker{}
	p, err := pool.Format(make([]byte, 16<<10), &pool.Options{Tracker: dt})
	require.NoError(t, err)
	c, err := Create(p, &Options{Tracker: dt})
	require.NoError(t, err)

	before := dt.ranges
	require.NoError(t, c.Put("k", []byte("v")))
	assert.Greater(t, dt.ranges, before)
}
