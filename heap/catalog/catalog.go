// Package catalog stores string-keyed byte values inside a pool.
//
// Every entry is a single pool block holding an AVL node, a list link, and
// the key and value bytes. The tree orders entries by key; the list keeps
// them in insertion order, which makes the catalog usable as a small
// shared-memory cache: Evict drops the oldest entries and Promote moves an
// entry to the back.
//
// The catalog header hangs off the pool root, so a process attaching to the
// same span finds it with Open. Keys are normalised to Unicode NFC before
// they are stored or looked up, so canonically equivalent spellings name the
// same entry.
//
// A Catalog is NOT thread-safe. Shared spans need the segment lock around
// every call, usually through a tx.Manager.
package catalog

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/joshuapare/relheap/heap/avl"
	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/list"
	"github.com/joshuapare/relheap/heap/pool"
	"github.com/joshuapare/relheap/internal/format"
	"github.com/joshuapare/relheap/internal/logger"
)

// Options configures Create and Open. A nil *Options means defaults.
type Options struct {
	// Tracker receives every byte range the catalog writes. Usually the same
	// tracker the pool was attached with.
	Tracker dirty.DirtyTracker

	Logger *slog.Logger
}

// Entry is a key and value as seen by Reorder comparators.
type Entry struct {
	Key   string
	Value []byte
}

// Catalog is a handle on a catalog stored in a pool.
type Catalog struct {
	p    *pool.Pool
	dt   dirty.DirtyTracker
	log  *slog.Logger
	hdr  int
	tree *avl.Tree
	seq  *list.List
}

func newCatalog(p *pool.Pool, hdr int, opts *Options) *Catalog {
	c := &Catalog{p: p, hdr: hdr}
	var l *slog.Logger
	if opts != nil {
		c.dt = opts.Tracker
		l = opts.Logger
	}
	c.log = logger.Or(l).With("component", "catalog")
	return c
}

// Create writes an empty catalog into p and records it as the pool root.
// It fails with ErrExists when the root is already set.
func Create(p *pool.Pool, opts *Options) (*Catalog, error) {
	if p.Root() != pool.Nil {
		return nil, ErrExists
	}
	ref, b, err := p.Zalloc(format.CatalogHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: create: %w", err)
	}
	format.PutU64(b, format.CatalogMagicOffset, format.CatalogMagic)

	c := newCatalog(p, int(ref), opts)
	mem := p.Span()
	c.tree = avl.Init(mem, c.hdr+format.CatalogTreeOffset, c.dt)
	c.seq = list.Init(mem, c.hdr+format.CatalogListOffset, c.dt)
	if err := p.SetRoot(ref); err != nil {
		_ = p.Free(ref)
		return nil, fmt.Errorf("catalog: create: %w", err)
	}
	c.log.Debug("created", "header", c.hdr)
	return c, nil
}

// Open returns a handle on the catalog recorded as the pool root.
func Open(p *pool.Pool, opts *Options) (*Catalog, error) {
	ref := p.Root()
	if ref == pool.Nil {
		return nil, ErrNoCatalog
	}
	b, err := p.Bytes(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCatalog, err)
	}
	if len(b) < format.CatalogHeaderSize || format.ReadU64(b, format.CatalogMagicOffset) != format.CatalogMagic {
		return nil, ErrNoCatalog
	}
	c := newCatalog(p, int(ref), opts)
	mem := p.Span()
	c.tree = avl.Open(mem, c.hdr+format.CatalogTreeOffset, c.dt)
	c.seq = list.Open(mem, c.hdr+format.CatalogListOffset, c.dt)
	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return int(format.ReadU64(c.p.Span(), c.hdr+format.CatalogCountOffset))
}

// Put stores value under key, replacing any previous value. A replaced
// entry keeps its place in insertion order.
func (c *Catalog) Put(key string, value []byte) error {
	k, err := canonical(key)
	if err != nil {
		return err
	}
	if uint64(len(value)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}

	ref, b, err := c.p.Alloc(format.EntryDataOffset + len(k) + len(value))
	if err != nil {
		return fmt.Errorf("catalog: put %q: %w", k, err)
	}
	format.PutU32(b, format.EntryKeyLenOff, uint32(len(k)))
	format.PutU32(b, format.EntryValueLenOff, uint32(len(value)))
	copy(b[format.EntryDataOffset:], k)
	copy(b[format.EntryDataOffset+len(k):], value)

	rec := int(ref)
	node := avl.Node(rec + format.EntryTreeOffset)
	old := c.tree.Insert(node, c.compare)
	if old == avl.Nil {
		c.seq.PushBack(list.Node(rec + format.EntryListOffset))
		c.setLen(c.Len() + 1)
		return nil
	}

	prev := recordOf(old)
	c.tree.Replace(old, node)
	c.seq.Replace(list.Node(prev+format.EntryListOffset), list.Node(rec+format.EntryListOffset))
	return c.p.Free(pool.Ref(prev))
}

// Get returns a copy of the value stored under key.
func (c *Catalog) Get(key string) ([]byte, error) {
	rec, err := c.find(key)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(c.value(rec)), nil
}

// Has reports whether key is present.
func (c *Catalog) Has(key string) bool {
	_, err := c.find(key)
	return err == nil
}

// Delete removes key.
func (c *Catalog) Delete(key string) error {
	rec, err := c.find(key)
	if err != nil {
		return err
	}
	return c.remove(rec)
}

// Promote moves key to the back of the insertion order, as if it had just
// been inserted.
func (c *Catalog) Promote(key string) error {
	rec, err := c.find(key)
	if err != nil {
		return err
	}
	n := list.Node(rec + format.EntryListOffset)
	if c.seq.Back() != n {
		c.seq.Remove(n)
		c.seq.PushBack(n)
	}
	return nil
}

// Oldest returns the first key in insertion order.
func (c *Catalog) Oldest() (string, bool) {
	n := c.seq.Front()
	if n == list.Nil {
		return "", false
	}
	return string(c.key(int(n) - format.EntryListOffset)), true
}

// Evict removes up to n entries from the front of the insertion order and
// returns how many were removed.
func (c *Catalog) Evict(n int) (int, error) {
	removed := 0
	for removed < n {
		front := c.seq.Front()
		if front == list.Nil {
			break
		}
		if err := c.remove(int(front) - format.EntryListOffset); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		c.log.Debug("evicted", "count", removed, "left", c.Len())
	}
	return removed, nil
}

// Clear removes every entry. The catalog header stays in place.
func (c *Catalog) Clear() error {
	_, err := c.Evict(c.Len())
	return err
}

// Keys returns every key in ascending byte order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, c.Len())
	for k := range c.All() {
		keys = append(keys, k)
	}
	return keys
}

// All yields entries in ascending key order. Values alias the span and are
// only valid until the next modification.
func (c *Catalog) All() iter.Seq2[string, []byte] {
	return entries(c, c.tree.All(), func(n avl.Node) int { return int(n) - format.EntryTreeOffset })
}

// Each yields entries in insertion order. Values alias the span.
func (c *Catalog) Each() iter.Seq2[string, []byte] {
	return entries(c, c.seq.All(), func(n list.Node) int { return int(n) - format.EntryListOffset })
}

// Range yields entries with from <= key <= to in ascending order. An empty
// from starts at the smallest key; an empty to runs to the largest.
func (c *Catalog) Range(from, to string) iter.Seq2[string, []byte] {
	from, to = norm.NFC.String(from), norm.NFC.String(to)
	return func(yield func(string, []byte) bool) {
		if from != "" && to != "" && from > to {
			return
		}
		start := c.tree.First()
		if from != "" {
			start = c.tree.LowerFunc(c.probe(from))
		}
		end := avl.Nil
		if to != "" {
			end = c.tree.UpperFunc(c.probe(to))
		}
		for n := start; n != avl.Nil && n != end; n = c.tree.Next(n) {
			rec := recordOf(n)
			if !yield(string(c.key(rec)), c.value(rec)) {
				return
			}
		}
	}
}

// Reorder stably sorts the insertion order by cmp. Key order is unaffected.
func (c *Catalog) Reorder(cmp func(a, b Entry) int) {
	entry := func(n list.Node) Entry {
		rec := int(n) - format.EntryListOffset
		return Entry{Key: string(c.key(rec)), Value: c.value(rec)}
	}
	c.seq.Sort(func(a, b list.Node) int { return cmp(entry(a), entry(b)) })
}

// Check verifies the tree, the insertion list and the entry count against
// each other.
func (c *Catalog) Check() error {
	if err := c.tree.Check(c.compare); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	inTree := make(map[int]bool, c.Len())
	for n := range c.tree.All() {
		inTree[recordOf(n)] = true
	}
	count := 0
	for n := range c.seq.All() {
		rec := int(n) - format.EntryListOffset
		if !inTree[rec] {
			return fmt.Errorf("catalog: list entry at %d missing from tree", rec)
		}
		count++
	}
	if count != len(inTree) || count != c.Len() {
		return fmt.Errorf("catalog: count %d, tree %d, list %d", c.Len(), len(inTree), count)
	}
	return nil
}

func (c *Catalog) find(key string) (int, error) {
	k, err := canonical(key)
	if err != nil {
		return 0, err
	}
	n := c.tree.LookupFunc(c.probe(k))
	if n == avl.Nil {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, k)
	}
	return recordOf(n), nil
}

func (c *Catalog) remove(rec int) error {
	c.tree.Remove(avl.Node(rec + format.EntryTreeOffset))
	c.seq.Remove(list.Node(rec + format.EntryListOffset))
	c.setLen(c.Len() - 1)
	return c.p.Free(pool.Ref(rec))
}

func entries[N ~int](c *Catalog, seq iter.Seq[N], rec func(N) int) iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		for n := range seq {
			r := rec(n)
			if !yield(string(c.key(r)), c.value(r)) {
				return
			}
		}
	}
}

func (c *Catalog) compare(a, b avl.Node) int {
	return bytes.Compare(c.key(recordOf(a)), c.key(recordOf(b)))
}

func (c *Catalog) probe(key string) func(avl.Node) int {
	k := []byte(key)
	return func(n avl.Node) int { return bytes.Compare(c.key(recordOf(n)), k) }
}

func (c *Catalog) key(rec int) []byte {
	mem := c.p.Span()
	n := int(format.ReadU32(mem, rec+format.EntryKeyLenOff))
	off := rec + format.EntryDataOffset
	return mem[off : off+n]
}

func (c *Catalog) value(rec int) []byte {
	mem := c.p.Span()
	kn := int(format.ReadU32(mem, rec+format.EntryKeyLenOff))
	vn := int(format.ReadU32(mem, rec+format.EntryValueLenOff))
	off := rec + format.EntryDataOffset + kn
	return mem[off : off+vn : off+vn]
}

func (c *Catalog) setLen(n int) {
	at := c.hdr + format.CatalogCountOffset
	format.PutU64(c.p.Span(), at, uint64(n))
	if c.dt != nil {
		c.dt.Add(at, format.WordSize)
	}
}

func recordOf(n avl.Node) int { return int(n) - format.EntryTreeOffset }

// canonical validates key and returns its NFC form.
func canonical(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrBadKey)
	}
	if !utf8.ValidString(key) {
		return "", fmt.Errorf("%w: not UTF-8", ErrBadKey)
	}
	k := norm.NFC.String(key)
	if uint64(len(k)) > math.MaxUint32 {
		return "", fmt.Errorf("%w: %d bytes", ErrBadKey, len(k))
	}
	return k, nil
}
