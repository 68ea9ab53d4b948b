package main

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/joshuapare/relheap/heap"
	"github.com/joshuapare/relheap/heap/catalog"
	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/pool"
	"github.com/joshuapare/relheap/heap/shm"
	"github.com/joshuapare/relheap/heap/tx"
	"github.com/joshuapare/relheap/internal/logger"

	"github.com/joshuapare/relheap/cmd/heapexplorer/displays"
	"github.com/joshuapare/relheap/cmd/heapexplorer/entrylist"
)

// Order selects how entries are listed.
type Order int

const (
	KeyOrder Order = iota
	InsertionOrder
)

func (o Order) String() string {
	if o == InsertionOrder {
		return "insertion"
	}
	return "key"
}

// Store is an attached heap: a pool whose root is a catalog, the segment
// lock that guards it, and a transaction manager for edits.
//
// Methods are safe for concurrent use by the UI's command goroutines.
type Store struct {
	mu   sync.Mutex
	name string
	seg  *shm.Segment // nil for private heaps
	span *heap.Span
	p    *pool.Pool
	cat  *catalog.Catalog
	tm   *tx.Manager
}

// OpenStore maps the named segment and attaches to its catalog.
func OpenStore(name string) (*Store, error) {
	seg, err := shm.Open(name)
	if err != nil {
		return nil, err
	}
	dt := dirty.NewTracker(seg.Span())
	s, err := attach(name, seg.Bytes(), dt, seg)
	if err != nil {
		_ = seg.Close()
		return nil, err
	}
	s.seg = seg
	return s, nil
}

// NewPrivateStore formats an empty catalog in a private span of size bytes.
func NewPrivateStore(name string, size int) (*Store, error) {
	span := heap.New(size)
	dt := dirty.NewTracker(span)
	p, err := pool.Format(span.Bytes(), &pool.Options{Tracker: dt, Logger: logger.L})
	if err != nil {
		return nil, err
	}
	if _, err := catalog.Create(p, &catalog.Options{Tracker: dt, Logger: logger.L}); err != nil {
		return nil, err
	}
	s, err := attach(name, span.Bytes(), dt, nil)
	if err != nil {
		return nil, err
	}
	s.span = span
	return s, nil
}

// NewDemoStore returns a private heap with a handful of sample entries.
func NewDemoStore() (*Store, error) {
	s, err := NewPrivateStore("demo", 256<<10)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	samples := []struct {
		key   string
		value []byte
	}{
		{"config/listen", []byte("127.0.0.1:8080")},
		{"config/workers", []byte("8")},
		{"session:7f3a", []byte(`{"user":"ada","ttl":3600}`)},
		{"session:91c2", []byte(`{"user":"grace","ttl":900}`)},
		{"blob/header", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d}},
		{"notes", []byte("first line\nsecond line\n")},
	}
	for _, e := range samples {
		if err := s.Put(ctx, e.key, e.value); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func attach(name string, mem []byte, dt *dirty.Tracker, lk tx.Locker) (*Store, error) {
	p, err := pool.Attach(mem, &pool.Options{Tracker: dt, Logger: logger.L})
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", name, err)
	}
	cat, err := catalog.Open(p, &catalog.Options{Tracker: dt, Logger: logger.L})
	if err != nil {
		return nil, fmt.Errorf("open catalog in %s: %w", name, err)
	}
	return &Store{
		name: name,
		p:    p,
		cat:  cat,
		tm:   tx.NewManager(p, lk, dt, dirty.FlushAuto),
	}, nil
}

// Name returns the segment name.
func (s *Store) Name() string { return s.name }

// read runs fn holding the segment lock, if there is one.
func (s *Store) read(ctx context.Context, fn func() error) error {
	if s.seg == nil {
		return fn()
	}
	if err := s.seg.Lock(ctx); err != nil {
		return fmt.Errorf("lock %s: %w", s.name, err)
	}
	defer func() { _ = s.seg.Unlock() }()
	return fn()
}

// Snapshot copies the header state and every entry out of the heap.
func (s *Store) Snapshot(ctx context.Context, order Order) (displays.HeapInfo, []entrylist.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		info    displays.HeapInfo
		entries []entrylist.Entry
	)
	err := s.read(ctx, func() error {
		primary, secondary := s.p.Sequences()
		info = displays.HeapInfo{
			Name:         s.name,
			Shared:       s.seg != nil,
			Size:         s.p.TotalSize(),
			Capacity:     s.p.TotalCapacity(),
			Used:         s.p.Used(),
			Free:         s.p.FreeSpace(),
			Utilization:  s.p.Utilization(),
			Entries:      s.cat.Len(),
			PrimarySeq:   primary,
			SecondarySeq: secondary,
			Consistent:   tx.Consistent(s.p),
		}
		seq := s.cat.All()
		if order == InsertionOrder {
			seq = s.cat.Each()
		}
		entries = make([]entrylist.Entry, 0, info.Entries)
		for k, v := range seq {
			entries = append(entries, entrylist.Entry{Key: k, Value: bytes.Clone(v)})
		}
		return nil
	})
	if s.seg != nil {
		info.Locked = s.seg.Locked()
	}
	return info, entries, err
}

// Put stores value under key in a transaction.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tm.Run(ctx, func() error { return s.cat.Put(key, value) })
}

// Delete removes key in a transaction.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tm.Run(ctx, func() error { return s.cat.Delete(key) })
}

// Promote moves key to the newest insertion position in a transaction.
func (s *Store) Promote(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tm.Run(ctx, func() error { return s.cat.Promote(key) })
}

// Check verifies the pool and catalog under the lock.
func (s *Store) Check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx, func() error {
		if err := s.p.Check(); err != nil {
			return fmt.Errorf("pool: %w", err)
		}
		return s.cat.Check()
	})
}

// Close releases the mapping.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Cleanup()
	if s.seg != nil {
		return s.seg.Close()
	}
	if s.span != nil {
		return s.span.Close()
	}
	return nil
}
