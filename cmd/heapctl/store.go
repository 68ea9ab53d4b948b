package main

import (
	"context"
	"fmt"

	"github.com/joshuapare/relheap/heap/catalog"
	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/pool"
	"github.com/joshuapare/relheap/heap/shm"
	"github.com/joshuapare/relheap/heap/tx"
	"github.com/joshuapare/relheap/internal/logger"
)

// store is an opened segment with its pool, catalog and transaction manager.
type store struct {
	seg *shm.Segment
	dt  *dirty.Tracker
	p   *pool.Pool
	cat *catalog.Catalog
	tm  *tx.Manager
}

// openStore maps an existing segment and attaches to its catalog.
func openStore(name string) (*store, error) {
	seg, err := shm.Open(name)
	if err != nil {
		return nil, err
	}
	s, err := attachStore(seg)
	if err != nil {
		_ = seg.Close()
		return nil, err
	}
	return s, nil
}

func attachStore(seg *shm.Segment) (*store, error) {
	dt := dirty.NewTracker(seg.Span())
	p, err := pool.Attach(seg.Bytes(), &pool.Options{Tracker: dt, Logger: logger.L})
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", seg.Name(), err)
	}
	cat, err := catalog.Open(p, &catalog.Options{Tracker: dt, Logger: logger.L})
	if err != nil {
		return nil, fmt.Errorf("open catalog in %s: %w", seg.Name(), err)
	}
	return &store{
		seg: seg,
		dt:  dt,
		p:   p,
		cat: cat,
		tm:  tx.NewManager(p, seg, dt, dirty.FlushAuto),
	}, nil
}

// read runs fn holding the segment lock.
func (s *store) read(ctx context.Context, fn func() error) error {
	if err := s.seg.Lock(ctx); err != nil {
		return fmt.Errorf("lock %s: %w", s.seg.Name(), err)
	}
	defer func() { _ = s.seg.Unlock() }()
	return fn()
}

// write runs fn inside a transaction.
func (s *store) write(ctx context.Context, fn func() error) error {
	return s.tm.Run(ctx, fn)
}

func (s *store) Close() error {
	s.p.Cleanup()
	return s.seg.Close()
}
