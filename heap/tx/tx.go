package tx

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/pool"
	"github.com/joshuapare/relheap/internal/format"
	"github.com/joshuapare/relheap/internal/logger"
)

// ErrNested is returned by Run inside an active transaction.
var ErrNested = errors.New("tx: transaction already active")

// Locker is the cross-process lock a Manager holds for the length of a
// transaction. *shm.Segment satisfies it.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// Manager handles the pool's sequence numbers and coordinates ordered
// flushes for transaction durability and crash detection.
//
// The manager is NOT thread-safe. Only one goroutine should use it at a time.
type Manager struct {
	p    *pool.Pool             // Pool being modified
	lk   Locker                 // Cross-process lock, may be nil
	dt   dirty.FlushableTracker // Dirty page tracker, may be nil
	mode dirty.FlushMode        // Flush mode for commits
	seq  uint32                 // Current sequence number
	inTx bool                   // Whether a transaction is active
}

// NewManager creates a transaction manager for p. lk may be nil. dt may be
// nil for pools in ordinary memory, in which case commits only advance the
// sequence numbers and nothing is flushed.
func NewManager(p *pool.Pool, lk Locker, dt dirty.FlushableTracker, mode dirty.FlushMode) *Manager {
	return &Manager{p: p, lk: lk, dt: dt, mode: mode}
}

// Begin takes the lock and starts a new transaction by incrementing the
// primary sequence. Begin inside a transaction is a no-op.
func (m *Manager) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.inTx {
		return nil
	}
	if m.lk != nil {
		if err := m.lk.Lock(ctx); err != nil {
			return fmt.Errorf("tx: lock: %w", err)
		}
	}

	primary, secondary := m.p.Sequences()
	next := primary + 1
	if err := m.p.SetSequences(next, secondary); err != nil {
		m.unlock()
		return fmt.Errorf("tx: begin: %w", err)
	}
	m.markHeader()

	m.seq = next
	m.inTx = true
	return nil
}

// Commit finalises the transaction:
//
//  1. Flush all dirty data pages
//  2. Set secondary = primary
//  3. Mark the header dirty and flush it per the flush mode
//  4. Release the lock
//
// Commit without an active transaction is a no-op. When a flush fails the
// transaction stays open and the lock stays held; the caller decides
// between retrying Commit and calling Rollback.
func (m *Manager) Commit(ctx context.Context) error {
	if !m.inTx {
		return nil
	}
	if m.dt != nil {
		if err := m.dt.FlushDataOnly(ctx); err != nil {
			return fmt.Errorf("flush data pages: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.p.SetSequences(m.seq, m.seq); err != nil {
		return fmt.Errorf("tx: commit: %w", err)
	}
	if m.dt != nil {
		m.markHeader()
		if err := m.dt.FlushHeaderAndMeta(ctx, m.mode); err != nil {
			return fmt.Errorf("flush header: %w", err)
		}
	}

	m.inTx = false
	m.unlock()
	return nil
}

// Rollback abandons the transaction and releases the lock. Nothing is
// undone and nothing is flushed: the primary sequence stays ahead of the
// secondary so the next Attach reports the interrupted write.
func (m *Manager) Rollback() {
	if !m.inTx {
		return
	}
	m.inTx = false
	m.unlock()
}

// Run executes fn inside a transaction. fn's error rolls back; otherwise
// the transaction commits.
func (m *Manager) Run(ctx context.Context, fn func() error) error {
	if m.inTx {
		return ErrNested
	}
	if err := m.Begin(ctx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		m.Rollback()
		return err
	}
	if err := m.Commit(ctx); err != nil {
		m.Rollback()
		return err
	}
	return nil
}

// InTransaction returns whether a transaction is currently active.
func (m *Manager) InTransaction() bool {
	return m.inTx
}

// CurrentSequence returns the current sequence number.
func (m *Manager) CurrentSequence() uint32 {
	return m.seq
}

// Consistent reports whether the pool's sequences agree, meaning no
// transaction is open or was left unfinished.
func Consistent(p *pool.Pool) bool {
	primary, secondary := p.Sequences()
	return primary == secondary
}

func (m *Manager) markHeader() {
	if m.dt != nil {
		m.dt.Add(0, format.PoolHeaderSize)
	}
}

func (m *Manager) unlock() {
	if m.lk == nil {
		return
	}
	if err := m.lk.Unlock(); err != nil {
		logger.L.Warn("tx unlock failed", "seq", m.seq, "err", err)
	}
}
