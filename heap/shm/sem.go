package shm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/joshuapare/relheap/heap"
	"github.com/joshuapare/relheap/internal/logger"
)

const (
	semAvailable = 1
	semHeld      = 0
)

// Lock polling backs off from minBackoff up to maxBackoff.
const (
	minBackoff = 50 * time.Microsecond
	maxBackoff = 10 * time.Millisecond
)

type semaphore struct {
	span  *heap.Span
	value *atomic.Uint32
}

// createSemaphore opens the semaphore file, initialising it to available
// when it is new. Callers serialise creation with the segment file lock.
func createSemaphore(path string) (*semaphore, error) {
	st, err := os.Stat(path)
	fresh := errors.Is(err, fs.ErrNotExist) || (err == nil && st.Size() < semSize)
	if err != nil && !fresh {
		return nil, err
	}
	span, err := heap.Create(path, semSize)
	if err != nil {
		return nil, err
	}
	s := newSemaphore(span)
	if fresh {
		s.value.Store(semAvailable)
	}
	return s, nil
}

func openSemaphore(path string) (*semaphore, error) {
	span, err := heap.Open(path)
	if err != nil {
		return nil, err
	}
	if span.Len() < semSize {
		_ = span.Close()
		return nil, fmt.Errorf("semaphore %s truncated", path)
	}
	return newSemaphore(span), nil
}

func newSemaphore(span *heap.Span) *semaphore {
	// Mappings are page aligned, so the first word is aligned for atomics.
	return &semaphore{
		span:  span,
		value: (*atomic.Uint32)(unsafe.Pointer(&span.Bytes()[0])),
	}
}

func (s *semaphore) close() error {
	s.value = nil
	return s.span.Close()
}

// TryLock takes the segment lock without waiting. It returns ErrLocked when
// the lock is held, by this or any other process.
func (s *Segment) TryLock() error {
	if s.sem == nil {
		return ErrClosed
	}
	if !s.sem.value.CompareAndSwap(semAvailable, semHeld) {
		return ErrLocked
	}
	return nil
}

// Lock takes the segment lock, polling until it is acquired or ctx is done.
func (s *Segment) Lock(ctx context.Context) error {
	backoff := minBackoff
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	for {
		err := s.TryLock()
		if !errors.Is(err, ErrLocked) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		timer.Reset(backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Unlock releases the segment lock. Any process may release it; releasing
// an available lock returns ErrNotLocked.
func (s *Segment) Unlock() error {
	if s.sem == nil {
		return ErrClosed
	}
	if !s.sem.value.CompareAndSwap(semHeld, semAvailable) {
		return ErrNotLocked
	}
	return nil
}

// ForceUnlock makes the lock available whatever its state, for recovering
// from a holder that died. It is a no-op on an available lock.
func (s *Segment) ForceUnlock() error {
	if s.sem == nil {
		return ErrClosed
	}
	if prev := s.sem.value.Swap(semAvailable); prev != semAvailable {
		logger.L.Warn("shm lock force released", "name", s.name, "state", prev)
	}
	return nil
}

// Locked reports whether the lock is currently held by anyone.
func (s *Segment) Locked() bool {
	return s.sem != nil && s.sem.value.Load() != semAvailable
}
