// Package shm provides named shared-memory segments with a cross-process
// lock.
//
// A segment is a file in the shared-memory directory mapped MAP_SHARED by
// every process that opens it. Next to it lives "<name>.sem", a single
// 32-bit counter in its own shared mapping that acts as a binary semaphore:
// 1 means available, 0 means held. The counter is updated with atomic
// operations, so holders in different processes exclude each other without
// any daemon or kernel object.
//
// The directory is RELHEAP_SHM_DIR when set, otherwise /dev/shm where it
// exists and the OS temp directory elsewhere.
//
// Heap structures inside a segment do not lock themselves. Callers take the
// segment lock around every pool, tree or list operation on shared bytes.
package shm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshuapare/relheap/heap"
	"github.com/joshuapare/relheap/internal/logger"
)

// EnvDir overrides the directory segments are created in.
const EnvDir = "RELHEAP_SHM_DIR"

const (
	semSuffix = ".sem"
	semSize   = 8
	perm      = 0o666
)

// Dir returns the directory segments live in.
func Dir() string {
	if d := os.Getenv(EnvDir); d != "" {
		return d
	}
	if st, err := os.Stat("/dev/shm"); err == nil && st.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Path returns the backing file path of the named segment.
func Path(name string) string { return filepath.Join(Dir(), name) }

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." ||
		strings.HasSuffix(name, semSuffix) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

// Segment is one process's mapping of a named segment.
//
// A Segment may be shared between goroutines for locking; the bytes
// themselves are only as safe as the lock discipline of the caller.
type Segment struct {
	name string
	span *heap.Span
	sem  *semaphore
}

// Create opens the named segment, creating it if needed, and grows its
// backing object to at least size bytes. The whole object is mapped, so a
// segment created larger by another process keeps that size. The
// semaphore is created available alongside a new segment.
func Create(name string, size int) (*Segment, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("shm: create %s: %w", name, heap.ErrBadSize)
	}
	path := Path(name)

	guard, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, perm)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	defer guard.Close()
	unlock, err := lockFile(guard)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	defer unlock()

	span, err := heap.Create(path, size)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	sem, err := createSemaphore(path + semSuffix)
	if err != nil {
		_ = span.Close()
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	logger.L.Debug("shm segment created", "name", name, "size", span.Len())
	return &Segment{name: name, span: span, sem: sem}, nil
}

// Open maps an existing segment at its current size.
func Open(name string) (*Segment, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	path := Path(name)

	sem, err := openSemaphore(path + semSuffix)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	span, err := heap.Open(path)
	if err != nil {
		_ = sem.close()
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	return &Segment{name: name, span: span, sem: sem}, nil
}

// Unlink removes the named segment and its semaphore. Processes that still
// have it mapped keep their mappings. A missing semaphore is not an error.
func Unlink(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	path := Path(name)
	err := os.Remove(path)
	if serr := os.Remove(path + semSuffix); serr != nil && !errors.Is(serr, fs.ErrNotExist) {
		err = errors.Join(err, serr)
	}
	if err != nil {
		return fmt.Errorf("shm: unlink %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the named segment exists.
func Exists(name string) bool {
	if validName(name) != nil {
		return false
	}
	_, err := os.Stat(Path(name))
	return err == nil
}

// Name returns the segment name.
func (s *Segment) Name() string { return s.name }

// Bytes returns this process's mapping of the segment.
func (s *Segment) Bytes() []byte { return s.span.Bytes() }

// Span returns the mapping as a heap span, for dirty tracking and sync.
func (s *Segment) Span() *heap.Span { return s.span }

// Size returns the current size of the backing object. It can exceed
// len(Bytes()) when another process grew the segment after this one mapped
// it.
func (s *Segment) Size() (int, error) {
	n, err := s.span.FileSize()
	if errors.Is(err, heap.ErrClosed) {
		return 0, ErrClosed
	}
	return int(n), err
}

// Close unmaps the segment and its semaphore. The segment itself and the
// lock state are left for other processes; a lock held through this handle
// stays held.
func (s *Segment) Close() error {
	if s.sem == nil {
		return nil
	}
	err := errors.Join(s.span.Close(), s.sem.close())
	s.sem = nil
	return err
}
