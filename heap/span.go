package heap

import (
	"fmt"
	"os"

	"github.com/joshuapare/relheap/internal/mmfile"
)

// Span is a run of bytes that heap structures are formatted into.
type Span struct {
	f        *os.File
	data     []byte
	path     string
	mapped   bool
	readOnly bool
	closed   bool
	unmap    func() error
}

// New returns a span of size bytes of ordinary process memory.
func New(size int) *Span {
	return &Span{data: make([]byte, max(size, 0))}
}

// Wrap returns a span over existing bytes. Close leaves them untouched.
func Wrap(b []byte) *Span {
	return &Span{data: b}
}

// Anon returns a zeroed anonymous shared mapping of size bytes.
func Anon(size int) (*Span, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	data, unmap, err := mmfile.Anonymous(size)
	if err != nil {
		return nil, err
	}
	return &Span{data: data, mapped: mmfile.Supported, unmap: unmap}, nil
}

// Create opens or creates the file at path, extends it to at least size
// bytes, and maps the whole file read-write. An existing larger file keeps
// its size and contents.
func Create(path string, size int) (*Span, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("heap: extend %s: %w", path, err)
		}
	} else {
		size = int(st.Size())
	}
	return mapFile(f, path, size, false)
}

// Open maps an existing file read-write.
func Open(path string) (*Span, error) {
	return open(path, false)
}

// OpenReadOnly maps an existing file read-only. Writing to Bytes faults.
func OpenReadOnly(path string) (*Span, error) {
	return open(path, true)
}

func open(path string, readOnly bool) (*Span, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return mapFile(f, path, int(st.Size()), readOnly)
}

func mapFile(f *os.File, path string, size int, readOnly bool) (*Span, error) {
	data, unmap, err := mmfile.Map(f, size, !readOnly)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Span{
		f:        f,
		data:     data,
		path:     path,
		mapped:   mmfile.Supported,
		readOnly: readOnly,
		unmap:    unmap,
	}, nil
}

// Bytes returns the span contents.
func (s *Span) Bytes() []byte { return s.data }

// Len returns the span size in bytes.
func (s *Span) Len() int { return len(s.data) }

// Path returns the backing file path, or "" for memory spans.
func (s *Span) Path() string { return s.path }

// Mapped reports whether the span is an OS mapping.
func (s *Span) Mapped() bool { return s.mapped }

// ReadOnly reports whether the span was opened read-only.
func (s *Span) ReadOnly() bool { return s.readOnly }

// FileSize returns the current size of the backing file, which another
// process may have grown past Len. Memory spans report Len.
func (s *Span) FileSize() (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.f == nil {
		return int64(len(s.data)), nil
	}
	st, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// FD returns the backing file descriptor, or -1 when there is none.
func (s *Span) FD() int {
	if s == nil || s.f == nil {
		return -1
	}
	return int(s.f.Fd())
}

// Sync flushes the whole span to its backing file. Memory spans have
// nothing to flush.
func (s *Span) Sync() error {
	if s.closed {
		return ErrClosed
	}
	if !s.mapped || s.f == nil {
		return nil
	}
	return mmfile.Sync(s.data)
}

// Close unmaps the span and closes its file. The bytes of memory spans are
// released to the garbage collector.
func (s *Span) Close() error {
	var err error
	if s.unmap != nil {
		err = s.unmap()
		s.unmap = nil
	}
	if s.f != nil {
		if cerr := s.f.Close(); err == nil {
			err = cerr
		}
		s.f = nil
	}
	s.data = nil
	s.closed = true
	return err
}
