//go:build !unix && !windows

// Package mmfile provides platform-specific helpers for memory-mapping span files.
package mmfile

import (
	"io"
	"os"
)

// Supported reports whether Map returns a real OS mapping on this platform.
const Supported = false

// Map reads the file into memory when mmap is not available. A writable
// copy is written back by the cleanup function.
func Map(f *os.File, size int, writable bool) ([]byte, func() error, error) {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, func() error { return nil }, err
	}
	if !writable {
		return data, func() error { return nil }, nil
	}
	return data, func() error {
		_, err := f.WriteAt(data, 0)
		return err
	}, nil
}

// Anonymous returns plain process memory.
func Anonymous(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}

// Sync is a no-op without mmap.
func Sync([]byte) error { return nil }
