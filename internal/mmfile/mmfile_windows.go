//go:build windows

// Package mmfile provides platform-specific helpers for memory-mapping span files.
package mmfile

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Supported reports whether Map returns a real OS mapping on this platform.
const Supported = true

// Map maps the first size bytes of f into memory. The returned cleanup
// unmaps the view and closes the mapping handle.
func Map(f *os.File, size int, writable bool) ([]byte, func() error, error) {
	return mapHandle(windows.Handle(f.Fd()), size, writable)
}

// Anonymous returns a zeroed mapping backed by the paging file.
func Anonymous(size int) ([]byte, func() error, error) {
	return mapHandle(windows.InvalidHandle, size, true)
}

// Sync flushes a whole mapping to its backing file.
func Sync(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return windows.FlushViewOfFile(uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)))
}

func mapHandle(fh windows.Handle, size int, writable bool) ([]byte, func() error, error) {
	if size <= 0 {
		return []byte{}, func() error { return nil }, nil
	}
	protect, access := uint32(windows.PAGE_READONLY), uint32(windows.FILE_MAP_READ)
	if writable {
		protect, access = windows.PAGE_READWRITE, windows.FILE_MAP_WRITE
	}
	n := uint64(size)
	h, err := windows.CreateFileMapping(fh, nil, protect, uint32(n>>32), uint32(n), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("mmfile: CreateFileMapping: %w", err)
	}
	addr, err := windows.MapViewOfFile(h, access, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, nil, fmt.Errorf("mmfile: MapViewOfFile: %w", err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	cleanup := func() error {
		if addr == 0 {
			return nil
		}
		err := windows.UnmapViewOfFile(addr)
		addr = 0
		if cerr := windows.CloseHandle(h); err == nil {
			err = cerr
		}
		return err
	}
	return data, cleanup, nil
}
