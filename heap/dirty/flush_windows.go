//go:build windows

package dirty

import (
	"context"
	"unsafe"

	"golang.org/x/sys/windows"
)

// flushRanges flushes each coalesced data range with FlushViewOfFile.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	for _, r := range t.dataRanges(len(data)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := msync(data[r.Off : r.Off+r.Len]); err != nil {
			return err
		}
	}
	return nil
}

// msync performs memory sync for the given byte slice using FlushViewOfFile.
//
// On Windows, FlushViewOfFile flushes the memory-mapped pages to disk.
func msync(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	return windows.FlushViewOfFile(addr, uintptr(len(data)))
}

// fdatasync performs file descriptor sync using FlushFileBuffers.
//
// On Windows, FlushFileBuffers ensures all file data and metadata is written to disk.
// The fullfsync parameter is ignored on Windows.
func fdatasync(fd int, _ bool) error {
	return windows.FlushFileBuffers(windows.Handle(fd))
}
