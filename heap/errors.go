package heap

import "errors"

var (
	// ErrClosed indicates use of a span after Close.
	ErrClosed = errors.New("heap: span closed")

	// ErrEmptyFile indicates Open found a zero-length file.
	ErrEmptyFile = errors.New("heap: empty span file")

	// ErrBadSize indicates a non-positive span size.
	ErrBadSize = errors.New("heap: span size must be positive")
)
