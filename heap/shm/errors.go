package shm

import "errors"

var (
	// ErrBadName indicates an empty segment name, one containing a path
	// separator, or one that would collide with a semaphore file.
	ErrBadName = errors.New("shm: invalid segment name")

	// ErrLocked is returned by TryLock when another holder has the lock.
	ErrLocked = errors.New("shm: segment locked")

	// ErrNotLocked is returned by Unlock when the lock is already available.
	ErrNotLocked = errors.New("shm: segment not locked")

	// ErrClosed indicates use of a segment after Close.
	ErrClosed = errors.New("shm: segment closed")
)
