package catalog

import "errors"

var (
	// ErrNotFound indicates no entry has the requested key.
	ErrNotFound = errors.New("catalog: key not found")

	// ErrBadKey indicates an empty key, a key that is not valid UTF-8, or
	// one too long to store.
	ErrBadKey = errors.New("catalog: invalid key")

	// ErrValueTooLarge indicates a value longer than a record can describe.
	ErrValueTooLarge = errors.New("catalog: value too large")

	// ErrNoCatalog indicates the pool root does not point at a catalog.
	ErrNoCatalog = errors.New("catalog: pool holds no catalog")

	// ErrExists indicates Create found the pool root already in use.
	ErrExists = errors.New("catalog: pool root already set")
)
