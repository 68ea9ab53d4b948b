// Package relptr implements relative pointers: links stored as a signed byte
// distance from the pointer's own location inside a span.
//
// A structure linked only through relative pointers stays valid when the span
// is copied elsewhere, remapped at a different address, or mapped by another
// process. Addresses handled by this package are offsets into the span, so a
// resolved pointer is meaningful only for the span it was read from.
//
// Encoding (signed 64-bit, little-endian):
//
//	0              null
//	math.MinInt64  the pointer refers to itself
//	otherwise      target = own offset + value
package relptr

import (
	"math"

	"github.com/joshuapare/relheap/internal/format"
)

// Size is the number of bytes a relative pointer occupies.
const Size = format.RelPtrSize

// Nil is the resolved form of a null pointer.
const Nil = -1

// Offset is the stored form of a relative pointer.
type Offset int64

const (
	// Null is the stored form of a null pointer.
	Null Offset = 0
	// Self is the stored form of a pointer to its own location, which cannot
	// be encoded as a zero distance because zero already means null.
	Self Offset = math.MinInt64
)

// Encode returns the stored form of a pointer living at offset at and
// referring to addr. addr == Nil encodes null.
func Encode(at, addr int) Offset {
	switch {
	case addr == Nil:
		return Null
	case addr == at:
		return Self
	}
	return Offset(addr - at)
}

// Resolve turns a stored pointer living at offset at back into an address.
func (o Offset) Resolve(at int) int {
	switch o {
	case Null:
		return Nil
	case Self:
		return at
	}
	return at + int(o)
}

// IsNull reports whether o is the null pointer.
func (o Offset) IsNull() bool { return o == Null }

// Load reads the stored pointer at mem[at:].
func Load(mem []byte, at int) Offset {
	return Offset(format.ReadI64(mem, at))
}

// Store writes a stored pointer to mem[at:].
func Store(mem []byte, at int, o Offset) {
	format.PutI64(mem, at, int64(o))
}

// Get resolves the pointer stored at mem[at:]. It returns Nil for null.
func Get(mem []byte, at int) int {
	return Load(mem, at).Resolve(at)
}

// Set makes the pointer at mem[at:] refer to addr, or null when addr is Nil.
func Set(mem []byte, at, addr int) {
	Store(mem, at, Encode(at, addr))
}

// IsNil reports whether the pointer stored at mem[at:] is null.
func IsNil(mem []byte, at int) bool {
	return Load(mem, at) == Null
}
