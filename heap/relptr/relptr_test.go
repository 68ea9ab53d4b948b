package relptr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	mem := make([]byte, 64)

	Set(mem, 8, 40)
	require.Equal(t, 40, Get(mem, 8))
	require.Equal(t, Offset(32), Load(mem, 8))

	Set(mem, 40, 8)
	require.Equal(t, 8, Get(mem, 40))
	require.Equal(t, Offset(-32), Load(mem, 40))
}

func TestNullAndSelf(t *testing.T) {
	mem := make([]byte, 32)

	require.True(t, IsNil(mem, 0), "zeroed memory reads as null")
	require.Equal(t, Nil, Get(mem, 0))

	Set(mem, 16, 16)
	require.Equal(t, Self, Load(mem, 16))
	require.Equal(t, 16, Get(mem, 16))
	require.False(t, IsNil(mem, 16))

	Set(mem, 16, Nil)
	require.True(t, IsNil(mem, 16))
}

func TestSelfTargetAtZero(t *testing.T) {
	mem := make([]byte, 16)
	Set(mem, 0, 0)
	require.Equal(t, 0, Get(mem, 0), "self pointer at offset 0 must not collapse to null")
}

func TestRelocation(t *testing.T) {
	mem := make([]byte, 64)
	Set(mem, 0, 24)
	Set(mem, 24, 48)
	Set(mem, 48, 0)

	// Copy into the middle of a bigger buffer and read through a sub-slice.
	big := make([]byte, 1024)
	copy(big[333:], mem)
	moved := big[333 : 333+len(mem)]

	at := 0
	var path []int
	for range 4 {
		path = append(path, at)
		at = Get(moved, at)
	}
	require.Equal(t, []int{0, 24, 48, 0}, path)
}

func TestEncodeResolve(t *testing.T) {
	require.Equal(t, Null, Encode(10, Nil))
	require.Equal(t, Self, Encode(10, 10))
	require.Equal(t, Offset(-10), Encode(10, 0))
	require.Equal(t, 0, Offset(-10).Resolve(10))
	require.True(t, Null.IsNull())
}
