// Package format describes the persisted byte layout of a formatted pool and
// of the intrusive container records that live inside it. Everything here is
// plain offsets and sizes so that the layout stays readable from any process
// that maps the same bytes, regardless of where the mapping lands.
package format

const (
	// PoolMarker identifies a formatted pool. It is the first word of the span.
	// Layout (little-endian): 0xfa 0xfa 'L' 'O' 'O' 'P' 'M' 0x00
	PoolMarker uint64 = 0x4d504f4f4cfafafa

	// WordSize is the width of every scalar field in the pool header.
	WordSize = 8

	// RelPtrSize is the width of a relative pointer.
	RelPtrSize = 8
)

// Pool header field offsets. The header starts at offset 0 of the span.
const (
	PoolMarkerOffset    = 0x00 // u64, PoolMarker
	PoolSizeOffset      = 0x08 // u64, total span size recorded at format time
	PoolBalanceOffset   = 0x10 // u64, bytes currently allocated (headers included)
	PoolNTagsOffset     = 0x18 // u64, arena capacity in tag units
	PoolBitsOffset      = 0x20 // relptr to the occupancy bitmap
	PoolTagsOffset      = 0x28 // relptr to the tag arena
	PoolFreeOffset      = 0x30 // relptr to the first free tag
	PoolRootOffset      = 0x38 // relptr to the caller's root record
	PoolPrimarySeqOff   = 0x40 // u32, bumped when a transaction begins
	PoolSecondarySeqOff = 0x44 // u32, set equal to primary on commit

	// PoolHeaderSize is the fixed metadata size. The bitmap follows directly.
	PoolHeaderSize = 0x48
)

// Tag (block header) layout.
const (
	TagSizeOffset = 0x00 // u64, bytes spanned by the tag, header included
	TagNextOffset = 0x08 // relptr to the next free tag; payload starts here when in use

	// TagUnit is the allocation granule. Every tag size is a multiple of it.
	TagUnit = 16

	// TagHeaderSize is the part of a tag that survives while it is in use.
	// The free-list link is overwritten by payload.
	TagHeaderSize = TagNextOffset
)

// AVL node and tree layouts.
const (
	AVLRightOffset   = 0x00 // relptr
	AVLLeftOffset    = 0x08 // relptr
	AVLParentOffset  = 0x10 // relptr
	AVLBalanceOffset = 0x18 // int8, height(right) - height(left)

	// AVLNodeSize is rounded up so records keep 8-byte field alignment.
	AVLNodeSize = 0x20

	AVLTreeRootOffset   = 0x00 // relptr
	AVLTreeHeightOffset = 0x08 // i64, -1 when empty
	AVLTreeFirstOffset  = 0x10 // relptr to the minimum node
	AVLTreeLastOffset   = 0x18 // relptr to the maximum node

	AVLTreeSize = 0x20
)

// List node and list head layouts.
const (
	ListNextOffset = 0x00 // relptr
	ListPrevOffset = 0x08 // relptr
	ListNodeSize   = 0x10

	ListFirstOffset = 0x00 // relptr
	ListLastOffset  = 0x08 // relptr
	ListHeadSize    = 0x10
)

// Catalog header and entry layouts. Both are pool payloads.
const (
	// CatalogMagic identifies a catalog header record ("RELCAT01").
	CatalogMagic uint64 = 0x31305441434c4552

	CatalogMagicOffset = 0x00 // u64
	CatalogCountOffset = 0x08 // u64, live entries
	CatalogTreeOffset  = 0x10 // AVL tree header
	CatalogListOffset  = CatalogTreeOffset + AVLTreeSize
	CatalogHeaderSize  = CatalogListOffset + ListHeadSize

	EntryTreeOffset  = 0x00 // AVL node
	EntryListOffset  = EntryTreeOffset + AVLNodeSize
	EntryKeyLenOff   = EntryListOffset + ListNodeSize // u32
	EntryValueLenOff = EntryKeyLenOff + 4             // u32
	EntryDataOffset  = EntryValueLenOff + 4           // key bytes, then value bytes
)
