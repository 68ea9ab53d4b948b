package format

// AlignTag returns the number of bytes a tag must span to carry a payload of
// need bytes: one header plus enough tag units for the payload, where the
// first unit already has TagUnit-TagHeaderSize payload bytes to spare.
//
// Example:
//
//	AlignTag(0)  = 16
//	AlignTag(8)  = 16
//	AlignTag(9)  = 32
//	AlignTag(40) = 48
func AlignTag(need int) int {
	return (1 + (need+TagHeaderSize-1)/TagUnit) * TagUnit
}

// BitmapBytes returns the number of bitmap bytes needed for ntags tag units.
func BitmapBytes(ntags int) int {
	return (ntags + 7) / 8
}

// PayloadSize returns the usable payload of a tag spanning size bytes.
func PayloadSize(size int) int {
	if size < TagHeaderSize {
		return 0
	}
	return size - TagHeaderSize
}
