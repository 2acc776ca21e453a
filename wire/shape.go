package wire

import "fmt"

// Shape is the 3-bit wire-encoding discriminant carried in every tag. It
// tells a reader how to skip a value without knowing its type.
type Shape uint8

const (
	// Varint is a single LEB128 varint.
	Varint Shape = 0
	// LengthPrefixed is a varint byte length followed by that many bytes.
	LengthPrefixed Shape = 1
	// Fixed1 is exactly one byte.
	Fixed1 Shape = 2
	// Fixed4 is exactly four bytes.
	Fixed4 Shape = 3
	// Fixed8 is exactly eight bytes.
	Fixed8 Shape = 4
)

const shapeBits = 3

// EndMarker is the reserved field id closing a struct or variant body.
const EndMarker uint32 = 0

// MaxFieldID is the largest field id that fits in a tag.
const MaxFieldID uint32 = 1<<(32-shapeBits) - 1

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	return s <= Fixed8
}

func (s Shape) String() string {
	switch s {
	case Varint:
		return "varint"
	case LengthPrefixed:
		return "length-prefixed"
	case Fixed1:
		return "fixed1"
	case Fixed4:
		return "fixed4"
	case Fixed8:
		return "fixed8"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// ValidFieldID reports whether id may be assigned to a user field.
func ValidFieldID(id uint32) bool {
	return id != EndMarker && id <= MaxFieldID
}

// Tag packs a field id and shape into the tag integer.
func Tag(id uint32, s Shape) uint32 {
	return id<<shapeBits | uint32(s)
}

// SplitTag unpacks a tag integer.
func SplitTag(tag uint32) (uint32, Shape) {
	return tag >> shapeBits, Shape(tag & (1<<shapeBits - 1))
}
