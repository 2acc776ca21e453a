// Package wire implements the stef binary wire protocol.
//
// It is imported by generated code and by the in-memory codec, so it has no
// dependency on the schema IR.
//
// Encoding summary:
//   - Unsigned integers wider than 8 bits are unsigned LEB128 varints.
//   - Signed integers wider than 8 bits are zigzag encoded, then varints.
//   - bool, u8 and i8 are one raw byte. f32 and f64 are little endian.
//   - string and bytes are a varint byte length followed by the bytes.
//   - vec, hash_set and arrays are a varint count followed by the elements.
//     hash_map is a varint count followed by key/value pairs.
//   - option is a presence byte (0 or 1) followed by the value when present.
//   - Struct and variant bodies are a sequence of tagged fields closed by the
//     end marker. A tag is the varint (id << 3 | shape).
//   - An enum value is its varint variant id followed by the variant body.
//
// A field value whose shape is LengthPrefixed but whose encoding does not
// start with its own byte length (anything but string and bytes) is framed:
// it is preceded by its varint byte size so that readers that do not know
// the field can skip it. Values nested inside other values are never framed.
package wire
