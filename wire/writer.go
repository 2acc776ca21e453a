package wire

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer accumulates an encoded value. The zero value is ready to use.
// A Writer is not safe for concurrent use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer that appends to buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the encoded bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of encoded bytes.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards the contents and keeps the allocated buffer.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// WriteTo writes the encoded bytes to dst. Sink failures are the only
// errors encoding can produce.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	return int64(n), err
}

// WriteRaw appends bytes without any prefix.
func (w *Writer) WriteRaw(b []byte) { w.buf = append(w.buf, b...) }

// WriteUvarint appends v as an unsigned LEB128 varint.
func (w *Writer) WriteUvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// WriteUvarint128 appends v as an unsigned LEB128 varint.
func (w *Writer) WriteUvarint128(v Uint128) {
	for v.Hi != 0 || v.Lo >= 0x80 {
		w.buf = append(w.buf, byte(v.Lo)|0x80)
		v.Lo = v.Lo>>7 | v.Hi<<57
		v.Hi >>= 7
	}
	w.buf = append(w.buf, byte(v.Lo))
}

// WriteBool appends 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// WriteU8 appends v as one raw byte.
func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

// WriteU16 appends v as a varint.
func (w *Writer) WriteU16(v uint16) { w.WriteUvarint(uint64(v)) }

// WriteU32 appends v as a varint.
func (w *Writer) WriteU32(v uint32) { w.WriteUvarint(uint64(v)) }

// WriteU64 appends v as a varint.
func (w *Writer) WriteU64(v uint64) { w.WriteUvarint(v) }

// WriteU128 appends v as a varint.
func (w *Writer) WriteU128(v Uint128) { w.WriteUvarint128(v) }

// WriteI8 appends v as one raw byte.
func (w *Writer) WriteI8(v int8) { w.buf = append(w.buf, byte(v)) }

// WriteI16 appends v as a zigzag varint.
func (w *Writer) WriteI16(v int16) { w.WriteUvarint(zigzag64(int64(v))) }

// WriteI32 appends v as a zigzag varint.
func (w *Writer) WriteI32(v int32) { w.WriteUvarint(zigzag64(int64(v))) }

// WriteI64 appends v as a zigzag varint.
func (w *Writer) WriteI64(v int64) { w.WriteUvarint(zigzag64(v)) }

// WriteI128 appends v as a zigzag varint.
func (w *Writer) WriteI128(v Int128) { w.WriteUvarint128(zigzag128(v)) }

// WriteF32 appends the little-endian IEEE 754 bits of v.
func (w *Writer) WriteF32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// WriteF64 appends the little-endian IEEE 754 bits of v.
func (w *Writer) WriteF64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

// WriteString appends a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteUvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes appends a length-prefixed byte string.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteLen appends a collection count or byte length.
func (w *Writer) WriteLen(n int) { w.WriteUvarint(uint64(n)) }

// WritePresence appends an option presence byte.
func (w *Writer) WritePresence(present bool) { w.WriteBool(present) }

// WriteTag appends a field tag.
func (w *Writer) WriteTag(id uint32, s Shape) { w.WriteUvarint(uint64(Tag(id, s))) }

// WriteEnd appends the end marker closing a struct or variant body.
func (w *Writer) WriteEnd() { w.WriteUvarint(uint64(EndMarker)) }

// WriteVariant appends an enum variant id.
func (w *Writer) WriteVariant(id uint32) { w.WriteUvarint(uint64(id)) }

// WriteFramed appends the output of fn preceded by its varint byte size.
func (w *Writer) WriteFramed(fn func(*Writer)) {
	start := len(w.buf)
	fn(w)
	size := len(w.buf) - start
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(size))
	w.buf = append(w.buf, prefix[:n]...)
	copy(w.buf[start+n:], w.buf[start:start+size])
	copy(w.buf[start:], prefix[:n])
}
