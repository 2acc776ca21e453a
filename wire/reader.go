package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Reader consumes an encoded value from a byte slice.
// A Reader is not safe for concurrent use.
type Reader struct {
	buf []byte
	off int
	// base is the offset of buf within the outermost input, for errors.
	base int
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Offset returns the position of the next unread byte in the input.
func (r *Reader) Offset() int { return r.base + r.off }

func (r *Reader) errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Offset: r.Offset()}
}

func (r *Reader) truncated(what string) *Error {
	return r.errorf(ErrCodeTruncated, "unexpected end of input reading %s", what)
}

// Finish fails if unread bytes remain.
func (r *Reader) Finish() error {
	if n := r.Remaining(); n > 0 {
		return r.errorf(ErrCodeMalformed, "%d trailing bytes", n)
	}
	return nil
}

func (r *Reader) take(n int, what string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, r.truncated(what)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadRaw consumes exactly n bytes. The result aliases the input.
func (r *Reader) ReadRaw(n int) ([]byte, error) { return r.take(n, "raw bytes") }

// ReadUvarint reads an unsigned varint that must fit in bits bits.
func (r *Reader) ReadUvarint(bits int) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		if r.off >= len(r.buf) {
			return 0, r.truncated("varint")
		}
		c := r.buf[r.off]
		r.off++
		if i == binary.MaxVarintLen64 || (i == binary.MaxVarintLen64-1 && c > 1) {
			return 0, r.errorf(ErrCodeMalformed, "varint overflows 64 bits")
		}
		v |= uint64(c&0x7f) << shift
		if c < 0x80 {
			if i > 0 && c == 0 {
				return 0, r.errorf(ErrCodeMalformed, "non-minimal varint")
			}
			break
		}
		shift += 7
	}
	if bits < 64 && v>>uint(bits) != 0 {
		return 0, r.errorf(ErrCodeMalformed, "varint %d overflows %d bits", v, bits)
	}
	return v, nil
}

// ReadUvarint128 reads an unsigned varint of up to 128 bits.
func (r *Reader) ReadUvarint128() (Uint128, error) {
	var v Uint128
	var shift uint
	for i := 0; ; i++ {
		if r.off >= len(r.buf) {
			return Uint128{}, r.truncated("varint")
		}
		c := r.buf[r.off]
		r.off++
		if i == 19 || (i == 18 && c > 3) {
			return Uint128{}, r.errorf(ErrCodeMalformed, "varint overflows 128 bits")
		}
		part := uint64(c & 0x7f)
		switch {
		case shift < 64:
			v.Lo |= part << shift
			if shift > 57 {
				v.Hi |= part >> (64 - shift)
			}
		default:
			v.Hi |= part << (shift - 64)
		}
		if c < 0x80 {
			if i > 0 && c == 0 {
				return Uint128{}, r.errorf(ErrCodeMalformed, "non-minimal varint")
			}
			return v, nil
		}
		shift += 7
	}
}

// ReadBool reads a bool byte, which must be 0 or 1.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.take(1, "bool")
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		r.off--
		return false, r.errorf(ErrCodeMalformed, "invalid bool byte 0x%02x", b[0])
	}
}

// ReadU8 reads one raw byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1, "u8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a varint that must fit in 16 bits.
func (r *Reader) ReadU16() (uint16, error) {
	v, err := r.ReadUvarint(16)
	return uint16(v), err
}

// ReadU32 reads a varint that must fit in 32 bits.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := r.ReadUvarint(32)
	return uint32(v), err
}

// ReadU64 reads a 64-bit varint.
func (r *Reader) ReadU64() (uint64, error) { return r.ReadUvarint(64) }

// ReadU128 reads a 128-bit varint.
func (r *Reader) ReadU128() (Uint128, error) { return r.ReadUvarint128() }

// ReadI8 reads one raw byte as a two's complement integer.
func (r *Reader) ReadI8() (int8, error) {
	b, err := r.take(1, "i8")
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// ReadI16 reads a zigzag varint that must fit in 16 bits.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadUvarint(16)
	return int16(unzigzag64(v)), err
}

// ReadI32 reads a zigzag varint that must fit in 32 bits.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadUvarint(32)
	return int32(unzigzag64(v)), err
}

// ReadI64 reads a 64-bit zigzag varint.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadUvarint(64)
	return unzigzag64(v), err
}

// ReadI128 reads a 128-bit zigzag varint.
func (r *Reader) ReadI128() (Int128, error) {
	v, err := r.ReadUvarint128()
	if err != nil {
		return Int128{}, err
	}
	return unzigzag128(v), nil
}

// ReadF32 reads 4 little-endian bytes of an IEEE 754 float.
func (r *Reader) ReadF32() (float32, error) {
	b, err := r.take(4, "f32")
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadF64 reads 8 little-endian bytes of an IEEE 754 float.
func (r *Reader) ReadF64() (float64, error) {
	b, err := r.take(8, "f64")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadLen reads a count or byte length. Counts are bounded by the int range.
func (r *Reader) ReadLen() (int, error) {
	v, err := r.ReadUvarint(64)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, r.errorf(ErrCodeMalformed, "length %d too large", v)
	}
	return int(v), nil
}

// ReadBytes reads a length-prefixed byte string into a new slice.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	b, err := r.take(n, "bytes")
	if err != nil {
		return nil, err
	}
	return append([]byte{}, b...), nil
}

// ReadString reads a length-prefixed string and checks it is UTF-8.
func (r *Reader) ReadString() (string, error) {
	start := r.off
	n, err := r.ReadLen()
	if err != nil {
		return "", err
	}
	b, err := r.take(n, "string")
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		r.off = start
		return "", r.errorf(ErrCodeMalformed, "string is not valid UTF-8")
	}
	return string(b), nil
}

// ReadPresence reads an option presence byte.
func (r *Reader) ReadPresence() (bool, error) {
	b, err := r.take(1, "option presence")
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		r.off--
		return false, r.errorf(ErrCodeMalformed, "invalid option presence byte 0x%02x", b[0])
	}
}

// ReadTag reads a field tag. The end marker is returned as id 0 with shape
// Varint.
func (r *Reader) ReadTag() (uint32, Shape, error) {
	v, err := r.ReadUvarint(32)
	if err != nil {
		return 0, 0, err
	}
	id, shape := SplitTag(uint32(v))
	if id == EndMarker {
		if shape != Varint {
			return 0, 0, r.errorf(ErrCodeMalformed, "end marker with shape %s", shape)
		}
		return EndMarker, Varint, nil
	}
	if !shape.Valid() {
		return 0, 0, r.errorf(ErrCodeMalformed, "field %d has unknown %s", id, shape)
	}
	return id, shape, nil
}

// ReadVariant reads an enum variant id.
func (r *Reader) ReadVariant() (uint32, error) {
	v, err := r.ReadUvarint(32)
	return uint32(v), err
}

// Skip consumes one value of the given shape without interpreting it.
func (r *Reader) Skip(s Shape) error {
	switch s {
	case Varint:
		_, err := r.ReadUvarint128()
		return err
	case LengthPrefixed:
		n, err := r.ReadLen()
		if err != nil {
			return err
		}
		_, err = r.take(n, "skipped value")
		return err
	case Fixed1:
		_, err := r.take(1, "skipped value")
		return err
	case Fixed4:
		_, err := r.take(4, "skipped value")
		return err
	case Fixed8:
		_, err := r.take(8, "skipped value")
		return err
	default:
		return r.errorf(ErrCodeMalformed, "cannot skip unknown %s", s)
	}
}

// ReadFramed reads a varint byte size and runs fn on a reader limited to
// that many bytes. fn must consume the frame exactly.
func (r *Reader) ReadFramed(fn func(*Reader) error) error {
	n, err := r.ReadLen()
	if err != nil {
		return err
	}
	start := r.off
	body, err := r.take(n, "framed value")
	if err != nil {
		return err
	}
	sub := &Reader{buf: body, base: r.base + start}
	if err := fn(sub); err != nil {
		return err
	}
	return sub.Finish()
}
