package wire

import (
	"bytes"
	"slices"
)

// Codec bundles the encode and decode routines of one type with its wire
// shape. Generated code builds a Codec for every schema type and passes
// codecs of type arguments to generic types.
type Codec[T any] struct {
	// Shape is the shape written into the tag of a field of this type.
	Shape Shape
	// Framed reports whether a field value of this type is preceded by its
	// byte size. It is set for LengthPrefixed shapes whose encoding does not
	// start with its own byte length.
	Framed bool
	Encode func(w *Writer, v T)
	Decode func(r *Reader) (T, error)
}

// Marshal encodes v as a standalone value.
func Marshal[T any](c Codec[T], v T) []byte {
	var w Writer
	c.Encode(&w, v)
	return w.Bytes()
}

// Unmarshal decodes a standalone value and requires all input to be used.
func Unmarshal[T any](c Codec[T], data []byte) (T, error) {
	r := NewReader(data)
	v, err := c.Decode(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := r.Finish(); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// EncodeField writes a tagged field value, framing it when required.
func EncodeField[T any](w *Writer, id uint32, c Codec[T], v T) {
	w.WriteTag(id, c.Shape)
	if c.Framed {
		w.WriteFramed(func(w *Writer) { c.Encode(w, v) })
		return
	}
	c.Encode(w, v)
}

// DecodeField reads the value of a known field whose tag has been read.
func DecodeField[T any](r *Reader, id uint32, shape Shape, c Codec[T]) (T, error) {
	var v T
	if shape != c.Shape {
		return v, ShapeMismatch(id, c.Shape, shape)
	}
	if !c.Framed {
		return c.Decode(r)
	}
	err := r.ReadFramed(func(sub *Reader) error {
		var err error
		v, err = c.Decode(sub)
		return err
	})
	return v, err
}

// Struct builds the codec of a struct or enum type from its body routines.
func Struct[T any](encode func(*Writer, T), decode func(*Reader) (T, error)) Codec[T] {
	return Codec[T]{Shape: LengthPrefixed, Framed: true, Encode: encode, Decode: decode}
}

// Unit is the codec of a struct without fields: it encodes to zero bytes.
func Unit[T any]() Codec[T] {
	return Codec[T]{
		Shape:  LengthPrefixed,
		Framed: true,
		Encode: func(*Writer, T) {},
		Decode: func(*Reader) (T, error) {
			var v T
			return v, nil
		},
	}
}

var (
	Bool = Codec[bool]{Shape: Fixed1, Encode: (*Writer).WriteBool, Decode: (*Reader).ReadBool}
	U8   = Codec[uint8]{Shape: Fixed1, Encode: (*Writer).WriteU8, Decode: (*Reader).ReadU8}
	U16  = Codec[uint16]{Shape: Varint, Encode: (*Writer).WriteU16, Decode: (*Reader).ReadU16}
	U32  = Codec[uint32]{Shape: Varint, Encode: (*Writer).WriteU32, Decode: (*Reader).ReadU32}
	U64  = Codec[uint64]{Shape: Varint, Encode: (*Writer).WriteU64, Decode: (*Reader).ReadU64}
	U128 = Codec[Uint128]{Shape: Varint, Encode: (*Writer).WriteU128, Decode: (*Reader).ReadU128}
	I8   = Codec[int8]{Shape: Fixed1, Encode: (*Writer).WriteI8, Decode: (*Reader).ReadI8}
	I16  = Codec[int16]{Shape: Varint, Encode: (*Writer).WriteI16, Decode: (*Reader).ReadI16}
	I32  = Codec[int32]{Shape: Varint, Encode: (*Writer).WriteI32, Decode: (*Reader).ReadI32}
	I64  = Codec[int64]{Shape: Varint, Encode: (*Writer).WriteI64, Decode: (*Reader).ReadI64}
	I128 = Codec[Int128]{Shape: Varint, Encode: (*Writer).WriteI128, Decode: (*Reader).ReadI128}
	F32  = Codec[float32]{Shape: Fixed4, Encode: (*Writer).WriteF32, Decode: (*Reader).ReadF32}
	F64  = Codec[float64]{Shape: Fixed8, Encode: (*Writer).WriteF64, Decode: (*Reader).ReadF64}

	String = Codec[string]{Shape: LengthPrefixed, Encode: (*Writer).WriteString, Decode: (*Reader).ReadString}
	Bytes  = Codec[[]byte]{Shape: LengthPrefixed, Encode: (*Writer).WriteBytes, Decode: (*Reader).ReadBytes}
)

// Vec returns the codec of a sequence of elem.
func Vec[T any](elem Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Shape:  LengthPrefixed,
		Framed: true,
		Encode: func(w *Writer, v []T) {
			w.WriteLen(len(v))
			for _, e := range v {
				elem.Encode(w, e)
			}
		},
		Decode: func(r *Reader) ([]T, error) {
			n, err := r.ReadLen()
			if err != nil {
				return nil, err
			}
			out := make([]T, 0, min(n, r.Remaining()))
			for range n {
				e, err := elem.Decode(r)
				if err != nil {
					return nil, err
				}
				out = append(out, e)
			}
			return out, nil
		},
	}
}

// EncodeArray writes a fixed-size sequence.
func EncodeArray[T any](w *Writer, elem Codec[T], v []T) {
	w.WriteLen(len(v))
	for _, e := range v {
		elem.Encode(w, e)
	}
}

// DecodeArray fills dst from a fixed-size sequence whose encoded count must
// equal len(dst).
func DecodeArray[T any](r *Reader, elem Codec[T], dst []T) error {
	n, err := r.ReadLen()
	if err != nil {
		return err
	}
	if n != len(dst) {
		return r.errorf(ErrCodeMalformed, "array has %d elements, expected %d", n, len(dst))
	}
	for i := range dst {
		e, err := elem.Decode(r)
		if err != nil {
			return err
		}
		dst[i] = e
	}
	return nil
}

// Option returns the codec of an optional elem, represented as a pointer.
func Option[T any](elem Codec[T]) Codec[*T] {
	return Codec[*T]{
		Shape:  LengthPrefixed,
		Framed: true,
		Encode: func(w *Writer, v *T) {
			w.WritePresence(v != nil)
			if v != nil {
				elem.Encode(w, *v)
			}
		},
		Decode: func(r *Reader) (*T, error) {
			present, err := r.ReadPresence()
			if err != nil || !present {
				return nil, err
			}
			e, err := elem.Decode(r)
			if err != nil {
				return nil, err
			}
			return &e, nil
		},
	}
}

type encodedEntry struct {
	key   []byte
	value []byte
}

// encodeSorted writes entries ordered by their encoded key bytes so that
// equal maps always encode to equal bytes.
func encodeSorted(w *Writer, entries []encodedEntry) {
	slices.SortFunc(entries, func(a, b encodedEntry) int { return bytes.Compare(a.key, b.key) })
	w.WriteLen(len(entries))
	for _, e := range entries {
		w.WriteRaw(e.key)
		w.WriteRaw(e.value)
	}
}

// HashMap returns the codec of a map. Entries are written in ascending
// order of their encoded keys; a repeated key fails decoding.
func HashMap[K comparable, V any](key Codec[K], value Codec[V]) Codec[map[K]V] {
	return Codec[map[K]V]{
		Shape:  LengthPrefixed,
		Framed: true,
		Encode: func(w *Writer, m map[K]V) {
			entries := make([]encodedEntry, 0, len(m))
			for k, v := range m {
				var kw, vw Writer
				key.Encode(&kw, k)
				value.Encode(&vw, v)
				entries = append(entries, encodedEntry{key: kw.Bytes(), value: vw.Bytes()})
			}
			encodeSorted(w, entries)
		},
		Decode: func(r *Reader) (map[K]V, error) {
			n, err := r.ReadLen()
			if err != nil {
				return nil, err
			}
			m := make(map[K]V, min(n, r.Remaining()))
			for range n {
				at := r.Offset()
				k, err := key.Decode(r)
				if err != nil {
					return nil, err
				}
				if _, dup := m[k]; dup {
					return nil, &Error{Code: ErrCodeDuplicateEntry, Message: "repeated hash_map key", Offset: at}
				}
				v, err := value.Decode(r)
				if err != nil {
					return nil, err
				}
				m[k] = v
			}
			return m, nil
		},
	}
}

// HashSet returns the codec of a set, represented as a map to struct{}.
func HashSet[T comparable](elem Codec[T]) Codec[map[T]struct{}] {
	return Codec[map[T]struct{}]{
		Shape:  LengthPrefixed,
		Framed: true,
		Encode: func(w *Writer, s map[T]struct{}) {
			entries := make([]encodedEntry, 0, len(s))
			for e := range s {
				var ew Writer
				elem.Encode(&ew, e)
				entries = append(entries, encodedEntry{key: ew.Bytes()})
			}
			encodeSorted(w, entries)
		},
		Decode: func(r *Reader) (map[T]struct{}, error) {
			n, err := r.ReadLen()
			if err != nil {
				return nil, err
			}
			s := make(map[T]struct{}, min(n, r.Remaining()))
			for range n {
				at := r.Offset()
				e, err := elem.Decode(r)
				if err != nil {
					return nil, err
				}
				if _, dup := s[e]; dup {
					return nil, &Error{Code: ErrCodeDuplicateEntry, Message: "repeated hash_set element", Offset: at}
				}
				s[e] = struct{}{}
			}
			return s, nil
		},
	}
}
