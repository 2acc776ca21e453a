package wire

import (
	"errors"
	"fmt"
)

// ErrZero is returned when constructing a NonZero from a zero or empty value.
var ErrZero = errors.New("wire: value is zero or empty")

// NonZero holds a value that is known not to be zero or empty. The only
// way to build a non-empty NonZero is NewNonZero; encoding the zero NonZero
// panics.
type NonZero[T any] struct {
	value T
	set   bool
}

// NewNonZero wraps v, failing with ErrZero when isZero(v) holds.
func NewNonZero[T any](v T, isZero func(T) bool) (NonZero[T], error) {
	if isZero(v) {
		return NonZero[T]{}, ErrZero
	}
	return NonZero[T]{value: v, set: true}, nil
}

// MustNonZero is like NewNonZero but panics on a zero value.
// Use only in tests or with constant inputs.
func MustNonZero[T any](v T, isZero func(T) bool) NonZero[T] {
	nz, err := NewNonZero(v, isZero)
	if err != nil {
		panic(err)
	}
	return nz
}

// Get returns the wrapped value.
func (n NonZero[T]) Get() T { return n.value }

// Valid reports whether n was built by NewNonZero.
func (n NonZero[T]) Valid() bool { return n.set }

func (n NonZero[T]) String() string { return fmt.Sprint(n.value) }

// IsZero reports whether v equals the zero value of its type. It is the
// emptiness predicate of integers and strings.
func IsZero[T comparable](v T) bool {
	var zero T
	return v == zero
}

// IsEmptySlice is the emptiness predicate of bytes and vec.
func IsEmptySlice[T any](v []T) bool { return len(v) == 0 }

// IsEmptyMap is the emptiness predicate of hash_map and hash_set.
func IsEmptyMap[K comparable, V any](v map[K]V) bool { return len(v) == 0 }

// NonZeroOf returns the codec of NonZero[T]. It shares shape and framing
// with inner; decoding a value for which isZero holds fails.
func NonZeroOf[T any](inner Codec[T], isZero func(T) bool) Codec[NonZero[T]] {
	return Codec[NonZero[T]]{
		Shape:  inner.Shape,
		Framed: inner.Framed,
		Encode: func(w *Writer, v NonZero[T]) {
			if !v.set {
				panic("wire: encoding an empty non_zero value")
			}
			inner.Encode(w, v.value)
		},
		Decode: func(r *Reader) (NonZero[T], error) {
			at := r.Offset()
			v, err := inner.Decode(r)
			if err != nil {
				return NonZero[T]{}, err
			}
			if isZero(v) {
				return NonZero[T]{}, &Error{Code: ErrCodeZeroNonZero, Message: "zero or empty value for non_zero type", Offset: at}
			}
			return NonZero[T]{value: v, set: true}, nil
		},
	}
}
