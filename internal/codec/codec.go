package codec

import (
	"errors"
	"fmt"

	"github.com/roach88/stef/internal/value"
	"github.com/roach88/stef/wire"
)

// Codec encodes and decodes values of one schema type.
type Codec struct {
	typ    string
	shape  wire.Shape
	framed bool

	encode func(w *wire.Writer, v value.Value) error
	decode func(r *wire.Reader) (value.Value, error)

	toNative   func(v value.Value) (any, error)
	fromNative func(x any) (value.Value, error)
}

// NewForeign builds a codec for a type defined outside the schema, for use
// in a Registry. framed must be set when shape is LengthPrefixed and the
// encoding does not carry its own byte length.
func NewForeign(
	typ string,
	shape wire.Shape,
	framed bool,
	encode func(*wire.Writer, value.Value) error,
	decode func(*wire.Reader) (value.Value, error),
) *Codec {
	return &Codec{
		typ:        typ,
		shape:      shape,
		framed:     framed,
		encode:     encode,
		decode:     decode,
		toNative:   func(v value.Value) (any, error) { return value.Format(v), nil },
		fromNative: func(any) (value.Value, error) { return nil, fmt.Errorf("codec: %s has no native form", typ) },
	}
}

// Type returns the fully qualified type expression the codec was built for.
func (c *Codec) Type() string { return c.typ }

// Shape returns the wire shape used in field tags.
func (c *Codec) Shape() wire.Shape { return c.shape }

// Framed reports whether a field value carries a byte-size prefix.
func (c *Codec) Framed() bool { return c.framed }

// Encode appends the encoding of v.
func (c *Codec) Encode(w *wire.Writer, v value.Value) error { return c.encode(w, v) }

// Decode reads one value.
func (c *Codec) Decode(r *wire.Reader) (value.Value, error) { return c.decode(r) }

// Marshal encodes v as a standalone value. Standalone values are never
// framed.
func (c *Codec) Marshal(v value.Value) ([]byte, error) {
	var w wire.Writer
	if err := c.encode(&w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a standalone value and requires all input to be used.
func (c *Codec) Unmarshal(data []byte) (value.Value, error) {
	r := wire.NewReader(data)
	v, err := c.decode(r)
	if err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeField writes v as the field id: tag, optional frame, value.
func (c *Codec) EncodeField(w *wire.Writer, id uint32, v value.Value) error {
	w.WriteTag(id, c.shape)
	if !c.framed {
		return c.encode(w, v)
	}
	var err error
	w.WriteFramed(func(w *wire.Writer) { err = c.encode(w, v) })
	return err
}

// DecodeField reads the value of field id whose tag announced shape.
func (c *Codec) DecodeField(r *wire.Reader, id uint32, shape wire.Shape) (value.Value, error) {
	if shape != c.shape {
		return nil, wire.ShapeMismatch(id, c.shape, shape)
	}
	if !c.framed {
		return c.decode(r)
	}
	var v value.Value
	err := r.ReadFramed(func(sub *wire.Reader) error {
		var err error
		v, err = c.decode(sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ToNative converts v into plain Go values suitable for encoding/json:
// structs become objects keyed by field name, enums single-key objects,
// integers json.Number, bytes hex strings.
func (c *Codec) ToNative(v value.Value) (any, error) { return c.toNative(v) }

// FromNative converts the output of json.Decoder (with UseNumber) back into
// a value of the codec's type.
func (c *Codec) FromNative(x any) (value.Value, error) { return c.fromNative(x) }

// MismatchError reports a value that does not fit the codec's type. It is a
// caller error, never a wire error.
type MismatchError struct {
	Type   string
	Value  value.Value
	Reason string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("codec: cannot encode %s as %s: %s", value.Format(e.Value), e.Type, e.Reason)
	}
	return fmt.Sprintf("codec: cannot encode %s as %s", value.Format(e.Value), e.Type)
}

// IsMismatch returns true if err is a *MismatchError.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

func mismatch(typ string, v value.Value) error {
	return &MismatchError{Type: typ, Value: v}
}

func mismatchf(typ string, v value.Value, format string, args ...any) error {
	return &MismatchError{Type: typ, Value: v, Reason: fmt.Sprintf(format, args...)}
}
