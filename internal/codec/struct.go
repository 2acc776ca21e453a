package codec

import (
	"fmt"
	"strconv"

	"github.com/roach88/stef/internal/value"
	"github.com/roach88/stef/wire"
)

type field struct {
	id    uint32
	name  string
	codec *Codec
	// optional is set for fields declared as option<T>. An option reached
	// through an alias or a type argument is still required.
	optional bool
}

// body is the compiled field list of a struct or enum variant.
type body struct {
	typ    string
	unit   bool
	named  bool
	fields []field
	byID   map[uint32]int
}

func newBody(typ string, unit, named bool, fields []field) *body {
	b := &body{typ: typ, unit: unit, named: named, fields: fields, byID: make(map[uint32]int, len(fields))}
	for i, f := range fields {
		b.byID[f.id] = i
	}
	return b
}

// encode writes each declared field in order, then the end marker. Absent
// option fields are written as none.
func (b *body) encode(w *wire.Writer, owner value.Value, values map[uint32]value.Value) error {
	if b.unit {
		if len(values) > 0 {
			return mismatchf(b.typ, owner, "unit body has fields")
		}
		return nil
	}
	for id := range values {
		if _, ok := b.byID[id]; !ok {
			return mismatchf(b.typ, owner, "undeclared field id %d", id)
		}
	}
	for _, f := range b.fields {
		v, ok := values[f.id]
		if !ok {
			if !f.optional {
				return mismatchf(b.typ, owner, "required field %s missing", f.label())
			}
			v = value.None
		}
		if err := f.codec.EncodeField(w, f.id, v); err != nil {
			return err
		}
	}
	w.WriteEnd()
	return nil
}

// decode reads tagged fields until the end marker. Unknown ids are skipped
// by shape; every non-option field must have been seen.
func (b *body) decode(r *wire.Reader) (map[uint32]value.Value, error) {
	values := make(map[uint32]value.Value, len(b.fields))
	if b.unit {
		return values, nil
	}
	for {
		id, shape, err := r.ReadTag()
		if err != nil {
			return nil, err
		}
		if id == wire.EndMarker {
			break
		}
		i, known := b.byID[id]
		if !known {
			if err := r.Skip(shape); err != nil {
				return nil, err
			}
			continue
		}
		f := b.fields[i]
		v, err := f.codec.DecodeField(r, id, shape)
		if err != nil {
			return nil, wire.WithField(err, f.id, f.name)
		}
		values[id] = v
	}
	for _, f := range b.fields {
		if _, ok := values[f.id]; ok {
			continue
		}
		if !f.optional {
			return nil, wire.MissingField(f.id, f.name)
		}
		values[f.id] = value.None
	}
	return values, nil
}

func (f field) label() string {
	if f.name != "" {
		return strconv.Quote(f.name)
	}
	return strconv.FormatUint(uint64(f.id), 10)
}

// toNative renders named bodies as objects and positional bodies as arrays.
func (b *body) toNative(values map[uint32]value.Value) (any, error) {
	if b.unit {
		return map[string]any{}, nil
	}
	if b.named {
		out := make(map[string]any, len(b.fields))
		for _, f := range b.fields {
			v, ok := values[f.id]
			if !ok {
				v = value.None
			}
			x, err := f.codec.ToNative(v)
			if err != nil {
				return nil, err
			}
			out[f.name] = x
		}
		return out, nil
	}
	out := make([]any, len(b.fields))
	for i, f := range b.fields {
		v, ok := values[f.id]
		if !ok {
			v = value.None
		}
		x, err := f.codec.ToNative(v)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (b *body) fromNative(x any) (map[uint32]value.Value, error) {
	values := make(map[uint32]value.Value, len(b.fields))
	if b.unit {
		if obj, ok := x.(map[string]any); x != nil && (!ok || len(obj) > 0) {
			return nil, fmt.Errorf("codec: %s: expected an empty object", b.typ)
		}
		return values, nil
	}
	if b.named {
		obj, ok := x.(map[string]any)
		if !ok {
			return nil, nativeError(b.typ, x)
		}
		byName := make(map[string]field, len(b.fields))
		for _, f := range b.fields {
			byName[f.name] = f
		}
		for name := range obj {
			if _, ok := byName[name]; !ok {
				return nil, fmt.Errorf("codec: %s: unknown field %q", b.typ, name)
			}
		}
		for _, f := range b.fields {
			raw, ok := obj[f.name]
			if !ok && !f.optional {
				return nil, fmt.Errorf("codec: %s: missing field %q", b.typ, f.name)
			}
			v, err := f.codec.FromNative(raw)
			if err != nil {
				return nil, err
			}
			values[f.id] = v
		}
		return values, nil
	}
	items, ok := x.([]any)
	if !ok || len(items) != len(b.fields) {
		return nil, nativeError(b.typ, x)
	}
	for i, f := range b.fields {
		v, err := f.codec.FromNative(items[i])
		if err != nil {
			return nil, err
		}
		values[f.id] = v
	}
	return values, nil
}

// fillStruct installs the struct routines into a codec that may already be
// referenced by recursive types.
func fillStruct(c *Codec, b *body) {
	c.encode = func(w *wire.Writer, v value.Value) error {
		s, ok := v.(value.Struct)
		if !ok {
			return mismatch(c.typ, v)
		}
		return b.encode(w, v, s.Fields)
	}
	c.decode = func(r *wire.Reader) (value.Value, error) {
		fields, err := b.decode(r)
		if err != nil {
			return nil, err
		}
		return value.Struct{Fields: fields}, nil
	}
	c.toNative = func(v value.Value) (any, error) {
		s, ok := v.(value.Struct)
		if !ok {
			return nil, mismatch(c.typ, v)
		}
		return b.toNative(s.Fields)
	}
	c.fromNative = func(x any) (value.Value, error) {
		fields, err := b.fromNative(x)
		if err != nil {
			return nil, err
		}
		return value.Struct{Fields: fields}, nil
	}
}

type variant struct {
	id   uint32
	name string
	body *body
}

// fillEnum installs the enum routines: variant id, then the variant body.
func fillEnum(c *Codec, variants []variant) {
	byID := make(map[uint32]variant, len(variants))
	byName := make(map[string]variant, len(variants))
	for _, v := range variants {
		byID[v.id] = v
		byName[v.name] = v
	}

	c.encode = func(w *wire.Writer, v value.Value) error {
		e, ok := v.(value.Enum)
		if !ok {
			return mismatch(c.typ, v)
		}
		arm, ok := byID[e.Variant]
		if !ok {
			return mismatchf(c.typ, v, "undeclared variant %d", e.Variant)
		}
		w.WriteVariant(arm.id)
		return arm.body.encode(w, v, e.Fields)
	}
	c.decode = func(r *wire.Reader) (value.Value, error) {
		id, err := r.ReadVariant()
		if err != nil {
			return nil, err
		}
		arm, ok := byID[id]
		if !ok {
			unknown := wire.UnknownVariant(id)
			unknown.Offset = r.Offset()
			return nil, unknown
		}
		fields, err := arm.body.decode(r)
		if err != nil {
			return nil, err
		}
		return value.Enum{Variant: id, Fields: fields}, nil
	}
	c.toNative = func(v value.Value) (any, error) {
		e, ok := v.(value.Enum)
		if !ok {
			return nil, mismatch(c.typ, v)
		}
		arm, ok := byID[e.Variant]
		if !ok {
			return nil, mismatchf(c.typ, v, "undeclared variant %d", e.Variant)
		}
		if arm.body.unit {
			return map[string]any{arm.name: nil}, nil
		}
		x, err := arm.body.toNative(e.Fields)
		if err != nil {
			return nil, err
		}
		return map[string]any{arm.name: x}, nil
	}
	c.fromNative = func(x any) (value.Value, error) {
		obj, ok := x.(map[string]any)
		if !ok || len(obj) != 1 {
			return nil, fmt.Errorf("codec: %s: expected an object with exactly one variant key", c.typ)
		}
		for name, raw := range obj {
			arm, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("codec: %s: unknown variant %q", c.typ, name)
			}
			fields, err := arm.body.fromNative(raw)
			if err != nil {
				return nil, err
			}
			return value.Enum{Variant: arm.id, Fields: fields}, nil
		}
		panic("unreachable")
	}
}
