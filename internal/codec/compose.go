package codec

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/roach88/stef/internal/value"
	"github.com/roach88/stef/wire"
)

func vecCodec(typ string, elem *Codec) *Codec {
	return &Codec{
		typ:    typ,
		shape:  wire.LengthPrefixed,
		framed: true,
		encode: func(w *wire.Writer, v value.Value) error {
			list, ok := v.(value.List)
			if !ok {
				return mismatch(typ, v)
			}
			return encodeSeq(w, elem, list)
		},
		decode: func(r *wire.Reader) (value.Value, error) {
			n, err := r.ReadLen()
			if err != nil {
				return nil, err
			}
			return decodeSeq(r, elem, n)
		},
		toNative: func(v value.Value) (any, error) {
			list, ok := v.(value.List)
			if !ok {
				return nil, mismatch(typ, v)
			}
			return seqToNative(elem, list)
		},
		fromNative: func(x any) (value.Value, error) {
			items, err := seqFromNative(typ, elem, x)
			return value.List(items), err
		},
	}
}

func arrayCodec(typ string, elem *Codec, size int) *Codec {
	c := vecCodec(typ, elem)
	c.encode = func(w *wire.Writer, v value.Value) error {
		list, ok := v.(value.List)
		if !ok {
			return mismatch(typ, v)
		}
		if len(list) != size {
			return mismatchf(typ, v, "%d elements, expected %d", len(list), size)
		}
		return encodeSeq(w, elem, list)
	}
	c.decode = func(r *wire.Reader) (value.Value, error) {
		at := r.Offset()
		n, err := r.ReadLen()
		if err != nil {
			return nil, err
		}
		if n != size {
			return nil, &wire.Error{
				Code:    wire.ErrCodeMalformed,
				Message: fmt.Sprintf("array has %d elements, expected %d", n, size),
				Offset:  at,
			}
		}
		return decodeSeq(r, elem, n)
	}
	fromNative := c.fromNative
	c.fromNative = func(x any) (value.Value, error) {
		v, err := fromNative(x)
		if err != nil {
			return nil, err
		}
		if n := len(v.(value.List)); n != size {
			return nil, fmt.Errorf("codec: %s: %d elements, expected %d", typ, n, size)
		}
		return v, nil
	}
	return c
}

func encodeSeq(w *wire.Writer, elem *Codec, items []value.Value) error {
	w.WriteLen(len(items))
	for _, e := range items {
		if err := elem.Encode(w, e); err != nil {
			return err
		}
	}
	return nil
}

func decodeSeq(r *wire.Reader, elem *Codec, n int) (value.List, error) {
	out := make(value.List, 0, min(n, r.Remaining()))
	for range n {
		e, err := elem.Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func seqToNative(elem *Codec, items []value.Value) ([]any, error) {
	out := make([]any, len(items))
	for i, e := range items {
		x, err := elem.ToNative(e)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func seqFromNative(typ string, elem *Codec, x any) ([]value.Value, error) {
	items, ok := x.([]any)
	if !ok {
		return nil, nativeError(typ, x)
	}
	out := make([]value.Value, len(items))
	for i, item := range items {
		v, err := elem.FromNative(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type encodedEntry struct {
	key   []byte
	value []byte
}

// writeSorted writes entries in ascending order of their encoded keys.
// Equal keys are a caller error.
func writeSorted(w *wire.Writer, typ string, v value.Value, entries []encodedEntry) error {
	slices.SortFunc(entries, func(a, b encodedEntry) int { return bytes.Compare(a.key, b.key) })
	for i := 1; i < len(entries); i++ {
		if bytes.Equal(entries[i-1].key, entries[i].key) {
			return mismatchf(typ, v, "repeated entry")
		}
	}
	w.WriteLen(len(entries))
	for _, e := range entries {
		w.WriteRaw(e.key)
		w.WriteRaw(e.value)
	}
	return nil
}

func encodeDetached(c *Codec, v value.Value) ([]byte, error) {
	var w wire.Writer
	if err := c.Encode(&w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func duplicateEntry(what string, at int) error {
	return &wire.Error{Code: wire.ErrCodeDuplicateEntry, Message: "repeated " + what, Offset: at}
}

func setCodec(typ string, elem *Codec) *Codec {
	return &Codec{
		typ:    typ,
		shape:  wire.LengthPrefixed,
		framed: true,
		encode: func(w *wire.Writer, v value.Value) error {
			set, ok := v.(value.Set)
			if !ok {
				return mismatch(typ, v)
			}
			entries := make([]encodedEntry, len(set))
			for i, e := range set {
				b, err := encodeDetached(elem, e)
				if err != nil {
					return err
				}
				entries[i] = encodedEntry{key: b}
			}
			return writeSorted(w, typ, v, entries)
		},
		decode: func(r *wire.Reader) (value.Value, error) {
			n, err := r.ReadLen()
			if err != nil {
				return nil, err
			}
			out := make(value.Set, 0, min(n, r.Remaining()))
			seen := make(map[string]bool)
			for range n {
				at := r.Offset()
				e, err := elem.Decode(r)
				if err != nil {
					return nil, err
				}
				k := value.Key(e)
				if seen[k] {
					return nil, duplicateEntry("hash_set element", at)
				}
				seen[k] = true
				out = append(out, e)
			}
			return out, nil
		},
		toNative: func(v value.Value) (any, error) {
			set, ok := v.(value.Set)
			if !ok {
				return nil, mismatch(typ, v)
			}
			return seqToNative(elem, set)
		},
		fromNative: func(x any) (value.Value, error) {
			items, err := seqFromNative(typ, elem, x)
			return value.Set(items), err
		},
	}
}

func mapCodec(typ string, key, val *Codec) *Codec {
	return &Codec{
		typ:    typ,
		shape:  wire.LengthPrefixed,
		framed: true,
		encode: func(w *wire.Writer, v value.Value) error {
			m, ok := v.(value.Map)
			if !ok {
				return mismatch(typ, v)
			}
			entries := make([]encodedEntry, len(m))
			for i, e := range m {
				kb, err := encodeDetached(key, e.Key)
				if err != nil {
					return err
				}
				vb, err := encodeDetached(val, e.Value)
				if err != nil {
					return err
				}
				entries[i] = encodedEntry{key: kb, value: vb}
			}
			return writeSorted(w, typ, v, entries)
		},
		decode: func(r *wire.Reader) (value.Value, error) {
			n, err := r.ReadLen()
			if err != nil {
				return nil, err
			}
			out := make(value.Map, 0, min(n, r.Remaining()))
			seen := make(map[string]bool)
			for range n {
				at := r.Offset()
				k, err := key.Decode(r)
				if err != nil {
					return nil, err
				}
				ks := value.Key(k)
				if seen[ks] {
					return nil, duplicateEntry("hash_map key", at)
				}
				seen[ks] = true
				v, err := val.Decode(r)
				if err != nil {
					return nil, err
				}
				out = append(out, value.Entry{Key: k, Value: v})
			}
			return out, nil
		},
		toNative: func(v value.Value) (any, error) {
			m, ok := v.(value.Map)
			if !ok {
				return nil, mismatch(typ, v)
			}
			out := make([]any, len(m))
			for i, e := range m {
				k, err := key.ToNative(e.Key)
				if err != nil {
					return nil, err
				}
				x, err := val.ToNative(e.Value)
				if err != nil {
					return nil, err
				}
				out[i] = []any{k, x}
			}
			return out, nil
		},
		fromNative: func(x any) (value.Value, error) {
			pairs, ok := x.([]any)
			if !ok {
				return nil, nativeError(typ, x)
			}
			out := make(value.Map, len(pairs))
			for i, p := range pairs {
				pair, ok := p.([]any)
				if !ok || len(pair) != 2 {
					return nil, fmt.Errorf("codec: %s: entry %d is not a [key, value] pair", typ, i)
				}
				k, err := key.FromNative(pair[0])
				if err != nil {
					return nil, err
				}
				v, err := val.FromNative(pair[1])
				if err != nil {
					return nil, err
				}
				out[i] = value.Entry{Key: k, Value: v}
			}
			return out, nil
		},
	}
}

func optionCodec(typ string, elem *Codec) *Codec {
	return &Codec{
		typ:    typ,
		shape:  wire.LengthPrefixed,
		framed: true,
		encode: func(w *wire.Writer, v value.Value) error {
			opt, ok := v.(value.Option)
			if !ok {
				return mismatch(typ, v)
			}
			w.WritePresence(opt.Some != nil)
			if opt.Some == nil {
				return nil
			}
			return elem.Encode(w, opt.Some)
		},
		decode: func(r *wire.Reader) (value.Value, error) {
			present, err := r.ReadPresence()
			if err != nil {
				return nil, err
			}
			if !present {
				return value.None, nil
			}
			e, err := elem.Decode(r)
			if err != nil {
				return nil, err
			}
			return value.Some(e), nil
		},
		toNative: func(v value.Value) (any, error) {
			opt, ok := v.(value.Option)
			if !ok {
				return nil, mismatch(typ, v)
			}
			if opt.Some == nil {
				return nil, nil
			}
			return elem.ToNative(opt.Some)
		},
		fromNative: func(x any) (value.Value, error) {
			if x == nil {
				return value.None, nil
			}
			e, err := elem.FromNative(x)
			if err != nil {
				return nil, err
			}
			return value.Some(e), nil
		},
	}
}

// nonZeroCodec shares shape and framing with inner and rejects empty values
// in both directions.
func nonZeroCodec(typ string, inner *Codec) *Codec {
	return &Codec{
		typ:    typ,
		shape:  inner.shape,
		framed: inner.framed,
		encode: func(w *wire.Writer, v value.Value) error {
			if empty, _ := value.IsEmpty(v); empty {
				return mismatchf(typ, v, "value is zero or empty")
			}
			return inner.Encode(w, v)
		},
		decode: func(r *wire.Reader) (value.Value, error) {
			at := r.Offset()
			v, err := inner.Decode(r)
			if err != nil {
				return nil, err
			}
			if empty, _ := value.IsEmpty(v); empty {
				return nil, &wire.Error{
					Code:    wire.ErrCodeZeroNonZero,
					Message: "zero or empty value for " + typ,
					Offset:  at,
				}
			}
			return v, nil
		},
		toNative: inner.ToNative,
		fromNative: func(x any) (value.Value, error) {
			v, err := inner.FromNative(x)
			if err != nil {
				return nil, err
			}
			if empty, _ := value.IsEmpty(v); empty {
				return nil, fmt.Errorf("codec: %s: value is zero or empty", typ)
			}
			return v, nil
		},
	}
}

func tupleCodec(typ string, elems []*Codec) *Codec {
	return &Codec{
		typ:    typ,
		shape:  wire.LengthPrefixed,
		framed: true,
		encode: func(w *wire.Writer, v value.Value) error {
			tuple, ok := v.(value.Tuple)
			if !ok {
				return mismatch(typ, v)
			}
			if len(tuple) != len(elems) {
				return mismatchf(typ, v, "%d elements, expected %d", len(tuple), len(elems))
			}
			for i, e := range elems {
				if err := e.Encode(w, tuple[i]); err != nil {
					return err
				}
			}
			return nil
		},
		decode: func(r *wire.Reader) (value.Value, error) {
			out := make(value.Tuple, len(elems))
			for i, e := range elems {
				v, err := e.Decode(r)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		},
		toNative: func(v value.Value) (any, error) {
			tuple, ok := v.(value.Tuple)
			if !ok || len(tuple) != len(elems) {
				return nil, mismatch(typ, v)
			}
			out := make([]any, len(elems))
			for i, e := range elems {
				x, err := e.ToNative(tuple[i])
				if err != nil {
					return nil, err
				}
				out[i] = x
			}
			return out, nil
		},
		fromNative: func(x any) (value.Value, error) {
			items, ok := x.([]any)
			if !ok || len(items) != len(elems) {
				return nil, nativeError(typ, x)
			}
			out := make(value.Tuple, len(elems))
			for i, e := range elems {
				v, err := e.FromNative(items[i])
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		},
	}
}
