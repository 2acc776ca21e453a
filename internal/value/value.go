// Package value is the dynamic value model decoded and encoded by the
// in-memory codec. Values mirror schema types one to one; no implicit
// conversion happens between them.
package value

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/stef/wire"
)

// Value is a sealed interface over dynamic values.
type Value interface {
	value() // Sealed
}

type (
	Bool   bool
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	U128   wire.Uint128
	I8     int8
	I16    int16
	I32    int32
	I64    int64
	I128   wire.Int128
	F32    float32
	F64    float64
	String string
	Bytes  []byte
)

// List is the value of vec and array types.
type List []Value

// Set is the value of hash_set types. Elements are unique by Key.
type Set []Value

// Map is the value of hash_map types. Keys are unique by Key.
type Map []Entry

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   Value
	Value Value
}

// Option is the value of option types. A nil Some means none.
type Option struct {
	Some Value
}

// Tuple is the value of tuple types.
type Tuple []Value

// Struct is the value of a struct type or an enum variant body, keyed by
// field id. Absent option fields may be missing from the map.
type Struct struct {
	Fields map[uint32]Value
}

// Enum is the value of an enum type.
type Enum struct {
	Variant uint32
	Fields  map[uint32]Value
}

func (Bool) value()   {}
func (U8) value()     {}
func (U16) value()    {}
func (U32) value()    {}
func (U64) value()    {}
func (U128) value()   {}
func (I8) value()     {}
func (I16) value()    {}
func (I32) value()    {}
func (I64) value()    {}
func (I128) value()   {}
func (F32) value()    {}
func (F64) value()    {}
func (String) value() {}
func (Bytes) value()  {}
func (List) value()   {}
func (Set) value()    {}
func (Map) value()    {}
func (Option) value() {}
func (Tuple) value()  {}
func (Struct) value() {}
func (Enum) value()   {}

// None is the absent option.
var None = Option{}

// Some wraps v in a present option.
func Some(v Value) Option { return Option{Some: v} }

// NewStruct builds a struct value; a nil map yields an empty body.
func NewStruct(fields map[uint32]Value) Struct {
	if fields == nil {
		fields = map[uint32]Value{}
	}
	return Struct{Fields: fields}
}

// IsEmpty reports whether v is the zero or empty value of its type, as used
// by non_zero. ok is false for values without an emptiness predicate.
func IsEmpty(v Value) (empty bool, ok bool) {
	switch x := v.(type) {
	case U8:
		return x == 0, true
	case U16:
		return x == 0, true
	case U32:
		return x == 0, true
	case U64:
		return x == 0, true
	case U128:
		return wire.Uint128(x).IsZero(), true
	case I8:
		return x == 0, true
	case I16:
		return x == 0, true
	case I32:
		return x == 0, true
	case I64:
		return x == 0, true
	case I128:
		return wire.Int128(x).IsZero(), true
	case String:
		return x == "", true
	case Bytes:
		return len(x) == 0, true
	case List:
		return len(x) == 0, true
	case Set:
		return len(x) == 0, true
	case Map:
		return len(x) == 0, true
	default:
		return false, false
	}
}

// Key returns a string identifying v for map-key and set-element
// uniqueness. Equal values have equal keys.
func Key(v Value) string {
	var b strings.Builder
	writeKey(&b, v)
	return b.String()
}

func writeKey(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case List:
		writeSeqKey(b, "list", x)
	case Tuple:
		writeSeqKey(b, "tuple", x)
	case Option:
		if x.Some == nil {
			b.WriteString("none")
			return
		}
		b.WriteString("some(")
		writeKey(b, x.Some)
		b.WriteByte(')')
	case Set:
		keys := make([]string, len(x))
		for i, e := range x {
			keys[i] = Key(e)
		}
		sort.Strings(keys)
		b.WriteString("set{")
		b.WriteString(strings.Join(keys, ","))
		b.WriteByte('}')
	case Map:
		keys := make([]string, len(x))
		for i, e := range x {
			keys[i] = Key(e.Key) + ":" + Key(e.Value)
		}
		sort.Strings(keys)
		b.WriteString("map{")
		b.WriteString(strings.Join(keys, ","))
		b.WriteByte('}')
	case Struct:
		b.WriteString("struct")
		writeFieldsKey(b, x.Fields)
	case Enum:
		b.WriteString("enum#")
		b.WriteString(strconv.FormatUint(uint64(x.Variant), 10))
		writeFieldsKey(b, x.Fields)
	case F32:
		b.WriteString("f32:")
		b.WriteString(strconv.FormatUint(uint64(math.Float32bits(float32(x))), 16))
	case F64:
		b.WriteString("f64:")
		b.WriteString(strconv.FormatUint(math.Float64bits(float64(x)), 16))
	default:
		// Scalars: the Go type keeps u8(1) and u16(1) apart.
		fmt.Fprintf(b, "%T:%s", v, Format(v))
	}
}

func writeSeqKey(b *strings.Builder, kind string, vs []Value) {
	b.WriteString(kind)
	b.WriteByte('[')
	for i, e := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, e)
	}
	b.WriteByte(']')
}

func writeFieldsKey(b *strings.Builder, fields map[uint32]Value) {
	ids := sortedIDs(fields)
	b.WriteByte('{')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
		b.WriteByte('=')
		writeKey(b, fields[id])
	}
	b.WriteByte('}')
}

func sortedIDs(fields map[uint32]Value) []uint32 {
	ids := make([]uint32, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Equal reports whether a and b are the same value. Sets and maps compare
// without regard to order; floats compare bitwise.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(Bytes); ok {
		bb, ok := b.(Bytes)
		return ok && bytes.Equal(ab, bb)
	}
	return Key(a) == Key(b)
}

// Format renders v for debugging and CLI output.
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case Bool:
		return strconv.FormatBool(bool(x))
	case U8, U16, U32, U64, I8, I16, I32, I64:
		return fmt.Sprintf("%d", x)
	case U128:
		return wire.Uint128(x).String()
	case I128:
		return wire.Int128(x).String()
	case F32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case F64:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case String:
		return strconv.Quote(string(x))
	case Bytes:
		return fmt.Sprintf("0x%x", []byte(x))
	case List:
		return "[" + formatList(x) + "]"
	case Set:
		return "{" + formatList(x) + "}"
	case Tuple:
		return "(" + formatList(x) + ")"
	case Map:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Format(e.Key) + ": " + Format(e.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Option:
		if x.Some == nil {
			return "none"
		}
		return "some(" + Format(x.Some) + ")"
	case Struct:
		return formatFields(x.Fields)
	case Enum:
		return "#" + strconv.FormatUint(uint64(x.Variant), 10) + formatFields(x.Fields)
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

func formatList(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = Format(v)
	}
	return strings.Join(parts, ", ")
}

func formatFields(fields map[uint32]Value) string {
	ids := sortedIDs(fields)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10) + ": " + Format(fields[id])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
