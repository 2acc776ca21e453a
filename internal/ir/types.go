package ir

// Span is a half-open byte range [Start, End) into the schema source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsValid reports whether the span points into a source document.
func (s Span) IsValid() bool {
	return s.End > s.Start
}

// Type is a data type together with the span it was declared at.
type Type struct {
	Value DataType
	Span  Span
}

// DataType is a sealed interface over the closed set of schema types.
// Only the types in this file implement it.
type DataType interface {
	dataType() // Sealed
}

// Primitive is a scalar or string-like type without type arguments.
type Primitive uint8

// Primitive kinds. The order is stable and used in canonical output.
const (
	Bool Primitive = iota + 1
	U8
	U16
	U32
	U64
	U128
	I8
	I16
	I32
	I64
	I128
	F32
	F64
	String
	StringRef
	Bytes
	BytesRef
	BoxString
	BoxBytes
)

func (Primitive) dataType() {}

var primitiveNames = map[Primitive]string{
	Bool:      "bool",
	U8:        "u8",
	U16:       "u16",
	U32:       "u32",
	U64:       "u64",
	U128:      "u128",
	I8:        "i8",
	I16:       "i16",
	I32:       "i32",
	I64:       "i64",
	I128:      "i128",
	F32:       "f32",
	F64:       "f64",
	String:    "string",
	StringRef: "&string",
	Bytes:     "bytes",
	BytesRef:  "&bytes",
	BoxString: "box<string>",
	BoxBytes:  "box<bytes>",
}

// String returns the schema spelling of the primitive.
func (p Primitive) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return "invalid"
}

// IsInteger reports whether p is one of the fixed-width integer types.
func (p Primitive) IsInteger() bool {
	return p >= U8 && p <= I128
}

// IsSigned reports whether p is a signed integer type.
func (p Primitive) IsSigned() bool {
	return p >= I8 && p <= I128
}

// IsFloat reports whether p is f32 or f64.
func (p Primitive) IsFloat() bool {
	return p == F32 || p == F64
}

// IsStringLike reports whether p is encoded as UTF-8 text.
func (p Primitive) IsStringLike() bool {
	return p == String || p == StringRef || p == BoxString
}

// IsBytesLike reports whether p is encoded as a raw byte string.
func (p Primitive) IsBytesLike() bool {
	return p == Bytes || p == BytesRef || p == BoxBytes
}

// Bits returns the width of an integer or float primitive, 0 otherwise.
func (p Primitive) Bits() int {
	switch p {
	case Bool, U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32, F32:
		return 32
	case U64, I64, F64:
		return 64
	case U128, I128:
		return 128
	default:
		return 0
	}
}

// Vec is a growable sequence.
type Vec struct {
	Elem Type
}

// HashMap is an unordered map with unique keys.
type HashMap struct {
	Key   Type
	Value Type
}

// HashSet is an unordered set of unique elements.
type HashSet struct {
	Elem Type
}

// Option is a value that may be absent.
type Option struct {
	Elem Type
}

// NonZero excludes the zero or empty representation of Elem.
type NonZero struct {
	Elem Type
}

// Tuple is a fixed-arity product. Valid arity is MinTupleSize..MaxTupleSize.
type Tuple struct {
	Elems []Type
}

// Array is a fixed-size sequence.
type Array struct {
	Elem Type
	Size uint32
}

// External references a type by name: a definition of the same schema, an
// imported one, a foreign type supplied by the caller, or a generic parameter.
type External struct {
	Path     []string
	Name     string
	Generics []Type
}

func (Vec) dataType()      {}
func (HashMap) dataType()  {}
func (HashSet) dataType()  {}
func (Option) dataType()   {}
func (NonZero) dataType()  {}
func (Tuple) dataType()    {}
func (Array) dataType()    {}
func (External) dataType() {}

// Tuple arity bounds.
const (
	MinTupleSize = 2
	MaxTupleSize = 12
)

// IsGenericParam reports whether the reference can name a generic parameter.
func (e External) IsGenericParam() bool {
	return len(e.Path) == 0 && len(e.Generics) == 0
}

// Qualified returns the reference path joined with its name.
func (e External) Qualified() string {
	return JoinPath(append(append([]string(nil), e.Path...), e.Name))
}

// NonZeroAllowed reports whether t has a well-defined emptiness predicate and
// may therefore be wrapped in non_zero.
func NonZeroAllowed(t DataType) bool {
	switch v := t.(type) {
	case Primitive:
		return v.IsInteger() || v == String || v == StringRef || v == Bytes || v == BytesRef
	case Vec, HashMap, HashSet:
		return true
	default:
		return false
	}
}

// Unwrap strips any number of NonZero wrappers.
func Unwrap(t DataType) DataType {
	for {
		nz, ok := t.(NonZero)
		if !ok {
			return t
		}
		t = nz.Elem.Value
	}
}
