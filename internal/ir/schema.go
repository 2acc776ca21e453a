package ir

import (
	"math/big"
	"strings"
)

// Schema is the root of the IR: a named list of top-level definitions.
type Schema struct {
	Name        string
	Definitions []Definition
}

// Name is an identifier together with its declaration span.
type Name struct {
	Value string
	Span  Span
}

// ID is a field or variant identifier together with its declaration span.
type ID struct {
	Value uint32
	Span  Span
}

// Comment is a doc comment split into lines, without comment markers.
type Comment []string

// Generics is the ordered list of type parameters of a declaration.
type Generics []Name

// Names returns the parameter names in declaration order.
func (g Generics) Names() []string {
	out := make([]string, len(g))
	for i, n := range g {
		out[i] = n.Value
	}
	return out
}

// Index returns the position of the named parameter, or -1.
func (g Generics) Index(name string) int {
	for i, n := range g {
		if n.Value == name {
			return i
		}
	}
	return -1
}

// Fields is a sealed interface over the three field shapes.
type Fields interface {
	fields() // Sealed
}

// NamedFields is a list of fields with identifiers.
type NamedFields []NamedField

// UnnamedFields is a list of positional fields.
type UnnamedFields []UnnamedField

// Unit is the empty field shape.
type Unit struct{}

func (NamedFields) fields()   {}
func (UnnamedFields) fields() {}
func (Unit) fields()          {}

// NamedField is a field with an identifier.
type NamedField struct {
	Comment Comment
	Name    Name
	Type    Type
	ID      ID
}

// UnnamedField is a positional field. Its index is its position in the list.
type UnnamedField struct {
	Type Type
	ID   ID
	Span Span
}

// FieldInfo is a shape-independent view of one field.
type FieldInfo struct {
	Index int
	Name  string // empty for positional fields
	Type  Type
	ID    ID
	Span  Span
}

// FieldList flattens any field shape into FieldInfo values in declaration order.
func FieldList(f Fields) []FieldInfo {
	switch v := f.(type) {
	case NamedFields:
		out := make([]FieldInfo, len(v))
		for i, nf := range v {
			out[i] = FieldInfo{
				Index: i,
				Name:  nf.Name.Value,
				Type:  nf.Type,
				ID:    nf.ID,
				Span:  Span{Start: nf.Name.Span.Start, End: nf.ID.Span.End},
			}
		}
		return out
	case UnnamedFields:
		out := make([]FieldInfo, len(v))
		for i, uf := range v {
			out[i] = FieldInfo{Index: i, Type: uf.Type, ID: uf.ID, Span: uf.Span}
		}
		return out
	default:
		return nil
	}
}

// Definition is a sealed interface over top-level and module-level items.
type Definition interface {
	definition() // Sealed
	// DefName returns the declared name, or "" for imports.
	DefName() Name
}

// Struct is a record type.
type Struct struct {
	Comment  Comment
	Name     Name
	Generics Generics
	Fields   Fields
}

// Enum is a tagged union of variants.
type Enum struct {
	Comment  Comment
	Name     Name
	Generics Generics
	Variants []Variant
}

// Variant is one alternative of an enum.
type Variant struct {
	Comment Comment
	Name    Name
	Fields  Fields
	ID      ID
	Span    Span
}

// TypeAlias gives a name to another type.
type TypeAlias struct {
	Comment  Comment
	Name     Name
	Generics Generics
	Target   Type
}

// Const is a named literal of a scalar type.
type Const struct {
	Comment Comment
	Name    Name
	Type    Type
	Value   Literal
	Span    Span
}

// Import brings a module, or one element of a module, into scope.
type Import struct {
	Segments []Name
	Element  *Name
	Span     Span
}

// Module is a named namespace of definitions.
type Module struct {
	Comment     Comment
	Name        Name
	Definitions []Definition
}

func (*Struct) definition()    {}
func (*Enum) definition()      {}
func (*TypeAlias) definition() {}
func (*Const) definition()     {}
func (*Import) definition()    {}
func (*Module) definition()    {}

func (d *Struct) DefName() Name    { return d.Name }
func (d *Enum) DefName() Name      { return d.Name }
func (d *TypeAlias) DefName() Name { return d.Name }
func (d *Const) DefName() Name     { return d.Name }
func (d *Import) DefName() Name    { return Name{} }
func (d *Module) DefName() Name    { return d.Name }

// Path returns the import path as plain strings, without the element.
func (d *Import) Path() []string {
	out := make([]string, len(d.Segments))
	for i, s := range d.Segments {
		out[i] = s.Value
	}
	return out
}

// Literal is a sealed interface over constant values.
type Literal interface {
	literal() // Sealed
}

// BoolLiteral is a boolean constant.
type BoolLiteral bool

// IntLiteral is an integer constant in the signed 128-bit range.
type IntLiteral struct {
	Value *big.Int
}

// FloatLiteral is a float constant.
type FloatLiteral float64

// StringLiteral is a UTF-8 string constant.
type StringLiteral string

// BytesLiteral is a raw byte-string constant.
type BytesLiteral []byte

func (BoolLiteral) literal()   {}
func (IntLiteral) literal()    {}
func (FloatLiteral) literal()  {}
func (StringLiteral) literal() {}
func (BytesLiteral) literal()  {}

var (
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
)

// InRange reports whether the literal fits in a signed 128-bit integer.
func (l IntLiteral) InRange() bool {
	return l.Value != nil && l.Value.Cmp(minInt128) >= 0 && l.Value.Cmp(maxInt128) <= 0
}

// FitsPrimitive reports whether the literal fits in the integer primitive p.
func (l IntLiteral) FitsPrimitive(p Primitive) bool {
	if l.Value == nil || !p.IsInteger() {
		return false
	}
	bits := uint(p.Bits())
	if p.IsSigned() {
		lo := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), bits-1))
		hi := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits-1), big.NewInt(1))
		return l.Value.Cmp(lo) >= 0 && l.Value.Cmp(hi) <= 0
	}
	hi := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
	return l.Value.Sign() >= 0 && l.Value.Cmp(hi) <= 0
}

// PathSeparator joins module segments in qualified names.
const PathSeparator = "."

// JoinPath joins module segments and a name into a qualified name.
func JoinPath(segments []string) string {
	return strings.Join(segments, PathSeparator)
}

// SplitPath splits a qualified name. Both "." and "::" are accepted.
func SplitPath(qualified string) []string {
	qualified = strings.ReplaceAll(qualified, "::", PathSeparator)
	if qualified == "" {
		return nil
	}
	return strings.Split(qualified, PathSeparator)
}
