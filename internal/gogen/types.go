package gogen

import (
	"fmt"
	"go/token"
	"go/types"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/stef/internal/ir"
)

var primitiveTypes = map[ir.Primitive]string{
	ir.Bool:      "bool",
	ir.U8:        "uint8",
	ir.U16:       "uint16",
	ir.U32:       "uint32",
	ir.U64:       "uint64",
	ir.U128:      "wire.Uint128",
	ir.I8:        "int8",
	ir.I16:       "int16",
	ir.I32:       "int32",
	ir.I64:       "int64",
	ir.I128:      "wire.Int128",
	ir.F32:       "float32",
	ir.F64:       "float64",
	ir.String:    "string",
	ir.StringRef: "string",
	ir.BoxString: "string",
	ir.Bytes:     "[]byte",
	ir.BytesRef:  "[]byte",
	ir.BoxBytes:  "[]byte",
}

var primitiveCodecs = map[ir.Primitive]string{
	ir.Bool:      "wire.Bool",
	ir.U8:        "wire.U8",
	ir.U16:       "wire.U16",
	ir.U32:       "wire.U32",
	ir.U64:       "wire.U64",
	ir.U128:      "wire.U128",
	ir.I8:        "wire.I8",
	ir.I16:       "wire.I16",
	ir.I32:       "wire.I32",
	ir.I64:       "wire.I64",
	ir.I128:      "wire.I128",
	ir.F32:       "wire.F32",
	ir.F64:       "wire.F64",
	ir.String:    "wire.String",
	ir.StringRef: "wire.String",
	ir.BoxString: "wire.String",
	ir.Bytes:     "wire.Bytes",
	ir.BytesRef:  "wire.Bytes",
	ir.BoxBytes:  "wire.Bytes",
}

// Identifiers used by generated function bodies; type parameters must not
// shadow them.
var reserved = map[string]bool{
	"w": true, "r": true, "v": true, "x": true, "id": true, "err": true,
	"seen": true, "shape": true, "unknown": true, "elem": true, "wire": true,
}

// env is the lexical context of one definition.
type env struct {
	module []string
	def    string         // qualified name of the definition
	params map[string]int // generic parameter -> index
	names  []string       // Go type parameter names
	// keyOnly disables recording of comparable parameters while the body
	// of another definition is checked for use as a map key.
	keyOnly bool
}

func (g *generator) env(module []string, name string, generics ir.Generics) env {
	e := env{
		module: module,
		def:    ir.JoinPath(append(append([]string(nil), module...), name)),
		params: map[string]int{},
	}
	for i, n := range generics.Names() {
		e.params[n] = i
		e.names = append(e.names, typeParamName(n))
	}
	return e
}

func (e env) param(ext ir.External) (int, bool) {
	if len(ext.Path) > 0 || len(ext.Generics) > 0 {
		return 0, false
	}
	i, ok := e.params[ext.Name]
	return i, ok
}

type typeParams struct {
	Params       string // [T any, K comparable]
	Args         string // [T, K]
	Codecs       string // codecT wire.Codec[T], codecK wire.Codec[K]
	Trailing     string // Codecs with a leading comma
	TrailingArgs string // , codecT, codecK
}

func (g *generator) typeParams(e env) typeParams {
	if len(e.names) == 0 {
		return typeParams{}
	}
	keyed := g.keyed[e.def]
	var params, codecs, codecArgs []string
	for i, n := range e.names {
		constraint := "any"
		if i < len(keyed) && keyed[i] {
			constraint = "comparable"
		}
		params = append(params, n+" "+constraint)
		codecs = append(codecs, codecParam(n)+" wire.Codec["+n+"]")
		codecArgs = append(codecArgs, codecParam(n))
	}
	return typeParams{
		Params:       "[" + strings.Join(params, ", ") + "]",
		Args:         "[" + strings.Join(e.names, ", ") + "]",
		Codecs:       strings.Join(codecs, ", "),
		Trailing:     ", " + strings.Join(codecs, ", "),
		TrailingArgs: ", " + strings.Join(codecArgs, ", "),
	}
}

// ref is the Go rendering of an external reference.
type ref struct {
	typ   string
	codec string
}

func (g *generator) external(e env, ext ir.External) ref {
	if i, ok := e.param(ext); ok {
		return ref{typ: e.names[i], codec: codecParam(e.names[i])}
	}
	res := g.scope.Resolve(e.module, ext)
	if res.Def == nil {
		f, ok := g.opts.Foreign[res.Qualified]
		switch {
		case !ok:
			g.fail(fmt.Errorf("gogen: unresolved type %s", res.Qualified))
		case len(ext.Generics) > 0:
			g.fail(fmt.Errorf("gogen: foreign type %s with type arguments: %w", res.Qualified, ErrUnsupported))
		case f.Import != "":
			g.imports[f.Import] = true
		}
		return ref{typ: f.Type, codec: f.Codec}
	}

	generics, ok := typeGenerics(res.Def)
	if !ok {
		g.fail(fmt.Errorf("gogen: %s is not a type", res.Qualified))
		return ref{}
	}
	if len(generics) != len(ext.Generics) {
		g.fail(fmt.Errorf("gogen: %s takes %d type arguments, got %d", res.Qualified, len(generics), len(ext.Generics)))
		return ref{}
	}
	name := goName(res.Qualified)
	if len(ext.Generics) == 0 {
		return ref{typ: name, codec: name + "Codec()"}
	}
	args := make([]string, len(ext.Generics))
	codecs := make([]string, len(ext.Generics))
	for i, a := range ext.Generics {
		args[i] = g.goType(e, a)
		codecs[i] = g.codecExpr(e, a)
	}
	return ref{
		typ:   name + "[" + strings.Join(args, ", ") + "]",
		codec: name + "Codec(" + strings.Join(codecs, ", ") + ")",
	}
}

func typeGenerics(def ir.Definition) (ir.Generics, bool) {
	switch d := def.(type) {
	case *ir.Struct:
		return d.Generics, true
	case *ir.Enum:
		return d.Generics, true
	case *ir.TypeAlias:
		return d.Generics, true
	default:
		return nil, false
	}
}

func (g *generator) goType(e env, t ir.Type) string {
	switch v := t.Value.(type) {
	case ir.Primitive:
		return primitiveTypes[v]
	case ir.Vec:
		return "[]" + g.goType(e, v.Elem)
	case ir.HashMap:
		return "map[" + g.goType(e, v.Key) + "]" + g.goType(e, v.Value)
	case ir.HashSet:
		return "map[" + g.goType(e, v.Elem) + "]struct{}"
	case ir.Option:
		return "*" + g.goType(e, v.Elem)
	case ir.NonZero:
		return "wire.NonZero[" + g.goType(e, v.Elem) + "]"
	case ir.Tuple:
		g.tuples[len(v.Elems)] = true
		elems := make([]string, len(v.Elems))
		for i, el := range v.Elems {
			elems[i] = g.goType(e, el)
		}
		return fmt.Sprintf("Tuple%d[%s]", len(v.Elems), strings.Join(elems, ", "))
	case ir.Array:
		return fmt.Sprintf("[%d]%s", v.Size, g.goType(e, v.Elem))
	case ir.External:
		return g.external(e, v).typ
	}
	panic(fmt.Sprintf("gogen: unexpected type %T", t.Value))
}

func (g *generator) codecExpr(e env, t ir.Type) string {
	switch v := t.Value.(type) {
	case ir.Primitive:
		return primitiveCodecs[v]
	case ir.Vec:
		return "wire.Vec(" + g.codecExpr(e, v.Elem) + ")"
	case ir.HashMap:
		return "wire.HashMap(" + g.codecExpr(e, v.Key) + ", " + g.codecExpr(e, v.Value) + ")"
	case ir.HashSet:
		return "wire.HashSet(" + g.codecExpr(e, v.Elem) + ")"
	case ir.Option:
		return "wire.Option(" + g.codecExpr(e, v.Elem) + ")"
	case ir.NonZero:
		return "wire.NonZeroOf(" + g.codecExpr(e, v.Elem) + ", " + g.isZero(e, v.Elem) + ")"
	case ir.Tuple:
		g.tuples[len(v.Elems)] = true
		elems := make([]string, len(v.Elems))
		for i, el := range v.Elems {
			elems[i] = g.codecExpr(e, el)
		}
		return fmt.Sprintf("Tuple%dCodec(%s)", len(v.Elems), strings.Join(elems, ", "))
	case ir.Array:
		g.arrays[v.Size] = true
		return fmt.Sprintf("array%dCodec(%s)", v.Size, g.codecExpr(e, v.Elem))
	case ir.External:
		return g.external(e, v).codec
	}
	panic(fmt.Sprintf("gogen: unexpected type %T", t.Value))
}

// isZero renders the emptiness predicate passed to wire.NonZeroOf.
func (g *generator) isZero(e env, t ir.Type) string {
	switch v := t.Value.(type) {
	case ir.Primitive:
		switch {
		case v == ir.U128:
			return "wire.Uint128.IsZero"
		case v == ir.I128:
			return "wire.Int128.IsZero"
		case v.IsBytesLike():
			return "wire.IsEmptySlice[byte]"
		case v.IsInteger() || v.IsStringLike():
			return "wire.IsZero[" + primitiveTypes[v] + "]"
		}
	case ir.Vec:
		return "wire.IsEmptySlice[" + g.goType(e, v.Elem) + "]"
	case ir.HashMap:
		return "wire.IsEmptyMap[" + g.goType(e, v.Key) + ", " + g.goType(e, v.Value) + "]"
	case ir.HashSet:
		return "wire.IsEmptyMap[" + g.goType(e, v.Elem) + ", struct{}]"
	}
	panic(fmt.Sprintf("gogen: non_zero over %s reached the generator", ir.TypeString(t.Value)))
}

// goName turns a qualified schema name into an exported Go identifier:
// "geo.place_kind" becomes "GeoPlaceKind".
func goName(qualified string) string {
	var b strings.Builder
	for _, seg := range ir.SplitPath(qualified) {
		b.WriteString(exported(seg))
	}
	return b.String()
}

// exported converts a snake_case or camelCase name to an exported
// identifier.
func exported(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	s := b.String()
	if r, _ := utf8.DecodeRuneInString(s); !unicode.IsLetter(r) {
		return "X" + s
	}
	return s
}

func typeParamName(name string) string {
	if !token.IsIdentifier(name) || types.Universe.Lookup(name) != nil || reserved[name] {
		return name + "_"
	}
	return name
}

func codecParam(typeParam string) string {
	return "codec" + exported(typeParam)
}

func docComment(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			b.WriteString("//\n")
			continue
		}
		b.WriteString("// " + l + "\n")
	}
	return b.String()
}
