package gogen

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/roach88/stef/internal/ir"
	"github.com/roach88/stef/wire"
)

type fieldView struct {
	Doc      string
	GoName   string
	Type     string
	Codec    string
	Name     string // schema name, empty for positional fields
	ID       uint32
	Optional bool
	Seen     int // slot in the decoder's seen array
}

// structView renders a struct and the body of an enum variant.
type structView struct {
	Doc      string
	Name     string
	Marker   string // sealed interface method, variants only
	Encode   string
	Decode   string
	Codec    string // empty for variants
	TP       typeParams
	Unit     bool
	Fields   []fieldView
	Required int
}

// Zero is the composite literal of the zero value.
func (v structView) Zero() string {
	return v.Name + v.TP.Args + "{}"
}

type variantView struct {
	ID   uint32
	Body structView
}

type enumView struct {
	Doc      string
	Name     string
	Marker   string
	Encode   string
	Decode   string
	Codec    string
	TP       typeParams
	Unit     bool
	Variants []variantView
}

type aliasView struct {
	Doc    string
	Name   string
	Codec  string
	TP     typeParams
	Target string
	Value  string // codec expression of the target
}

type constView struct {
	Doc     string
	Keyword string
	Name    string
	Type    string
	Value   string
}

type tupleElem struct {
	I     int
	Param string
	Codec string
}

type tupleView struct {
	N      int
	Params string // T0, T1
	Codecs string // c0 wire.Codec[T0], c1 wire.Codec[T1]
	Elems  []tupleElem
}

func newTupleView(n int) tupleView {
	v := tupleView{N: n}
	var params, codecs []string
	for i := range n {
		el := tupleElem{I: i, Param: fmt.Sprintf("T%d", i), Codec: fmt.Sprintf("c%d", i)}
		params = append(params, el.Param)
		codecs = append(codecs, el.Codec+" wire.Codec["+el.Param+"]")
		v.Elems = append(v.Elems, el)
	}
	v.Params = strings.Join(params, ", ")
	v.Codecs = strings.Join(codecs, ", ")
	return v
}

func (g *generator) structView(e env, d *ir.Struct) structView {
	g.usesWire()
	name := goName(e.def)
	v := g.body(e, name, d.Fields)
	v.Doc = docComment(d.Comment)
	v.Encode = "Encode" + name
	v.Decode = "Decode" + name
	v.Codec = name + "Codec"
	g.declare(e.def, name, v.Encode, v.Decode, v.Codec)
	return v
}

func (g *generator) enumView(e env, d *ir.Enum) enumView {
	g.usesWire()
	name := goName(e.def)
	v := enumView{
		Doc:    docComment(d.Comment),
		Name:   name,
		Marker: "is" + name,
		Encode: "Encode" + name,
		Decode: "Decode" + name,
		Codec:  name + "Codec",
		TP:     g.typeParams(e),
	}
	g.declare(e.def, name, v.Encode, v.Decode, v.Codec)
	for _, variant := range d.Variants {
		body := g.body(e, name+exported(variant.Name.Value), variant.Fields)
		body.Doc = docComment(variant.Comment)
		body.Marker = v.Marker
		body.Encode = "encode" + body.Name
		body.Decode = "decode" + body.Name
		g.declare(e.def+"."+variant.Name.Value, body.Name, body.Encode, body.Decode)
		v.Variants = append(v.Variants, variantView{ID: variant.ID.Value, Body: body})
	}
	return v
}

func (g *generator) body(e env, name string, fields ir.Fields) structView {
	v := structView{Name: name, TP: g.typeParams(e)}
	if _, unit := fields.(ir.Unit); fields == nil || unit {
		v.Unit = true
		return v
	}
	var comments []ir.Comment
	if named, ok := fields.(ir.NamedFields); ok {
		for _, f := range named {
			comments = append(comments, f.Comment)
		}
	}
	for _, f := range ir.FieldList(fields) {
		fv := fieldView{
			Name:  f.Name,
			ID:    f.ID.Value,
			Type:  g.goType(e, f.Type),
			Codec: g.codecExpr(e, f.Type),
		}
		if f.Name == "" {
			fv.GoName = fmt.Sprintf("F%d", f.Index)
		} else {
			fv.GoName = exported(f.Name)
		}
		if f.Index < len(comments) {
			fv.Doc = docComment(comments[f.Index])
		}
		if _, fv.Optional = f.Type.Value.(ir.Option); !fv.Optional {
			fv.Seen = v.Required
			v.Required++
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}

func (g *generator) aliasView(e env, d *ir.TypeAlias) aliasView {
	g.usesWire()
	if ext, ok := d.Target.Value.(ir.External); ok {
		if _, isParam := e.param(ext); isParam {
			g.fail(fmt.Errorf("gogen: alias %s of its own type parameter: %w", e.def, ErrUnsupported))
		}
	}
	name := goName(e.def)
	g.declare(e.def, name, name+"Codec")
	return aliasView{
		Doc:    docComment(d.Comment),
		Name:   name,
		Codec:  name + "Codec",
		TP:     g.typeParams(e),
		Target: g.goType(e, d.Target),
		Value:  g.codecExpr(e, d.Target),
	}
}

func (g *generator) constView(module []string, d *ir.Const) constView {
	p, ok := d.Type.Value.(ir.Primitive)
	if !ok {
		panic(fmt.Sprintf("gogen: constant %s of non-scalar type reached the generator", d.Name.Value))
	}
	qualified := ir.JoinPath(append(append([]string(nil), module...), d.Name.Value))
	v := constView{
		Doc:     docComment(d.Comment),
		Keyword: "const",
		Name:    goName(qualified),
		Type:    primitiveTypes[p],
	}
	g.declare(qualified, v.Name)
	switch lit := d.Value.(type) {
	case ir.BoolLiteral:
		v.Value = strconv.FormatBool(bool(lit))
	case ir.IntLiteral:
		switch p {
		case ir.U128, ir.I128:
			g.usesWire()
			v.Keyword, v.Type = "var", ""
			v.Value = int128Literal(p, lit.Value)
		default:
			v.Value = lit.Value.String()
		}
	case ir.FloatLiteral:
		v.Value = strconv.FormatFloat(float64(lit), 'g', -1, 64)
	case ir.StringLiteral:
		v.Value = strconv.Quote(string(lit))
	case ir.BytesLiteral:
		v.Keyword, v.Type = "var", ""
		v.Value = bytesLiteral(lit)
	default:
		panic(fmt.Sprintf("gogen: constant %s has no literal", d.Name.Value))
	}
	return v
}

func int128Literal(p ir.Primitive, n *big.Int) string {
	if p == ir.U128 {
		u, err := wire.Uint128FromBig(n)
		if err != nil {
			panic(fmt.Sprintf("gogen: u128 constant %s: %v", n, err))
		}
		return fmt.Sprintf("wire.Uint128{Hi: %#x, Lo: %#x}", u.Hi, u.Lo)
	}
	i, err := wire.Int128FromBig(n)
	if err != nil {
		panic(fmt.Sprintf("gogen: i128 constant %s: %v", n, err))
	}
	return fmt.Sprintf("wire.Int128{Hi: %#x, Lo: %#x}", i.Hi, i.Lo)
}

func bytesLiteral(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%#02x", c)
	}
	return "[]byte{" + strings.Join(parts, ", ") + "}"
}
