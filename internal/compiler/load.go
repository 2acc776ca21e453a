package compiler

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/stef/internal/ir"
)

// ParseError is a schema document that cannot be turned into IR.
type ParseError struct {
	Filename string
	Message  string
	Span     ir.Span
}

func (e *ParseError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s:%d: %s", e.Filename, e.Span.Start, e.Message)
	}
	return fmt.Sprintf("offset %d: %s", e.Span.Start, e.Message)
}

// LoadSchema reads and parses a schema file. The schema name defaults to
// the file name without extension.
func LoadSchema(path string) (*ir.Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(path, src)
}

// FindSchemaFiles walks dir and returns all .cue file paths.
func FindSchemaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ParseSchema converts a CUE schema document into IR.
//
// The document shape is:
//
//	schema: "name"                    // optional
//	definitions: [
//		{struct: "Point", comment: "...", generics: ["T"],
//		 fields: [{name: "x", id: 1, type: "i32"}]},
//		{enum: "Shape", variants: [{name: "Dot", id: 1, fields: [...]}]},
//		{alias: "Points", type: "vec<Point>"},
//		{const: "LIMIT", type: "u32", value: 10},
//		{use: "geo::deep", element: "Leaf"},
//		{module: "inner", definitions: [...]},
//	]
//
// Fields without names are positional. A struct or variant without fields,
// or with an empty list, is a unit.
func ParseSchema(filename string, src []byte) (*ir.Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(filename, err)
	}

	p := &docParser{filename: filename}
	schema := &ir.Schema{
		Name: strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
	}
	if err := p.checkKeys(v, "schema", "definitions"); err != nil {
		return nil, err
	}
	if nameVal := v.LookupPath(cue.ParsePath("schema")); nameVal.Exists() {
		name, err := p.str(nameVal)
		if err != nil {
			return nil, err
		}
		schema.Name = name
	}

	defs, err := p.definitions(v.LookupPath(cue.ParsePath("definitions")))
	if err != nil {
		return nil, err
	}
	schema.Definitions = defs
	return schema, nil
}

// cueError extracts the position of the first CUE error.
func cueError(filename string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ParseError{Filename: filename, Message: err.Error()}
	}
	first := errs[0]
	pe := &ParseError{Filename: filename, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		off := positions[0].Offset()
		pe.Span = ir.Span{Start: off, End: off + 1}
	}
	return pe
}

type docParser struct {
	filename string
}

func (p *docParser) errorf(v cue.Value, format string, args ...any) *ParseError {
	return &ParseError{Filename: p.filename, Message: fmt.Sprintf(format, args...), Span: spanOf(v)}
}

// spanOf returns the source span of a value, or the zero span.
func spanOf(v cue.Value) ir.Span {
	if node := v.Source(); node != nil {
		start, end := node.Pos(), node.End()
		if start.IsValid() && end.IsValid() {
			return ir.Span{Start: start.Offset(), End: end.Offset()}
		}
	}
	if pos := v.Pos(); pos.IsValid() {
		return ir.Span{Start: pos.Offset(), End: pos.Offset() + 1}
	}
	return ir.Span{}
}

func (p *docParser) lookup(v cue.Value, key string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(key)))
}

func (p *docParser) checkKeys(v cue.Value, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return p.errorf(v, "expected an object: %v", err)
	}
	for iter.Next() {
		label := iter.Label()
		found := false
		for _, a := range allowed {
			if a == label {
				found = true
				break
			}
		}
		if !found {
			return p.errorf(iter.Value(), "unknown key %q, expected one of %s", label, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func (p *docParser) str(v cue.Value) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", p.errorf(v, "expected a string")
	}
	return s, nil
}

func (p *docParser) name(v cue.Value) (ir.Name, error) {
	s, err := p.str(v)
	if err != nil {
		return ir.Name{}, err
	}
	if !isIdentifier(s) {
		return ir.Name{}, p.errorf(v, "invalid identifier %q", s)
	}
	return ir.Name{Value: s, Span: spanOf(v)}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func (p *docParser) list(v cue.Value, fn func(cue.Value) error) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.List()
	if err != nil {
		return p.errorf(v, "expected a list")
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (p *docParser) comment(v cue.Value) (ir.Comment, error) {
	c := p.lookup(v, "comment")
	if !c.Exists() {
		return nil, nil
	}
	s, err := p.str(c)
	if err != nil {
		return nil, err
	}
	return ir.Comment(strings.Split(strings.TrimRight(s, "\n"), "\n")), nil
}

func (p *docParser) generics(v cue.Value) (ir.Generics, error) {
	var out ir.Generics
	err := p.list(p.lookup(v, "generics"), func(g cue.Value) error {
		n, err := p.name(g)
		if err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	return out, err
}

// typ parses a type-expression string. Offsets account for the opening quote.
func (p *docParser) typ(v cue.Value) (ir.Type, error) {
	if !v.Exists() {
		return ir.Type{}, p.errorf(v, "type is required")
	}
	s, err := p.str(v)
	if err != nil {
		return ir.Type{}, err
	}
	span := spanOf(v)
	t, err := ir.ParseTypeAt(s, span.Start+1)
	if err != nil {
		if te, ok := err.(*ir.TypeError); ok {
			return ir.Type{}, &ParseError{Filename: p.filename, Message: te.Message, Span: te.Span}
		}
		return ir.Type{}, err
	}
	return t, nil
}

func (p *docParser) id(v cue.Value) (ir.ID, error) {
	if !v.Exists() {
		return ir.ID{}, p.errorf(v, "id is required")
	}
	n, err := v.Int64()
	if err != nil || n < 0 || n > int64(^uint32(0)) {
		return ir.ID{}, p.errorf(v, "id must be an integer in [0, %d]", ^uint32(0))
	}
	return ir.ID{Value: uint32(n), Span: spanOf(v)}, nil
}

func (p *docParser) definitions(v cue.Value) ([]ir.Definition, error) {
	var defs []ir.Definition
	err := p.list(v, func(d cue.Value) error {
		def, err := p.definition(d)
		if err != nil {
			return err
		}
		defs = append(defs, def)
		return nil
	})
	return defs, err
}

var definitionKinds = []string{"struct", "enum", "alias", "const", "use", "module"}

func (p *docParser) definition(v cue.Value) (ir.Definition, error) {
	var kind string
	for _, k := range definitionKinds {
		if p.lookup(v, k).Exists() {
			if kind != "" {
				return nil, p.errorf(v, "definition has both %q and %q", kind, k)
			}
			kind = k
		}
	}

	switch kind {
	case "struct":
		return p.structDef(v)
	case "enum":
		return p.enumDef(v)
	case "alias":
		return p.aliasDef(v)
	case "const":
		return p.constDef(v)
	case "use":
		return p.useDef(v)
	case "module":
		return p.moduleDef(v)
	default:
		return nil, p.errorf(v, "definition must have one of %s", strings.Join(definitionKinds, ", "))
	}
}

func (p *docParser) structDef(v cue.Value) (ir.Definition, error) {
	if err := p.checkKeys(v, "struct", "comment", "generics", "fields"); err != nil {
		return nil, err
	}
	name, err := p.name(p.lookup(v, "struct"))
	if err != nil {
		return nil, err
	}
	comment, err := p.comment(v)
	if err != nil {
		return nil, err
	}
	generics, err := p.generics(v)
	if err != nil {
		return nil, err
	}
	fields, err := p.fields(p.lookup(v, "fields"))
	if err != nil {
		return nil, err
	}
	return &ir.Struct{Comment: comment, Name: name, Generics: generics, Fields: fields}, nil
}

func (p *docParser) enumDef(v cue.Value) (ir.Definition, error) {
	if err := p.checkKeys(v, "enum", "comment", "generics", "variants"); err != nil {
		return nil, err
	}
	name, err := p.name(p.lookup(v, "enum"))
	if err != nil {
		return nil, err
	}
	comment, err := p.comment(v)
	if err != nil {
		return nil, err
	}
	generics, err := p.generics(v)
	if err != nil {
		return nil, err
	}
	enum := &ir.Enum{Comment: comment, Name: name, Generics: generics}
	err = p.list(p.lookup(v, "variants"), func(vv cue.Value) error {
		if err := p.checkKeys(vv, "name", "id", "comment", "fields"); err != nil {
			return err
		}
		vname, err := p.name(p.lookup(vv, "name"))
		if err != nil {
			return err
		}
		id, err := p.id(p.lookup(vv, "id"))
		if err != nil {
			return err
		}
		vcomment, err := p.comment(vv)
		if err != nil {
			return err
		}
		fields, err := p.fields(p.lookup(vv, "fields"))
		if err != nil {
			return err
		}
		enum.Variants = append(enum.Variants, ir.Variant{
			Comment: vcomment,
			Name:    vname,
			Fields:  fields,
			ID:      id,
			Span:    spanOf(vv),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enum, nil
}

func (p *docParser) fields(v cue.Value) (ir.Fields, error) {
	var named ir.NamedFields
	var unnamed ir.UnnamedFields
	err := p.list(v, func(f cue.Value) error {
		if err := p.checkKeys(f, "name", "id", "type", "comment"); err != nil {
			return err
		}
		typ, err := p.typ(p.lookup(f, "type"))
		if err != nil {
			return err
		}
		id, err := p.id(p.lookup(f, "id"))
		if err != nil {
			return err
		}
		nameVal := p.lookup(f, "name")
		if !nameVal.Exists() {
			if len(named) > 0 {
				return p.errorf(f, "positional field mixed with named fields")
			}
			unnamed = append(unnamed, ir.UnnamedField{Type: typ, ID: id, Span: spanOf(f)})
			return nil
		}
		if len(unnamed) > 0 {
			return p.errorf(f, "named field mixed with positional fields")
		}
		name, err := p.name(nameVal)
		if err != nil {
			return err
		}
		comment, err := p.comment(f)
		if err != nil {
			return err
		}
		named = append(named, ir.NamedField{Comment: comment, Name: name, Type: typ, ID: id})
		return nil
	})
	switch {
	case err != nil:
		return nil, err
	case len(named) > 0:
		return named, nil
	case len(unnamed) > 0:
		return unnamed, nil
	default:
		return ir.Unit{}, nil
	}
}

func (p *docParser) aliasDef(v cue.Value) (ir.Definition, error) {
	if err := p.checkKeys(v, "alias", "comment", "generics", "type"); err != nil {
		return nil, err
	}
	name, err := p.name(p.lookup(v, "alias"))
	if err != nil {
		return nil, err
	}
	comment, err := p.comment(v)
	if err != nil {
		return nil, err
	}
	generics, err := p.generics(v)
	if err != nil {
		return nil, err
	}
	target, err := p.typ(p.lookup(v, "type"))
	if err != nil {
		return nil, err
	}
	return &ir.TypeAlias{Comment: comment, Name: name, Generics: generics, Target: target}, nil
}

func (p *docParser) constDef(v cue.Value) (ir.Definition, error) {
	if err := p.checkKeys(v, "const", "comment", "type", "value"); err != nil {
		return nil, err
	}
	name, err := p.name(p.lookup(v, "const"))
	if err != nil {
		return nil, err
	}
	comment, err := p.comment(v)
	if err != nil {
		return nil, err
	}
	typ, err := p.typ(p.lookup(v, "type"))
	if err != nil {
		return nil, err
	}
	lit, err := p.literal(p.lookup(v, "value"))
	if err != nil {
		return nil, err
	}
	return &ir.Const{Comment: comment, Name: name, Type: typ, Value: lit, Span: spanOf(v)}, nil
}

// literal reads a constant value. Whether it matches the declared type is
// checked by Validate.
func (p *docParser) literal(v cue.Value) (ir.Literal, error) {
	if !v.Exists() {
		return nil, p.errorf(v, "value is required")
	}
	switch v.IncompleteKind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, p.errorf(v, "invalid bool: %v", err)
		}
		return ir.BoolLiteral(b), nil
	case cue.IntKind:
		n, err := v.Int(new(big.Int))
		if err != nil {
			return nil, p.errorf(v, "invalid integer: %v", err)
		}
		return ir.IntLiteral{Value: n}, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, p.errorf(v, "invalid float: %v", err)
		}
		return ir.FloatLiteral(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, p.errorf(v, "invalid string: %v", err)
		}
		return ir.StringLiteral(s), nil
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, p.errorf(v, "invalid bytes: %v", err)
		}
		return ir.BytesLiteral(b), nil
	default:
		return nil, p.errorf(v, "unsupported constant value of kind %s", v.IncompleteKind())
	}
}

func (p *docParser) useDef(v cue.Value) (ir.Definition, error) {
	if err := p.checkKeys(v, "use", "element"); err != nil {
		return nil, err
	}
	pathVal := p.lookup(v, "use")
	path, err := p.str(pathVal)
	if err != nil {
		return nil, err
	}
	base := spanOf(pathVal).Start + 1
	imp := &ir.Import{Span: spanOf(v)}
	offset := 0
	for _, seg := range strings.Split(strings.ReplaceAll(path, "::", "."), ".") {
		if !isIdentifier(seg) {
			return nil, p.errorf(pathVal, "invalid import path %q", path)
		}
		idx := strings.Index(path[offset:], seg) + offset
		imp.Segments = append(imp.Segments, ir.Name{
			Value: seg,
			Span:  ir.Span{Start: base + idx, End: base + idx + len(seg)},
		})
		offset = idx + len(seg)
	}
	if elem := p.lookup(v, "element"); elem.Exists() {
		n, err := p.name(elem)
		if err != nil {
			return nil, err
		}
		imp.Element = &n
	}
	return imp, nil
}

func (p *docParser) moduleDef(v cue.Value) (ir.Definition, error) {
	if err := p.checkKeys(v, "module", "comment", "definitions"); err != nil {
		return nil, err
	}
	name, err := p.name(p.lookup(v, "module"))
	if err != nil {
		return nil, err
	}
	comment, err := p.comment(v)
	if err != nil {
		return nil, err
	}
	defs, err := p.definitions(p.lookup(v, "definitions"))
	if err != nil {
		return nil, err
	}
	return &ir.Module{Comment: comment, Name: name, Definitions: defs}, nil
}
