package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// String renders the type in schema syntax.
func (t Type) String() string {
	return TypeString(t.Value)
}

// TypeString renders a data type in schema syntax.
func TypeString(t DataType) string {
	var b strings.Builder
	writeType(&b, t)
	return b.String()
}

func writeType(b *strings.Builder, t DataType) {
	switch v := t.(type) {
	case Primitive:
		b.WriteString(v.String())
	case Vec:
		writeGeneric(b, "vec", v.Elem)
	case HashMap:
		writeGeneric(b, "hash_map", v.Key, v.Value)
	case HashSet:
		writeGeneric(b, "hash_set", v.Elem)
	case Option:
		writeGeneric(b, "option", v.Elem)
	case NonZero:
		writeGeneric(b, "non_zero", v.Elem)
	case Tuple:
		b.WriteByte('(')
		writeList(b, v.Elems)
		b.WriteByte(')')
	case Array:
		b.WriteByte('[')
		writeType(b, v.Elem.Value)
		b.WriteString("; ")
		b.WriteString(strconv.FormatUint(uint64(v.Size), 10))
		b.WriteByte(']')
	case External:
		b.WriteString(v.Qualified())
		if len(v.Generics) > 0 {
			b.WriteByte('<')
			writeList(b, v.Generics)
			b.WriteByte('>')
		}
	default:
		fmt.Fprintf(b, "<%T>", t)
	}
}

func writeGeneric(b *strings.Builder, name string, args ...Type) {
	b.WriteString(name)
	b.WriteByte('<')
	writeList(b, args)
	b.WriteByte('>')
}

func writeList(b *strings.Builder, types []Type) {
	for i, t := range types {
		if i > 0 {
			b.WriteString(", ")
		}
		writeType(b, t.Value)
	}
}

// TypeError is a type-expression syntax error.
type TypeError struct {
	Message string
	Span    Span
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type expression at %d: %s", e.Span.Start, e.Message)
}

// ParseType parses a type expression. Spans are relative to src.
func ParseType(src string) (Type, error) {
	return ParseTypeAt(src, 0)
}

// ParseTypeAt parses a type expression whose first byte sits at offset base
// of the enclosing document.
//
// Grammar:
//
//	type     = prim | "&string" | "&bytes" | "box<string>" | "box<bytes>"
//	         | ("vec" | "hash_set" | "option" | "non_zero") "<" type ">"
//	         | "hash_map" "<" type "," type ">"
//	         | "(" [type {"," type}] ")"
//	         | "[" type ";" int "]"
//	         | path ["<" type {"," type} ">"]
//	path     = ident {("." | "::") ident}
func ParseTypeAt(src string, base int) (Type, error) {
	p := &typeParser{src: src, base: base}
	t, err := p.parseType()
	if err != nil {
		return Type{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Type{}, p.errorf("unexpected %q after type", p.src[p.pos:])
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error.
// Use only in tests or with constant inputs.
func MustParseType(src string) Type {
	t, err := ParseType(src)
	if err != nil {
		panic(err)
	}
	return t
}

var primitivesByName = func() map[string]Primitive {
	m := make(map[string]Primitive, len(primitiveNames))
	for p, name := range primitiveNames {
		m[name] = p
	}
	return m
}()

type typeParser struct {
	src  string
	pos  int
	base int
}

func (p *typeParser) errorf(format string, args ...any) error {
	end := p.pos + 1
	if end > len(p.src) {
		end = len(p.src)
	}
	return &TypeError{
		Message: fmt.Sprintf(format, args...),
		Span:    Span{Start: p.base + p.pos, End: p.base + end},
	}
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, found end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

func (p *typeParser) span(start int) Span {
	return Span{Start: p.base + start, End: p.base + p.pos}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *typeParser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	if p.pos >= len(p.src) || !isIdentStart(p.src[p.pos]) {
		return "", p.errorf("expected identifier")
	}
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) parseType() (Type, error) {
	p.skipSpace()
	start := p.pos
	switch p.peek() {
	case '&':
		p.pos++
		name, err := p.ident()
		if err != nil {
			return Type{}, err
		}
		switch name {
		case "string":
			return Type{Value: StringRef, Span: p.span(start)}, nil
		case "bytes":
			return Type{Value: BytesRef, Span: p.span(start)}, nil
		}
		return Type{}, p.errorf("only &string and &bytes are supported, found &%s", name)
	case '(':
		p.pos++
		var elems []Type
		if p.peek() != ')' {
			var err error
			elems, err = p.parseList()
			if err != nil {
				return Type{}, err
			}
		}
		if err := p.expect(')'); err != nil {
			return Type{}, err
		}
		return Type{Value: Tuple{Elems: elems}, Span: p.span(start)}, nil
	case '[':
		p.pos++
		elem, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(';'); err != nil {
			return Type{}, err
		}
		p.skipSpace()
		numStart := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		size, err := strconv.ParseUint(p.src[numStart:p.pos], 10, 32)
		if err != nil {
			p.pos = numStart
			return Type{}, p.errorf("invalid array size")
		}
		if err := p.expect(']'); err != nil {
			return Type{}, err
		}
		return Type{Value: Array{Elem: elem, Size: uint32(size)}, Span: p.span(start)}, nil
	}

	segments, err := p.path()
	if err != nil {
		return Type{}, err
	}
	var args []Type
	if p.peek() == '<' {
		p.pos++
		args, err = p.parseList()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect('>'); err != nil {
			return Type{}, err
		}
	}
	return p.build(segments, args, start)
}

func (p *typeParser) path() ([]string, error) {
	first, err := p.ident()
	if err != nil {
		return nil, err
	}
	segments := []string{first}
	for {
		p.skipSpace()
		switch {
		case strings.HasPrefix(p.src[p.pos:], "::"):
			p.pos += 2
		case strings.HasPrefix(p.src[p.pos:], "."):
			p.pos++
		default:
			return segments, nil
		}
		next, err := p.ident()
		if err != nil {
			return nil, err
		}
		segments = append(segments, next)
	}
}

func (p *typeParser) parseList() ([]Type, error) {
	var out []Type
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.peek() != ',' {
			return out, nil
		}
		p.pos++
	}
}

func (p *typeParser) build(segments []string, args []Type, start int) (Type, error) {
	span := p.span(start)
	if len(segments) == 1 {
		name := segments[0]
		if prim, ok := primitivesByName[name]; ok && len(args) == 0 {
			return Type{Value: prim, Span: span}, nil
		}
		arity := func(n int) error {
			if len(args) != n {
				return &TypeError{
					Message: fmt.Sprintf("%s takes %d type argument(s), found %d", name, n, len(args)),
					Span:    span,
				}
			}
			return nil
		}
		switch name {
		case "vec", "hash_set", "option", "non_zero":
			if err := arity(1); err != nil {
				return Type{}, err
			}
			var v DataType
			switch name {
			case "vec":
				v = Vec{Elem: args[0]}
			case "hash_set":
				v = HashSet{Elem: args[0]}
			case "option":
				v = Option{Elem: args[0]}
			default:
				v = NonZero{Elem: args[0]}
			}
			return Type{Value: v, Span: span}, nil
		case "hash_map":
			if err := arity(2); err != nil {
				return Type{}, err
			}
			return Type{Value: HashMap{Key: args[0], Value: args[1]}, Span: span}, nil
		case "box":
			if err := arity(1); err != nil {
				return Type{}, err
			}
			switch args[0].Value {
			case String:
				return Type{Value: BoxString, Span: span}, nil
			case Bytes:
				return Type{Value: BoxBytes, Span: span}, nil
			}
			return Type{}, &TypeError{Message: "only box<string> and box<bytes> are supported", Span: span}
		}
	}
	var path []string
	if len(segments) > 1 {
		path = segments[:len(segments)-1]
	}
	return Type{
		Value: External{
			Path:     path,
			Name:     segments[len(segments)-1],
			Generics: args,
		},
		Span: span,
	}, nil
}
