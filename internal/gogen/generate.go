package gogen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/ir"
)

// DefaultWireImport is the import path of the runtime package that generated
// code calls into.
const DefaultWireImport = "github.com/roach88/stef/wire"

// ErrUnsupported is wrapped by errors for schemas that are valid but cannot
// be rendered as Go, such as a hash_map keyed by bytes.
var ErrUnsupported = errors.New("not representable in Go")

// Foreign is the Go rendering of a type defined outside the schema.
type Foreign struct {
	// Import is the import path that declares the type. It may be empty for
	// types in the generated package itself.
	Import string
	// Type is the Go type expression, e.g. "timex.Instant".
	Type string
	// Codec is a Go expression of type wire.Codec[Type].
	Codec string
}

// Options controls code generation.
type Options struct {
	// Package is the name in the package clause. It defaults to a name
	// derived from the schema name.
	Package string
	// WireImport overrides DefaultWireImport.
	WireImport string
	// Foreign maps qualified names of foreign types to their Go rendering.
	Foreign map[string]Foreign
}

// Generate validates schema and returns gofmt'd Go source for it.
func Generate(schema *ir.Schema, opts Options) ([]byte, error) {
	if err := compiler.Check(schema); err != nil {
		return nil, err
	}
	if opts.Package == "" {
		opts.Package = packageName(schema.Name)
	}
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("gogen: invalid package name %q", opts.Package)
	}
	if opts.WireImport == "" {
		opts.WireImport = DefaultWireImport
	}

	g := newGenerator(schema, opts)
	src, err := g.generate()
	if err != nil {
		return nil, err
	}
	out, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("format.Source: %v", err)
	}
	return out, nil
}

type importSpec struct {
	Name string
	Path string
}

type generator struct {
	opts    Options
	scope   *ir.Scope
	imports map[string]bool
	tuples  map[int]bool
	arrays  map[uint32]bool
	// keyed records, per generic definition, which parameters end up in a
	// map key and therefore need the comparable constraint.
	keyed map[string][]bool
	// declared maps each top-level Go identifier to what it renders.
	declared map[string]string
	err      error
	tmpl     *template.Template
}

func newGenerator(schema *ir.Schema, opts Options) *generator {
	g := &generator{
		opts:     opts,
		scope:    ir.NewScope(schema),
		imports:  map[string]bool{},
		tuples:   map[int]bool{},
		arrays:   map[uint32]bool{},
		keyed:    map[string][]bool{},
		declared: map[string]string{},
	}
	root := template.New("gogen").Delims("«", "»")
	for name, body := range map[string]string{
		"initial": initialBody,
		"struct":  structBody,
		"enum":    enumBody,
		"codec":   codecBody,
		"alias":   aliasBody,
		"const":   constBody,
		"tuple":   tupleBody,
		"array":   arrayBody,
	} {
		template.Must(root.New(name).Parse(body))
	}
	g.tmpl = root
	return g
}

// fail records the first error; rendering continues so that helpers can
// return plain strings.
func (g *generator) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

// declare claims top-level Go identifiers for owner. Distinct schema names
// can render alike, e.g. geo.Place and GeoPlace.
func (g *generator) declare(owner string, idents ...string) {
	for _, id := range idents {
		if prev, ok := g.declared[id]; ok {
			g.fail(fmt.Errorf("gogen: %s and %s both render as Go identifier %s: %w", prev, owner, id, ErrUnsupported))
			return
		}
		g.declared[id] = owner
	}
}

func (g *generator) usesWire() {
	g.imports[g.opts.WireImport] = true
}

func (g *generator) generate() ([]byte, error) {
	g.scanKeys()
	if g.err != nil {
		return nil, g.err
	}

	var code bytes.Buffer
	ir.Walk(g.scope.Schema(), func(module []string, def ir.Definition) {
		if g.err != nil {
			return
		}
		switch d := def.(type) {
		case *ir.Struct:
			g.execute(&code, "struct", g.structView(g.env(module, d.Name.Value, d.Generics), d))
		case *ir.Enum:
			g.execute(&code, "enum", g.enumView(g.env(module, d.Name.Value, d.Generics), d))
		case *ir.TypeAlias:
			g.execute(&code, "alias", g.aliasView(g.env(module, d.Name.Value, d.Generics), d))
		case *ir.Const:
			g.execute(&code, "const", g.constView(module, d))
		}
	})
	if g.err != nil {
		return nil, g.err
	}

	for _, n := range sortedKeys(g.tuples) {
		g.declare(fmt.Sprintf("the %d-tuple helper", n), fmt.Sprintf("Tuple%d", n), fmt.Sprintf("Tuple%dCodec", n))
		g.execute(&code, "tuple", newTupleView(n))
	}
	for _, n := range sortedKeys(g.arrays) {
		g.declare(fmt.Sprintf("the [T; %d] helper", n), fmt.Sprintf("array%dCodec", n))
		g.execute(&code, "array", struct{ N uint32 }{n})
	}

	var paths []string
	for p := range g.imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var imports []importSpec
	for _, p := range paths {
		spec := importSpec{Path: p}
		if p == g.opts.WireImport && path.Base(p) != "wire" {
			spec.Name = "wire"
		}
		imports = append(imports, spec)
	}

	var out bytes.Buffer
	g.execute(&out, "initial", struct {
		Schema  string
		Package string
		Imports []importSpec
	}{g.scope.Schema().Name, g.opts.Package, imports})
	if g.err != nil {
		return nil, g.err
	}
	out.Write(code.Bytes())
	return out.Bytes(), nil
}

func (g *generator) execute(w *bytes.Buffer, name string, data any) {
	if g.err != nil {
		return
	}
	if err := g.tmpl.ExecuteTemplate(w, name, data); err != nil {
		g.fail(fmt.Errorf("gogen: template %s: %w", name, err))
	}
}

func sortedKeys[K int | uint32](m map[K]bool) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// packageName derives a package name from a schema name such as
// "acme-orders.v1": lower case letters and digits only.
func packageName(schema string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(schema) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9' && b.Len() > 0) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || token.Lookup(b.String()).IsKeyword() {
		return "schema"
	}
	return b.String()
}
