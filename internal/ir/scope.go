package ir

// Scope indexes a schema's definitions by qualified name and resolves
// external references the way the schema's namespaces nest: the current
// module first, then each enclosing module, then imports.
type Scope struct {
	schema  *Schema
	defs    map[string]Definition
	imports map[string][]*Import // keyed by the qualified module name
}

// Resolution is the outcome of resolving an external reference.
type Resolution struct {
	// Qualified is the dotted name the reference resolved to. For references
	// that do not name a schema definition it is the best-effort name to look
	// up in a foreign registry.
	Qualified string
	// Module is the module path of the definition.
	Module []string
	// Def is the schema definition, or nil when the reference is foreign.
	Def Definition
}

// NewScope indexes the schema.
func NewScope(s *Schema) *Scope {
	sc := &Scope{
		schema:  s,
		defs:    make(map[string]Definition),
		imports: make(map[string][]*Import),
	}
	Walk(s, func(module []string, def Definition) {
		if imp, ok := def.(*Import); ok {
			key := JoinPath(module)
			sc.imports[key] = append(sc.imports[key], imp)
			return
		}
		q := JoinPath(append(append([]string(nil), module...), def.DefName().Value))
		if _, exists := sc.defs[q]; !exists {
			sc.defs[q] = def
		}
	})
	return sc
}

// Schema returns the indexed schema.
func (sc *Scope) Schema() *Schema {
	return sc.schema
}

// Lookup returns the definition with the given qualified name.
func (sc *Scope) Lookup(qualified string) (Definition, bool) {
	def, ok := sc.defs[qualified]
	return def, ok
}

// Qualified returns all qualified names of non-module, non-import
// definitions, in declaration order.
func (sc *Scope) Qualified() []string {
	var out []string
	Walk(sc.schema, func(module []string, def Definition) {
		switch def.(type) {
		case *Import, *Module:
			return
		}
		out = append(out, JoinPath(append(append([]string(nil), module...), def.DefName().Value)))
	})
	return out
}

// Resolve resolves ref as seen from inside module.
func (sc *Scope) Resolve(module []string, ref External) Resolution {
	target := append(append([]string(nil), ref.Path...), ref.Name)

	for depth := len(module); depth >= 0; depth-- {
		candidate := append(append([]string(nil), module[:depth]...), target...)
		if res, ok := sc.local(candidate); ok {
			return res
		}
	}

	for depth := len(module); depth >= 0; depth-- {
		for _, imp := range sc.imports[JoinPath(module[:depth])] {
			expanded, ok := expandImport(imp, target)
			if !ok {
				continue
			}
			if res, ok := sc.local(expanded); ok {
				return res
			}
			return Resolution{Qualified: JoinPath(expanded)}
		}
	}

	return Resolution{Qualified: JoinPath(target)}
}

func (sc *Scope) local(path []string) (Resolution, bool) {
	def, ok := sc.defs[JoinPath(path)]
	if !ok {
		return Resolution{}, false
	}
	if _, isModule := def.(*Module); isModule {
		return Resolution{}, false
	}
	return Resolution{
		Qualified: JoinPath(path),
		Module:    path[:len(path)-1],
		Def:       def,
	}, true
}

// expandImport rewrites target through an import. An element import
// `a.b.C` matches the bare name C; a module import `a.b` matches references
// whose first segment is b.
func expandImport(imp *Import, target []string) ([]string, bool) {
	segments := imp.Path()
	if imp.Element != nil {
		if len(target) == 1 && target[0] == imp.Element.Value {
			return append(segments, imp.Element.Value), true
		}
		return nil, false
	}
	if len(segments) == 0 || len(target) < 2 || target[0] != segments[len(segments)-1] {
		return nil, false
	}
	return append(segments, target[1:]...), true
}

// Walk visits every definition depth first, in declaration order, together
// with the path of the module that contains it.
func Walk(s *Schema, fn func(module []string, def Definition)) {
	walkDefs(nil, s.Definitions, fn)
}

func walkDefs(module []string, defs []Definition, fn func([]string, Definition)) {
	for _, def := range defs {
		fn(module, def)
		if m, ok := def.(*Module); ok {
			walkDefs(append(append([]string(nil), module...), m.Name.Value), m.Definitions, fn)
		}
	}
}

// WalkType visits t and every type nested in it, outermost first. Returning
// false from fn stops descent into that node's children.
func WalkType(t Type, fn func(Type) bool) {
	if !fn(t) {
		return
	}
	switch v := t.Value.(type) {
	case Vec:
		WalkType(v.Elem, fn)
	case HashMap:
		WalkType(v.Key, fn)
		WalkType(v.Value, fn)
	case HashSet:
		WalkType(v.Elem, fn)
	case Option:
		WalkType(v.Elem, fn)
	case NonZero:
		WalkType(v.Elem, fn)
	case Tuple:
		for _, e := range v.Elems {
			WalkType(e, fn)
		}
	case Array:
		WalkType(v.Elem, fn)
	case External:
		for _, g := range v.Generics {
			WalkType(g, fn)
		}
	}
}

// Substitute replaces generic parameter references in t according to args.
func Substitute(t Type, args map[string]Type) Type {
	if len(args) == 0 {
		return t
	}
	sub := func(e Type) Type { return Substitute(e, args) }
	switch v := t.Value.(type) {
	case Vec:
		return Type{Value: Vec{Elem: sub(v.Elem)}, Span: t.Span}
	case HashMap:
		return Type{Value: HashMap{Key: sub(v.Key), Value: sub(v.Value)}, Span: t.Span}
	case HashSet:
		return Type{Value: HashSet{Elem: sub(v.Elem)}, Span: t.Span}
	case Option:
		return Type{Value: Option{Elem: sub(v.Elem)}, Span: t.Span}
	case NonZero:
		return Type{Value: NonZero{Elem: sub(v.Elem)}, Span: t.Span}
	case Tuple:
		elems := make([]Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = sub(e)
		}
		return Type{Value: Tuple{Elems: elems}, Span: t.Span}
	case Array:
		return Type{Value: Array{Elem: sub(v.Elem), Size: v.Size}, Span: t.Span}
	case External:
		if v.IsGenericParam() {
			if repl, ok := args[v.Name]; ok {
				return repl
			}
			return t
		}
		generics := make([]Type, len(v.Generics))
		for i, g := range v.Generics {
			generics[i] = sub(g)
		}
		return Type{Value: External{Path: v.Path, Name: v.Name, Generics: generics}, Span: t.Span}
	default:
		return t
	}
}

// HeldParams reports which type parameters of a generic struct or alias are
// held by value, following them through nested generic references. through
// reports whether a walk continues below a non-external node; it is how the
// caller decides which containers count as indirection. The result is nil
// for foreign or non-generic definitions.
func (sc *Scope) HeldParams(res Resolution, through func(Type) bool) []bool {
	return sc.heldParams(res, through, map[string]bool{})
}

func (sc *Scope) heldParams(res Resolution, through func(Type) bool, visiting map[string]bool) []bool {
	var (
		generics Generics
		types    []Type
	)
	switch d := res.Def.(type) {
	case *Struct:
		generics = d.Generics
		for _, f := range FieldList(d.Fields) {
			types = append(types, f.Type)
		}
	case *TypeAlias:
		generics = d.Generics
		types = []Type{d.Target}
	}
	if len(generics) == 0 || visiting[res.Qualified] {
		return nil
	}
	visiting[res.Qualified] = true
	defer delete(visiting, res.Qualified)

	held := make([]bool, len(generics))
	var visit func(Type)
	visit = func(t Type) {
		WalkType(t, func(n Type) bool {
			ext, ok := n.Value.(External)
			if !ok {
				return through(n)
			}
			if ext.IsGenericParam() {
				if i := generics.Index(ext.Name); i >= 0 {
					held[i] = true
					return false
				}
			}
			inner := sc.heldParams(sc.Resolve(res.Module, ext), through, visiting)
			for i, h := range inner {
				if h && i < len(ext.Generics) {
					visit(ext.Generics[i])
				}
			}
			return false
		})
	}
	for _, t := range types {
		visit(t)
	}
	return held
}
