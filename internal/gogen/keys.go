package gogen

import (
	"fmt"

	"github.com/roach88/stef/internal/ir"
)

// site is a definition together with every type written in its body.
type site struct {
	env   env
	def   ir.Definition
	types []ir.Type
}

func bodyTypes(def ir.Definition) []ir.Type {
	var out []ir.Type
	switch d := def.(type) {
	case *ir.Struct:
		for _, f := range ir.FieldList(d.Fields) {
			out = append(out, f.Type)
		}
	case *ir.Enum:
		for _, v := range d.Variants {
			for _, f := range ir.FieldList(v.Fields) {
				out = append(out, f.Type)
			}
		}
	case *ir.TypeAlias:
		out = append(out, d.Target)
	}
	return out
}

func (g *generator) sites() []site {
	var out []site
	ir.Walk(g.scope.Schema(), func(module []string, def ir.Definition) {
		generics, ok := typeGenerics(def)
		if !ok {
			return
		}
		e := g.env(module, def.DefName().Value, generics)
		g.keyed[e.def] = make([]bool, len(generics))
		out = append(out, site{env: e, def: def, types: bodyTypes(def)})
	})
	return out
}

// scanKeys decides which type parameters need the comparable constraint and
// rejects schemas whose map keys have no comparable Go type. It also rejects
// polymorphic recursion, which Go cannot instantiate.
func (g *generator) scanKeys() {
	sites := g.sites()
	for changed := true; changed; {
		changed = false
		for _, s := range sites {
			for _, t := range s.types {
				if g.scanType(s.env, t, false, map[string]bool{}) {
					changed = true
				}
			}
		}
	}
	g.checkRecursion(sites)
	g.checkContainment(sites)
}

func notComparable(t ir.Type) error {
	return fmt.Errorf("gogen: %s cannot be a hash_map or hash_set key: %w", ir.TypeString(t.Value), ErrUnsupported)
}

// scanType walks t; inKey is set below a map or set key. It reports whether
// a new comparable parameter was found.
func (g *generator) scanType(e env, t ir.Type, inKey bool, visiting map[string]bool) bool {
	switch v := t.Value.(type) {
	case ir.Primitive:
		if inKey && v.IsBytesLike() {
			g.fail(notComparable(t))
		}
		return false
	case ir.Vec:
		if inKey {
			g.fail(notComparable(t))
		}
		return g.scanType(e, v.Elem, false, visiting)
	case ir.Option:
		if inKey {
			g.fail(notComparable(t))
		}
		return g.scanType(e, v.Elem, false, visiting)
	case ir.HashMap:
		if inKey {
			g.fail(notComparable(t))
		}
		k := g.scanType(e, v.Key, true, visiting)
		return g.scanType(e, v.Value, false, visiting) || k
	case ir.HashSet:
		if inKey {
			g.fail(notComparable(t))
		}
		return g.scanType(e, v.Elem, true, visiting)
	case ir.NonZero:
		return g.scanType(e, v.Elem, inKey, visiting)
	case ir.Array:
		return g.scanType(e, v.Elem, inKey, visiting)
	case ir.Tuple:
		changed := false
		for _, el := range v.Elems {
			changed = g.scanType(e, el, inKey, visiting) || changed
		}
		return changed
	case ir.External:
		return g.scanExternal(e, v, inKey, visiting)
	}
	return false
}

func (g *generator) scanExternal(e env, ext ir.External, inKey bool, visiting map[string]bool) bool {
	if i, ok := e.param(ext); ok {
		if inKey && !e.keyOnly && !g.keyed[e.def][i] {
			g.keyed[e.def][i] = true
			return true
		}
		return false
	}
	res := g.scope.Resolve(e.module, ext)
	generics, ok := typeGenerics(res.Def)
	if res.Def == nil || !ok {
		return false
	}

	changed := false
	keyed := g.keyed[res.Qualified]
	for i, a := range ext.Generics {
		need := inKey || (i < len(keyed) && keyed[i])
		changed = g.scanType(e, a, need, visiting) || changed
	}
	if inKey && !visiting[res.Qualified] {
		// The definition itself becomes part of a key: all of its body must
		// be comparable too. Its own parameters are covered by the
		// arguments checked above.
		visiting[res.Qualified] = true
		inner := g.env(res.Module, res.Def.DefName().Value, generics)
		inner.keyOnly = true
		for _, t := range bodyTypes(res.Def) {
			changed = g.scanType(inner, t, true, visiting) || changed
		}
	}
	return changed
}

type edge struct {
	to      string
	growing bool
}

// checkRecursion rejects a definition that refers back to itself through a
// cycle with type arguments built from its own parameters, such as
// Nested<T> { inner: option<Nested<vec<T>>> }.
func (g *generator) checkRecursion(sites []site) {
	edges := map[string][]edge{}
	for _, s := range sites {
		for _, t := range s.types {
			ir.WalkType(t, func(n ir.Type) bool {
				ext, ok := n.Value.(ir.External)
				if !ok {
					return true
				}
				if _, isParam := s.env.param(ext); isParam {
					return false
				}
				if res := g.scope.Resolve(s.env.module, ext); res.Def != nil {
					edges[s.env.def] = append(edges[s.env.def], edge{to: res.Qualified, growing: growing(s.env, ext.Generics)})
				}
				return true
			})
		}
	}
	for _, s := range sites {
		for _, ed := range edges[s.env.def] {
			if ed.growing && reaches(edges, ed.to, s.env.def, map[string]bool{}) {
				g.fail(fmt.Errorf("gogen: %s is instantiated recursively with growing type arguments: %w", ed.to, ErrUnsupported))
				return
			}
		}
	}
}

// growing reports whether some argument mentions a type parameter of e
// without being that parameter.
func growing(e env, args []ir.Type) bool {
	for _, a := range args {
		if ext, ok := a.Value.(ir.External); ok {
			if _, isParam := e.param(ext); isParam {
				continue
			}
		}
		mentions := false
		ir.WalkType(a, func(n ir.Type) bool {
			if ext, ok := n.Value.(ir.External); ok {
				if _, isParam := e.param(ext); isParam {
					mentions = true
				}
			}
			return !mentions
		})
		if mentions {
			return true
		}
	}
	return false
}

func reaches(edges map[string][]edge, from, to string, seen map[string]bool) bool {
	if from == to {
		return true
	}
	if seen[from] {
		return false
	}
	seen[from] = true
	for _, ed := range edges[from] {
		if reaches(edges, ed.to, to, seen) {
			return true
		}
	}
	return false
}

// checkContainment rejects a struct that contains itself without an
// indirection, e.g. through an empty array. Go has no representation for
// such a type.
func (g *generator) checkContainment(sites []site) {
	edges := map[string][]edge{}
	for _, s := range sites {
		if _, ok := s.def.(*ir.Enum); ok {
			continue
		}
		var visit func(ir.Type)
		visit = func(t ir.Type) {
			ir.WalkType(t, func(n ir.Type) bool {
				v, ok := n.Value.(ir.External)
				if !ok {
					return inline(n)
				}
				res := g.scope.Resolve(s.env.module, v)
				if _, isEnum := res.Def.(*ir.Enum); res.Def != nil && !isEnum {
					edges[s.env.def] = append(edges[s.env.def], edge{to: res.Qualified})
				}
				for i, held := range g.scope.HeldParams(res, inline) {
					if held && i < len(v.Generics) {
						visit(v.Generics[i])
					}
				}
				return false
			})
		}
		for _, t := range s.types {
			visit(t)
		}
	}
	for _, s := range sites {
		for _, ed := range edges[s.env.def] {
			if reaches(edges, ed.to, s.env.def, map[string]bool{}) {
				g.fail(fmt.Errorf("gogen: %s contains itself without indirection: %w", s.env.def, ErrUnsupported))
				return
			}
		}
	}
}

// inline reports whether values below t are laid out inside the enclosing
// Go struct. Slices, pointers and maps are not.
func inline(t ir.Type) bool {
	switch t.Value.(type) {
	case ir.Vec, ir.Option, ir.HashMap, ir.HashSet:
		return false
	}
	return true
}
