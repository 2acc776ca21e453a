package compiler

import (
	"slices"

	"github.com/roach88/stef/internal/ir"
)

// dependencyGraph maps a qualified definition name to the definitions it
// depends on.
type dependencyGraph map[string][]string

// analyzeCycles reports two kinds of cycles:
//   - aliases whose expansion reaches themselves (E210), through any type;
//   - structs that contain themselves by value (E211), which would need
//     infinite storage. vec, hash_map, hash_set, option and enums break
//     such cycles.
//
// Both use Tarjan's algorithm over a dependency graph. Nodes are visited in
// sorted order so the report is deterministic.
func analyzeCycles(sc *ir.Scope) []Violation {
	aliases, embeds := buildDependencyGraphs(sc)

	var out []Violation
	for _, scc := range tarjanSCC(aliases) {
		if len(scc) > 1 || hasSelfLoop(scc[0], aliases) {
			out = append(out, cycleViolation(sc, ErrAliasCycle, scc, aliases))
		}
	}
	for _, scc := range tarjanSCC(embeds) {
		if !containsStruct(sc, scc) {
			continue
		}
		if len(scc) > 1 || hasSelfLoop(scc[0], embeds) {
			out = append(out, cycleViolation(sc, ErrRecursiveType, scc, embeds))
		}
	}
	return out
}

// buildDependencyGraphs builds the alias-expansion graph (alias -> aliases
// mentioned anywhere in its target) and the by-value containment graph
// (struct or alias -> structs and aliases it embeds directly).
func buildDependencyGraphs(sc *ir.Scope) (aliases, embeds dependencyGraph) {
	aliases = make(dependencyGraph)
	embeds = make(dependencyGraph)

	ir.Walk(sc.Schema(), func(module []string, def ir.Definition) {
		switch d := def.(type) {
		case *ir.TypeAlias:
			q := qualify(module, d.Name.Value)
			aliases[q] = nil
			ir.WalkType(d.Target, func(t ir.Type) bool {
				if target, ok := resolveKind[*ir.TypeAlias](sc, module, d.Generics, t); ok {
					aliases[q] = appendUnique(aliases[q], target)
				}
				return true
			})
			embeds[q] = nil
			embedded(sc, module, d.Generics, d.Target, func(target string) {
				embeds[q] = appendUnique(embeds[q], target)
			})
		case *ir.Struct:
			q := qualify(module, d.Name.Value)
			embeds[q] = nil
			for _, f := range ir.FieldList(d.Fields) {
				embedded(sc, module, d.Generics, f.Type, func(target string) {
					embeds[q] = appendUnique(embeds[q], target)
				})
			}
		}
	})
	return aliases, embeds
}

// embedded reports structs and aliases held by value inside t. Arguments of
// a generic reference count when the referenced definition holds the
// matching parameter by value.
func embedded(sc *ir.Scope, module []string, generics ir.Generics, t ir.Type, fn func(string)) {
	ir.WalkType(t, func(t ir.Type) bool {
		ext, ok := t.Value.(ir.External)
		if !ok {
			return byValue(t)
		}
		if ext.IsGenericParam() && generics.Index(ext.Name) >= 0 {
			return false
		}
		res := sc.Resolve(module, ext)
		switch res.Def.(type) {
		case *ir.Struct, *ir.TypeAlias:
			fn(res.Qualified)
		}
		for i, held := range sc.HeldParams(res, byValue) {
			if held && i < len(ext.Generics) {
				embedded(sc, module, generics, ext.Generics[i], fn)
			}
		}
		return false
	})
}

// byValue reports whether the values below t are stored inline.
func byValue(t ir.Type) bool {
	switch x := t.Value.(type) {
	case ir.Vec, ir.HashMap, ir.HashSet, ir.Option:
		return false
	case ir.Array:
		return x.Size > 0
	}
	return true
}

// resolveKind resolves t to the qualified name of a definition of type D.
func resolveKind[D ir.Definition](sc *ir.Scope, module []string, generics ir.Generics, t ir.Type) (string, bool) {
	ext, ok := t.Value.(ir.External)
	if !ok {
		return "", false
	}
	if ext.IsGenericParam() && generics.Index(ext.Name) >= 0 {
		return "", false
	}
	res := sc.Resolve(module, ext)
	if _, ok := res.Def.(D); !ok {
		return "", false
	}
	return res.Qualified, true
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

func containsStruct(sc *ir.Scope, scc []string) bool {
	for _, name := range scc {
		if def, ok := sc.Lookup(name); ok {
			if _, isStruct := def.(*ir.Struct); isStruct {
				return true
			}
		}
	}
	return false
}

func cycleViolation(sc *ir.Scope, code string, scc []string, graph dependencyGraph) Violation {
	slices.Sort(scc)
	path := reconstructCyclePath(scc, graph)
	v := Violation{
		Kind:       KindCycle,
		Code:       code,
		Definition: scc[0],
		Cycle:      path,
	}
	if def, ok := sc.Lookup(scc[0]); ok {
		v.First = def.DefName().Span
	}
	return v
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are not cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath follows edges inside the SCC from its first node
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
