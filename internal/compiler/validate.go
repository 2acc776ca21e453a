package compiler

import (
	"fmt"

	"github.com/roach88/stef/internal/ir"
	"github.com/roach88/stef/wire"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateFieldID   = "E201" // two fields share an id
	ErrDuplicateVariantID = "E202" // two variants share an id
	ErrDuplicateName      = "E203" // two siblings share a name
	ErrDuplicateGeneric   = "E204" // a generic parameter is declared twice
	ErrUnusedGeneric      = "E205" // a generic parameter is never used
	ErrTupleSize          = "E206" // tuple arity outside [2, 12]
	ErrInvalidFieldID     = "E207" // field id 0 or above the tag range
	ErrInvalidNonZero     = "E208" // non_zero over a type without emptiness
	ErrInvalidConst       = "E209" // const type or literal not allowed
	ErrAliasCycle         = "E210" // type aliases expand into themselves
	ErrRecursiveType      = "E211" // a struct contains itself without indirection
)

// ViolationKind is the discriminant of a Violation.
type ViolationKind string

const (
	KindDuplicateID    ViolationKind = "duplicate-id"
	KindDuplicateName  ViolationKind = "duplicate-name"
	KindInvalidGeneric ViolationKind = "invalid-generic"
	KindTupleSize      ViolationKind = "tuple-size"
	KindInvalidID      ViolationKind = "invalid-id"
	KindInvalidNonZero ViolationKind = "invalid-non-zero"
	KindInvalidConst   ViolationKind = "invalid-const"
	KindCycle          ViolationKind = "cycle"
)

// Violation is one schema-structure error. It carries spans and structured
// data; presentation layers decide how to render it.
type Violation struct {
	Kind ViolationKind `json:"kind"`
	Code string        `json:"code"`

	// Definition is the qualified name of the enclosing definition, with the
	// variant name appended for variant-level violations.
	Definition string `json:"definition"`

	// Name is the duplicated or offending name, if any.
	Name string `json:"name,omitempty"`

	// ID is the duplicated or invalid id, if any.
	ID uint32 `json:"id,omitempty"`

	// Size is the declared tuple arity for tuple-size violations.
	Size int `json:"size,omitempty"`

	// Cycle lists the qualified names forming a cycle.
	Cycle []string `json:"cycle,omitempty"`

	// First is the first declaration, or the offending one.
	First ir.Span `json:"first"`

	// Second is the conflicting declaration for duplicate violations.
	Second *ir.Span `json:"second,omitempty"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	switch v.Code {
	case ErrDuplicateFieldID:
		return fmt.Sprintf("[%s] %s: duplicate field id %d", v.Code, v.Definition, v.ID)
	case ErrDuplicateVariantID:
		return fmt.Sprintf("[%s] %s: duplicate variant id %d", v.Code, v.Definition, v.ID)
	case ErrDuplicateName:
		return fmt.Sprintf("[%s] %s: duplicate name %q", v.Code, v.Definition, v.Name)
	case ErrDuplicateGeneric:
		return fmt.Sprintf("[%s] %s: duplicate generic parameter %q", v.Code, v.Definition, v.Name)
	case ErrUnusedGeneric:
		return fmt.Sprintf("[%s] %s: unused generic parameter %q", v.Code, v.Definition, v.Name)
	case ErrTupleSize:
		return fmt.Sprintf("[%s] %s: tuple has %d elements, expected %d to %d",
			v.Code, v.Definition, v.Size, ir.MinTupleSize, ir.MaxTupleSize)
	case ErrInvalidFieldID:
		return fmt.Sprintf("[%s] %s: field id %d outside 1..%d", v.Code, v.Definition, v.ID, wire.MaxFieldID)
	case ErrInvalidNonZero:
		return fmt.Sprintf("[%s] %s: non_zero cannot wrap %s", v.Code, v.Definition, v.Name)
	case ErrInvalidConst:
		return fmt.Sprintf("[%s] %s: %s", v.Code, v.Definition, v.Name)
	case ErrAliasCycle, ErrRecursiveType:
		return fmt.Sprintf("[%s] %s: cycle %v", v.Code, v.Definition, v.Cycle)
	default:
		return fmt.Sprintf("[%s] %s", v.Code, v.Definition)
	}
}

// Validate checks schema invariants the codec generators rely on.
// Returns all violations found (does not fail fast); an empty result means
// the schema may be compiled.
func Validate(s *ir.Schema) []Violation {
	v := &validator{scope: ir.NewScope(s)}
	v.definitions(nil, s.Definitions)
	v.violations = append(v.violations, analyzeCycles(v.scope)...)
	return v.violations
}

// ValidationError carries the violations of a schema that failed Check.
type ValidationError struct {
	Schema     string
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("schema %q is invalid: %s", e.Schema, e.Violations[0].Error())
	}
	return fmt.Sprintf("schema %q is invalid: %s (and %d more)", e.Schema, e.Violations[0].Error(), len(e.Violations)-1)
}

// Check runs Validate and returns a *ValidationError if any violation was
// found.
func Check(s *ir.Schema) error {
	if vs := Validate(s); len(vs) > 0 {
		return &ValidationError{Schema: s.Name, Violations: vs}
	}
	return nil
}

type validator struct {
	scope      *ir.Scope
	violations []Violation
}

func (v *validator) add(viol Violation) {
	v.violations = append(v.violations, viol)
}

func qualify(module []string, name string) string {
	return ir.JoinPath(append(append([]string(nil), module...), name))
}

func (v *validator) definitions(module []string, defs []ir.Definition) {
	seen := make(map[string]ir.Span)
	for _, def := range defs {
		name := def.DefName()
		if name.Value == "" {
			continue
		}
		if first, dup := seen[name.Value]; dup {
			second := name.Span
			v.add(Violation{
				Kind:       KindDuplicateName,
				Code:       ErrDuplicateName,
				Definition: ir.JoinPath(module),
				Name:       name.Value,
				First:      first,
				Second:     &second,
			})
			continue
		}
		seen[name.Value] = name.Span
	}

	for _, def := range defs {
		switch d := def.(type) {
		case *ir.Struct:
			q := qualify(module, d.Name.Value)
			v.generics(q, d.Generics, structTypes(d.Fields))
			v.fields(q, d.Fields)
		case *ir.Enum:
			q := qualify(module, d.Name.Value)
			v.enum(q, d)
		case *ir.TypeAlias:
			q := qualify(module, d.Name.Value)
			v.generics(q, d.Generics, []ir.Type{d.Target})
			v.types(q, d.Target)
		case *ir.Const:
			v.constDef(qualify(module, d.Name.Value), d)
		case *ir.Module:
			v.definitions(append(append([]string(nil), module...), d.Name.Value), d.Definitions)
		}
	}
}

func structTypes(f ir.Fields) []ir.Type {
	var out []ir.Type
	for _, fi := range ir.FieldList(f) {
		out = append(out, fi.Type)
	}
	return out
}

func (v *validator) enum(q string, e *ir.Enum) {
	var bodies []ir.Type
	ids := make(map[uint32]ir.Span)
	names := make(map[string]ir.Span)
	for _, variant := range e.Variants {
		bodies = append(bodies, structTypes(variant.Fields)...)

		if first, dup := ids[variant.ID.Value]; dup {
			second := variant.ID.Span
			v.add(Violation{
				Kind:       KindDuplicateID,
				Code:       ErrDuplicateVariantID,
				Definition: q,
				ID:         variant.ID.Value,
				First:      first,
				Second:     &second,
			})
		} else {
			ids[variant.ID.Value] = variant.ID.Span
		}

		if first, dup := names[variant.Name.Value]; dup {
			second := variant.Name.Span
			v.add(Violation{
				Kind:       KindDuplicateName,
				Code:       ErrDuplicateName,
				Definition: q,
				Name:       variant.Name.Value,
				First:      first,
				Second:     &second,
			})
		} else {
			names[variant.Name.Value] = variant.Name.Span
		}

		v.fields(q+ir.PathSeparator+variant.Name.Value, variant.Fields)
	}
	v.generics(q, e.Generics, bodies)
}

func (v *validator) fields(q string, fields ir.Fields) {
	ids := make(map[uint32]ir.Span)
	names := make(map[string]ir.Span)
	for _, f := range ir.FieldList(fields) {
		if !wire.ValidFieldID(f.ID.Value) {
			v.add(Violation{
				Kind:       KindInvalidID,
				Code:       ErrInvalidFieldID,
				Definition: q,
				Name:       f.Name,
				ID:         f.ID.Value,
				First:      f.ID.Span,
			})
		}
		if first, dup := ids[f.ID.Value]; dup {
			second := f.ID.Span
			v.add(Violation{
				Kind:       KindDuplicateID,
				Code:       ErrDuplicateFieldID,
				Definition: q,
				ID:         f.ID.Value,
				First:      first,
				Second:     &second,
			})
		} else {
			ids[f.ID.Value] = f.ID.Span
		}
		if f.Name != "" {
			if first, dup := names[f.Name]; dup {
				second := f.Span
				v.add(Violation{
					Kind:       KindDuplicateName,
					Code:       ErrDuplicateName,
					Definition: q,
					Name:       f.Name,
					First:      first,
					Second:     &second,
				})
			} else {
				names[f.Name] = f.Span
			}
		}
		v.types(q, f.Type)
	}
}

// generics checks parameter uniqueness and that every parameter appears in
// at least one of the body types.
func (v *validator) generics(q string, generics ir.Generics, body []ir.Type) {
	used := make(map[string]bool)
	for _, t := range body {
		ir.WalkType(t, func(t ir.Type) bool {
			if ext, ok := t.Value.(ir.External); ok && ext.IsGenericParam() {
				used[ext.Name] = true
			}
			return true
		})
	}

	declared := make(map[string]ir.Span)
	for _, g := range generics {
		if first, dup := declared[g.Value]; dup {
			second := g.Span
			v.add(Violation{
				Kind:       KindInvalidGeneric,
				Code:       ErrDuplicateGeneric,
				Definition: q,
				Name:       g.Value,
				First:      first,
				Second:     &second,
			})
			continue
		}
		declared[g.Value] = g.Span
		if !used[g.Value] {
			v.add(Violation{
				Kind:       KindInvalidGeneric,
				Code:       ErrUnusedGeneric,
				Definition: q,
				Name:       g.Value,
				First:      g.Span,
			})
		}
	}
}

// types checks tuple arity and non_zero targets anywhere inside t.
func (v *validator) types(q string, t ir.Type) {
	ir.WalkType(t, func(t ir.Type) bool {
		switch x := t.Value.(type) {
		case ir.Tuple:
			if n := len(x.Elems); n < ir.MinTupleSize || n > ir.MaxTupleSize {
				v.add(Violation{
					Kind:       KindTupleSize,
					Code:       ErrTupleSize,
					Definition: q,
					Size:       n,
					First:      t.Span,
				})
			}
		case ir.NonZero:
			if !ir.NonZeroAllowed(x.Elem.Value) {
				v.add(Violation{
					Kind:       KindInvalidNonZero,
					Code:       ErrInvalidNonZero,
					Definition: q,
					Name:       x.Elem.String(),
					First:      t.Span,
				})
			}
		}
		return true
	})
}

func (v *validator) constDef(q string, c *ir.Const) {
	fail := func(msg string) {
		v.add(Violation{
			Kind:       KindInvalidConst,
			Code:       ErrInvalidConst,
			Definition: q,
			Name:       msg,
			First:      c.Type.Span,
		})
	}

	prim, ok := c.Type.Value.(ir.Primitive)
	if !ok {
		fail(fmt.Sprintf("constant type %s is not a scalar", c.Type))
		return
	}
	switch {
	case prim == ir.Bool:
		if _, ok := c.Value.(ir.BoolLiteral); !ok {
			fail("expected a bool literal")
		}
	case prim.IsInteger():
		lit, ok := c.Value.(ir.IntLiteral)
		if !ok {
			fail("expected an integer literal")
			return
		}
		if !lit.FitsPrimitive(prim) {
			fail(fmt.Sprintf("literal %s out of range for %s", lit.Value, prim))
		}
	case prim.IsFloat():
		switch lit := c.Value.(type) {
		case ir.FloatLiteral:
		case ir.IntLiteral:
			if !lit.InRange() {
				fail(fmt.Sprintf("literal %s out of range for %s", lit.Value, prim))
			}
		default:
			fail("expected a float literal")
		}
	case prim == ir.String || prim == ir.StringRef:
		if _, ok := c.Value.(ir.StringLiteral); !ok {
			fail("expected a string literal")
		}
	case prim == ir.Bytes || prim == ir.BytesRef:
		if _, ok := c.Value.(ir.BytesLiteral); !ok {
			fail("expected a bytes literal")
		}
	default:
		fail(fmt.Sprintf("constant type %s is not allowed", prim))
	}
}
