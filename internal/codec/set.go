package codec

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/ir"
	"github.com/roach88/stef/internal/value"
	"github.com/roach88/stef/wire"
)

// maxInstantiationDepth bounds nested generic instantiation, which only
// grows without limit for polymorphically recursive definitions.
const maxInstantiationDepth = 64

// Set is the compiled form of one schema: a codec per type, keyed by fully
// qualified type expression, plus the schema's constants.
type Set struct {
	schema   *ir.Schema
	scope    *ir.Scope
	registry Registry
	logger   *slog.Logger

	types  []string
	consts map[string]value.Value

	mu    sync.Mutex
	cache map[string]*Codec
	added []string
	depth int
}

// SetOption configures Compile.
type SetOption func(*Set)

// WithRegistry supplies codecs for foreign type references.
func WithRegistry(r Registry) SetOption {
	return func(s *Set) {
		s.registry = r
	}
}

// WithLogger sets the logger used for compile diagnostics.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) SetOption {
	return func(s *Set) {
		s.logger = l
	}
}

// binding is a generic argument together with the environment it must be
// resolved in.
type binding struct {
	t   ir.Type
	env *env
}

// env is the lexical context of a type expression: the module it appears
// in and the generic arguments in force.
type env struct {
	module []string
	args   map[string]binding
}

var rootEnv = &env{}

func (e *env) param(ext ir.External) (binding, bool) {
	if !ext.IsGenericParam() {
		return binding{}, false
	}
	b, ok := e.args[ext.Name]
	return b, ok
}

// Compile validates schema and compiles every non-generic type. Generic
// types are instantiated when first referenced or looked up.
func Compile(schema *ir.Schema, opts ...SetOption) (*Set, error) {
	if err := compiler.Check(schema); err != nil {
		return nil, err
	}

	s := &Set{
		schema: schema,
		scope:  ir.NewScope(schema),
		logger: slog.Default(),
		consts: make(map[string]value.Value),
		cache:  make(map[string]*Codec),
	}
	for _, opt := range opts {
		opt(s)
	}

	var errs []error
	ir.Walk(schema, func(module []string, def ir.Definition) {
		name := def.DefName()
		q := ir.JoinPath(append(append([]string(nil), module...), name.Value))
		switch d := def.(type) {
		case *ir.Struct, *ir.Enum, *ir.TypeAlias:
			if len(genericsOf(d)) > 0 {
				return
			}
			ref := ir.Type{
				Value: ir.External{Path: append([]string(nil), module...), Name: name.Value},
				Span:  name.Span,
			}
			if _, err := s.compileRoot(ref); err != nil {
				errs = append(errs, err)
				return
			}
			s.types = append(s.types, q)
		case *ir.Const:
			s.consts[q] = constValue(d)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s.logger.Debug("schema compiled",
		"schema", schema.Name,
		"types", len(s.types),
		"consts", len(s.consts),
	)
	return s, nil
}

// MustCompile is like Compile but panics on error. For tests and
// package-level schemas.
func MustCompile(schema *ir.Schema, opts ...SetOption) *Set {
	s, err := Compile(schema, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Schema returns the compiled schema.
func (s *Set) Schema() *ir.Schema { return s.schema }

// Types returns the qualified names of the schema's non-generic types in
// declaration order.
func (s *Set) Types() []string {
	return append([]string(nil), s.types...)
}

// Const returns the value of the constant with the given qualified name.
func (s *Set) Const(name string) (value.Value, bool) {
	v, ok := s.consts[name]
	return v, ok
}

// Lookup returns the codec of the named type, instantiated with the given
// generic arguments. Arguments are type expressions resolved at the schema
// root.
func (s *Set) Lookup(name string, args ...string) (*Codec, error) {
	ref, err := ir.ParseType(name)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	ext, ok := ref.Value.(ir.External)
	if !ok || len(ext.Generics) > 0 {
		return nil, fmt.Errorf("lookup %q: not a type name", name)
	}
	for _, a := range args {
		t, err := ir.ParseType(a)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: argument %q: %w", name, a, err)
		}
		ext.Generics = append(ext.Generics, t)
	}
	return s.instantiate(ir.Type{Value: ext})
}

// Codec returns the codec of an arbitrary type expression, such as
// "vec<geo.Point>", resolved at the schema root.
func (s *Set) Codec(expr string) (*Codec, error) {
	t, err := ir.ParseType(expr)
	if err != nil {
		return nil, fmt.Errorf("codec %q: %w", expr, err)
	}
	return s.instantiate(t)
}

func (s *Set) instantiate(t ir.Type) (*Codec, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compileRoot(t)
}

// Marshal encodes v as a standalone value of the named type.
func (s *Set) Marshal(name string, v value.Value) ([]byte, error) {
	c, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.Marshal(v)
}

// Unmarshal decodes a standalone value of the named type.
func (s *Set) Unmarshal(name string, data []byte) (value.Value, error) {
	c, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.Unmarshal(data)
}

// compileRoot compiles t at the schema root. On failure every codec
// entered into the cache during the attempt is discarded, since it may
// refer to an unfinished placeholder.
func (s *Set) compileRoot(t ir.Type) (*Codec, error) {
	mark := len(s.added)
	c, err := s.compile(rootEnv, t)
	if err != nil {
		for _, key := range s.added[mark:] {
			delete(s.cache, key)
		}
		s.added = s.added[:mark]
		return nil, err
	}
	return c, nil
}

func (s *Set) remember(key string, c *Codec) {
	s.cache[key] = c
	s.added = append(s.added, key)
}

func (s *Set) compile(e *env, t ir.Type) (*Codec, error) {
	switch x := t.Value.(type) {
	case ir.Primitive:
		c, ok := primitives[x]
		if !ok {
			panic(fmt.Sprintf("codec: invalid primitive %d", x))
		}
		return c, nil
	case ir.Vec:
		elem, err := s.compile(e, x.Elem)
		if err != nil {
			return nil, err
		}
		return vecCodec(s.key(e, t), elem), nil
	case ir.Array:
		elem, err := s.compile(e, x.Elem)
		if err != nil {
			return nil, err
		}
		return arrayCodec(s.key(e, t), elem, int(x.Size)), nil
	case ir.HashSet:
		elem, err := s.compile(e, x.Elem)
		if err != nil {
			return nil, err
		}
		return setCodec(s.key(e, t), elem), nil
	case ir.HashMap:
		key, err := s.compile(e, x.Key)
		if err != nil {
			return nil, err
		}
		val, err := s.compile(e, x.Value)
		if err != nil {
			return nil, err
		}
		return mapCodec(s.key(e, t), key, val), nil
	case ir.Option:
		elem, err := s.compile(e, x.Elem)
		if err != nil {
			return nil, err
		}
		return optionCodec(s.key(e, t), elem), nil
	case ir.NonZero:
		if !ir.NonZeroAllowed(x.Elem.Value) {
			panic(fmt.Sprintf("codec: non_zero over %s reached the generator", x.Elem))
		}
		inner, err := s.compile(e, x.Elem)
		if err != nil {
			return nil, err
		}
		return nonZeroCodec(s.key(e, t), inner), nil
	case ir.Tuple:
		if n := len(x.Elems); n < ir.MinTupleSize || n > ir.MaxTupleSize {
			panic(fmt.Sprintf("codec: tuple of %d elements reached the generator", n))
		}
		elems := make([]*Codec, len(x.Elems))
		for i, el := range x.Elems {
			c, err := s.compile(e, el)
			if err != nil {
				return nil, err
			}
			elems[i] = c
		}
		return tupleCodec(s.key(e, t), elems), nil
	case ir.External:
		return s.external(e, t, x)
	default:
		panic(fmt.Sprintf("codec: unknown data type %T", t.Value))
	}
}

func (s *Set) external(e *env, t ir.Type, ext ir.External) (*Codec, error) {
	if b, ok := e.param(ext); ok {
		return s.compile(b.env, b.t)
	}

	key := s.key(e, t)
	if c, ok := s.cache[key]; ok {
		return c, nil
	}

	res := s.scope.Resolve(e.module, ext)
	if res.Def == nil {
		return s.foreign(e, t, ext, res.Qualified, key)
	}

	generics := genericsOf(res.Def)
	switch res.Def.(type) {
	case *ir.Struct, *ir.Enum, *ir.TypeAlias:
	default:
		return nil, &CompileError{
			Code:    ErrNotAType,
			Type:    key,
			Message: fmt.Sprintf("%s is not a type", res.Qualified),
			Span:    t.Span,
		}
	}
	if len(generics) != len(ext.Generics) {
		return nil, &CompileError{
			Code:    ErrArity,
			Type:    key,
			Message: fmt.Sprintf("%s takes %d generic arguments, got %d", res.Qualified, len(generics), len(ext.Generics)),
			Span:    t.Span,
		}
	}

	// Only generic instantiations count. Non-generic definitions are
	// compiled once each, however deep the reference chain.
	if len(generics) > 0 {
		if s.depth >= maxInstantiationDepth {
			return nil, &CompileError{
				Code:    ErrTooDeep,
				Type:    key,
				Message: fmt.Sprintf("generic instantiation nested deeper than %d", maxInstantiationDepth),
				Span:    t.Span,
			}
		}
		s.depth++
		defer func() { s.depth-- }()
	}

	inner := &env{module: res.Module, args: make(map[string]binding, len(generics))}
	for i, g := range generics {
		inner.args[g.Value] = binding{t: ext.Generics[i], env: e}
	}

	switch d := res.Def.(type) {
	case *ir.Struct:
		c := &Codec{typ: key, shape: wire.LengthPrefixed, framed: true}
		s.remember(key, c)
		b, err := s.body(inner, key, d.Fields)
		if err != nil {
			return nil, err
		}
		fillStruct(c, b)
		s.logger.Debug("compiled struct", "type", key, "fields", len(b.fields))
		return c, nil

	case *ir.Enum:
		c := &Codec{typ: key, shape: wire.LengthPrefixed, framed: true}
		s.remember(key, c)
		variants := make([]variant, len(d.Variants))
		for i, v := range d.Variants {
			b, err := s.body(inner, key+ir.PathSeparator+v.Name.Value, v.Fields)
			if err != nil {
				return nil, err
			}
			variants[i] = variant{id: v.ID.Value, name: v.Name.Value, body: b}
		}
		fillEnum(c, variants)
		s.logger.Debug("compiled enum", "type", key, "variants", len(variants))
		return c, nil

	default:
		alias := res.Def.(*ir.TypeAlias)
		c, err := s.compile(inner, alias.Target)
		if err != nil {
			return nil, err
		}
		s.remember(key, c)
		return c, nil
	}
}

func (s *Set) foreign(e *env, t ir.Type, ext ir.External, qualified, key string) (*Codec, error) {
	args := make([]*Codec, len(ext.Generics))
	for i, g := range ext.Generics {
		c, err := s.compile(e, g)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	if s.registry != nil {
		if c, ok := s.registry.Foreign(qualified, args); ok {
			s.remember(key, c)
			return c, nil
		}
	}
	return nil, &CompileError{
		Code:    ErrUnresolved,
		Type:    key,
		Message: fmt.Sprintf("no definition or foreign codec named %s", qualified),
		Span:    t.Span,
	}
}

func (s *Set) body(e *env, typ string, fields ir.Fields) (*body, error) {
	if fields == nil {
		fields = ir.Unit{}
	}
	list := ir.FieldList(fields)
	out := make([]field, len(list))
	for i, f := range list {
		c, err := s.compile(e, f.Type)
		if err != nil {
			return nil, err
		}
		_, optional := f.Type.Value.(ir.Option)
		out[i] = field{id: f.ID.Value, name: f.Name, codec: c, optional: optional}
	}
	_, named := fields.(ir.NamedFields)
	_, unit := fields.(ir.Unit)
	return newBody(typ, unit, named, out), nil
}

// key renders t with every reference replaced by its qualified name and
// every generic parameter by its argument, so equal instantiations share
// one cache entry.
func (s *Set) key(e *env, t ir.Type) string {
	return s.absolute(e, t).String()
}

func (s *Set) absolute(e *env, t ir.Type) ir.Type {
	abs := func(t ir.Type) ir.Type { return s.absolute(e, t) }
	switch x := t.Value.(type) {
	case ir.Vec:
		return ir.Type{Value: ir.Vec{Elem: abs(x.Elem)}}
	case ir.Array:
		return ir.Type{Value: ir.Array{Elem: abs(x.Elem), Size: x.Size}}
	case ir.HashSet:
		return ir.Type{Value: ir.HashSet{Elem: abs(x.Elem)}}
	case ir.HashMap:
		return ir.Type{Value: ir.HashMap{Key: abs(x.Key), Value: abs(x.Value)}}
	case ir.Option:
		return ir.Type{Value: ir.Option{Elem: abs(x.Elem)}}
	case ir.NonZero:
		return ir.Type{Value: ir.NonZero{Elem: abs(x.Elem)}}
	case ir.Tuple:
		elems := make([]ir.Type, len(x.Elems))
		for i, el := range x.Elems {
			elems[i] = abs(el)
		}
		return ir.Type{Value: ir.Tuple{Elems: elems}}
	case ir.External:
		if b, ok := e.param(x); ok {
			return s.absolute(b.env, b.t)
		}
		res := s.scope.Resolve(e.module, x)
		var args []ir.Type
		for _, g := range x.Generics {
			args = append(args, abs(g))
		}
		return ir.Type{Value: ir.External{Name: res.Qualified, Generics: args}}
	default:
		return ir.Type{Value: t.Value}
	}
}

func genericsOf(def ir.Definition) ir.Generics {
	switch d := def.(type) {
	case *ir.Struct:
		return d.Generics
	case *ir.Enum:
		return d.Generics
	case *ir.TypeAlias:
		return d.Generics
	default:
		return nil
	}
}

// checkType applies the validator's type rules to an ad-hoc expression.
func checkType(t ir.Type) error {
	var err error
	ir.WalkType(t, func(t ir.Type) bool {
		if err != nil {
			return false
		}
		switch x := t.Value.(type) {
		case ir.Tuple:
			if n := len(x.Elems); n < ir.MinTupleSize || n > ir.MaxTupleSize {
				err = &CompileError{Code: ErrBadType, Type: t.String(), Message: fmt.Sprintf("tuple of %d elements", n), Span: t.Span}
			}
		case ir.NonZero:
			if !ir.NonZeroAllowed(x.Elem.Value) {
				err = &CompileError{Code: ErrBadType, Type: t.String(), Message: "non_zero cannot wrap " + x.Elem.String(), Span: t.Span}
			}
		}
		return err == nil
	})
	return err
}

func constValue(c *ir.Const) value.Value {
	p, ok := c.Type.Value.(ir.Primitive)
	if !ok {
		panic(fmt.Sprintf("codec: constant %s of non-scalar type reached the generator", c.Name.Value))
	}
	switch lit := c.Value.(type) {
	case ir.BoolLiteral:
		return value.Bool(lit)
	case ir.IntLiteral:
		if p.IsFloat() {
			f, _ := new(big.Float).SetInt(lit.Value).Float64()
			return floatValue(p, f)
		}
		v, ok := IntValue(p, lit.Value)
		if !ok {
			panic(fmt.Sprintf("codec: constant %s out of range", c.Name.Value))
		}
		return v
	case ir.FloatLiteral:
		return floatValue(p, float64(lit))
	case ir.StringLiteral:
		return value.String(lit)
	case ir.BytesLiteral:
		return value.Bytes(lit)
	default:
		panic(fmt.Sprintf("codec: constant %s has no literal", c.Name.Value))
	}
}

func floatValue(p ir.Primitive, f float64) value.Value {
	if p == ir.F32 {
		return value.F32(float32(f))
	}
	return value.F64(f)
}
