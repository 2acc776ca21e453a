package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/ir"
	"github.com/roach88/stef/internal/value"
	"github.com/roach88/stef/wire"
)

const testSchema = `
schema: "test"
definitions: [
	{struct: "Point", fields: [{name: "x", id: 1, type: "i32"}, {name: "y", id: 2, type: "i32"}]},
	{struct: "Person", fields: [
		{name: "name", id: 1, type: "string"},
		{name: "age", id: 2, type: "u8"},
		{name: "email", id: 3, type: "option<string>"},
		{name: "tags", id: 4, type: "vec<string>"},
	]},
	{struct: "PersonV2", fields: [
		{name: "name", id: 1, type: "string"},
		{name: "age", id: 2, type: "u8"},
		{name: "email", id: 3, type: "option<string>"},
		{name: "tags", id: 4, type: "vec<string>"},
		{name: "score", id: 5, type: "f64"},
	]},
	{enum: "Shape", variants: [
		{name: "Empty", id: 1},
		{name: "Circle", id: 2, fields: [{name: "r", id: 1, type: "f64"}]},
		{name: "Pair", id: 3, fields: [{id: 1, type: "(u8, u8)"}]},
	]},
	{struct: "Tree", fields: [{name: "value", id: 1, type: "u32"}, {name: "children", id: 2, type: "vec<Tree>"}]},
	{struct: "Box", generics: ["T"], fields: [{name: "inner", id: 1, type: "T"}]},
	{alias: "Boxed", type: "Box<Point>"},
	{struct: "Strict", fields: [{name: "n", id: 1, type: "non_zero<u32>"}]},
	{struct: "Framing", fields: [{name: "pair", id: 1, type: "(u8, u8)"}, {name: "list", id: 2, type: "vec<(u8, u8)>"}]},
	{struct: "Marker"},
	{const: "MAX", type: "u16", value: 300},
	{const: "HALF", type: "f32", value: 0.5},
	{module: "geo", definitions: [
		{struct: "Place", fields: [{name: "at", id: 1, type: "Point"}, {name: "label", id: 2, type: "Label"}]},
		{alias: "Label", type: "string"},
	]},
]
`

func compileTest(t *testing.T, src string, opts ...SetOption) *Set {
	t.Helper()
	schema, err := compiler.ParseSchema("test.cue", []byte(src))
	require.NoError(t, err)
	set, err := Compile(schema, opts...)
	require.NoError(t, err)
	return set
}

func assertValue(t *testing.T, want, got value.Value) {
	t.Helper()
	assert.True(t, value.Equal(want, got), "want %s\ngot  %s", value.Format(want), value.Format(got))
}

func roundTrip(t *testing.T, set *Set, name string, v value.Value) []byte {
	t.Helper()
	data, err := set.Marshal(name, v)
	require.NoError(t, err)
	got, err := set.Unmarshal(name, data)
	require.NoError(t, err)
	assertValue(t, v, got)
	return data
}

func person(name string, age uint8, email value.Option, tags ...string) value.Struct {
	list := value.List{}
	for _, tag := range tags {
		list = append(list, value.String(tag))
	}
	return value.NewStruct(map[uint32]value.Value{
		1: value.String(name),
		2: value.U8(age),
		3: email,
		4: list,
	})
}

// =============================================================================
// Round trip and wire bytes
// =============================================================================

func TestCompileTypes(t *testing.T) {
	set := compileTest(t, testSchema)
	assert.Equal(t, []string{
		"Point", "Person", "PersonV2", "Shape", "Tree", "Boxed", "Strict", "Framing", "Marker",
		"geo.Place", "geo.Label",
	}, set.Types())
}

func TestStructWireBytes(t *testing.T) {
	set := compileTest(t, testSchema)
	data := roundTrip(t, set, "Point", value.NewStruct(map[uint32]value.Value{1: value.I32(1), 2: value.I32(-1)}))
	assert.Equal(t, []byte{0x08, 0x02, 0x10, 0x01, 0x00}, data)
}

func TestRoundTrip(t *testing.T) {
	set := compileTest(t, testSchema)

	roundTrip(t, set, "Person", person("ada", 36, value.Some(value.String("ada@example.com")), "math", "engines"))
	roundTrip(t, set, "Person", person("", 0, value.None))
	roundTrip(t, set, "Marker", value.NewStruct(nil))
	roundTrip(t, set, "geo.Place", value.NewStruct(map[uint32]value.Value{
		1: value.NewStruct(map[uint32]value.Value{1: value.I32(3), 2: value.I32(4)}),
		2: value.String("home"),
	}))
}

func TestUnitStructEncodesToNothing(t *testing.T) {
	set := compileTest(t, testSchema)
	data, err := set.Marshal("Marker", value.NewStruct(nil))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestEnumRoundTrip(t *testing.T) {
	set := compileTest(t, testSchema)

	data := roundTrip(t, set, "Shape", value.Enum{Variant: 1})
	assert.Equal(t, []byte{0x01}, data)

	data = roundTrip(t, set, "Shape", value.Enum{Variant: 2, Fields: map[uint32]value.Value{1: value.F64(1.5)}})
	assert.Equal(t, byte(0x02), data[0])
	assert.Equal(t, byte(1<<3|byte(wire.Fixed8)), data[1])

	roundTrip(t, set, "Shape", value.Enum{Variant: 3, Fields: map[uint32]value.Value{
		1: value.Tuple{value.U8(1), value.U8(2)},
	}})
}

func TestRecursiveType(t *testing.T) {
	set := compileTest(t, testSchema)

	leaf := func(n uint32) value.Value {
		return value.NewStruct(map[uint32]value.Value{1: value.U32(n), 2: value.List{}})
	}
	tree := value.NewStruct(map[uint32]value.Value{
		1: value.U32(1),
		2: value.List{
			leaf(2),
			value.NewStruct(map[uint32]value.Value{1: value.U32(3), 2: value.List{leaf(4)}}),
		},
	})
	roundTrip(t, set, "Tree", tree)
}

func TestRootAndNestedTupleFraming(t *testing.T) {
	set := compileTest(t, testSchema)
	v := value.NewStruct(map[uint32]value.Value{
		1: value.Tuple{value.U8(1), value.U8(2)},
		2: value.List{value.Tuple{value.U8(3), value.U8(4)}},
	})
	data := roundTrip(t, set, "Framing", v)

	want := []byte{
		0x09, 0x02, 0x01, 0x02, // field 1: tuple framed by its size
		0x11, 0x03, 0x01, 0x03, 0x04, // field 2: vec framed; its tuple element is not
		0x00,
	}
	assert.Equal(t, want, data)
}

func TestGenerics(t *testing.T) {
	set := compileTest(t, testSchema)

	boxed, err := set.Lookup("Boxed")
	require.NoError(t, err)
	assert.Equal(t, "Box<Point>", boxed.Type())

	direct, err := set.Lookup("Box", "Point")
	require.NoError(t, err)
	assert.Same(t, boxed, direct, "equal instantiations share a codec")

	byte8, err := set.Lookup("Box", "u8")
	require.NoError(t, err)
	data, err := byte8.Marshal(value.NewStruct(map[uint32]value.Value{1: value.U8(9)}))
	require.NoError(t, err)
	assert.Equal(t, []byte{1<<3 | byte(wire.Fixed1), 0x09, 0x00}, data)

	_, err = set.Lookup("Box")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrArity, ce.Code)
}

func TestCodecExpression(t *testing.T) {
	set := compileTest(t, testSchema)

	c, err := set.Codec("hash_map<string, geo.Place>")
	require.NoError(t, err)
	assert.Equal(t, "hash_map<string, geo.Place>", c.Type())
	assert.Equal(t, wire.LengthPrefixed, c.Shape())
	assert.True(t, c.Framed())

	_, err = set.Codec("non_zero<f32>")
	require.Error(t, err)
	_, err = set.Codec("(u8)")
	require.Error(t, err)
	_, err = set.Codec("vec<Missing>")
	assert.True(t, IsUnresolved(err))
	_, err = set.Codec("MAX")
	require.ErrorAs(t, err, new(*CompileError))
}

func TestConst(t *testing.T) {
	set := compileTest(t, testSchema)

	v, ok := set.Const("MAX")
	require.True(t, ok)
	assert.Equal(t, value.U16(300), v)

	v, ok = set.Const("HALF")
	require.True(t, ok)
	assert.Equal(t, value.F32(0.5), v)

	_, ok = set.Const("Point")
	assert.False(t, ok)
}

// =============================================================================
// Compatibility
// =============================================================================

func TestForwardCompatibleSkip(t *testing.T) {
	set := compileTest(t, testSchema)

	newer := value.NewStruct(map[uint32]value.Value{
		1: value.String("ada"),
		2: value.U8(36),
		3: value.None,
		4: value.List{value.String("x")},
		5: value.F64(9.5),
	})
	data, err := set.Marshal("PersonV2", newer)
	require.NoError(t, err)

	got, err := set.Unmarshal("Person", data)
	require.NoError(t, err)
	assertValue(t, person("ada", 36, value.None, "x"), got)
}

func TestMissingRequiredField(t *testing.T) {
	set := compileTest(t, testSchema)

	data, err := set.Marshal("Person", person("ada", 36, value.None))
	require.NoError(t, err)

	_, err = set.Unmarshal("PersonV2", data)
	require.Error(t, err)
	assert.True(t, wire.IsMissingField(err))

	var we *wire.Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, uint32(5), we.FieldID)
	assert.Equal(t, "score", we.FieldName)
}

func TestAbsentOptionDecodesAsNone(t *testing.T) {
	set := compileTest(t, testSchema)

	data := []byte{
		0x09, 0x02, 'h', 'i', // name
		0x12, 0x07, // age
		0x21, 0x01, 0x00, // tags: empty vec
		0x00,
	}
	got, err := set.Unmarshal("Person", data)
	require.NoError(t, err)
	assertValue(t, person("hi", 7, value.None), got)
}

func TestOptionThroughAliasOrArgumentIsRequired(t *testing.T) {
	set := compileTest(t, `definitions: [
		{struct: "Box", generics: ["T"], fields: [{name: "inner", id: 1, type: "T"}]},
		{alias: "Maybe", type: "option<u32>"},
		{struct: "Aliased", fields: [{name: "m", id: 1, type: "Maybe"}]},
		{struct: "Declared", fields: [{name: "m", id: 1, type: "option<u32>"}]},
	]`)

	tests := []struct {
		name  string
		codec func() (*Codec, error)
		field string
	}{
		{"alias", func() (*Codec, error) { return set.Lookup("Aliased") }, "m"},
		{"type argument", func() (*Codec, error) { return set.Codec("Box<option<u32>>") }, "inner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.codec()
			require.NoError(t, err)

			_, err = c.Unmarshal([]byte{0x00})
			require.Error(t, err)
			assert.True(t, wire.IsMissingField(err))
			var we *wire.Error
			require.ErrorAs(t, err, &we)
			assert.Equal(t, uint32(1), we.FieldID)
			assert.Equal(t, tt.field, we.FieldName)

			_, err = c.FromNative(map[string]any{})
			assert.Error(t, err, "the field must be given, even as null")

			v, err := c.FromNative(map[string]any{tt.field: nil})
			require.NoError(t, err)
			data, err := c.Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, []byte{0x09, 0x01, 0x00, 0x00}, data)
		})
	}

	got, err := set.Unmarshal("Declared", []byte{0x00})
	require.NoError(t, err)
	assertValue(t, value.NewStruct(map[uint32]value.Value{1: value.None}), got)
}

func TestUnknownVariant(t *testing.T) {
	set := compileTest(t, testSchema)

	_, err := set.Unmarshal("Shape", []byte{0x05})
	require.Error(t, err)
	assert.True(t, wire.IsUnknownVariant(err))

	var we *wire.Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, uint32(5), we.VariantID)
}

func TestShapeMismatch(t *testing.T) {
	set := compileTest(t, testSchema)

	_, err := set.Unmarshal("Point", []byte{1<<3 | byte(wire.Fixed1), 0x01, 0x00})
	require.Error(t, err)
	assert.True(t, wire.IsShapeMismatch(err))
}

func TestNonZero(t *testing.T) {
	set := compileTest(t, testSchema)

	roundTrip(t, set, "Strict", value.NewStruct(map[uint32]value.Value{1: value.U32(7)}))

	_, err := set.Unmarshal("Strict", []byte{0x08, 0x00, 0x00})
	require.Error(t, err)
	assert.True(t, wire.IsZeroNonZero(err))

	var we *wire.Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "n", we.FieldName)

	_, err = set.Marshal("Strict", value.NewStruct(map[uint32]value.Value{1: value.U32(0)}))
	assert.True(t, IsMismatch(err))
}

func TestDecodeErrors(t *testing.T) {
	set := compileTest(t, testSchema)

	tests := []struct {
		name  string
		typ   string
		data  []byte
		check func(error) bool
	}{
		{"truncated struct", "Point", []byte{0x08}, wire.IsTruncated},
		{"missing end marker", "Point", []byte{0x08, 0x02}, wire.IsTruncated},
		{"trailing bytes", "Marker", []byte{0x00}, wire.IsMalformed},
		{"array count", "[u8; 2]", []byte{0x03, 0x01, 0x02, 0x03}, wire.IsMalformed},
		{"repeated map key", "hash_map<string, u8>", []byte{0x02, 0x01, 'a', 0x01, 0x01, 'a', 0x02}, wire.IsDuplicateEntry},
		{"repeated set element", "hash_set<u8>", []byte{0x02, 0x05, 0x05}, wire.IsDuplicateEntry},
		{"bad presence", "option<u8>", []byte{0x02}, wire.IsMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := set.Codec(tt.typ)
			require.NoError(t, err)
			_, err = c.Unmarshal(tt.data)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestEncodeMismatch(t *testing.T) {
	set := compileTest(t, testSchema)

	tests := []struct {
		name string
		typ  string
		v    value.Value
	}{
		{"wrong scalar", "u8", value.U16(1)},
		{"missing required field", "Point", value.NewStruct(map[uint32]value.Value{1: value.I32(1)})},
		{"undeclared field", "Marker", value.NewStruct(map[uint32]value.Value{1: value.U8(1)})},
		{"undeclared variant", "Shape", value.Enum{Variant: 9}},
		{"array length", "[u8; 2]", value.List{value.U8(1)}},
		{"tuple arity", "(u8, u8)", value.Tuple{value.U8(1)}},
		{"repeated set element", "hash_set<u8>", value.Set{value.U8(1), value.U8(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := set.Codec(tt.typ)
			require.NoError(t, err)
			_, err = c.Marshal(tt.v)
			assert.True(t, IsMismatch(err), "unexpected error: %v", err)
		})
	}
}

func TestMapEncodingIsOrderIndependent(t *testing.T) {
	set := compileTest(t, testSchema)
	c, err := set.Codec("hash_map<string, u8>")
	require.NoError(t, err)

	a, err := c.Marshal(value.Map{
		{Key: value.String("b"), Value: value.U8(2)},
		{Key: value.String("a"), Value: value.U8(1)},
	})
	require.NoError(t, err)
	b, err := c.Marshal(value.Map{
		{Key: value.String("a"), Value: value.U8(1)},
		{Key: value.String("b"), Value: value.U8(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []byte{0x02, 0x01, 'a', 0x01, 0x01, 'b', 0x02}, a)
}

// =============================================================================
// Compile errors and registries
// =============================================================================

const foreignSchema = `
definitions: [
	{use: "time", element: "Instant"},
	{struct: "Event", fields: [{name: "at", id: 1, type: "Instant"}, {name: "seq", id: 2, type: "ext.Seq<u8>"}]},
]
`

func TestForeignTypes(t *testing.T) {
	schema, err := compiler.ParseSchema("foreign.cue", []byte(foreignSchema))
	require.NoError(t, err)

	_, err = Compile(schema)
	require.Error(t, err)
	assert.True(t, IsUnresolved(err))

	instant := NewForeign("time.Instant", wire.Varint, false,
		func(w *wire.Writer, v value.Value) error {
			n, ok := v.(value.U64)
			if !ok {
				return &MismatchError{Type: "time.Instant", Value: v}
			}
			w.WriteU64(uint64(n))
			return nil
		},
		func(r *wire.Reader) (value.Value, error) {
			n, err := r.ReadU64()
			if err != nil {
				return nil, err
			}
			return value.U64(n), nil
		},
	)
	registry := RegistryFunc(func(name string, args []*Codec) (*Codec, bool) {
		switch {
		case name == "time.Instant" && len(args) == 0:
			return instant, true
		case name == "ext.Seq" && len(args) == 1:
			return vecCodec("ext.Seq<"+args[0].Type()+">", args[0]), true
		}
		return nil, false
	})

	set, err := Compile(schema, WithRegistry(registry))
	require.NoError(t, err)
	roundTrip(t, set, "Event", value.NewStruct(map[uint32]value.Value{
		1: value.U64(1700000000),
		2: value.List{value.U8(1), value.U8(2)},
	}))

	_, err = Compile(schema, WithRegistry(MapRegistry{"time.Instant": instant}))
	assert.True(t, IsUnresolved(err), "generic foreign types need more than a MapRegistry")
}

func TestCompileRejectsInvalidSchema(t *testing.T) {
	schema, err := compiler.ParseSchema("bad.cue", []byte(`definitions: [{struct: "S", fields: [
		{name: "a", id: 1, type: "u8"},
		{name: "b", id: 1, type: "u8"},
	]}]`))
	require.NoError(t, err)

	_, err = Compile(schema)
	var invalid *compiler.ValidationError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Violations, 1)
	assert.Equal(t, compiler.ErrDuplicateFieldID, invalid.Violations[0].Code)
}

func TestMustCompilePanics(t *testing.T) {
	schema := &ir.Schema{Definitions: []ir.Definition{
		&ir.Struct{
			Name: ir.Name{Value: "S"},
			Fields: ir.NamedFields{{
				Name: ir.Name{Value: "x"},
				ID:   ir.ID{Value: 1},
				Type: ir.MustParseType("Nowhere"),
			}},
		},
	}}
	assert.Panics(t, func() { MustCompile(schema) })
}

func TestFailedInstantiationLeavesCacheClean(t *testing.T) {
	set := compileTest(t, testSchema)

	_, err := set.Lookup("Box", "Missing")
	require.Error(t, err)
	_, err = set.Lookup("Box", "Missing")
	assert.True(t, IsUnresolved(err))
}

func TestPolymorphicRecursionIsBounded(t *testing.T) {
	set := compileTest(t, `definitions: [
		{struct: "Nest", generics: ["T"], fields: [{name: "v", id: 1, type: "T"}, {name: "next", id: 2, type: "option<Nest<vec<T>>>"}]},
	]`)

	_, err := set.Lookup("Nest", "u8")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrTooDeep, ce.Code)
}

func TestDeepNonGenericChain(t *testing.T) {
	const depth = 100
	var src strings.Builder
	src.WriteString("definitions: [\n")
	for i := 0; i < depth; i++ {
		if i == depth-1 {
			fmt.Fprintf(&src, "\t{struct: \"S%d\", fields: [{name: \"v\", id: 1, type: \"u8\"}]},\n", i)
			continue
		}
		fmt.Fprintf(&src, "\t{struct: \"S%d\", fields: [{name: \"next\", id: 1, type: \"S%d\"}]},\n", i, i+1)
	}
	src.WriteString("]\n")

	set := compileTest(t, src.String())
	assert.Len(t, set.Types(), depth)

	leaf := value.NewStruct(map[uint32]value.Value{1: value.U8(7)})
	v := leaf
	for i := depth - 2; i >= 0; i-- {
		v = value.NewStruct(map[uint32]value.Value{1: v})
	}
	roundTrip(t, set, "S0", v)
}

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentLookup(t *testing.T) {
	set := compileTest(t, testSchema)

	const workers = 8
	codecs := make([]*Codec, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := set.Lookup("Box", "vec<Tree>")
			if err == nil {
				codecs[i] = c
			}
		}()
	}
	wg.Wait()

	for _, c := range codecs {
		require.NotNil(t, c)
		assert.Same(t, codecs[0], c)
	}
}

func TestCompileBatch(t *testing.T) {
	a, err := compiler.ParseSchema("a.cue", []byte(testSchema))
	require.NoError(t, err)
	b, err := compiler.ParseSchema("b.cue", []byte(`schema: "b", definitions: [{struct: "Only"}]`))
	require.NoError(t, err)

	sets, err := CompileBatch(context.Background(), []*ir.Schema{a, b})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "test", sets[0].Schema().Name)
	assert.Equal(t, []string{"Only"}, sets[1].Types())

	bad, err := compiler.ParseSchema("bad.cue", []byte(`definitions: [{struct: "S", generics: ["T"]}]`))
	require.NoError(t, err)
	_, err = CompileBatch(context.Background(), []*ir.Schema{a, bad})
	var invalid *compiler.ValidationError
	assert.True(t, errors.As(err, &invalid))
}

// =============================================================================
// Native form
// =============================================================================

func TestNativeRoundTrip(t *testing.T) {
	set := compileTest(t, testSchema)

	tests := []struct {
		typ string
		v   value.Value
	}{
		{"Person", person("ada", 36, value.Some(value.String("a@b")), "x")},
		{"Shape", value.Enum{Variant: 1}},
		{"Shape", value.Enum{Variant: 3, Fields: map[uint32]value.Value{1: value.Tuple{value.U8(1), value.U8(2)}}}},
		{"hash_map<u64, bytes>", value.Map{{Key: value.U64(1 << 60), Value: value.Bytes{0xde, 0xad}}}},
		{"[i128; 1]", value.List{value.I128(wire.Int128From64(-42))}},
		{"Marker", value.NewStruct(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			c, err := set.Codec(tt.typ)
			require.NoError(t, err)

			native, err := c.ToNative(tt.v)
			require.NoError(t, err)
			text, err := json.Marshal(native)
			require.NoError(t, err)

			dec := json.NewDecoder(bytes.NewReader(text))
			dec.UseNumber()
			var back any
			require.NoError(t, dec.Decode(&back))

			got, err := c.FromNative(back)
			require.NoError(t, err)
			assertValue(t, tt.v, got)
		})
	}
}

func TestNativeShape(t *testing.T) {
	set := compileTest(t, testSchema)
	c, err := set.Lookup("Shape")
	require.NoError(t, err)

	native, err := c.ToNative(value.Enum{Variant: 2, Fields: map[uint32]value.Value{1: value.F64(2.5)}})
	require.NoError(t, err)
	text, err := json.Marshal(native)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Circle": {"r": 2.5}}`, string(text))

	_, err = c.FromNative(map[string]any{"Hexagon": nil})
	assert.Error(t, err)

	u8, err := set.Codec("u8")
	require.NoError(t, err)
	_, err = u8.FromNative(json.Number("256"))
	assert.Error(t, err)
}
