package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/stef/wire"
)

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		v     Value
		empty bool
		ok    bool
	}{
		{"zero u8", U8(0), true, true},
		{"u64", U64(7), false, true},
		{"zero i128", I128(wire.Int128{}), true, true},
		{"negative i128", I128(wire.Int128From64(-1)), false, true},
		{"u128 high bits", U128(wire.Uint128{Hi: 1}), false, true},
		{"empty string", String(""), true, true},
		{"string", String("a"), false, true},
		{"nil bytes", Bytes(nil), true, true},
		{"empty list", List{}, true, true},
		{"set", Set{U8(1)}, false, true},
		{"empty map", Map{}, true, true},
		{"bool has no predicate", Bool(false), false, false},
		{"float has no predicate", F64(0), false, false},
		{"option has no predicate", None, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			empty, ok := IsEmpty(tt.v)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.empty, empty)
		})
	}
}

func TestKeyDistinguishesTypes(t *testing.T) {
	assert.NotEqual(t, Key(U8(1)), Key(U16(1)))
	assert.NotEqual(t, Key(I32(1)), Key(U32(1)))
	assert.NotEqual(t, Key(List{U8(1)}), Key(Tuple{U8(1)}))
	assert.NotEqual(t, Key(None), Key(Some(U8(0))))
	assert.NotEqual(t, Key(String("1")), Key(U8(1)))
}

func TestEqualIgnoresSetAndMapOrder(t *testing.T) {
	assert.True(t, Equal(Set{U8(1), U8(2)}, Set{U8(2), U8(1)}))
	assert.True(t, Equal(
		Map{{Key: String("a"), Value: U8(1)}, {Key: String("b"), Value: U8(2)}},
		Map{{Key: String("b"), Value: U8(2)}, {Key: String("a"), Value: U8(1)}},
	))
	assert.False(t, Equal(
		Map{{Key: String("a"), Value: U8(1)}},
		Map{{Key: String("a"), Value: U8(2)}},
	))
	assert.False(t, Equal(List{U8(1), U8(2)}, List{U8(2), U8(1)}))
}

func TestEqualFloatsBitwise(t *testing.T) {
	nan := F64(math.NaN())
	assert.True(t, Equal(nan, nan))
	assert.False(t, Equal(F64(0), F64(math.Copysign(0, -1))))
	assert.True(t, Equal(F32(1.5), F32(1.5)))
}

func TestEqualStructsAndEnums(t *testing.T) {
	a := NewStruct(map[uint32]Value{1: U8(1), 2: Some(String("x"))})
	b := NewStruct(map[uint32]Value{2: Some(String("x")), 1: U8(1)})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, NewStruct(nil)))

	e1 := Enum{Variant: 1, Fields: map[uint32]Value{1: U8(1)}}
	e2 := Enum{Variant: 2, Fields: map[uint32]Value{1: U8(1)}}
	assert.False(t, Equal(e1, e2))
	assert.True(t, Equal(e1, Enum{Variant: 1, Fields: map[uint32]Value{1: U8(1)}}))
}

func TestEqualBytesAndNil(t *testing.T) {
	assert.True(t, Equal(Bytes{1, 2}, Bytes{1, 2}))
	assert.False(t, Equal(Bytes{1, 2}, String("\x01\x02")))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, U8(0)))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{U8(7), "7"},
		{I64(-3), "-3"},
		{U128(wire.Uint128{Hi: 1}), "18446744073709551616"},
		{I128(wire.Int128From64(-5)), "-5"},
		{F32(0.1), "0.1"},
		{String("hi"), `"hi"`},
		{Bytes{0xab, 0x01}, "0xab01"},
		{List{U8(1), U8(2)}, "[1, 2]"},
		{Tuple{Bool(true), None}, "(true, none)"},
		{Some(U16(9)), "some(9)"},
		{Map{{Key: String("k"), Value: U8(1)}}, `{"k": 1}`},
		{NewStruct(map[uint32]Value{2: U8(2), 1: U8(1)}), "{1: 1, 2: 2}"},
		{Enum{Variant: 3}, "#3{}"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.v))
		})
	}
}
