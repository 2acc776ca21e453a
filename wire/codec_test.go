package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, c Codec[T], v T) T {
	t.Helper()
	got, err := Unmarshal(c, Marshal(c, v))
	require.NoError(t, err)
	return got
}

func TestContainerRoundTrip(t *testing.T) {
	one := uint32(1)

	nested := Vec(HashMap(String, Option(Vec(U8))))
	in := []map[string]*[]uint8{
		{"a": &[]uint8{1, 2}, "b": nil},
		{},
	}
	got := roundTrip(t, nested, in)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	opt := roundTrip(t, Option(U32), &one)
	require.NotNil(t, opt)
	assert.Equal(t, uint32(1), *opt)
	assert.Nil(t, roundTrip(t, Option(U32), nil))

	set := roundTrip(t, HashSet(I64), map[int64]struct{}{-1: {}, 5: {}})
	assert.Len(t, set, 2)
	assert.Contains(t, set, int64(-1))
}

func TestOptionEncoding(t *testing.T) {
	v := uint32(300)
	assert.Equal(t, []byte{0x00}, Marshal(Option(U32), nil))
	assert.Equal(t, []byte{0x01, 0xac, 0x02}, Marshal(Option(U32), &v))
}

func TestHashMapEncodingIsDeterministic(t *testing.T) {
	m := map[string]uint8{"b": 2, "a": 1, "c": 3}
	first := Marshal(HashMap(String, U8), m)
	for range 20 {
		assert.Equal(t, first, Marshal(HashMap(String, U8), m))
	}
	// count 3, then entries ordered by encoded key
	assert.Equal(t, []byte{3, 1, 'a', 1, 1, 'b', 2, 1, 'c', 3}, first)
}

func TestHashMapRejectsDuplicateKeys(t *testing.T) {
	data := []byte{2, 1, 'a', 1, 1, 'a', 2}
	_, err := Unmarshal(HashMap(String, U8), data)
	require.Error(t, err)
	assert.True(t, IsDuplicateEntry(err))
}

func TestHashSetRejectsDuplicates(t *testing.T) {
	_, err := Unmarshal(HashSet(U8), []byte{2, 9, 9})
	require.Error(t, err)
	assert.True(t, IsDuplicateEntry(err))
}

func TestVecTruncatedReturnsNoPartialValue(t *testing.T) {
	got, err := Unmarshal(Vec(U16), []byte{3, 1, 2})
	require.Error(t, err)
	assert.True(t, IsTruncated(err))
	assert.Nil(t, got)
}

func TestArray(t *testing.T) {
	var w Writer
	EncodeArray(&w, U8, []uint8{4, 5, 6})
	assert.Equal(t, []byte{3, 4, 5, 6}, w.Bytes())

	var dst [3]uint8
	require.NoError(t, DecodeArray(NewReader(w.Bytes()), U8, dst[:]))
	assert.Equal(t, [3]uint8{4, 5, 6}, dst)

	var short [2]uint8
	err := DecodeArray(NewReader(w.Bytes()), U8, short[:])
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestUnitCodec(t *testing.T) {
	type empty struct{}
	c := Unit[empty]()
	assert.Empty(t, Marshal(c, empty{}))
	assert.Equal(t, LengthPrefixed, c.Shape)
	assert.True(t, c.Framed)
}

// =============================================================================
// NonZero
// =============================================================================

func TestNonZeroConstruction(t *testing.T) {
	_, err := NewNonZero(uint32(0), IsZero[uint32])
	assert.ErrorIs(t, err, ErrZero)

	_, err = NewNonZero("", IsZero[string])
	assert.ErrorIs(t, err, ErrZero)

	_, err = NewNonZero([]byte{}, IsEmptySlice[byte])
	assert.ErrorIs(t, err, ErrZero)

	_, err = NewNonZero(map[string]uint8{}, IsEmptyMap[string, uint8])
	assert.ErrorIs(t, err, ErrZero)

	nz, err := NewNonZero(uint32(7), IsZero[uint32])
	require.NoError(t, err)
	assert.True(t, nz.Valid())
	assert.Equal(t, uint32(7), nz.Get())
}

func TestNonZeroCodec(t *testing.T) {
	c := NonZeroOf(U32, IsZero[uint32])
	assert.Equal(t, Varint, c.Shape)

	got := roundTrip(t, c, MustNonZero(uint32(9), IsZero[uint32]))
	assert.Equal(t, uint32(9), got.Get())

	_, err := Unmarshal(c, []byte{0})
	require.Error(t, err)
	assert.True(t, IsZeroNonZero(err))

	vec := NonZeroOf(Vec(U8), IsEmptySlice[uint8])
	assert.True(t, vec.Framed)
	_, err = Unmarshal(vec, []byte{0})
	assert.True(t, IsZeroNonZero(err))
}

func TestNonZeroEncodeEmptyPanics(t *testing.T) {
	c := NonZeroOf(String, IsZero[string])
	assert.Panics(t, func() { Marshal(c, NonZero[string]{}) })
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, MissingField(3, "name").Error(), `field=3 "name"`)
	assert.Contains(t, MissingField(2, "").Error(), "field=2")
	assert.Contains(t, UnknownVariant(9).Error(), "variant=9")

	err := WithField(&Error{Code: ErrCodeTruncated, Message: "eof"}, 5, "tail")
	assert.True(t, IsTruncated(err))
	assert.Contains(t, err.Error(), `field=5 "tail"`)
}
