package wire

import (
	"fmt"
	"math/big"
)

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	Hi, Lo uint64
}

// Int128 is a signed 128-bit integer in two's complement.
type Int128 struct {
	Hi, Lo uint64
}

// IsZero reports whether u is zero.
func (u Uint128) IsZero() bool { return u.Hi == 0 && u.Lo == 0 }

// IsZero reports whether i is zero.
func (i Int128) IsZero() bool { return i.Hi == 0 && i.Lo == 0 }

// Uint128From64 widens a uint64.
func Uint128From64(v uint64) Uint128 { return Uint128{Lo: v} }

// Int128From64 widens an int64 with sign extension.
func Int128From64(v int64) Int128 {
	hi := uint64(0)
	if v < 0 {
		hi = ^uint64(0)
	}
	return Int128{Hi: hi, Lo: uint64(v)}
}

// Negative reports whether i is below zero.
func (i Int128) Negative() bool { return int64(i.Hi) < 0 }

var (
	two128    = new(big.Int).Lsh(big.NewInt(1), 128)
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Big returns u as a big.Int.
func (u Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(u.Hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(u.Lo))
}

// Big returns i as a big.Int.
func (i Int128) Big() *big.Int {
	b := Uint128(i).Big()
	if i.Negative() {
		b.Sub(b, two128)
	}
	return b
}

func (u Uint128) String() string { return u.Big().String() }
func (i Int128) String() string  { return i.Big().String() }

// Uint128FromBig converts b, failing when it is out of range.
func Uint128FromBig(b *big.Int) (Uint128, error) {
	if b.Sign() < 0 || b.BitLen() > 128 {
		return Uint128{}, fmt.Errorf("value %s out of range for u128", b)
	}
	lo := new(big.Int).And(b, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(b, 64)
	return Uint128{Hi: hi.Uint64(), Lo: lo.Uint64()}, nil
}

// Int128FromBig converts b, failing when it is out of range.
func Int128FromBig(b *big.Int) (Int128, error) {
	if b.Cmp(minInt128) < 0 || b.Cmp(maxInt128) > 0 {
		return Int128{}, fmt.Errorf("value %s out of range for i128", b)
	}
	v := new(big.Int).Set(b)
	if v.Sign() < 0 {
		v.Add(v, two128)
	}
	u, err := Uint128FromBig(v)
	if err != nil {
		return Int128{}, err
	}
	return Int128(u), nil
}

// zigzag maps signed to unsigned so small magnitudes stay small.
func zigzag64(v int64) uint64 { return uint64(v<<1) ^ uint64(v>>63) }

func unzigzag64(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

func zigzag128(v Int128) Uint128 {
	// v << 1
	hi := v.Hi<<1 | v.Lo>>63
	lo := v.Lo << 1
	// v >> 127, arithmetic: all ones when negative
	var sign uint64
	if v.Negative() {
		sign = ^uint64(0)
	}
	return Uint128{Hi: hi ^ sign, Lo: lo ^ sign}
}

func unzigzag128(u Uint128) Int128 {
	// u >> 1
	hi := u.Hi >> 1
	lo := u.Lo>>1 | u.Hi<<63
	var mask uint64
	if u.Lo&1 == 1 {
		mask = ^uint64(0)
	}
	return Int128{Hi: hi ^ mask, Lo: lo ^ mask}
}
