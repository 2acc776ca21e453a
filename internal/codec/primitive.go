package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/roach88/stef/internal/ir"
	"github.com/roach88/stef/internal/value"
	"github.com/roach88/stef/wire"
)

// scalar adapts a typed wire codec to dynamic values of type V.
func scalar[V value.Value, T any](typ string, wc wire.Codec[T], to func(V) T, from func(T) V) *Codec {
	return &Codec{
		typ:    typ,
		shape:  wc.Shape,
		framed: wc.Framed,
		encode: func(w *wire.Writer, v value.Value) error {
			x, ok := v.(V)
			if !ok {
				return mismatch(typ, v)
			}
			wc.Encode(w, to(x))
			return nil
		},
		decode: func(r *wire.Reader) (value.Value, error) {
			x, err := wc.Decode(r)
			if err != nil {
				return nil, err
			}
			return from(x), nil
		},
	}
}

func primitive(p ir.Primitive) *Codec {
	typ := p.String()
	var c *Codec
	switch p {
	case ir.Bool:
		c = scalar(typ, wire.Bool, func(v value.Bool) bool { return bool(v) }, func(x bool) value.Bool { return value.Bool(x) })
	case ir.U8:
		c = scalar(typ, wire.U8, func(v value.U8) uint8 { return uint8(v) }, func(x uint8) value.U8 { return value.U8(x) })
	case ir.U16:
		c = scalar(typ, wire.U16, func(v value.U16) uint16 { return uint16(v) }, func(x uint16) value.U16 { return value.U16(x) })
	case ir.U32:
		c = scalar(typ, wire.U32, func(v value.U32) uint32 { return uint32(v) }, func(x uint32) value.U32 { return value.U32(x) })
	case ir.U64:
		c = scalar(typ, wire.U64, func(v value.U64) uint64 { return uint64(v) }, func(x uint64) value.U64 { return value.U64(x) })
	case ir.U128:
		c = scalar(typ, wire.U128, func(v value.U128) wire.Uint128 { return wire.Uint128(v) }, func(x wire.Uint128) value.U128 { return value.U128(x) })
	case ir.I8:
		c = scalar(typ, wire.I8, func(v value.I8) int8 { return int8(v) }, func(x int8) value.I8 { return value.I8(x) })
	case ir.I16:
		c = scalar(typ, wire.I16, func(v value.I16) int16 { return int16(v) }, func(x int16) value.I16 { return value.I16(x) })
	case ir.I32:
		c = scalar(typ, wire.I32, func(v value.I32) int32 { return int32(v) }, func(x int32) value.I32 { return value.I32(x) })
	case ir.I64:
		c = scalar(typ, wire.I64, func(v value.I64) int64 { return int64(v) }, func(x int64) value.I64 { return value.I64(x) })
	case ir.I128:
		c = scalar(typ, wire.I128, func(v value.I128) wire.Int128 { return wire.Int128(v) }, func(x wire.Int128) value.I128 { return value.I128(x) })
	case ir.F32:
		c = scalar(typ, wire.F32, func(v value.F32) float32 { return float32(v) }, func(x float32) value.F32 { return value.F32(x) })
	case ir.F64:
		c = scalar(typ, wire.F64, func(v value.F64) float64 { return float64(v) }, func(x float64) value.F64 { return value.F64(x) })
	case ir.String, ir.StringRef, ir.BoxString:
		c = scalar(typ, wire.String, func(v value.String) string { return string(v) }, func(x string) value.String { return value.String(x) })
	case ir.Bytes, ir.BytesRef, ir.BoxBytes:
		c = scalar(typ, wire.Bytes, func(v value.Bytes) []byte { return []byte(v) }, func(x []byte) value.Bytes { return value.Bytes(x) })
	default:
		panic(fmt.Sprintf("codec: unknown primitive %d", p))
	}

	switch {
	case p == ir.Bool:
		c.toNative = func(v value.Value) (any, error) {
			b, ok := v.(value.Bool)
			if !ok {
				return nil, mismatch(typ, v)
			}
			return bool(b), nil
		}
		c.fromNative = func(x any) (value.Value, error) {
			b, ok := x.(bool)
			if !ok {
				return nil, nativeError(typ, x)
			}
			return value.Bool(b), nil
		}
	case p.IsInteger():
		c.toNative = func(v value.Value) (any, error) {
			if _, err := c.Marshal(v); err != nil {
				return nil, err
			}
			return json.Number(value.Format(v)), nil
		}
		c.fromNative = func(x any) (value.Value, error) {
			n, ok := nativeInt(x)
			if !ok {
				return nil, nativeError(typ, x)
			}
			v, ok := IntValue(p, n)
			if !ok {
				return nil, fmt.Errorf("codec: %s out of range for %s", n, typ)
			}
			return v, nil
		}
	case p.IsFloat():
		c.toNative = func(v value.Value) (any, error) {
			var f float64
			switch x := v.(type) {
			case value.F32:
				if p != ir.F32 {
					return nil, mismatch(typ, v)
				}
				f = float64(x)
			case value.F64:
				if p != ir.F64 {
					return nil, mismatch(typ, v)
				}
				f = float64(x)
			default:
				return nil, mismatch(typ, v)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return strconv.FormatFloat(f, 'g', -1, 64), nil
			}
			return f, nil
		}
		c.fromNative = func(x any) (value.Value, error) {
			f, ok := nativeFloat(x)
			if !ok {
				return nil, nativeError(typ, x)
			}
			if p == ir.F32 {
				return value.F32(float32(f)), nil
			}
			return value.F64(f), nil
		}
	case p.IsStringLike():
		c.toNative = func(v value.Value) (any, error) {
			s, ok := v.(value.String)
			if !ok {
				return nil, mismatch(typ, v)
			}
			return string(s), nil
		}
		c.fromNative = func(x any) (value.Value, error) {
			s, ok := x.(string)
			if !ok {
				return nil, nativeError(typ, x)
			}
			return value.String(s), nil
		}
	default:
		c.toNative = func(v value.Value) (any, error) {
			b, ok := v.(value.Bytes)
			if !ok {
				return nil, mismatch(typ, v)
			}
			return hex.EncodeToString(b), nil
		}
		c.fromNative = func(x any) (value.Value, error) {
			s, ok := x.(string)
			if !ok {
				return nil, nativeError(typ, x)
			}
			b, err := hex.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("codec: %s: %w", typ, err)
			}
			return value.Bytes(b), nil
		}
	}
	return c
}

var primitives = func() map[ir.Primitive]*Codec {
	m := make(map[ir.Primitive]*Codec)
	for p := ir.Bool; p <= ir.BoxBytes; p++ {
		m[p] = primitive(p)
	}
	return m
}()

// IntValue converts n to the dynamic value of the integer primitive p.
// ok is false if n does not fit.
func IntValue(p ir.Primitive, n *big.Int) (value.Value, bool) {
	if !(ir.IntLiteral{Value: n}).FitsPrimitive(p) {
		return nil, false
	}
	switch p {
	case ir.U8:
		return value.U8(n.Uint64()), true
	case ir.U16:
		return value.U16(n.Uint64()), true
	case ir.U32:
		return value.U32(n.Uint64()), true
	case ir.U64:
		return value.U64(n.Uint64()), true
	case ir.U128:
		u, err := wire.Uint128FromBig(n)
		return value.U128(u), err == nil
	case ir.I8:
		return value.I8(n.Int64()), true
	case ir.I16:
		return value.I16(n.Int64()), true
	case ir.I32:
		return value.I32(n.Int64()), true
	case ir.I64:
		return value.I64(n.Int64()), true
	case ir.I128:
		i, err := wire.Int128FromBig(n)
		return value.I128(i), err == nil
	default:
		return nil, false
	}
}

func nativeInt(x any) (*big.Int, bool) {
	switch n := x.(type) {
	case json.Number:
		return new(big.Int).SetString(n.String(), 10)
	case string:
		return new(big.Int).SetString(n, 10)
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, false
		}
		b, _ := big.NewFloat(n).Int(nil)
		return b, true
	case int:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	default:
		return nil, false
	}
}

func nativeFloat(x any) (float64, bool) {
	switch f := x.(type) {
	case float64:
		return f, true
	case json.Number:
		v, err := f.Float64()
		return v, err == nil
	case string:
		v, err := strconv.ParseFloat(f, 64)
		return v, err == nil
	case int:
		return float64(f), true
	default:
		return 0, false
	}
}

func nativeError(typ string, x any) error {
	return fmt.Errorf("codec: cannot convert %T to %s", x, typ)
}
