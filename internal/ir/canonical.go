package ir

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON.
// It is the only serialization used for schema hashing.
//
// Accepted inputs are trees of map[string]any, []any, string, bool and
// integer values. Floats and nil are rejected: float literals are carried as
// strings by ToTree so their spelling is exact.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes a JSON string, NFC normalized, without HTML
// escaping. U+2028 and U+2029 are written literally.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters, leaving an escaped backslash followed by "u2028" untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			out = append(out, data[i])
			continue
		}
		if i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		// Any other escape: copy the backslash and the escaped byte together.
		out = append(out, data[i])
		if i+1 < len(data) {
			i++
			out = append(out, data[i])
		}
	}
	return out
}

// compareKeysRFC8785 orders keys by UTF-16 code units, not UTF-8 bytes.
func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// TreeOptions controls ToTree output.
type TreeOptions struct {
	// Spans includes source spans on every node.
	Spans bool
}

// ToTree converts a schema into a JSON-shaped tree suitable for
// MarshalCanonical or encoding/json. Definitions keep declaration order.
func ToTree(s *Schema, opts TreeOptions) map[string]any {
	t := treeBuilder{opts: opts}
	return map[string]any{
		"ir_version":  IRVersion,
		"name":        s.Name,
		"definitions": t.defs(s.Definitions),
	}
}

type treeBuilder struct {
	opts TreeOptions
}

func (t treeBuilder) span(obj map[string]any, s Span) map[string]any {
	if t.opts.Spans {
		obj["span"] = []any{int64(s.Start), int64(s.End)}
	}
	return obj
}

func (t treeBuilder) defs(defs []Definition) []any {
	out := make([]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, t.def(d))
	}
	return out
}

func comment(c Comment) []any {
	out := make([]any, len(c))
	for i, line := range c {
		out[i] = line
	}
	return out
}

func (t treeBuilder) name(n Name) map[string]any {
	return t.span(map[string]any{"value": n.Value}, n.Span)
}

func (t treeBuilder) generics(g Generics) []any {
	out := make([]any, len(g))
	for i, n := range g {
		out[i] = t.name(n)
	}
	return out
}

func (t treeBuilder) def(d Definition) map[string]any {
	switch v := d.(type) {
	case *Struct:
		return map[string]any{
			"kind":     "struct",
			"comment":  comment(v.Comment),
			"name":     t.name(v.Name),
			"generics": t.generics(v.Generics),
			"fields":   t.fields(v.Fields),
		}
	case *Enum:
		variants := make([]any, len(v.Variants))
		for i, vr := range v.Variants {
			variants[i] = t.span(map[string]any{
				"comment": comment(vr.Comment),
				"name":    t.name(vr.Name),
				"id":      t.id(vr.ID),
				"fields":  t.fields(vr.Fields),
			}, vr.Span)
		}
		return map[string]any{
			"kind":     "enum",
			"comment":  comment(v.Comment),
			"name":     t.name(v.Name),
			"generics": t.generics(v.Generics),
			"variants": variants,
		}
	case *TypeAlias:
		return map[string]any{
			"kind":     "alias",
			"comment":  comment(v.Comment),
			"name":     t.name(v.Name),
			"generics": t.generics(v.Generics),
			"target":   t.typ(v.Target),
		}
	case *Const:
		return t.span(map[string]any{
			"kind":    "const",
			"comment": comment(v.Comment),
			"name":    t.name(v.Name),
			"type":    t.typ(v.Type),
			"value":   literalTree(v.Value),
		}, v.Span)
	case *Import:
		segments := make([]any, len(v.Segments))
		for i, s := range v.Segments {
			segments[i] = t.name(s)
		}
		obj := map[string]any{
			"kind":     "import",
			"segments": segments,
		}
		if v.Element != nil {
			obj["element"] = t.name(*v.Element)
		}
		return t.span(obj, v.Span)
	case *Module:
		return map[string]any{
			"kind":        "module",
			"comment":     comment(v.Comment),
			"name":        t.name(v.Name),
			"definitions": t.defs(v.Definitions),
		}
	default:
		panic(fmt.Sprintf("ir: unknown definition %T", d))
	}
}

func (t treeBuilder) id(id ID) map[string]any {
	return t.span(map[string]any{"value": id.Value}, id.Span)
}

func (t treeBuilder) fields(f Fields) map[string]any {
	switch v := f.(type) {
	case NamedFields:
		list := make([]any, len(v))
		for i, nf := range v {
			list[i] = map[string]any{
				"comment": comment(nf.Comment),
				"name":    t.name(nf.Name),
				"type":    t.typ(nf.Type),
				"id":      t.id(nf.ID),
			}
		}
		return map[string]any{"kind": "named", "fields": list}
	case UnnamedFields:
		list := make([]any, len(v))
		for i, uf := range v {
			list[i] = t.span(map[string]any{
				"type": t.typ(uf.Type),
				"id":   t.id(uf.ID),
			}, uf.Span)
		}
		return map[string]any{"kind": "unnamed", "fields": list}
	default:
		return map[string]any{"kind": "unit"}
	}
}

// typ renders types as their schema spelling; the spelling is unambiguous.
func (t treeBuilder) typ(ty Type) any {
	return t.span(map[string]any{"type": ty.String()}, ty.Span)
}

func literalTree(l Literal) map[string]any {
	switch v := l.(type) {
	case BoolLiteral:
		return map[string]any{"bool": bool(v)}
	case IntLiteral:
		return map[string]any{"int": v.Value.String()}
	case FloatLiteral:
		return map[string]any{"float": strconv.FormatFloat(float64(v), 'g', -1, 64)}
	case StringLiteral:
		return map[string]any{"string": string(v)}
	case BytesLiteral:
		return map[string]any{"bytes": hex.EncodeToString(v)}
	default:
		panic(fmt.Sprintf("ir: unknown literal %T", l))
	}
}
