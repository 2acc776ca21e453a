package gogen

// Templates use «» as delimiters so that Go braces need no escaping.

const initialBody = `// Code generated by stefc from schema «printf "%q" .Schema». DO NOT EDIT.

package «.Package»
«if .Imports»
import (
«- range .Imports»
	«if .Name»«.Name» «end»«printf "%q" .Path»
«- end»
)
«end»
`

const structBody = `
«.Doc»type «.Name»«.TP.Params» struct {
«- range .Fields»
«.Doc»	«.GoName» «.Type»
«- end»
}
«if .Marker»
func («.Name»«.TP.Args») «.Marker»() {}
«end»
«- if .Unit»
// «.Encode» writes nothing: «.Name» has no fields.
«- else»
// «.Encode» writes the fields of v followed by the end marker.
«- end»
func «.Encode»«.TP.Params»(w *wire.Writer, v «.Name»«.TP.Args»«.TP.Trailing») {
«- if not .Unit»
«- range .Fields»
	wire.EncodeField(w, «.ID», «.Codec», v.«.GoName»)
«- end»
	w.WriteEnd()
«- end»
}

// «.Decode» reads the fields of a «.Name» up to the end marker, skipping
// fields it does not know.
func «.Decode»«.TP.Params»(r *wire.Reader«.TP.Trailing») («.Name»«.TP.Args», error) {
	var v «.Name»«.TP.Args»
«- if not .Unit»
«- if .Required»
	var seen [«.Required»]bool
«- end»
	for {
		id, shape, err := r.ReadTag()
		if err != nil {
			return «.Zero», err
		}
		if id == wire.EndMarker {
			break
		}
		switch id {
«- range .Fields»
		case «.ID»:
			if v.«.GoName», err = wire.DecodeField(r, «.ID», shape, «.Codec»); err != nil {
				return «$.Zero», wire.WithField(err, «.ID», «printf "%q" .Name»)
			}
«- if not .Optional»
			seen[«.Seen»] = true
«- end»
«- end»
		default:
			if err := r.Skip(shape); err != nil {
				return «.Zero», err
			}
		}
	}
«- range .Fields»
«- if not .Optional»
	if !seen[«.Seen»] {
		return «$.Zero», wire.MissingField(«.ID», «printf "%q" .Name»)
	}
«- end»
«- end»
«- end»
	return v, nil
}
«if .Codec»«template "codec" .»«end»`

const codecBody = `
// «.Codec» returns the codec of «.Name».
func «.Codec»«.TP.Params»(«.TP.Codecs») wire.Codec[«.Name»«.TP.Args»] {
«- if .Unit»
	return wire.Unit[«.Name»]()
«- else if .TP.Codecs»
	return wire.Struct(
		func(w *wire.Writer, v «.Name»«.TP.Args») { «.Encode»(w, v«.TP.TrailingArgs») },
		func(r *wire.Reader) («.Name»«.TP.Args», error) { return «.Decode»(r«.TP.TrailingArgs») },
	)
«- else»
	return wire.Struct(«.Encode», «.Decode»)
«- end»
}
`

const enumBody = `
«.Doc»type «.Name»«.TP.Params» interface {
	«.Marker»()
}
«range .Variants»«template "struct" .Body»«end»
// «.Encode» writes the variant id of v followed by the fields of the variant.
func «.Encode»«.TP.Params»(w *wire.Writer, v «.Name»«.TP.Args»«.TP.Trailing») {
«- if .Variants»
	switch x := v.(type) {
«- range .Variants»
	case «.Body.Name»«$.TP.Args»:
		w.WriteVariant(«.ID»)
		«.Body.Encode»(w, x«$.TP.TrailingArgs»)
«- end»
	default:
		panic("«.Encode»: unknown «.Name» variant")
	}
«- else»
	panic("«.Encode»: «.Name» has no variants")
«- end»
}

// «.Decode» reads a variant id and the fields of that variant.
func «.Decode»«.TP.Params»(r *wire.Reader«.TP.Trailing») («.Name»«.TP.Args», error) {
	id, err := r.ReadVariant()
	if err != nil {
		return nil, err
	}
	switch id {
«- range .Variants»
	case «.ID»:
		x, err := «.Body.Decode»(r«$.TP.TrailingArgs»)
		if err != nil {
			return nil, err
		}
		return x, nil
«- end»
	default:
		unknown := wire.UnknownVariant(id)
		unknown.Offset = r.Offset()
		return nil, unknown
	}
}
«template "codec" .»`

const aliasBody = `
«.Doc»type «.Name»«.TP.Params» = «.Target»

// «.Codec» returns the codec of «.Name».
func «.Codec»«.TP.Params»(«.TP.Codecs») wire.Codec[«.Name»«.TP.Args»] {
	return «.Value»
}
`

const constBody = `
«.Doc»«.Keyword» «.Name»«if .Type» «.Type»«end» = «.Value»
`

const tupleBody = `
// Tuple«.N» holds the elements of a tuple of size «.N».
type Tuple«.N»[«.Params» any] struct {
«- range .Elems»
	F«.I» «.Param»
«- end»
}

// Tuple«.N»Codec returns the codec of a Tuple«.N» built from the codecs of
// its elements. Elements are written back to back.
func Tuple«.N»Codec[«.Params» any](«.Codecs») wire.Codec[Tuple«.N»[«.Params»]] {
	return wire.Codec[Tuple«.N»[«.Params»]]{
		Shape:  wire.LengthPrefixed,
		Framed: true,
		Encode: func(w *wire.Writer, v Tuple«.N»[«.Params»]) {
«- range .Elems»
			«.Codec».Encode(w, v.F«.I»)
«- end»
		},
		Decode: func(r *wire.Reader) (Tuple«.N»[«.Params»], error) {
			var v Tuple«.N»[«.Params»]
			var err error
«- range .Elems»
			if v.F«.I», err = «.Codec».Decode(r); err != nil {
				return Tuple«$.N»[«$.Params»]{}, err
			}
«- end»
			return v, nil
		},
	}
}
`

const arrayBody = `
// array«.N»Codec returns the codec of an array of «.N» elements.
func array«.N»Codec[T any](elem wire.Codec[T]) wire.Codec[[«.N»]T] {
	return wire.Codec[[«.N»]T]{
		Shape:  wire.LengthPrefixed,
		Framed: true,
		Encode: func(w *wire.Writer, v [«.N»]T) { wire.EncodeArray(w, elem, v[:]) },
		Decode: func(r *wire.Reader) ([«.N»]T, error) {
			var v [«.N»]T
			if err := wire.DecodeArray(r, elem, v[:]); err != nil {
				return [«.N»]T{}, err
			}
			return v, nil
		},
	}
}
`
