// Package gogen renders a validated schema as Go source.
//
// Every struct, enum and alias becomes a Go type plus three functions:
// EncodeX and DecodeX, which read and write the body of X on a wire.Writer
// or wire.Reader, and XCodec, which returns a wire.Codec[X]. Generic
// definitions become generic Go types; each type parameter T is paired with
// a codecT wire.Codec[T] argument. Definitions inside modules are prefixed
// with the module names, so geo.Place is emitted as GeoPlace.
//
// The bytes written by generated code are identical to those of the
// in-memory codecs built by package codec.
package gogen
