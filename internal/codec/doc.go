// Package codec compiles a validated schema into in-memory encoders and
// decoders over the dynamic value model in package value.
//
// Compile walks every non-generic type once and builds a tree of closures
// that write and read the wire format defined by package wire. Generic
// definitions are instantiated on demand, one codec per distinct argument
// list. Recursive types are bound late: a struct or enum codec is entered
// into the instantiation cache before its body is compiled, so references
// back to it resolve to the same codec.
//
// A compiled Set is safe for concurrent use.
package codec
