// Package ir provides the schema intermediate representation for stef.
//
// The IR is a pure tree: definitions, fields, types and literals, with
// cross-references expressed only as name paths (never back-pointers).
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - The IR is built once by a frontend and never mutated afterwards
//   - Every node that can be reported on carries a byte-offset Span
//   - Sum types (DataType, Fields, Definition, Literal) are sealed interfaces
//   - Generic parameter occurrences are External references with an empty
//     path and no arguments
package ir
