// Package harness runs wire conformance scenarios against compiled schemas.
//
// A scenario names a schema, a type and a list of cases. Each case either
// encodes a value or supplies raw bytes, decodes the result with the reader
// schema, and checks the outcome.
//
// # Scenario Format
//
//	name: order_compat
//	description: "Readers skip fields added by newer writers"
//	schema: schemas/orders_v1.cue   # reader schema
//	writer: schemas/orders_v2.cue   # optional, defaults to schema
//	type: Order
//	cases:
//	  - name: round_trip
//	    value: {id: 5, note: null}
//	    expect:
//	      hex: "080511010000"
//	  - name: newer_field
//	    hex: "0805110100180700"
//	    expect:
//	      decoded: {id: 5}
//	  - name: empty
//	    hex: "00"
//	    expect:
//	      error: MISSING_FIELD
//
// Values use the native form of the codec package: objects for named
// fields, arrays for positional fields and tuples, {Variant: body} for enum
// variants, null for none, hex strings for bytes.
//
// # Checks
//
//   - expect.hex: the encoding of value equals the given bytes
//   - expect.decoded: the decoded value equals the given native value
//   - expect.error: decoding fails with the given wire error code
//
// A case with a value and no expect.decoded must round trip when the writer
// and reader schema are the same.
//
// # Golden Files
//
// RunWithGolden snapshots the bytes and decoded values of every case as
// canonical JSON under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
