package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/stef/internal/codec"
	"github.com/roach88/stef/internal/value"
	"github.com/roach88/stef/wire"
)

var errorCodes = []wire.ErrorCode{
	wire.ErrCodeTruncated,
	wire.ErrCodeMalformed,
	wire.ErrCodeShapeMismatch,
	wire.ErrCodeUnknownVariant,
	wire.ErrCodeMissingField,
	wire.ErrCodeZeroNonZero,
	wire.ErrCodeDuplicateEntry,
}

func knownErrorCode(code string) bool {
	for _, c := range errorCodes {
		if string(c) == code {
			return true
		}
	}
	return false
}

// AssertionError is returned when a case does not meet its expectation.
type AssertionError struct {
	Case     string
	Check    string // "hex", "decoded", "error" or "round_trip"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "case %q: %s check failed\n", e.Case, e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// errorCode returns the wire error code of err, or "" if err is not a
// wire error.
func errorCode(err error) string {
	var we *wire.Error
	if errors.As(err, &we) {
		return string(we.Code)
	}
	return ""
}

func assertHex(name, want, got string) error {
	if strings.EqualFold(want, got) {
		return nil
	}
	return &AssertionError{Case: name, Check: "hex", Expected: strings.ToLower(want), Actual: got}
}

func assertError(name, want string, err error) error {
	if err == nil {
		return &AssertionError{Case: name, Check: "error", Expected: want, Actual: "decode succeeded"}
	}
	if got := errorCode(err); got != want {
		return &AssertionError{Case: name, Check: "error", Expected: want, Actual: err.Error()}
	}
	return nil
}

// assertDecoded converts the expected native value with the reader codec
// and compares it with the decoded value.
func assertDecoded(name string, reader *codec.Codec, want any, got value.Value) error {
	expected, err := reader.FromNative(want)
	if err != nil {
		return fmt.Errorf("case %q: expect.decoded: %w", name, err)
	}
	if value.Equal(expected, got) {
		return nil
	}
	return &AssertionError{Case: name, Check: "decoded", Expected: value.Format(expected), Actual: value.Format(got)}
}

func assertRoundTrip(name string, encoded, decoded value.Value) error {
	if value.Equal(encoded, decoded) {
		return nil
	}
	return &AssertionError{Case: name, Check: "round_trip", Expected: value.Format(encoded), Actual: value.Format(decoded)}
}
