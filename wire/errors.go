package wire

import (
	"errors"
	"fmt"
)

// Error is a decode failure. Decoding never returns a partially built value
// together with an Error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Offset is the reader position where the failure was detected.
	Offset int

	// FieldID identifies the field for missing-field and shape errors.
	FieldID uint32

	// FieldName is the declared name of the field, if it has one.
	FieldName string

	// VariantID identifies the variant for unknown-variant errors.
	VariantID uint32
}

// ErrorCode categorizes decode errors.
type ErrorCode string

const (
	// ErrCodeTruncated indicates the input ended inside a value.
	ErrCodeTruncated ErrorCode = "TRUNCATED"

	// ErrCodeMalformed indicates bytes that cannot be consumed as the
	// expected encoding: overlong varints, out-of-range integers, invalid
	// UTF-8, bad presence bytes, unknown shapes, trailing bytes.
	ErrCodeMalformed ErrorCode = "MALFORMED"

	// ErrCodeShapeMismatch indicates a known field id tagged with a shape
	// other than the one its declared type encodes to.
	ErrCodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"

	// ErrCodeUnknownVariant indicates an enum variant id that is not declared.
	ErrCodeUnknownVariant ErrorCode = "UNKNOWN_VARIANT"

	// ErrCodeMissingField indicates a required field never appeared.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeZeroNonZero indicates a zero or empty value where a non_zero
	// type was declared.
	ErrCodeZeroNonZero ErrorCode = "ZERO_NON_ZERO"

	// ErrCodeDuplicateEntry indicates a repeated hash_map key or hash_set
	// element.
	ErrCodeDuplicateEntry ErrorCode = "DUPLICATE_ENTRY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code == ErrCodeUnknownVariant:
		return fmt.Sprintf("%s: %s (variant=%d)", e.Code, e.Message, e.VariantID)
	case e.FieldName != "":
		return fmt.Sprintf("%s: %s (field=%d %q)", e.Code, e.Message, e.FieldID, e.FieldName)
	case e.FieldID != 0:
		return fmt.Sprintf("%s: %s (field=%d)", e.Code, e.Message, e.FieldID)
	default:
		return fmt.Sprintf("%s: %s (offset=%d)", e.Code, e.Message, e.Offset)
	}
}

func hasCode(err error, code ErrorCode) bool {
	var we *Error
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

// IsTruncated returns true if the error reports truncated input.
func IsTruncated(err error) bool { return hasCode(err, ErrCodeTruncated) }

// IsMalformed returns true if the error reports malformed input.
func IsMalformed(err error) bool { return hasCode(err, ErrCodeMalformed) }

// IsShapeMismatch returns true if the error reports a field shape mismatch.
func IsShapeMismatch(err error) bool { return hasCode(err, ErrCodeShapeMismatch) }

// IsUnknownVariant returns true if the error reports an unknown variant id.
func IsUnknownVariant(err error) bool { return hasCode(err, ErrCodeUnknownVariant) }

// IsMissingField returns true if the error reports a missing required field.
func IsMissingField(err error) bool { return hasCode(err, ErrCodeMissingField) }

// IsZeroNonZero returns true if the error reports an empty non_zero value.
func IsZeroNonZero(err error) bool { return hasCode(err, ErrCodeZeroNonZero) }

// IsDuplicateEntry returns true if the error reports a repeated key.
func IsDuplicateEntry(err error) bool { return hasCode(err, ErrCodeDuplicateEntry) }

// MissingField creates an Error for a required field that was never seen.
// name is empty for positional fields.
func MissingField(id uint32, name string) *Error {
	return &Error{
		Code:      ErrCodeMissingField,
		Message:   "required field not present",
		FieldID:   id,
		FieldName: name,
	}
}

// UnknownVariant creates an Error for an undeclared variant id.
func UnknownVariant(id uint32) *Error {
	return &Error{
		Code:      ErrCodeUnknownVariant,
		Message:   "unknown enum variant",
		VariantID: id,
	}
}

// ShapeMismatch creates an Error for a known field with an unexpected shape.
func ShapeMismatch(id uint32, want, got Shape) *Error {
	return &Error{
		Code:    ErrCodeShapeMismatch,
		Message: fmt.Sprintf("expected %s, found %s", want, got),
		FieldID: id,
	}
}

// WithField annotates err with the field it occurred in, if err is an *Error
// that does not carry a field yet.
func WithField(err error, id uint32, name string) error {
	var we *Error
	if errors.As(err, &we) && we.FieldID == 0 && we.Code != ErrCodeUnknownVariant {
		annotated := *we
		annotated.FieldID = id
		annotated.FieldName = name
		return &annotated
	}
	return err
}
