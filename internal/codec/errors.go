package codec

import (
	"errors"
	"fmt"

	"github.com/roach88/stef/internal/ir"
)

// Compile error codes (E300-E399)
const (
	ErrUnresolved = "E301" // reference names neither a schema type nor a foreign one
	ErrArity      = "E302" // wrong number of generic arguments
	ErrNotAType   = "E303" // reference names a constant, module or import
	ErrBadType    = "E304" // ad-hoc type expression violates a type invariant
	ErrTooDeep    = "E305" // generic instantiation does not terminate
)

// CompileError reports a type reference that cannot be compiled.
type CompileError struct {
	Code    string  `json:"code"`
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Span    ir.Span `json:"span"`
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// IsUnresolved returns true if err reports an unresolved type reference.
func IsUnresolved(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrUnresolved
}
