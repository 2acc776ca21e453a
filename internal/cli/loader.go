package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/ir"
)

// CLI error codes. Schema violations carry the validator's own codes
// (E2xx) and codec compile errors E3xx.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No schema files found
	ErrCodeParseFailed = "E004" // Schema document cannot be parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBadInput    = "E006" // Malformed command input (JSON, hex, type name)
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Config file error
	ErrCodeCache       = "E009" // Build cache error
	ErrCodeDecode      = "E010" // Wire bytes do not decode
)

// LoadError is an error that occurred while loading schema files.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadedSchema is a parsed schema and the file it came from.
type LoadedSchema struct {
	Path   string
	Schema *ir.Schema
}

// LoadSchemas parses every schema named by paths. A directory contributes
// all .cue files below it. Loading stops at the first error.
func LoadSchemas(paths []string) ([]LoadedSchema, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "path not found", Path: p, Err: err}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Path: p, Err: err}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := compiler.FindSchemaFiles(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Path: p, Err: err}
		}
		if len(found) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no .cue files found", Path: p}
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no schema files given"}
	}

	schemas := make([]LoadedSchema, 0, len(files))
	for _, f := range files {
		s, err := compiler.LoadSchema(f)
		if err != nil {
			var pe *compiler.ParseError
			if errors.As(err, &pe) {
				return nil, &LoadError{Code: ErrCodeParseFailed, Message: pe.Message, Path: f, Err: err}
			}
			return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error(), Path: f, Err: err}
		}
		schemas = append(schemas, LoadedSchema{Path: f, Schema: s})
	}
	return schemas, nil
}

// loadFailure renders a LoadError (or any other error) and returns the
// command exit error.
func loadFailure(f *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		msg := le.Message
		if le.Path != "" {
			msg = le.Path + ": " + msg
		}
		return f.Fail(ExitCommandError, le.Code, msg, nil)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
