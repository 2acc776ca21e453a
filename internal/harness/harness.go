package harness

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stef/internal/codec"
	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/value"
)

// Harness executes scenarios.
type Harness struct {
	logger *slog.Logger
}

// New returns a harness that logs case outcomes to logger.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with logging suppressed.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// Run executes a scenario and returns the result.
//
// Errors are returned for scenarios that cannot run at all: schemas that
// fail to load or compile, or an unknown type. Failed expectations are
// recorded in the result instead.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	reader, err := h.codecFor(scenario.Schema, scenario.Type)
	if err != nil {
		return nil, fmt.Errorf("reader schema: %w", err)
	}
	writer := reader
	if scenario.Writer != "" && scenario.Writer != scenario.Schema {
		if writer, err = h.codecFor(scenario.Writer, scenario.Type); err != nil {
			return nil, fmt.Errorf("writer schema: %w", err)
		}
	}
	sameSchema := writer == reader

	result := NewResult()
	for _, c := range scenario.Cases {
		cr, err := h.runCase(c, writer, reader, sameSchema)
		if cr.Name != "" {
			result.Cases = append(result.Cases, cr)
		}
		if err != nil {
			result.AddError(err.Error())
		}
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"cases", len(scenario.Cases),
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) codecFor(path, typ string) (*codec.Codec, error) {
	schema, err := compiler.LoadSchema(path)
	if err != nil {
		return nil, err
	}
	set, err := codec.Compile(schema)
	if err != nil {
		return nil, err
	}
	return set.Lookup(typ)
}

// runCase encodes or reads the case input, decodes it and checks the
// expectation. A zero CaseResult means the case could not produce input.
func (h *Harness) runCase(c Case, writer, reader *codec.Codec, sameSchema bool) (CaseResult, error) {
	var (
		input   []byte
		encoded value.Value
	)
	if c.Value != nil {
		v, err := writer.FromNative(c.Value)
		if err != nil {
			return CaseResult{}, fmt.Errorf("case %q: value: %w", c.Name, err)
		}
		if input, err = writer.Marshal(v); err != nil {
			return CaseResult{}, fmt.Errorf("case %q: encode: %w", c.Name, err)
		}
		encoded = v
	} else {
		// Validated by LoadScenario.
		input, _ = hex.DecodeString(c.Hex)
	}

	cr := CaseResult{Name: c.Name, Hex: hex.EncodeToString(input)}
	decoded, decodeErr := reader.Unmarshal(input)
	if decodeErr != nil {
		cr.Error = errorCode(decodeErr)
		if cr.Error == "" {
			cr.Error = decodeErr.Error()
		}
	} else {
		cr.Decoded = value.Format(decoded)
	}

	h.logger.Debug("case executed",
		"case", c.Name,
		"bytes", len(input),
		"error", cr.Error,
	)

	expect := c.Expect
	if expect == nil {
		expect = &Expect{}
	}
	if expect.Hex != "" {
		if err := assertHex(c.Name, expect.Hex, cr.Hex); err != nil {
			return cr, err
		}
	}
	if expect.Error != "" {
		return cr, assertError(c.Name, expect.Error, decodeErr)
	}
	if decodeErr != nil {
		return cr, fmt.Errorf("case %q: decode: %w", c.Name, decodeErr)
	}
	if expect.Decoded != nil {
		return cr, assertDecoded(c.Name, reader, expect.Decoded, decoded)
	}
	if encoded != nil && sameSchema {
		return cr, assertRoundTrip(c.Name, encoded, decoded)
	}
	return cr, nil
}
