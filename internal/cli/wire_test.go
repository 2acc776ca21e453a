package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		value string
		want  string
	}{
		{"struct without note", "Order", `{"id": 5, "note": null}`, "080511010000"},
		{"struct with note", "Order", `{"id": 5, "note": "hi"}`, "080511040102686900"},
		{"unit variant", "Status", `{"Open": null}`, "01"},
		{"variant with fields", "Status", `{"Closed": {"code": 9}}`, "020a0900"},
		{"ad-hoc type expression", "option<u32>", `5`, "0105"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "encode", ordersSchema, tt.typ, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestEncode_Stdin(t *testing.T) {
	out, err := executeWithInput(t, `{"id": 5, "note": null}`, "encode", ordersSchema, "Order")
	require.NoError(t, err)
	assert.Equal(t, "080511010000\n", out)

	out, err = executeWithInput(t, `{"Open": null}`, "encode", ordersSchema, "Status", "-")
	require.NoError(t, err)
	assert.Equal(t, "01\n", out)
}

func TestEncode_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "encode", ordersSchema, "Order", `{"id": 5, "note": null}`)
	require.NoError(t, err)

	var result EncodeResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "080511010000", result.Hex)
	assert.Contains(t, result.Type, "Order")
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		exit int
	}{
		{"invalid JSON", []string{"Order", `{"id": `}, ExitCommandError},
		{"unknown type", []string{"Nope", `{}`}, ExitCommandError},
		{"value does not fit type", []string{"Order", `{"id": "five", "note": null}`}, ExitFailure},
		{"missing required field", []string{"Order", `{"note": null}`}, ExitFailure},
		{"integer out of range", []string{"Status", `{"Closed": {"code": 300}}`}, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "encode", ordersSchema}, tt.args...)
			out, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeBadInput, resp.Error.Code)
		})
	}
}

func TestEncode_InvalidSchema(t *testing.T) {
	_, _, err := execute(t, "encode", invalidSchema, "Order", `{"id": 1, "qty": 2}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		hex  string
		want string
	}{
		{"struct without note", "Order", "080511010000", `{"id":5,"note":null}`},
		{"struct with note", "Order", "080511040102686900", `{"id":5,"note":"hi"}`},
		{"spaced hex", "Order", "08 05 11 01 00 00", `{"id":5,"note":null}`},
		{"unit variant", "Status", "01", `{"Open":null}`},
		{"variant with fields", "Status", "020a0900", `{"Closed":{"code":9}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "decode", ordersSchema, tt.typ, tt.hex)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, out)
		})
	}
}

func TestDecode_Stdin(t *testing.T) {
	out, err := executeWithInput(t, "080511010000\n", "decode", ordersSchema, "Order")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"note":null}`, out)
}

func TestDecode_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "decode", ordersSchema, "Status", "020a0900")
	require.NoError(t, err)

	var result struct {
		Type  string         `json:"type"`
		Value map[string]any `json:"value"`
	}
	decodeResponse(t, out, &result)
	assert.Contains(t, result.Type, "Status")
	assert.Equal(t, map[string]any{"Closed": map[string]any{"code": float64(9)}}, result.Value)
}

func TestDecode_WireErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		hex  string
		code string
	}{
		{"truncated", "Order", "0805", "TRUNCATED"},
		{"missing field", "Order", "00", "MISSING_FIELD"},
		{"unknown variant", "Status", "03", "UNKNOWN_VARIANT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "--format", "json", "decode", ordersSchema, tt.typ, tt.hex)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeDecode, resp.Error.Code)
			details, ok := resp.Error.Details.(map[string]any)
			require.True(t, ok, "details: %#v", resp.Error.Details)
			assert.Equal(t, tt.code, details["code"])
		})
	}
}

func TestDecode_TrailingBytes(t *testing.T) {
	_, _, err := execute(t, "decode", ordersSchema, "Status", "0101")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDecode_InvalidHex(t *testing.T) {
	_, _, err := execute(t, "decode", ordersSchema, "Order", "zz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
