package cli

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stef/internal/codec"
	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/wire"
)

// EncodeResult is the JSON payload of encode.
type EncodeResult struct {
	Type string `json:"type"`
	Hex  string `json:"hex"`
}

// DecodeResult is the JSON payload of decode.
type DecodeResult struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <schema> <type> [json|-]",
		Short: "Encode a JSON value to wire bytes",
		Long: `Encode a value given in its JSON form and print the wire bytes as hex.

The type is any type expression valid in the schema, such as
"Order", "vec<Order>" or "billing::Invoice<u32>". The value is read from
the third argument, or from stdin when it is "-" or absent.

Examples:
  stefc encode orders.cue Order '{"id": 5, "note": null}'
  echo '{"Open": null}' | stefc encode orders.cue Status`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(rootOpts, args, cmd)
		},
	}
	return cmd
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <schema> <type> [hex|-]",
		Short: "Decode wire bytes to JSON",
		Long: `Decode hex encoded wire bytes and print the value in its JSON form.

The whole input must be consumed by the value. Decode errors exit with
status 1 and report the wire error code and offset.

Examples:
  stefc decode orders.cue Order 080511010000
  stefc decode orders.cue Status 020a0900 --format json`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(rootOpts, args, cmd)
		},
	}
	return cmd
}

// codecFor loads one schema and compiles the codec of a type expression.
func codecFor(formatter *OutputFormatter, path, expr string) (*codec.Codec, error) {
	loaded, err := LoadSchemas([]string{path})
	if err != nil {
		return nil, loadFailure(formatter, err)
	}
	if len(loaded) != 1 {
		return nil, formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("%s: expected one schema, found %d", path, len(loaded)), nil)
	}
	set, err := codec.Compile(loaded[0].Schema)
	if err != nil {
		var ve *compiler.ValidationError
		if errors.As(err, &ve) {
			return nil, validationFailure(formatter, err)
		}
		return nil, formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	c, err := set.Codec(expr)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), nil)
	}
	return c, nil
}

// readInput returns the optional third argument, or stdin.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 3 && args[2] != "-" {
		return []byte(args[2]), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}

func runEncode(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, err := codecFor(formatter, args[0], args[1])
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("read input: %v", err), nil)
	}

	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var native any
	if err := dec.Decode(&native); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("invalid JSON: %v", err), nil)
	}

	v, err := c.FromNative(native)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeBadInput, err.Error(), nil)
	}
	data, err := c.Marshal(v)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeBadInput, err.Error(), nil)
	}

	out := hex.EncodeToString(data)
	if opts.Format == "json" {
		return formatter.Success(EncodeResult{Type: c.Type(), Hex: out})
	}
	fmt.Fprintln(formatter.Writer, out)
	return nil
}

func runDecode(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, err := codecFor(formatter, args[0], args[1])
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("read input: %v", err), nil)
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(string(input)), ""))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("invalid hex: %v", err), nil)
	}

	v, err := c.Unmarshal(data)
	if err != nil {
		var we *wire.Error
		if errors.As(err, &we) {
			return formatter.Fail(ExitFailure, ErrCodeDecode, err.Error(), map[string]any{
				"code":   string(we.Code),
				"offset": we.Offset,
			})
		}
		return formatter.Fail(ExitFailure, ErrCodeDecode, err.Error(), nil)
	}

	native, err := c.ToNative(v)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	raw, err := json.Marshal(native)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Format == "json" {
		return formatter.Success(DecodeResult{Type: c.Type(), Value: raw})
	}
	fmt.Fprintln(formatter.Writer, string(raw))
	return nil
}
