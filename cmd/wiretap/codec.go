package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/wiretap/internal/errors"
	"github.com/vango-dev/wiretap/pkg/protocol"
)

func decodeCmd() *cobra.Command {
	var layout string

	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a frame given as hex",
		Long: `Decode one frame and print its header and fields.

Known opcodes are decoded with their own field layout. For other
opcodes pass --layout with a comma separated list of int32, int16,
boolean and string.

Examples:
  wiretap decode "00 00 00 09 01 76 00 00 00 2a 00 01 41 00 00"
  wiretap decode 0000000403e80001 --layout int16`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			var kinds []protocol.FieldKind
			if layout != "" {
				if kinds, err = parseLayout(layout); err != nil {
					return err
				}
			}
			return printFrame(cmd.OutOrStdout(), data, kinds)
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "Field layout for unknown opcodes, e.g. int32,string")

	return cmd
}

func encodeCmd() *cobra.Command {
	var (
		identity int32
		category string
		code     string
		figure   string
		gender   string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a frame and print it as hex",
		Long: `Build an entity visual state frame (opcode 374), or a figure
update frame (opcode 2730) when --figure is set, and print it as hex.

Examples:
  wiretap encode --identity 42 --category M --code hr-100.hd-180
  wiretap encode --figure hr-100.hd-180 --gender M`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				frame []byte
				err   error
			)
			if figure != "" {
				frame, err = protocol.EncodeUpdateFigure(&protocol.UpdateFigure{
					Figure: figure,
					Gender: gender,
				})
			} else {
				frame, err = protocol.EncodeEntityVisualState(&protocol.EntityVisualState{
					Identity:  identity,
					Category:  category,
					StateCode: code,
				})
			}
			if err != nil {
				return errors.Classify(err, "W040")
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(frame))
			return nil
		},
	}

	cmd.Flags().Int32Var(&identity, "identity", 0, "Entity identity")
	cmd.Flags().StringVar(&category, "category", "", "Entity category")
	cmd.Flags().StringVar(&code, "code", "", "State code")
	cmd.Flags().StringVar(&figure, "figure", "", "Figure for an update frame")
	cmd.Flags().StringVar(&gender, "gender", "", "Gender for an update frame")

	return cmd
}

// parseHex accepts hex with optional whitespace, colons and a 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.New("W140").Wrap(err)
	}
	return data, nil
}

func parseLayout(s string) ([]protocol.FieldKind, error) {
	var kinds []protocol.FieldKind
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "int32", "i32", "int":
			kinds = append(kinds, protocol.KindInt32)
		case "int16", "i16", "short":
			kinds = append(kinds, protocol.KindInt16)
		case "boolean", "bool":
			kinds = append(kinds, protocol.KindBoolean)
		case "string", "str":
			kinds = append(kinds, protocol.KindString)
		default:
			return nil, errors.New("W007").WithDetail(fmt.Sprintf("Unknown field kind %q in --layout", name))
		}
	}
	return kinds, nil
}

// printFrame prints the header and fields of data. The declared length is
// reported, not enforced, the same way the tap reads frames.
func printFrame(w io.Writer, data []byte, kinds []protocol.FieldKind) error {
	r := protocol.NewReader(data)
	length, op, err := r.ReadHeader()
	if err != nil {
		return errors.Classify(err, "W040")
	}

	fmt.Fprintf(w, "length:  %d", length)
	if actual := len(data) - protocol.LengthSize; int(length) != actual {
		fmt.Fprintf(w, " (actual %d)", actual)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "opcode:  %d", uint16(op))
	if op.Known() {
		fmt.Fprintf(w, " (%s)", op)
	}
	fmt.Fprintln(w)

	if kinds == nil {
		if known, ok := protocol.LayoutOf(op); ok {
			kinds = known
		}
	}
	if kinds == nil {
		fmt.Fprintf(w, "payload: %s\n", hex.EncodeToString(data[r.Position():]))
		return nil
	}

	fields, err := protocol.ReadFields(r, kinds)
	if err != nil {
		return errors.Classify(err, "W040")
	}
	fmt.Fprintln(w, "fields:")
	for i, f := range fields {
		fmt.Fprintf(w, "  [%d] %s\n", i, f)
	}
	if n := r.Remaining(); n > 0 {
		fmt.Fprintf(w, "trailing: %d bytes\n", n)
	}
	return nil
}
