package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/ebnf/parse"
	"github.com/dhamidi/bnf/format"
)

func newParseCmd() *cobra.Command {
	var start string
	var keepAllRules bool
	var maxDepth int
	var outputFormat string
	var text string

	cmd := &cobra.Command{
		Use:   "parse <grammar> [input-file]",
		Short: "Parse input with a grammar and print the syntax tree",
		Long: `Parse input with a grammar and print the syntax tree.

The input is read from input-file, from the --text flag, or from standard
input when neither is given or input-file is "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := grammar.LoadFile(args[0])
			if err != nil {
				return err
			}

			input := text
			if !cmd.Flags().Changed("text") {
				input, err = readInput(cmd, args[1:])
				if err != nil {
					return err
				}
			}

			tok, err := parse.Parse(table, start, input,
				parse.WithKeepAllRules(keepAllRules),
				parse.WithMaxDepth(maxDepth),
			)
			if err != nil {
				return err
			}

			enc, err := format.NewEncoder(outputFormat, cmd.OutOrStdout(), input)
			if err != nil {
				return err
			}
			if err := enc.Encode(tok); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&start, "start", "s", "", "start rule (default: the first declared rule)")
	cmd.Flags().BoolVarP(&keepAllRules, "keep-all-rules", "k", false, "keep tokens of elidable rules")
	cmd.Flags().IntVar(&maxDepth, "max-depth", parse.DefaultMaxDepth, "limit on rule invocations nested without consuming input")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "tree", "output format: tree, json or yaml")
	cmd.Flags().StringVarP(&text, "text", "e", "", "parse this text instead of reading input")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
