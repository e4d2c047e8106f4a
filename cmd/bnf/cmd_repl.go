package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/ebnf/parse"
	"github.com/dhamidi/bnf/repl"
)

func newReplCmd() *cobra.Command {
	var start string
	var keepAllRules bool
	var maxDepth int
	var outputFormat string
	var history string

	cmd := &cobra.Command{
		Use:   "repl <grammar>",
		Short: "Parse lines interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := grammar.LoadFile(args[0])
			if err != nil {
				return err
			}
			r := repl.New(table, cmd.OutOrStdout(),
				repl.WithStart(start),
				repl.WithKeepAllRules(keepAllRules),
				repl.WithMaxDepth(maxDepth),
				repl.WithFormat(outputFormat),
				repl.WithHistory(history),
			)
			r.Loop()
			return nil
		},
	}

	defaultHistory := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultHistory = filepath.Join(home, ".bnf_history")
	}

	cmd.Flags().StringVarP(&start, "start", "s", "", "start rule (default: the first declared rule)")
	cmd.Flags().BoolVarP(&keepAllRules, "keep-all-rules", "k", false, "keep tokens of elidable rules")
	cmd.Flags().IntVar(&maxDepth, "max-depth", parse.DefaultMaxDepth, "limit on rule invocations nested without consuming input")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "tree", "output format: tree, json or yaml")
	cmd.Flags().StringVar(&history, "history", defaultHistory, "history file, empty to disable")

	return cmd
}
