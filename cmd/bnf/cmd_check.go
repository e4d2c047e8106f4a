package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/format"
	"github.com/dhamidi/bnf/watch"
)

type checker struct {
	cmd       *cobra.Command
	start     string
	showRules bool
}

// check compiles one grammar file and reports the result. It returns false
// if the grammar has problems.
func (c *checker) check(filename string) bool {
	table, err := grammar.LoadFile(filename)
	if err != nil {
		printIssues(c.cmd, filename, err)
		return false
	}
	if c.start != "" {
		if _, ok := table.Lookup(c.start); !ok {
			fmt.Fprintf(c.cmd.ErrOrStderr(), "%s: start rule <%s> is not declared\n", filename, c.start)
			return false
		}
	}
	out := c.cmd.OutOrStdout()
	if c.showRules {
		format.WriteRuleTable(out, table)
	} else {
		fmt.Fprintf(out, "%s: ok, %d rules\n", filename, len(table.Names()))
	}
	return true
}

func newCheckCmd() *cobra.Command {
	c := &checker{}
	var watchFiles bool

	cmd := &cobra.Command{
		Use:   "check <grammar>...",
		Short: "Compile grammar files and report every problem found",
		Long: `Compile grammar files and report every problem found.

Files ending in .ebnf are read as Go EBNF, all others as BNF. With --watch the
files are checked again whenever they change, until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cmd = cmd
			failed := 0
			for _, filename := range args {
				if !c.check(filename) {
					failed++
				}
			}
			if watchFiles {
				return c.watch(args)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d grammars failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&c.start, "start", "", "also require this rule to be declared")
	cmd.Flags().BoolVar(&c.showRules, "rules", false, "print a summary of the rules of each grammar")
	cmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "check again whenever a grammar file changes")

	return cmd
}

func (c *checker) watch(files []string) error {
	w := watch.NewFileWatcher(files, func(path string, removed bool) {
		if removed {
			fmt.Fprintf(c.cmd.ErrOrStderr(), "%s: removed\n", path)
			return
		}
		c.check(path)
	})
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(c.cmd.Context(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}

func printIssues(cmd *cobra.Command, filename string, err error) {
	w := cmd.ErrOrStderr()
	var serr *grammar.SyntaxError
	if !errors.As(err, &serr) {
		fmt.Fprintln(w, err)
		return
	}
	for _, issue := range serr.Issues {
		if issue.Pos.IsValid() {
			fmt.Fprintln(w, issue)
		} else {
			fmt.Fprintf(w, "%s: %s\n", filename, issue)
		}
	}
}
