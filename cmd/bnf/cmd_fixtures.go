package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/bnf/fixtures"
)

func newFixturesCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "fixtures [dir]",
		Short: "Run grammar fixtures",
		Long: `Run grammar fixtures.

Without dir the fixtures built into bnf are run. Otherwise every *.yaml file
in dir is loaded as a fixture.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var all []*fixtures.Fixture
			var err error
			if len(args) == 0 {
				all, err = fixtures.Builtin()
			} else {
				all, err = fixtures.LoadDir(args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			passed, failed := 0, 0
			for _, f := range all {
				for _, r := range f.Run() {
					if r.Passed() {
						passed++
					} else {
						failed++
					}
					if verbose || !r.Passed() {
						fmt.Fprintln(out, r)
					}
				}
			}
			fmt.Fprintf(out, "%d passed, %d failed\n", passed, failed)
			if failed > 0 {
				return fmt.Errorf("%d fixture cases failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "list", false, "also list passing cases")

	return cmd
}
