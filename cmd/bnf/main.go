package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bnf:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbosity int
	var logFile string
	var configFile string

	rootCmd := &cobra.Command{
		Use:     "bnf",
		Short:   "Compile BNF grammars and parse text with them",
		Version: version,

		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var path *string
			if logFile != "" {
				path = &logFile
			}
			commonlog.Configure(verbosity, path)
			return applyConfig(cmd, configFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeat for more)")
	flags.StringVar(&logFile, "log", "", "write logs to this file instead of stderr")
	flags.StringVar(&configFile, "config", "", "YAML file with per-command flag defaults")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newReplCmd())
	rootCmd.AddCommand(newLSPCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFixturesCmd())

	return rootCmd
}
