package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/bnf/ebnf/parse"
	"github.com/dhamidi/bnf/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	var cacheSize int
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for checking grammars and parsing input",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := server.NewServer(
				server.WithCacheSize(cacheSize),
				server.WithMaxDepth(maxDepth),
			)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			displayAddr := addr
			if strings.HasPrefix(addr, ":") {
				displayAddr = "localhost" + addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Starting server at http://%s\n", displayAddr)
			return http.ListenAndServe(addr, s)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "address to listen on")
	cmd.Flags().IntVar(&cacheSize, "cache-size", server.DefaultCacheSize, "number of compiled grammars to keep")
	cmd.Flags().IntVar(&maxDepth, "max-depth", parse.DefaultMaxDepth, "limit on rule invocations nested without consuming input")

	return cmd
}
