package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/citebank/internal/mcp"
)

func mcpCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the citation tools over stdio JSON-RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()
			return mcp.NewServer(a.Toolkit, "citebank", a.Logger).Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
