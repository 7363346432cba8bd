package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func validateCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>",
		Short: "Check that a URL serves real content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()
			fmt.Fprintln(cmd.OutOrStdout(), a.Toolkit.ValidateURL(cmd.Context(), args[0]))
			return nil
		},
	}
}
