package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/citebank/internal/aggregator"
)

func searchCMD(cfgPath *string) *cobra.Command {
	var (
		queries    []string
		maxResults int
		details    bool
	)
	search := &cobra.Command{
		Use:   "search [query...]",
		Short: "Run a one-off search batch and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries = append(queries, args...)
			if len(queries) == 0 {
				return errors.New("at least one query is required")
			}
			ctx := cmd.Context()
			a, cleanup, err := bootstrap(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			summary := a.Toolkit.Search(ctx, queries, maxResults)
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			if !details {
				return nil
			}
			key, ok := aggregator.KeyFromSummary(summary)
			if !ok {
				return nil
			}
			sess, err := a.Store.Get(ctx, key)
			if err != nil {
				return err
			}
			if ids := sess.CitationIDs(); len(ids) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.Toolkit.GetSourceDetails(ctx, ids, key))
			}
			return nil
		},
	}
	search.Flags().StringArrayVarP(&queries, "query", "q", nil, "query to run (repeatable)")
	search.Flags().IntVar(&maxResults, "max", 0, "max results per query (default from config)")
	search.Flags().BoolVar(&details, "details", false, "fetch and print every registered source")
	return search
}
