package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <journal> <query>",
		Short: "Keyword search over entries and threads",
		Long: `Search the journal by keyword.

A parent entry matches on its own text or on the text of any reply.
Results are ordered by relevance.

Examples:
  amanjournal search ~/journal "morning walk"
  amanjournal search ~/journal rain --limit 5 --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args[1:], " ")
			results, err := a.journal.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			slog.Info("search_completed", slog.String("query", query), slog.Int("results", len(results)))
			return a.out.Results(query, results)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (0 = all)")
	return cmd
}

func newVectorSearchCmd(g *globalOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:     "vsearch <journal> <query>",
		Aliases: []string{"vector-search"},
		Short:   "Semantic search over threads",
		Long: `Search the journal by meaning using the configured embedding provider.

Returns an empty list when no provider is configured or the provider
cannot be reached.

Examples:
  amanjournal vsearch ~/journal "times I felt calm"
  amanjournal vsearch ~/journal "travel plans" --top 3`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.journal.Stats().VectorsEnabled {
				a.out.Warningf("No embedding provider configured; semantic search is disabled")
			}

			query := strings.Join(args[1:], " ")
			results, err := a.journal.VectorSearch(cmd.Context(), query, top)
			if err != nil {
				return err
			}

			slog.Info("vector_search_completed", slog.String("query", query), slog.Int("results", len(results)))
			return a.out.Results(query, results)
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "Number of results (default: search.vector_top_n)")
	return cmd
}
