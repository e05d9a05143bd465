package cmd

import (
	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index <journal>",
		Short: "Load a journal, building any missing snapshots",
		Long: `Load a journal and print index statistics.

The first load of a journal scans every entry, writes the metadata
snapshot and, when an embedding provider is configured, embeds every
thread. Later loads read the snapshots instead.

Examples:
  amanjournal index ~/journal
  amanjournal index ~/journal --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			return a.out.Stats(a.journal.Stats())
		},
	}
}
