package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/config"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/preflight"
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor <journal>",
		Short: "Check that a journal can be indexed and served",
		Long: `Run the preflight checks for a journal without loading it.

Checks the journal directory, write access for snapshots, free disk space,
the file descriptor limit, whether another process owns the journal, and
whether the configured embedding provider answers. Exits non-zero only
when a required check fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return jerrors.New(jerrors.ErrCodeJournalDir, "invalid journal path", err)
			}
			cfg, err := config.LoadFrom(g.userConfigPath(), dir)
			if err != nil {
				return err
			}

			opts := []preflight.Option{
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithVerbose(verbose || g.debug),
			}
			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			if embedder != nil {
				defer func() { _ = embedder.Close() }()
				opts = append(opts, preflight.WithEmbedder(embedder))
			}

			checker := preflight.New(opts...)
			results := checker.RunAll(cmd.Context(), dir)

			out := g.writer(cmd)
			if out.JSONMode() {
				if err := out.JSON(map[string]any{
					"journal": dir,
					"status":  checker.SummaryStatus(results),
					"checks":  results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return jerrors.New(jerrors.ErrCodeJournalDir, "journal is not ready", nil).
					WithDetail("journal", dir).
					WithSuggestion(fmt.Sprintf("fix the failed checks, then run 'amanjournal doctor %s' again", args[0]))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for every check")
	return cmd
}
