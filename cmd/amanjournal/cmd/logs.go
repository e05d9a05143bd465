package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/logging"
)

// logsOptions holds flags for the logs command.
type logsOptions struct {
	lines   int
	level   string
	filter  string
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Show the last log entries of amanjournal.

Examples:
  amanjournal logs                   # last 50 entries
  amanjournal logs -n 200 --level warn
  amanjournal logs --filter embedding`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := logging.FindLogFile(opts.logFile)
			if err != nil {
				return err
			}

			cfg := logging.ViewerConfig{Level: opts.level}
			if opts.filter != "" {
				re, err := regexp.Compile(opts.filter)
				if err != nil {
					return fmt.Errorf("invalid filter pattern: %w", err)
				}
				cfg.Pattern = re
			}

			v := logging.NewViewer(cfg, cmd.OutOrStdout())
			entries, err := v.Tail(path, opts.lines)
			if err != nil {
				return err
			}
			v.Print(entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show lines matching this regex")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Log file path (default: ~/.amanjournal/logs/amanjournal.log)")
	return cmd
}
