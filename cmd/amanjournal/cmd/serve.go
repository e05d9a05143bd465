package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/mcp"
	"github.com/Aman-CERP/amanjournal/internal/watcher"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve <journal>",
		Short: "Serve the journal to MCP clients over stdio",
		Long: `Start an MCP server on stdin/stdout exposing the search, vector_search,
thread and status tools.

stdout carries only protocol messages; logs go to the log file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{quiet: true})
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := mcp.NewServer(a.journal, a.logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if watch {
				w, err := watcher.New(watcher.Options{Debounce: a.cfg.Watch.Debounce})
				if err != nil {
					return err
				}
				go func() {
					if err := runWatch(ctx, a.journal, w, a.dir); err != nil {
						a.logger.Warn("watch_stopped", slog.String("error", err.Error()))
					}
				}()
			}

			a.logger.Info("mcp_server_starting", slog.String("journal", a.dir), slog.Bool("watch", watch))
			err = srv.Serve(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "Apply entry file changes while serving")
	return cmd
}
