package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/journal"
	"github.com/Aman-CERP/amanjournal/internal/watcher"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	var polling bool

	cmd := &cobra.Command{
		Use:   "watch <journal>",
		Short: "Keep the indexes in sync with entry files as they change",
		Long: `Watch the journal directory and apply every created, edited or deleted
entry to the indexes until interrupted.

Edits are debounced (watch.debounce, default 500ms) so an editor saving
a file several times produces one update.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			w, err := watcher.New(watcher.Options{
				Debounce:     a.cfg.Watch.Debounce,
				ForcePolling: polling,
			})
			if err != nil {
				return err
			}

			a.out.Successf("Watching %s (%s)", a.dir, w.Mode())
			return runWatch(cmd.Context(), a.journal, w, a.dir)
		},
	}

	cmd.Flags().BoolVar(&polling, "poll", false, "Poll the directory instead of using file system notifications")
	return cmd
}

// runWatch feeds watcher batches into the journal until ctx is cancelled.
func runWatch(ctx context.Context, j *journal.Coordinator, w *watcher.Watcher, dir string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, dir) }()

	events, errs := w.Events(), w.Errors()
	for events != nil {
		select {
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			applied := j.HandleEvents(ctx, batch)
			slog.Info("watch_batch_applied",
				slog.Int("events", len(batch)),
				slog.Int("applied", applied))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
		case err := <-done:
			_ = w.Stop()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
