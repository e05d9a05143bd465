package journal

import (
	"context"
	"log/slog"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/ignore"
	"github.com/Aman-CERP/amanjournal/internal/watcher"
)

// HandleEvents applies a batch of watcher events. Created and modified
// entries are refreshed from disk and deleted entries removed. Entries
// matched by the journal's .amanjournalignore are skipped. A failing event
// is logged and the rest of the batch still runs; the number of applied
// events is returned.
func (c *Coordinator) HandleEvents(ctx context.Context, events []watcher.Event) int {
	var skip *ignore.Matcher
	if dir := c.JournalID(); dir != "" {
		m, err := ignore.Load(dir)
		if err != nil {
			c.logger.Warn("ignore_file_unreadable", slog.String("error", err.Error()))
		}
		skip = m
	}

	applied := 0
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return applied
		}
		if ev.Operation != watcher.OpDelete && skip.Match(ev.Path, false) {
			c.logger.Debug("watch_event_ignored", slog.String("entry", ev.Path))
			continue
		}
		if err := c.handleEvent(ctx, ev); err != nil {
			c.logger.Warn("watch_event_failed",
				append([]any{
					slog.String("entry", ev.Path),
					slog.String("operation", ev.Operation.String()),
				}, jerrors.LogAttrs(err)...)...)
			continue
		}
		applied++
	}
	return applied
}

func (c *Coordinator) handleEvent(ctx context.Context, ev watcher.Event) error {
	switch ev.Operation {
	case watcher.OpCreate, watcher.OpModify:
		_, err := c.Refresh(ctx, ev.Path)
		return err
	case watcher.OpDelete:
		if _, ok := c.meta.Record(ev.Path); !ok {
			return nil
		}
		_, err := c.Remove(ctx, ev.Path)
		return err
	case watcher.OpConfigChange:
		c.logger.Info("journal_config_changed",
			slog.String("file", ev.Path),
			slog.String("action", "restart to apply"))
		return nil
	default:
		return nil
	}
}
