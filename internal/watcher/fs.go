package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches one journal directory tree.
type Watcher struct {
	opts      Options
	fsw       *fsnotify.Watcher // nil in polling mode
	debouncer *Debouncer
	events    chan []Event
	errors    chan error
	stopCh    chan struct{}
	dropped   atomic.Uint64

	mu      sync.RWMutex
	root    string
	stopped bool
}

// New creates a Watcher, falling back to polling when fsnotify cannot be
// initialized.
func New(opts Options) (*Watcher, error) {
	opts = opts.withDefaults()
	w := &Watcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.Debounce),
		events:    make(chan []Event, opts.BufferSize),
		errors:    make(chan error, 8),
		stopCh:    make(chan struct{}),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Warn("fsnotify_unavailable",
				slog.String("error", err.Error()),
				slog.String("fallback", "polling"))
		} else {
			w.fsw = fsw
		}
	}
	return w, nil
}

// Mode returns "fsnotify" or "polling".
func (w *Watcher) Mode() string {
	if w.fsw != nil {
		return "fsnotify"
	}
	return "polling"
}

// Start watches root until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve journal path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat journal: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("journal %s is not a directory", abs)
	}

	w.mu.Lock()
	w.root = abs
	w.mu.Unlock()

	go w.forward(ctx)

	slog.Info("watch_started", slog.String("journal", abs), slog.String("mode", w.Mode()))
	if w.fsw != nil {
		return w.runFsnotify(ctx)
	}
	return w.runPolling(ctx)
}

func (w *Watcher) runFsnotify(ctx context.Context) error {
	if err := w.addTree(w.root, false); err != nil {
		return fmt.Errorf("watch journal tree: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !hiddenPath(rel) {
				// files may land in a new directory before it is watched
				if err := w.addTree(ev.Name, true); err != nil {
					w.emitError(err)
				}
			}
			return
		}
	}

	config, ok := classify(rel)
	if !ok {
		return
	}

	var op Operation
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}
	if config {
		op = OpConfigChange
	}
	w.debouncer.Add(Event{Path: rel, Operation: op, Timestamp: time.Now()})
}

// addTree watches dir and every non-hidden directory below it. With
// announce set, entries already present are reported as created.
func (w *Watcher) addTree(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		if !announce {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if config, ok := classify(rel); ok && !config {
			w.debouncer.Add(Event{Path: filepath.ToSlash(rel), Operation: OpCreate, Timestamp: time.Now()})
		}
		return nil
	})
}

func (w *Watcher) runPolling(ctx context.Context) error {
	state := scanTree(w.root)
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			next := scanTree(w.root)
			for _, ev := range diffTrees(state, next) {
				w.debouncer.Add(ev)
			}
			state = next
		}
	}
}

func (w *Watcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emit(batch)
		}
	}
}

func (w *Watcher) emit(batch []Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		n := w.dropped.Add(1)
		slog.Warn("watch_batch_dropped",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped", n))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Events returns the channel of debounced batches. It is closed by Stop.
func (w *Watcher) Events() <-chan []Event {
	return w.events
}

// Errors returns non-fatal watch errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// DroppedBatches returns how many batches were dropped on a full channel.
func (w *Watcher) DroppedBatches() uint64 {
	return w.dropped.Load()
}

// Stop ends watching and closes the channels. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	close(w.events)
	close(w.errors)
	return nil
}
