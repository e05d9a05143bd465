package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Operation is the kind of change observed for a path.
type Operation int

const (
	// OpCreate means a new entry appeared.
	OpCreate Operation = iota
	// OpModify means an existing entry was written.
	OpModify
	// OpDelete means an entry is gone, including the old name of a rename.
	OpDelete
	// OpConfigChange means the journal config file changed.
	OpConfigChange
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// Event is one change, with Path relative to the journal root in slash form.
type Event struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// EntryExt is the extension of journal entries.
const EntryExt = ".md"

// ConfigFile is the per-journal config file name.
const ConfigFile = ".amanjournal.yaml"

// Options configures a Watcher.
type Options struct {
	// Debounce is how long a path must be quiet before its event is emitted.
	Debounce time.Duration

	// PollInterval is the scan interval of the polling fallback.
	PollInterval time.Duration

	// BufferSize is the capacity of the batch channel.
	BufferSize int

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Debounce:     500 * time.Millisecond,
		PollInterval: 5 * time.Second,
		BufferSize:   64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	return o
}

// classify maps a root-relative path to the operation family it belongs to.
// ok is false for paths that are never reported.
func classify(rel string) (config bool, ok bool) {
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return false, false
	}
	if rel == ConfigFile {
		return true, true
	}
	if hiddenPath(rel) {
		return false, false
	}
	return false, strings.EqualFold(filepath.Ext(rel), EntryExt)
}

// hiddenPath reports whether any element of rel starts with a dot.
func hiddenPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
