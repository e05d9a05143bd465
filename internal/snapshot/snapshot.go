// Package snapshot persists named, fully serialized snapshots per journal.
// Two backends exist: plain files next to the journal, and a SQLite database.
package snapshot

import (
	"context"
	"fmt"
)

// Store reads and writes whole snapshots. A snapshot is always replaced in
// full; there is no append.
type Store interface {
	// Read returns the snapshot bytes, or nil and no error if it does not exist.
	Read(ctx context.Context, journalID, name string) ([]byte, error)

	// Write replaces the snapshot atomically.
	Write(ctx context.Context, journalID, name string, data []byte) error

	// Close releases the backend.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is "file" or "sqlite".
	Backend string
	// Dir is the file backend's snapshot directory. Empty means the journal root.
	Dir string
	// SQLitePath is the sqlite backend's database file.
	SQLitePath string
}

// Open creates the backend named by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "file":
		return NewFileStore(opts.Dir), nil
	case "sqlite":
		return OpenSQLite(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", opts.Backend)
	}
}
