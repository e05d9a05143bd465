package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	journal_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (journal_id, name)
)`

// SQLiteStore keeps snapshots as rows keyed by (journal, name). One database
// can hold snapshots for many journals.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the snapshot database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite snapshot path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	// Single connection: snapshot writes are serialized.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context, journalID, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE journal_id = ? AND name = ?`,
		journalID, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, jerrors.New(jerrors.ErrCodeSnapshotRead, "failed to read snapshot", err).
			WithDetail("snapshot", name)
	}
	return data, nil
}

// Write implements Store.
func (s *SQLiteStore) Write(ctx context.Context, journalID, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (journal_id, name, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(journal_id, name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		journalID, name, data, time.Now().Unix(),
	)
	if err != nil {
		return jerrors.StorageError("failed to write snapshot", err).WithDetail("snapshot", name)
	}
	return nil
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}
