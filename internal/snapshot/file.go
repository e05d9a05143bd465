package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// FileStore keeps each snapshot as a file. Writes go to a temp file that is
// synced and renamed over the old snapshot, so readers never see a torn file.
type FileStore struct {
	dir string
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore. An empty dir stores snapshots in the
// journal directory itself. Otherwise each journal gets its own
// subdirectory of dir, named by JournalKey.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(journalID, name string) string {
	if s.dir != "" {
		return filepath.Join(s.dir, JournalKey(journalID), name)
	}
	return filepath.Join(journalID, name)
}

// JournalKey names a journal's snapshot directory under a shared snapshot
// dir: the journal's base name plus a hash of its cleaned absolute path, so
// the key is stable across runs and distinct for journals with the same
// base name.
func JournalKey(journalID string) string {
	p := filepath.Clean(journalID)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	sum := sha256.Sum256([]byte(p))

	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, filepath.Base(p))
	if base == "" || base == "_" {
		base = "journal"
	}
	return base + "-" + hex.EncodeToString(sum[:6])
}

// Read implements Store.
func (s *FileStore) Read(ctx context.Context, journalID, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(journalID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, jerrors.New(jerrors.ErrCodeSnapshotRead, "failed to read snapshot", err).
			WithDetail("snapshot", name)
	}
	return data, nil
}

// Write implements Store.
func (s *FileStore) Write(ctx context.Context, journalID, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.path(journalID, name)
	if err := writeAtomic(target, data); err != nil {
		return jerrors.StorageError("failed to write snapshot", err).WithDetail("snapshot", name)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func writeAtomic(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
