package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// LockFile is the name of the ownership lock file inside a journal.
const LockFile = ".amanjournal.lock"

// OwnerLock marks one process as the owner of a journal's snapshots.
// It is a non-blocking cross-process file lock.
type OwnerLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// AcquireOwner takes the ownership lock for journalDir, failing with
// ErrCodeJournalLocked if another process holds it.
func AcquireOwner(journalDir string) (*OwnerLock, error) {
	if err := os.MkdirAll(journalDir, 0o755); err != nil {
		return nil, jerrors.New(jerrors.ErrCodeJournalDir, "cannot create journal directory", err).
			WithDetail("journal", journalDir)
	}

	path := filepath.Join(journalDir, LockFile)
	l := &OwnerLock{path: path, flock: flock.New(path)}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire journal lock: %w", err)
	}
	if !acquired {
		return nil, jerrors.New(jerrors.ErrCodeJournalLocked, "journal is in use by another process", nil).
			WithDetail("journal", journalDir).
			WithSuggestion("stop the other amanjournal process (serve or watch) and retry")
	}

	l.locked = true
	return l, nil
}

// Release frees the lock. Safe to call more than once.
func (l *OwnerLock) Release() error {
	if l == nil || !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release journal lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *OwnerLock) Path() string {
	return l.path
}
