package document

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/ignore"
)

// Ext is the file extension of journal entries.
const Ext = ".md"

// FileStore stores entries as markdown files under the journal directory.
// The journal id is the journal's directory path.
type FileStore struct {
	logger *slog.Logger
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore. A nil logger uses slog.Default().
func NewFileStore(logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{logger: logger}
}

// Read parses the entry file. Missing front-matter fields fall back to the
// first heading (title) and the file's modification time (timestamps).
func (s *FileStore) Read(ctx context.Context, journalID, entryID string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := resolve(journalID, entryID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, jerrors.New(jerrors.ErrCodeDocumentNotFound, "entry not found", err).
				WithDetail("entry", entryID)
		}
		return nil, jerrors.New(jerrors.ErrCodeDocumentUnreadable, "cannot stat entry", err).
			WithDetail("entry", entryID)
	}

	content, err := os.ReadFile(p)
	if err != nil {
		return nil, jerrors.New(jerrors.ErrCodeDocumentUnreadable, "cannot read entry", err).
			WithDetail("entry", entryID)
	}

	fm, body, err := Parse(content)
	if err != nil {
		return nil, jerrors.New(jerrors.ErrCodeDocumentUnreadable, "cannot parse entry", err).
			WithDetail("entry", entryID)
	}

	if fm.Title == "" {
		fm.Title = FirstHeading(body)
	}
	if fm.Title == "" {
		fm.Title = strings.TrimSuffix(path.Base(entryID), Ext)
	}
	if fm.CreatedAt.IsZero() {
		fm.CreatedAt = info.ModTime().UTC()
	}
	if fm.UpdatedAt.IsZero() {
		fm.UpdatedAt = fm.CreatedAt
	}

	return &Document{ID: entryID, Meta: fm, Body: body}, nil
}

// List walks the journal directory for markdown files. Hidden files and
// directories, and paths matched by the journal's .amanjournalignore, are
// skipped. Unreadable subdirectories are logged and skipped.
func (s *FileStore) List(ctx context.Context, journalID string) ([]string, error) {
	info, err := os.Stat(journalID)
	if err != nil || !info.IsDir() {
		return nil, jerrors.New(jerrors.ErrCodeJournalDir, "journal directory not found", err).
			WithDetail("journal", journalID)
	}

	skip, err := ignore.Load(journalID)
	if err != nil {
		s.logger.Warn("ignore_file_unreadable", slog.String("journal", journalID), slog.String("error", err.Error()))
		skip = nil
	}

	var ids []string
	err = filepath.WalkDir(journalID, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == journalID {
				return walkErr
			}
			s.logger.Warn("journal_walk_skipped", slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if p == journalID {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(journalID, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if skip.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(name), Ext) {
			return nil
		}
		ids = append(ids, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk journal %s: %w", journalID, err)
	}

	sort.Strings(ids)
	return ids, nil
}

// Write stores doc under its ID, creating parent directories. The file is
// written to a temp file and renamed into place.
func (s *FileStore) Write(ctx context.Context, journalID string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := resolve(journalID, doc.ID)
	if err != nil {
		return err
	}

	data, err := Render(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create entry directory: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename entry: %w", err)
	}
	return nil
}

// NewEntryID returns a fresh entry id of the form YYYY/MM/<uuid>.md.
func NewEntryID(createdAt time.Time) string {
	return createdAt.Format("2006/01/") + uuid.NewString() + Ext
}

// resolve maps an entry id onto a path inside the journal directory.
func resolve(journalID, entryID string) (string, error) {
	local := filepath.FromSlash(entryID)
	if entryID == "" || !filepath.IsLocal(local) {
		return "", jerrors.New(jerrors.ErrCodeInvalidInput, "entry id must be a path inside the journal", nil).
			WithDetail("entry", entryID)
	}
	return filepath.Join(journalID, local), nil
}
