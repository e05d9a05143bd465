package metadata

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
)

// SnapshotName is the name of the metadata snapshot.
const SnapshotName = "index.json"

// Store owns the in-memory Map of one journal and its snapshot.
//
// Every mutation is applied to a copy, persisted, and only then swapped in,
// so a failed snapshot write leaves the previous state in place.
type Store struct {
	docs   document.Store
	snaps  snapshot.Store
	logger *slog.Logger

	mu        sync.RWMutex
	journalID string
	m         *Map
}

// NewStore creates a Store. A nil logger uses slog.Default().
func NewStore(docs document.Store, snaps snapshot.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		docs:   docs,
		snaps:  snaps,
		logger: logger,
		m:      NewMap(),
	}
}

// Load reads the journal's snapshot, or reconstructs the map from the
// documents when there is none (or it is corrupt) and persists the result.
// The loaded map replaces any previous state in one step.
func (s *Store) Load(ctx context.Context, journalID string) (*Map, error) {
	m, fromSnapshot, err := s.read(ctx, journalID)
	if err != nil {
		return nil, err
	}

	if !fromSnapshot {
		m, err = s.reconstruct(ctx, journalID)
		if err != nil {
			return nil, err
		}
		if err := s.write(ctx, journalID, m); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.journalID = journalID
	s.m = m
	s.mu.Unlock()

	s.logger.Info("metadata_loaded",
		slog.String("journal", journalID),
		slog.Int("entries", m.Len()),
		slog.Bool("from_snapshot", fromSnapshot))

	return m.Clone(), nil
}

// read returns the snapshot map, or false if there is no usable snapshot.
func (s *Store) read(ctx context.Context, journalID string) (*Map, bool, error) {
	data, err := s.snaps.Read(ctx, journalID, SnapshotName)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}

	m := NewMap()
	if err := json.Unmarshal(data, m); err != nil {
		s.logger.Warn("metadata_snapshot_corrupted",
			slog.String("journal", journalID),
			slog.String("error", err.Error()),
			slog.String("action", "rebuilding from documents"))
		return nil, false, nil
	}
	return m, true, nil
}

// reconstruct walks the document store. Unreadable documents are logged and
// skipped; only a failure to list the journal is fatal.
func (s *Store) reconstruct(ctx context.Context, journalID string) (*Map, error) {
	ids, err := s.docs.List(ctx, journalID)
	if err != nil {
		return nil, err
	}

	m := NewMap()
	skipped := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.docs.Read(ctx, journalID, id)
		if err != nil {
			skipped++
			s.logger.Warn("document_unreadable",
				append([]any{slog.String("entry", id)}, jerrors.LogAttrs(err)...)...)
			continue
		}
		m.Set(id, FromDocument(doc))
	}
	linked := LinkDeclaredReplies(m)

	s.logger.Info("metadata_reconstructed",
		slog.String("journal", journalID),
		slog.Int("entries", m.Len()),
		slog.Int("skipped", skipped),
		slog.Int("linked_replies", linked))
	return m, nil
}

func (s *Store) write(ctx context.Context, journalID string, m *Map) error {
	data, err := json.Marshal(m)
	if err != nil {
		return jerrors.InternalError("failed to encode metadata", err)
	}
	return s.snaps.Write(ctx, journalID, SnapshotName, data)
}

// JournalID returns the loaded journal, or "" before Load.
func (s *Store) JournalID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.journalID
}

// Get returns a copy of the in-memory map.
func (s *Store) Get() *Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Clone()
}

// Record returns one record without copying the whole map.
func (s *Store) Record(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Get(id)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Len()
}

// Add reads entryID from the document store and inserts its metadata.
func (s *Store) Add(ctx context.Context, entryID string) (*Map, error) {
	doc, err := s.docs.Read(ctx, s.JournalID(), entryID)
	if err != nil {
		return nil, err
	}
	rec := FromDocument(doc)
	return s.Mutate(ctx, func(m *Map) bool {
		m.Set(entryID, rec)
		return true
	})
}

// Update overwrites the record for entryID.
func (s *Store) Update(ctx context.Context, entryID string, rec Record) (*Map, error) {
	return s.Mutate(ctx, func(m *Map) bool {
		m.Set(entryID, rec)
		return true
	})
}

// Remove deletes entryID. Removing an unknown id still persists.
func (s *Store) Remove(ctx context.Context, entryID string) (*Map, error) {
	return s.Mutate(ctx, func(m *Map) bool {
		m.Delete(entryID)
		return true
	})
}

// Save rewrites the full snapshot from the in-memory map.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, s.journalID, s.m)
}

// Mutate applies fn to a copy of the map. If fn reports a change, the copy
// is persisted and becomes the current map. The returned map is a copy of
// the resulting state.
func (s *Store) Mutate(ctx context.Context, fn func(m *Map) bool) (*Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.m.Clone()
	if !fn(next) {
		return next, nil
	}
	if err := s.write(ctx, s.journalID, next); err != nil {
		return nil, err
	}
	s.m = next
	return next.Clone(), nil
}

// Reset drops all in-memory state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journalID = ""
	s.m = NewMap()
}
