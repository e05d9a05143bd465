// Package journal is the single entry point to a journal's indexes. Its
// Coordinator owns the metadata map, keeps the lexical and embedding indexes
// in step with it, and joins their query results back to full records.
package journal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/amanjournal/internal/document"
	"github.com/Aman-CERP/amanjournal/internal/embed"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/lexical"
	"github.com/Aman-CERP/amanjournal/internal/metadata"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
	"github.com/Aman-CERP/amanjournal/internal/telemetry"
	"github.com/Aman-CERP/amanjournal/internal/vector"
)

// DefaultVectorTopN is used when VectorSearch is called with topN <= 0 and
// the config does not set one.
const DefaultVectorTopN = 10

// Config contains the collaborators of a Coordinator.
type Config struct {
	// Docs reads journal entries. Required.
	Docs document.Store

	// Snapshots persists the metadata and embeddings snapshots. Required.
	Snapshots snapshot.Store

	// Embedder computes embeddings. Nil disables vector search.
	Embedder embed.Embedder

	// Lexical tunes the lexical index.
	Lexical lexical.Options

	// VectorTopN is the default result count for VectorSearch.
	VectorTopN int

	// Workers bounds concurrent provider calls during Regenerate.
	Workers int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Coordinator composes the metadata store with the lexical and embedding
// indexes for one journal at a time.
//
// At most one mutation runs at a time. Reads do not wait for mutations, so
// lexical search stays available while an embedding provider is slow.
type Coordinator struct {
	docs   document.Store
	logger *slog.Logger
	topN   int

	meta *metadata.Store
	lex  *lexical.Index
	vec  *vector.Index

	metrics *telemetry.QueryMetrics

	// mutation is a one-slot semaphore held by Load and every mutation.
	mutation chan struct{}

	mu        sync.Mutex
	state     State
	journalID string
	ready     chan struct{} // closed when a Load finishes
	lock      *snapshot.OwnerLock
}

// New creates an unloaded Coordinator.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topN := cfg.VectorTopN
	if topN <= 0 {
		topN = DefaultVectorTopN
	}

	ready := make(chan struct{})
	close(ready)

	return &Coordinator{
		docs:     cfg.Docs,
		logger:   logger,
		topN:     topN,
		meta:     metadata.NewStore(cfg.Docs, cfg.Snapshots, logger),
		lex:      lexical.New(cfg.Docs, cfg.Lexical, logger),
		vec:      vector.New(cfg.Docs, cfg.Snapshots, cfg.Embedder, vector.Options{Workers: cfg.Workers}, logger),
		metrics:  telemetry.New(telemetry.DefaultConfig()),
		mutation: make(chan struct{}, 1),
		ready:    ready,
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// JournalID returns the loaded journal, or "".
func (c *Coordinator) JournalID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.journalID
}

// Load makes journalID the loaded journal. Switching to a different journal
// discards all in-memory state first. Loading the journal that is already
// ready returns its current map.
//
// Operations issued while Load runs wait for it to finish.
func (c *Coordinator) Load(ctx context.Context, journalID string) (*metadata.Map, error) {
	if journalID == "" {
		return nil, jerrors.ValidationError("journal id is required", nil)
	}
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	c.mu.Lock()
	if c.state == StateReady && c.journalID == journalID {
		c.mu.Unlock()
		return c.meta.Get(), nil
	}
	c.resetLocked()
	c.state = StateLoading
	c.journalID = journalID
	c.ready = make(chan struct{})
	done := c.ready
	c.mu.Unlock()

	m, err := c.load(ctx, journalID)

	c.mu.Lock()
	if err != nil {
		c.resetLocked()
	} else {
		c.state = StateReady
	}
	close(done)
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("journal_load_failed",
			append([]any{slog.String("journal", journalID)}, jerrors.LogAttrs(err)...)...)
		return nil, err
	}

	c.logger.Info("journal_loaded",
		slog.String("journal", journalID),
		slog.Int("entries", m.Len()),
		slog.Int("lexical_docs", c.lex.Count()),
		slog.Int("vectors", c.vec.Count()))
	return m, nil
}

func (c *Coordinator) load(ctx context.Context, journalID string) (*metadata.Map, error) {
	lock, err := snapshot.AcquireOwner(journalID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.lock = lock
	c.mu.Unlock()

	m, err := c.meta.Load(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if err := c.lex.Initialize(ctx, journalID, m); err != nil {
		return nil, err
	}
	if err := c.vec.Initialize(ctx, journalID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// resetLocked drops every index and the owner lock. c.mu must be held.
func (c *Coordinator) resetLocked() {
	c.meta.Reset()
	c.lex.Reset()
	c.vec.Reset()
	c.metrics.Reset()
	if c.lock != nil {
		if err := c.lock.Release(); err != nil {
			c.logger.Warn("journal_unlock_failed", slog.String("error", err.Error()))
		}
		c.lock = nil
	}
	c.state = StateUnloaded
	c.journalID = ""
}

// Close unloads the journal and releases its lock.
func (c *Coordinator) Close() error {
	c.mutation <- struct{}{}
	defer c.release()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	return c.lex.Close()
}

// waitReady blocks while a Load is running.
func (c *Coordinator) waitReady(ctx context.Context) error {
	for {
		c.mu.Lock()
		state, ready := c.state, c.ready
		c.mu.Unlock()

		switch state {
		case StateReady:
			return nil
		case StateUnloaded:
			return ErrNotLoaded
		}

		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case c.mutation <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) release() {
	<-c.mutation
}

// beginMutation waits for a loaded journal and the mutation slot. The
// returned journal id is stable until the slot is released.
func (c *Coordinator) beginMutation(ctx context.Context) (string, error) {
	if err := c.waitReady(ctx); err != nil {
		return "", err
	}
	if err := c.acquire(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	state, journalID := c.state, c.journalID
	c.mu.Unlock()
	if state != StateReady {
		c.release()
		return "", ErrNotLoaded
	}
	return journalID, nil
}

// Get returns a copy of the metadata map.
func (c *Coordinator) Get(ctx context.Context) (*metadata.Map, error) {
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}
	return c.meta.Get(), nil
}

// Add reads entryID from the document store, records its metadata and
// indexes it. A provider failure leaves the entry without an embedding but
// does not fail the call; a snapshot write failure does.
func (c *Coordinator) Add(ctx context.Context, entryID string) (*metadata.Map, error) {
	journalID, err := c.beginMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer c.release()

	m, err := c.meta.Add(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := c.fanOut(ctx, journalID, m, c.affectedParents(m, entryID)); err != nil {
		return nil, err
	}

	c.logger.Info("entry_added", slog.String("entry", entryID))
	return m, nil
}

// Update overwrites the metadata of a known entry and re-indexes it.
func (c *Coordinator) Update(ctx context.Context, entryID string, rec metadata.Record) (*metadata.Map, error) {
	journalID, err := c.beginMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer c.release()

	if _, ok := c.meta.Record(entryID); !ok {
		return nil, entryNotFound(entryID)
	}
	m, err := c.meta.Update(ctx, entryID, rec)
	if err != nil {
		return nil, err
	}
	if err := c.fanOut(ctx, journalID, m, c.affectedParents(m, entryID)); err != nil {
		return nil, err
	}

	c.logger.Info("entry_updated", slog.String("entry", entryID))
	return m, nil
}

// Refresh re-reads entryID from disk. A known entry keeps the reply links
// recorded for it; an unknown entry is added.
func (c *Coordinator) Refresh(ctx context.Context, entryID string) (*metadata.Map, error) {
	journalID, err := c.beginMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer c.release()

	doc, err := c.docs.Read(ctx, journalID, entryID)
	if err != nil {
		return nil, err
	}
	rec := metadata.FromDocument(doc)
	if old, ok := c.meta.Record(entryID); ok {
		rec = mergeLinks(old, rec)
	}

	m, err := c.meta.Mutate(ctx, func(m *metadata.Map) bool {
		m.Set(entryID, rec)
		metadata.LinkDeclaredReplies(m)
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := c.fanOut(ctx, journalID, m, c.affectedParents(m, entryID)); err != nil {
		return nil, err
	}

	c.logger.Debug("entry_refreshed", slog.String("entry", entryID))
	return m, nil
}

// Remove deletes entryID from the map and from both indexes. Removing an
// unknown entry succeeds and still persists the map.
func (c *Coordinator) Remove(ctx context.Context, entryID string) (*metadata.Map, error) {
	journalID, err := c.beginMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer c.release()

	before := c.meta.Get()
	m, err := c.meta.Remove(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := c.vec.Remove(ctx, entryID); err != nil {
		return nil, err
	}
	// parents of a removed reply lose its text
	var parents []string
	for _, id := range c.affectedParents(before, entryID) {
		if id != entryID && m.Has(id) {
			parents = append(parents, id)
		}
	}
	if err := c.fanOut(ctx, journalID, m, parents); err != nil {
		return nil, err
	}

	c.logger.Info("entry_removed", slog.String("entry", entryID))
	return m, nil
}

// AddReply records replyID as a reply to parentID: the reply is read from
// the document store, linked both ways, persisted once, and the parent's
// thread is re-indexed.
func (c *Coordinator) AddReply(ctx context.Context, parentID, replyID string) (*metadata.Map, error) {
	journalID, err := c.beginMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer c.release()

	if parentID == replyID {
		return nil, jerrors.ValidationError("an entry cannot reply to itself", nil).
			WithDetail("entry", replyID)
	}
	parent, ok := c.meta.Record(parentID)
	if !ok {
		return nil, entryNotFound(parentID)
	}
	if parent.IsReply {
		return nil, jerrors.ValidationError("cannot reply to a reply", nil).
			WithDetail("entry", parentID).
			WithSuggestion("reply to " + parent.Parent + " instead")
	}

	doc, err := c.docs.Read(ctx, journalID, replyID)
	if err != nil {
		return nil, err
	}
	rec := metadata.FromDocument(doc)
	rec.IsReply = true
	rec.Parent = parentID

	m, err := c.meta.Mutate(ctx, func(m *metadata.Map) bool {
		m.Set(replyID, rec)
		p, _ := m.Get(parentID)
		if !p.HasReply(replyID) {
			p.Replies = append(p.Replies, replyID)
			m.Set(parentID, p)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := c.fanOut(ctx, journalID, m, []string{parentID}); err != nil {
		return nil, err
	}

	c.logger.Info("reply_added", slog.String("parent", parentID), slog.String("reply", replyID))
	return m, nil
}

// Regenerate recomputes every embedding.
func (c *Coordinator) Regenerate(ctx context.Context) (vector.Report, error) {
	if _, err := c.beginMutation(ctx); err != nil {
		return vector.Report{}, err
	}
	defer c.release()

	return c.vec.Regenerate(ctx, c.meta.Get())
}

// fanOut rebuilds the lexical index from m and re-embeds the given parents.
// Provider failures are logged; storage failures and cancellation are
// returned.
func (c *Coordinator) fanOut(ctx context.Context, journalID string, m *metadata.Map, parents []string) error {
	if err := c.lex.Initialize(ctx, journalID, m); err != nil {
		return err
	}

	for _, id := range parents {
		rec, ok := m.Get(id)
		if !ok {
			continue
		}
		if err := c.vec.AddDocument(ctx, id, rec); err != nil {
			if jerrors.IsFatal(err) {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.logger.Warn("embedding_skipped",
				append([]any{slog.String("entry", id)}, jerrors.LogAttrs(err)...)...)
		}
	}
	return nil
}

// affectedParents returns the parents whose indexed text includes entryID:
// the entry itself when it is a parent, otherwise every parent listing it
// plus its declared parent.
func (c *Coordinator) affectedParents(m *metadata.Map, entryID string) []string {
	rec, ok := m.Get(entryID)
	if !ok {
		return nil
	}
	if !rec.IsReply {
		return []string{entryID}
	}

	var out []string
	seen := make(map[string]bool)
	for _, p := range m.Parents() {
		if p.HasReply(entryID) {
			out = append(out, p.ID)
			seen[p.ID] = true
		}
	}
	if rec.Parent != "" && !seen[rec.Parent] {
		if p, ok := m.Get(rec.Parent); ok && !p.IsReply {
			out = append(out, rec.Parent)
		}
	}
	return out
}

// mergeLinks keeps reply links recorded in old that the re-read front-matter
// in fresh does not carry.
func mergeLinks(old, fresh metadata.Record) metadata.Record {
	if old.IsReply && !fresh.IsReply {
		fresh.IsReply = true
		fresh.Parent = old.Parent
		return fresh
	}
	if fresh.IsReply {
		if fresh.Parent == "" {
			fresh.Parent = old.Parent
		}
		return fresh
	}

	replies := append([]string(nil), old.Replies...)
	for _, id := range fresh.Replies {
		if !old.HasReply(id) {
			replies = append(replies, id)
		}
	}
	fresh.Replies = replies
	return fresh
}

func entryNotFound(id string) error {
	return jerrors.New(jerrors.ErrCodeEntryNotFound, "entry not found", nil).WithDetail("entry", id)
}
