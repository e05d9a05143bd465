// Package vector keeps one embedding per parent journal entry and answers
// nearest-neighbour queries by exact cosine similarity.
package vector

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanjournal/internal/document"
	"github.com/Aman-CERP/amanjournal/internal/embed"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/metadata"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
)

// SnapshotName is the name of the embeddings snapshot.
const SnapshotName = "embeddings.gob"

// DefaultTopN is used when Search is called with topN <= 0.
const DefaultTopN = 10

// ErrNoProvider is returned by Regenerate when embeddings are disabled.
var ErrNoProvider = jerrors.ConfigError("no embedding provider configured", embed.ErrNoProvider).
	WithSuggestion("set embeddings.provider to ollama, openai or gemini")

// Match is one vector search result.
type Match struct {
	Ref   string
	Score float64
}

// Report summarizes a bulk embedding run.
type Report struct {
	Total    int           `json:"total"`
	Embedded int           `json:"embedded"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// Options tunes the index.
type Options struct {
	// Workers bounds concurrent provider calls during Regenerate.
	Workers int
}

// snapshotData is the gob-encoded embeddings snapshot.
type snapshotData struct {
	Model   string
	Vectors map[string][]float32
}

// Index maps parent entry ids to embedding vectors.
//
// Provider calls never happen under mu, so vector searches and lexical work
// are not blocked by a slow provider.
type Index struct {
	docs     document.Store
	snaps    snapshot.Store
	embedder embed.Embedder
	workers  int
	logger   *slog.Logger

	mu        sync.RWMutex
	journalID string
	vectors   map[string][]float32

	// persistMu orders snapshot writes so a later state is never overwritten
	// by an earlier one.
	persistMu sync.Mutex
}

// New creates an empty index. embedder may be nil, in which case the index
// only serves vectors loaded from an existing snapshot.
func New(docs document.Store, snaps snapshot.Store, embedder embed.Embedder, opts Options, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Index{
		docs:     docs,
		snaps:    snaps,
		embedder: embedder,
		workers:  opts.Workers,
		logger:   logger,
		vectors:  make(map[string][]float32),
	}
}

// Enabled reports whether a provider is configured.
func (ix *Index) Enabled() bool {
	return ix.embedder != nil
}

// ModelName returns the provider's model, or "" when disabled.
func (ix *Index) ModelName() string {
	if ix.embedder == nil {
		return ""
	}
	return ix.embedder.ModelName()
}

// Count returns the number of stored vectors.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Has reports whether id has a vector.
func (ix *Index) Has(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.vectors[id]
	return ok
}

// Reset drops all vectors.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.journalID = ""
	ix.vectors = make(map[string][]float32)
}

// Initialize loads the journal's embeddings snapshot. Without a snapshot it
// embeds every parent entry, persisting after each one, or stays empty when
// no provider is configured.
func (ix *Index) Initialize(ctx context.Context, journalID string, m *metadata.Map) error {
	snap, err := ix.readSnapshot(ctx, journalID)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.journalID = journalID
	ix.vectors = make(map[string][]float32)
	if snap != nil {
		ix.vectors = snap.Vectors
	}
	ix.mu.Unlock()

	if snap != nil {
		if snap.Model != "" && ix.embedder != nil && snap.Model != ix.embedder.ModelName() {
			ix.logger.Warn("embeddings_model_changed",
				slog.String("snapshot_model", snap.Model),
				slog.String("provider_model", ix.embedder.ModelName()),
				slog.String("action", "run regenerate to re-embed"))
		}
		ix.logger.Info("embeddings_loaded",
			slog.String("journal", journalID), slog.Int("vectors", len(snap.Vectors)))
		return nil
	}

	if ix.embedder == nil {
		ix.logger.Debug("embeddings_disabled", slog.String("journal", journalID))
		return nil
	}

	report := Report{}
	start := time.Now()
	for _, e := range m.Parents() {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Total++
		if err := ix.AddDocument(ctx, e.ID, e.Record); err != nil {
			if jerrors.IsFatal(err) {
				return err
			}
			report.Failed++
			ix.logger.Warn("embedding_skipped",
				append([]any{slog.String("entry", e.ID)}, jerrors.LogAttrs(err)...)...)
			continue
		}
		report.Embedded++
	}
	report.Duration = time.Since(start)

	ix.logger.Info("embeddings_initialized",
		slog.String("journal", journalID),
		slog.Int("total", report.Total),
		slog.Int("embedded", report.Embedded),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))
	return nil
}

// AddDocument embeds the thread rooted at id and persists the snapshot.
// Replies are skipped silently, as is everything when no provider is set.
// A provider failure is returned and nothing is stored.
func (ix *Index) AddDocument(ctx context.Context, id string, rec metadata.Record) error {
	if rec.IsReply || ix.embedder == nil {
		return nil
	}

	vec, err := ix.embedThread(ctx, ix.currentJournal(), id, rec)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.vectors[id] = vec
	ix.mu.Unlock()

	return ix.persist(ctx)
}

// Remove deletes the vector for id and persists if it existed.
func (ix *Index) Remove(ctx context.Context, id string) error {
	ix.mu.Lock()
	_, ok := ix.vectors[id]
	delete(ix.vectors, id)
	ix.mu.Unlock()

	if !ok {
		return nil
	}
	return ix.persist(ctx)
}

// Search embeds queryText and returns the topN most similar entries. It never
// fails: an empty query, a disabled or failing provider all give an empty list.
// Stored vectors with zero magnitude or the wrong dimension are skipped.
func (ix *Index) Search(ctx context.Context, queryText string, topN int) []Match {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" || ix.embedder == nil {
		return []Match{}
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	query, err := ix.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		ix.logger.Warn("vector_query_failed",
			append([]any{slog.String("query", queryText)}, jerrors.LogAttrs(err)...)...)
		return []Match{}
	}

	return ix.rank(query, topN)
}

// rank scores every stored vector against query.
func (ix *Index) rank(query []float32, topN int) []Match {
	ix.mu.RLock()
	matches := make([]Match, 0, len(ix.vectors))
	skipped := 0
	for id, vec := range ix.vectors {
		sim, err := CosineSimilarity(query, vec)
		if err != nil {
			skipped++
			continue
		}
		matches = append(matches, Match{Ref: id, Score: sim})
	}
	ix.mu.RUnlock()

	if skipped > 0 {
		ix.logger.Debug("vector_candidates_skipped", slog.Int("count", skipped))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Ref < matches[j].Ref
	})
	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

// Regenerate discards all vectors and re-embeds every parent entry in m,
// running up to Options.Workers provider calls at once. Per-entry failures
// are counted, not returned. The snapshot is written once at the end.
func (ix *Index) Regenerate(ctx context.Context, m *metadata.Map) (Report, error) {
	if ix.embedder == nil {
		return Report{}, ErrNoProvider
	}

	start := time.Now()
	journalID := ix.currentJournal()
	parents := m.Parents()

	var (
		resMu  sync.Mutex
		next   = make(map[string][]float32, len(parents))
		report = Report{Total: len(parents)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, e := range parents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := ix.embedThread(gctx, journalID, e.ID, e.Record)

			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report.Failed++
				ix.logger.Warn("embedding_skipped",
					append([]any{slog.String("entry", e.ID)}, jerrors.LogAttrs(err)...)...)
				return nil
			}
			next[e.ID] = vec
			report.Embedded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	ix.mu.Lock()
	ix.vectors = next
	ix.mu.Unlock()

	report.Duration = time.Since(start)
	ix.logger.Info("embeddings_regenerated",
		slog.Int("total", report.Total),
		slog.Int("embedded", report.Embedded),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))

	return report, ix.persist(ctx)
}

// Input builds the text embedded for a thread.
func Input(t *metadata.Thread) string {
	var sb strings.Builder
	sb.WriteString("Entry on ")
	sb.WriteString(t.Record.CreatedAt.Format(time.RFC3339))
	sb.WriteString("\n\n")
	sb.WriteString(t.Parent.Body)
	sb.WriteString("\n\nReplies:\n")
	sb.WriteString(t.ReplyText())
	return sb.String()
}

func (ix *Index) embedThread(ctx context.Context, journalID, id string, rec metadata.Record) ([]float32, error) {
	thread, err := metadata.LoadThread(ctx, ix.docs, journalID, id, rec, ix.logger)
	if err != nil {
		return nil, err
	}
	vec, err := ix.embedder.Embed(ctx, Input(thread))
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", id, err)
	}
	return vec, nil
}

func (ix *Index) currentJournal() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.journalID
}

func (ix *Index) readSnapshot(ctx context.Context, journalID string) (*snapshotData, error) {
	data, err := ix.snaps.Read(ctx, journalID, SnapshotName)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var snap snapshotData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		ix.logger.Warn("embeddings_snapshot_corrupted",
			slog.String("journal", journalID),
			slog.String("error", err.Error()),
			slog.String("action", "recomputing"))
		return nil, nil
	}
	if snap.Vectors == nil {
		snap.Vectors = make(map[string][]float32)
	}
	return &snap, nil
}

func (ix *Index) persist(ctx context.Context) error {
	ix.persistMu.Lock()
	defer ix.persistMu.Unlock()

	ix.mu.RLock()
	journalID := ix.journalID
	snap := snapshotData{Model: ix.ModelName(), Vectors: make(map[string][]float32, len(ix.vectors))}
	for id, v := range ix.vectors {
		snap.Vectors[id] = v
	}
	ix.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return jerrors.InternalError("failed to encode embeddings", err)
	}
	return ix.snaps.Write(ctx, journalID, SnapshotName, buf.Bytes())
}
