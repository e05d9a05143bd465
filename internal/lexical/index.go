// Package lexical is the keyword search index over journal entries, built on
// Bleve. Each parent entry is one Bleve document whose body carries the text
// of the whole thread.
package lexical

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/metadata"
)

// Indexed fields.
const (
	FieldTitle       = "title"
	FieldBody        = "body"
	FieldAttachments = "attachments"
	FieldTags        = "tags"
	FieldFlags       = "flags"
	FieldCreated     = "created"
)

// Hit is one ranked search result.
type Hit struct {
	Ref   string
	Score float64
}

// Options tunes the index.
type Options struct {
	// MaxResults caps the number of hits returned by Search.
	MaxResults int
	// TitleBoost multiplies the weight of title matches.
	TitleBoost float64
}

// DefaultOptions returns the default search tuning.
func DefaultOptions() Options {
	return Options{MaxResults: 50, TitleBoost: 2.0}
}

// indexedEntry is the Bleve document for one thread.
type indexedEntry struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Attachments string `json:"attachments"`
	Tags        string `json:"tags"`
	Flags       string `json:"flags"`
	Created     string `json:"created"`
}

// Index holds the current Bleve index. Rebuilds happen off to the side and
// are swapped in whole, so searches never see a half-built index.
type Index struct {
	docs   document.Store
	opts   Options
	logger *slog.Logger

	mu    sync.RWMutex
	index bleve.Index // nil when there is nothing indexed
	count int
}

// New creates an empty index. A nil logger uses slog.Default().
func New(docs document.Store, opts Options, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.MaxResults <= 0 {
		opts.MaxResults = def.MaxResults
	}
	if opts.TitleBoost <= 0 {
		opts.TitleBoost = def.TitleBoost
	}
	return &Index{docs: docs, opts: opts, logger: logger}
}

// Initialize rebuilds the index from every parent entry in m. Parents whose
// document cannot be read are logged and skipped.
func (ix *Index) Initialize(ctx context.Context, journalID string, m *metadata.Map) error {
	start := time.Now()

	idxMapping, err := createIndexMapping()
	if err != nil {
		return jerrors.New(jerrors.ErrCodeIndexFailed, "failed to create index mapping", err)
	}

	next, err := bleve.NewMemOnly(idxMapping)
	if err != nil {
		return jerrors.New(jerrors.ErrCodeIndexFailed, "failed to create lexical index", err)
	}

	batch := next.NewBatch()
	skipped := 0
	for _, e := range m.Parents() {
		if err := ctx.Err(); err != nil {
			_ = next.Close()
			return err
		}

		thread, err := metadata.LoadThread(ctx, ix.docs, journalID, e.ID, e.Record, ix.logger)
		if err != nil {
			skipped++
			ix.logger.Warn("lexical_entry_skipped",
				append([]any{slog.String("entry", e.ID)}, jerrors.LogAttrs(err)...)...)
			continue
		}

		if err := batch.Index(e.ID, toIndexed(thread)); err != nil {
			skipped++
			ix.logger.Warn("lexical_entry_skipped",
				slog.String("entry", e.ID), slog.String("error", err.Error()))
		}
	}

	count := batch.Size()
	if count > 0 {
		if err := next.Batch(batch); err != nil {
			_ = next.Close()
			return jerrors.New(jerrors.ErrCodeIndexFailed, "failed to build lexical index", err)
		}
	} else {
		_ = next.Close()
		next = nil
	}

	ix.mu.Lock()
	old := ix.index
	ix.index = next
	ix.count = count
	ix.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	ix.logger.Debug("lexical_rebuilt",
		slog.String("journal", journalID),
		slog.Int("documents", count),
		slog.Int("skipped", skipped),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Search returns relevance-ranked hits for queryText. An empty query, an
// empty index, or an evaluator failure all yield an empty list.
func (ix *Index) Search(ctx context.Context, queryText string) []Hit {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return []Hit{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.index == nil {
		return []Hit{}
	}

	req := bleve.NewSearchRequest(ix.buildQuery(queryText))
	req.Size = ix.opts.MaxResults

	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		ix.logger.Warn("lexical_search_failed",
			slog.String("query", queryText), slog.String("error", err.Error()))
		return []Hit{}
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{Ref: h.ID, Score: h.Score})
	}
	return hits
}

func (ix *Index) buildQuery(text string) query.Query {
	title := bleve.NewMatchQuery(text)
	title.SetField(FieldTitle)
	title.SetBoost(ix.opts.TitleBoost)

	fields := []query.Query{title}
	for _, f := range []string{FieldBody, FieldAttachments, FieldTags, FieldFlags, FieldCreated} {
		q := bleve.NewMatchQuery(text)
		q.SetField(f)
		fields = append(fields, q)
	}
	return bleve.NewDisjunctionQuery(fields...)
}

// Count returns the number of indexed threads.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.count
}

// Reset drops the index.
func (ix *Index) Reset() {
	ix.mu.Lock()
	old := ix.index
	ix.index = nil
	ix.count = 0
	ix.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// Close releases the index.
func (ix *Index) Close() error {
	ix.Reset()
	return nil
}

func toIndexed(t *metadata.Thread) indexedEntry {
	rec := t.Record

	var flags []string
	if rec.IsAI {
		flags = append(flags, "ai")
	}
	if rec.Highlight != "" {
		flags = append(flags, "highlight", rec.Highlight)
	}
	if len(rec.Replies) > 0 {
		flags = append(flags, "replies")
	}

	created := rec.CreatedAt.UTC()
	return indexedEntry{
		Title:       rec.Title,
		Body:        t.FullText(),
		Attachments: strings.Join(rec.Attachments, " "),
		Tags:        strings.Join(rec.Tags, " "),
		Flags:       strings.Join(flags, " "),
		Created:     fmt.Sprintf("%s %s %s", created.Format("2006-01-02"), created.Month(), created.Weekday()),
	}
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TokenizerName,
		"token_filters": []string{
			lowercase.Name,
			StopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = AnalyzerName

	entryMapping := bleve.NewDocumentStaticMapping()
	for _, f := range []string{FieldTitle, FieldBody, FieldAttachments, FieldTags, FieldFlags, FieldCreated} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = AnalyzerName
		fm.Store = false
		entryMapping.AddFieldMappingsAt(f, fm)
	}
	indexMapping.DefaultMapping = entryMapping

	return indexMapping, nil
}
