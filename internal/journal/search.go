package journal

import (
	"context"
	"strings"
	"time"

	"github.com/Aman-CERP/amanjournal/internal/metadata"
	"github.com/Aman-CERP/amanjournal/internal/telemetry"
)

// Result is a search hit joined with the entry's metadata.
type Result struct {
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
	metadata.Record
}

// Search runs a lexical query. It fails only when no journal is loaded or
// ctx ends; evaluator trouble gives an empty list.
func (c *Coordinator) Search(ctx context.Context, query string) ([]Result, error) {
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	m := c.meta.Get()
	hits := c.lex.Search(ctx, query)
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if r, ok := join(m, h.Ref, h.Score); ok {
			results = append(results, r)
		}
	}
	c.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		Kind:        telemetry.KindLexical,
		ResultCount: len(results),
		Latency:     time.Since(start),
	})
	return results, ctx.Err()
}

// VectorSearch ranks entries by embedding similarity to query. topN <= 0
// uses the configured default. Provider trouble gives an empty list.
func (c *Coordinator) VectorSearch(ctx context.Context, query string, topN int) ([]Result, error) {
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = c.topN
	}

	start := time.Now()
	matches := c.vec.Search(ctx, query, topN)
	m := c.meta.Get()
	results := make([]Result, 0, len(matches))
	for _, h := range matches {
		if r, ok := join(m, h.Ref, h.Score); ok {
			results = append(results, r)
		}
	}
	if c.vec.Enabled() {
		c.metrics.Record(telemetry.QueryEvent{
			Query:       query,
			Kind:        telemetry.KindVector,
			ResultCount: len(results),
			Latency:     time.Since(start),
		})
	}
	return results, ctx.Err()
}

// join drops hits whose entry is no longer in the map.
func join(m *metadata.Map, ref string, score float64) (Result, bool) {
	rec, ok := m.Get(ref)
	if !ok {
		return Result{}, false
	}
	return Result{Ref: ref, Score: score, Record: rec}, true
}

// ThreadTimeFormat is the timestamp format used in thread text.
const ThreadTimeFormat = "Monday, January 2, 2006 at 3:04 PM"

// GetThreadAsText renders the thread containing entryID as plain text: the
// parent's title and body, then each reply, every block headed by its time.
// A reply id renders its parent's thread.
func (c *Coordinator) GetThreadAsText(ctx context.Context, entryID string) (string, error) {
	if err := c.waitReady(ctx); err != nil {
		return "", err
	}

	m := c.meta.Get()
	rec, ok := m.Get(entryID)
	if !ok {
		return "", entryNotFound(entryID)
	}
	if rec.IsReply {
		if parents := c.affectedParents(m, entryID); len(parents) > 0 {
			entryID = parents[0]
			rec, _ = m.Get(entryID)
		}
	}

	thread, err := metadata.LoadThread(ctx, c.docs, c.JournalID(), entryID, rec, c.logger)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if rec.Title != "" {
		sb.WriteString(rec.Title)
		sb.WriteString("\n")
	}
	sb.WriteString(formatTime(rec.CreatedAt))
	sb.WriteString("\n\n")
	sb.WriteString(strings.TrimSpace(thread.Parent.Body))
	sb.WriteString("\n")

	for _, reply := range thread.Replies {
		created := reply.Meta.CreatedAt
		if r, ok := m.Get(reply.ID); ok {
			created = r.CreatedAt
		}
		sb.WriteString("\n---\n")
		sb.WriteString("Reply on ")
		sb.WriteString(formatTime(created))
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(reply.Body))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown date"
	}
	return t.Local().Format(ThreadTimeFormat)
}
