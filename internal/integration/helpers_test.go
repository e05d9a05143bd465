// Package integration exercises the journal end to end: entries on disk, a
// SQLite snapshot backend, an HTTP embedding provider, the Coordinator, the
// watcher and the MCP server.
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanjournal/internal/document"
	"github.com/Aman-CERP/amanjournal/internal/embed"
	"github.com/Aman-CERP/amanjournal/internal/journal"
	"github.com/Aman-CERP/amanjournal/internal/lexical"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
)

// fakeOllama serves /api/embed, mapping keywords onto fixed axes.
type fakeOllama struct {
	*httptest.Server
	requests atomic.Int64
	down     atomic.Bool
}

var axes = []struct {
	word string
	vec  []float64
}{
	{"river", []float64{1, 0, 0}},
	{"budget", []float64{0, 1, 0}},
	{"kite", []float64{0, 0, 1}},
}

func newFakeOllama(t *testing.T) *fakeOllama {
	t.Helper()
	f := &fakeOllama{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if f.down.Load() {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			return
		}
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec := []float64{0.2, 0.2, 0.2}
		text := strings.ToLower(req.Input)
		for _, a := range axes {
			if strings.Contains(text, a.word) {
				vec = a.vec
				break
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": [][]float64{vec}})
	}))
	t.Cleanup(f.Close)
	return f
}

// stack is one Coordinator wired to real backends.
type stack struct {
	dir     string
	docs    *document.FileStore
	snaps   snapshot.Store
	journal *journal.Coordinator
}

// openStack loads dir with a SQLite snapshot backend at dbPath. A nil
// provider disables embeddings.
func openStack(t *testing.T, dir, dbPath string, provider *fakeOllama) *stack {
	t.Helper()

	snaps, err := snapshot.Open(snapshot.Options{Backend: "sqlite", SQLitePath: dbPath})
	require.NoError(t, err)

	var embedder embed.Embedder
	if provider != nil {
		embedder, err = embed.NewEmbedder(embed.Config{
			Provider:   embed.ProviderOllama,
			BaseURL:    provider.URL,
			Timeout:    2 * time.Second,
			MaxRetries: 0,
			CacheSize:  16,
		})
		require.NoError(t, err)
	}

	docs := document.NewFileStore(nil)
	c := journal.New(journal.Config{
		Docs:       docs,
		Snapshots:  snaps,
		Embedder:   embedder,
		Lexical:    lexical.DefaultOptions(),
		VectorTopN: 5,
		Workers:    2,
	})

	_, err = c.Load(context.Background(), dir)
	require.NoError(t, err)

	s := &stack{dir: dir, docs: docs, snaps: snaps, journal: c}
	t.Cleanup(s.close)
	return s
}

func (s *stack) close() {
	_ = s.journal.Close()
	_ = s.snaps.Close()
}

func (s *stack) write(t *testing.T, doc *document.Document) {
	t.Helper()
	require.NoError(t, s.docs.Write(context.Background(), s.dir, doc))
}

// newJournalDir writes a walk thread and a budget entry.
func newJournalDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	docs := document.NewFileStore(nil)
	ctx := context.Background()

	for _, d := range []*document.Document{
		{
			ID:   "2026/03/walk.md",
			Meta: document.FrontMatter{Title: "Morning walk", CreatedAt: at(4), Replies: []string{"2026/03/walk-reply.md"}},
			Body: "Walked along the river before breakfast.\n",
		},
		{
			ID:   "2026/03/walk-reply.md",
			Meta: document.FrontMatter{CreatedAt: at(5), IsReply: true, Parent: "2026/03/walk.md"},
			Body: "A heron stood in the shallows.\n",
		},
		{
			ID:   "2026/03/budget.md",
			Meta: document.FrontMatter{Title: "April budget", CreatedAt: at(6), Tags: []string{"money"}},
			Body: "Rent, groceries and the budget for travel.\n",
		},
	} {
		require.NoError(t, docs.Write(ctx, dir, d))
	}
	return dir
}

func at(day int) time.Time {
	return time.Date(2026, 3, day, 9, 30, 0, 0, time.UTC)
}

func dbPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "journal.db")
}
