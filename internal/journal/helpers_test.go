package journal

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
)

// stubEmbedder maps a text to the vector of the first keyword it contains.
// When gate is set, Embed blocks until it is closed.
type stubEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	down     bool
	gate     chan struct{}
	entered  chan struct{}
	embedded int
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{}}
}

func (s *stubEmbedder) vector(text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, jerrors.New(jerrors.ErrCodeProviderUnavailable, "provider down", nil)
	}
	for word, v := range s.vectors {
		if strings.Contains(text, word) {
			return v, nil
		}
	}
	return []float32{0.5, 0.5}, nil
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.gate != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	v, err := s.vector(text)
	if err == nil {
		s.mu.Lock()
		s.embedded++
		s.mu.Unlock()
	}
	return v, err
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return s.vector(text)
}

func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Close() error      { return nil }

func (s *stubEmbedder) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// journalFixture is a journal directory on disk.
type journalFixture struct {
	t     *testing.T
	dir   string
	docs  *document.FileStore
	snaps snapshot.Store
}

func newJournal(t *testing.T) *journalFixture {
	t.Helper()
	return &journalFixture{
		t:     t,
		dir:   t.TempDir(),
		docs:  document.NewFileStore(nil),
		snaps: snapshot.NewFileStore(""),
	}
}

func day(d int) time.Time {
	return time.Date(2026, 2, d, 8, 0, 0, 0, time.UTC)
}

func (j *journalFixture) write(id, title, body string, created time.Time, mods ...func(*document.FrontMatter)) {
	j.t.Helper()
	doc := &document.Document{
		ID:   id,
		Meta: document.FrontMatter{Title: title, CreatedAt: created},
		Body: body,
	}
	for _, m := range mods {
		m(&doc.Meta)
	}
	require.NoError(j.t, j.docs.Write(context.Background(), j.dir, doc))
}

func replyTo(parent string) func(*document.FrontMatter) {
	return func(fm *document.FrontMatter) {
		fm.IsReply = true
		fm.Parent = parent
	}
}

func (j *journalFixture) coordinator(e *stubEmbedder) *Coordinator {
	cfg := Config{Docs: j.docs, Snapshots: j.snaps}
	if e != nil {
		cfg.Embedder = e
	}
	c := New(cfg)
	j.t.Cleanup(func() { _ = c.Close() })
	return c
}

func (j *journalFixture) load(e *stubEmbedder) *Coordinator {
	j.t.Helper()
	c := j.coordinator(e)
	_, err := c.Load(context.Background(), j.dir)
	require.NoError(j.t, err)
	return c
}

func refs(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Ref)
	}
	return out
}
