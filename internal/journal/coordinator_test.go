package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/metadata"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
	"github.com/Aman-CERP/amanjournal/internal/telemetry"
)

func TestCoordinator_SingleEntryWithoutProvider(t *testing.T) {
	// Given a journal with one parent and no provider
	j := newJournal(t)
	j.write("p.md", "P", "first entry", day(1))

	// When loaded
	c := j.load(nil)

	// Then the empty query and vector search both give empty lists
	got, err := c.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)

	vgot, err := c.VectorSearch(context.Background(), "first", 5)
	require.NoError(t, err)
	assert.Empty(t, vgot)

	m, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestCoordinator_LexicalSearchScenario(t *testing.T) {
	// Given two parents sharing "banana"
	j := newJournal(t)
	j.write("p1.md", "", "apple banana", day(1))
	j.write("p2.md", "", "banana cherry", day(2))
	c := j.load(nil)

	// When searching
	banana, err := c.Search(context.Background(), "banana")
	require.NoError(t, err)
	apple, err := c.Search(context.Background(), "apple")
	require.NoError(t, err)

	// Then banana matches both and apple only P1
	assert.ElementsMatch(t, []string{"p1.md", "p2.md"}, refs(banana))
	assert.Equal(t, []string{"p1.md"}, refs(apple))
}

func TestCoordinator_JoinMatchesMapAtCallTime(t *testing.T) {
	j := newJournal(t)
	j.write("p1.md", "Orchard", "apple trees", day(1))
	c := j.load(nil)

	got, err := c.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, got, 1)

	m, err := c.Get(context.Background())
	require.NoError(t, err)
	rec, ok := m.Get(got[0].Ref)
	require.True(t, ok)
	assert.Equal(t, rec, got[0].Record)
	assert.Positive(t, got[0].Score)
}

func TestCoordinator_VectorSearchScenario(t *testing.T) {
	// Given P1 embeds to [1,0] and P2 to [0,1]
	j := newJournal(t)
	j.write("p1.md", "", "sunrise run", day(1))
	j.write("p2.md", "", "midnight tea", day(2))
	e := newStubEmbedder()
	e.vectors["sunrise"] = []float32{1, 0}
	e.vectors["midnight"] = []float32{0, 1}
	c := j.load(e)

	// When the query embeds to [1,0]
	got, err := c.VectorSearch(context.Background(), "sunrise", 0)

	// Then P1 ranks before P2
	require.NoError(t, err)
	assert.Equal(t, []string{"p1.md", "p2.md"}, refs(got))
}

func TestCoordinator_AddReplyScenario(t *testing.T) {
	// Given parent P1 and a reply file R1
	j := newJournal(t)
	j.write("p1.md", "Trip", "we left at dawn", day(1))
	e := newStubEmbedder()
	c := j.load(e)
	require.Equal(t, 1, c.Stats().Vectors)

	j.write("r1.md", "", "looking back, worth it", day(3))

	// When the reply is attached
	m, err := c.AddReply(context.Background(), "p1.md", "r1.md")
	require.NoError(t, err)

	// Then the parent lists it and the reply points back
	p, _ := m.Get("p1.md")
	assert.Equal(t, []string{"r1.md"}, p.Replies)
	r, _ := m.Get("r1.md")
	assert.True(t, r.IsReply)
	assert.Equal(t, "p1.md", r.Parent)

	// And the reply never gets its own embedding
	assert.Equal(t, 1, c.Stats().Vectors)

	// And the thread text has both bodies in order
	text, err := c.GetThreadAsText(context.Background(), "p1.md")
	require.NoError(t, err)
	pi := strings.Index(text, "we left at dawn")
	ri := strings.Index(text, "looking back, worth it")
	require.GreaterOrEqual(t, pi, 0)
	require.GreaterOrEqual(t, ri, 0)
	assert.Less(t, pi, ri)
	assert.Contains(t, text, "Trip")

	// And a reply id renders the same thread
	fromReply, err := c.GetThreadAsText(context.Background(), "r1.md")
	require.NoError(t, err)
	assert.Equal(t, text, fromReply)

	// And the reply text is searchable through its parent
	got, err := c.Search(context.Background(), "worth")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1.md"}, refs(got))
}

func TestCoordinator_AddReplyRejectsBadTargets(t *testing.T) {
	j := newJournal(t)
	j.write("p.md", "", "parent", day(1))
	j.write("r.md", "", "reply", day(2), replyTo("p.md"))
	c := j.load(nil)

	_, err := c.AddReply(context.Background(), "missing.md", "r.md")
	assert.Equal(t, jerrors.ErrCodeEntryNotFound, jerrors.GetCode(err))

	_, err = c.AddReply(context.Background(), "r.md", "p.md")
	assert.Equal(t, jerrors.ErrCodeInvalidInput, jerrors.GetCode(err))

	_, err = c.AddReply(context.Background(), "p.md", "p.md")
	assert.Equal(t, jerrors.ErrCodeInvalidInput, jerrors.GetCode(err))
}

func TestCoordinator_ReconstructionLinksDeclaredReplies(t *testing.T) {
	j := newJournal(t)
	j.write("p.md", "", "parent", day(1))
	j.write("r.md", "", "child", day(2), replyTo("p.md"))

	c := j.load(nil)

	m, err := c.Get(context.Background())
	require.NoError(t, err)
	p, _ := m.Get("p.md")
	assert.Equal(t, []string{"r.md"}, p.Replies)
	assert.Equal(t, 1, c.Stats().LexicalDocs)
}

func TestCoordinator_RoundTripAcrossReload(t *testing.T) {
	// Given a loaded and mutated journal
	j := newJournal(t)
	j.write("a.md", "A", "alpha", day(1), func(fm *document.FrontMatter) { fm.Tags = []string{"x", "a"} })
	j.write("b.md", "B", "beta", day(2))
	c := j.load(nil)
	j.write("c.md", "C", "gamma", day(3))
	_, err := c.Add(context.Background(), "c.md")
	require.NoError(t, err)
	before, err := c.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// When a new coordinator loads it
	again := j.load(nil)
	after, err := again.Get(context.Background())
	require.NoError(t, err)

	// Then the maps are equal and ordered newest first
	assert.Equal(t, before.Entries(), after.Entries())
	entries := after.Entries()
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].CreatedAt.After(entries[i-1].CreatedAt))
	}
}

func TestCoordinator_RemoveIsIdempotentAndCloses(t *testing.T) {
	j := newJournal(t)
	j.write("p1.md", "", "apple", day(1))
	j.write("p2.md", "", "apple pear", day(2))
	e := newStubEmbedder()
	c := j.load(e)
	require.NoError(t, os.Remove(filepath.Join(j.dir, metadata.SnapshotName)))

	// When removing an unknown id
	m, err := c.Remove(context.Background(), "never.md")

	// Then it succeeds and still persists
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.FileExists(t, filepath.Join(j.dir, metadata.SnapshotName))

	// When removing a known id
	_, err = c.Remove(context.Background(), "p1.md")
	require.NoError(t, err)

	// Then neither index returns it
	got, err := c.Search(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2.md"}, refs(got))
	vgot, err := c.VectorSearch(context.Background(), "apple", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2.md"}, refs(vgot))
	assert.Equal(t, 1, c.Stats().Vectors)
}

func TestCoordinator_AddSurvivesProviderOutage(t *testing.T) {
	j := newJournal(t)
	e := newStubEmbedder()
	c := j.load(e)

	e.setDown(true)
	j.write("p.md", "", "offline thoughts", day(1))
	_, err := c.Add(context.Background(), "p.md")

	require.NoError(t, err)
	assert.Equal(t, 0, c.Stats().Vectors)
	got, err := c.Search(context.Background(), "offline")
	require.NoError(t, err)
	assert.Equal(t, []string{"p.md"}, refs(got))

	vgot, err := c.VectorSearch(context.Background(), "offline", 5)
	require.NoError(t, err)
	assert.Empty(t, vgot)
}

func TestCoordinator_AddOfMissingDocumentFails(t *testing.T) {
	j := newJournal(t)
	c := j.load(nil)

	_, err := c.Add(context.Background(), "ghost.md")

	assert.Equal(t, jerrors.ErrCodeDocumentNotFound, jerrors.GetCode(err))
}

// brokenWrites fails every snapshot write once armed.
type brokenWrites struct {
	snapshot.Store
	armed bool
}

func (b *brokenWrites) Write(ctx context.Context, j, name string, data []byte) error {
	if b.armed {
		return jerrors.StorageError("disk full", errors.New("ENOSPC"))
	}
	return b.Store.Write(ctx, j, name, data)
}

func TestCoordinator_StorageFailureSurfaces(t *testing.T) {
	j := newJournal(t)
	snaps := &brokenWrites{Store: j.snaps}
	j.snaps = snaps
	c := j.load(nil)

	snaps.armed = true
	j.write("p.md", "", "text", day(1))
	_, err := c.Add(context.Background(), "p.md")

	require.Error(t, err)
	assert.True(t, jerrors.IsFatal(err))
	m, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestCoordinator_UpdateUnknownEntry(t *testing.T) {
	j := newJournal(t)
	c := j.load(nil)

	_, err := c.Update(context.Background(), "nope.md", metadata.Record{Title: "x"})

	assert.Equal(t, jerrors.ErrCodeEntryNotFound, jerrors.GetCode(err))
}

func TestCoordinator_UpdateReindexesTitle(t *testing.T) {
	j := newJournal(t)
	j.write("p.md", "Old", "body", day(1))
	c := j.load(nil)

	m, err := c.Get(context.Background())
	require.NoError(t, err)
	rec, _ := m.Get("p.md")
	rec.Title = "Lighthouse"
	_, err = c.Update(context.Background(), "p.md", rec)
	require.NoError(t, err)

	got, err := c.Search(context.Background(), "lighthouse")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lighthouse", got[0].Title)
}

func TestCoordinator_RefreshKeepsReplyLinks(t *testing.T) {
	// Given a parent with an attached reply
	j := newJournal(t)
	j.write("p.md", "", "draft", day(1))
	j.write("r.md", "", "comment", day(2))
	c := j.load(nil)
	_, err := c.AddReply(context.Background(), "p.md", "r.md")
	require.NoError(t, err)

	// When the parent is edited on disk and refreshed
	j.write("p.md", "", "final version", day(1))
	m, err := c.Refresh(context.Background(), "p.md")
	require.NoError(t, err)

	// Then the reply link survives and the new text is searchable
	p, _ := m.Get("p.md")
	assert.Equal(t, []string{"r.md"}, p.Replies)
	got, err := c.Search(context.Background(), "final")
	require.NoError(t, err)
	assert.Equal(t, []string{"p.md"}, refs(got))
}

func TestCoordinator_RefreshOfReplyReembedsParent(t *testing.T) {
	j := newJournal(t)
	j.write("p.md", "", "parent", day(1))
	j.write("r.md", "", "reply", day(2), replyTo("p.md"))
	e := newStubEmbedder()
	c := j.load(e)
	before := e.embedded

	j.write("r.md", "", "edited reply", day(2), replyTo("p.md"))
	_, err := c.Refresh(context.Background(), "r.md")
	require.NoError(t, err)

	assert.Equal(t, before+1, e.embedded)
	assert.Equal(t, 1, c.Stats().Vectors)
}

func TestCoordinator_RegenerateRequiresProvider(t *testing.T) {
	j := newJournal(t)
	j.write("p.md", "", "x", day(1))

	c := j.load(nil)
	_, err := c.Regenerate(context.Background())
	assert.Error(t, err)

	e := newStubEmbedder()
	j2 := newJournal(t)
	j2.write("p.md", "", "x", day(1))
	j2.write("q.md", "", "y", day(2))
	c2 := j2.load(e)
	report, err := c2.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Embedded)
}

func TestCoordinator_OperationsBeforeLoad(t *testing.T) {
	j := newJournal(t)
	c := j.coordinator(nil)
	ctx := context.Background()

	_, err := c.Search(ctx, "x")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = c.VectorSearch(ctx, "x", 1)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = c.Add(ctx, "x.md")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = c.Remove(ctx, "x.md")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = c.GetThreadAsText(ctx, "x.md")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = c.RepairAll(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, "unloaded", c.Stats().State)
}

func TestCoordinator_OperationsWaitForLoading(t *testing.T) {
	// Given a load blocked inside the embedding provider
	j := newJournal(t)
	j.write("p.md", "", "waiting room", day(1))
	e := newStubEmbedder()
	e.gate = make(chan struct{})
	e.entered = make(chan struct{}, 1)
	c := j.coordinator(e)

	loadErr := make(chan error, 1)
	go func() {
		_, err := c.Load(context.Background(), j.dir)
		loadErr <- err
	}()
	<-e.entered
	assert.Equal(t, StateLoading, c.State())

	// When a search is issued during loading
	searchDone := make(chan []Result, 1)
	go func() {
		got, err := c.Search(context.Background(), "waiting")
		assert.NoError(t, err)
		searchDone <- got
	}()

	// Then it waits
	select {
	case <-searchDone:
		t.Fatal("search returned while loading")
	case <-time.After(50 * time.Millisecond):
	}

	// And a caller with a deadline gives up
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, "waiting")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// When the load finishes
	close(e.gate)
	require.NoError(t, <-loadErr)

	// Then the queued search observes the loaded journal
	select {
	case got := <-searchDone:
		assert.Equal(t, []string{"p.md"}, refs(got))
	case <-time.After(2 * time.Second):
		t.Fatal("queued search never completed")
	}
	assert.Equal(t, StateReady, c.State())
}

func TestCoordinator_JournalSwitchResets(t *testing.T) {
	// Given journal one loaded
	one := newJournal(t)
	one.write("a.md", "", "only in one", day(1))
	two := newJournal(t)
	two.write("b.md", "", "only in two", day(2))
	c := one.load(nil)

	// When switching to journal two
	_, err := c.Load(context.Background(), two.dir)
	require.NoError(t, err)

	// Then nothing from journal one remains
	got, err := c.Search(context.Background(), "one")
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = c.Search(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, refs(got))
	assert.Equal(t, two.dir, c.JournalID())

	// And journal one's lock is released
	lock, err := snapshot.AcquireOwner(one.dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestCoordinator_ReloadSameJournalIsNoop(t *testing.T) {
	j := newJournal(t)
	j.write("a.md", "", "x", day(1))
	c := j.load(nil)

	m, err := c.Load(context.Background(), j.dir)

	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, StateReady, c.State())
}

func TestCoordinator_SecondOwnerIsRejected(t *testing.T) {
	j := newJournal(t)
	j.load(nil)

	other := New(Config{Docs: j.docs, Snapshots: j.snaps})
	_, err := other.Load(context.Background(), j.dir)

	assert.Equal(t, jerrors.ErrCodeJournalLocked, jerrors.GetCode(err))
	assert.Equal(t, StateUnloaded, other.State())
}

func TestCoordinator_Stats(t *testing.T) {
	j := newJournal(t)
	j.write("p.md", "", "x", day(1))
	j.write("r.md", "", "y", day(2), replyTo("p.md"))
	c := j.load(newStubEmbedder())

	s := c.Stats()

	assert.Equal(t, "ready", s.State)
	assert.Equal(t, j.dir, s.JournalID)
	assert.Equal(t, 2, s.Entries)
	assert.Equal(t, 1, s.Parents)
	assert.Equal(t, 1, s.LexicalDocs)
	assert.Equal(t, 1, s.Vectors)
	assert.True(t, s.VectorsEnabled)
	assert.Equal(t, "stub", s.EmbeddingModel)
}

func TestMergeLinks(t *testing.T) {
	old := metadata.Record{Replies: []string{"r1.md", "r2.md"}}
	fresh := metadata.Record{Title: "new", Replies: []string{"r2.md", "r3.md"}}
	got := mergeLinks(old, fresh)
	assert.Equal(t, []string{"r1.md", "r2.md", "r3.md"}, got.Replies)
	assert.Equal(t, "new", got.Title)

	oldReply := metadata.Record{IsReply: true, Parent: "p.md"}
	got = mergeLinks(oldReply, metadata.Record{Title: "edited"})
	assert.True(t, got.IsReply)
	assert.Equal(t, "p.md", got.Parent)
}

func TestCoordinator_StatsCountQueries(t *testing.T) {
	// Given a loaded journal
	j := newJournal(t)
	j.write("p.md", "Walk", "river path", day(1))
	c := j.load(newStubEmbedder())
	ctx := context.Background()

	// When searching both ways, once with no hits
	_, err := c.Search(ctx, "river")
	require.NoError(t, err)
	_, err = c.Search(ctx, "volcano")
	require.NoError(t, err)
	_, err = c.VectorSearch(ctx, "river", 0)
	require.NoError(t, err)

	// Then the query metrics reflect it
	q := c.Stats().Queries
	assert.EqualValues(t, 3, q.Total)
	assert.EqualValues(t, 2, q.ByKind[telemetry.KindLexical])
	assert.EqualValues(t, 1, q.ByKind[telemetry.KindVector])
	assert.EqualValues(t, 1, q.ZeroResults)
	assert.Equal(t, []string{"volcano"}, q.RecentEmpty)
}

func TestCoordinator_SlowProviderDoesNotBlockSearch(t *testing.T) {
	// Given a loaded journal whose provider then stalls inside an add
	j := newJournal(t)
	j.write("p.md", "", "alpha morning", day(1))
	e := newStubEmbedder()
	c := j.load(e)

	e.gate = make(chan struct{})
	e.entered = make(chan struct{}, 1)
	j.write("q.md", "", "beta evening", day(2))

	addErr := make(chan error, 1)
	go func() {
		_, err := c.Add(context.Background(), "q.md")
		addErr <- err
	}()
	<-e.entered

	// When a lexical search runs while the embedding is blocked
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := c.Search(ctx, "alpha")

	// Then it answers without waiting for the provider
	require.NoError(t, err)
	assert.Equal(t, []string{"p.md"}, refs(got))

	close(e.gate)
	require.NoError(t, <-addErr)
}

func TestCoordinator_SharedSnapshotDirKeepsJournalsApart(t *testing.T) {
	// Given two journals persisting into one snapshot directory
	docs := document.NewFileStore(nil)
	snaps := snapshot.NewFileStore(filepath.Join(t.TempDir(), "snapshots"))
	one := &journalFixture{t: t, dir: t.TempDir(), docs: docs, snaps: snaps}
	one.write("a.md", "Only in journal one", "first journal", day(1))
	two := &journalFixture{t: t, dir: t.TempDir(), docs: docs, snaps: snaps}

	c := one.load(nil)

	// When switching to the empty second journal
	m, err := c.Load(context.Background(), two.dir)

	// Then none of journal one's entries carry over
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())

	// And switching back finds journal one's snapshot intact
	m, err = c.Load(context.Background(), one.dir)
	require.NoError(t, err)
	rec, ok := m.Get("a.md")
	require.True(t, ok)
	assert.Equal(t, "Only in journal one", rec.Title)
}

func TestCoordinator_AddReportsCancellationDuringEmbedding(t *testing.T) {
	// Given an add blocked inside the embedding provider
	j := newJournal(t)
	e := newStubEmbedder()
	c := j.load(e)
	e.gate = make(chan struct{})
	e.entered = make(chan struct{}, 1)
	j.write("p.md", "", "unfinished", day(1))

	ctx, cancel := context.WithCancel(context.Background())
	addErr := make(chan error, 1)
	go func() {
		_, err := c.Add(ctx, "p.md")
		addErr <- err
	}()
	<-e.entered

	// When the caller gives up
	cancel()

	// Then the add fails instead of passing for a provider skip
	err := <-addErr
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Stats().Vectors)
	close(e.gate)
}
