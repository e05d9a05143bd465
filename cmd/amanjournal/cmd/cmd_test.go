package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanjournal/internal/config"
	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// cli runs amanjournal commands against an isolated config and log file.
type cli struct {
	t         *testing.T
	configDir string
	logFile   string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	c := &cli{t: t, configDir: t.TempDir()}
	c.logFile = filepath.Join(t.TempDir(), "amanjournal.log")

	for _, k := range []string{
		"AMANJOURNAL_EMBEDDINGS_PROVIDER", "AMANJOURNAL_API_KEY", "AMANJOURNAL_SNAPSHOT_BACKEND",
		"AMANJOURNAL_SNAPSHOT_DIR", "AMANJOURNAL_LOG_LEVEL", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("AMANJOURNAL_LOG_FILE", c.logFile)
	return c
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config-dir", c.configDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

// newJournal writes a walk entry with one reply and an unrelated entry.
func newJournal(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	store := document.NewFileStore(nil)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2026, 3, d, 9, 30, 0, 0, time.UTC) }
	docs := []*document.Document{
		{
			ID:   "2026/03/walk.md",
			Meta: document.FrontMatter{Title: "Morning walk", CreatedAt: day(4), Tags: []string{"outside"}, Replies: []string{"2026/03/walk-reply.md"}},
			Body: "Walked along the river before breakfast.\n",
		},
		{
			ID:   "2026/03/walk-reply.md",
			Meta: document.FrontMatter{CreatedAt: day(5), IsReply: true, Parent: "2026/03/walk.md"},
			Body: "Heron on the far bank again.\n",
		},
		{
			ID:   "2026/03/budget.md",
			Meta: document.FrontMatter{Title: "Budget", CreatedAt: day(6)},
			Body: "Rent and groceries for April.\n",
		},
	}
	for _, d := range docs {
		require.NoError(t, store.Write(ctx, dir, d))
	}
	return dir
}

func TestIndex_PrintsStats(t *testing.T) {
	// Given a journal with two threads
	c := newCLI(t)
	dir := newJournal(t)

	// When indexing it with JSON output
	out := c.mustRun("index", dir, "--json")

	// Then the stats describe every entry
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "ready", stats["state"])
	assert.EqualValues(t, 3, stats["entries"])
	assert.EqualValues(t, 2, stats["parents"])
	assert.Equal(t, false, stats["vectors_enabled"])
}

func TestIndex_WritesMetadataSnapshotAndLog(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	c.mustRun("index", dir)

	_, err := os.Stat(filepath.Join(dir, "index.json"))
	assert.NoError(t, err)

	_, err = os.Stat(c.logFile)
	assert.NoError(t, err)
}

func TestIndex_MissingJournal(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("index", filepath.Join(t.TempDir(), "nope"))

	require.Error(t, err)
	assert.Equal(t, jerrors.ErrCodeJournalDir, jerrors.GetCode(err))
}

func TestSearch_MatchesReplyText(t *testing.T) {
	// Given a reply mentioning a heron
	c := newCLI(t)
	dir := newJournal(t)

	// When searching for it
	out := c.mustRun("search", dir, "heron")

	// Then the parent thread is returned
	assert.Contains(t, out, "Morning walk")
	assert.Contains(t, out, "2026/03/walk.md")
	assert.NotContains(t, out, "Budget")
}

func TestSearch_JSONAndEmpty(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	out := c.mustRun("search", dir, "groceries", "--json")
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "2026/03/budget.md", results[0]["ref"])

	out = c.mustRun("search", dir, "   ", "--json")
	assert.JSONEq(t, "[]", out)
}

func TestVectorSearch_WithoutProviderIsEmpty(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	out := c.mustRun("vsearch", dir, "calm mornings")

	assert.Contains(t, out, "semantic search is disabled")
	assert.Contains(t, out, "No entries match")
}

func TestThread_ResolvesReplyToParent(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	out := c.mustRun("thread", dir, "2026/03/walk-reply.md")

	assert.Contains(t, out, "Walked along the river")
	assert.Contains(t, out, "Heron on the far bank")
	assert.Less(t, strings.Index(out, "Walked"), strings.Index(out, "Heron"))
}

func TestWrite_CreatesAndIndexesEntry(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	// When writing a new entry
	out := c.mustRun("write", dir, "--title", "Garden", "--json", "Planted", "tomatoes")

	var res mutationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4, res.Entries)
	assert.True(t, strings.HasSuffix(res.Entry, ".md"))

	// Then the file exists and the entry is searchable
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(res.Entry)))
	require.NoError(t, err)
	assert.Contains(t, c.mustRun("search", dir, "tomatoes"), "Garden")
}

func TestWrite_ReplyJoinsThread(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	c.mustRun("write", dir, "--reply-to", "2026/03/budget.md", "Cut", "the", "streaming", "plan")

	out := c.mustRun("thread", dir, "2026/03/budget.md")
	assert.Contains(t, out, "Rent and groceries")
	assert.Contains(t, out, "Cut the streaming plan")

	out = c.mustRun("search", dir, "streaming", "--json")
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "2026/03/budget.md", results[0]["ref"])
}

func TestWrite_RejectsReplyToReply(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	_, err := c.run("write", dir, "--reply-to", "2026/03/walk-reply.md", "nested")

	require.Error(t, err)
	assert.Equal(t, jerrors.ErrCodeInvalidInput, jerrors.GetCode(err))
}

func TestWrite_EmptyTextIsInvalid(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	_, err := c.run("write", dir)

	require.Error(t, err)
	assert.Equal(t, jerrors.ErrCodeInvalidInput, jerrors.GetCode(err))
}

func TestRemove_DropsEntryFromSearch(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	c.mustRun("remove", dir, "2026/03/budget.md")

	out := c.mustRun("search", dir, "groceries", "--json")
	assert.JSONEq(t, "[]", out)

	// Removing again is not an error
	c.mustRun("remove", dir, "2026/03/budget.md")
}

func TestReplyAndRepair(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	// Given a loose entry linked as a reply via the CLI
	require.NoError(t, document.NewFileStore(nil).Write(context.Background(), dir, &document.Document{
		ID:   "2026/03/note.md",
		Meta: document.FrontMatter{CreatedAt: time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC)},
		Body: "Budget looks fine.\n",
	}))
	c.mustRun("add", dir, "2026/03/note.md")
	c.mustRun("reply", dir, "2026/03/budget.md", "2026/03/note.md")

	// When repairing every link
	out := c.mustRun("repair", dir, "--json")

	// Then nothing needs changing
	assert.JSONEq(t, "[]", out)
	assert.Contains(t, c.mustRun("repair", dir), "Reply links are consistent")
}

func TestRegenerate_WithoutProviderFails(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)

	_, err := c.run("regenerate", dir)

	require.Error(t, err)
	assert.Equal(t, jerrors.CategoryConfig, jerrors.GetCategory(err))
}

func TestConfigInit_WritesUserConfig(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("config", "init")

	assert.Contains(t, out, "config.yaml")
	data, err := os.ReadFile(filepath.Join(c.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "vector_top_n: 10")
}

func TestConfigShow_UsesJournalConfig(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".amanjournal.yaml"), []byte("search:\n  vector_top_n: 3\n"), 0o644))

	out := c.mustRun("config", "show", dir)

	assert.Contains(t, out, "vector_top_n: 3")
}

func TestLogs_ShowsEntriesFromRun(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)
	c.mustRun("search", dir, "heron")

	out := c.mustRun("logs", "--file", c.logFile, "--filter", "search_completed")

	assert.Contains(t, out, "search_completed")
}

func TestVersion(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.mustRun("version"), "amanjournal")

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("version", "--json")), &info))
	assert.Contains(t, info, "go_version")
}

func TestEmbedConfig_PicksProviderEndpoint(t *testing.T) {
	newCLI(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".amanjournal.yaml"),
		[]byte("embeddings:\n  provider: ollama\n  ollama_host: http://127.0.0.1:9\n"), 0o644))

	g := &globalOptions{configDir: t.TempDir()}
	cfg, err := config.LoadFrom(g.userConfigPath(), dir)
	require.NoError(t, err)

	ec, err := embedConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9", ec.BaseURL)
	assert.Equal(t, "ollama", ec.Provider.String())
}

func TestProfileFlags_WriteProfiles(t *testing.T) {
	c := newCLI(t)
	dir := newJournal(t)
	prof := t.TempDir()
	cpu := filepath.Join(prof, "cpu.pprof")
	heap := filepath.Join(prof, "heap.pprof")

	c.mustRun("search", dir, "heron", "--profile-cpu", cpu, "--profile-mem", heap)

	for _, p := range []string{cpu, heap} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestDoctor_ReportsChecks(t *testing.T) {
	// Given a journal without an embedding provider
	c := newCLI(t)
	dir := newJournal(t)

	// When running doctor with JSON output
	out := c.mustRun("--json", "doctor", dir)

	// Then every check is reported and the entries are counted
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name    string `json:"name"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, "ready_with_warnings", report.Status)

	checks := map[string]string{}
	for _, ch := range report.Checks {
		checks[ch.Name] = ch.Status
		if ch.Name == "journal_dir" {
			assert.Equal(t, "3 entries", ch.Message)
		}
	}
	assert.Equal(t, "pass", checks["journal_dir"])
	assert.Equal(t, "pass", checks["journal_lock"])
	assert.Equal(t, "warn", checks["embedding_provider"])
}

func TestDoctor_MissingJournalFails(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("doctor", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Equal(t, jerrors.ErrCodeJournalDir, jerrors.GetCode(err))
	assert.Contains(t, out, "[FAIL] journal_dir")
}
