package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		rel        string
		wantConfig bool
		wantOK     bool
	}{
		{"2026/01/entry.md", false, true},
		{"entry.MD", false, true},
		{".amanjournal.yaml", true, true},
		{".amanjournal.json", false, false},
		{".amanjournal.lock", false, false},
		{".git/HEAD", false, false},
		{"notes/.draft.md", false, false},
		{".trash/old.md", false, false},
		{"photo.jpg", false, false},
		{".", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.rel, func(t *testing.T) {
			config, ok := classify(tc.rel)
			assert.Equal(t, tc.wantConfig, config)
			assert.Equal(t, tc.wantOK, ok)
		})
	}
}

func TestDebouncer_MergesPerPath(t *testing.T) {
	cases := []struct {
		name string
		ops  []Operation
		want []Operation // empty means the path is dropped
	}{
		{"create then modify", []Operation{OpCreate, OpModify, OpModify}, []Operation{OpCreate}},
		{"create then delete", []Operation{OpCreate, OpDelete}, nil},
		{"delete then create", []Operation{OpDelete, OpCreate}, []Operation{OpModify}},
		{"modify then delete", []Operation{OpModify, OpDelete}, []Operation{OpDelete}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDebouncer(time.Hour)
			defer d.Stop()

			for _, op := range tc.ops {
				d.Add(Event{Path: "a.md", Operation: op})
			}
			d.Add(Event{Path: "b.md", Operation: OpModify})
			d.Flush()

			batch := <-d.Output()
			var got []Operation
			for _, ev := range batch {
				if ev.Path == "a.md" {
					got = append(got, ev.Operation)
				}
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, "b.md", batch[len(batch)-1].Path)
		})
	}
}

func TestDebouncer_EmitsAfterQuietWindow(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(Event{Path: "x.md", Operation: OpModify})

	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, "x.md", batch[0].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch emitted")
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	d.Stop()
	d.Stop()
	d.Add(Event{Path: "late.md"})

	_, ok := <-d.Output()
	assert.False(t, ok)
}

func TestDiffTrees(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := map[string]fileState{
		"kept.md":           {modTime: t0, size: 10},
		"edited.md":         {modTime: t0, size: 10},
		"gone.md":           {modTime: t0, size: 1},
		".amanjournal.yaml": {modTime: t0, size: 5},
	}
	next := map[string]fileState{
		"kept.md":           {modTime: t0, size: 10},
		"edited.md":         {modTime: t0.Add(time.Second), size: 10},
		"new.md":            {modTime: t0, size: 3},
		".amanjournal.yaml": {modTime: t0, size: 6},
	}

	got := diffTrees(prev, next)

	ops := map[string]Operation{}
	for _, ev := range got {
		ops[ev.Path] = ev.Operation
	}
	assert.Equal(t, map[string]Operation{
		"edited.md":         OpModify,
		"new.md":            OpCreate,
		"gone.md":           OpDelete,
		".amanjournal.yaml": OpConfigChange,
	}, ops)
}

func TestScanTree_SkipsHiddenAndForeignFiles(t *testing.T) {
	root := t.TempDir()
	write(t, root, "2026/01/a.md")
	write(t, root, "b.md")
	write(t, root, ".git/config.md")
	write(t, root, "image.png")
	write(t, root, ".amanjournal.yaml")

	got := scanTree(root)

	assert.Len(t, got, 3)
	assert.Contains(t, got, "2026/01/a.md")
	assert.Contains(t, got, "b.md")
	assert.Contains(t, got, ".amanjournal.yaml")
}

func TestWatcher_ReportsNewEntry(t *testing.T) {
	for _, polling := range []bool{false, true} {
		name := "fsnotify"
		if polling {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			// Given a running watcher
			root := t.TempDir()
			w, err := New(Options{Debounce: 20 * time.Millisecond, PollInterval: 20 * time.Millisecond, ForcePolling: polling})
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = w.Start(ctx, root) }()
			defer func() { _ = w.Stop() }()
			time.Sleep(100 * time.Millisecond)

			// When an entry and an unrelated file are written
			write(t, root, "note.png")
			write(t, root, "entry.md")

			// Then only the entry is reported
			deadline := time.After(3 * time.Second)
			for {
				select {
				case batch := <-w.Events():
					for _, ev := range batch {
						assert.NotEqual(t, "note.png", ev.Path)
						if ev.Path == "entry.md" {
							return
						}
					}
				case <-deadline:
					t.Fatal("entry.md was not reported")
				}
			}
		})
	}
}

func TestWatcher_StartRejectsMissingDir(t *testing.T) {
	w, err := New(Options{ForcePolling: true})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func write(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}
