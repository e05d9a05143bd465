package watcher

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type fileState struct {
	modTime time.Time
	size    int64
}

// scanTree records the state of every reportable file under root.
func scanTree(root string) map[string]fileState {
	out := make(map[string]fileState)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if _, ok := classify(rel); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[filepath.ToSlash(rel)] = fileState{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return out
}

// diffTrees returns the events that turn prev into next, sorted by path.
func diffTrees(prev, next map[string]fileState) []Event {
	now := time.Now()
	var out []Event
	add := func(rel string, op Operation) {
		if config, _ := classify(rel); config {
			op = OpConfigChange
		}
		out = append(out, Event{Path: rel, Operation: op, Timestamp: now})
	}

	for rel, cur := range next {
		old, ok := prev[rel]
		switch {
		case !ok:
			add(rel, OpCreate)
		case !old.modTime.Equal(cur.modTime) || old.size != cur.size:
			add(rel, OpModify)
		}
	}
	for rel := range prev {
		if _, ok := next[rel]; !ok {
			add(rel, OpDelete)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
