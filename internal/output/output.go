// Package output formats CLI output: status lines with icons on a terminal,
// plain markers when piped, and JSON when asked for.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/amanjournal/internal/journal"
)

// Writer writes CLI output.
type Writer struct {
	out   io.Writer
	fancy bool
	json  bool
}

// New creates a Writer. Icons are used only when out is a terminal.
func New(out io.Writer) *Writer {
	return &Writer{out: out, fancy: isTerminal(out)}
}

// NewJSON creates a Writer that emits JSON documents.
func NewJSON(out io.Writer) *Writer {
	return &Writer{out: out, json: true}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// JSONMode reports whether the writer emits JSON.
func (w *Writer) JSONMode() bool {
	return w.json
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Status prints msg behind an icon on a terminal or a plain marker otherwise.
// Write errors are ignored for console output.
func (w *Writer) Status(icon, plain, msg string) {
	if w.json {
		return
	}
	marker := plain
	if w.fancy {
		marker = icon
	}
	if marker == "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", marker, msg)
}

// Successf prints a success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Status("✅", "[ok]", fmt.Sprintf(format, args...))
}

// Warningf prints a warning line.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status("⚠️ ", "[warn]", fmt.Sprintf(format, args...))
}

// Infof prints an indented detail line.
func (w *Writer) Infof(format string, args ...any) {
	w.Status("", "", fmt.Sprintf(format, args...))
}

// Text prints s as is, adding a trailing newline if missing.
func (w *Writer) Text(s string) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, _ = io.WriteString(w.out, s)
}

// Results prints search results, one block per entry.
func (w *Writer) Results(query string, results []journal.Result) error {
	if w.json {
		if results == nil {
			results = []journal.Result{}
		}
		return w.JSON(results)
	}
	if len(results) == 0 {
		w.Status("🔍", "[none]", fmt.Sprintf("No entries match %q", query))
		return nil
	}

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.Ref
		}
		_, _ = fmt.Fprintf(w.out, "%2d. %s  (%.3f)\n", i+1, title, r.Score)
		_, _ = fmt.Fprintf(w.out, "    %s  %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Ref)
		if len(r.Tags) > 0 {
			_, _ = fmt.Fprintf(w.out, "    #%s\n", strings.Join(r.Tags, " #"))
		}
		if len(r.Replies) > 0 {
			_, _ = fmt.Fprintf(w.out, "    %d %s\n", len(r.Replies), plural(len(r.Replies), "reply", "replies"))
		}
	}
	return nil
}

// Stats prints journal statistics.
func (w *Writer) Stats(s journal.Stats) error {
	if w.json {
		return w.JSON(s)
	}
	w.Successf("Journal %s is %s", s.JournalID, s.State)
	w.Infof("Entries:      %d (%d threads)", s.Entries, s.Parents)
	w.Infof("Lexical docs: %d", s.LexicalDocs)
	if s.VectorsEnabled {
		w.Infof("Embeddings:   %d (%s)", s.Vectors, s.EmbeddingModel)
	} else {
		w.Infof("Embeddings:   %d (no provider configured)", s.Vectors)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
