// Package ignore matches journal paths against the patterns in a journal's
// .amanjournalignore file.
//
// The syntax is the gitignore syntax: one pattern per line, # comments,
// ! to re-include, a trailing / for directories, a leading / to anchor at
// the journal root, and *, ? and ** wildcards. Paths are slash-separated and
// relative to the journal root.
//
//	m, err := ignore.Load(journalDir)
//	if m.Match("drafts/2026-03-04.md", false) {
//	    // not an entry
//	}
package ignore
