// Package metadata keeps the durable mapping from entry id to entry metadata
// for one journal, persisted as a single JSON snapshot.
package metadata

import (
	"sort"
	"time"

	"github.com/Aman-CERP/amanjournal/internal/document"
)

// Record is the metadata kept for one entry.
type Record struct {
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Tags        []string  `json:"tags,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	// Replies lists reply entry ids in thread order. Only parents have replies.
	Replies   []string `json:"replies,omitempty"`
	IsReply   bool     `json:"isReply"`
	IsAI      bool     `json:"isAI"`
	Highlight string   `json:"highlight,omitempty"`
	// Parent is the parent a reply declares for itself.
	Parent string `json:"parent,omitempty"`
}

// FromDocument extracts a Record from an entry's front-matter.
func FromDocument(doc *document.Document) Record {
	fm := doc.Meta
	r := Record{
		Title:       fm.Title,
		CreatedAt:   fm.CreatedAt,
		UpdatedAt:   fm.UpdatedAt,
		Tags:        fm.Tags,
		Attachments: fm.Attachments,
		Replies:     fm.Replies,
		IsReply:     fm.IsReply || fm.Parent != "",
		IsAI:        fm.IsAI,
		Highlight:   fm.Highlight,
		Parent:      fm.Parent,
	}
	return r.Normalize()
}

// Normalize returns a copy with canonical field values: UTC timestamps,
// sorted unique tags, deduplicated replies, nil instead of empty slices,
// and no replies on a reply.
func (r Record) Normalize() Record {
	r.CreatedAt = r.CreatedAt.UTC()
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	r.UpdatedAt = r.UpdatedAt.UTC()

	r.Tags = sortedUnique(r.Tags)
	r.Attachments = cloneOrNil(r.Attachments)
	if r.IsReply {
		r.Replies = nil
	} else {
		r.Replies = dedupe(r.Replies)
	}
	return r
}

// HasReply reports whether id is in r.Replies.
func (r Record) HasReply(id string) bool {
	for _, x := range r.Replies {
		if x == id {
			return true
		}
	}
	return false
}

func (r Record) clone() Record {
	r.Tags = cloneOrNil(r.Tags)
	r.Attachments = cloneOrNil(r.Attachments)
	r.Replies = cloneOrNil(r.Replies)
	return r
}

func cloneOrNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

func sortedUnique(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := dedupe(s)
	sort.Strings(out)
	return out
}

// dedupe keeps the first occurrence of each non-empty value, preserving order.
func dedupe(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
