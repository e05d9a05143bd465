// Package document reads and writes journal entries: markdown files with a
// YAML front-matter block, addressed by their path relative to the journal root.
package document

import (
	"context"
	"time"
)

// FrontMatter is the metadata block at the top of an entry file.
type FrontMatter struct {
	Title       string    `yaml:"title,omitempty"`
	CreatedAt   time.Time `yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time `yaml:"updatedAt,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	Attachments []string  `yaml:"attachments,omitempty"`
	Replies     []string  `yaml:"replies,omitempty"`
	IsReply     bool      `yaml:"isReply,omitempty"`
	IsAI        bool      `yaml:"isAI,omitempty"`
	Parent      string    `yaml:"parent,omitempty"`
	Highlight   string    `yaml:"highlight,omitempty"`
}

// Document is one journal entry.
type Document struct {
	// ID is the entry's path relative to the journal root, with forward slashes.
	ID   string
	Meta FrontMatter
	Body string
}

// Store is the read side of the journal's document storage. Every call may
// fail independently; callers walking a whole journal skip failed reads.
type Store interface {
	// Read returns the entry entryID of journal journalID.
	Read(ctx context.Context, journalID, entryID string) (*Document, error)

	// List returns the ids of every entry in the journal, sorted.
	List(ctx context.Context, journalID string) ([]string, error)
}
