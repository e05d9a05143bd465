package mcp

// SearchInput is the input of the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"keywords to look for in titles, bodies, tags, attachments and dates"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// VectorSearchInput is the input of the vector_search tool.
type VectorSearchInput struct {
	Query string `json:"query" jsonschema:"a description of what the entries are about"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default from config"`
}

// SearchOutput is the output of both search tools.
type SearchOutput struct {
	Results []EntryResult `json:"results" jsonschema:"matching entries, best first"`
}

// EntryResult is one matching entry.
type EntryResult struct {
	Ref       string   `json:"ref" jsonschema:"entry id, the path relative to the journal root"`
	Score     float64  `json:"score" jsonschema:"relevance score, higher is better"`
	Title     string   `json:"title,omitempty"`
	CreatedAt string   `json:"created_at" jsonschema:"creation time, RFC 3339"`
	Tags      []string `json:"tags,omitempty"`
	Replies   int      `json:"replies,omitempty" jsonschema:"number of replies in the thread"`
	IsAI      bool     `json:"is_ai,omitempty" jsonschema:"true for AI-written entries"`
	Highlight string   `json:"highlight,omitempty"`
}

// ThreadInput is the input of the thread tool.
type ThreadInput struct {
	Entry string `json:"entry" jsonschema:"entry id of a parent or reply"`
}

// ThreadOutput is the output of the thread tool.
type ThreadOutput struct {
	Entry string `json:"entry"`
	Text  string `json:"text" jsonschema:"the whole thread as timestamped plain text"`
}

// StatusInput is the input of the status tool (no parameters).
type StatusInput struct{}

// StatusOutput is the output of the status tool.
type StatusOutput struct {
	State          string `json:"state" jsonschema:"unloaded, loading or ready"`
	Journal        string `json:"journal,omitempty"`
	Entries        int    `json:"entries"`
	Threads        int    `json:"threads"`
	LexicalDocs    int    `json:"lexical_docs"`
	Vectors        int    `json:"vectors"`
	VectorSearch   bool   `json:"vector_search" jsonschema:"true when an embedding provider is configured"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Queries        int64  `json:"queries" jsonschema:"searches answered since the journal was loaded"`
	EmptyQueries   int64  `json:"empty_queries" jsonschema:"searches that found nothing"`
}
