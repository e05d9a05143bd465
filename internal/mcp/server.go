package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanjournal/internal/journal"
	"github.com/Aman-CERP/amanjournal/pkg/version"
)

// DefaultLimit is the result count when a tool call gives none.
const DefaultLimit = 10

// MaxLimit caps the result count of a tool call.
const MaxLimit = 50

// Journal is the part of the coordinator the server needs.
type Journal interface {
	Search(ctx context.Context, query string) ([]journal.Result, error)
	VectorSearch(ctx context.Context, query string, topN int) ([]journal.Result, error)
	GetThreadAsText(ctx context.Context, entryID string) (string, error)
	Stats() journal.Stats
}

// Server serves a journal's read operations as MCP tools.
type Server struct {
	mcp     *mcp.Server
	journal Journal
	logger  *slog.Logger
}

// NewServer creates a server for j. A nil logger uses slog.Default().
func NewServer(j Journal, logger *slog.Logger) (*Server, error) {
	if j == nil {
		return nil, errors.New("journal is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{journal: j, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "amanjournal",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Keyword search over journal entries. Matches titles, entry and reply text, tags, attachments and dates such as 'march' or 'monday'. Results are ranked by relevance.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vector_search",
		Description: "Semantic search over journal threads by meaning rather than exact words. Returns nothing when no embedding provider is configured; check status first.",
	}, s.vectorSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "thread",
		Description: "Read a whole thread as plain text: the parent entry followed by every reply, each with its date.",
	}, s.threadHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "status",
		Description: "Report whether the journal is loaded, how many entries and threads it has, and whether semantic search is available.",
	}, s.statusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 4))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	start := time.Now()
	results, err := s.journal.Search(ctx, query)
	if err != nil {
		s.logger.Warn("mcp_search_failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	out := toOutput(results, clampLimit(input.Limit, DefaultLimit))
	s.logger.Info("mcp_search",
		slog.String("query", query),
		slog.Int("results", len(out.Results)),
		slog.Duration("duration", time.Since(start)))
	return nil, out, nil
}

func (s *Server) vectorSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input VectorSearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	limit := 0
	if input.Limit > 0 {
		limit = clampLimit(input.Limit, DefaultLimit)
	}

	start := time.Now()
	results, err := s.journal.VectorSearch(ctx, query, limit)
	if err != nil {
		s.logger.Warn("mcp_vector_search_failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	out := toOutput(results, len(results))
	s.logger.Info("mcp_vector_search",
		slog.String("query", query),
		slog.Int("results", len(out.Results)),
		slog.Duration("duration", time.Since(start)))
	return nil, out, nil
}

func (s *Server) threadHandler(ctx context.Context, _ *mcp.CallToolRequest, input ThreadInput) (
	*mcp.CallToolResult,
	ThreadOutput,
	error,
) {
	entry := strings.TrimSpace(input.Entry)
	if entry == "" {
		return nil, ThreadOutput{}, NewInvalidParamsError("entry parameter is required")
	}

	text, err := s.journal.GetThreadAsText(ctx, entry)
	if err != nil {
		return nil, ThreadOutput{}, MapError(err)
	}
	return nil, ThreadOutput{Entry: entry, Text: text}, nil
}

func (s *Server) statusHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	StatusOutput,
	error,
) {
	st := s.journal.Stats()
	return nil, StatusOutput{
		State:          st.State,
		Journal:        st.JournalID,
		Entries:        st.Entries,
		Threads:        st.Parents,
		LexicalDocs:    st.LexicalDocs,
		Vectors:        st.Vectors,
		VectorSearch:   st.VectorsEnabled,
		EmbeddingModel: st.EmbeddingModel,
		Queries:        st.Queries.Total,
		EmptyQueries:   st.Queries.ZeroResults,
	}, nil
}

// Serve runs the server over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return fmt.Errorf("mcp server: %w", err)
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func toOutput(results []journal.Result, limit int) SearchOutput {
	if limit > len(results) {
		limit = len(results)
	}
	out := SearchOutput{Results: make([]EntryResult, 0, limit)}
	for _, r := range results[:limit] {
		out.Results = append(out.Results, EntryResult{
			Ref:       r.Ref,
			Score:     r.Score,
			Title:     r.Title,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
			Tags:      r.Tags,
			Replies:   len(r.Replies),
			IsAI:      r.IsAI,
			Highlight: r.Highlight,
		})
	}
	return out
}

// clampLimit returns def for n <= 0, otherwise n capped at MaxLimit.
func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
