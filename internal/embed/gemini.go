package embed

import (
	"context"
	"strings"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// Gemini task types. Documents and queries are embedded differently.
const (
	geminiTaskDocument = "RETRIEVAL_DOCUMENT"
	geminiTaskQuery    = "RETRIEVAL_QUERY"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// GeminiEmbedder calls the Gemini models/{model}:embedContent endpoint.
type GeminiEmbedder struct {
	http    *httpClient
	baseURL string
	apiKey  string
	model   string
}

// Compile-time interface check.
var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates a Gemini embedder. The API key is required.
func NewGeminiEmbedder(cfg Config) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, jerrors.ConfigError("gemini provider requires an API key", nil).
			WithSuggestion("set GEMINI_API_KEY or embeddings.api_key")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	model := strings.TrimPrefix(cfg.Model, "models/")
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiEmbedder{
		http:    newHTTPClient("gemini", cfg),
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   model,
	}, nil
}

func (e *GeminiEmbedder) embed(ctx context.Context, text, task string) ([]float32, error) {
	var resp geminiEmbedResponse
	req := geminiEmbedRequest{
		Model:    "models/" + e.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType: task,
	}
	url := e.baseURL + "/models/" + e.model + ":embedContent"
	headers := map[string]string{"x-goog-api-key": e.apiKey}
	if err := e.http.postJSON(ctx, url, headers, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, emptyVector("gemini")
	}
	return toFloat32(resp.Embedding.Values), nil
}

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, geminiTaskDocument)
}

// EmbedQuery implements Embedder.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, geminiTaskQuery)
}

// ModelName implements Embedder.
func (e *GeminiEmbedder) ModelName() string { return e.model }

// Close implements Embedder.
func (e *GeminiEmbedder) Close() error {
	e.http.close()
	return nil
}
