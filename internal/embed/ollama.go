package embed

import (
	"context"
	"strings"
)

// ollamaEmbedRequest is the Ollama /api/embed request.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ollamaEmbedResponse is the Ollama /api/embed response.
type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder calls a local Ollama server.
type OllamaEmbedder struct {
	http  *httpClient
	host  string
	model string
}

// Compile-time interface check.
var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. No request is made until the
// first Embed call.
func NewOllamaEmbedder(cfg Config) *OllamaEmbedder {
	host := strings.TrimRight(cfg.BaseURL, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaEmbedder{http: newHTTPClient("ollama", cfg), host: host, model: model}
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaEmbedResponse
	req := ollamaEmbedRequest{Model: e.model, Input: text}
	if err := e.http.postJSON(ctx, e.host+"/api/embed", nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, emptyVector("ollama")
	}
	return toFloat32(resp.Embeddings[0]), nil
}

// EmbedQuery implements Embedder.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.Embed(ctx, text)
}

// ModelName implements Embedder.
func (e *OllamaEmbedder) ModelName() string { return e.model }

// Close implements Embedder.
func (e *OllamaEmbedder) Close() error {
	e.http.close()
	return nil
}
