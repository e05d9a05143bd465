package embed

import (
	"context"
	"strings"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// OpenAIEmbedder calls the OpenAI embeddings API, or any server exposing the
// same /embeddings contract.
type OpenAIEmbedder struct {
	http    *httpClient
	baseURL string
	apiKey  string
	model   string
}

// Compile-time interface check.
var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAI embedder. The API key is required.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, jerrors.ConfigError("openai provider requires an API key", nil).
			WithSuggestion("set OPENAI_API_KEY or embeddings.api_key")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIEmbedder{
		http:    newHTTPClient("openai", cfg),
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   model,
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp openAIEmbedResponse
	headers := map[string]string{"Authorization": "Bearer " + e.apiKey}
	req := openAIEmbedRequest{Model: e.model, Input: []string{text}}
	if err := e.http.postJSON(ctx, e.baseURL+"/embeddings", headers, req, &resp); err != nil {
		return nil, err
	}
	for _, d := range resp.Data {
		if d.Index == 0 && len(d.Embedding) > 0 {
			return toFloat32(d.Embedding), nil
		}
	}
	return nil, emptyVector("openai")
}

// EmbedQuery implements Embedder.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.Embed(ctx, text)
}

// ModelName implements Embedder.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error {
	e.http.close()
	return nil
}
