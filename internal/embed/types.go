// Package embed turns journal text into embedding vectors through one of
// three providers: a local Ollama server, the OpenAI embeddings API (or any
// compatible endpoint), or the Gemini embedContent API.
package embed

import (
	"context"
	"errors"
	"time"
)

// ErrNoProvider is returned by NewEmbedder when no provider is configured.
// Embeddings are optional; callers treat this as "vector search disabled".
var ErrNoProvider = errors.New("no embedding provider configured")

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed embeds a document for storage.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery embeds a search query. Providers without separate query
	// embeddings behave exactly like Embed.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderNone disables embeddings.
	ProviderNone ProviderType = ""
	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"
	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"
	// ProviderGemini uses the Gemini embedContent API.
	ProviderGemini ProviderType = "gemini"
)

// Default models per provider.
const (
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultGeminiModel = "text-embedding-004"
)

// Default endpoints per provider.
const (
	DefaultOllamaHost    = "http://localhost:11434"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

const (
	// DefaultTimeout bounds a single provider request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultCacheSize is the default number of cached query embeddings.
	DefaultCacheSize = 256
)

// Config selects and configures the provider.
type Config struct {
	Provider   ProviderType
	Model      string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// CacheSize is the query embedding cache size; 0 disables the cache.
	CacheSize int
}
