package embed

import (
	"fmt"
	"strings"
)

// ParseProvider parses a provider name, case-insensitively.
func ParseProvider(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderNone:
		return ProviderNone, nil
	case ProviderOllama:
		return ProviderOllama, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGemini:
		return ProviderGemini, nil
	default:
		return ProviderNone, fmt.Errorf("unknown embedding provider %q (use ollama, openai or gemini)", s)
	}
}

// String returns the provider name.
func (p ProviderType) String() string {
	if p == ProviderNone {
		return "none"
	}
	return string(p)
}

// NewEmbedder creates the configured provider, wrapped in a query cache when
// cfg.CacheSize > 0. It returns ErrNoProvider when embeddings are disabled.
func NewEmbedder(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)

	switch cfg.Provider {
	case ProviderNone:
		return nil, ErrNoProvider
	case ProviderOllama:
		e = NewOllamaEmbedder(cfg)
	case ProviderOpenAI:
		e, err = NewOpenAIEmbedder(cfg)
	case ProviderGemini:
		e, err = NewGeminiEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
