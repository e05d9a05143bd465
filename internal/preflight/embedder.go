package preflight

import (
	"context"
	"errors"
	"fmt"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// CheckEmbedder embeds a short probe text with the configured provider.
// Vector search is optional, so a failure is a warning.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedding_provider", Required: false}

	if c.embedder == nil {
		result.Status = StatusWarn
		result.Message = "not configured; semantic search disabled"
		result.Details = "set embeddings.provider to ollama, openai or gemini"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	vec, err := c.embedder.EmbedQuery(ctx, "amanjournal preflight")
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unreachable", c.embedder.ModelName())
		result.Details = err.Error()
		var je *jerrors.JournalError
		if errors.As(err, &je) && je.Suggestion != "" {
			result.Details = je.Suggestion
		}
		return result
	}
	if len(vec) == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s returned an empty vector", c.embedder.ModelName())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dimensions)", c.embedder.ModelName(), len(vec))
	return result
}
