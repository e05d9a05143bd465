package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	// Given: a fake Ollama server
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{0.5, -1, 2}}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(Config{BaseURL: srv.URL + "/", Timeout: time.Second})
	defer func() { _ = e.Close() }()

	// When
	vec, err := e.Embed(context.Background(), "hello")

	// Then: raw values come back unnormalized
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 2}, vec)
	assert.Equal(t, DefaultOllamaModel, got.Model)
	assert.Equal(t, "hello", got.Input)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var auth string
	var got openAIEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}],"model":"m"}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(Config{BaseURL: srv.URL + "/v1", APIKey: "sk-x", Model: "m"})
	require.NoError(t, err)

	vec, err := e.EmbedQuery(context.Background(), "query")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, "Bearer sk-x", auth)
	assert.Equal(t, []string{"query"}, got.Input)
	assert.Equal(t, "m", e.ModelName())
}

func TestGeminiEmbedder_UsesTaskTypes(t *testing.T) {
	var tasks []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		var req geminiEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "models/text-embedding-004", req.Model)
		tasks = append(tasks, req.TaskType)
		_, _ = w.Write([]byte(`{"embedding":{"values":[0,1]}}`))
	}))
	defer srv.Close()

	e, err := NewGeminiEmbedder(Config{BaseURL: srv.URL, APIKey: "g-key"})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "doc")
	require.NoError(t, err)
	_, err = e.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{geminiTaskDocument, geminiTaskQuery}, tasks)
}

func TestHTTPClient_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, jerrors.ErrCodeProviderUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, jerrors.ErrCodeProviderUnavailable, true},
		{"bad request", http.StatusBadRequest, jerrors.ErrCodeEmbeddingFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			e := NewOllamaEmbedder(Config{BaseURL: srv.URL, MaxRetries: 0})
			_, err := e.Embed(context.Background(), "x")

			require.Error(t, err)
			assert.Equal(t, tt.code, jerrors.GetCode(err))
			assert.Equal(t, tt.retryable, jerrors.IsRetryable(err))
		})
	}
}

func TestHTTPClient_RetriesTransientFailures(t *testing.T) {
	// Given: a server that fails once, then succeeds
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1]]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(Config{BaseURL: srv.URL, MaxRetries: 2})
	e.http.retry.InitialDelay = time.Millisecond
	e.http.retry.MaxDelay = time.Millisecond

	// When
	vec, err := e.Embed(context.Background(), "x")

	// Then
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPClient_TimeoutIsProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, MaxRetries: 0})
	_, err := e.Embed(context.Background(), "x")

	require.Error(t, err)
	assert.Equal(t, jerrors.ErrCodeProviderTimeout, jerrors.GetCode(err))
}

func TestHTTPClient_EmptyEmbeddingIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(Config{BaseURL: srv.URL}).Embed(context.Background(), "x")

	assert.Equal(t, jerrors.ErrCodeEmbeddingFailed, jerrors.GetCode(err))
}

// countingEmbedder records provider calls.
type countingEmbedder struct {
	queries atomic.Int32
	docs    atomic.Int32
}

func (c *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	c.docs.Add(1)
	return []float32{1}, nil
}

func (c *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	c.queries.Add(1)
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }
func (c *countingEmbedder) Close() error      { return nil }

func TestCachedEmbedder_CachesQueriesOnly(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		vec, err := c.EmbedQuery(ctx, "same query")
		require.NoError(t, err)
		assert.Equal(t, []float32{10}, vec)
		_, err = c.Embed(ctx, "doc")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), inner.queries.Load())
	assert.Equal(t, int32(3), inner.docs.Load())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "counting", c.ModelName())
}

func TestNewEmbedder(t *testing.T) {
	_, err := NewEmbedder(Config{})
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = NewEmbedder(Config{Provider: ProviderOpenAI})
	assert.Equal(t, jerrors.ErrCodeConfigInvalid, jerrors.GetCode(err))

	e, err := NewEmbedder(Config{Provider: ProviderOllama, CacheSize: 4})
	require.NoError(t, err)
	assert.IsType(t, &CachedEmbedder{}, e)

	e, err = NewEmbedder(Config{Provider: ProviderGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiEmbedder{}, e)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)
	assert.Equal(t, "none", ProviderNone.String())

	_, err = ParseProvider("cohere")
	assert.Error(t, err)
}
