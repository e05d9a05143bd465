package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// httpClient is the transport shared by the HTTP providers: per-request
// timeout, retry with backoff for transient failures, and a circuit breaker
// so a dead endpoint fails fast across many documents.
type httpClient struct {
	name    string
	client  *http.Client
	timeout time.Duration
	retry   jerrors.RetryConfig
	breaker *jerrors.CircuitBreaker
}

func newHTTPClient(name string, cfg Config) *httpClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retry := jerrors.DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	return &httpClient{
		name: name,
		// No client-wide timeout; each request gets its own context deadline.
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		timeout: timeout,
		retry:   retry,
		breaker: jerrors.NewCircuitBreaker(name,
			jerrors.WithMaxFailures(5),
			jerrors.WithResetTimeout(30*time.Second)),
	}
}

// postJSON sends body as JSON and decodes the response into out.
func (c *httpClient) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return jerrors.New(jerrors.ErrCodeEmbeddingFailed, "failed to marshal request", err)
	}

	_, err = jerrors.CircuitExecute(c.breaker, func() (struct{}, error) {
		return jerrors.RetryWithResult(ctx, c.retry, func() (struct{}, error) {
			return struct{}{}, c.do(ctx, url, headers, payload, out)
		})
	})
	if errors.Is(err, jerrors.ErrCircuitOpen) {
		return jerrors.New(jerrors.ErrCodeProviderUnavailable, c.name+" is failing, skipping requests for now", err)
	}
	return err
}

func (c *httpClient) do(ctx context.Context, url string, headers map[string]string, payload []byte, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return jerrors.New(jerrors.ErrCodeEmbeddingFailed, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return jerrors.New(jerrors.ErrCodeProviderTimeout, c.name+" request timed out", err)
		}
		return jerrors.New(jerrors.ErrCodeProviderUnavailable, c.name+" request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return jerrors.New(jerrors.ErrCodeProviderUnavailable, c.name+" unavailable", cause)
		}
		return jerrors.New(jerrors.ErrCodeEmbeddingFailed, c.name+" rejected the request", cause).
			WithDetail("status", fmt.Sprint(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return jerrors.New(jerrors.ErrCodeEmbeddingFailed, "failed to decode "+c.name+" response", err)
	}
	return nil
}

func (c *httpClient) close() {
	c.client.CloseIdleConnections()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func emptyVector(name string) error {
	return jerrors.New(jerrors.ErrCodeEmbeddingFailed, name+" returned no embedding", nil)
}
