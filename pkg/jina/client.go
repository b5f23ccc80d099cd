// Package jina provides a client for the Jina AI embeddings API.
package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fenchurch-labs/corep-assistant/internal/resilience"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "jina-embeddings-v3"

// DefaultDimensions is the embedding width used when none is configured.
const DefaultDimensions = 1024

// Task selects the embedding task, which tunes vectors for their role in
// retrieval. Corpus paragraphs embed as passages, questions as queries.
type Task string

const (
	TaskPassage Task = "retrieval.passage"
	TaskQuery   Task = "retrieval.query"
)

// Client defines the embedding operations used by the corpus loader and the
// retrieval searcher.
type Client interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string, opts ...EmbedOption) ([][]float32, error)
	// Model identifies the embedding model for audit records.
	Model() string
	// TokensUsed reports the cumulative billed tokens across Embed calls.
	TokensUsed() int64
}

// EmbedOption configures a single Embed call.
type EmbedOption func(*embedOpts)

type embedOpts struct {
	task Task
}

// WithTask overrides the default retrieval.passage task.
func WithTask(task Task) EmbedOption {
	return func(o *embedOpts) {
		o.task = task
	}
}

// embeddingRequest is the JSON body for POST /v1/embeddings.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Task       Task     `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
	Input      []string `json:"input"`
}

// embeddingResponse is the parsed Jina API response.
type embeddingResponse struct {
	Model string          `json:"model"`
	Usage embeddingUsage  `json:"usage"`
	Data  []embeddingData `json:"data"`
}

type embeddingUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithModel overrides the embedding model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithDimensions overrides the embedding width.
func WithDimensions(dims int) Option {
	return func(c *httpClient) {
		c.dimensions = dims
	}
}

// WithRateLimit sets the request rate limit in requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryConfig overrides the default retry behavior.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	http       *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	tokens     atomic.Int64
}

// NewClient creates a new Jina embeddings client.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("jina", "embeddings")

	c := &httpClient{
		apiKey:     apiKey,
		baseURL:    "https://api.jina.ai/v1",
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Model() string {
	return c.model
}

func (c *httpClient) TokensUsed() int64 {
	return c.tokens.Load()
}

func (c *httpClient) Embed(ctx context.Context, texts []string, opts ...EmbedOption) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	eo := &embedOpts{task: TaskPassage}
	for _, opt := range opts {
		opt(eo)
	}

	payload, err := json.Marshal(embeddingRequest{
		Model:      c.model,
		Task:       eo.task,
		Dimensions: c.dimensions,
		Input:      texts,
	})
	if err != nil {
		return nil, eris.Wrap(err, "jina: marshal request")
	}

	body, err := resilience.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return nil, eris.Wrap(err, "jina: embeddings request")
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}
	if len(result.Data) != len(texts) {
		return nil, eris.Errorf("jina: got %d embeddings for %d inputs", len(result.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, eris.Errorf("jina: embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}

	c.tokens.Add(int64(result.Usage.TotalTokens))
	zap.L().Debug("jina: embedded texts",
		zap.Int("count", len(texts)),
		zap.String("task", string(eo.task)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return out, nil
}

// post sends one embeddings request. Transient statuses (429, 5xx) come back
// as TransientError so the retry layer knows to try again.
func (c *httpClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "jina: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read response body")
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("jina: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
