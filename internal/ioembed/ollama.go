// Package ioembed talks to the external embedding collaborator: an
// Ollama-compatible HTTP service with a batch /api/embed endpoint.
// Transient failures are retried with a bounded policy; a vector of
// unexpected width is fatal and never reshaped.
package ioembed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/medtext/omoplink/pkg/retry"
)

const (
	// DefaultEndpoint is the default Ollama API endpoint.
	DefaultEndpoint = "http://localhost:11434"

	// DefaultModel is the default embedding model.
	DefaultModel = "e5-small-v2"

	// DefaultDimensions is the expected vector width of e5-small-v2.
	DefaultDimensions = 384

	// DefaultTimeout is the timeout for one embedding request.
	DefaultTimeout = 60 * time.Second

	// apiPathEmbed is the Ollama batch embedding endpoint.
	apiPathEmbed = "/api/embed"

	// apiPathTags is the Ollama endpoint for listing models.
	apiPathTags = "/api/tags"
)

// Client embeds texts through an Ollama-compatible service. The
// configured prefix is prepended to every text, so build-time and
// query-time vectors stay comparable. Safe for concurrent use.
type Client struct {
	endpoint   string
	model      string
	dimensions int
	prefix     string
	client     *http.Client
	policy     retry.Policy
}

var _ omoplink.Embedder = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the service base URL.
func WithEndpoint(url string) Option {
	return func(c *Client) {
		c.endpoint = url
	}
}

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithDimensions sets the expected vector width. Zero disables the
// check.
func WithDimensions(dims int) Option {
	return func(c *Client) {
		c.dimensions = dims
	}
}

// WithPrefix sets the text prepended before embedding. E5-family
// models expect "query: ".
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// New creates an embedding client.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		client:     &http.Client{Timeout: DefaultTimeout},
		policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			Retryable:   transient,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig creates an embedding client from the embed section of
// the configuration.
func FromConfig(cfg *config.Config) *Client {
	return New(
		WithEndpoint(cfg.Embed.Endpoint),
		WithModel(cfg.Embed.Model),
		WithDimensions(cfg.Embed.Dimensions),
		WithPrefix(cfg.Embed.Prefix),
		WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Embed.MaxAttempts,
			BaseDelay: time.Duration(cfg.Embed.RetryDelayMs) *
				time.Millisecond,
			MaxDelay:  30 * time.Second,
			Retryable: transient,
		}),
	)
}

// Embed converts texts to vectors in a single round trip, in input
// order. Transient failures are retried; a dimension mismatch or an
// incomplete response is returned immediately.
func (c *Client) Embed(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = c.prefix + t
	}

	var res [][]float32
	err := c.policy.Do(ctx, func() error {
		vecs, err := c.embedOnce(ctx, input)
		if err != nil {
			return err
		}
		res = vecs
		return nil
	})
	if err != nil {
		// A canceled context is the caller's doing, not a service
		// failure; return it undressed so callers can match on it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var gnErr *gn.Error
		if errors.As(err, &gnErr) {
			return nil, err
		}
		return nil, EmbeddingRequestError(c.endpoint, err)
	}
	return res, nil
}

// Model identifies the embedding model for artifact fingerprints.
func (c *Client) Model() string {
	return c.model
}

// Dimensions returns the expected vector width.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// IsAvailable checks that the embedding service answers at all.
func (c *Client) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.endpoint+apiPathTags, nil)
	if err != nil {
		return EmbeddingRequestError(c.endpoint, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return EmbeddingRequestError(c.endpoint, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EmbeddingRequestError(c.endpoint,
			statusError{code: resp.StatusCode})
	}
	return nil
}

func (c *Client) embedOnce(
	ctx context.Context,
	input []string,
) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint+apiPathEmbed,
		bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError{
			code: resp.StatusCode,
			body: formatErrorBody(resp.Body),
		}
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Embeddings) != len(input) {
		return nil, EmbeddingEmptyError(len(input), len(result.Embeddings))
	}
	for _, vec := range result.Embeddings {
		if len(vec) == 0 {
			return nil, EmbeddingEmptyError(len(input), 0)
		}
		if c.dimensions > 0 && len(vec) != c.dimensions {
			return nil, EmbeddingDimensionError(c.dimensions, len(vec))
		}
	}
	return result.Embeddings, nil
}

// transient reports whether an error is worth retrying: network
// failures and 429/5xx statuses are; typed embedding errors are
// final.
func transient(err error) bool {
	var gnErr *gn.Error
	if errors.As(err, &gnErr) {
		return false
	}
	var se statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// statusError is a non-200 answer from the embedding service.
type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("embedding service returned status %d", e.code)
	}
	return fmt.Sprintf("embedding service returned status %d: %s",
		e.code, e.body)
}

// formatErrorBody reads and formats the response body for error
// messages.
func formatErrorBody(body io.Reader) string {
	respBody, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(respBody)
}

// embedRequest is the request body of the batch embedding endpoint.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the response of the batch embedding endpoint.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}
