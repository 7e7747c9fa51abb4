package ioembed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/pkg/errcode"
	"github.com/medtext/omoplink/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetry keeps test retries quick.
var fastRetry = retry.Policy{
	MaxAttempts: 2,
	BaseDelay:   time.Millisecond,
	Retryable:   transient,
}

// embedServer fakes the /api/embed endpoint. The handler receives the
// decoded request and returns the vectors to answer with.
func embedServer(
	t *testing.T,
	handler func(req embedRequest) [][]float32,
) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, apiPathEmbed, r.URL.Path)
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			resp := embedResponse{Embeddings: handler(req)}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
}

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultDimensions, c.Dimensions())
	assert.NotNil(t, c.client)
}

func TestNewWithOptions(t *testing.T) {
	c := New(
		WithEndpoint("http://custom:8080"),
		WithModel("custom-model"),
		WithDimensions(768),
		WithPrefix("passage: "),
		WithTimeout(5*time.Second),
	)
	assert.Equal(t, "http://custom:8080", c.endpoint)
	assert.Equal(t, "custom-model", c.Model())
	assert.Equal(t, 768, c.Dimensions())
	assert.Equal(t, "passage: ", c.prefix)
	assert.Equal(t, 5*time.Second, c.client.Timeout)
}

func TestEmbed(t *testing.T) {
	var got embedRequest
	srv := embedServer(t, func(req embedRequest) [][]float32 {
		got = req
		vecs := make([][]float32, len(req.Input))
		for i := range vecs {
			vecs[i] = []float32{float32(i), 1, 2}
		}
		return vecs
	})
	defer srv.Close()

	c := New(
		WithEndpoint(srv.URL),
		WithModel("test-model"),
		WithDimensions(3),
		WithPrefix("query: "),
	)

	vecs, err := c.Embed(context.Background(), []string{"fever", "cough"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 1, 2}, vecs[0])
	assert.Equal(t, []float32{1, 1, 2}, vecs[1])

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, []string{"query: fever", "query: cough"}, got.Input,
		"prefix must be applied to every text")
}

func TestEmbedEmptyInput(t *testing.T) {
	// No server: an empty input never reaches the network.
	c := New(WithEndpoint("http://127.0.0.1:1"))
	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedDimensionMismatch(t *testing.T) {
	var hits atomic.Int32
	srv := embedServer(t, func(req embedRequest) [][]float32 {
		hits.Add(1)
		return [][]float32{{1, 2}} // width 2, client expects 3
	})
	defer srv.Close()

	c := New(
		WithEndpoint(srv.URL),
		WithDimensions(3),
		WithRetryPolicy(fastRetry),
	)

	_, err := c.Embed(context.Background(), []string{"fever"})
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.EmbeddingDimensionError, gnErr.Code)
	assert.Equal(t, int32(1), hits.Load(),
		"dimension mismatch is fatal, never retried")
}

func TestEmbedIncompleteResponse(t *testing.T) {
	srv := embedServer(t, func(req embedRequest) [][]float32 {
		return [][]float32{{1, 2, 3}} // one vector for two texts
	})
	defer srv.Close()

	c := New(
		WithEndpoint(srv.URL),
		WithDimensions(3),
		WithRetryPolicy(fastRetry),
	)

	_, err := c.Embed(context.Background(), []string{"fever", "cough"})
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.EmbeddingEmptyError, gnErr.Code)
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Error(w, "overloaded", http.StatusInternalServerError)
		}))
	defer srv.Close()

	c := New(WithEndpoint(srv.URL), WithRetryPolicy(fastRetry))

	_, err := c.Embed(context.Background(), []string{"fever"})
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.EmbeddingRequestError, gnErr.Code)
	assert.Equal(t, int32(2), hits.Load(),
		"5xx answers are retried until the policy is exhausted")
}

func TestEmbedClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Error(w, "no such model", http.StatusNotFound)
		}))
	defer srv.Close()

	c := New(WithEndpoint(srv.URL), WithRetryPolicy(fastRetry))

	_, err := c.Embed(context.Background(), []string{"fever"})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "4xx answers are final")
}

func TestIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, apiPathTags, r.URL.Path)
			w.Write([]byte(`{"models":[]}`))
		}))
	defer srv.Close()

	c := New(WithEndpoint(srv.URL))
	assert.NoError(t, c.IsAvailable(context.Background()))

	down := New(WithEndpoint("http://127.0.0.1:1"))
	assert.Error(t, down.IsAvailable(context.Background()))
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(assert.AnError), "plain errors are transient")
	assert.True(t, transient(statusError{code: 500}))
	assert.True(t, transient(statusError{code: 429}))
	assert.False(t, transient(statusError{code: 404}))
	assert.False(t, transient(EmbeddingDimensionError(3, 2)),
		"typed embedding errors are final")
}
