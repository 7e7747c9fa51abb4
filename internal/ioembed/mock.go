package ioembed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// Mock is a deterministic in-process embedder for tests. Unknown
// texts get a vector derived from their hash; SetVector pins exact
// vectors for hand-crafted similarity cases. Safe for concurrent use.
type Mock struct {
	mu    sync.Mutex
	dims  int
	vecs  map[string][]float32
	calls int

	// Hook runs before every batch; a non-nil return fails the call.
	// Used to inject faults and observe batch boundaries.
	Hook func(texts []string) error
}

// NewMock creates a Mock with the given vector width.
func NewMock(dims int) *Mock {
	return &Mock{
		dims: dims,
		vecs: make(map[string][]float32),
	}
}

// SetVector pins the vector returned for a text. The mock applies no
// prefix, so texts are matched verbatim.
func (m *Mock) SetVector(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[text] = vec
}

// Embed returns one deterministic vector per input text.
func (m *Mock) Embed(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	hook := m.Hook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(texts); err != nil {
			return nil, err
		}
	}

	res := make([][]float32, len(texts))
	for i, text := range texts {
		m.mu.Lock()
		vec, ok := m.vecs[text]
		m.mu.Unlock()
		if !ok {
			vec = hashVector(text, m.dims)
		}
		res[i] = vec
	}
	return res, nil
}

// Model identifies the mock for artifact fingerprints.
func (m *Mock) Model() string {
	return "mock"
}

// Dimensions returns the vector width.
func (m *Mock) Dimensions() int {
	return m.dims
}

// Calls returns how many batches were embedded.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// hashVector expands the SHA256 of a text into a deterministic
// pseudo-random vector with components in [-1, 1).
func hashVector(text string, dims int) []float32 {
	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, dims)
	for i := range vec {
		word := binary.BigEndian.Uint32(digest[(i*4)%28:])
		// Stir in the position so long vectors do not repeat.
		word ^= uint32(i) * 2654435761
		vec[i] = float32(int32(word)) / float32(1<<31)
	}
	return vec
}
