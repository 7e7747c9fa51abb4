package ioembed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDeterministic(t *testing.T) {
	m := NewMock(8)
	ctx := context.Background()

	a, err := m.Embed(ctx, []string{"pneumonia", "fever"})
	require.NoError(t, err)
	b, err := m.Embed(ctx, []string{"pneumonia", "fever"})
	require.NoError(t, err)

	assert.Equal(t, a, b, "same text must give same vector")
	assert.NotEqual(t, a[0], a[1], "different texts differ")
	assert.Len(t, a[0], 8)
	assert.Equal(t, 2, m.Calls())
}

func TestMockSetVector(t *testing.T) {
	m := NewMock(3)
	m.SetVector("pneumonia", []float32{1, 0, 0})

	vecs, err := m.Embed(context.Background(), []string{"pneumonia"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vecs[0])
}

func TestMockHook(t *testing.T) {
	m := NewMock(3)
	m.Hook = func(texts []string) error {
		return assert.AnError
	}

	_, err := m.Embed(context.Background(), []string{"pneumonia"})
	assert.ErrorIs(t, err, assert.AnError)
}
