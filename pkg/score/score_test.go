package score_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/medtext/omoplink/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDistancer serves distances from a fixed table keyed by
// unordered concept pairs.
type stubDistancer struct {
	dists map[[2]int64]int
	err   error
}

func (d *stubDistancer) Distance(
	_ context.Context, a, b int64,
) (int, bool, error) {
	if d.err != nil {
		return 0, false, d.err
	}
	if dist, ok := d.dists[[2]int64{a, b}]; ok {
		return dist, true, nil
	}
	if dist, ok := d.dists[[2]int64{b, a}]; ok {
		return dist, true, nil
	}
	return 0, false, nil
}

func TestScoreExactMatch(t *testing.T) {
	// identical concepts never touch the store
	s, err := score.New(&stubDistancer{err: errors.New("no calls")}, "inverse")
	require.NoError(t, err)

	res, err := s.Score(context.Background(), 100, 100)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res, 1e-9)
}

func TestScoreDirectParent(t *testing.T) {
	// distance 1 earns 1/(1+1) = 0.5 under inverse decay
	dist := &stubDistancer{dists: map[[2]int64]int{{100, 200}: 1}}
	s, err := score.New(dist, "inverse")
	require.NoError(t, err)

	res, err := s.Score(context.Background(), 100, 200)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res, 1e-9)
}

func TestScoreUnrelated(t *testing.T) {
	s, err := score.New(&stubDistancer{}, "inverse")
	require.NoError(t, err)

	res, err := s.Score(context.Background(), 100, 999)
	require.NoError(t, err)
	assert.Zero(t, res, "unrelated concepts score exactly 0")
}

func TestScoreDecayFormulas(t *testing.T) {
	tests := []struct {
		decay string
		dist  int
		want  float64
	}{
		{"inverse", 1, 0.5},
		{"inverse", 2, 1.0 / 3},
		{"inverse", 4, 0.2},
		{"exponential", 1, 0.5},
		{"exponential", 2, 0.25},
		{"exponential", 3, 0.125},
	}

	for _, v := range tests {
		name := fmt.Sprintf("%s d=%d", v.decay, v.dist)
		t.Run(name, func(t *testing.T) {
			dist := &stubDistancer{
				dists: map[[2]int64]int{{1, 2}: v.dist},
			}
			s, err := score.New(dist, v.decay)
			require.NoError(t, err)

			res, err := s.Score(context.Background(), 1, 2)
			require.NoError(t, err)
			assert.InDelta(t, v.want, res, 1e-9)
		})
	}
}

func TestScoreBounded(t *testing.T) {
	for _, decay := range []string{"inverse", "exponential"} {
		for d := 0; d < 40; d++ {
			dist := &stubDistancer{
				dists: map[[2]int64]int{{1, 2}: d},
			}
			s, err := score.New(dist, decay)
			require.NoError(t, err)

			res, err := s.Score(context.Background(), 1, 2)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res, 0.0)
			assert.LessOrEqual(t, res, 1.0)
		}
	}
}

func TestScoreDecayMonotonic(t *testing.T) {
	for _, decay := range []string{"inverse", "exponential"} {
		var fn score.DecayFunc
		switch decay {
		case "inverse":
			fn = score.Inverse
		case "exponential":
			fn = score.Exponential
		}
		assert.InDelta(t, 1.0, fn(0), 1e-9, decay)
		prev := fn(0)
		for d := 1; d < 20; d++ {
			cur := fn(d)
			assert.Less(t, cur, prev, "%s must decrease at d=%d", decay, d)
			prev = cur
		}
	}
}

func TestScorePropagatesStoreError(t *testing.T) {
	boom := errors.New("store closed")
	s, err := score.New(&stubDistancer{err: boom}, "inverse")
	require.NoError(t, err)

	_, err = s.Score(context.Background(), 1, 2)
	assert.ErrorIs(t, err, boom)
}

func TestNewRejectsUnknownDecay(t *testing.T) {
	_, err := score.New(&stubDistancer{}, "linear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linear")
}

func TestDecayName(t *testing.T) {
	s, err := score.New(&stubDistancer{}, "exponential")
	require.NoError(t, err)
	assert.Equal(t, "exponential", s.Decay())
}
