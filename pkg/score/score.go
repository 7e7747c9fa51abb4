// Package score implements the concept scorer. It is the single source
// of truth for how correct a predicted concept is relative to a gold
// concept: exact matches earn full credit, hierarchy neighbors earn
// partial credit decaying with distance, unrelated concepts earn zero.
// The evaluation harness consumes these scores and never reimplements
// its own notion of correctness.
package score

import (
	"context"
	"fmt"
	"math"
)

// Decay formula names accepted by New. The chosen formula is recorded
// in every report; scores computed under different formulas are not
// comparable.
const (
	DecayInverse     = "inverse"
	DecayExponential = "exponential"
)

// DecayFunc maps a hierarchy distance to partial credit. Every
// DecayFunc must return 1 at distance 0 and decrease monotonically.
type DecayFunc func(distance int) float64

// Inverse yields credit 1/(1+d).
func Inverse(d int) float64 {
	return 1 / float64(1+d)
}

// Exponential yields credit 2^-d.
func Exponential(d int) float64 {
	return math.Pow(2, -float64(d))
}

// Distancer provides the minimum hierarchy separation between two
// concepts in either direction. It is satisfied by the concept graph
// store.
type Distancer interface {
	Distance(ctx context.Context, a, b int64) (dist int, ok bool, err error)
}

// Scorer grades predicted concepts against gold concepts.
type Scorer struct {
	dist      Distancer
	decay     DecayFunc
	decayName string
}

// New creates a Scorer with the named decay formula.
func New(dist Distancer, decayName string) (*Scorer, error) {
	var decay DecayFunc
	switch decayName {
	case DecayInverse:
		decay = Inverse
	case DecayExponential:
		decay = Exponential
	default:
		return nil, fmt.Errorf(
			"unknown decay formula %q: want %q or %q",
			decayName, DecayInverse, DecayExponential,
		)
	}
	return &Scorer{dist: dist, decay: decay, decayName: decayName}, nil
}

// Decay returns the name of the decay formula for run reports.
func (s *Scorer) Decay() string {
	return s.decayName
}

// Score grades a predicted concept against a gold concept, returning a
// value in [0,1]. Identical concepts score 1 without touching the
// store. Concepts related through the ancestor closure score
// decay(distance). Unrelated concepts score exactly 0.
func (s *Scorer) Score(ctx context.Context, predicted, gold int64) (float64, error) {
	if predicted == gold {
		return 1, nil
	}
	d, ok, err := s.dist.Distance(ctx, predicted, gold)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return s.decay(d), nil
}
