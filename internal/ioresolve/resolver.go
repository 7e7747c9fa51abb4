// Package ioresolve implements the hybrid resolver. A mention string
// is embedded with the same model and prefix used at index build time,
// matched against the embedding index by cosine similarity, re-ranked
// with lexical boosts and hint penalties, and finally mapped to
// standard concepts. Results are deterministic for a fixed mention,
// store and index.
package ioresolve

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/medtext/omoplink/pkg/schema"
)

// Resolver links mention strings to ranked concept candidates.
type Resolver struct {
	cfg      *config.Config
	store    omoplink.GraphStore
	index    omoplink.Index
	embedder omoplink.Embedder
}

var _ omoplink.Resolver = (*Resolver)(nil)

// New creates a Resolver after verifying that the index was built from
// the given store. Mixing artifacts from different builds is fatal at
// construction, never discovered mid-query.
func New(
	cfg *config.Config,
	store omoplink.GraphStore,
	index omoplink.Index,
	embedder omoplink.Embedder,
) (*Resolver, error) {
	if got := index.StoreFingerprint(); got != store.Fingerprint() {
		return nil, IndexMismatchError(store.Fingerprint(), got)
	}
	return &Resolver{
		cfg:      cfg,
		store:    store,
		index:    index,
		embedder: embedder,
	}, nil
}

// Resolve returns ranked candidates for one mention. Candidates below
// the similarity floor are dropped before ranking; an empty result is
// not an error. Non-standard candidates are mapped to their standard
// concepts, merged duplicates keep the highest confidence, and
// confidence is capped at 1.
func (r *Resolver) Resolve(
	ctx context.Context,
	mention string,
	hints omoplink.Hints,
) ([]omoplink.Candidate, error) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return nil, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{mention})
	if err != nil {
		return nil, ResolutionError(mention, err)
	}
	if len(vecs) != 1 {
		return nil, ResolutionError(mention,
			fmt.Errorf("expected 1 vector, got %d", len(vecs)))
	}

	hits, err := r.index.NearestNeighbors(vecs[0], r.cfg.Resolve.TopK)
	if err != nil {
		return nil, ResolutionError(mention, err)
	}

	// The floor applies to the raw similarity; boosts and penalties
	// never rescue or drop a candidate across it.
	var kept []omoplink.Hit
	for _, h := range hits {
		if h.Similarity >= r.cfg.Resolve.MinSimilarity {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(kept))
	for i, h := range kept {
		ids[i] = h.ConceptID
	}
	concepts, err := r.store.ConceptsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	merged := make(map[int64]omoplink.Candidate, len(kept))
	for _, h := range kept {
		concept := concepts[h.ConceptID]
		confidence := r.rerank(h.Similarity, concept, mention, hints)

		final := concept
		if !concept.IsStandard() {
			stds, err := r.store.StandardFor(ctx, concept.ConceptID)
			if err != nil {
				return nil, err
			}
			// A non-standard concept without a mapping stays in the
			// result; hiding it would lose a ranked answer.
			if len(stds) > 0 {
				final = stds[0]
			}
		}

		cur, ok := merged[final.ConceptID]
		if !ok || confidence > cur.Confidence {
			merged[final.ConceptID] = omoplink.Candidate{
				Concept:    final,
				Confidence: confidence,
			}
		}
	}

	res := make([]omoplink.Candidate, 0, len(merged))
	for _, cand := range merged {
		res = append(res, cand)
	}
	// Order by the unclamped confidence: capping first would collapse
	// distinct boosted scores into ties.
	sort.Slice(res, func(i, j int) bool {
		if res[i].Confidence != res[j].Confidence {
			return res[i].Confidence > res[j].Confidence
		}
		return res[i].Concept.ConceptID < res[j].Concept.ConceptID
	})
	for i := range res {
		res[i].Confidence = min(res[i].Confidence, 1)
	}
	return res, nil
}

// rerank folds the lexical boosts and hint penalties into a raw
// similarity. Hints down-weight mismatched candidates; they never
// exclude them outright.
func (r *Resolver) rerank(
	sim float64,
	concept schema.Concept,
	mention string,
	hints omoplink.Hints,
) float64 {
	confidence := sim
	name := strings.ToLower(concept.ConceptName)
	text := strings.ToLower(mention)

	switch {
	case name == text:
		confidence *= r.cfg.Resolve.ExactBoost
	case strings.Contains(name, text) || strings.Contains(text, name):
		confidence *= r.cfg.Resolve.OverlapBoost
	}

	if len(hints.Domains) > 0 &&
		!slices.Contains(hints.Domains, concept.DomainID) {
		confidence *= r.cfg.Resolve.HintPenalty
	}
	if len(hints.Vocabularies) > 0 &&
		!slices.Contains(hints.Vocabularies, concept.VocabularyID) {
		confidence *= r.cfg.Resolve.HintPenalty
	}
	return confidence
}
