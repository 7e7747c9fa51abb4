// Package spans implements character-span arithmetic and the matching
// of predicted links against gold annotations. Matching is
// deterministic: ties are resolved by maximum overlap length, then by
// earliest predicted span start, and the result does not depend on the
// order of the inputs.
package spans

import (
	"sort"

	"github.com/medtext/omoplink/pkg/omoplink"
)

// Categories describe how a matched pair relates. They mirror the
// span-analysis buckets used in entity-linking error reports.
const (
	CategoryExact           = "exact_match"
	CategoryPartial         = "partial_overlap"
	CategoryConceptMismatch = "concept_mismatch"
	CategoryNoOverlap       = "no_overlap"
)

// Pair is one row of a matching result. Exactly one of Pred, Gold may
// be nil: (pred, nil) is an unmatched prediction, (nil, gold) is a
// missed gold annotation.
type Pair struct {
	Pred    *omoplink.PredictedLink
	Gold    *omoplink.GoldAnnotation
	Overlap int
}

// Category classifies the pair for error analysis. accepted reports
// whether the predicted concept passed the acceptance threshold; the
// matcher itself has no notion of concept correctness, since a
// hierarchy neighbor may earn enough partial credit to count.
func (p Pair) Category(accepted bool) string {
	if p.Pred == nil || p.Gold == nil {
		return CategoryNoOverlap
	}
	if !accepted {
		return CategoryConceptMismatch
	}
	if p.Pred.Start == p.Gold.Start && p.Pred.End == p.Gold.End {
		return CategoryExact
	}
	return CategoryPartial
}

// Ambiguity records a contested span: several predictions overlapped
// one gold annotation, or one prediction overlapped several gold
// annotations. The tie-break rule decides the match; the ambiguity is
// returned so callers can log it instead of dropping it silently.
type Ambiguity struct {
	DocumentID string `json:"note_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	// Side is "gold" when several predictions contended for the span,
	// "predicted" when the prediction overlapped several gold spans.
	Side   string `json:"side"`
	Rivals int    `json:"rivals"`
}

// Overlap returns the number of characters shared by two half-open
// ranges [aStart,aEnd) and [bStart,bEnd). Non-overlapping ranges
// return 0.
func Overlap(aStart, aEnd, bStart, bEnd int) int {
	lo := max(aStart, bStart)
	hi := min(aEnd, bEnd)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// IoU returns the intersection-over-union of two half-open ranges.
func IoU(aStart, aEnd, bStart, bEnd int) float64 {
	inter := Overlap(aStart, aEnd, bStart, bEnd)
	if inter == 0 {
		return 0
	}
	union := (aEnd - aStart) + (bEnd - bStart) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// candidate is a potential pred/gold pairing that passed the overlap
// threshold.
type candidate struct {
	pi, gi  int
	overlap int
}

// Match pairs predictions with gold annotations. Two spans are
// eligible when they belong to the same document and overlap by at
// least minOverlap of the shorter span; minOverlap 0 means any overlap
// counts. Among eligible pairings each prediction and each gold
// annotation is used at most once, chosen greedily by maximum overlap,
// then earliest predicted start. Unmatched rows come back as
// one-sided pairs. Contested spans are reported as ambiguities.
func Match(
	preds []omoplink.PredictedLink,
	golds []omoplink.GoldAnnotation,
	minOverlap float64,
) ([]Pair, []Ambiguity) {
	var cands []candidate
	predRivals := make(map[int]int)
	goldRivals := make(map[int]int)

	for pi := range preds {
		for gi := range golds {
			if preds[pi].DocumentID != golds[gi].DocumentID {
				continue
			}
			ov := Overlap(
				preds[pi].Start, preds[pi].End,
				golds[gi].Start, golds[gi].End,
			)
			if ov == 0 {
				continue
			}
			if minOverlap > 0 {
				shorter := min(
					preds[pi].End-preds[pi].Start,
					golds[gi].End-golds[gi].Start,
				)
				if float64(ov) < minOverlap*float64(shorter) {
					continue
				}
			}
			cands = append(cands, candidate{pi: pi, gi: gi, overlap: ov})
			predRivals[pi]++
			goldRivals[gi]++
		}
	}

	// Total order over candidates keeps the greedy pass independent of
	// input order: overlap first, then span coordinates, then concept
	// ids for byte-identical spans.
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.overlap != b.overlap {
			return a.overlap > b.overlap
		}
		ap, bp := preds[a.pi], preds[b.pi]
		if ap.Start != bp.Start {
			return ap.Start < bp.Start
		}
		if ap.End != bp.End {
			return ap.End < bp.End
		}
		ag, bg := golds[a.gi], golds[b.gi]
		if ag.Start != bg.Start {
			return ag.Start < bg.Start
		}
		if ag.End != bg.End {
			return ag.End < bg.End
		}
		if ap.ConceptID != bp.ConceptID {
			return ap.ConceptID < bp.ConceptID
		}
		return ag.ConceptID < bg.ConceptID
	})

	matchOf := make(map[int]int, len(preds))
	predUsed := make(map[int]bool, len(preds))
	goldUsed := make(map[int]bool, len(golds))
	overlapOf := make(map[int]int, len(preds))
	for _, c := range cands {
		if predUsed[c.pi] || goldUsed[c.gi] {
			continue
		}
		predUsed[c.pi] = true
		goldUsed[c.gi] = true
		matchOf[c.pi] = c.gi
		overlapOf[c.pi] = c.overlap
	}

	pairs := make([]Pair, 0, len(preds)+len(golds))
	for pi := range preds {
		if gi, ok := matchOf[pi]; ok {
			pairs = append(pairs, Pair{
				Pred:    &preds[pi],
				Gold:    &golds[gi],
				Overlap: overlapOf[pi],
			})
			continue
		}
		pairs = append(pairs, Pair{Pred: &preds[pi]})
	}
	for gi := range golds {
		if !goldUsed[gi] {
			pairs = append(pairs, Pair{Gold: &golds[gi]})
		}
	}

	var ambs []Ambiguity
	for gi := range golds {
		if goldRivals[gi] > 1 {
			ambs = append(ambs, Ambiguity{
				DocumentID: golds[gi].DocumentID,
				Start:      golds[gi].Start,
				End:        golds[gi].End,
				Side:       "gold",
				Rivals:     goldRivals[gi],
			})
		}
	}
	for pi := range preds {
		if predRivals[pi] > 1 {
			ambs = append(ambs, Ambiguity{
				DocumentID: preds[pi].DocumentID,
				Start:      preds[pi].Start,
				End:        preds[pi].End,
				Side:       "predicted",
				Rivals:     predRivals[pi],
			})
		}
	}
	sort.Slice(ambs, func(i, j int) bool {
		a, b := ambs[i], ambs[j]
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Side < b.Side
	})

	return pairs, ambs
}
