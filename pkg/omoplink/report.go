package omoplink

import "time"

// Metrics holds true-positive/false-positive/false-negative counts and
// the precision, recall and F1 derived from them. Counts merge by plain
// addition, so corpus aggregation is order-independent.
type Metrics struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

// Add merges other into m. Derived ratios must be recomputed with
// Finalize afterwards.
func (m *Metrics) Add(other Metrics) {
	m.TruePositives += other.TruePositives
	m.FalsePositives += other.FalsePositives
	m.FalseNegatives += other.FalseNegatives
}

// Finalize computes precision, recall and F1 from the counts.
// Empty denominators yield 0, not NaN.
func (m *Metrics) Finalize() {
	if tp := m.TruePositives; tp > 0 {
		m.Precision = float64(tp) / float64(tp+m.FalsePositives)
		m.Recall = float64(tp) / float64(tp+m.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
}

// CategoryCounts breaks matched and unmatched spans into the four
// outcome categories used by the span analysis.
type CategoryCounts struct {
	// ExactMatch: identical span boundaries and an accepted concept.
	ExactMatch int `json:"exact_match"`
	// PartialOverlap: partial span overlap with an accepted concept.
	PartialOverlap int `json:"partial_overlap"`
	// ConceptMismatch: spans overlap but the concept was rejected.
	ConceptMismatch int `json:"concept_mismatch"`
	// NoOverlap: a prediction or gold span with no counterpart.
	NoOverlap int `json:"no_overlap"`
}

// Add merges other into c.
func (c *CategoryCounts) Add(other CategoryCounts) {
	c.ExactMatch += other.ExactMatch
	c.PartialOverlap += other.PartialOverlap
	c.ConceptMismatch += other.ConceptMismatch
	c.NoOverlap += other.NoOverlap
}

// DocumentResult is the evaluation outcome for one document.
type DocumentResult struct {
	DocumentID string         `json:"note_id"`
	Mentions   int            `json:"mentions"`
	Metrics    Metrics        `json:"metrics"`
	Categories CategoryCounts `json:"categories"`
	// Failures counts mentions whose resolution failed and was
	// isolated; they never abort the document.
	Failures int `json:"resolution_failures"`
}

// RunParams records the knobs that shaped a run. Reports carry them so
// historical scores stay comparable.
type RunParams struct {
	StoreFingerprint string  `json:"store_fingerprint"`
	IndexFingerprint string  `json:"index_fingerprint"`
	Decay            string  `json:"decay"`
	AcceptThreshold  float64 `json:"accept_threshold"`
	MinOverlap       float64 `json:"min_overlap"`
	TopK             int     `json:"top_k"`
}

// Report is the machine-readable evaluation artifact: corpus metrics,
// per-document results sorted by document id, and the run parameters.
type Report struct {
	// RunID distinguishes runs that share identical parameters.
	RunID      string           `json:"run_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Params     RunParams        `json:"params"`
	Documents  []DocumentResult `json:"documents"`
	Corpus     Metrics          `json:"corpus"`
	Categories CategoryCounts   `json:"categories"`
	// Predictions is the submission payload: one link per resolved
	// mention, ordered by document id, then span start.
	Predictions []PredictedLink `json:"-"`
	// GoldAvailable is false for inference-only runs; Corpus and
	// Documents metrics are zero-valued in that case.
	GoldAvailable bool `json:"gold_available"`
}
