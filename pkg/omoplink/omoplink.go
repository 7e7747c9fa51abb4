// Package omoplink defines the contracts and shared data types for the
// omoplink entity-linking engine.
//
// Pure packages (pkg/...) and impure implementations (internal/io...)
// communicate through the interfaces defined here. Implementations live
// in internal/iostore (concept graph store), internal/ioindex (embedding
// index), internal/ioembed (embedding collaborator), internal/ioresolve
// (hybrid resolver) and internal/ioeval (evaluation harness).
package omoplink

import (
	"context"

	"github.com/medtext/omoplink/pkg/schema"
)

// Mention is a contiguous text span believed to reference a concept.
// Mentions are produced by an external span-detection collaborator and
// consumed read-only. Start/End are character offsets, half-open.
type Mention struct {
	DocumentID string `json:"note_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

// GoldAnnotation is a ground-truth concept link for a span.
type GoldAnnotation struct {
	DocumentID string `json:"note_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	ConceptID  int64  `json:"concept_id"`
}

// PredictedLink is the resolver's answer for one mention: the chosen
// concept and the confidence it was chosen with.
type PredictedLink struct {
	DocumentID string  `json:"note_id"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	ConceptID  int64   `json:"concept_id"`
	Score      float64 `json:"confidence"`
}

// Candidate is one ranked resolver result.
type Candidate struct {
	Concept    schema.Concept `json:"concept"`
	Confidence float64        `json:"confidence"`
}

// Hit is one nearest-neighbor result from the embedding index.
type Hit struct {
	ConceptID  int64   `json:"concept_id"`
	Similarity float64 `json:"similarity"`
}

// Hints carries optional context for resolution. Domain and vocabulary
// hints down-weight mismatched candidates; they never exclude them
// outright.
type Hints struct {
	Domains      []string
	Vocabularies []string
}

// EmbeddingRecord pairs a concept with the vector of its embedded name.
// Synonym vectors keep a back-reference to the owning concept.
type EmbeddingRecord struct {
	ConceptID int64
	Vector    []float32
}

// Document is one unit of evaluation: a clinical note with its id.
type Document struct {
	ID   string
	Text string
}

// Embedder is the external embedding collaborator. Embed returns one
// vector per input text, in input order. Implementations must be safe
// for concurrent use; vector dimensionality is validated by callers on
// every response.
type Embedder interface {
	// Embed converts texts to vectors in a single round trip.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the expected vector width, or 0 when the
	// implementation leaves validation to the first response.
	Dimensions() int

	// Model identifies the embedding model for artifact fingerprints.
	Model() string
}

// Detector is the external mention-detection collaborator. Its output
// is untrusted: callers validate span bounds against document length.
type Detector interface {
	Detect(ctx context.Context, doc Document) ([]Mention, error)
}

// GraphStore is the read-side contract of the concept graph store.
// A store is immutable once built and safe for concurrent readers.
type GraphStore interface {
	// LookupByName returns concepts whose name matches text, exact
	// matches first, then prefix matches; order is deterministic.
	// Optional domain ids restrict the result.
	LookupByName(ctx context.Context, text string, domains ...string) ([]schema.Concept, error)

	// ConceptByID fetches a single concept; a missing id is an error,
	// never a silent skip.
	ConceptByID(ctx context.Context, id int64) (schema.Concept, error)

	// ConceptsByIDs fetches a batch of concepts keyed by id.
	ConceptsByIDs(ctx context.Context, ids []int64) (map[int64]schema.Concept, error)

	// AncestorsOf returns ancestor ids mapped to their minimum
	// separation. The concept itself is always present at distance 0.
	// maxDistance < 0 means unbounded.
	AncestorsOf(ctx context.Context, id int64, maxDistance int) (map[int64]int, error)

	// IsAncestor reports whether a is an ancestor of b.
	IsAncestor(ctx context.Context, a, b int64) (bool, error)

	// Distance returns the minimum hierarchy separation between a and b
	// in either direction. ok is false when the concepts are unrelated.
	Distance(ctx context.Context, a, b int64) (dist int, ok bool, err error)

	// StandardFor returns the standard concepts a concept maps to via
	// "Maps to" relationships, standard concepts first.
	StandardFor(ctx context.Context, id int64) ([]schema.Concept, error)

	// SnomedCode returns the SNOMED code for a concept, empty when the
	// concept does not belong to a SNOMED vocabulary.
	SnomedCode(ctx context.Context, id int64) (string, error)

	// EachEmbeddable streams (concept_id, concept_name) pairs of valid
	// concepts selected for embedding, in ascending concept_id order.
	EachEmbeddable(ctx context.Context, fn func(id int64, name string) error) error

	// Fingerprint returns the content fingerprint of the source tables
	// this store was built from.
	Fingerprint() string
}

// Index is the read-side contract of the embedding index.
type Index interface {
	// NearestNeighbors returns the k most similar concepts by cosine
	// similarity, descending; ties broken by ascending concept id.
	NearestNeighbors(query []float32, k int) ([]Hit, error)

	// StoreFingerprint is the fingerprint of the store the index was
	// built from; consumers compare it before trusting results.
	StoreFingerprint() string

	// Dimensions is the vector width of the index.
	Dimensions() int
}

// Resolver links one mention string to ranked concept candidates.
type Resolver interface {
	Resolve(ctx context.Context, mention string, hints Hints) ([]Candidate, error)
}

// Evaluator runs the evaluation harness over a document corpus.
type Evaluator interface {
	Evaluate(ctx context.Context, docs []Document) (*Report, error)
}
