// Package ioindex builds and queries the embedding index: a flat,
// exact nearest-neighbor index over concept name vectors, cached as a
// gob artifact keyed by the fingerprint of the store and the embedding
// parameters. Vectors are L2-normalized at build time, so cosine
// similarity reduces to a dot product at query time.
package ioindex

import (
	"fmt"
	"math"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/fingerprint"
	"github.com/medtext/omoplink/pkg/omoplink"
)

// Artifact is the on-disk form of the embedding index.
type Artifact struct {
	// Version is the layout version; artifacts with a different version
	// are rejected instead of misread.
	Version int

	// StoreFingerprint ties the index to the concept graph store it was
	// built from.
	StoreFingerprint string

	// Fingerprint covers the store fingerprint and the embedding
	// parameters that shaped the vectors.
	Fingerprint string

	// ModelName and Dimensions describe the embedding model. Queries
	// must come from the same model to be comparable.
	ModelName  string
	Dimensions int

	// ConceptIDs and Vectors are parallel slices in ascending concept
	// id order. Vectors are L2-normalized.
	ConceptIDs []int64
	Vectors    [][]float32

	CreatedAt time.Time
}

// Index is a read-only, in-memory embedding index.
type Index struct {
	art  Artifact
	path string
}

var _ omoplink.Index = (*Index)(nil)

// Fingerprint derives the index fingerprint from the store fingerprint
// and the embedding parameters. Any change to the model, the prefix,
// the batch size or the domain filter yields a new fingerprint, and
// with it a new artifact and fresh checkpoints.
func Fingerprint(storeFingerprint string, cfg *config.Config) string {
	domains := slices.Clone(cfg.Embed.Domains)
	slices.Sort(domains)

	parts := []string{
		storeFingerprint,
		cfg.Embed.Model,
		cfg.Embed.Prefix,
		fmt.Sprintf("%d", cfg.Embed.BatchSize),
	}
	parts = append(parts, domains...)
	return fingerprint.Combine(parts...)
}

// Find opens the cached index artifact matching the given store and
// configuration. A missing artifact yields IndexNotFoundError, which
// tells the user to run the embed command.
func Find(cfg *config.Config, store omoplink.GraphStore) (*Index, error) {
	fp := Fingerprint(store.Fingerprint(), cfg)
	path := config.IndexPath(cfg.HomeDir, fp)

	if _, err := os.Stat(path); err != nil {
		return nil, IndexNotFoundError(fp, err)
	}

	idx, err := Load(path)
	if err != nil {
		return nil, err
	}
	if idx.art.Fingerprint != fp {
		return nil, IndexMismatchError(fp, idx.art.Fingerprint)
	}
	if err := idx.VerifyStore(store); err != nil {
		return nil, err
	}
	return idx, nil
}

// Load reads an index artifact from disk and checks its layout
// version.
func Load(path string) (*Index, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, IndexNotFoundError("", err)
	}

	enc := gnfmt.GNgob{}
	var art Artifact
	if err := enc.Decode(bs, &art); err != nil {
		return nil, IndexQueryError(
			fmt.Errorf("cannot decode index %s: %w", path, err),
		)
	}
	if art.Version != config.IndexVersion {
		return nil, IndexVersionError(path, art.Version, config.IndexVersion)
	}
	return &Index{art: art, path: path}, nil
}

// save writes the artifact to a staging file and renames it into
// place, so readers never observe a partially written index.
func (idx *Index) save(path string) error {
	enc := gnfmt.GNgob{}
	bs, err := enc.Encode(idx.art)
	if err != nil {
		return IndexPublishError(path, err)
	}

	staging := path + ".staging"
	if err := os.WriteFile(staging, bs, 0644); err != nil {
		return IndexPublishError(path, err)
	}
	if err := os.Rename(staging, path); err != nil {
		os.Remove(staging)
		return IndexPublishError(path, err)
	}
	idx.path = path
	return nil
}

// NearestNeighbors returns the k most similar concepts for a query
// vector, by cosine similarity descending; ties break by ascending
// concept id. k larger than the index returns everything.
func (idx *Index) NearestNeighbors(query []float32, k int) ([]omoplink.Hit, error) {
	if len(query) != idx.art.Dimensions {
		return nil, IndexQueryError(fmt.Errorf(
			"query width %d, index width %d",
			len(query), idx.art.Dimensions,
		))
	}
	if k <= 0 || len(idx.art.ConceptIDs) == 0 {
		return nil, nil
	}

	q := normalize(query)
	hits := make([]omoplink.Hit, len(idx.art.ConceptIDs))
	for i, vec := range idx.art.Vectors {
		hits[i] = omoplink.Hit{
			ConceptID:  idx.art.ConceptIDs[i],
			Similarity: dot(q, vec),
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ConceptID < hits[j].ConceptID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// VerifyStore checks that the index was built from the given store.
// Resolution must never silently mix artifacts from different builds.
func (idx *Index) VerifyStore(store omoplink.GraphStore) error {
	want := store.Fingerprint()
	if idx.art.StoreFingerprint != want {
		return IndexMismatchError(want, idx.art.StoreFingerprint)
	}
	return nil
}

// Fingerprint returns the index fingerprint.
func (idx *Index) Fingerprint() string {
	return idx.art.Fingerprint
}

// StoreFingerprint returns the fingerprint of the source store.
func (idx *Index) StoreFingerprint() string {
	return idx.art.StoreFingerprint
}

// Dimensions returns the vector width of the index.
func (idx *Index) Dimensions() int {
	return idx.art.Dimensions
}

// Model returns the name of the embedding model the index was built
// with.
func (idx *Index) Model() string {
	return idx.art.ModelName
}

// Size returns the number of indexed concepts.
func (idx *Index) Size() int {
	return len(idx.art.ConceptIDs)
}

// Path returns the artifact file path.
func (idx *Index) Path() string {
	return idx.path
}

// CreatedAt returns the artifact build time.
func (idx *Index) CreatedAt() time.Time {
	return idx.art.CreatedAt
}

// normalize returns an L2-normalized copy of a vector. A zero vector
// is returned unchanged.
func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return slices.Clone(vec)
	}

	inv := 1 / math.Sqrt(norm)
	res := make([]float32, len(vec))
	for i, v := range vec {
		res[i] = float32(float64(v) * inv)
	}
	return res
}

// dot computes the inner product of two equal-width vectors. On
// normalized vectors it equals cosine similarity.
func dot(a, b []float32) float64 {
	var res float64
	for i := range a {
		res += float64(a[i]) * float64(b[i])
	}
	return res
}
