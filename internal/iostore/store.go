// Package iostore implements the concept graph store: a single-file
// SQLite artifact built from the OMOP vocabulary tables, immutable
// once published and safe for arbitrary concurrent readers.
//
// Artifacts live under the cache directory, named by the fingerprint
// of their source tables. Every open verifies the fingerprint stored
// in the build_info table, so a stale or foreign artifact is never
// trusted silently.
package iostore

import (
	"database/sql"
	"os"

	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/fingerprint"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/medtext/omoplink/pkg/schema"
	"github.com/medtext/omoplink/pkg/sources"

	_ "modernc.org/sqlite"
)

// Store is an opened concept graph store artifact. All methods are
// read-only and safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	info schema.BuildInfo

	// domains restricts EachEmbeddable to the configured concept
	// domains. Empty means all domains.
	domains []string
}

var _ omoplink.GraphStore = (*Store)(nil)

// Open opens an existing store artifact read-only and loads its
// build_info row. It does not compare the fingerprint against any
// sources; use Find for that.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, StoreOpenError(path, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(on)")
	if err != nil {
		return nil, StoreOpenError(path, err)
	}

	res := &Store{db: db, path: path}
	if err := res.readBuildInfo(); err != nil {
		db.Close()
		return nil, err
	}
	return res, nil
}

// Find locates the cached store artifact for the current source
// tables. It computes the source fingerprint, resolves the artifact
// path and verifies the fingerprint recorded inside the artifact.
// A missing artifact returns StoreNotFoundError; the caller decides
// whether to build.
func Find(cfg *config.Config, src *sources.Config) (*Store, error) {
	fp, err := SourceFingerprint(src)
	if err != nil {
		return nil, err
	}

	path := config.StorePath(cfg.HomeDir, fp)
	if _, err := os.Stat(path); err != nil {
		return nil, StoreNotFoundError(fp, err)
	}

	res, err := Open(path)
	if err != nil {
		return nil, err
	}

	if res.info.Fingerprint != fp {
		res.Close()
		return nil, StoreFingerprintError(path, fp, res.info.Fingerprint)
	}

	res.domains = cfg.Embed.Domains
	return res, nil
}

// SourceFingerprint computes the content fingerprint of the seven
// vocabulary tables. Tables are hashed in canonical order, so the
// fingerprint is independent of file names and directory layout.
func SourceFingerprint(src *sources.Config) (string, error) {
	h := fingerprint.New()
	for _, table := range sources.TableNames() {
		path, err := src.TablePath(table)
		if err != nil {
			return "", SchemaMissingTableError(table, path, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return "", SchemaMissingTableError(table, path, err)
		}

		err = h.AddReader(table, f)
		f.Close()
		if err != nil {
			return "", SchemaMissingTableError(table, path, err)
		}
	}
	return h.Sum(), nil
}

// Fingerprint returns the content fingerprint of the source tables
// this store was built from.
func (s *Store) Fingerprint() string {
	return s.info.Fingerprint
}

// Path returns the file path of the opened artifact.
func (s *Store) Path() string {
	return s.path
}

// Stats returns the build_info row of the artifact: fingerprint,
// artifact UUID, creation time and row counts.
func (s *Store) Stats() schema.BuildInfo {
	return s.info
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) readBuildInfo() error {
	q := `SELECT fingerprint, uuid, created_at, params,
		concept_count, ancestor_count, relationship_count
	FROM build_info LIMIT 1`

	row := s.db.QueryRow(q)
	err := row.Scan(
		&s.info.Fingerprint,
		&s.info.UUID,
		&s.info.CreatedAt,
		&s.info.Params,
		&s.info.ConceptCount,
		&s.info.AncestorCount,
		&s.info.RelationshipCount,
	)
	if err != nil {
		return StoreOpenError(s.path, err)
	}
	return nil
}
