package iostore

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/medtext/omoplink/pkg/schema"
)

// conceptCols lists the concept columns in schema declaration order;
// scanConcept expects exactly this order.
const conceptCols = `concept_id, concept_name, domain_id, vocabulary_id,
	concept_class_id, standard_concept, concept_code, valid_start_date,
	valid_end_date, invalid_reason`

// conceptColsC is conceptCols qualified with the c alias, for queries
// that join concept against tables sharing column names.
const conceptColsC = `c.concept_id, c.concept_name, c.domain_id,
	c.vocabulary_id, c.concept_class_id, c.standard_concept,
	c.concept_code, c.valid_start_date, c.valid_end_date,
	c.invalid_reason`

// validConcept keeps deprecated concepts out of query results.
const validConcept = `(invalid_reason IS NULL OR invalid_reason = '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanConcept(sc scanner) (schema.Concept, error) {
	var c schema.Concept
	err := sc.Scan(
		&c.ConceptID,
		&c.ConceptName,
		&c.DomainID,
		&c.VocabularyID,
		&c.ConceptClassID,
		&c.StandardConcept,
		&c.ConceptCode,
		&c.ValidStartDate,
		&c.ValidEndDate,
		&c.InvalidReason,
	)
	return c, err
}

// likeEscaper guards LIKE patterns against wildcard characters in
// user-provided text.
var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// LookupByName returns valid concepts whose name matches text: exact
// (case-insensitive) matches first, then prefix matches, ordered by
// name length and concept id. Optional domain ids restrict the result.
func (s *Store) LookupByName(
	ctx context.Context,
	text string,
	domains ...string,
) ([]schema.Concept, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	q := `SELECT ` + conceptCols + `,
	CASE WHEN lower(concept_name) = lower(?) THEN 0 ELSE 1 END AS tier
FROM concept
WHERE lower(concept_name) LIKE lower(?) ESCAPE '\'
	AND ` + validConcept
	args := []any{text, likeEscaper.Replace(text) + "%"}

	if len(domains) > 0 {
		q += ` AND domain_id IN (` + placeholders(len(domains)) + `)`
		for _, d := range domains {
			args = append(args, d)
		}
	}
	q += ` ORDER BY tier, length(concept_name), concept_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, StoreQueryError("lookup by name", err)
	}
	defer rows.Close()

	var res []schema.Concept
	for rows.Next() {
		var (
			c    schema.Concept
			tier int
		)
		err = rows.Scan(
			&c.ConceptID, &c.ConceptName, &c.DomainID, &c.VocabularyID,
			&c.ConceptClassID, &c.StandardConcept, &c.ConceptCode,
			&c.ValidStartDate, &c.ValidEndDate, &c.InvalidReason, &tier,
		)
		if err != nil {
			return nil, StoreQueryError("lookup by name", err)
		}
		res = append(res, c)
	}
	if err = rows.Err(); err != nil {
		return nil, StoreQueryError("lookup by name", err)
	}
	return res, nil
}

// ConceptByID fetches a single concept. A missing id is an error,
// never a silent skip.
func (s *Store) ConceptByID(
	ctx context.Context,
	id int64,
) (schema.Concept, error) {
	q := `SELECT ` + conceptCols + ` FROM concept WHERE concept_id = ?`
	row := s.db.QueryRowContext(ctx, q, id)

	c, err := scanConcept(row)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ConceptNotFoundError(id)
	}
	if err != nil {
		return c, StoreQueryError("concept by id", err)
	}
	return c, nil
}

// ConceptsByIDs fetches a batch of concepts keyed by id. Every
// requested id must exist; the smallest missing id is reported.
func (s *Store) ConceptsByIDs(
	ctx context.Context,
	ids []int64,
) (map[int64]schema.Concept, error) {
	res := make(map[int64]schema.Concept, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	maxIDs := sqliteMaxParams
	for i := 0; i < len(unique); i += maxIDs {
		end := min(i+maxIDs, len(unique))
		chunk := unique[i:end]

		q := `SELECT ` + conceptCols + ` FROM concept WHERE concept_id IN (` +
			placeholders(len(chunk)) + `)`
		args := make([]any, len(chunk))
		for j, id := range chunk {
			args[j] = id
		}

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, StoreQueryError("concepts by ids", err)
		}
		for rows.Next() {
			c, err := scanConcept(rows)
			if err != nil {
				rows.Close()
				return nil, StoreQueryError("concepts by ids", err)
			}
			res[c.ConceptID] = c
		}
		if err = rows.Err(); err != nil {
			rows.Close()
			return nil, StoreQueryError("concepts by ids", err)
		}
		rows.Close()
	}

	for _, id := range unique {
		if _, ok := res[id]; !ok {
			return nil, ConceptNotFoundError(id)
		}
	}
	return res, nil
}

// AncestorsOf returns ancestor ids mapped to their minimum hierarchy
// separation. The concept itself is always present at distance 0,
// whether or not the source data carries the reflexive closure row.
// maxDistance < 0 means unbounded.
func (s *Store) AncestorsOf(
	ctx context.Context,
	id int64,
	maxDistance int,
) (map[int64]int, error) {
	if err := s.conceptExists(ctx, id); err != nil {
		return nil, err
	}

	q := `SELECT ancestor_concept_id, min_levels_of_separation
FROM concept_ancestor
WHERE descendant_concept_id = ?`
	args := []any{id}
	if maxDistance >= 0 {
		q += ` AND min_levels_of_separation <= ?`
		args = append(args, maxDistance)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, StoreQueryError("ancestors of", err)
	}
	defer rows.Close()

	res := map[int64]int{id: 0}
	for rows.Next() {
		var (
			ancestor int64
			dist     int
		)
		if err = rows.Scan(&ancestor, &dist); err != nil {
			return nil, StoreQueryError("ancestors of", err)
		}
		if ancestor == id {
			continue
		}
		res[ancestor] = dist
	}
	if err = rows.Err(); err != nil {
		return nil, StoreQueryError("ancestors of", err)
	}
	return res, nil
}

// IsAncestor reports whether a is an ancestor of b. Every concept is
// its own ancestor. Ids absent from the store are unrelated to
// everything.
func (s *Store) IsAncestor(ctx context.Context, a, b int64) (bool, error) {
	if a == b {
		return true, nil
	}

	q := `SELECT 1 FROM concept_ancestor
WHERE ancestor_concept_id = ? AND descendant_concept_id = ? LIMIT 1`

	var one int
	err := s.db.QueryRowContext(ctx, q, a, b).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, StoreQueryError("is ancestor", err)
	}
	return true, nil
}

// Distance returns the minimum hierarchy separation between a and b
// in either direction. ok is false when the concepts are unrelated;
// ids absent from the store are unrelated to everything.
func (s *Store) Distance(
	ctx context.Context,
	a, b int64,
) (int, bool, error) {
	if a == b {
		return 0, true, nil
	}

	q := `SELECT MIN(min_levels_of_separation) FROM concept_ancestor
WHERE (ancestor_concept_id = ? AND descendant_concept_id = ?)
   OR (ancestor_concept_id = ? AND descendant_concept_id = ?)`

	var dist sql.NullInt64
	err := s.db.QueryRowContext(ctx, q, a, b, b, a).Scan(&dist)
	if err != nil {
		return 0, false, StoreQueryError("distance", err)
	}
	if !dist.Valid {
		return 0, false, nil
	}
	return int(dist.Int64), true, nil
}

// StandardFor returns the standard concepts a concept maps to through
// valid "Maps to" relationships, standard concepts first.
func (s *Store) StandardFor(
	ctx context.Context,
	id int64,
) ([]schema.Concept, error) {
	if err := s.conceptExists(ctx, id); err != nil {
		return nil, err
	}

	q := `SELECT ` + conceptColsC + `
FROM concept_relationship cr
JOIN concept c ON c.concept_id = cr.concept_id_2
WHERE cr.concept_id_1 = ?
	AND cr.relationship_id = 'Maps to'
	AND (cr.invalid_reason IS NULL OR cr.invalid_reason = '')
ORDER BY CASE WHEN c.standard_concept = 'S' THEN 0 ELSE 1 END,
	c.concept_id`

	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, StoreQueryError("standard for", err)
	}
	defer rows.Close()

	var res []schema.Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, StoreQueryError("standard for", err)
		}
		res = append(res, c)
	}
	if err = rows.Err(); err != nil {
		return nil, StoreQueryError("standard for", err)
	}
	return res, nil
}

// snomedVocabularies lists the vocabulary_id values whose concept
// codes are SNOMED codes.
var snomedVocabularies = []string{"SNOMED", "SNOMEDCT_US"}

// SnomedCode returns the SNOMED code of a concept, empty when the
// concept does not belong to a SNOMED vocabulary.
func (s *Store) SnomedCode(ctx context.Context, id int64) (string, error) {
	c, err := s.ConceptByID(ctx, id)
	if err != nil {
		return "", err
	}
	if slices.Contains(snomedVocabularies, c.VocabularyID) {
		return c.ConceptCode, nil
	}
	return "", nil
}

// EachEmbeddable streams (concept_id, concept_name) pairs of valid
// concepts selected for embedding, restricted to the configured
// domains, in ascending concept_id order. An error from fn stops the
// stream and is returned unchanged.
func (s *Store) EachEmbeddable(
	ctx context.Context,
	fn func(id int64, name string) error,
) error {
	q := `SELECT concept_id, concept_name FROM concept WHERE ` + validConcept
	var args []any
	if len(s.domains) > 0 {
		q += ` AND domain_id IN (` + placeholders(len(s.domains)) + `)`
		for _, d := range s.domains {
			args = append(args, d)
		}
	}
	q += ` ORDER BY concept_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return StoreQueryError("stream embeddable concepts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err = rows.Scan(&id, &name); err != nil {
			return StoreQueryError("stream embeddable concepts", err)
		}
		if err = fn(id, name); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return StoreQueryError("stream embeddable concepts", err)
	}
	return nil
}

func (s *Store) conceptExists(ctx context.Context, id int64) error {
	var one int
	q := `SELECT 1 FROM concept WHERE concept_id = ?`
	err := s.db.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ConceptNotFoundError(id)
	}
	if err != nil {
		return StoreQueryError("concept exists", err)
	}
	return nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
