// Package schema provides the relational models for the concept graph
// store. Models mirror the OMOP CDM vocabulary tables as distributed by
// Athena, so column names match the source file headers exactly.
package schema

import (
	"database/sql"
)

// DDLGenerator defines how Go models generate SQLite DDL.
type DDLGenerator interface {
	// TableDDL returns the CREATE TABLE statement for this model.
	TableDDL() string

	// IndexDDL returns CREATE INDEX statements for this model.
	// Returns empty slice if no indexes needed.
	IndexDDL() []string

	// TableName returns the SQLite table name for this model.
	TableName() string
}

// StandardConcept flag values used by the concept table.
const (
	// Standard marks a concept as the standard representative of its
	// meaning within its domain.
	Standard = "S"
	// Classification marks a classification concept that participates
	// in hierarchies but is never used for entity linking directly.
	Classification = "C"
)

// Concept is one atomic entry of the terminology graph. Concepts are
// loaded once at build time and never mutated; a rebuild supersedes the
// whole store.
type Concept struct {
	// ConceptID is the OMOP-wide unique identifier of the concept.
	ConceptID int64 `db:"concept_id" ddl:"INTEGER PRIMARY KEY"`

	// ConceptName is the canonical display name.
	ConceptName string `db:"concept_name" ddl:"TEXT NOT NULL"`

	// DomainID assigns the concept to a domain (Condition, Drug, ...).
	DomainID string `db:"domain_id" ddl:"TEXT NOT NULL"`

	// VocabularyID names the source vocabulary (SNOMED, RxNorm, ...).
	VocabularyID string `db:"vocabulary_id" ddl:"TEXT NOT NULL"`

	// ConceptClassID refines the concept kind within its vocabulary.
	ConceptClassID string `db:"concept_class_id" ddl:"TEXT NOT NULL"`

	// StandardConcept is "S" for standard, "C" for classification and
	// NULL for non-standard (source) concepts.
	StandardConcept sql.NullString `db:"standard_concept" ddl:"TEXT"`

	// ConceptCode is the concept identifier within its vocabulary,
	// e.g. the SNOMED code.
	ConceptCode string `db:"concept_code" ddl:"TEXT NOT NULL"`

	// ValidStartDate and ValidEndDate bound the concept's validity,
	// kept verbatim in the source YYYYMMDD form.
	ValidStartDate string `db:"valid_start_date" ddl:"TEXT"`
	ValidEndDate   string `db:"valid_end_date" ddl:"TEXT"`

	// InvalidReason is NULL for valid concepts, "D" for deleted and
	// "U" for updated ones.
	InvalidReason sql.NullString `db:"invalid_reason" ddl:"TEXT"`
}

// IsStandard reports whether the concept is a standard concept.
func (c Concept) IsStandard() bool {
	return c.StandardConcept.Valid && c.StandardConcept.String == Standard
}

// IsValid reports whether the concept is current (not deprecated).
func (c Concept) IsValid() bool {
	return !c.InvalidReason.Valid || c.InvalidReason.String == ""
}

// ConceptAncestor is one row of the precomputed transitive closure of
// the hierarchy ("is-a") relation. Most vocabularies include the
// reflexive row (a concept is its own ancestor at distance 0), but the
// store must not rely on it being present.
type ConceptAncestor struct {
	// AncestorConceptID is the higher-level concept.
	AncestorConceptID int64 `db:"ancestor_concept_id" ddl:"INTEGER NOT NULL"`

	// DescendantConceptID is the lower-level concept.
	DescendantConceptID int64 `db:"descendant_concept_id" ddl:"INTEGER NOT NULL"`

	// MinLevelsOfSeparation is the shortest path length between the two.
	MinLevelsOfSeparation int `db:"min_levels_of_separation" ddl:"INTEGER NOT NULL"`

	// MaxLevelsOfSeparation is the longest path length between the two.
	MaxLevelsOfSeparation int `db:"max_levels_of_separation" ddl:"INTEGER NOT NULL"`
}

// ConceptRelationship is a directed, typed, non-hierarchical link
// between two concepts. A pair may carry several relationship types.
type ConceptRelationship struct {
	ConceptID1 int64 `db:"concept_id_1" ddl:"INTEGER NOT NULL"`

	ConceptID2 int64 `db:"concept_id_2" ddl:"INTEGER NOT NULL"`

	// RelationshipID names the link type, e.g. "Maps to".
	RelationshipID string `db:"relationship_id" ddl:"TEXT NOT NULL"`

	ValidStartDate string `db:"valid_start_date" ddl:"TEXT"`
	ValidEndDate   string `db:"valid_end_date" ddl:"TEXT"`

	// InvalidReason is NULL for links that are still valid.
	InvalidReason sql.NullString `db:"invalid_reason" ddl:"TEXT"`
}

// Domain is a reference table row: one clinical domain.
type Domain struct {
	DomainID        string `db:"domain_id" ddl:"TEXT PRIMARY KEY"`
	DomainName      string `db:"domain_name" ddl:"TEXT NOT NULL"`
	DomainConceptID int64  `db:"domain_concept_id" ddl:"INTEGER"`
}

// Vocabulary is a reference table row: one source vocabulary.
type Vocabulary struct {
	VocabularyID        string         `db:"vocabulary_id" ddl:"TEXT PRIMARY KEY"`
	VocabularyName      string         `db:"vocabulary_name" ddl:"TEXT NOT NULL"`
	VocabularyReference sql.NullString `db:"vocabulary_reference" ddl:"TEXT"`
	VocabularyVersion   sql.NullString `db:"vocabulary_version" ddl:"TEXT"`
	VocabularyConceptID int64          `db:"vocabulary_concept_id" ddl:"INTEGER"`
}

// ConceptClass is a reference table row: one concept class.
type ConceptClass struct {
	ConceptClassID        string `db:"concept_class_id" ddl:"TEXT PRIMARY KEY"`
	ConceptClassName      string `db:"concept_class_name" ddl:"TEXT NOT NULL"`
	ConceptClassConceptID int64  `db:"concept_class_concept_id" ddl:"INTEGER"`
}

// Relationship is a reference table row: one relationship type.
type Relationship struct {
	RelationshipID        string `db:"relationship_id" ddl:"TEXT PRIMARY KEY"`
	RelationshipName      string `db:"relationship_name" ddl:"TEXT NOT NULL"`
	IsHierarchical        string `db:"is_hierarchical" ddl:"TEXT"`
	DefinesAncestry       string `db:"defines_ancestry" ddl:"TEXT"`
	ReverseRelationshipID string `db:"reverse_relationship_id" ddl:"TEXT"`
	RelationshipConceptID int64  `db:"relationship_concept_id" ddl:"INTEGER"`
}

// BuildInfo identifies a built store artifact: the content fingerprint
// of its source tables, a deterministic UUID derived from it, and the
// row counts recorded at build time. Exactly one row per artifact.
type BuildInfo struct {
	// Fingerprint is the sha256 hex digest of the source table
	// contents and build parameters.
	Fingerprint string `db:"fingerprint" ddl:"TEXT PRIMARY KEY"`

	// UUID is the UUID v5 derived from the fingerprint.
	UUID string `db:"uuid" ddl:"TEXT NOT NULL"`

	// CreatedAt is the build timestamp, RFC 3339.
	CreatedAt string `db:"created_at" ddl:"TEXT NOT NULL"`

	// Params is the JSON-encoded build parameter set.
	Params string `db:"params" ddl:"TEXT"`

	// Row counts of the three big tables, for Stats and sanity checks.
	ConceptCount      int64 `db:"concept_count" ddl:"INTEGER NOT NULL DEFAULT 0"`
	AncestorCount     int64 `db:"ancestor_count" ddl:"INTEGER NOT NULL DEFAULT 0"`
	RelationshipCount int64 `db:"relationship_count" ddl:"INTEGER NOT NULL DEFAULT 0"`
}
