// Package sources defines the schema for sources.yaml, which points
// omoplink at the raw OMOP vocabulary tables downloaded from Athena.
//
// The seven vocabulary tables are flat tab-separated files with a
// fixed header row. sources.yaml names the directory that holds them
// and, when files were renamed, per-table file name overrides. All
// file-system access lives in internal/iosources; this package only
// models and validates the configuration.
package sources

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Sources loads and validates the sources.yaml configuration.
type Sources interface {
	Load() (*Config, error)
}

// Canonical table names of the OMOP vocabulary distribution. They
// double as the table names of the built concept graph store.
const (
	TableConcept             = "concept"
	TableConceptAncestor     = "concept_ancestor"
	TableConceptRelationship = "concept_relationship"
	TableConceptClass        = "concept_class"
	TableDomain              = "domain"
	TableRelationship        = "relationship"
	TableVocabulary          = "vocabulary"
)

// defaultFiles maps canonical table names to the file names used by
// the Athena distribution.
var defaultFiles = map[string]string{
	TableConcept:             "CONCEPT.csv",
	TableConceptAncestor:     "CONCEPT_ANCESTOR.csv",
	TableConceptRelationship: "CONCEPT_RELATIONSHIP.csv",
	TableConceptClass:        "CONCEPT_CLASS.csv",
	TableDomain:              "DOMAIN.csv",
	TableRelationship:        "RELATIONSHIP.csv",
	TableVocabulary:          "VOCABULARY.csv",
}

// TableNames returns the canonical table names in deterministic
// (alphabetical) order. Fingerprinting and building iterate tables in
// this order so artifacts stay reproducible.
func TableNames() []string {
	res := make([]string, 0, len(defaultFiles))
	for name := range defaultFiles {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Config represents the complete sources.yaml configuration file.
type Config struct {
	// Dir is the directory holding the vocabulary table files.
	Dir string `yaml:"dir"`

	// Tables overrides per-table file names, keyed by canonical table
	// name. Missing entries fall back to the Athena defaults.
	Tables map[string]string `yaml:"tables,omitempty"`
}

// Validate checks the configuration for errors. Unknown table keys
// are fatal: a misspelled key would otherwise silently fall back to a
// default file name and build the store from the wrong data.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("no vocabulary directory specified (dir)")
	}

	for name, file := range c.Tables {
		if _, ok := defaultFiles[name]; !ok {
			return fmt.Errorf(
				"unknown table %q: valid tables are %s",
				name, strings.Join(TableNames(), ", "),
			)
		}
		if strings.TrimSpace(file) == "" {
			return fmt.Errorf("empty file name for table %q", name)
		}
	}
	return nil
}

// TablePath resolves the file path of one vocabulary table, applying
// the per-table override when present.
func (c *Config) TablePath(table string) (string, error) {
	file, ok := defaultFiles[table]
	if !ok {
		return "", fmt.Errorf("unknown table %q", table)
	}
	if override, ok := c.Tables[table]; ok {
		file = override
	}
	return filepath.Join(c.Dir, file), nil
}

// TablePaths resolves the file paths of all seven vocabulary tables,
// keyed by canonical table name.
func (c *Config) TablePaths() (map[string]string, error) {
	res := make(map[string]string, len(defaultFiles))
	for _, name := range TableNames() {
		path, err := c.TablePath(name)
		if err != nil {
			return nil, err
		}
		res[name] = path
	}
	return res, nil
}
