// Package iotesting provides shared fixtures for integration tests: a
// tiny OMOP vocabulary written as Athena-style tab-separated files, and
// a config rooted in a temporary home directory.
package iotesting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medtext/omoplink/pkg/config"
)

// Fixture concept ids, shared by store, resolver and harness tests.
// The hierarchy:
//
//	RespiratoryDisease (1001)
//	└── Pneumonia (1002)
//	    ├── BacterialPneumonia (1003)
//	    └── ViralPneumonia (1004)
//
// PneumoniaICD (1005) is a non-standard ICD10CM concept that maps to
// Pneumonia. Appendectomy (1006) and Aspirin (1007) live in other
// domains. RetiredPneumonia (1008) is deprecated.
const (
	RespiratoryDisease = int64(1001)
	Pneumonia          = int64(1002)
	BacterialPneumonia = int64(1003)
	ViralPneumonia     = int64(1004)
	PneumoniaICD       = int64(1005)
	Appendectomy       = int64(1006)
	Aspirin            = int64(1007)
	RetiredPneumonia   = int64(1008)
)

// PneumoniaSnomedCode is the SNOMED code of the Pneumonia fixture
// concept.
const PneumoniaSnomedCode = "233604007"

// vocabularyFiles holds the fixture tables keyed by default Athena
// file name. Rows use tabs, matching the Athena distribution format.
// The reflexive ancestor row is present only for concept 1001, so
// tests exercise the self-distance guarantee without data support.
var vocabularyFiles = map[string][]string{
	"CONCEPT.csv": {
		"concept_id\tconcept_name\tdomain_id\tvocabulary_id\tconcept_class_id\tstandard_concept\tconcept_code\tvalid_start_date\tvalid_end_date\tinvalid_reason",
		"1001\tDisease of respiratory system\tCondition\tSNOMED\tClinical Finding\tS\t50043002\t20020131\t20991231\t",
		"1002\tPneumonia\tCondition\tSNOMED\tClinical Finding\tS\t233604007\t20020131\t20991231\t",
		"1003\tBacterial pneumonia\tCondition\tSNOMED\tClinical Finding\tS\t53084003\t20020131\t20991231\t",
		"1004\tViral pneumonia\tCondition\tSNOMED\tClinical Finding\tS\t75570004\t20020131\t20991231\t",
		"1005\tPneumonia, unspecified organism\tCondition\tICD10CM\t3-char billing code\t\tJ18.9\t20150101\t20991231\t",
		"1006\tAppendectomy\tProcedure\tSNOMED\tProcedure\tS\t80146002\t20020131\t20991231\t",
		"1007\taspirin\tDrug\tRxNorm\tIngredient\tS\t1191\t19700101\t20991231\t",
		"1008\tPneumonia (retired)\tCondition\tSNOMED\tClinical Finding\t\t16365981000119101\t20020131\t20180131\tD",
	},
	"CONCEPT_ANCESTOR.csv": {
		"ancestor_concept_id\tdescendant_concept_id\tmin_levels_of_separation\tmax_levels_of_separation",
		"1001\t1001\t0\t0",
		"1001\t1002\t1\t1",
		"1001\t1003\t2\t2",
		"1001\t1004\t2\t2",
		"1002\t1003\t1\t1",
		"1002\t1004\t1\t1",
	},
	"CONCEPT_RELATIONSHIP.csv": {
		"concept_id_1\tconcept_id_2\trelationship_id\tvalid_start_date\tvalid_end_date\tinvalid_reason",
		"1005\t1002\tMaps to\t20150101\t20991231\t",
		"1002\t1005\tMapped from\t20150101\t20991231\t",
		"1008\t1002\tMaps to\t20180131\t20991231\t",
	},
	"DOMAIN.csv": {
		"domain_id\tdomain_name\tdomain_concept_id",
		"Condition\tCondition\t19",
		"Procedure\tProcedure\t10",
		"Drug\tDrug\t13",
	},
	"VOCABULARY.csv": {
		"vocabulary_id\tvocabulary_name\tvocabulary_reference\tvocabulary_version\tvocabulary_concept_id",
		"SNOMED\tSystematic Nomenclature of Medicine - Clinical Terms\thttp://www.snomed.org\t2023-07-31 release\t44819097",
		"ICD10CM\tInternational Classification of Diseases, Tenth Revision, Clinical Modification\thttp://www.cdc.gov\tICD10CM FY2023\t44819098",
		"RxNorm\tRxNorm\thttp://www.nlm.nih.gov\tRxNorm 20230904\t44819104",
	},
	"CONCEPT_CLASS.csv": {
		"concept_class_id\tconcept_class_name\tconcept_class_concept_id",
		"Clinical Finding\tClinical Finding\t44819206",
		"3-char billing code\t3-char billing code\t44819227",
		"Procedure\tProcedure\t44819231",
		"Ingredient\tIngredient\t44819241",
	},
	"RELATIONSHIP.csv": {
		"relationship_id\trelationship_name\tis_hierarchical\tdefines_ancestry\treverse_relationship_id\trelationship_concept_id",
		"Maps to\tMaps to standard (OMOP)\t0\t0\tMapped from\t44818790",
		"Mapped from\tMapped from standard (OMOP)\t0\t0\tMaps to\t44818791",
		"Is a\tIs a (SNOMED)\t1\t1\tSubsumes\t44818821",
		"Subsumes\tSubsumes (SNOMED)\t1\t1\tIs a\t44818723",
	},
}

// WriteVocabulary writes the fixture vocabulary under dir with the
// default Athena file names and returns dir.
func WriteVocabulary(t *testing.T, dir string) string {
	t.Helper()
	for name, lines := range vocabularyFiles {
		path := filepath.Join(dir, name)
		content := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("cannot write fixture %s: %v", name, err)
		}
	}
	return dir
}

// AppendRows appends raw tab-separated rows to one fixture file. Call
// after WriteVocabulary to inject malformed or dangling data.
func AppendRows(t *testing.T, dir, file string, rows ...string) {
	t.Helper()
	path := filepath.Join(dir, file)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("cannot open fixture %s: %v", file, err)
	}
	defer f.Close()
	for _, row := range rows {
		if _, err := f.WriteString(row + "\n"); err != nil {
			t.Fatalf("cannot append to fixture %s: %v", file, err)
		}
	}
}

// NewConfig returns a config rooted in a temporary home directory with
// the cache and config directories in place.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	home := t.TempDir()
	dirs := []string{
		config.ConfigDir(home),
		config.CacheDir(home),
		config.LogDir(home),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("cannot create %s: %v", dir, err)
		}
	}

	cfg := config.New()
	cfg.Update([]config.Option{config.OptHomeDir(home)})
	return cfg
}

// NewConfigWithVocabulary returns a config whose sources directory
// points at a freshly written fixture vocabulary.
func NewConfigWithVocabulary(t *testing.T) *config.Config {
	t.Helper()
	cfg := NewConfig(t)
	vocabDir := WriteVocabulary(t, t.TempDir())
	cfg.Update([]config.Option{config.OptStoreSourcesDir(vocabDir)})
	return cfg
}
