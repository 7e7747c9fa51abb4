package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// generateDDL creates a CREATE TABLE statement from struct tags.
func generateDDL(model interface{}, tableName string) string {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var columns []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		ddlTag := field.Tag.Get("ddl")

		if dbTag != "" && ddlTag != "" {
			columns = append(columns, fmt.Sprintf("    %s %s", dbTag, ddlTag))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		tableName,
		strings.Join(columns, ",\n"))

	return ddl
}

// Columns returns the column names of a model in declaration order,
// taken from the db struct tags. Source file headers must contain at
// least these columns.
func Columns(model interface{}) []string {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		if dbTag := t.Field(i).Tag.Get("db"); dbTag != "" {
			cols = append(cols, dbTag)
		}
	}
	return cols
}

// Concept DDL methods
func (c Concept) TableDDL() string {
	return generateDDL(c, "concept")
}

func (c Concept) IndexDDL() []string {
	return []string{
		"CREATE INDEX idx_concept_lower_name ON concept(lower(concept_name));",
		"CREATE INDEX idx_concept_domain ON concept(domain_id);",
		"CREATE INDEX idx_concept_vocabulary ON concept(vocabulary_id);",
		"CREATE INDEX idx_concept_code ON concept(concept_code);",
	}
}

func (c Concept) TableName() string {
	return "concept"
}

// ConceptAncestor DDL methods
func (ca ConceptAncestor) TableDDL() string {
	return generateDDL(ca, "concept_ancestor")
}

func (ca ConceptAncestor) IndexDDL() []string {
	return []string{
		"CREATE UNIQUE INDEX idx_ancestor_pair ON concept_ancestor(ancestor_concept_id, descendant_concept_id);",
		"CREATE INDEX idx_ancestor_descendant ON concept_ancestor(descendant_concept_id);",
	}
}

func (ca ConceptAncestor) TableName() string {
	return "concept_ancestor"
}

// ConceptRelationship DDL methods
func (cr ConceptRelationship) TableDDL() string {
	return generateDDL(cr, "concept_relationship")
}

func (cr ConceptRelationship) IndexDDL() []string {
	return []string{
		"CREATE INDEX idx_relationship_c1 ON concept_relationship(concept_id_1, relationship_id);",
		"CREATE INDEX idx_relationship_c2 ON concept_relationship(concept_id_2);",
	}
}

func (cr ConceptRelationship) TableName() string {
	return "concept_relationship"
}

// Domain DDL methods
func (d Domain) TableDDL() string {
	return generateDDL(d, "domain")
}

func (d Domain) IndexDDL() []string {
	return []string{}
}

func (d Domain) TableName() string {
	return "domain"
}

// Vocabulary DDL methods
func (v Vocabulary) TableDDL() string {
	return generateDDL(v, "vocabulary")
}

func (v Vocabulary) IndexDDL() []string {
	return []string{}
}

func (v Vocabulary) TableName() string {
	return "vocabulary"
}

// ConceptClass DDL methods
func (cc ConceptClass) TableDDL() string {
	return generateDDL(cc, "concept_class")
}

func (cc ConceptClass) IndexDDL() []string {
	return []string{}
}

func (cc ConceptClass) TableName() string {
	return "concept_class"
}

// Relationship DDL methods
func (r Relationship) TableDDL() string {
	return generateDDL(r, "relationship")
}

func (r Relationship) IndexDDL() []string {
	return []string{}
}

func (r Relationship) TableName() string {
	return "relationship"
}

// BuildInfo DDL methods
func (b BuildInfo) TableDDL() string {
	return generateDDL(b, "build_info")
}

func (b BuildInfo) IndexDDL() []string {
	return []string{}
}

func (b BuildInfo) TableName() string {
	return "build_info"
}

// All returns every model of the store schema in creation order.
// Source tables come first, build_info last so its presence marks a
// complete build.
func All() []DDLGenerator {
	return []DDLGenerator{
		Concept{},
		ConceptAncestor{},
		ConceptRelationship{},
		Domain{},
		Vocabulary{},
		ConceptClass{},
		Relationship{},
		BuildInfo{},
	}
}
