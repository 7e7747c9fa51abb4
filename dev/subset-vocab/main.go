// subset-vocab extracts a representative subset from a full Athena
// vocabulary download.
//
// This tool creates smaller vocabulary directories for tests that preserve:
//   - Edge cases (special characters, deprecated concepts, classification
//     and non-standard concepts, very long names)
//   - Hierarchy consistency (all ancestors of selected concepts included)
//   - "Maps to" consistency (mapping targets of selected concepts included)
//   - Representative sampling across domains
//
// Reference tables (DOMAIN, VOCABULARY, CONCEPT_CLASS, RELATIONSHIP) are
// small and copied verbatim, so every foreign key of the kept concepts
// resolves and the store builder's verification passes.
//
// Usage:
//
//	go run . <source-dir> <output-dir>
//
// Examples:
//
//	go run . ~/Downloads/vocabulary_v5 ../../internal/iotesting/testdata/vocab-subset
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/medtext/omoplink/pkg/sources"
)

// Configuration constants
const (
	// Target number of concept records to sample, before ancestors and
	// mapping targets are added.
	targetConcepts = 2000

	// Minimum records to include from each edge case category.
	minEdgeCaseRecords = 25

	// Lines longer than this abort the run; matches the store builder.
	maxLineBytes = 1024 * 1024
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <source-dir> <output-dir>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  source-dir  directory with the full Athena vocabulary tables\n")
		fmt.Fprintf(os.Stderr, "  output-dir  directory for the subset tables (created if missing)\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s ~/Downloads/vocabulary_v5 testdata/vocab-subset\n", os.Args[0])
		os.Exit(1)
	}

	srcDir := os.Args[1]
	outDir := os.Args[2]

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("starting vocabulary subset extraction",
		"source", srcDir,
		"target_size", targetConcepts,
		"output", outDir,
	)

	if err := createSubset(logger, srcDir, outDir); err != nil {
		logger.Error("subset extraction failed", "error", err)
		os.Exit(1)
	}

	logger.Info("subset extraction complete", "output", outDir)
}

func createSubset(logger *slog.Logger, srcDir, outDir string) error {
	src := &sources.Config{Dir: srcDir}
	if err := src.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}
	out := &sources.Config{Dir: outDir}

	// Kept concept ids, grown in three passes: sampled seeds, their
	// "Maps to" targets, then every ancestor.
	kept := make(map[string]bool)

	if err := selectSeeds(logger, src, kept); err != nil {
		return err
	}
	if err := addMappingTargets(logger, src, kept); err != nil {
		return err
	}
	if err := addAncestors(logger, src, kept); err != nil {
		return err
	}
	logger.Info("concept selection finished", "concepts", len(kept))

	// Filter the three big tables down to the kept concepts.
	n, err := filterTable(src, out, sources.TableConcept,
		func(row rowView) bool { return kept[row.get("concept_id")] })
	if err != nil {
		return err
	}
	logger.Info("wrote concept table", "rows", n)

	n, err = filterTable(src, out, sources.TableConceptAncestor,
		func(row rowView) bool {
			return kept[row.get("ancestor_concept_id")] &&
				kept[row.get("descendant_concept_id")]
		})
	if err != nil {
		return err
	}
	logger.Info("wrote concept_ancestor table", "rows", n)

	n, err = filterTable(src, out, sources.TableConceptRelationship,
		func(row rowView) bool {
			return kept[row.get("concept_id_1")] &&
				kept[row.get("concept_id_2")]
		})
	if err != nil {
		return err
	}
	logger.Info("wrote concept_relationship table", "rows", n)

	// Reference tables are copied whole.
	for _, table := range []string{
		sources.TableDomain,
		sources.TableVocabulary,
		sources.TableConceptClass,
		sources.TableRelationship,
	} {
		if err := copyTable(src, out, table); err != nil {
			return err
		}
	}

	return nil
}

// selectSeeds samples concepts across the concept table. Most of the
// budget goes to evenly spaced standard concepts; a minimum number of
// records is reserved for each edge case category.
func selectSeeds(
	logger *slog.Logger,
	src *sources.Config,
	kept map[string]bool,
) error {
	total, err := countRows(src, sources.TableConcept)
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("concept table is empty")
	}

	// Even spacing over the whole file gives a spread across domains
	// and vocabularies without loading everything into memory.
	stride := total / targetConcepts
	if stride < 1 {
		stride = 1
	}

	edge := map[string]int{
		"special_chars":  0,
		"deprecated":     0,
		"classification": 0,
		"non_standard":   0,
		"long_names":     0,
	}

	var line int
	err = scanTable(src, sources.TableConcept, func(row rowView) error {
		line++
		id := row.get("concept_id")
		if id == "" {
			return nil
		}

		name := row.get("concept_name")
		standard := row.get("standard_concept")
		invalid := row.get("invalid_reason")

		switch {
		case edge["special_chars"] < minEdgeCaseRecords && hasSpecialChars(name):
			edge["special_chars"]++
		case edge["deprecated"] < minEdgeCaseRecords && invalid != "":
			edge["deprecated"]++
		case edge["classification"] < minEdgeCaseRecords && standard == "C":
			edge["classification"]++
		case edge["non_standard"] < minEdgeCaseRecords && standard == "":
			edge["non_standard"]++
		case edge["long_names"] < minEdgeCaseRecords && len(name) > 200:
			edge["long_names"]++
		case line%stride == 0 && standard == "S" && invalid == "":
			// regular sample slot
		default:
			return nil
		}

		kept[id] = true
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("selected seed concepts",
		"seeds", len(kept),
		"special_chars", edge["special_chars"],
		"deprecated", edge["deprecated"],
		"classification", edge["classification"],
		"non_standard", edge["non_standard"],
		"long_names", edge["long_names"],
	)
	return nil
}

// addMappingTargets adds the "Maps to" targets of kept concepts, so the
// non-standard seeds still map to a standard concept in the subset.
func addMappingTargets(
	logger *slog.Logger,
	src *sources.Config,
	kept map[string]bool,
) error {
	var added int
	err := scanTable(src, sources.TableConceptRelationship,
		func(row rowView) error {
			if row.get("relationship_id") != "Maps to" {
				return nil
			}
			if !kept[row.get("concept_id_1")] {
				return nil
			}
			target := row.get("concept_id_2")
			if target != "" && !kept[target] {
				kept[target] = true
				added++
			}
			return nil
		})
	if err != nil {
		return err
	}

	logger.Info("added mapping targets", "added", added)
	return nil
}

// addAncestors adds every ancestor of the kept concepts. The ancestor
// table is a transitive closure, so a single pass is enough: ancestors
// of ancestors already appear as direct rows of the original
// descendant.
func addAncestors(
	logger *slog.Logger,
	src *sources.Config,
	kept map[string]bool,
) error {
	var added int
	err := scanTable(src, sources.TableConceptAncestor,
		func(row rowView) error {
			if !kept[row.get("descendant_concept_id")] {
				return nil
			}
			ancestor := row.get("ancestor_concept_id")
			if ancestor != "" && !kept[ancestor] {
				kept[ancestor] = true
				added++
			}
			return nil
		})
	if err != nil {
		return err
	}

	logger.Info("added ancestors", "added", added)
	return nil
}

func hasSpecialChars(name string) bool {
	if strings.ContainsAny(name, `"'&<>`) {
		return true
	}
	for _, r := range name {
		if r > 127 {
			return true
		}
	}
	return false
}

// rowView exposes one tab-separated row through its header.
type rowView struct {
	header map[string]int
	fields []string
}

func (r rowView) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// scanTable streams a tab-separated vocabulary table, calling fn for
// every data row. Parsing matches the store builder: no quoting, lines
// end the row.
func scanTable(
	src *sources.Config,
	table string,
	fn func(rowView) error,
) error {
	path, err := src.TablePath(table)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		return fmt.Errorf("%s: missing header row", path)
	}
	header := make(map[string]int)
	for i, col := range strings.Split(
		strings.TrimRight(scanner.Text(), "\r"), "\t") {
		header[col] = i
	}

	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		row := rowView{header: header, fields: strings.Split(text, "\t")}
		if err := fn(row); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// filterTable copies the header and the rows keep returns true for.
func filterTable(
	src, out *sources.Config,
	table string,
	keep func(rowView) bool,
) (int, error) {
	inPath, err := src.TablePath(table)
	if err != nil {
		return 0, err
	}
	outPath, err := out.TablePath(table)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("cannot open %s: %w", inPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		return 0, fmt.Errorf("%s: missing header row", inPath)
	}
	headerLine := strings.TrimRight(scanner.Text(), "\r")
	header := make(map[string]int)
	for i, col := range strings.Split(headerLine, "\t") {
		header[col] = i
	}

	w, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("cannot create %s: %w", outPath, err)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, headerLine)

	var n int
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		row := rowView{header: header, fields: strings.Split(text, "\t")}
		if !keep(row) {
			continue
		}
		fmt.Fprintln(bw, text)
		n++
	}
	if err := scanner.Err(); err != nil {
		w.Close()
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		w.Close()
		return 0, fmt.Errorf("cannot write %s: %w", outPath, err)
	}
	return n, w.Close()
}

// copyTable copies one table file verbatim.
func copyTable(src, out *sources.Config, table string) error {
	inPath, err := src.TablePath(table)
	if err != nil {
		return err
	}
	outPath, err := out.TablePath(table)
	if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", inPath, err)
	}
	defer in.Close()

	w, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", outPath, err)
	}

	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return fmt.Errorf("cannot copy %s: %w", outPath, err)
	}
	return w.Close()
}

// countRows counts the data rows of a table (header excluded).
func countRows(src *sources.Config, table string) (int, error) {
	var n int
	err := scanTable(src, table, func(rowView) error {
		n++
		return nil
	})
	return n, err
}
