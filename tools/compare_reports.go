// compare_reports compares two evaluation reports, a baseline and a
// candidate. This is a temporary tool for validating resolver and
// scorer changes before they land.
//
// The exit code is 1 when the candidate's corpus F1 regressed.
//
// Usage:
//
//	go run tools/compare_reports.go --baseline old-report.json --candidate new-report.json
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"github.com/gnames/gnfmt"
	"github.com/medtext/omoplink/pkg/omoplink"
)

// f1Epsilon is the F1 difference below which two runs count as equal.
const f1Epsilon = 1e-9

type ComparisonResult struct {
	ParamsMatch     bool
	ArtifactsMatch  bool
	CorpusRegressed bool
	CorpusImproved  bool
	DocsOnlyInBase  []string
	DocsOnlyInCand  []string
	Regressions     int
	Improvements    int
}

type docDelta struct {
	id      string
	baseF1  float64
	candF1  float64
	deltaF1 float64
}

func main() {
	baselinePath := flag.String("baseline", "", "Baseline report JSON file")
	candidatePath := flag.String("candidate", "", "Candidate report JSON file")
	top := flag.Int("top", 10, "Number of per-document changes to list")
	flag.Parse()

	if *baselinePath == "" || *candidatePath == "" {
		fmt.Println("Error: --baseline and --candidate are required")
		flag.Usage()
		os.Exit(1)
	}

	base, err := readReport(*baselinePath)
	if err != nil {
		log.Fatalf("Failed to read baseline report: %v", err)
	}
	cand, err := readReport(*candidatePath)
	if err != nil {
		log.Fatalf("Failed to read candidate report: %v", err)
	}

	fmt.Printf("Comparing %s (baseline) with %s (candidate)\n",
		*baselinePath, *candidatePath)
	fmt.Println()

	result := &ComparisonResult{}

	fmt.Println("1. Run Parameters")
	fmt.Println("-----------------")
	compareParams(base, cand, result)

	fmt.Println("\n2. Corpus Metrics")
	fmt.Println("-----------------")
	compareCorpus(base, cand, result)

	fmt.Println("\n3. Span Categories")
	fmt.Println("------------------")
	compareCategories(base, cand)

	fmt.Println("\n4. Per-Document Changes")
	fmt.Println("-----------------------")
	compareDocuments(base, cand, *top, result)

	fmt.Println("\n5. Summary")
	fmt.Println("----------")
	printSummary(result)

	if result.CorpusRegressed {
		os.Exit(1)
	}
}

func readReport(path string) (*omoplink.Report, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	enc := gnfmt.GNjson{}
	var rep omoplink.Report
	if err := enc.Decode(bs, &rep); err != nil {
		return nil, err
	}
	if !rep.GoldAvailable {
		return nil, fmt.Errorf(
			"%s is an inference-only report, nothing to compare", path)
	}
	return &rep, nil
}

func compareParams(base, cand *omoplink.Report, result *ComparisonResult) {
	bp, cp := base.Params, cand.Params

	result.ArtifactsMatch = bp.StoreFingerprint == cp.StoreFingerprint &&
		bp.IndexFingerprint == cp.IndexFingerprint
	result.ParamsMatch = bp == cp

	fmt.Printf("  Store fingerprint:\n")
	fmt.Printf("    baseline:  %s\n", bp.StoreFingerprint)
	fmt.Printf("    candidate: %s\n", cp.StoreFingerprint)
	fmt.Printf("  Index fingerprint:\n")
	fmt.Printf("    baseline:  %s\n", bp.IndexFingerprint)
	fmt.Printf("    candidate: %s\n", cp.IndexFingerprint)
	fmt.Printf("  Decay:            %s / %s\n", bp.Decay, cp.Decay)
	fmt.Printf("  Accept threshold: %.4f / %.4f\n",
		bp.AcceptThreshold, cp.AcceptThreshold)
	fmt.Printf("  Min overlap:      %.4f / %.4f\n",
		bp.MinOverlap, cp.MinOverlap)
	fmt.Printf("  Top K:            %d / %d\n", bp.TopK, cp.TopK)

	if result.ParamsMatch {
		fmt.Printf("  ✓ Parameters match\n")
	} else {
		fmt.Printf("  ✗ Parameters differ, metric deltas mix causes\n")
	}
}

func compareCorpus(base, cand *omoplink.Report, result *ComparisonResult) {
	b, c := base.Corpus, cand.Corpus

	fmt.Printf("  Precision: %.4f -> %.4f (%+.4f)\n",
		b.Precision, c.Precision, c.Precision-b.Precision)
	fmt.Printf("  Recall:    %.4f -> %.4f (%+.4f)\n",
		b.Recall, c.Recall, c.Recall-b.Recall)
	fmt.Printf("  F1:        %.4f -> %.4f (%+.4f)\n",
		b.F1, c.F1, c.F1-b.F1)
	fmt.Printf("  TP/FP/FN:  %d/%d/%d -> %d/%d/%d\n",
		b.TruePositives, b.FalsePositives, b.FalseNegatives,
		c.TruePositives, c.FalsePositives, c.FalseNegatives)

	switch {
	case c.F1 > b.F1+f1Epsilon:
		result.CorpusImproved = true
		fmt.Printf("  ✓ Corpus F1 improved\n")
	case c.F1 < b.F1-f1Epsilon:
		result.CorpusRegressed = true
		fmt.Printf("  ✗ Corpus F1 regressed\n")
	default:
		fmt.Printf("  ✓ Corpus F1 unchanged\n")
	}
}

func compareCategories(base, cand *omoplink.Report) {
	b, c := base.Categories, cand.Categories

	fmt.Printf("  Exact matches:      %d -> %d (%+d)\n",
		b.ExactMatch, c.ExactMatch, c.ExactMatch-b.ExactMatch)
	fmt.Printf("  Partial overlaps:   %d -> %d (%+d)\n",
		b.PartialOverlap, c.PartialOverlap, c.PartialOverlap-b.PartialOverlap)
	fmt.Printf("  Concept mismatches: %d -> %d (%+d)\n",
		b.ConceptMismatch, c.ConceptMismatch, c.ConceptMismatch-b.ConceptMismatch)
	fmt.Printf("  No overlap:         %d -> %d (%+d)\n",
		b.NoOverlap, c.NoOverlap, c.NoOverlap-b.NoOverlap)
}

func compareDocuments(
	base, cand *omoplink.Report,
	top int,
	result *ComparisonResult,
) {
	baseDocs := docIndex(base)
	candDocs := docIndex(cand)

	var deltas []docDelta
	for id, b := range baseDocs {
		c, ok := candDocs[id]
		if !ok {
			result.DocsOnlyInBase = append(result.DocsOnlyInBase, id)
			continue
		}
		if math.Abs(c.Metrics.F1-b.Metrics.F1) <= f1Epsilon {
			continue
		}
		deltas = append(deltas, docDelta{
			id:      id,
			baseF1:  b.Metrics.F1,
			candF1:  c.Metrics.F1,
			deltaF1: c.Metrics.F1 - b.Metrics.F1,
		})
	}
	for id := range candDocs {
		if _, ok := baseDocs[id]; !ok {
			result.DocsOnlyInCand = append(result.DocsOnlyInCand, id)
		}
	}
	sort.Strings(result.DocsOnlyInBase)
	sort.Strings(result.DocsOnlyInCand)

	for _, id := range result.DocsOnlyInBase {
		fmt.Printf("  ✗ %s only in baseline\n", id)
	}
	for _, id := range result.DocsOnlyInCand {
		fmt.Printf("  ✗ %s only in candidate\n", id)
	}

	// Largest movers first, ties by document id.
	sort.Slice(deltas, func(i, j int) bool {
		di, dj := math.Abs(deltas[i].deltaF1), math.Abs(deltas[j].deltaF1)
		if di != dj {
			return di > dj
		}
		return deltas[i].id < deltas[j].id
	})

	for _, d := range deltas {
		if d.deltaF1 < 0 {
			result.Regressions++
		} else {
			result.Improvements++
		}
	}

	if len(deltas) == 0 {
		fmt.Printf("  ✓ No per-document F1 changes\n")
		return
	}

	shown := min(top, len(deltas))
	fmt.Printf("  %d documents changed, largest %d:\n", len(deltas), shown)
	for _, d := range deltas[:shown] {
		marker := "✓"
		if d.deltaF1 < 0 {
			marker = "✗"
		}
		fmt.Printf("    %s %s: %.4f -> %.4f (%+.4f)\n",
			marker, d.id, d.baseF1, d.candF1, d.deltaF1)
	}
}

func docIndex(rep *omoplink.Report) map[string]omoplink.DocumentResult {
	res := make(map[string]omoplink.DocumentResult, len(rep.Documents))
	for _, doc := range rep.Documents {
		res[doc.DocumentID] = doc
	}
	return res
}

func printSummary(result *ComparisonResult) {
	if !result.ArtifactsMatch {
		fmt.Printf("  ✗ Runs used different store or index artifacts\n")
	}
	if !result.ParamsMatch {
		fmt.Printf("  ✗ Runs used different parameters\n")
	}
	if len(result.DocsOnlyInBase)+len(result.DocsOnlyInCand) > 0 {
		fmt.Printf("  ✗ Document sets differ (baseline-only: %d, candidate-only: %d)\n",
			len(result.DocsOnlyInBase), len(result.DocsOnlyInCand))
	}
	fmt.Printf("  Documents improved:  %d\n", result.Improvements)
	fmt.Printf("  Documents regressed: %d\n", result.Regressions)

	switch {
	case result.CorpusRegressed:
		fmt.Printf("  ✗ REGRESSED\n")
	case result.CorpusImproved:
		fmt.Printf("  ✓ IMPROVED\n")
	default:
		fmt.Printf("  ✓ UNCHANGED\n")
	}
}
