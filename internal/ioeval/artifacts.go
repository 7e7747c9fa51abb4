package ioeval

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gnames/gnfmt"
	"github.com/gnames/gnlib"
	"github.com/medtext/omoplink/pkg/omoplink"
)

// ReadNotes loads every <note_id>.txt document under dir, sorted by
// document id. An empty corpus is an error: the harness has nothing to
// run on.
func ReadNotes(dir string) ([]omoplink.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, EvalArtifactError(dir, err)
	}

	var docs []omoplink.Document
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		bs, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, EvalArtifactError(filepath.Join(dir, name), err)
		}
		docs = append(docs, omoplink.Document{
			ID:   strings.TrimSuffix(name, ".txt"),
			Text: gnlib.FixUtf8(string(bs)),
		})
	}
	if len(docs) == 0 {
		return nil, EvalArtifactError(dir,
			fmt.Errorf("no .txt documents found"))
	}
	// os.ReadDir returns entries sorted by name, so docs are already
	// in document id order.
	return docs, nil
}

// ReadGold loads gold annotations from a CSV file with columns
// note_id,start,end,concept_id.
func ReadGold(path string) ([]omoplink.GoldAnnotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, EvalGoldError(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, EvalGoldError(path, err)
	}
	col := make(map[string]int)
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, req := range []string{"note_id", "start", "end", "concept_id"} {
		if _, ok := col[req]; !ok {
			return nil, EvalGoldError(path,
				fmt.Errorf("missing column %s", req))
		}
	}

	var golds []omoplink.GoldAnnotation
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, EvalGoldError(path,
				fmt.Errorf("line %d: %w", line, err))
		}

		g := omoplink.GoldAnnotation{
			DocumentID: strings.TrimSpace(rec[col["note_id"]]),
		}
		g.Start, err = strconv.Atoi(strings.TrimSpace(rec[col["start"]]))
		if err != nil {
			return nil, EvalGoldError(path,
				fmt.Errorf("line %d: start: %w", line, err))
		}
		g.End, err = strconv.Atoi(strings.TrimSpace(rec[col["end"]]))
		if err != nil {
			return nil, EvalGoldError(path,
				fmt.Errorf("line %d: end: %w", line, err))
		}
		g.ConceptID, err = strconv.ParseInt(
			strings.TrimSpace(rec[col["concept_id"]]), 10, 64)
		if err != nil {
			return nil, EvalGoldError(path,
				fmt.Errorf("line %d: concept_id: %w", line, err))
		}
		golds = append(golds, g)
	}
	return golds, nil
}

// WriteSubmission writes the prediction payload as a CSV with columns
// note_id,start,end,concept_id,confidence, ordered by document id and
// span start.
func WriteSubmission(path string, preds []omoplink.PredictedLink) error {
	rows := make([]omoplink.PredictedLink, len(preds))
	copy(rows, preds)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.ConceptID < b.ConceptID
	})

	f, err := os.Create(path)
	if err != nil {
		return EvalArtifactError(path, err)
	}

	w := csv.NewWriter(f)
	records := [][]string{
		{"note_id", "start", "end", "concept_id", "confidence"},
	}
	for _, p := range rows {
		records = append(records, []string{
			p.DocumentID,
			strconv.Itoa(p.Start),
			strconv.Itoa(p.End),
			strconv.FormatInt(p.ConceptID, 10),
			strconv.FormatFloat(p.Score, 'f', 4, 64),
		})
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return EvalArtifactError(path, err)
	}
	if err := f.Close(); err != nil {
		return EvalArtifactError(path, err)
	}
	return nil
}

// WriteReport writes the evaluation report as pretty-printed JSON.
func WriteReport(path string, rep *omoplink.Report) error {
	enc := gnfmt.GNjson{Pretty: true}
	bs, err := enc.Encode(rep)
	if err != nil {
		return EvalArtifactError(path, err)
	}
	if err := os.WriteFile(path, bs, 0644); err != nil {
		return EvalArtifactError(path, err)
	}
	return nil
}

// MapToSnomed rewrites predicted concept ids as SNOMED codes for
// submission targets keyed by SNOMED. Predictions whose concept has no
// SNOMED code are dropped; the count of dropped rows is returned so
// callers can report it.
func MapToSnomed(
	ctx context.Context,
	store omoplink.GraphStore,
	preds []omoplink.PredictedLink,
) ([]omoplink.PredictedLink, int, error) {
	codes := make(map[int64]int64)
	var res []omoplink.PredictedLink
	var dropped int

	for _, p := range preds {
		code, ok := codes[p.ConceptID]
		if !ok {
			raw, err := store.SnomedCode(ctx, p.ConceptID)
			if err != nil {
				return nil, 0, err
			}
			// SNOMED codes are numeric SCTIDs; anything else means
			// the concept has no usable mapping.
			if raw != "" {
				code, _ = strconv.ParseInt(raw, 10, 64)
			}
			codes[p.ConceptID] = code
		}
		if code == 0 {
			dropped++
			continue
		}
		p.ConceptID = code
		res = append(res, p)
	}
	return res, dropped, nil
}
