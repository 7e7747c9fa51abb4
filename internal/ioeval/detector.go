package ioeval

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gnames/gnlib"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/medtext/omoplink/pkg/spans"
)

// FileDetector is the file-backed mention detection collaborator. It
// serves mentions from a CSV export with columns
// note_id,start,end,text. Rows without offsets carry only the mention
// phrase; those are located in the document text at Detect time,
// tolerating case and whitespace differences, and overlapping located
// spans reduce to the longest one.
type FileDetector struct {
	path string
	rows map[string][]mentionRow
}

var _ omoplink.Detector = (*FileDetector)(nil)

type mentionRow struct {
	start, end int
	locate     bool
	text       string
}

// NewFileDetector loads the mentions file once; Detect serves
// per-document slices from memory.
func NewFileDetector(path string) (*FileDetector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, EvalMentionsError(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, EvalMentionsError(path, err)
	}
	col := make(map[string]int)
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, req := range []string{"note_id", "start", "end", "text"} {
		if _, ok := col[req]; !ok {
			return nil, EvalMentionsError(path,
				fmt.Errorf("missing column %s", req))
		}
	}

	rows := make(map[string][]mentionRow)
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, EvalMentionsError(path,
				fmt.Errorf("line %d: %w", line, err))
		}

		id := strings.TrimSpace(rec[col["note_id"]])
		rawStart := strings.TrimSpace(rec[col["start"]])
		rawEnd := strings.TrimSpace(rec[col["end"]])
		row := mentionRow{text: gnlib.FixUtf8(rec[col["text"]])}

		switch {
		case rawStart == "" && rawEnd == "":
			if strings.TrimSpace(row.text) == "" {
				return nil, EvalMentionsError(path,
					fmt.Errorf("line %d: neither offsets nor text", line))
			}
			row.locate = true
		default:
			row.start, err = strconv.Atoi(rawStart)
			if err != nil {
				return nil, EvalMentionsError(path,
					fmt.Errorf("line %d: start: %w", line, err))
			}
			row.end, err = strconv.Atoi(rawEnd)
			if err != nil {
				return nil, EvalMentionsError(path,
					fmt.Errorf("line %d: end: %w", line, err))
			}
		}
		rows[id] = append(rows[id], row)
	}
	return &FileDetector{path: path, rows: rows}, nil
}

// Detect returns the mentions of one document, sorted by position.
// Rows with explicit offsets pass through untouched; the harness
// validates their bounds.
func (d *FileDetector) Detect(
	ctx context.Context,
	doc omoplink.Document,
) ([]omoplink.Mention, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res []omoplink.Mention
	var located []omoplink.PredictedLink
	for _, row := range d.rows[doc.ID] {
		if !row.locate {
			res = append(res, omoplink.Mention{
				DocumentID: doc.ID,
				Start:      row.start,
				End:        row.end,
				Text:       row.text,
			})
			continue
		}
		for _, r := range spans.FindOccurrences(doc.Text, row.text) {
			located = append(located, omoplink.PredictedLink{
				DocumentID: doc.ID,
				Start:      r.Start,
				End:        r.End,
			})
		}
	}

	for _, link := range spans.ResolveOverlaps(located) {
		res = append(res, omoplink.Mention{
			DocumentID: doc.ID,
			Start:      link.Start,
			End:        link.End,
			Text:       doc.Text[link.Start:link.End],
		})
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Start != res[j].Start {
			return res[i].Start < res[j].Start
		}
		return res[i].End < res[j].End
	})
	return res, nil
}
