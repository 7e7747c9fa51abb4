package spans

import (
	"regexp"
	"sort"
	"strings"

	"github.com/medtext/omoplink/pkg/omoplink"
)

// Range is a half-open character range [Start, End) in a document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FindOccurrences locates every occurrence of a mention in a document,
// tolerating case differences and whitespace variations. A mention
// detector often returns a normalized phrase ("biliary pancreatitis")
// while the document carries "Biliary\npancreatitis"; the positions
// reported here always index into the original text.
func FindOccurrences(text, mention string) []Range {
	fields := strings.Fields(mention)
	if len(fields) == 0 {
		return nil
	}
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	pattern := "(?i)" + strings.Join(fields, `\s+`)
	re := regexp.MustCompile(pattern)

	var res []Range
	for _, loc := range re.FindAllStringIndex(text, -1) {
		res = append(res, Range{Start: loc[0], End: loc[1]})
	}
	return res
}

// ResolveOverlaps reduces a set of predicted links to non-overlapping
// spans. Spans are scanned sorted by start position, longest first, and
// a span is kept when it does not overlap an already kept one, so of
// two spans starting together the longer wins. Links are considered per
// document; spans in different documents never conflict. Input order
// does not matter.
func ResolveOverlaps(links []omoplink.PredictedLink) []omoplink.PredictedLink {
	if len(links) < 2 {
		return links
	}

	sorted := make([]omoplink.PredictedLink, len(links))
	copy(sorted, links)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		la, lb := a.End-a.Start, b.End-b.Start
		if la != lb {
			return la > lb
		}
		return a.ConceptID < b.ConceptID
	})

	var res []omoplink.PredictedLink
	for _, link := range sorted {
		conflict := false
		for i := len(res) - 1; i >= 0; i-- {
			sel := res[i]
			if sel.DocumentID != link.DocumentID {
				break
			}
			if Overlap(sel.Start, sel.End, link.Start, link.End) > 0 {
				conflict = true
				break
			}
		}
		if !conflict {
			res = append(res, link)
		}
	}
	return res
}
