// Package ioeval implements the evaluation harness. Documents are
// processed in parallel: mentions come from the detection collaborator,
// the resolver links each mention, spans are matched against gold
// annotations and the concept scorer decides acceptance. Per-document
// counts merge by plain addition, so the corpus aggregate does not
// depend on scheduling order. Without gold annotations the harness
// degrades to the production inference path and still emits the
// submission payload.
package ioeval

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/gnames/gnfmt"
	"github.com/google/uuid"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/medtext/omoplink/pkg/score"
	"github.com/medtext/omoplink/pkg/spans"
	"golang.org/x/sync/errgroup"
)

// Evaluator runs the harness over a document corpus.
type Evaluator struct {
	cfg      *config.Config
	resolver omoplink.Resolver
	detector omoplink.Detector
	scorer   *score.Scorer
	golds    map[string][]omoplink.GoldAnnotation
	goldSet  bool
	storeFP  string
	indexFP  string
}

var _ omoplink.Evaluator = (*Evaluator)(nil)

// Option configures an Evaluator.
type Option func(*Evaluator)

// OptGold attaches gold annotations. Without them the run is inference
// only: predictions are still produced, metrics stay zero.
func OptGold(golds []omoplink.GoldAnnotation) Option {
	return func(e *Evaluator) {
		e.goldSet = true
		e.golds = make(map[string][]omoplink.GoldAnnotation)
		for _, g := range golds {
			e.golds[g.DocumentID] = append(e.golds[g.DocumentID], g)
		}
	}
}

// OptFingerprints records the artifact fingerprints of the run in the
// report, keeping historical scores attributable.
func OptFingerprints(storeFP, indexFP string) Option {
	return func(e *Evaluator) {
		e.storeFP = storeFP
		e.indexFP = indexFP
	}
}

// New creates an Evaluator.
func New(
	cfg *config.Config,
	resolver omoplink.Resolver,
	detector omoplink.Detector,
	scorer *score.Scorer,
	opts ...Option,
) *Evaluator {
	e := &Evaluator{
		cfg:      cfg,
		resolver: resolver,
		detector: detector,
		scorer:   scorer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// docOutcome is the unit of aggregation: one document's counts and its
// predictions.
type docOutcome struct {
	result omoplink.DocumentResult
	preds  []omoplink.PredictedLink
}

// Evaluate runs the harness. Documents are evaluated concurrently,
// bounded by JobsNumber; results merge in document id order.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	docs []omoplink.Document,
) (*omoplink.Report, error) {
	start := time.Now()

	sorted := slices.Clone(docs)
	slices.SortFunc(sorted, func(a, b omoplink.Document) int {
		return strings.Compare(a.ID, b.ID)
	})

	slog.Info("Evaluating documents",
		"documents", len(sorted),
		"jobs", e.cfg.JobsNumber,
		"gold", e.goldSet,
	)

	bar := pb.Full.Start(len(sorted))
	bar.Set("prefix", "Evaluating: ")
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	outcomes := make([]docOutcome, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.JobsNumber, 1))

	for i := range sorted {
		g.Go(func() error {
			out, err := e.evaluateDocument(gctx, sorted[i])
			if err != nil {
				return err
			}
			outcomes[i] = out
			bar.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &omoplink.Report{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Params: omoplink.RunParams{
			StoreFingerprint: e.storeFP,
			IndexFingerprint: e.indexFP,
			Decay:            e.scorer.Decay(),
			AcceptThreshold:  e.cfg.Score.AcceptThreshold,
			MinOverlap:       e.cfg.Eval.MinOverlap,
			TopK:             e.cfg.Resolve.TopK,
		},
		GoldAvailable: e.goldSet,
	}
	for _, out := range outcomes {
		out.result.Metrics.Finalize()
		rep.Documents = append(rep.Documents, out.result)
		rep.Corpus.Add(out.result.Metrics)
		rep.Categories.Add(out.result.Categories)
		rep.Predictions = append(rep.Predictions, out.preds...)
	}
	rep.Corpus.Finalize()

	slog.Info("Evaluation finished",
		"documents", len(sorted),
		"predictions", len(rep.Predictions),
		"f1", rep.Corpus.F1,
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return rep, nil
}

// evaluateDocument resolves one document's mentions and, when gold is
// available, scores them. Per-mention failures are isolated and
// counted; only detector failures, store failures and cancellation
// abort the run.
func (e *Evaluator) evaluateDocument(
	ctx context.Context,
	doc omoplink.Document,
) (docOutcome, error) {
	var out docOutcome
	out.result.DocumentID = doc.ID

	mentions, err := e.detector.Detect(ctx, doc)
	if err != nil {
		return out, EvalDocumentError(doc.ID, err)
	}
	out.result.Mentions = len(mentions)

	for _, m := range mentions {
		// Detector output is untrusted: bounds are checked against the
		// document before any slicing.
		if m.Start < 0 || m.End > len(doc.Text) || m.Start >= m.End {
			boundsErr := EvalSpanBoundsError(
				doc.ID, m.Start, m.End, len(doc.Text))
			slog.Warn("Mention rejected",
				"note_id", doc.ID, "error", boundsErr)
			out.result.Failures++
			continue
		}
		text := m.Text
		if text == "" {
			text = doc.Text[m.Start:m.End]
		}

		cands, err := e.resolver.Resolve(ctx, text, omoplink.Hints{})
		if err != nil {
			if ctx.Err() != nil {
				return out, err
			}
			slog.Warn("Mention resolution failed",
				"note_id", doc.ID, "mention", text, "error", err)
			out.result.Failures++
			continue
		}
		if len(cands) == 0 {
			continue
		}
		out.preds = append(out.preds, omoplink.PredictedLink{
			DocumentID: doc.ID,
			Start:      m.Start,
			End:        m.End,
			ConceptID:  cands[0].Concept.ConceptID,
			Score:      cands[0].Confidence,
		})
	}

	sort.Slice(out.preds, func(i, j int) bool {
		a, b := out.preds[i], out.preds[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.ConceptID < b.ConceptID
	})

	if !e.goldSet {
		return out, nil
	}

	pairs, ambs := spans.Match(
		out.preds, e.golds[doc.ID], e.cfg.Eval.MinOverlap)
	for _, amb := range ambs {
		slog.Warn("Ambiguous span match",
			"note_id", amb.DocumentID,
			"start", amb.Start,
			"end", amb.End,
			"side", amb.Side,
			"rivals", amb.Rivals,
		)
	}

	for _, pair := range pairs {
		if pair.Pred == nil || pair.Gold == nil {
			out.result.Categories.NoOverlap++
			if pair.Pred != nil {
				out.result.Metrics.FalsePositives++
			} else {
				out.result.Metrics.FalseNegatives++
			}
			continue
		}

		s, err := e.scorer.Score(ctx, pair.Pred.ConceptID, pair.Gold.ConceptID)
		if err != nil {
			return out, EvalDocumentError(doc.ID, err)
		}
		accepted := s >= e.cfg.Score.AcceptThreshold

		switch pair.Category(accepted) {
		case spans.CategoryExact:
			out.result.Categories.ExactMatch++
		case spans.CategoryPartial:
			out.result.Categories.PartialOverlap++
		case spans.CategoryConceptMismatch:
			out.result.Categories.ConceptMismatch++
		}

		// A true positive needs both the span match and an accepted
		// concept; a rejected concept is a wrong answer and a missed
		// gold annotation at once.
		if accepted {
			out.result.Metrics.TruePositives++
		} else {
			out.result.Metrics.FalsePositives++
			out.result.Metrics.FalseNegatives++
		}
	}
	return out, nil
}
