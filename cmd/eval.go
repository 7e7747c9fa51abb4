/*
Copyright © 2025 The omoplink authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/medtext/omoplink/internal/ioeval"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/medtext/omoplink/pkg/score"
	"github.com/spf13/cobra"
)

// getEvalCmd returns the eval command.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getEvalCmd() *cobra.Command {
	var (
		notesDir       string
		mentionsPath   string
		goldPath       string
		outPath        string
		submissionPath string
		snomed         bool
	)

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the evaluation harness over a document corpus",
		Long: `Eval resolves every detected mention in a document corpus and,
when gold annotations are given, scores the predictions.

This command:
  1. Reads clinical notes (one <note_id>.txt file per document)
  2. Reads detected mentions from a CSV file with columns
     note_id,start,end,text; rows without offsets are located in the
     document text at run time
  3. Resolves each mention through the embedding index
  4. Matches predicted spans against gold annotations and grades
     concepts with hierarchy-aware partial credit
  5. Prints corpus precision, recall and F1, and optionally writes
     the report and the submission CSV

Without --gold the run is inference only: no metrics, but the
submission payload is still produced.

Prerequisites:
  - Concept graph store (run 'omoplink build' first)
  - Embedding index (run 'omoplink embed' first)

Examples:
  # Score a corpus against gold annotations
  omoplink eval --notes ./notes --mentions mentions.csv \
    --gold gold.csv --out report.json

  # Inference only, submission keyed by SNOMED codes
  omoplink eval --notes ./notes --mentions mentions.csv \
    --submission submission.csv --snomed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runEval(
				notesDir, mentionsPath, goldPath,
				outPath, submissionPath, snomed,
			)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	evalCmd.Flags().StringVarP(
		&notesDir, "notes", "n", "",
		"directory with <note_id>.txt documents",
	)
	evalCmd.Flags().StringVarP(
		&mentionsPath, "mentions", "m", "",
		"CSV file with detected mentions",
	)
	evalCmd.Flags().StringVarP(
		&goldPath, "gold", "g", "",
		"CSV file with gold annotations (optional)",
	)
	evalCmd.Flags().StringVarP(
		&outPath, "out", "o", "",
		"write the JSON report to this file",
	)
	evalCmd.Flags().StringVar(
		&submissionPath, "submission", "",
		"write the prediction CSV to this file",
	)
	evalCmd.Flags().BoolVar(
		&snomed, "snomed", false,
		"key the submission by SNOMED codes instead of concept ids",
	)

	evalCmd.MarkFlagRequired("notes")
	evalCmd.MarkFlagRequired("mentions")

	return evalCmd
}

func runEval(
	notesDir string,
	mentionsPath string,
	goldPath string,
	outPath string,
	submissionPath string,
	snomed bool,
) error {
	ctx := context.Background()

	docs, err := ioeval.ReadNotes(notesDir)
	if err != nil {
		return err
	}
	gn.Info("Read <em>%d</em> documents from <em>%s</em>",
		len(docs), notesDir)

	detector, err := ioeval.NewFileDetector(mentionsPath)
	if err != nil {
		return err
	}

	var evalOpts []ioeval.Option
	if goldPath != "" {
		golds, err := ioeval.ReadGold(goldPath)
		if err != nil {
			return err
		}
		gn.Info("Read <em>%s</em> gold annotations from <em>%s</em>",
			humanize.Comma(int64(len(golds))), goldPath)
		evalOpts = append(evalOpts, ioeval.OptGold(golds))
	}

	store, idx, resolver, err := openPipeline()
	if err != nil {
		return err
	}
	defer store.Close()

	scorer, err := score.New(store, cfg.Score.Decay)
	if err != nil {
		return err
	}

	evalOpts = append(evalOpts,
		ioeval.OptFingerprints(store.Fingerprint(), idx.Fingerprint()))

	ev := ioeval.New(cfg, resolver, detector, scorer, evalOpts...)
	rep, err := ev.Evaluate(ctx, docs)
	if err != nil {
		return err
	}

	printEvalSummary(rep)

	if outPath != "" {
		if err := ioeval.WriteReport(outPath, rep); err != nil {
			return err
		}
		gn.Info("Report written to <em>%s</em>", outPath)
	}

	if submissionPath != "" {
		preds := rep.Predictions
		if snomed {
			mapped, dropped, err := ioeval.MapToSnomed(ctx, store, preds)
			if err != nil {
				return err
			}
			if dropped > 0 {
				gn.Warn("Dropped %s predictions without a SNOMED code",
					humanize.Comma(int64(dropped)))
			}
			preds = mapped
		}
		if err := ioeval.WriteSubmission(submissionPath, preds); err != nil {
			return err
		}
		gn.Info("Submission written to <em>%s</em>", submissionPath)
	}

	return nil
}

func printEvalSummary(rep *omoplink.Report) {
	if !rep.GoldAvailable {
		gn.Message("<em>Inference run: %s predictions over %d documents</em>",
			humanize.Comma(int64(len(rep.Predictions))), len(rep.Documents))
		return
	}

	gn.Message("<em>Precision %.4f, recall %.4f, F1 %.4f</em>",
		rep.Corpus.Precision, rep.Corpus.Recall, rep.Corpus.F1)
	gn.Info("True positives: <em>%d</em>, "+
		"false positives: <em>%d</em>, false negatives: <em>%d</em>",
		rep.Corpus.TruePositives,
		rep.Corpus.FalsePositives,
		rep.Corpus.FalseNegatives,
	)
	gn.Info("Spans: <em>%d</em> exact, <em>%d</em> partial, "+
		"<em>%d</em> concept mismatches, <em>%d</em> without overlap",
		rep.Categories.ExactMatch,
		rep.Categories.PartialOverlap,
		rep.Categories.ConceptMismatch,
		rep.Categories.NoOverlap,
	)
}
