/*
Copyright © 2025 The omoplink authors
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/omoplink"
	"github.com/spf13/cobra"
)

// getResolveCmd returns the resolve command.
func getResolveCmd() *cobra.Command {
	var (
		domains      []string
		vocabularies []string
		topK         int
		asJSON       bool
	)

	resolveCmd := &cobra.Command{
		Use:   "resolve <mention>",
		Short: "Resolve one text mention to ranked OMOP concepts",
		Long: `Resolve links a free-text mention to ranked OMOP concept
candidates.

The mention is embedded with the same model used at index build time,
matched against the embedding index by cosine similarity, re-ranked
with lexical boosts, and mapped to standard concepts. Domain and
vocabulary hints down-weight contradicting candidates without
excluding them.

Prerequisites:
  - Concept graph store (run 'omoplink build' first)
  - Embedding index (run 'omoplink embed' first)

Examples:
  # Resolve a mention
  omoplink resolve "bacterial pneumonia"

  # Prefer Condition concepts
  omoplink resolve "aspirin" --domains Condition

  # Machine-readable output, five candidates
  omoplink resolve "chest pain" --top 5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("top") {
				cfg.Update([]config.Option{config.OptResolveTopK(topK)})
			}
			hints := omoplink.Hints{
				Domains:      domains,
				Vocabularies: vocabularies,
			}
			err := runResolve(args[0], hints, asJSON)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	resolveCmd.Flags().StringSliceVarP(
		&domains, "domains", "d", nil,
		"domain hints, e.g. Condition,Drug",
	)
	resolveCmd.Flags().StringSliceVar(
		&vocabularies, "vocabularies", nil,
		"vocabulary hints, e.g. SNOMED,RxNorm",
	)
	resolveCmd.Flags().IntVarP(
		&topK, "top", "t", 0,
		"number of nearest neighbors to consider",
	)
	resolveCmd.Flags().BoolVarP(
		&asJSON, "json", "j", false,
		"print candidates as JSON",
	)

	return resolveCmd
}

func runResolve(mention string, hints omoplink.Hints, asJSON bool) error {
	ctx := context.Background()

	store, _, resolver, err := openPipeline()
	if err != nil {
		return err
	}
	defer store.Close()

	cands, err := resolver.Resolve(ctx, mention, hints)
	if err != nil {
		return err
	}

	if asJSON {
		enc := gnfmt.GNjson{Pretty: true}
		bs, err := enc.Encode(cands)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(bs))
		return nil
	}

	if len(cands) == 0 {
		gn.Warn("No concepts matched above the similarity floor.")
		return nil
	}

	gn.Message("<em>%s</em>", mention)
	for i, c := range cands {
		standard := " "
		if c.Concept.IsStandard() {
			standard = "S"
		}
		fmt.Printf("%2d. %.4f  %9d %s  %s [%s/%s %s]\n",
			i+1,
			c.Confidence,
			c.Concept.ConceptID,
			standard,
			c.Concept.ConceptName,
			c.Concept.DomainID,
			c.Concept.VocabularyID,
			c.Concept.ConceptCode,
		)
	}

	return nil
}
