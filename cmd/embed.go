/*
Copyright © 2025 The omoplink authors
*/
package cmd

import (
	"context"
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/medtext/omoplink/internal/ioembed"
	"github.com/medtext/omoplink/internal/ioindex"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/errcode"
	"github.com/spf13/cobra"
)

// getEmbedCmd returns the embed command.
func getEmbedCmd() *cobra.Command {
	var (
		workers   int
		batchSize int
		force     bool
	)

	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Build the embedding index from the concept graph store",
		Long: `Embed turns concept names from the concept graph store into
vectors and publishes them as the embedding index artifact.

This command:
  1. Opens the concept graph store (run 'omoplink build' first)
  2. Streams embeddable concept names in batches to the embedding
     service configured under embed.* (endpoint, model, prefix)
  3. Checkpoints every finished batch; an interrupted run resumes
     from the last checkpoint instead of starting over
  4. Publishes the index atomically under the cache directory

The index is keyed by the store fingerprint and the embedding
parameters, so changing the model, prefix, batch size or domain
filter leads to a fresh index.

Performance:
  Embedding a full OMOP vocabulary may take hours depending on the
  embedding service; progress bars show the current status.

Examples:
  # Build the index with default settings
  omoplink embed

  # More concurrent embedding requests, bigger batches
  omoplink embed --workers 8 --batch-size 512

  # Rebuild even when an up-to-date index exists
  omoplink embed --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var embedOpts []config.Option
			if cmd.Flags().Changed("workers") {
				embedOpts = append(embedOpts,
					config.OptEmbedWorkers(workers))
			}
			if cmd.Flags().Changed("batch-size") {
				embedOpts = append(embedOpts,
					config.OptEmbedBatchSize(batchSize))
			}
			if len(embedOpts) > 0 {
				cfg.Update(embedOpts)
			}

			err := runEmbed(force)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	embedCmd.Flags().IntVarP(
		&workers, "workers", "w", 0,
		"number of concurrent embedding requests",
	)
	embedCmd.Flags().IntVarP(
		&batchSize, "batch-size", "b", 0,
		"concept names per embedding request",
	)
	embedCmd.Flags().BoolVarP(
		&force, "force", "f", false,
		"rebuild even when an up-to-date index exists",
	)

	return embedCmd
}

func runEmbed(force bool) error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if !force {
		idx, err := ioindex.Find(cfg, store)
		if err == nil {
			gn.Message("<em>Index is already up to date</em>")
			gn.Info("Fingerprint: <em>%s</em>", idx.Fingerprint())
			gn.Info("Concepts: <em>%s</em>, model: <em>%s</em>",
				humanize.Comma(int64(idx.Size())), idx.Model())
			gn.Info("Use <em>--force</em> to rebuild it anyway.")
			return nil
		}
		var gnErr *gn.Error
		if !errors.As(err, &gnErr) {
			return err
		}
		switch gnErr.Code {
		case errcode.IndexNotFoundError:
		case errcode.IndexVersionError:
			gn.Info("Existing index has an outdated format, rebuilding...")
		default:
			return err
		}
	}

	idx, err := ioindex.NewBuilder(cfg).
		Build(ctx, store, ioembed.FromConfig(cfg))
	if err != nil {
		return err
	}

	gn.Info("Index is ready at <em>%s</em>", idx.Path())
	gn.Info("Concepts: <em>%s</em>, model: <em>%s</em>, dimensions: <em>%d</em>",
		humanize.Comma(int64(idx.Size())), idx.Model(), idx.Dimensions())
	gn.Info(`Next steps:
  - Run '<em>omoplink resolve "chest pain"</em>' to link a mention
  - Run '<em>omoplink eval</em>' to score a corpus
`)

	return nil
}
