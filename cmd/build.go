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
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/medtext/omoplink/internal/iostore"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/errcode"
	"github.com/spf13/cobra"
)

// getBuildCmd returns the build command.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getBuildCmd() *cobra.Command {
	var (
		sourcesDir string
		force      bool
	)

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the concept graph store from OMOP vocabulary tables",
		Long: `Build compiles the OMOP vocabulary tables into the concept
graph store, a single-file SQLite artifact.

This command:
  1. Reads sources.yaml to locate the vocabulary tables
     (CONCEPT, CONCEPT_ANCESTOR, CONCEPT_RELATIONSHIP, DOMAIN,
     VOCABULARY, CONCEPT_CLASS, RELATIONSHIP)
  2. Fingerprints the table contents; an artifact with the same
     fingerprint is reused unless --force is given
  3. Imports the tables into a staging file, verifies referential
     integrity and creates lookup indexes
  4. Publishes the artifact atomically under the cache directory

Vocabulary sources are configured in:
  ~/.config/omoplink/sources.yaml

Examples:
  # Build from the directory configured in sources.yaml
  omoplink build

  # Build from a local Athena download
  omoplink build --sources-dir ~/Downloads/vocabulary_v5

  # Rebuild even when the fingerprint matches
  omoplink build --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("sources-dir") {
				cfg.Update([]config.Option{
					config.OptStoreSourcesDir(sourcesDir),
				})
			}
			err := runBuild(force)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	buildCmd.Flags().StringVarP(
		&sourcesDir, "sources-dir", "s", "",
		"directory with the OMOP vocabulary tables (overrides sources.yaml)",
	)
	buildCmd.Flags().BoolVarP(
		&force, "force", "f", false,
		"rebuild even when an up-to-date artifact exists",
	)

	return buildCmd
}

func runBuild(force bool) error {
	ctx := context.Background()

	src, err := loadSources()
	if err != nil {
		return err
	}

	gn.Info("Using vocabulary tables from <em>%s</em>", src.Dir)

	if !force {
		store, err := iostore.Find(cfg, src)
		if err == nil {
			defer store.Close()
			gn.Message("<em>Store is already up to date</em>")
			gn.Info("Fingerprint: <em>%s</em>", store.Fingerprint())
			gn.Info("Concepts: <em>%s</em>",
				humanize.Comma(store.Stats().ConceptCount))
			gn.Info("Use <em>--force</em> to rebuild it anyway.")
			return nil
		}
		var gnErr *gn.Error
		if !errors.As(err, &gnErr) ||
			gnErr.Code != errcode.StoreNotFoundError {
			return err
		}
	}

	store, err := iostore.NewBuilder(cfg).Build(ctx, src)
	if err != nil {
		return err
	}
	defer store.Close()

	info := store.Stats()
	gn.Info("Store is ready at <em>%s</em>", store.Path())
	gn.Info("Concepts: <em>%s</em>, ancestor rows: <em>%s</em>, "+
		"relationships: <em>%s</em>",
		humanize.Comma(info.ConceptCount),
		humanize.Comma(info.AncestorCount),
		humanize.Comma(info.RelationshipCount),
	)
	gn.Info(`Next steps:
  - Run '<em>omoplink embed</em>' to build the embedding index
  - Run '<em>omoplink resolve "chest pain"</em>' to link a mention
`)

	return nil
}
