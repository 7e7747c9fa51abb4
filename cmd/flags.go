package cmd

import (
	"github.com/medtext/omoplink/internal/ioembed"
	"github.com/medtext/omoplink/internal/ioindex"
	"github.com/medtext/omoplink/internal/ioresolve"
	"github.com/medtext/omoplink/internal/iosources"
	"github.com/medtext/omoplink/internal/iostore"
	"github.com/medtext/omoplink/pkg/sources"
)

// loadSources reads sources.yaml, applies the --sources-dir override
// and validates the vocabulary directory.
func loadSources() (*sources.Config, error) {
	return iosources.New(cfg).Load()
}

// openStore locates the concept graph store artifact matching the
// configured vocabulary sources.
func openStore() (*iostore.Store, error) {
	src, err := loadSources()
	if err != nil {
		return nil, err
	}
	return iostore.Find(cfg, src)
}

// openPipeline wires the full resolution pipeline: store, embedding
// index and the embedding client. The caller owns the store handle.
func openPipeline() (*iostore.Store, *ioindex.Index, *ioresolve.Resolver, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}

	idx, err := ioindex.Find(cfg, store)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	resolver, err := ioresolve.New(cfg, store, idx, ioembed.FromConfig(cfg))
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return store, idx, resolver, nil
}
