package ioindex

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/omoplink"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Builder creates embedding index artifacts. Concurrent builds of the
// same store and parameters share one in-flight build.
type Builder struct {
	cfg   *config.Config
	group singleflight.Group
}

// NewBuilder creates a Builder.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// batch is one embedding request: a contiguous slice of the embeddable
// concepts in ascending concept id order. Batch numbering is
// deterministic, so checkpoints from an interrupted run stay valid on
// the next one.
type batch struct {
	num   int
	ids   []int64
	names []string
}

// Build embeds every embeddable concept name and publishes the index
// artifact atomically. Finished batches are checkpointed as they
// complete; an interrupted build keeps its checkpoints and a rerun
// embeds only the remainder. A successful publish clears the
// checkpoints.
func (b *Builder) Build(
	ctx context.Context,
	store omoplink.GraphStore,
	embedder omoplink.Embedder,
) (*Index, error) {
	fp := Fingerprint(store.Fingerprint(), b.cfg)

	res, err, _ := b.group.Do(fp, func() (any, error) {
		return b.build(ctx, store, embedder, fp)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Index), nil
}

func (b *Builder) build(
	ctx context.Context,
	store omoplink.GraphStore,
	embedder omoplink.Embedder,
	fp string,
) (*Index, error) {
	start := time.Now()
	target := config.IndexPath(b.cfg.HomeDir, fp)

	slog.Info("Building embedding index",
		"fingerprint", fp,
		"model", embedder.Model(),
		"path", target,
	)

	gn.Info("(1/3) Collecting concept names...")
	batches, total, err := b.collectBatches(ctx, store)
	if err != nil {
		return nil, err
	}

	ckpt, err := openCheckpoints(config.CheckpointDir(b.cfg.HomeDir))
	if err != nil {
		return nil, err
	}
	defer ckpt.Close()

	gn.Info("(2/3) Embedding %s concept names...", humanize.Comma(total))
	results, err := b.embedBatches(ctx, embedder, ckpt, fp, batches, total)
	if err != nil {
		return nil, err
	}

	gn.Info("(3/3) Publishing index...")
	idx, err := b.assemble(store, embedder, fp, batches, results)
	if err != nil {
		return nil, err
	}
	if err := idx.save(target); err != nil {
		return nil, err
	}
	if err := ckpt.clear(fp); err != nil {
		return nil, err
	}

	gn.Message("<em>Embedded %s concepts</em>", humanize.Comma(total))
	slog.Info("Embedding index ready",
		"fingerprint", fp,
		"concepts", total,
		"dimensions", idx.Dimensions(),
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return idx, nil
}

// collectBatches streams the embeddable concepts into fixed-size
// batches, preserving ascending concept id order.
func (b *Builder) collectBatches(
	ctx context.Context,
	store omoplink.GraphStore,
) ([]batch, int64, error) {
	size := b.cfg.Embed.BatchSize
	var batches []batch
	var total int64
	cur := batch{num: 0}

	err := store.EachEmbeddable(ctx, func(id int64, name string) error {
		cur.ids = append(cur.ids, id)
		cur.names = append(cur.names, name)
		total++
		if len(cur.ids) >= size {
			batches = append(batches, cur)
			cur = batch{num: len(batches)}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if len(cur.ids) > 0 {
		batches = append(batches, cur)
	}
	return batches, total, nil
}

// embedBatches runs the embedding worker pool. Checkpointed batches
// are restored without a request; the rest go to the embedder,
// bounded by Embed.Workers concurrent requests.
func (b *Builder) embedBatches(
	ctx context.Context,
	embedder omoplink.Embedder,
	ckpt *checkpoints,
	fp string,
	batches []batch,
	total int64,
) ([][][]float32, error) {
	bar := pb.Full.Start64(total)
	bar.Set("prefix", "Embedding: ")
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	results := make([][][]float32, len(batches))
	var todo []int
	var resumed int

	for i := range batches {
		vecs, ok, err := ckpt.get(fp, i)
		if err != nil {
			return nil, err
		}
		// A checkpoint of the wrong length is stale; re-embed it.
		if ok && len(vecs) == len(batches[i].ids) {
			results[i] = vecs
			resumed++
			bar.Add(len(vecs))
			continue
		}
		todo = append(todo, i)
	}
	if resumed > 0 {
		slog.Info("Resuming embedding from checkpoints",
			"finished_batches", resumed,
			"remaining_batches", len(todo),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.Embed.Workers, 1))

	for _, i := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vecs, err := embedder.Embed(gctx, batches[i].names)
			if err != nil {
				return err
			}
			if err := ckpt.put(fp, i, vecs); err != nil {
				return err
			}
			results[i] = vecs
			bar.Add(len(vecs))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nil, BuildInterruptedError(err)
		}
		return nil, err
	}
	return results, nil
}

// assemble flattens the batch results into one artifact. The first
// vector fixes the index width when the embedder leaves it open; every
// vector is validated against it. Vectors are L2-normalized here, so
// restored checkpoints and fresh responses end up identical.
func (b *Builder) assemble(
	store omoplink.GraphStore,
	embedder omoplink.Embedder,
	fp string,
	batches []batch,
	results [][][]float32,
) (*Index, error) {
	dims := embedder.Dimensions()
	var ids []int64
	var vectors [][]float32

	for i, bt := range batches {
		vecs := results[i]
		for j, vec := range vecs {
			if dims == 0 {
				dims = len(vec)
			}
			if len(vec) != dims {
				return nil, EmbeddingDimensionError(dims, len(vec))
			}
			ids = append(ids, bt.ids[j])
			vectors = append(vectors, normalize(vec))
		}
	}

	art := Artifact{
		Version:          config.IndexVersion,
		StoreFingerprint: store.Fingerprint(),
		Fingerprint:      fp,
		ModelName:        embedder.Model(),
		Dimensions:       dims,
		ConceptIDs:       ids,
		Vectors:          vectors,
		CreatedAt:        time.Now().UTC(),
	}
	return &Index{art: art}, nil
}
