package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"clausecheck/internal/embedding"
	"clausecheck/internal/logging"
	"clausecheck/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("6f1d7a52-3c1b-4f0e-9a53-0b8f2e6c9d41")

// Builder turns reference documents into an Index.
type Builder struct {
	Engine      embedding.EmbeddingEngine
	Splitter    *Splitter
	Concurrency int // parallel embedding batches; <= 0 means 1
	BatchSize   int // texts per EmbedBatch call; <= 0 means 32
}

// Build splits every document, embeds all chunks and returns the index.
// Any failure aborts the whole build; no partial index is returned.
func (b *Builder) Build(ctx context.Context, docs []Document) (*Index, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Build")
	defer timer.Stop()

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	if b.Engine == nil || b.Splitter == nil {
		return nil, fmt.Errorf("builder needs an embedding engine and a splitter")
	}

	if hc, ok := b.Engine.(embedding.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return nil, fmt.Errorf("embedding engine unavailable: %w", err)
		}
	}

	var chunks []Chunk
	for _, doc := range docs {
		parts := b.Splitter.Split(doc.Text)
		if len(parts) == 0 {
			logging.Get(logging.CategoryRetrieval).Warn("Reference document %s is too short to produce a chunk", doc.Source)
			continue
		}
		for i, text := range parts {
			chunks = append(chunks, Chunk{
				ID:     chunkID(doc.Source, i),
				Source: doc.Source,
				Index:  i,
				Text:   text,
			})
		}
		logging.RetrievalDebug("Split %s into %d chunks", doc.Source, len(parts))
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %d document(s) produced no chunks", ErrNoDocuments, len(docs))
	}

	if err := b.embed(ctx, chunks); err != nil {
		return nil, err
	}

	meta := store.Meta{
		"engine":     b.Engine.Name(),
		"dimensions": strconv.Itoa(len(chunks[0].Embedding)),
		"documents":  strconv.Itoa(len(docs)),
		"built_at":   time.Now().UTC().Format(time.RFC3339),
	}

	logging.Retrieval("Built index: %d documents, %d chunks, engine=%s", len(docs), len(chunks), b.Engine.Name())
	return NewIndex(chunks, b.Engine, meta), nil
}

// embed fills chunk embeddings in place. Batches run in parallel up to
// Concurrency; each batch writes only its own slice range, so order is kept.
func (b *Builder) embed(ctx context.Context, chunks []Chunk) error {
	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	limit := b.Concurrency
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Text
			}
			vecs, err := b.Engine.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed chunks of %s: %w", batch[0].Source, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedding engine returned %d vectors for %d chunks", len(vecs), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			return nil
		})
	}

	return g.Wait()
}

func chunkID(source string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(source+"#"+strconv.Itoa(index))).String()
}
