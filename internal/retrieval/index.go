// Package retrieval builds, persists and queries the reference-law similarity index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"clausecheck/internal/embedding"
	"clausecheck/internal/logging"
	"clausecheck/internal/store"
)

// ErrEngineMismatch is returned when stored vectors were produced by a
// different embedding engine or dimension than the one configured.
var ErrEngineMismatch = errors.New("index embedding engine mismatch")

// Chunk is a bounded span of a reference document plus its embedding.
type Chunk struct {
	ID        string
	Source    string // originating filename
	Index     int    // position within the source document
	Text      string
	Embedding []float32
}

// Index holds every chunk and embedding in memory. It is immutable after
// construction and safe for concurrent readers.
type Index struct {
	chunks  []Chunk
	vectors [][]float32
	engine  embedding.EmbeddingEngine
	meta    store.Meta
}

// NewIndex builds an index over chunks. engine embeds search queries.
func NewIndex(chunks []Chunk, engine embedding.EmbeddingEngine, meta store.Meta) *Index {
	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vectors[i] = chunks[i].Embedding
	}
	return &Index{chunks: chunks, vectors: vectors, engine: engine, meta: meta}
}

// Len returns the number of chunks.
func (x *Index) Len() int { return len(x.chunks) }

// Chunks returns a copy of the chunk list.
func (x *Index) Chunks() []Chunk {
	out := make([]Chunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

// Meta returns the snapshot metadata the index was built or loaded with.
func (x *Index) Meta() store.Meta {
	out := make(store.Meta, len(x.meta))
	for k, v := range x.meta {
		out[k] = v
	}
	return out
}

// Sources returns the distinct source filenames, sorted.
func (x *Index) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range x.chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			out = append(out, c.Source)
		}
	}
	sort.Strings(out)
	return out
}

// Search embeds query and returns the k most similar chunks, best first.
// Ranking is by cosine similarity only.
func (x *Index) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if x.engine == nil {
		return nil, fmt.Errorf("index has no embedding engine")
	}
	if len(x.chunks) == 0 {
		return nil, nil
	}

	qv, err := embedding.EmbedQuery(ctx, x.engine, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := embedding.FindTopK(qv, x.vectors, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		// FindTopK skips vectors of another size; all of them were skipped.
		return nil, fmt.Errorf("%w: query has %d dimensions, no indexed vector matches", ErrEngineMismatch, len(qv))
	}

	out := make([]Chunk, len(hits))
	for i, h := range hits {
		out[i] = x.chunks[h.Index]
	}
	logging.RetrievalDebug("Search: k=%d returned %d chunks", k, len(out))
	return out, nil
}

func toRecords(chunks []Chunk) []store.Record {
	records := make([]store.Record, len(chunks))
	for i, c := range chunks {
		records[i] = store.Record{
			ID:         c.ID,
			Source:     c.Source,
			ChunkIndex: c.Index,
			Content:    c.Text,
			Embedding:  c.Embedding,
		}
	}
	return records
}

func fromRecords(records []store.Record) []Chunk {
	chunks := make([]Chunk, len(records))
	for i, r := range records {
		chunks[i] = Chunk{
			ID:        r.ID,
			Source:    r.Source,
			Index:     r.ChunkIndex,
			Text:      r.Content,
			Embedding: r.Embedding,
		}
	}
	return chunks
}
