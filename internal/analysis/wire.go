package analysis

import (
	"context"
	"fmt"

	"clausecheck/internal/config"
	"clausecheck/internal/embedding"
	"clausecheck/internal/extract"
	"clausecheck/internal/llm"
	"clausecheck/internal/logging"
	"clausecheck/internal/retrieval"
)

// TokenEncoding is the BPE encoding used to bound chunk sizes.
const TokenEncoding = "cl100k_base"

// NewLoader builds the index loader described by cfg.
func NewLoader(ctx context.Context, cfg *config.Config) (*retrieval.Loader, error) {
	engine, err := embedding.NewEngine(ctx, embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
		Timeout:        cfg.GetEmbeddingTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding engine: %w", err)
	}

	tok, err := retrieval.NewTiktokenTokenizer(TokenEncoding)
	if err != nil {
		return nil, err
	}

	splitter := retrieval.NewSplitter(tok, retrieval.SplitterConfig{
		ChunkSize:             cfg.Index.ChunkSize,
		MinChunkSizeChars:     cfg.Index.MinChunkSizeChars,
		MinChunkLengthToEmbed: cfg.Index.MinChunkLengthToEmbed,
		MaxNumChunks:          cfg.Index.MaxNumChunks,
		KeepSeparator:         true,
	})

	builder := &retrieval.Builder{
		Engine:      engine,
		Splitter:    splitter,
		Concurrency: cfg.Index.BuildConcurrency,
		BatchSize:   cfg.Index.BatchSize,
	}
	return retrieval.NewLoader(cfg.Index.SnapshotPath(), cfg.Index.Sources, builder), nil
}

// NewFromConfig wires a service and its index loader from cfg. The index is
// not loaded here; the first search (or an explicit LoadOrBuild) does that.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, *retrieval.Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client, err := llm.NewClientFromConfig(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create language model client: %w", err)
	}

	loader, err := NewLoader(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	logging.Boot("Analysis service ready: llm=%s snapshot=%s top_k=%d", client.Name(), cfg.Index.SnapshotPath(), cfg.Index.TopK)
	return NewService(extract.NewConverter(), client, loader, cfg.Index.TopK), loader, nil
}
