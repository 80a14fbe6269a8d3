package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"clausecheck/internal/logging"

	"google.golang.org/genai"
)

// =============================================================================
// GOOGLE GENAI EMBEDDING ENGINE
// =============================================================================

// GenAIEngine generates embeddings using Google's Gemini API.
type GenAIEngine struct {
	client    *genai.Client
	model     string
	taskType  string
	queryTask string

	// dims is learned from responses; gemini-embedding-001 defaults to 3072
	// but output_dimensionality can shrink it.
	dims atomic.Int64
}

// validTaskTypes lists the task types the Gemini embedding endpoint accepts.
var validTaskTypes = map[string]bool{
	"SEMANTIC_SIMILARITY":  true,
	"CLASSIFICATION":       true,
	"CLUSTERING":           true,
	"RETRIEVAL_DOCUMENT":   true,
	"RETRIEVAL_QUERY":      true,
	"QUESTION_ANSWERING":   true,
	"FACT_VERIFICATION":    true,
	"CODE_RETRIEVAL_QUERY": true,
}

// NewGenAIEngine creates a new GenAI embedding engine.
// taskType applies to indexed documents; queries use RETRIEVAL_QUERY.
func NewGenAIEngine(ctx context.Context, apiKey, model, taskType string, opts ...GenAIOption) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if taskType == "" {
		taskType = "RETRIEVAL_DOCUMENT"
	}
	if !validTaskTypes[taskType] {
		return nil, fmt.Errorf("unsupported GenAI task type: %s", taskType)
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.Embedding("Initialized GenAI embedding engine: model=%s, task_type=%s", model, taskType)
	return &GenAIEngine{
		client:    client,
		model:     model,
		taskType:  taskType,
		queryTask: "RETRIEVAL_QUERY",
	}, nil
}

// GenAIOption customizes the underlying GenAI client.
type GenAIOption func(*genai.ClientConfig)

// WithGenAIBaseURL points the client at a different endpoint (proxies, tests).
func WithGenAIBaseURL(url string) GenAIOption {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = url
	}
}

// Embed generates an embedding for a single document text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text, e.taskType)
}

// EmbedQuery generates an embedding for a search query.
func (e *GenAIEngine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text, e.queryTask)
}

func (e *GenAIEngine) embedOne(ctx context.Context, text, task string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: task},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}

	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embeddings returned")
	}

	e.dims.Store(int64(len(result.Embeddings[0].Values)))
	return result.Embeddings[0].Values, nil
}

// EmbedBatch generates embeddings for multiple texts.
// GenAI has native batch support.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{TaskType: e.taskType},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI batch embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("GenAI returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("GenAI returned empty embedding at %d", i)
		}
		embeddings[i] = emb.Values
	}
	e.dims.Store(int64(len(embeddings[0])))

	return embeddings, nil
}

// Dimensions returns the vector size seen in responses, or 0 before the first call.
func (e *GenAIEngine) Dimensions() int {
	return int(e.dims.Load())
}

// Name returns the engine name.
func (e *GenAIEngine) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}
