package analysis

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"clausecheck/internal/retrieval"
)

// MockExtractor implements Extractor for testing.
type MockExtractor struct {
	ExtractFunc func(filename string, data []byte) (string, error)
}

func (m *MockExtractor) Extract(filename string, data []byte) (string, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(filename, data)
	}
	return string(data), nil
}

// MockLLMClient implements llm.Client for testing.
type MockLLMClient struct {
	CompleteWithSystemFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithSchemaFunc func(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)

	mu          sync.Mutex
	UserPrompts []string
	Calls       atomic.Int32
}

func (m *MockLLMClient) record(prompt string) {
	m.Calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UserPrompts = append(m.UserPrompts, prompt)
}

func (m *MockLLMClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.record(userPrompt)
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, systemPrompt, userPrompt)
	}
	return "mock response", nil
}

func (m *MockLLMClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	m.record(userPrompt)
	if m.CompleteWithSchemaFunc != nil {
		return m.CompleteWithSchemaFunc(ctx, systemPrompt, userPrompt, jsonSchema)
	}
	return `{"issues":[]}`, nil
}

func (m *MockLLMClient) Name() string { return "mock" }

// MockRetriever implements step.Retriever for testing.
type MockRetriever struct {
	SearchFunc func(ctx context.Context, query string, k int) ([]retrieval.Chunk, error)
}

func (m *MockRetriever) Search(ctx context.Context, query string, k int) ([]retrieval.Chunk, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, k)
	}
	return []retrieval.Chunk{{ID: "c1", Source: "civil_code.txt", Text: "Art. 1 Contracts bind the parties."}}, nil
}

// MockEmbeddingEngine embeds text as a letter histogram and counts calls.
type MockEmbeddingEngine struct {
	Calls atomic.Int32
}

func histogram(text string) []float32 {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec
}

func (m *MockEmbeddingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls.Add(1)
	return histogram(text), nil
}

func (m *MockEmbeddingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = histogram(t)
	}
	return out, nil
}

func (m *MockEmbeddingEngine) Dimensions() int { return 26 }
func (m *MockEmbeddingEngine) Name() string    { return "mock" }

// wordTokenizer splits on single spaces; it round-trips exactly.
type wordTokenizer struct {
	mu    sync.Mutex
	words []string
	ids   map[string]int
}

func (w *wordTokenizer) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ids == nil {
		w.ids = make(map[string]int)
	}
	parts := strings.SplitAfter(text, " ")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		id, ok := w.ids[p]
		if !ok {
			id = len(w.words)
			w.words = append(w.words, p)
			w.ids[p] = id
		}
		out = append(out, id)
	}
	return out
}

func (w *wordTokenizer) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(w.words[t])
	}
	return sb.String()
}
