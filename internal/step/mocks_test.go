package step

import (
	"context"
	"sync"

	"clausecheck/internal/retrieval"
)

// MockLLMClient implements llm.Client for testing.
type MockLLMClient struct {
	CompleteWithSystemFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithSchemaFunc func(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)

	mu          sync.Mutex
	UserPrompts []string
}

func (m *MockLLMClient) record(prompt string) {
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

// MockRetriever implements Retriever for testing.
type MockRetriever struct {
	SearchFunc func(ctx context.Context, query string, k int) ([]retrieval.Chunk, error)

	Queries []string
}

func (m *MockRetriever) Search(ctx context.Context, query string, k int) ([]retrieval.Chunk, error) {
	m.Queries = append(m.Queries, query)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, k)
	}
	return []retrieval.Chunk{
		{ID: "c1", Source: "civil_code.json", Text: "Art. 1 Contracts bind the parties."},
	}, nil
}
