package retrieval

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"
)

// MockEmbeddingEngine implements embedding.EmbeddingEngine for testing.
// The default embedding is a 26-dimensional letter histogram, which is
// deterministic and good enough to rank obviously related texts.
type MockEmbeddingEngine struct {
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Zero values report 26 dimensions and "mock-embedding-engine".
	// A negative Dims reports 0, like an engine that has not been called yet.
	Dims      int
	NameValue string

	EmbedCalls atomic.Int32
	BatchCalls atomic.Int32
	Texts      atomic.Int32
}

func letterHistogram(text string) []float32 {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' && unicode.IsLetter(r) {
			vec[r-'a']++
		}
	}
	return vec
}

func (m *MockEmbeddingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls.Add(1)
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return letterHistogram(text), nil
}

func (m *MockEmbeddingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.BatchCalls.Add(1)
	m.Texts.Add(int32(len(texts)))
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterHistogram(t)
	}
	return out, nil
}

func (m *MockEmbeddingEngine) Dimensions() int {
	switch {
	case m.Dims < 0:
		return 0
	case m.Dims > 0:
		return m.Dims
	}
	return 26
}

func (m *MockEmbeddingEngine) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock-embedding-engine"
}

// TotalCalls counts every call that reached the engine.
func (m *MockEmbeddingEngine) TotalCalls() int32 {
	return m.EmbedCalls.Load() + m.BatchCalls.Load()
}

// runeTokenizer treats every rune as one token. It round-trips exactly.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	runes := []rune(text)
	out := make([]int, len(runes))
	for i, r := range runes {
		out[i] = int(r)
	}
	return out
}

func (runeTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}
