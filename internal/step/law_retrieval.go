package step

import (
	"context"
	"fmt"
	"time"

	"clausecheck/internal/llm"
	"clausecheck/internal/logging"
	"clausecheck/internal/retrieval"
)

const lawRetrievalSystemPrompt = `You are a legal research assistant.
Using only the reference provisions supplied as context, state which provisions
apply to the contract analysis and explain why each one applies.`

// Retriever returns the reference chunks most similar to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Chunk, error)
}

// LawRetrievalStep finds the reference provisions relevant to the analysis.
type LawRetrievalStep struct {
	client    llm.Client
	retriever Retriever
	topK      int
}

// NewLawRetrievalStep creates the retrieval-augmented step. topK <= 0 uses 4.
func NewLawRetrievalStep(client llm.Client, retriever Retriever, topK int) *LawRetrievalStep {
	if topK <= 0 {
		topK = 4
	}
	return &LawRetrievalStep{client: client, retriever: retriever, topK: topK}
}

func (s *LawRetrievalStep) Name() string { return "Law Retrieval" }

func (s *LawRetrievalStep) Description() string {
	return "Retrieves the reference provisions that apply to the contract analysis"
}

// Run reads the contract analysis, retrieves the closest reference chunks and
// asks the model which of them apply.
func (s *LawRetrievalStep) Run(ctx context.Context, input string, c *Context) Result {
	started := time.Now()
	analysis := c.MustText(KeyContractAnalysis)

	chunks, err := s.retriever.Search(ctx, analysis, s.topK)
	if err != nil {
		return fail(s.Name(), input, fmt.Sprintf("law retrieval failed: %v", err), started)
	}

	docs := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	for i, ch := range chunks {
		docs[i] = ch.Text
		sources[i] = ch.Source
	}
	logging.StepDebug("%s: retrieved %d chunks from %v", s.Name(), len(chunks), sources)

	prompt := llm.Ground(
		"Which of the reference provisions apply to the following contract analysis, and why?\n\n"+analysis,
		docs,
	)
	answer, err := s.client.CompleteWithSystem(ctx, lawRetrievalSystemPrompt, prompt)
	if err != nil {
		return fail(s.Name(), input, fmt.Sprintf("law retrieval failed: %v", err), started)
	}

	if err := c.SetText(KeyLegalContext, answer); err != nil {
		return fail(s.Name(), input, err.Error(), started)
	}

	logging.Step("%s completed in %v (%d chunks)", s.Name(), time.Since(started), len(chunks))
	return Succeeded(s.Name(), input, answer, fmt.Sprintf("Relevant laws retrieved (%d reference chunks)", len(chunks)))
}
