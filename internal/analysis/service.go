// Package analysis runs contract files through the compliance pipeline.
package analysis

import (
	"context"
	"fmt"

	"clausecheck/internal/issue"
	"clausecheck/internal/llm"
	"clausecheck/internal/logging"
	"clausecheck/internal/pipeline"
	"clausecheck/internal/step"

	"go.uber.org/zap"
)

// Extractor converts an uploaded file to text.
type Extractor interface {
	Extract(filename string, data []byte) (string, error)
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID   string        `json:"run_id"`
	Issues  issue.Issues  `json:"issues"`
	History []step.Result `json:"history,omitempty"`
}

// Service wires the extractor and the reasoning steps. It is safe for
// concurrent use: every run gets its own pipeline.
type Service struct {
	extractor Extractor
	client    llm.Client
	retriever step.Retriever
	topK      int
}

// NewService creates a service. topK <= 0 takes the retrieval step's default.
func NewService(extractor Extractor, client llm.Client, retriever step.Retriever, topK int) *Service {
	return &Service{extractor: extractor, client: client, retriever: retriever, topK: topK}
}

// NewPipeline assembles the fixed three-step pipeline for one run.
func (s *Service) NewPipeline() *pipeline.Pipeline {
	return pipeline.New().
		AddStep(step.NewContractAnalysisStep(s.client)).
		AddStep(step.NewLawRetrievalStep(s.client, s.retriever, s.topK)).
		AddStep(step.NewComplianceCheckStep(s.client))
}

// AnalyzeFile extracts the text of an uploaded file and analyzes it.
// Only extraction errors are returned; step failures yield an empty report.
func (s *Service) AnalyzeFile(ctx context.Context, filename string, data []byte) (*Report, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("analysis service has no extractor")
	}
	text, err := s.extractor.Extract(filename, data)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeText(ctx, text), nil
}

// AnalyzeText runs already extracted contract text through a new pipeline.
func (s *Service) AnalyzeText(ctx context.Context, text string) *Report {
	p := s.NewPipeline()
	log := logging.Get(logging.CategoryPipeline).With(zap.String("run_id", p.RunID()))
	log.Info("Analyzing contract (%d chars)", len(text))

	issues := p.Execute(ctx, text)
	history := p.History()

	if len(history) > 0 && !history[len(history)-1].Success {
		last := history[len(history)-1]
		log.Warn("Run stopped at %s: %s", last.StepName, last.Message)
	} else {
		log.Info("Run finished with %d issue(s)", issues.Len())
	}

	return &Report{RunID: p.RunID(), Issues: issues, History: history}
}
