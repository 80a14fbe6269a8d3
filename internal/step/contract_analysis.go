package step

import (
	"context"
	"fmt"
	"time"

	"clausecheck/internal/llm"
	"clausecheck/internal/logging"
)

const contractAnalysisSystemPrompt = `You are an experienced contract lawyer.
Analyze the contract you are given and report, as plain text:
- the contract type
- the parties and their roles
- the key clauses
- deadlines and notice periods
- financial obligations
- termination terms
- risk areas
Be factual and quote the contract where it helps.`

// ContractAnalysisStep extracts the structure of the contract.
type ContractAnalysisStep struct {
	client llm.Client
}

// NewContractAnalysisStep creates the structural analysis step.
func NewContractAnalysisStep(client llm.Client) *ContractAnalysisStep {
	return &ContractAnalysisStep{client: client}
}

func (s *ContractAnalysisStep) Name() string { return "Contract Analysis" }

func (s *ContractAnalysisStep) Description() string {
	return "Extracts contract type, parties, clauses, deadlines, obligations, termination terms and risks"
}

// Run sends the contract text to the model. On success the analysis and the
// original contract are written to the context.
func (s *ContractAnalysisStep) Run(ctx context.Context, input string, c *Context) Result {
	started := time.Now()
	logging.StepDebug("%s: input_len=%d", s.Name(), len(input))

	analysis, err := s.client.CompleteWithSystem(ctx, contractAnalysisSystemPrompt, input)
	if err != nil {
		return fail(s.Name(), input, fmt.Sprintf("contract analysis failed: %v", err), started)
	}

	if err := c.SetText(KeyContractAnalysis, analysis); err != nil {
		return fail(s.Name(), input, err.Error(), started)
	}
	if err := c.SetText(KeyOriginalContract, input); err != nil {
		return fail(s.Name(), input, err.Error(), started)
	}

	logging.Step("%s completed in %v (analysis_len=%d)", s.Name(), time.Since(started), len(analysis))
	return Succeeded(s.Name(), input, analysis, "Contract analyzed")
}
