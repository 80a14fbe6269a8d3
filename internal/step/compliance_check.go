package step

import (
	"context"
	"fmt"
	"time"

	"clausecheck/internal/issue"
	"clausecheck/internal/llm"
	"clausecheck/internal/logging"
)

const complianceCheckSystemPrompt = `You are a compliance reviewer.
Compare the contract against the legal context you are given and list every
compliance issue. For each issue give the offending passage, a recommendation
and an importance of LOW, MEDIUM, HIGH or CRITICAL.
Only report issues supported by the legal context; omit anything it does not cover.`

// ComplianceCheckStep produces the structured issue list. It is terminal.
type ComplianceCheckStep struct {
	client llm.Client
}

// NewComplianceCheckStep creates the compliance step.
func NewComplianceCheckStep(client llm.Client) *ComplianceCheckStep {
	return &ComplianceCheckStep{client: client}
}

func (s *ComplianceCheckStep) Name() string { return "Compliance Check" }

func (s *ComplianceCheckStep) Description() string {
	return "Checks the contract against the retrieved legal context and lists compliance issues"
}

// Terminal marks this step as the producer of the run result.
func (s *ComplianceCheckStep) Terminal() bool { return true }

// Run asks for a schema-constrained issue list. The context is written only
// when the reply decodes completely.
func (s *ComplianceCheckStep) Run(ctx context.Context, input string, c *Context) Result {
	started := time.Now()
	contract := c.MustText(KeyOriginalContract)
	analysis := c.MustText(KeyContractAnalysis)
	legal := c.MustText(KeyLegalContext)

	prompt := fmt.Sprintf("CONTRACT:\n%s\n\nCONTRACT ANALYSIS:\n%s\n\nLEGAL CONTEXT:\n%s", contract, analysis, legal)

	raw, err := s.client.CompleteWithSchema(ctx, complianceCheckSystemPrompt, prompt, issue.JSONSchema)
	if err != nil {
		return fail(s.Name(), input, fmt.Sprintf("compliance check failed: %v", err), started)
	}

	// A null or missing result is ErrNoResult and fails the step; it is never
	// turned into an empty list.
	issues, err := issue.Decode(raw)
	if err != nil {
		return fail(s.Name(), input, fmt.Sprintf("compliance check failed: %v", err), started)
	}

	c.SetIssues(issues)

	logging.Step("%s completed in %v (%d issues)", s.Name(), time.Since(started), issues.Len())
	return Succeeded(s.Name(), input, issues.String(), fmt.Sprintf("Compliance check completed, %d issue(s) found", issues.Len()))
}
