// Package llm wraps the generative-language backends used by the reasoning steps.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Client defines the interface for language-model providers.
type Client interface {
	// CompleteWithSystem returns free text.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteWithSchema asks for JSON conforming to jsonSchema and returns the raw body.
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)

	// Name identifies the provider and model for logs.
	Name() string
}

// defaultSystemPrompt is used when a caller passes an empty system prompt.
const defaultSystemPrompt = "You are a careful legal analyst. Answer precisely and only from the material provided."

// Ground appends retrieved reference passages to a user prompt, the way a
// question-answer advisor would, and forbids citing anything outside them.
func Ground(userPrompt string, docs []string) string {
	var sb strings.Builder
	sb.WriteString(userPrompt)
	sb.WriteString("\n\nContext information is below, surrounded by ---------------------\n\n")
	sb.WriteString("---------------------\n")
	if len(docs) == 0 {
		sb.WriteString("(no reference material was retrieved)\n")
	}
	for i, d := range docs {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, strings.TrimSpace(d))
	}
	sb.WriteString("---------------------\n\n")
	sb.WriteString("Given the context and provided history information and not prior knowledge, reply to the user comment. ")
	sb.WriteString("Do not cite any provision that does not appear in the context above. ")
	sb.WriteString("If the answer is not in the context, say that no applicable provision was found.")
	return sb.String()
}
