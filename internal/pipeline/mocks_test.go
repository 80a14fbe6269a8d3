package pipeline

import (
	"context"

	"clausecheck/internal/step"
)

// MockStep implements step.Step for testing.
type MockStep struct {
	NameValue string
	RunFunc   func(ctx context.Context, input string, c *step.Context) step.Result
	Final     bool

	Calls  int
	Inputs []string
}

func (m *MockStep) Name() string        { return m.NameValue }
func (m *MockStep) Description() string { return "mock step " + m.NameValue }

func (m *MockStep) Run(ctx context.Context, input string, c *step.Context) step.Result {
	m.Calls++
	m.Inputs = append(m.Inputs, input)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, input, c)
	}
	return step.Succeeded(m.NameValue, input, input, "ok")
}

// Terminal reports the configured terminal flag.
func (m *MockStep) Terminal() bool { return m.Final }

// textStep succeeds, writes out to key and returns out.
func textStep(name string, key step.Key, out string) *MockStep {
	return &MockStep{
		NameValue: name,
		RunFunc: func(ctx context.Context, input string, c *step.Context) step.Result {
			if err := c.SetText(key, out); err != nil {
				return step.Failed(name, input, "", err.Error())
			}
			return step.Succeeded(name, input, out, "ok")
		},
	}
}

// failingStep returns a failed result with message.
func failingStep(name, message string) *MockStep {
	return &MockStep{
		NameValue: name,
		RunFunc: func(ctx context.Context, input string, c *step.Context) step.Result {
			return step.Failed(name, input, "", message)
		},
	}
}
