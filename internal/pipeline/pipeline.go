// Package pipeline runs the reasoning steps of a contract analysis in order,
// short-circuiting on the first failure.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clausecheck/internal/issue"
	"clausecheck/internal/logging"
	"clausecheck/internal/step"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline composes an ordered list of steps. A Pipeline is meant for one
// document at a time; build a new one per run for concurrent analyses.
type Pipeline struct {
	steps []step.Step
	runID string

	mu       sync.Mutex
	recorder *Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// WithSteps appends steps at construction.
func WithSteps(steps ...step.Step) Option {
	return func(p *Pipeline) { p.steps = append(p.steps, steps...) }
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		runID:    uuid.NewString(),
		recorder: NewRecorder(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step and returns the pipeline for chaining.
func (p *Pipeline) AddStep(s step.Step) *Pipeline {
	p.steps = append(p.steps, s)
	return p
}

// Steps returns the configured steps in order.
func (p *Pipeline) Steps() []step.Step {
	out := make([]step.Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// RunID identifies this pipeline in logs.
func (p *Pipeline) RunID() string { return p.runID }

// History returns the results of the most recent Execute.
func (p *Pipeline) History() []step.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recorder.Results()
}

// Execute feeds rawInput through the steps and returns the issues written by
// the terminal step. It never panics and never returns a nil collection: a
// run that stops early, or never reaches a terminal step, yields issue.Empty().
func (p *Pipeline) Execute(ctx context.Context, rawInput string) issue.Issues {
	store := step.NewContext()
	recorder := NewRecorder()
	p.mu.Lock()
	p.recorder = recorder
	p.mu.Unlock()

	log := logging.Get(logging.CategoryPipeline).With(zap.String("run_id", p.runID))
	timer := logging.StartTimer(logging.CategoryPipeline, "Execute")
	defer timer.Stop()

	// original_input is always a text key
	_ = store.SetText(step.KeyOriginalInput, rawInput)

	log.Info("run started: %d steps, input_len=%d", len(p.steps), len(rawInput))

	var result *issue.Issues
	currentInput := rawInput

	for i, s := range p.steps {
		started := time.Now()
		log.Debug("step %d/%d %q started", i+1, len(p.steps), s.Name())

		outcome := runStep(ctx, s, currentInput, store)
		recorder.Record(outcome)

		if !outcome.Success {
			log.Warn("step %q failed after %v: %s; skipping %d remaining step(s)",
				outcome.StepName, time.Since(started), outcome.Message, len(p.steps)-i-1)
			break
		}
		log.Info("step %q succeeded in %v: %s", outcome.StepName, time.Since(started), outcome.Message)

		if step.IsTerminal(s) {
			if issues, ok := store.Issues(); ok {
				result = &issues
			}
			continue
		}
		currentInput = outcome.Output
	}

	if result == nil {
		log.Info("run finished without a terminal result (%d step(s) recorded)", recorder.Len())
		return issue.Empty()
	}
	log.Info("run finished: %d issue(s)", result.Len())
	return result.Normalize()
}

// runStep invokes s and converts a panic into a failed result.
func runStep(ctx context.Context, s step.Step, input string, store *step.Context) (res step.Result) {
	name := s.Name()
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryPipeline).Error("step %q panicked: %v", name, r)
			res = step.Failed(name, input, "", fmt.Sprint(r))
		}
	}()
	return s.Run(ctx, input, store)
}
