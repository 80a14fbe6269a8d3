// Package step defines the reasoning steps of a contract analysis run and
// the typed context they share.
package step

import (
	"context"
	"time"

	"clausecheck/internal/logging"
)

// Step is one unit of the reasoning pipeline.
type Step interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string, c *Context) Result
}

// Terminal is implemented by the step whose success ends the run with a result.
type Terminal interface {
	Terminal() bool
}

// IsTerminal reports whether s declares itself terminal.
func IsTerminal(s Step) bool {
	t, ok := s.(Terminal)
	return ok && t.Terminal()
}

// fail logs and builds a failed result.
func fail(name, input, message string, started time.Time) Result {
	logging.Get(logging.CategoryStep).Warn("%s failed after %v: %s", name, time.Since(started), message)
	return Failed(name, input, "", message)
}
