package pipeline

import (
	"sync"

	"clausecheck/internal/step"
)

// Recorder is an append-only log of step results for one run.
type Recorder struct {
	mu      sync.RWMutex
	results []step.Result
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a result.
func (r *Recorder) Record(res step.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns a copy of the recorded results in order.
func (r *Recorder) Results() []step.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]step.Result, len(r.results))
	copy(out, r.results)
	return out
}

// Len returns the number of recorded results.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}

// Failed returns the first failed result, if any.
func (r *Recorder) Failed() (step.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.results {
		if !res.Success {
			return res, true
		}
	}
	return step.Result{}, false
}
