package ops

import (
	"context"
	"sync"
)

// Recorder wraps a backend and keeps every operation it executes.
type Recorder struct {
	Backend Backend

	mu         sync.Mutex
	operations []Operation
	calls      int
}

// NewRecorder wraps backend.
func NewRecorder(backend Backend) *Recorder {
	return &Recorder{Backend: backend}
}

// Execute implements Backend.
func (r *Recorder) Execute(ctx context.Context, operations []Operation) ([]Result, error) {
	r.mu.Lock()
	r.operations = append(r.operations, operations...)
	r.calls++
	r.mu.Unlock()
	return r.Backend.Execute(ctx, operations)
}

// Operations returns a copy of the recorded operations.
func (r *Recorder) Operations() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Operation(nil), r.operations...)
}

// Calls returns how many times Execute was called.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Reset clears recorded state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = nil
	r.calls = 0
}
