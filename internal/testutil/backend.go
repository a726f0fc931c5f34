package testutil

import (
	"context"
	"sync"

	"github.com/aidanlsb/linkq/internal/ops"
)

// Script returns a backend that answers each operation with the next canned
// row set, in order. Operations past the end of the script get no rows.
func Script(responses ...[]ops.Row) ops.Backend {
	var mu sync.Mutex
	next := 0
	return ops.BackendFunc(func(ctx context.Context, operations []ops.Operation) ([]ops.Result, error) {
		mu.Lock()
		defer mu.Unlock()
		results := make([]ops.Result, len(operations))
		for i := range operations {
			if next < len(responses) {
				results[i] = ops.Result{Rows: responses[next]}
			}
			next++
		}
		return results, nil
	})
}

// Respond returns a backend that computes rows per operation.
func Respond(fn func(op ops.Operation) []ops.Row) ops.Backend {
	return ops.BackendFunc(func(ctx context.Context, operations []ops.Operation) ([]ops.Result, error) {
		results := make([]ops.Result, len(operations))
		for i, op := range operations {
			results[i] = ops.Result{Rows: fn(op)}
		}
		return results, nil
	})
}

// Failing returns a backend whose every call fails with err.
func Failing(err error) ops.Backend {
	return ops.BackendFunc(func(ctx context.Context, operations []ops.Operation) ([]ops.Result, error) {
		return nil, err
	})
}
