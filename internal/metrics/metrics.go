// Package metrics instruments a backend with Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aidanlsb/linkq/internal/ops"
)

// Backend wraps another backend and records every call it forwards.
type Backend struct {
	next       ops.Backend
	operations *prometheus.CounterVec
	errors     prometheus.Counter
	duration   prometheus.Histogram
}

// Instrument wraps next and registers its collectors with reg. A collector
// already registered under the same name is reused, so wrapping several
// backends with one registry is safe.
func Instrument(next ops.Backend, reg prometheus.Registerer) (*Backend, error) {
	b := &Backend{
		next: next,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkq",
			Name:      "operations_total",
			Help:      "Operations executed by the backend, by model and type.",
		}, []string{"model", "type"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linkq",
			Name:      "backend_errors_total",
			Help:      "Backend calls that returned an error.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "linkq",
			Name:      "backend_duration_seconds",
			Help:      "Latency of backend calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		return b, nil
	}

	var err error
	if b.operations, err = register(reg, b.operations); err != nil {
		return nil, err
	}
	if b.errors, err = register(reg, b.errors); err != nil {
		return nil, err
	}
	if b.duration, err = register(reg, b.duration); err != nil {
		return nil, err
	}
	return b, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Execute implements ops.Backend.
func (b *Backend) Execute(ctx context.Context, operations []ops.Operation) ([]ops.Result, error) {
	start := time.Now()
	results, err := b.next.Execute(ctx, operations)
	b.duration.Observe(time.Since(start).Seconds())

	for _, op := range operations {
		typ := op.Type
		if typ == "" {
			typ = ops.Select
		}
		b.operations.WithLabelValues(op.Model, string(typ)).Inc()
	}
	if err != nil {
		b.errors.Inc()
	}
	return results, err
}
