// Package engine runs a query end to end: relationship conditions are
// resolved, the main model is selected, and requested relationships are
// expanded onto the results.
package engine

import (
	"context"
	"log/slog"

	"github.com/aidanlsb/linkq/internal/expand"
	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/resolver"
	"github.com/aidanlsb/linkq/internal/schema"
)

// Request is one query.
type Request struct {
	Model   string        `json:"model"`
	Filters *filter.Group `json:"filters,omitempty"`
	Expand  []string      `json:"expand,omitempty"`
}

// Response is the result of a query.
type Response struct {
	Model    string           `json:"model"`
	Records  []map[string]any `json:"records"`
	Resolved *filter.Group    `json:"resolved,omitempty"`
}

// Engine wires a resolver and an expander to one backend.
type Engine struct {
	registry schema.Registry
	backend  ops.Backend
	resolver *resolver.Resolver
	expander *expand.Expander
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger passed to the resolver and expander.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine.
func New(registry schema.Registry, backend ops.Backend, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		backend:  backend,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = resolver.New(registry, backend, resolver.WithLogger(e.logger))
	e.expander = expand.New(registry, backend, expand.WithLogger(e.logger))
	return e
}

// Resolve validates f and resolves its relationship conditions.
func (e *Engine) Resolve(ctx context.Context, model string, f *filter.Group) (*filter.Group, error) {
	if _, err := e.registry.Model(model); err != nil {
		return nil, err
	}
	if err := filter.Validate(f); err != nil {
		return nil, err
	}
	return e.resolver.Resolve(ctx, model, f)
}

// Query resolves the request's filters, selects the matching records and
// expands the requested relationships onto them.
func (e *Engine) Query(ctx context.Context, req Request) (*Response, error) {
	model, err := e.registry.Model(req.Model)
	if err != nil {
		return nil, err
	}
	resolved, err := e.Resolve(ctx, req.Model, req.Filters)
	if err != nil {
		return nil, err
	}

	result, err := ops.NewCollection(e.backend, e.logger).Run(ctx, ops.Operation{
		Model:      model.Name,
		Filters:    resolved,
		Attributes: model.Columns(),
	})
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, len(result.Rows))
	copy(records, result.Rows)

	expanded, err := e.expander.Expand(ctx, &expand.Result{
		Model:   model.Name,
		Records: records,
		Expand:  req.Expand,
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query complete",
		slog.String("model", model.Name),
		slog.Int("records", len(expanded.Records)),
		slog.Int("expanded", len(req.Expand)),
	)
	return &Response{Model: model.Name, Records: expanded.Records, Resolved: resolved}, nil
}
