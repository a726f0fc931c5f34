// Package expand eager-loads related records onto query results.
//
// Requested paths are split into groups that can each be fetched with one
// query without multiplying the main rows: to-one relationships share a
// group, while to-many relationships and nested paths are fetched on their
// own and merged back by key.
package expand

import (
	"context"
	"log/slog"
	"maps"

	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
)

// Result is a set of main-model records and the relationship paths to load
// onto them.
type Result struct {
	Model   string
	Records []map[string]any
	Expand  []string
}

// Expander loads related records through a backend.
type Expander struct {
	registry schema.Registry
	backend  ops.Backend
	logger   *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an expander over a model registry and a backend.
func New(registry schema.Registry, backend ops.Backend, opts ...Option) *Expander {
	e := &Expander{
		registry: registry,
		backend:  backend,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns a copy of in with every requested path written onto each
// record: a list for has_many, a record or nil otherwise. Ancestors of a
// nested path are loaded too. The input records are not modified.
//
// Without paths or records the input is returned unchanged.
func (e *Expander) Expand(ctx context.Context, in *Result) (*Result, error) {
	if in == nil || len(in.Records) == 0 || len(nonEmpty(in.Expand)) == 0 {
		return in, nil
	}
	main, err := e.registry.Model(in.Model)
	if err != nil {
		return nil, err
	}
	paths, err := collectPaths(e.registry, main, in.Expand)
	if err != nil {
		return nil, err
	}

	out := &Result{
		Model:   in.Model,
		Records: make([]map[string]any, len(in.Records)),
		Expand:  append([]string(nil), in.Expand...),
	}
	for i, rec := range in.Records {
		out.Records[i] = maps.Clone(rec)
		if out.Records[i] == nil {
			out.Records[i] = make(map[string]any)
		}
	}

	collection := ops.NewCollection(e.backend, e.logger)
	for _, g := range groupExpandPaths(paths) {
		p, err := generateJoinsForGroup(main, g, out.Records)
		if err != nil {
			return nil, err
		}
		rows, err := executeOperation(ctx, collection, p)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("expanded group",
			slog.String("model", main.Name),
			slog.String("group", g.ID),
			slog.Bool("joined", p.joined),
			slog.Int("rows", len(rows)),
		)
		mapAliasedResults(p, rows, out.Records)
	}
	return out, nil
}

// executeOperation runs the group's query. A group with no source keys
// matches nothing and is not sent to the backend.
func executeOperation(ctx context.Context, c *ops.Collection, p *plan) ([]ops.Row, error) {
	if p.empty {
		return nil, nil
	}
	result, err := c.Run(ctx, p.op)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}
