// Package resolver rewrites filter conditions on relationship paths into
// conditions on the main model's own join keys.
//
// A condition such as locality.name = "Mumbai" on property is resolved by
// querying localities for the matching ids and replacing the condition with
// locality_id IS_ANY_OF [ids]. Conditions in an and-group that share a
// relationship root are resolved together in one query.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
)

// Resolver resolves relationship conditions through a backend.
type Resolver struct {
	registry schema.Registry
	backend  ops.Backend
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a resolver over a model registry and a backend.
func New(registry schema.Registry, backend ops.Backend, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		backend:  backend,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a copy of f in which every condition on a relationship
// path is replaced by an IS_ANY_OF condition on a column of model. The
// input tree is not modified. A nil filter resolves to nil.
//
// Sub-queries run one at a time; a backend error aborts the call.
func (r *Resolver) Resolve(ctx context.Context, model string, f *filter.Group) (*filter.Group, error) {
	if f == nil {
		return nil, nil
	}
	main, err := r.registry.Model(model)
	if err != nil {
		return nil, err
	}
	c := &call{
		ctx:      ctx,
		registry: r.registry,
		main:     main,
		ops:      ops.NewCollection(r.backend, r.logger),
		logger:   r.logger.With(slog.String("model", model)),
	}
	return c.resolveGroup(f)
}

// call holds the state of one Resolve call.
type call struct {
	ctx      context.Context
	registry schema.Registry
	main     *schema.Model
	ops      *ops.Collection
	logger   *slog.Logger
}

func (c *call) resolveNode(n filter.Node) (filter.Node, error) {
	switch v := n.(type) {
	case *filter.Condition:
		return c.resolveCondition(v)
	case *filter.Group:
		return c.resolveGroup(v)
	case *filter.PrimitiveSet:
		return c.resolveGroup(v.Group())
	case *filter.BatchedGroup:
		return c.resolveBatched(v)
	default:
		return nil, fmt.Errorf("unsupported filter node %T", n)
	}
}

func (c *call) resolveGroup(g *filter.Group) (*filter.Group, error) {
	children := g.Conditions
	if g.Operator.Base() == filter.And {
		children = c.batch(children)
	}
	out := &filter.Group{Operator: g.Operator.Base(), Conditions: make([]filter.Node, 0, len(children))}
	for _, child := range children {
		resolved, err := c.resolveNode(child)
		if err != nil {
			return nil, err
		}
		out.Conditions = append(out.Conditions, resolved)
	}
	return out, nil
}

// resolveCondition resolves a lone condition. Plain attributes, and dotted
// attributes whose first segment is not a relationship, are kept as is.
func (c *call) resolveCondition(cond *filter.Condition) (filter.Node, error) {
	if filter.Root(cond.Attribute) == "" {
		return filter.Clone(cond), nil
	}
	hops, field, err := schema.ResolvePath(c.registry, c.main.Name, cond.Attribute)
	if err != nil {
		return nil, err
	}
	switch len(hops) {
	case 0:
		return filter.Clone(cond), nil
	case 1:
		return c.resolveSingle(cond, hops[0], field)
	default:
		return c.resolveChain(cond, hops, field)
	}
}

// resolveSingle queries the related model directly, projecting the column
// that points back at the main model.
func (c *call) resolveSingle(cond *filter.Condition, hop schema.Hop, field string) (filter.Node, error) {
	result, err := c.ops.Run(c.ctx, ops.Operation{
		Model:      hop.To.Name,
		Filters:    filter.NewAnd(filter.Where(field, cond.Operator, cond.Value)),
		Attributes: []string{hop.Related},
	})
	if err != nil {
		return nil, err
	}
	ids := ops.Values(result.Rows, ops.ColumnKey(hop.Related))
	c.logger.Debug("resolved relationship condition",
		slog.String("attribute", cond.Attribute),
		slog.Int("matches", len(ids)),
	)
	return filter.AnyOf(hop.Local, ids), nil
}

// resolveChain joins from the main model through every hop and filters on
// the final model's column, in one query. A chain that reaches the same
// table twice is resolved a hop at a time instead.
func (c *call) resolveChain(cond *filter.Condition, hops []schema.Hop, field string) (filter.Node, error) {
	joins := ops.NewJoinSet(ops.InnerJoin, c.main.Table)
	if err := addHops(joins, hops); err != nil {
		if errors.Is(err, ops.ErrTableRevisited) {
			return c.resolveStepwise(cond, hops[0])
		}
		return nil, err
	}
	last := hops[len(hops)-1].To
	key := qualify(c.main.Table, hops[0].Local)
	result, err := c.ops.Run(c.ctx, ops.Operation{
		Model:      c.main.Name,
		Joins:      joins.Joins(),
		Filters:    filter.NewAnd(filter.Where(qualify(last.Table, field), cond.Operator, cond.Value)),
		Attributes: []string{key},
	})
	if err != nil {
		return nil, err
	}
	ids := ops.Values(result.Rows, ops.ColumnKey(key))
	c.logger.Debug("resolved relationship chain",
		slog.String("attribute", cond.Attribute),
		slog.Int("joins", joins.Len()),
		slog.Int("matches", len(ids)),
	)
	return filter.AnyOf(hops[0].Local, ids), nil
}

// resolveStepwise resolves the rest of the path against the first hop's
// model, then selects that model's join column with the result.
func (c *call) resolveStepwise(cond *filter.Condition, hop schema.Hop) (filter.Node, error) {
	_, rest, _ := strings.Cut(cond.Attribute, ".")
	sub := &call{
		ctx:      c.ctx,
		registry: c.registry,
		main:     hop.To,
		ops:      c.ops,
		logger:   c.logger,
	}
	inner, err := sub.resolveCondition(filter.Where(rest, cond.Operator, cond.Value))
	if err != nil {
		return nil, err
	}
	result, err := c.ops.Run(c.ctx, ops.Operation{
		Model:      hop.To.Name,
		Filters:    filter.NewAnd(inner),
		Attributes: []string{hop.Related},
	})
	if err != nil {
		return nil, err
	}
	ids := ops.Values(result.Rows, ops.ColumnKey(hop.Related))
	c.logger.Debug("resolved relationship chain stepwise",
		slog.String("attribute", cond.Attribute),
		slog.Int("matches", len(ids)),
	)
	return filter.AnyOf(hop.Local, ids), nil
}

// addHops joins each hop of a path, keyed by the path walked so far.
func addHops(joins *ops.JoinSet, hops []schema.Hop) error {
	path := ""
	for _, hop := range hops {
		if path == "" {
			path = hop.Relationship.Name
		} else {
			path += "." + hop.Relationship.Name
		}
		err := joins.Add(path, hop.To.Table, qualify(hop.From.Table, hop.Local), qualify(hop.To.Table, hop.Related))
		if err != nil {
			return err
		}
	}
	return nil
}

func qualify(table, column string) string {
	return table + "." + column
}
