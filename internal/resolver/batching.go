package resolver

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
)

// batch regroups the children of an and-group so that conditions sharing a
// relationship root resolve in one query.
//
// Main-model conditions stay where they are and are also copied into every
// batched group, which narrows each sub-query to rows the main filter can
// still match. A root with a single condition and no main-model conditions
// is left unbatched, as is a root whose join chains revisit a table.
// Primitive sets are flattened into the group first.
// Nested groups are untouched and resolve on their own.
func (c *call) batch(children []filter.Node) []filter.Node {
	flat := make([]filter.Node, 0, len(children))
	for _, child := range children {
		if ps, ok := child.(*filter.PrimitiveSet); ok {
			flat = append(flat, ps.Group().Conditions...)
			continue
		}
		flat = append(flat, child)
	}

	var mainConds []*filter.Condition
	byRoot := make(map[string][]*filter.Condition)
	for _, child := range flat {
		cond, ok := child.(*filter.Condition)
		if !ok {
			continue
		}
		if root := c.relationshipRoot(cond); root != "" {
			byRoot[root] = append(byRoot[root], cond)
		} else {
			mainConds = append(mainConds, cond)
		}
	}
	if len(byRoot) == 0 {
		return flat
	}

	out := make([]filter.Node, 0, len(flat))
	emitted := make(map[string]bool)
	for _, child := range flat {
		cond, ok := child.(*filter.Condition)
		if !ok {
			out = append(out, child)
			continue
		}
		root := c.relationshipRoot(cond)
		if root == "" {
			out = append(out, cond)
			continue
		}
		if emitted[root] {
			continue
		}
		emitted[root] = true

		conds := byRoot[root]
		if (len(conds) == 1 && len(mainConds) == 0) || !c.joinable(conds) {
			for _, rc := range conds {
				out = append(out, rc)
			}
			continue
		}
		bg := &filter.BatchedGroup{Group: filter.Group{Operator: filter.BatchedAnd}, SharedPath: root}
		for _, rc := range conds {
			bg.Conditions = append(bg.Conditions, filter.Clone(rc))
		}
		for _, mc := range mainConds {
			bg.Conditions = append(bg.Conditions, filter.Clone(mc))
		}
		out = append(out, bg)
	}
	return out
}

// joinable reports whether the join chains of conds fit in one join set.
// Joined tables are not aliased, so a root whose chains revisit a table,
// such as a self-referential relationship, is resolved condition by
// condition instead. Path errors are left for resolveBatched to report.
func (c *call) joinable(conds []*filter.Condition) bool {
	joins := ops.NewJoinSet(ops.InnerJoin, c.main.Table)
	for _, cond := range conds {
		hops, _, err := schema.ResolvePath(c.registry, c.main.Name, cond.Attribute)
		if err != nil {
			return true
		}
		if err := addHops(joins, hops); err != nil {
			return false
		}
	}
	return true
}

// relationshipRoot returns the first path segment of cond when it names a
// relationship of the main model.
func (c *call) relationshipRoot(cond *filter.Condition) string {
	root := filter.Root(cond.Attribute)
	if root == "" {
		return ""
	}
	if _, err := c.registry.Relationship(c.main.Name, root); err != nil {
		return ""
	}
	return root
}

// resolveBatched resolves every condition of a batched group in one query.
//
// With no shared path the query runs on the main model alone and the result
// is a primary key match. Otherwise the join chains of all conditions are
// built once, each condition is qualified with the table its attribute lives
// on, and the main model's join column for the shared root is projected.
func (c *call) resolveBatched(bg *filter.BatchedGroup) (filter.Node, error) {
	joins := ops.NewJoinSet(ops.InnerJoin, c.main.Table)

	conds := filter.Conditions(&bg.Group)
	chains := make([][]schema.Hop, 0, len(conds))
	for _, cond := range conds {
		hops, _, err := schema.ResolvePath(c.registry, c.main.Name, cond.Attribute)
		if err != nil {
			return nil, err
		}
		chains = append(chains, hops)
	}
	// Deepest chains first so shorter ones are already joined.
	order := make([][]schema.Hop, len(chains))
	copy(order, chains)
	sort.SliceStable(order, func(i, j int) bool { return len(order[i]) > len(order[j]) })
	for _, hops := range order {
		if err := addHops(joins, hops); err != nil {
			return nil, err
		}
	}

	qualified, err := c.qualifyGroup(&bg.Group)
	if err != nil {
		return nil, err
	}

	local := c.main.PrimaryKey
	if bg.SharedPath != "" {
		rel, err := c.registry.Relationship(c.main.Name, bg.SharedPath)
		if err != nil {
			return nil, err
		}
		if local, _, err = rel.JoinColumns(); err != nil {
			return nil, err
		}
	}
	key := qualify(c.main.Table, local)

	result, err := c.ops.Run(c.ctx, ops.Operation{
		Model:      c.main.Name,
		Joins:      joins.Joins(),
		Filters:    qualified,
		Attributes: []string{key},
	})
	if err != nil {
		return nil, err
	}
	ids := ops.Values(result.Rows, ops.ColumnKey(key))
	c.logger.Debug("resolved batched conditions",
		slog.String("shared_path", bg.SharedPath),
		slog.Int("conditions", len(conds)),
		slog.Int("joins", joins.Len()),
		slog.Int("matches", len(ids)),
	)
	return filter.AnyOf(local, ids), nil
}

// qualifyGroup rewrites every attribute of g to its table-qualified form.
func (c *call) qualifyGroup(g *filter.Group) (*filter.Group, error) {
	out := &filter.Group{Operator: g.Operator.Base(), Conditions: make([]filter.Node, 0, len(g.Conditions))}
	for _, child := range g.Conditions {
		var (
			q   filter.Node
			err error
		)
		switch v := child.(type) {
		case *filter.Condition:
			q, err = c.qualifyCondition(v)
		case *filter.Group:
			q, err = c.qualifyGroup(v)
		case *filter.PrimitiveSet:
			q, err = c.qualifyGroup(v.Group())
		case *filter.BatchedGroup:
			q, err = c.qualifyGroup(&v.Group)
		default:
			err = errors.New("unsupported filter node in batched group")
		}
		if err != nil {
			return nil, err
		}
		out.Conditions = append(out.Conditions, q)
	}
	return out, nil
}

func (c *call) qualifyCondition(cond *filter.Condition) (*filter.Condition, error) {
	hops, field, err := schema.ResolvePath(c.registry, c.main.Name, cond.Attribute)
	if err != nil {
		return nil, err
	}
	table := c.main.Table
	if len(hops) > 0 {
		table = hops[len(hops)-1].To.Table
	}
	out := filter.Clone(cond).(*filter.Condition)
	out.Attribute = qualify(table, field)
	return out, nil
}
