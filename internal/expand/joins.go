package expand

import (
	"errors"
	"fmt"

	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
)

// ErrAliasCollision indicates two selected columns map to the same
// <table>_<column> alias.
var ErrAliasCollision = errors.New("column alias collision")

// column is one selected column and the row key it comes back under.
type column struct {
	Name  string
	Alias string
}

// plan is the query for one group and what is needed to map its rows back.
type plan struct {
	group  *group
	op     ops.Operation
	joined bool
	empty  bool // no source keys, nothing to fetch

	mainKey string              // joined: alias of the main primary key
	columns map[string][]column // per path, the related model's columns
	keys    map[string]string   // per path, the row key identifying the parent
}

// aliases hands out <table>_<column> aliases and rejects collisions.
type aliases map[string]string

func (a aliases) add(table, col string) (string, error) {
	alias := table + "_" + col
	source := table + "." + col
	if prev, ok := a[alias]; ok && prev != source {
		return "", fmt.Errorf("%w: '%s' and '%s' both alias to '%s'", ErrAliasCollision, prev, source, alias)
	}
	a[alias] = source
	return alias, nil
}

// selectColumns aliases the columns of model, making sure extra
// columns needed for keys are included.
func selectColumns(a aliases, model *schema.Model, extra ...string) ([]column, []string, error) {
	names := model.Columns()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range extra {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}

	cols := make([]column, 0, len(names))
	attrs := make([]string, 0, len(names))
	for _, n := range names {
		alias, err := a.add(model.Table, n)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, column{Name: n, Alias: alias})
		attrs = append(attrs, fmt.Sprintf("%s.%s AS %s", model.Table, n, alias))
	}
	return cols, attrs, nil
}

// childLocals returns the join columns that children of parent read from it.
func childLocals(g *group, parent string) []string {
	var out []string
	for _, p := range g.Paths {
		if p.Parent == parent {
			out = append(out, p.Local)
		}
	}
	return out
}

// generateJoinsForGroup builds the query for a group.
//
// A group with one path selects the related model directly, filtered by the
// join values of the records found at the path's parent. Larger groups re-select the main records by
// primary key with a LEFT JOIN per path, so records without related rows
// are kept.
func generateJoinsForGroup(main *schema.Model, g *group, records []map[string]any) (*plan, error) {
	p := &plan{
		group:   g,
		columns: make(map[string][]column),
		keys:    make(map[string]string),
	}
	a := make(aliases)

	if len(g.Paths) == 1 {
		ep := g.Paths[0]
		cols, attrs, err := selectColumns(a, ep.To, ep.To.PrimaryKey, ep.Related)
		if err != nil {
			return nil, err
		}
		p.columns[ep.Name] = cols
		p.keys[ep.Name] = ep.To.Table + "_" + ep.Related

		values := ops.Values(containers(records, ep.Parent), ep.Local)
		p.empty = len(values) == 0
		p.op = ops.Operation{
			Model:      ep.To.Name,
			Filters:    filter.NewAnd(filter.AnyOf(ep.To.Table+"."+ep.Related, values)),
			Attributes: attrs,
		}
		return p, nil
	}

	p.joined = true
	_, attrs, err := selectColumns(a, main, childLocals(g, "")...)
	if err != nil {
		return nil, err
	}
	p.mainKey = main.Table + "_" + main.PrimaryKey

	joins := ops.NewJoinSet(ops.LeftJoin, main.Table)
	for _, ep := range g.Paths {
		if err := joins.Add(ep.Name, ep.To.Table, ep.From.Table+"."+ep.Local, ep.To.Table+"."+ep.Related); err != nil {
			return nil, err
		}
		extra := append([]string{ep.To.PrimaryKey}, childLocals(g, ep.Name)...)
		cols, pathAttrs, err := selectColumns(a, ep.To, extra...)
		if err != nil {
			return nil, err
		}
		p.columns[ep.Name] = cols
		attrs = append(attrs, pathAttrs...)
		if ep.Parent == "" {
			p.keys[ep.Name] = p.mainKey
		} else {
			parent := ep.From
			p.keys[ep.Name] = parent.Table + "_" + parent.PrimaryKey
		}
	}

	ids := ops.Values(records, main.PrimaryKey)
	p.empty = len(ids) == 0
	p.op = ops.Operation{
		Model:      main.Name,
		Joins:      joins.Joins(),
		Filters:    filter.NewAnd(filter.AnyOf(main.Table+"."+main.PrimaryKey, ids)),
		Attributes: attrs,
	}
	return p, nil
}
