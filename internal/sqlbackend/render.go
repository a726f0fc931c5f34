package sqlbackend

import (
	"fmt"

	"github.com/stephenafamo/bob"

	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
)

// expression is the chainable expression type of a bob dialect.
type expression[E any] interface {
	bob.Expression
	EQ(bob.Expression) E
	NE(bob.Expression) E
	GT(bob.Expression) E
	GTE(bob.Expression) E
	LT(bob.Expression) E
	LTE(bob.Expression) E
	Like(bob.Expression) E
	IsNull() E
	IsNotNull() E
	In(...bob.Expression) E
	NotIn(...bob.Expression) E
}

// renderer builds join conditions and WHERE clauses with one dialect's
// expression builders. The select mods stay per dialect.
type renderer[E expression[E]] struct {
	quote func(...string) E
	arg   func(...any) E
	raw   func(string, ...any) E
	and   func(...bob.Expression) E
	or    func(...bob.Expression) E
}

func (r renderer[E]) column(ref string) E {
	return r.quote(columnParts(ref)...)
}

// on renders the equality of a join.
func (r renderer[E]) on(j ops.Join) bob.Expression {
	return r.column(j.On[0]).EQ(r.column(j.On[2]))
}

func (r renderer[E]) node(n filter.Node) (bob.Expression, error) {
	switch v := n.(type) {
	case *filter.Condition:
		return r.condition(v)
	case *filter.Group:
		return r.group(v)
	case *filter.BatchedGroup:
		return r.group(&v.Group)
	case *filter.PrimitiveSet:
		return r.group(v.Group())
	default:
		return nil, fmt.Errorf("unsupported filter node %T", n)
	}
}

func (r renderer[E]) group(g *filter.Group) (bob.Expression, error) {
	exprs := make([]bob.Expression, 0, len(g.Conditions))
	for _, child := range g.Conditions {
		e, err := r.node(child)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if g.Operator.Base() == filter.Or {
		return r.or(exprs...), nil
	}
	return r.and(exprs...), nil
}

func (r renderer[E]) condition(c *filter.Condition) (bob.Expression, error) {
	col := r.column(c.Attribute)
	switch c.Operator {
	case filter.OpEquals:
		return col.EQ(r.arg(c.Value)), nil
	case filter.OpNotEquals:
		return col.NE(r.arg(c.Value)), nil
	case filter.OpGreaterThan:
		return col.GT(r.arg(c.Value)), nil
	case filter.OpGreaterThanOrEqual:
		return col.GTE(r.arg(c.Value)), nil
	case filter.OpLessThan:
		return col.LT(r.arg(c.Value)), nil
	case filter.OpLessThanOrEqual:
		return col.LTE(r.arg(c.Value)), nil
	case filter.OpLike:
		return col.Like(r.arg(c.Value)), nil
	case filter.OpIsNull:
		return col.IsNull(), nil
	case filter.OpIsNotNull:
		return col.IsNotNull(), nil
	case filter.OpIsAnyOf, filter.OpIsNoneOf:
		values, ok := filter.ListValues(c.Value)
		if !ok {
			return nil, fmt.Errorf("operator '%s' on attribute '%s' requires a list value", c.Operator, c.Attribute)
		}
		if len(values) == 0 {
			return r.raw(emptyListPredicate(c.Operator)), nil
		}
		args := make([]bob.Expression, len(values))
		for i, v := range values {
			args[i] = r.arg(v)
		}
		if c.Operator == filter.OpIsNoneOf {
			return col.NotIn(args...), nil
		}
		return col.In(args...), nil
	default:
		return nil, fmt.Errorf("unsupported operator '%s' on attribute '%s'", c.Operator, c.Attribute)
	}
}

// where renders the operation's filters, or nil when there are none.
func (r renderer[E]) where(op ops.Operation) (bob.Expression, error) {
	if op.Filters == nil || len(op.Filters.Conditions) == 0 {
		return nil, nil
	}
	return r.node(op.Filters)
}
