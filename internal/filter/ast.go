// Package filter implements the filter tree callers use to select records:
// conditions on (possibly dotted) attributes combined with and/or groups.
package filter

import (
	"reflect"
	"strings"
)

// Operator is a condition operator.
type Operator string

const (
	OpEquals             Operator = "eq"
	OpNotEquals          Operator = "neq"
	OpGreaterThan        Operator = "gt"
	OpGreaterThanOrEqual Operator = "gte"
	OpLessThan           Operator = "lt"
	OpLessThanOrEqual    Operator = "lte"
	OpLike               Operator = "like"
	OpIsAnyOf            Operator = "is_any_of"
	OpIsNoneOf           Operator = "is_none_of"
	OpIsNull             Operator = "is_null"
	OpIsNotNull          Operator = "is_not_null"
)

// Operators lists every allowed condition operator.
var Operators = []Operator{
	OpEquals, OpNotEquals,
	OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
	OpLike, OpIsAnyOf, OpIsNoneOf, OpIsNull, OpIsNotNull,
}

// Valid reports whether op is in the allowed set.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// TakesValue reports whether the operator requires a value.
func (op Operator) TakesValue() bool {
	return op != OpIsNull && op != OpIsNotNull
}

// TakesList reports whether the operator's value is a list.
func (op Operator) TakesList() bool {
	return op == OpIsAnyOf || op == OpIsNoneOf
}

// GroupOperator combines the children of a group.
type GroupOperator string

const (
	And GroupOperator = "and"
	Or  GroupOperator = "or"

	// Batched operators tag groups produced during relationship resolution.
	// They never appear in caller trees or resolved output.
	BatchedAnd GroupOperator = "batched_and"
	BatchedOr  GroupOperator = "batched_or"
)

// Base returns the caller-visible operator a batched operator stands for.
func (op GroupOperator) Base() GroupOperator {
	switch op {
	case BatchedAnd:
		return And
	case BatchedOr:
		return Or
	default:
		return op
	}
}

// Node is an element of a filter tree.
type Node interface {
	filterNode()
	clone() Node
}

// Condition compares one attribute against a value.
// A dotted attribute traverses relationships named by all but the last segment.
type Condition struct {
	Attribute string
	Operator  Operator
	Value     any
}

func (*Condition) filterNode() {}

// Group combines child nodes with and/or.
type Group struct {
	Operator   GroupOperator
	Conditions []Node
}

func (*Group) filterNode() {}

// PrimitiveSet is shorthand for an and-group of equality conditions.
type PrimitiveSet struct {
	Keys   []string // ordered
	Values map[string]any
}

func (*PrimitiveSet) filterNode() {}

// BatchedGroup is a group of conditions sharing a relationship root that
// resolves in a single query.
type BatchedGroup struct {
	Group
	SharedPath string
}

func (*BatchedGroup) filterNode() {}

// Where builds a condition.
func Where(attribute string, op Operator, value any) *Condition {
	return &Condition{Attribute: attribute, Operator: op, Value: value}
}

// IsNull builds a value-less null check.
func IsNull(attribute string) *Condition {
	return &Condition{Attribute: attribute, Operator: OpIsNull}
}

// AnyOf builds an is_any_of condition.
func AnyOf(attribute string, values []any) *Condition {
	if values == nil {
		values = []any{}
	}
	return &Condition{Attribute: attribute, Operator: OpIsAnyOf, Value: values}
}

// NewAnd builds an and-group.
func NewAnd(nodes ...Node) *Group {
	return &Group{Operator: And, Conditions: nodes}
}

// NewOr builds an or-group.
func NewOr(nodes ...Node) *Group {
	return &Group{Operator: Or, Conditions: nodes}
}

// Equals builds a primitive set from ordered key/value pairs.
func Equals(pairs ...any) *PrimitiveSet {
	ps := &PrimitiveSet{Values: make(map[string]any)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		ps.Set(key, pairs[i+1])
	}
	return ps
}

// Set adds or replaces a key, keeping first-insertion order.
func (ps *PrimitiveSet) Set(key string, value any) {
	if ps.Values == nil {
		ps.Values = make(map[string]any)
	}
	if _, exists := ps.Values[key]; !exists {
		ps.Keys = append(ps.Keys, key)
	}
	ps.Values[key] = value
}

// Group expands the set into its equivalent and-group. A nil value becomes
// a null check.
func (ps *PrimitiveSet) Group() *Group {
	g := &Group{Operator: And}
	for _, key := range ps.Keys {
		v := ps.Values[key]
		if v == nil {
			g.Conditions = append(g.Conditions, IsNull(key))
			continue
		}
		g.Conditions = append(g.Conditions, Where(key, OpEquals, v))
	}
	return g
}

// ListValues returns the elements of a slice or array value of any element
// type, so []string and []int64 read the same as []any.
func ListValues(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// SplitPath splits a dotted attribute into its relationship segments and the
// trailing attribute name.
func SplitPath(attribute string) (relationships []string, field string) {
	parts := strings.Split(attribute, ".")
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// Root returns the first segment of a dotted attribute, or "" for a plain one.
func Root(attribute string) string {
	root, _, found := strings.Cut(attribute, ".")
	if !found {
		return ""
	}
	return root
}

// Clone returns a deep copy of a node. Values are copied shallowly except
// for []any lists.
func Clone(n Node) Node {
	if n == nil {
		return nil
	}
	return n.clone()
}

func (c *Condition) clone() Node {
	out := *c
	if list, ok := c.Value.([]any); ok {
		out.Value = append([]any{}, list...)
	}
	return &out
}

func (g *Group) clone() Node {
	return g.cloneGroup()
}

func (g *Group) cloneGroup() *Group {
	out := &Group{Operator: g.Operator, Conditions: make([]Node, len(g.Conditions))}
	for i, child := range g.Conditions {
		out.Conditions[i] = Clone(child)
	}
	return out
}

func (ps *PrimitiveSet) clone() Node {
	out := &PrimitiveSet{Keys: append([]string(nil), ps.Keys...), Values: make(map[string]any, len(ps.Values))}
	for k, v := range ps.Values {
		out.Values[k] = v
	}
	return out
}

func (b *BatchedGroup) clone() Node {
	return &BatchedGroup{Group: *b.Group.cloneGroup(), SharedPath: b.SharedPath}
}

// Conditions returns every condition in the tree in depth-first order.
// Primitive sets contribute their equality conditions.
func Conditions(n Node) []*Condition {
	var out []*Condition
	Walk(n, func(node Node) {
		switch v := node.(type) {
		case *Condition:
			out = append(out, v)
		case *PrimitiveSet:
			for _, c := range v.Group().Conditions {
				out = append(out, c.(*Condition))
			}
		}
	})
	return out
}

// Walk calls fn for n and every descendant, parents first.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch v := n.(type) {
	case *Group:
		for _, child := range v.Conditions {
			Walk(child, fn)
		}
	case *BatchedGroup:
		for _, child := range v.Conditions {
			Walk(child, fn)
		}
	}
}
