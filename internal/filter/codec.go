package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Parse builds a filter tree from its plain nested form and validates it.
//
// Three shapes are accepted:
//
//	{"op": "and", "conditions": [...]}           explicit group
//	[{"attribute": "name", "op": "eq", ...}]     bare list, implicit and
//	{"name": "Mumbai", "status": "active"}       flat map, implicit and of equality
//
// A null value in a flat map is a null check.
// A nil or empty input yields a nil tree (no filtering).
func Parse(raw any) (*Group, error) {
	g, err := parseRoot(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// ParseJSON decodes JSON and parses the result. Integral numbers become
// int64 so they compare cleanly against integer keys.
func ParseJSON(data []byte) (*Group, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid filter JSON: %v", err)}
	}
	return Parse(NormalizeJSON(raw))
}

// NormalizeJSON converts json.Number values produced by a UseNumber decoder
// into int64 or float64, recursively.
func NormalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeJSON(item)
		}
		return out
	default:
		return v
	}
}

func parseRoot(raw any) (*Group, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
		if isGroupMap(v) {
			return parseGroup(v, "")
		}
		if isConditionMap(v) {
			c, err := parseCondition(v, "")
			if err != nil {
				return nil, err
			}
			return NewAnd(c), nil
		}
		return parsePrimitiveSet(v).Group(), nil
	case []any, []map[string]any:
		children, err := parseList(v, "")
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, nil
		}
		return &Group{Operator: And, Conditions: children}, nil
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported filter shape %T", raw)}
	}
}

func isGroupMap(m map[string]any) bool {
	_, ok := m["conditions"]
	return ok
}

func isConditionMap(m map[string]any) bool {
	_, ok := m["attribute"]
	return ok
}

func parseNode(raw any, path string) (Node, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("expected an object, got %T", raw)}
	}
	switch {
	case isGroupMap(m):
		return parseGroup(m, path)
	case isConditionMap(m):
		return parseCondition(m, path)
	default:
		return parsePrimitiveSet(m), nil
	}
}

func parseList(raw any, path string) ([]Node, error) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []map[string]any:
		items = make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
	default:
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("conditions must be a list, got %T", raw)}
	}

	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		n, err := parseNode(item, childPath(path, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func parseGroup(m map[string]any, path string) (*Group, error) {
	op := And
	if rawOp, ok := m["op"]; ok && rawOp != nil {
		s, ok := rawOp.(string)
		if !ok {
			return nil, &ValidationError{Path: path, Message: fmt.Sprintf("group operator must be a string, got %T", rawOp)}
		}
		op = GroupOperator(strings.ToLower(s))
	}
	children, err := parseList(m["conditions"], path)
	if err != nil {
		return nil, err
	}
	return &Group{Operator: op, Conditions: children}, nil
}

func parseCondition(m map[string]any, path string) (*Condition, error) {
	attr, _ := m["attribute"].(string)
	if attr == "" {
		return nil, &ValidationError{Path: path, Message: "condition is missing an attribute"}
	}

	rawOp, ok := m["op"]
	if !ok {
		rawOp = m["operator"]
	}
	opStr, _ := rawOp.(string)
	if opStr == "" {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("condition on '%s' is missing an operator", attr)}
	}

	return &Condition{
		Attribute: attr,
		Operator:  Operator(strings.ToLower(opStr)),
		Value:     m["value"],
	}, nil
}

func parsePrimitiveSet(m map[string]any) *PrimitiveSet {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ps := &PrimitiveSet{Values: make(map[string]any, len(m))}
	for _, k := range keys {
		ps.Set(k, m[k])
	}
	return ps
}

// Map renders the tree in its canonical {op, conditions} form.
func (g *Group) Map() map[string]any {
	if g == nil {
		return nil
	}
	conditions := make([]any, 0, len(g.Conditions))
	for _, child := range g.Conditions {
		conditions = append(conditions, nodeMap(child))
	}
	return map[string]any{
		"op":         string(g.Operator.Base()),
		"conditions": conditions,
	}
}

// Map renders the condition as {attribute, op, value}.
// Value-less operators omit the value key.
func (c *Condition) Map() map[string]any {
	m := map[string]any{
		"attribute": c.Attribute,
		"op":        string(c.Operator),
	}
	if c.Operator.TakesValue() {
		m["value"] = c.Value
	}
	return m
}

func nodeMap(n Node) map[string]any {
	switch v := n.(type) {
	case *Condition:
		return v.Map()
	case *Group:
		return v.Map()
	case *BatchedGroup:
		return v.Group.Map()
	case *PrimitiveSet:
		return v.Group().Map()
	default:
		return nil
	}
}

// MarshalJSON emits the canonical form.
func (g *Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Map())
}

// String renders the tree as compact canonical JSON, for logs and errors.
func (g *Group) String() string {
	data, err := json.Marshal(g.Map())
	if err != nil {
		return fmt.Sprintf("<invalid filter: %v>", err)
	}
	return string(data)
}
