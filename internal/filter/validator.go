package filter

import (
	"fmt"
	"strings"
)

// ValidationError represents a malformed filter tree.
type ValidationError struct {
	Path       string // location in the tree, e.g. conditions[1].conditions[0]
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	if e.Suggestion != "" {
		return fmt.Sprintf("%s. %s", msg, e.Suggestion)
	}
	return msg
}

// Validate checks a caller-supplied filter tree. The whole tree is rejected
// on the first problem found.
func Validate(g *Group) error {
	if g == nil {
		return nil
	}
	return validateNode(g, "")
}

func validateNode(n Node, path string) error {
	switch v := n.(type) {
	case *Condition:
		return validateCondition(v, path)
	case *Group:
		return validateGroup(v, path)
	case *PrimitiveSet:
		if len(v.Keys) == 0 {
			return &ValidationError{Path: path, Message: "empty attribute set"}
		}
		for _, key := range v.Keys {
			if err := validateAttribute(key, path); err != nil {
				return err
			}
		}
		return nil
	case *BatchedGroup:
		return &ValidationError{
			Path:       path,
			Message:    fmt.Sprintf("unsupported group operator '%s'", v.Operator),
			Suggestion: "Use 'and' or 'or'",
		}
	case nil:
		return &ValidationError{Path: path, Message: "empty filter node"}
	default:
		return &ValidationError{Path: path, Message: fmt.Sprintf("unsupported filter node %T", n)}
	}
}

func validateGroup(g *Group, path string) error {
	if g.Operator != And && g.Operator != Or {
		return &ValidationError{
			Path:       path,
			Message:    fmt.Sprintf("unsupported group operator '%s'", g.Operator),
			Suggestion: "Use 'and' or 'or'",
		}
	}
	if len(g.Conditions) == 0 {
		return &ValidationError{Path: path, Message: fmt.Sprintf("'%s' group has no conditions", g.Operator)}
	}
	for i, child := range g.Conditions {
		if err := validateNode(child, childPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(c *Condition, path string) error {
	if c.Attribute == "" {
		return &ValidationError{Path: path, Message: "condition is missing an attribute"}
	}
	if err := validateAttribute(c.Attribute, path); err != nil {
		return err
	}
	if c.Operator == "" {
		return &ValidationError{Path: path, Message: fmt.Sprintf("condition on '%s' is missing an operator", c.Attribute)}
	}
	if !c.Operator.Valid() {
		return &ValidationError{
			Path:       path,
			Message:    fmt.Sprintf("unknown operator '%s' on attribute '%s'", c.Operator, c.Attribute),
			Suggestion: "Allowed operators: " + operatorList(),
		}
	}
	if !c.Operator.TakesValue() {
		if c.Value != nil {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("operator '%s' on attribute '%s' does not take a value", c.Operator, c.Attribute),
			}
		}
		return nil
	}
	if c.Value == nil {
		return &ValidationError{
			Path:       path,
			Message:    fmt.Sprintf("operator '%s' on attribute '%s' requires a value", c.Operator, c.Attribute),
			Suggestion: fmt.Sprintf("Use '%s' to match missing values", OpIsNull),
		}
	}
	if c.Operator.TakesList() && !isList(c.Value) {
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("operator '%s' on attribute '%s' requires a list value", c.Operator, c.Attribute),
		}
	}
	return nil
}

func validateAttribute(attr, path string) error {
	if attr == "" {
		return &ValidationError{Path: path, Message: "condition is missing an attribute"}
	}
	for _, segment := range strings.Split(attr, ".") {
		if segment == "" {
			return &ValidationError{
				Path:       path,
				Message:    fmt.Sprintf("invalid attribute path '%s'", attr),
				Suggestion: "Separate relationship names with single dots, e.g. locality.city.name",
			}
		}
	}
	return nil
}

func isList(v any) bool {
	_, ok := ListValues(v)
	return ok
}

func childPath(parent string, i int) string {
	if parent == "" {
		return fmt.Sprintf("conditions[%d]", i)
	}
	return fmt.Sprintf("%s.conditions[%d]", parent, i)
}

func operatorList() string {
	names := make([]string, len(Operators))
	for i, op := range Operators {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}
