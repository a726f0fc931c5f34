// Package ops defines the structured operation descriptors the resolver and
// expander hand to a storage backend, and the per-call queue that runs them.
package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aidanlsb/linkq/internal/filter"
)

// Type is the kind of operation.
type Type string

const (
	Select Type = "select"
)

// JoinType is the SQL join flavor.
type JoinType string

const (
	InnerJoin JoinType = "inner"
	LeftJoin  JoinType = "left"
)

// Join attaches a table to an operation. On is {left column, "=", right column},
// both table-qualified.
type Join struct {
	Type  JoinType
	Table string
	On    [3]string
}

// NewJoin builds an equality join between two qualified columns.
func NewJoin(typ JoinType, table, left, right string) Join {
	return Join{Type: typ, Table: table, On: [3]string{left, "=", right}}
}

// Operation is one queued backend request.
type Operation struct {
	ID         string
	Type       Type
	Model      string
	Joins      []Join
	Filters    *filter.Group
	Attributes []string // "table.column AS alias", "table.column" or "column"
}

// Map renders the operation descriptor.
func (op Operation) Map() map[string]any {
	m := map[string]any{
		"type":      string(op.Type),
		"modelName": op.Model,
	}
	if op.ID != "" {
		m["id"] = op.ID
	}
	if len(op.Joins) > 0 {
		joins := make([]any, len(op.Joins))
		for i, j := range op.Joins {
			joins[i] = map[string]any{
				"type":  string(j.Type),
				"table": j.Table,
				"on":    []any{j.On[0], j.On[1], j.On[2]},
			}
		}
		m["joins"] = joins
	}
	if op.Filters != nil {
		m["filters"] = op.Filters.Map()
	}
	if len(op.Attributes) > 0 {
		attrs := make([]any, len(op.Attributes))
		for i, a := range op.Attributes {
			attrs[i] = a
		}
		m["attributes"] = attrs
	}
	return m
}

// Row is one result row keyed by column name or alias.
type Row = map[string]any

// Result holds the rows returned for one operation.
type Result struct {
	Rows []Row
}

// Backend executes operations in submission order and returns one result per
// operation.
type Backend interface {
	Execute(ctx context.Context, operations []Operation) ([]Result, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, operations []Operation) ([]Result, error)

// Execute implements Backend.
func (f BackendFunc) Execute(ctx context.Context, operations []Operation) ([]Result, error) {
	return f(ctx, operations)
}

// Collection is an ordered queue of operations scoped to one call.
type Collection struct {
	backend Backend
	logger  *slog.Logger
	queued  []Operation
}

// NewCollection creates an empty queue over backend.
func NewCollection(backend Backend, logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collection{backend: backend, logger: logger}
}

// Add queues an operation, assigning an id when it has none. It returns the id.
func (c *Collection) Add(op Operation) string {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Type == "" {
		op.Type = Select
	}
	c.queued = append(c.queued, op)
	return op.ID
}

// Len returns the number of queued operations.
func (c *Collection) Len() int {
	return len(c.queued)
}

// Execute runs every queued operation and clears the queue. Backend errors are
// returned unchanged apart from context.
func (c *Collection) Execute(ctx context.Context) ([]Result, error) {
	if len(c.queued) == 0 {
		return nil, nil
	}
	batch := c.queued
	c.queued = nil

	for _, op := range batch {
		c.logger.Debug("executing operation",
			slog.String("id", op.ID),
			slog.String("model", op.Model),
			slog.Int("joins", len(op.Joins)),
			slog.String("filters", op.Filters.String()),
		)
	}

	results, err := c.backend.Execute(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("operation on model '%s' failed: %w", batch[0].Model, err)
	}
	if len(results) != len(batch) {
		return nil, fmt.Errorf("backend returned %d results for %d operations", len(results), len(batch))
	}
	return results, nil
}

// Run queues a single operation, executes it, and returns its result.
func (c *Collection) Run(ctx context.Context, op Operation) (Result, error) {
	c.Add(op)
	results, err := c.Execute(ctx)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// ColumnKey returns the row key a backend reports for an attribute:
// the alias when one is given, otherwise the unqualified column name.
func ColumnKey(attr string) string {
	if _, alias, ok := cutAlias(attr); ok {
		return alias
	}
	if i := strings.LastIndex(attr, "."); i >= 0 {
		return attr[i+1:]
	}
	return attr
}

// SplitAttribute splits "table.column AS alias" into its parts. Missing
// parts are returned empty.
func SplitAttribute(attr string) (table, column, alias string) {
	expr, alias, _ := cutAlias(attr)
	if i := strings.LastIndex(expr, "."); i >= 0 {
		return expr[:i], expr[i+1:], alias
	}
	return "", expr, alias
}

func cutAlias(attr string) (expr, alias string, ok bool) {
	idx := strings.Index(strings.ToUpper(attr), " AS ")
	if idx < 0 {
		return strings.TrimSpace(attr), "", false
	}
	return strings.TrimSpace(attr[:idx]), strings.TrimSpace(attr[idx+4:]), true
}

// Values extracts the distinct non-nil values of key from rows, keeping
// first-seen order.
func Values(rows []Row, key string) []any {
	out := []any{}
	seen := make(map[string]bool)
	for _, row := range rows {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		k := Key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// Key normalizes a value for use as a map key, so 1 and int64(1) match.
// Keys compare printed forms: "1", []byte("1") and 1 share a key, which
// lets a join column read as text match an integer key.
func Key(v any) string {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
