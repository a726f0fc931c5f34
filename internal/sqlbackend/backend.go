// Package sqlbackend executes operation descriptors against a SQL database.
//
// Descriptors are rendered with bob for the sqlite and postgres dialects and
// run through database/sql.
package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/sqlutil"
)

// Dialect selects the SQL flavor operations are rendered in.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ErrUnsupportedDriver indicates a driver name Open does not know.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open opens a database for a driver name ("sqlite", "postgres" or "pgx")
// and returns the dialect to render for it.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	var (
		name    string
		dialect Dialect
	)
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		name, dialect = "sqlite", SQLite
	case "postgres", "postgresql", "pgx":
		name, dialect = "pgx", Postgres
	default:
		return nil, "", fmt.Errorf("%w: '%s'", ErrUnsupportedDriver, driver)
	}
	if dsn == "" {
		return nil, "", fmt.Errorf("no dsn configured for driver '%s'", driver)
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	return db, dialect, nil
}

// Backend runs operations on a database.
type Backend struct {
	db       *sql.DB
	registry schema.Registry
	dialect  Dialect
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for query debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a backend. The registry maps model names to tables.
func New(db *sql.DB, registry schema.Registry, dialect Dialect, opts ...Option) *Backend {
	b := &Backend{
		db:       db,
		registry: registry,
		dialect:  dialect,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute implements ops.Backend. Operations run one after another; the
// first failure aborts the batch.
func (b *Backend) Execute(ctx context.Context, operations []ops.Operation) ([]ops.Result, error) {
	results := make([]ops.Result, 0, len(operations))
	for _, op := range operations {
		rows, err := b.run(ctx, op)
		if err != nil {
			return nil, err
		}
		results = append(results, ops.Result{Rows: rows})
	}
	return results, nil
}

func (b *Backend) run(ctx context.Context, op ops.Operation) ([]ops.Row, error) {
	if op.Type != "" && op.Type != ops.Select {
		return nil, fmt.Errorf("unsupported operation type '%s'", op.Type)
	}
	query, args, err := b.Render(ctx, op)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query on '%s' failed: %w", op.Model, err)
	}
	out, err := sqlutil.ScanMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows for '%s': %w", op.Model, err)
	}
	b.logger.Debug("query",
		slog.String("id", op.ID),
		slog.String("sql", query),
		slog.Int("args", len(args)),
		slog.Int("rows", len(out)),
		slog.Duration("took", time.Since(start)),
	)
	return out, nil
}

// Render returns the SQL and arguments for an operation.
func (b *Backend) Render(ctx context.Context, op ops.Operation) (string, []any, error) {
	model, err := b.registry.Model(op.Model)
	if err != nil {
		return "", nil, err
	}
	for _, j := range op.Joins {
		if j.On[1] != "=" {
			return "", nil, fmt.Errorf("unsupported join operator '%s' on table '%s'", j.On[1], j.Table)
		}
	}
	attrs := op.Attributes
	if len(attrs) == 0 {
		for _, col := range model.Columns() {
			attrs = append(attrs, model.Table+"."+col)
		}
	}

	switch b.dialect {
	case SQLite, "":
		return renderSQLite(ctx, model, op, attrs)
	case Postgres:
		return renderPostgres(ctx, model, op, attrs)
	default:
		return "", nil, fmt.Errorf("unsupported dialect '%s'", b.dialect)
	}
}

// columnParts splits a possibly qualified column reference for quoting.
func columnParts(ref string) []string {
	return strings.Split(ref, ".")
}

// emptyListPredicate renders IS_ANY_OF [] as false and IS_NONE_OF [] as true.
func emptyListPredicate(op filter.Operator) string {
	if op == filter.OpIsNoneOf {
		return "1 = 1"
	}
	return "1 = 0"
}
