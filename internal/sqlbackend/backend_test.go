package sqlbackend

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/testutil"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	tdb := testutil.NewTestDB(t).WithFixtures().Build()
	return New(tdb.DB, tdb.Schema, SQLite)
}

func run(t *testing.T, b *Backend, op ops.Operation) []ops.Row {
	t.Helper()
	results, err := b.Execute(context.Background(), []ops.Operation{op})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return results[0].Rows
}

func column(rows []ops.Row, key string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[key]
	}
	return out
}

func TestExecuteFilters(t *testing.T) {
	b := newBackend(t)

	tests := []struct {
		name   string
		filter *filter.Group
		want   []any
	}{
		{"eq", filter.NewAnd(filter.Where("name", filter.OpEquals, "Garden")), []any{int64(3)}},
		{"neq", filter.NewAnd(filter.Where("locality_id", filter.OpNotEquals, 1)), []any{int64(2), int64(3), int64(4)}},
		{"gt", filter.NewAnd(filter.Where("price", filter.OpGreaterThan, 300)), []any{int64(1), int64(4)}},
		{"gte", filter.NewAnd(filter.Where("price", filter.OpGreaterThanOrEqual, 300)), []any{int64(1), int64(2), int64(4)}},
		{"lt", filter.NewAnd(filter.Where("price", filter.OpLessThan, 200)), []any{int64(5)}},
		{"lte", filter.NewAnd(filter.Where("price", filter.OpLessThanOrEqual, 200)), []any{int64(3), int64(5)}},
		{"like", filter.NewAnd(filter.Where("name", filter.OpLike, "%View")), []any{int64(1)}},
		{"is_null", filter.NewAnd(filter.IsNull("owner_id")), []any{int64(5)}},
		{"is_not_null", filter.NewAnd(&filter.Condition{Attribute: "owner_id", Operator: filter.OpIsNotNull}), []any{int64(1), int64(2), int64(3), int64(4)}},
		{"is_any_of", filter.NewAnd(filter.AnyOf("id", []any{int64(2), int64(4)})), []any{int64(2), int64(4)}},
		{"is_any_of empty", filter.NewAnd(filter.AnyOf("id", nil)), []any{}},
		{"is_any_of strings", filter.NewAnd(filter.Where("name", filter.OpIsAnyOf, []string{"Garden", "Sea View"})), []any{int64(1), int64(3)}},
		{"is_none_of ints", filter.NewAnd(filter.Where("id", filter.OpIsNoneOf, []int{1, 2, 3})), []any{int64(4), int64(5)}},
		{"is_none_of", filter.NewAnd(filter.Where("id", filter.OpIsNoneOf, []any{1, 2, 3})), []any{int64(4), int64(5)}},
		{"is_none_of empty", filter.NewAnd(filter.Where("id", filter.OpIsNoneOf, []any{})), []any{int64(1), int64(2), int64(3), int64(4), int64(5)}},
		{"or", filter.NewOr(filter.Where("id", filter.OpEquals, 1), filter.Where("price", filter.OpLessThan, 200)), []any{int64(1), int64(5)}},
		{"nested", filter.NewAnd(
			filter.Where("locality_id", filter.OpEquals, 1),
			filter.NewOr(filter.IsNull("owner_id"), filter.Where("price", filter.OpGreaterThan, 400)),
		), []any{int64(1), int64(5)}},
		{"qualified", filter.NewAnd(filter.Where("properties.price", filter.OpEquals, 400)), []any{int64(4)}},
		{"no filter", nil, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := run(t, b, ops.Operation{Model: "property", Filters: tt.filter, Attributes: []string{"id"}})
			if got := column(rows, "id"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecuteDefaultColumns(t *testing.T) {
	b := newBackend(t)
	rows := run(t, b, ops.Operation{Model: "state", Filters: filter.NewAnd(filter.Where("id", filter.OpEquals, 2))})
	want := []ops.Row{{"id": int64(2), "name": "Karnataka"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %#v", rows)
	}
}

func TestExecuteJoinsAndAliases(t *testing.T) {
	b := newBackend(t)
	rows := run(t, b, ops.Operation{
		Model:   "user",
		Joins:   []ops.Join{ops.NewJoin(ops.LeftJoin, "posts", "users.id", "posts.user_id")},
		Filters: filter.NewAnd(filter.AnyOf("users.id", []any{1, 2})),
		Attributes: []string{
			"users.id AS users_id",
			"posts.id AS posts_id",
			"posts.title AS posts_title",
		},
	})

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (two posts and one left join miss), got %d: %v", len(rows), rows)
	}
	titles := map[any][]any{}
	for _, r := range rows {
		titles[r["users_id"]] = append(titles[r["users_id"]], r["posts_title"])
	}
	if len(titles[int64(1)]) != 2 {
		t.Errorf("user 1 titles = %v", titles[int64(1)])
	}
	if miss := titles[int64(2)]; len(miss) != 1 || miss[0] != nil {
		t.Errorf("user 2 should have one null row, got %v", miss)
	}
}

func TestExecuteInnerJoinChain(t *testing.T) {
	b := newBackend(t)
	rows := run(t, b, ops.Operation{
		Model: "property",
		Joins: []ops.Join{
			ops.NewJoin(ops.InnerJoin, "localities", "properties.locality_id", "localities.id"),
			ops.NewJoin(ops.InnerJoin, "cities", "localities.city_id", "cities.id"),
		},
		Filters:    filter.NewAnd(filter.Where("cities.name", filter.OpEquals, "Mumbai")),
		Attributes: []string{"properties.locality_id"},
	})
	if got := ops.Values(rows, "locality_id"); !reflect.DeepEqual(got, []any{int64(1), int64(2)}) {
		t.Errorf("locality ids = %v", got)
	}
}

func TestRender(t *testing.T) {
	b := newBackend(t)
	query, args, err := b.Render(context.Background(), ops.Operation{
		Model:      "property",
		Joins:      []ops.Join{ops.NewJoin(ops.InnerJoin, "localities", "properties.locality_id", "localities.id")},
		Filters:    filter.NewAnd(filter.Where("localities.name", filter.OpEquals, "Bandra")),
		Attributes: []string{"properties.id AS properties_id"},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, fragment := range []string{`"properties"`, `"localities"`, "JOIN", "properties_id"} {
		if !strings.Contains(query, fragment) {
			t.Errorf("expected %s in query:\n%s", fragment, query)
		}
	}
	if !reflect.DeepEqual(args, []any{"Bandra"}) {
		t.Errorf("args = %v", args)
	}

	pg := New(nil, b.registry, Postgres)
	query, _, err = pg.Render(context.Background(), ops.Operation{
		Model:   "property",
		Filters: filter.NewAnd(filter.Where("price", filter.OpGreaterThan, 100)),
	})
	if err != nil {
		t.Fatalf("postgres Render() error = %v", err)
	}
	if !strings.Contains(query, "$1") {
		t.Errorf("expected postgres placeholder in query:\n%s", query)
	}

	query, args, err = pg.Render(context.Background(), ops.Operation{
		Model:   "property",
		Filters: filter.NewAnd(filter.Where("name", filter.OpIsAnyOf, []string{"Garden", "Studio"})),
	})
	if err != nil {
		t.Fatalf("postgres Render() with a string list error = %v", err)
	}
	if !strings.Contains(query, "IN") || !reflect.DeepEqual(args, []any{"Garden", "Studio"}) {
		t.Errorf("query = %s, args = %v", query, args)
	}
}

func TestExecuteErrors(t *testing.T) {
	b := newBackend(t)

	if _, err := b.Execute(context.Background(), []ops.Operation{{Model: "ghost"}}); err == nil {
		t.Error("expected error for unknown model")
	}
	_, err := b.Execute(context.Background(), []ops.Operation{{
		Model:   "property",
		Filters: filter.NewAnd(filter.Where("missing_column", filter.OpEquals, 1)),
	}})
	if err == nil || !strings.Contains(err.Error(), "query on 'property' failed") {
		t.Errorf("expected query error, got %v", err)
	}
	_, err = b.Execute(context.Background(), []ops.Operation{{Model: "property", Type: "delete"}})
	if err == nil {
		t.Error("expected error for non-select operation")
	}
}

func TestOpen(t *testing.T) {
	db, dialect, err := Open("sqlite", filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	if dialect != SQLite {
		t.Errorf("dialect = %s", dialect)
	}

	if _, _, err := Open("mysql", "dsn"); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
	if _, _, err := Open("postgres", ""); err == nil {
		t.Error("expected error for empty dsn")
	}
}
