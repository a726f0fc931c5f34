package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/sqlbackend"
	"github.com/aidanlsb/linkq/internal/testutil"
)

func newEngine(t *testing.T) (*Engine, *ops.Recorder) {
	t.Helper()
	tdb := testutil.NewTestDB(t).WithFixtures().Build()
	rec := ops.NewRecorder(sqlbackend.New(tdb.DB, tdb.Schema, sqlbackend.SQLite))
	return New(tdb.Schema, rec), rec
}

func query(t *testing.T, e *Engine, req Request) *Response {
	t.Helper()
	resp, err := e.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	return resp
}

func ids(records []map[string]any) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r["id"]
	}
	return out
}

func TestQueryResolvesRelationships(t *testing.T) {
	e, _ := newEngine(t)

	tests := []struct {
		name    string
		model   string
		filters *filter.Group
		want    []any
	}{
		{
			name:    "belongs_to",
			model:   "property",
			filters: filter.NewAnd(filter.Where("locality.name", filter.OpEquals, "Bandra")),
			want:    []any{int64(1), int64(5)},
		},
		{
			name:    "chained",
			model:   "property",
			filters: filter.NewAnd(filter.Where("locality.city.name", filter.OpEquals, "Mumbai")),
			want:    []any{int64(1), int64(2), int64(5)},
		},
		{
			name:    "three hops",
			model:   "property",
			filters: filter.NewAnd(filter.Where("locality.city.state.name", filter.OpEquals, "Karnataka")),
			want:    []any{int64(4)},
		},
		{
			name:  "batched with main condition",
			model: "property",
			filters: filter.NewAnd(
				filter.Where("locality.city.name", filter.OpEquals, "Mumbai"),
				filter.Where("price", filter.OpGreaterThan, 200),
			),
			want: []any{int64(1), int64(2)},
		},
		{
			name:    "has_many",
			model:   "user",
			filters: filter.NewAnd(filter.Where("posts.status", filter.OpEquals, "published")),
			want:    []any{int64(1), int64(3)},
		},
		{
			name:  "or across relationships",
			model: "property",
			filters: filter.NewOr(
				filter.Where("owner.name", filter.OpEquals, "Meera"),
				filter.Where("locality.name", filter.OpEquals, "Kothrud"),
			),
			want: []any{int64(3), int64(4)},
		},
		{
			name:    "no matches",
			model:   "property",
			filters: filter.NewAnd(filter.Where("locality.name", filter.OpEquals, "Nowhere")),
			want:    []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := query(t, e, Request{Model: tt.model, Filters: tt.filters})
			if got := ids(resp.Records); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBatchedAndDirectResolutionAgree(t *testing.T) {
	e, rec := newEngine(t)
	ctx := context.Background()

	direct, err := e.Resolve(ctx, "property", filter.NewAnd(filter.Where("locality.name", filter.OpEquals, "Bandra")))
	if err != nil {
		t.Fatal(err)
	}
	rec.Reset()
	batched, err := e.Resolve(ctx, "property", filter.NewAnd(
		filter.Where("locality.name", filter.OpEquals, "Bandra"),
		filter.Where("price", filter.OpGreaterThan, 100),
	))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Calls() != 1 {
		t.Errorf("batched resolution should take one call, got %d", rec.Calls())
	}

	directIDs := direct.Conditions[0].(*filter.Condition).Value
	batchedIDs := batched.Conditions[0].(*filter.Condition).Value
	if !reflect.DeepEqual(directIDs, batchedIDs) {
		t.Errorf("direct ids %v != batched ids %v", directIDs, batchedIDs)
	}
}

func TestQueryExpandsHasMany(t *testing.T) {
	e, _ := newEngine(t)

	resp := query(t, e, Request{Model: "user", Expand: []string{"posts"}})

	titles := func(rec map[string]any) []any {
		var out []any
		for _, p := range rec["posts"].([]map[string]any) {
			out = append(out, p["title"])
		}
		return out
	}
	if got := titles(resp.Records[0]); !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("user 1 posts = %v", got)
	}
	if got := resp.Records[1]["posts"]; !reflect.DeepEqual(got, []map[string]any{}) {
		t.Errorf("user 2 posts = %#v", got)
	}
	if got := titles(resp.Records[2]); !reflect.DeepEqual(got, []any{"c"}) {
		t.Errorf("user 3 posts = %v", got)
	}
}

func TestQueryExpandsNestedAndToOne(t *testing.T) {
	e, rec := newEngine(t)

	resp := query(t, e, Request{
		Model:   "user",
		Filters: filter.NewAnd(filter.AnyOf("id", []any{1, 2})),
		Expand:  []string{"posts.comments", "profile", "company"},
	})

	// main select, one joined query for profile and company, one for posts.comments
	if rec.Calls() != 3 {
		t.Errorf("expected 3 backend calls, got %d", rec.Calls())
	}

	asha := resp.Records[0]
	if asha["company"].(map[string]any)["name"] != "Acme" {
		t.Errorf("company = %#v", asha["company"])
	}
	if asha["profile"].(map[string]any)["bio"] != "writer" {
		t.Errorf("profile = %#v", asha["profile"])
	}
	posts := asha["posts"].([]map[string]any)
	if len(posts) != 2 {
		t.Fatalf("posts = %#v", posts)
	}
	comments := make(map[any]int)
	for _, p := range posts {
		comments[p["title"]] = len(p["comments"].([]map[string]any))
	}
	if !reflect.DeepEqual(comments, map[any]int{"a": 2, "b": 0}) {
		t.Errorf("comments per post = %v", comments)
	}

	ravi := resp.Records[1]
	if ravi["profile"] != nil {
		t.Errorf("user without profile should get nil, got %#v", ravi["profile"])
	}
	if ravi["company"].(map[string]any)["name"] != "Globex" {
		t.Errorf("company = %#v", ravi["company"])
	}
}

func TestQueryExpandsChainedBelongsTo(t *testing.T) {
	e, _ := newEngine(t)

	resp := query(t, e, Request{
		Model:   "property",
		Filters: filter.NewAnd(filter.Where("id", filter.OpEquals, 4)),
		Expand:  []string{"locality.city.state"},
	})

	if len(resp.Records) != 1 {
		t.Fatalf("records = %v", resp.Records)
	}
	locality := resp.Records[0]["locality"].(map[string]any)
	city := locality["city"].(map[string]any)
	state := city["state"].(map[string]any)
	if locality["name"] != "Indiranagar" || city["name"] != "Bengaluru" || state["name"] != "Karnataka" {
		t.Errorf("unexpected chain: %v / %v / %v", locality["name"], city["name"], state["name"])
	}
}

func TestQueryRejectsInvalidFilters(t *testing.T) {
	e, rec := newEngine(t)

	_, err := e.Query(context.Background(), Request{
		Model:   "property",
		Filters: filter.NewAnd(filter.Where("price", "between", 1)),
	})
	var ve *filter.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if rec.Calls() != 0 {
		t.Errorf("invalid filters should not reach the backend")
	}
}

func TestErrorCode(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Query(ctx, Request{Model: "unicorn"})
	if code, _ := ErrorCode(err); code != CodeModelNotFound {
		t.Errorf("unknown model code = %s (%v)", code, err)
	}
	_, err = e.Query(ctx, Request{Model: "user", Expand: []string{"friends"}})
	if code, _ := ErrorCode(err); code != CodeRelationshipNotFound {
		t.Errorf("unknown relationship code = %s (%v)", code, err)
	}
	_, err = e.Query(ctx, Request{Model: "user", Filters: filter.NewAnd(filter.Where("name", "contains", "a"))})
	if code, suggestion := ErrorCode(err); code != CodeQueryInvalid || suggestion == "" {
		t.Errorf("invalid filter code = %s, suggestion = %q", code, suggestion)
	}
	if code, _ := ErrorCode(errors.New("boom")); code != CodeInternal {
		t.Errorf("generic error code = %s", code)
	}
}

func newRepeatedTablesEngine(t *testing.T) *Engine {
	t.Helper()
	tdb := testutil.NewTestDB(t).WithModels(`models:
  employee:
    table: employees
    attributes: [id, name, active, manager_id]
    relationships:
      manager:
        type: belongs_to
        model: employee
        foreign_key: manager_id
  order:
    table: orders
    attributes: [id, billing_id, shipping_id]
    relationships:
      billing:
        type: belongs_to
        model: address
        foreign_key: billing_id
      shipping:
        type: belongs_to
        model: address
        foreign_key: shipping_id
  address:
    table: addresses
    attributes: [id, city]
`).WithSQL(
		`CREATE TABLE employees (id INTEGER PRIMARY KEY, name TEXT, active INTEGER, manager_id INTEGER)`,
		`INSERT INTO employees VALUES (1, 'Ann', 1, NULL), (2, 'Raj', 1, 1), (3, 'Li', 0, 1), (4, 'Sam', 1, 2)`,
		`CREATE TABLE addresses (id INTEGER PRIMARY KEY, city TEXT)`,
		`INSERT INTO addresses VALUES (10, 'Pune'), (11, 'Goa')`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, billing_id INTEGER, shipping_id INTEGER)`,
		`INSERT INTO orders VALUES (1, 10, 11), (2, 11, 11)`,
	).Build()
	return New(tdb.Schema, sqlbackend.New(tdb.DB, tdb.Schema, sqlbackend.SQLite))
}

func TestQuerySelfReferentialFilters(t *testing.T) {
	e := newRepeatedTablesEngine(t)
	managedByAnn := func() *filter.Condition { return filter.Where("manager.name", filter.OpEquals, "Ann") }

	alone := query(t, e, Request{Model: "employee", Filters: filter.NewAnd(managedByAnn())})
	active := query(t, e, Request{Model: "employee", Filters: filter.NewAnd(
		managedByAnn(),
		filter.Where("active", filter.OpEquals, 1),
	)})

	if got := ids(alone.Records); !reflect.DeepEqual(got, []any{int64(2), int64(3)}) {
		t.Errorf("managed by Ann = %v", got)
	}
	if got := ids(active.Records); !reflect.DeepEqual(got, []any{int64(2)}) {
		t.Errorf("active and managed by Ann = %v", got)
	}
	a, b := alone.Resolved.Conditions[0], active.Resolved.Conditions[0]
	if !reflect.DeepEqual(a.(*filter.Condition).Map(), b.(*filter.Condition).Map()) {
		t.Errorf("resolved conditions differ: %s vs %s", alone.Resolved, active.Resolved)
	}

	chain := query(t, e, Request{Model: "employee", Filters: filter.NewAnd(
		filter.Where("manager.manager.name", filter.OpEquals, "Ann"),
	)})
	if got := ids(chain.Records); !reflect.DeepEqual(got, []any{int64(4)}) {
		t.Errorf("two levels below Ann = %v", got)
	}
}

func TestQueryExpandsRepeatedTables(t *testing.T) {
	e := newRepeatedTablesEngine(t)

	orders := query(t, e, Request{Model: "order", Expand: []string{"billing", "shipping"}})
	if len(orders.Records) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders.Records))
	}
	first := orders.Records[0]
	if first["billing"].(map[string]any)["city"] != "Pune" || first["shipping"].(map[string]any)["city"] != "Goa" {
		t.Errorf("order 1 = %#v", first)
	}
	if orders.Records[1]["billing"].(map[string]any)["city"] != "Goa" {
		t.Errorf("order 2 billing = %#v", orders.Records[1]["billing"])
	}

	staff := query(t, e, Request{
		Model:   "employee",
		Filters: filter.NewAnd(filter.Where("id", filter.OpEquals, 4)),
		Expand:  []string{"manager.manager"},
	})
	manager := staff.Records[0]["manager"].(map[string]any)
	if manager["name"] != "Raj" || manager["manager"].(map[string]any)["name"] != "Ann" {
		t.Errorf("manager chain = %#v", manager)
	}
}
