package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/linkq/internal/engine"
	"github.com/aidanlsb/linkq/internal/metrics"
	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/sqlbackend"
	"github.com/aidanlsb/linkq/internal/testutil"
)

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *ErrorInfo      `json:"error"`
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tdb := testutil.NewTestDB(t).WithFixtures().Build()

	reg := prometheus.NewRegistry()
	backend, err := metrics.Instrument(sqlbackend.New(tdb.DB, tdb.Schema, sqlbackend.SQLite), reg)
	require.NoError(t, err)

	srv := New(engine.New(tdb.Schema, backend), tdb.Schema, WithGatherer(reg))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (int, envelope) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func get(t *testing.T, ts *httptest.Server, path string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)
	status, env := get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.OK)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestQueryEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	status, env := post(t, ts, "/api/query", `{
		"model": "property",
		"filters": {"op": "and", "conditions": [
			{"attribute": "locality.city.name", "op": "eq", "value": "Mumbai"},
			{"attribute": "price", "op": "gte", "value": 300}
		]},
		"expand": ["locality"]
	}`)
	require.Equal(t, http.StatusOK, status, "error: %+v", env.Error)

	var data engine.Response
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Records, 2)
	assert.Equal(t, "Sea View", data.Records[0]["name"])
	assert.Equal(t, "Hill Top", data.Records[1]["name"])
	locality, ok := data.Records[1]["locality"].(map[string]any)
	require.True(t, ok, "locality should be expanded: %v", data.Records[1])
	assert.Equal(t, "Andheri", locality["name"])
}

func TestQueryFlatFilterShape(t *testing.T) {
	ts := setupTestServer(t)

	status, env := post(t, ts, "/api/query", `{"model": "user", "filters": {"name": "Meera"}, "expand": ["posts"]}`)
	require.Equal(t, http.StatusOK, status)

	var data engine.Response
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Records, 1)
	posts, ok := data.Records[0]["posts"].([]any)
	require.True(t, ok)
	assert.Len(t, posts, 1)
}

func TestResolveEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	status, env := post(t, ts, "/api/resolve", `{
		"model": "property",
		"filters": [{"attribute": "locality.name", "op": "eq", "value": "Bandra"}]
	}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{
		"model": "property",
		"resolved": {"op": "and", "conditions": [
			{"attribute": "locality_id", "op": "is_any_of", "value": [1]}
		]}
	}`, string(env.Data))
}

func TestErrorResponses(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"model":`, http.StatusBadRequest, engine.CodeQueryInvalid},
		{"missing model", `{"filters": {"name": "x"}}`, http.StatusBadRequest, engine.CodeQueryInvalid},
		{"unknown model", `{"model": "unicorn"}`, http.StatusNotFound, engine.CodeModelNotFound},
		{"unknown operator", `{"model": "user", "filters": [{"attribute": "name", "op": "contains", "value": "a"}]}`, http.StatusBadRequest, engine.CodeQueryInvalid},
		{"unknown expand", `{"model": "user", "expand": ["friends"]}`, http.StatusBadRequest, engine.CodeRelationshipNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := post(t, ts, "/api/query", tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, env.OK)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestModelGraph(t *testing.T) {
	ts := setupTestServer(t)

	status, env := get(t, ts, "/api/models/user/graph")
	require.Equal(t, http.StatusOK, status)
	var data GraphResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "bfs", data.Mode)
	assert.True(t, strings.HasPrefix(data.Mermaid, "graph TD"))
	assert.Contains(t, data.Mermaid, "user --> post")
	assert.Contains(t, data.Mermaid, "post --> comment")

	status, env = get(t, ts, "/api/models/user/graph?mode=dfs")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "dfs", data.Mode)

	status, env = get(t, ts, "/api/models/user/graph?mode=spiral")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, engine.CodeQueryInvalid, env.Error.Code)

	status, env = get(t, ts, "/api/models/unicorn/graph")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, engine.CodeModelNotFound, env.Error.Code)
}

func TestListModels(t *testing.T) {
	ts := setupTestServer(t)
	status, env := get(t, ts, "/api/models")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"property"`)
}

func TestReloadSwapsSchema(t *testing.T) {
	tdb := testutil.NewTestDB(t).WithFixtures().Build()
	srv := New(engine.New(tdb.Schema, sqlbackend.New(tdb.DB, tdb.Schema, sqlbackend.SQLite)), tdb.Schema)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	reduced, err := schema.Parse([]byte("models:\n  city:\n    table: cities\n"))
	require.NoError(t, err)
	srv.Reload(engine.New(reduced, sqlbackend.New(tdb.DB, reduced, sqlbackend.SQLite)), reduced)

	status, env := get(t, ts, "/api/models")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"models":["city"]}`, string(env.Data))

	status, env = post(t, ts, "/api/query", `{"model": "property"}`)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, engine.CodeModelNotFound, env.Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	post(t, ts, "/api/query", `{"model": "city"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `linkq_operations_total{model="city",type="select"} 1`)
	assert.Contains(t, string(body), "linkq_backend_duration_seconds")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	tdb := testutil.NewTestDB(t).WithFixtures().Build()
	srv := New(engine.New(tdb.Schema, sqlbackend.New(tdb.DB, tdb.Schema, sqlbackend.SQLite)), tdb.Schema)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
