// Package server exposes the query engine over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidanlsb/linkq/internal/engine"
	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/graph"
	"github.com/aidanlsb/linkq/internal/schema"
)

// Server holds the HTTP server dependencies.
type Server struct {
	current  atomic.Pointer[state]
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// state is swapped as a unit so a request never sees an engine built for a
// different schema.
type state struct {
	engine *engine.Engine
	schema *schema.Schema
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New creates an API server.
func New(eng *engine.Engine, sch *schema.Schema, opts ...Option) *Server {
	s := &Server{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&state{engine: eng, schema: sch})
	return s
}

// Reload replaces the engine and schema used by subsequent requests.
// Requests already in flight finish against the previous pair.
func (s *Server) Reload(eng *engine.Engine, sch *schema.Schema) {
	s.current.Store(&state{engine: eng, schema: sch})
	s.logger.Info("schema reloaded", slog.Int("models", len(sch.Models)))
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.HealthCheck)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.Query)
		r.Post("/resolve", s.Resolve)
		r.Get("/models", s.ListModels)
		r.Get("/models/{model}/graph", s.ModelGraph)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// QueryRequest is the request body for POST /api/query and POST /api/resolve.
// Filters accepts any of the filter input shapes.
type QueryRequest struct {
	Model   string   `json:"model"`
	Filters any      `json:"filters,omitempty"`
	Expand  []string `json:"expand,omitempty"`
}

// ResolveResponse is the data returned by POST /api/resolve.
type ResolveResponse struct {
	Model    string        `json:"model"`
	Resolved *filter.Group `json:"resolved"`
}

// GraphResponse is the data returned by GET /api/models/{model}/graph.
type GraphResponse struct {
	Model   string     `json:"model"`
	Mode    string     `json:"mode"`
	Mermaid string     `json:"mermaid"`
	Paths   [][]string `json:"paths"`
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

// Query handles POST /api/query
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.current.Load().engine.Query(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, resp)
}

// Resolve handles POST /api/resolve
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	resolved, err := s.current.Load().engine.Resolve(r.Context(), req.Model, req.Filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, ResolveResponse{Model: req.Model, Resolved: resolved})
}

// ListModels handles GET /api/models
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"models": s.current.Load().schema.ModelNames()})
}

// ModelGraph handles GET /api/models/{model}/graph
// Supports query param ?mode=bfs (default) or ?mode=dfs
func (s *Server) ModelGraph(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "bfs"
	}

	g, err := s.current.Load().schema.Graph()
	if err != nil {
		writeError(w, err)
		return
	}

	var tree *graph.TreeNode
	switch mode {
	case "bfs":
		tree, err = graph.BFSTree(g, model)
	case "dfs":
		tree, err = graph.DFSTree(g, model)
	default:
		writeErrorStatus(w, http.StatusBadRequest, engine.CodeQueryInvalid,
			fmt.Sprintf("unknown traversal mode '%s'", mode), "Use mode=bfs or mode=dfs")
		return
	}
	if errors.Is(err, graph.ErrVertexNotFound) {
		err = fmt.Errorf("%w: '%s'", schema.ErrModelNotFound, model)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, GraphResponse{Model: model, Mode: mode, Mermaid: tree.Mermaid(), Paths: tree.Paths()})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (engine.Request, error) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(http.MaxBytesReader(w, r.Body, 1<<20)); err != nil {
		return engine.Request{}, &filter.ValidationError{Message: fmt.Sprintf("failed to read request body: %v", err)}
	}
	dec := json.NewDecoder(&body)
	dec.UseNumber()
	var req QueryRequest
	if err := dec.Decode(&req); err != nil {
		return engine.Request{}, &filter.ValidationError{Message: fmt.Sprintf("invalid request JSON: %v", err)}
	}
	if req.Model == "" {
		return engine.Request{}, &filter.ValidationError{Message: "request is missing 'model'"}
	}
	f, err := filter.Parse(filter.NormalizeJSON(req.Filters))
	if err != nil {
		return engine.Request{}, err
	}
	return engine.Request{Model: req.Model, Filters: f, Expand: req.Expand}, nil
}
