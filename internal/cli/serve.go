package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/engine"
	"github.com/aidanlsb/linkq/internal/metrics"
	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/server"
	"github.com/aidanlsb/linkq/internal/sqlbackend"
	"github.com/aidanlsb/linkq/internal/watcher"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Long: `Starts an HTTP server with:

  GET  /health
  POST /api/query      {"model": ..., "filters": ..., "expand": [...]}
  POST /api/resolve    {"model": ..., "filters": ...}
  GET  /api/models
  GET  /api/models/{model}/graph?mode=bfs|dfs
  GET  /metrics

With --watch the models file is reloaded when it changes. A file that fails
validation is logged and the previous models stay in effect.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openRuntime()
		if env == nil {
			return err
		}
		defer env.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		newEngine := func(s *schema.Schema) (*engine.Engine, error) {
			backend, err := metrics.Instrument(sqlbackend.New(env.db, s, env.dialect, sqlbackend.WithLogger(env.logger)), reg)
			if err != nil {
				return nil, err
			}
			return engine.New(s, backend, engine.WithLogger(env.logger)), nil
		}

		eng, err := newEngine(env.schema)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		srv := server.New(eng, env.schema, server.WithLogger(env.logger), server.WithGatherer(reg))

		addr := getConfig().Addr()
		if strings.TrimSpace(serveAddr) != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveWatch {
			w, err := watcher.New(watcher.Config{
				Path:   modelsPath(),
				Logger: env.logger,
				OnReload: func(s *schema.Schema) {
					eng, err := newEngine(s)
					if err != nil {
						env.logger.Error("failed to rebuild engine", slog.Any("error", err))
						return
					}
					srv.Reload(eng, s)
				},
			})
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			go func() {
				if err := w.Start(ctx); err != nil && ctx.Err() == nil {
					env.logger.Error("models watcher stopped", slog.Any("error", err))
				}
			}()
		}
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			return handleError(ErrInternal, err, "")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides [server] addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload the models file when it changes")
	rootCmd.AddCommand(serveCmd)
}
