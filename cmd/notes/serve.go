package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/notes/internal/analytics"
	"github.com/vango-dev/notes/internal/config"
	"github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/internal/export"
	"github.com/vango-dev/notes/internal/notes"
	"github.com/vango-dev/notes/internal/server"
	"github.com/vango-dev/notes/internal/summarizer"
	"github.com/vango-dev/notes/pkg/middleware"
)

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		addr string
		db   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notes server",
		Long: `Start the HTTP server: the notes API under /api, websocket
navigation sessions on /ws, metrics on /metrics and the shell
fallback for every page path.

Examples:
  notes serve
  notes serve --addr=:8080 --db=/var/lib/notes.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if db != "" {
				cfg.Database = db
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from notes.json)")
	cmd.Flags().StringVar(&db, "db", "", "SQLite database path (default from notes.json)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	store, err := notes.Open(ctx, cfg.Database, notes.WithLogger(logger.With("component", "notes")))
	if err != nil {
		return err
	}
	defer store.Close()

	ttl, err := cfg.AnalyticsTTL()
	if err != nil {
		return errors.New("N101").WithField("analytics.cacheTTL").WithDetail(err.Error()).Wrap(err)
	}
	reports := analytics.New(store, analytics.WithTTL(ttl), analytics.WithTopN(cfg.Analytics.TopN))

	opts := []server.Option{
		server.WithLogger(logger.With("component", "server")),
		server.WithSummarizer(summarizer.New(cfg.Summarizer.APIKey, summarizer.WithEndpoint(cfg.Summarizer.Endpoint))),
	}
	if cfg.Export.Bucket != "" {
		opts = append(opts, server.WithExporter(newExporter(cfg)))
	}
	if cfg.Observability.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, server.WithMetrics(middleware.NewMetrics(middleware.WithRegistry(reg)), reg))
	}
	if cfg.Observability.Tracing {
		opts = append(opts, server.WithTracing())
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Addr
	srvCfg.History = cfg.HistoryMode()
	srvCfg.Base = cfg.Router.Base
	srvCfg.MaxHistory = cfg.Router.MaxHistory

	return server.New(srvCfg, store, reports, opts...).ListenAndServe(ctx)
}

func newExporter(cfg *config.Config) *export.Exporter {
	client := export.NewS3Client(export.S3Config{
		Bucket:    cfg.Export.Bucket,
		Prefix:    cfg.Export.Prefix,
		Region:    cfg.Export.Region,
		Endpoint:  cfg.Export.Endpoint,
		AccessKey: cfg.Export.AccessKey,
		SecretKey: cfg.Export.SecretKey,
		PathStyle: cfg.Export.PathStyle,
	})
	return export.New(client, cfg.Export.Bucket, cfg.Export.Prefix)
}
