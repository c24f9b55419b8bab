package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shahedoge/cofly/internal/store"
	"github.com/shahedoge/cofly/pkg/api"
	"github.com/shahedoge/cofly/pkg/auth"
	"github.com/shahedoge/cofly/pkg/middleware"
	"github.com/shahedoge/cofly/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		dbPath  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the emulator server",
		Long: `Run the HTTP API and the real-time WebSocket channel.

Configuration comes from COFLY_* environment variables; flags override
the listen address and database path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.ConfigFromEnv()
			if addr != "" {
				cfg.Address = addr
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			return runServer(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default :8000)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default cofly.db)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runServer(ctx context.Context, cfg *server.Config, logger *slog.Logger) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	var blobs store.BlobStore
	if cfg.S3Bucket != "" {
		blobs, err = store.NewS3BlobStore(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return err
		}
		logger.Info("using s3 blob backend", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	} else {
		blobs = store.NewDBBlobStore(st)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tokens := auth.NewTokens(cfg.SecretKey, cfg.TokenTTL)
	policy := auth.NewRegistrationPolicy(cfg.RegistrationToken)
	metrics := server.NewMetrics(promRegistry)
	registry := server.NewRegistry(logger, metrics)
	resolver := store.NewResolver(st, policy)
	gateway := server.NewGateway(registry, auth.NewVerifier(tokens), resolver, cfg, logger, metrics)

	a := api.New(st, blobs, tokens, policy, registry, gateway, cfg, logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus(middleware.WithRegistry(promRegistry)))
	r.Use(middleware.OpenTelemetry())
	a.Routes(r)
	r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	gcCtx, cancelGC := context.WithCancel(ctx)
	defer cancelGC()
	gc := store.NewGC(st, cfg.GCInterval, cfg.GCMaxAge, logger)
	go gc.Run(gcCtx)

	if policy.Open() {
		logger.Warn("registration is open: any username can self-register")
	}

	return server.New(r, cfg, logger).Run(ctx)
}
