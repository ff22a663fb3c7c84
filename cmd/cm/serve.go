package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/configmonkey/internal/config"
	"github.com/alfredjeanlab/configmonkey/internal/events"
	"github.com/alfredjeanlab/configmonkey/internal/metrics"
	"github.com/alfredjeanlab/configmonkey/internal/server"
	"github.com/alfredjeanlab/configmonkey/internal/service"
	"github.com/alfredjeanlab/configmonkey/internal/snapshot"
	"github.com/alfredjeanlab/configmonkey/internal/store"
	"github.com/alfredjeanlab/configmonkey/internal/store/postgres"
	"github.com/alfredjeanlab/configmonkey/internal/store/sqlite"
	"github.com/alfredjeanlab/configmonkey/internal/tracing"
)

// openStore picks the backend from the database URL scheme.
func openStore(databaseURL string) (store.Store, error) {
	driver, dsn, err := config.ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	switch driver {
	case config.DriverPostgres:
		return postgres.New(dsn)
	case config.DriverSQLite:
		return sqlite.New(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// snapshotDestinations builds every configured snapshot target. A target
// that cannot be created is logged and skipped.
func snapshotDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []snapshot.Destination {
	var dests []snapshot.Destination
	if cfg.SnapshotS3Bucket != "" {
		s3Dest, err := snapshot.NewS3Destination(ctx,
			cfg.SnapshotS3Bucket,
			cfg.SnapshotS3Key,
			cfg.SnapshotS3Region,
			cfg.SnapshotS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 snapshot destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
		}
	}
	if cfg.SnapshotFile != "" {
		dests = append(dests, snapshot.NewFileDestination(cfg.SnapshotFile))
	}
	if cfg.SnapshotGitRepo != "" {
		dests = append(dests, snapshot.NewGitDestination(cfg.SnapshotGitRepo, cfg.SnapshotGitFile, cfg.SnapshotGitBranch))
	}
	for _, d := range dests {
		logger.Info("snapshot destination enabled", "destination", d.Name())
	}
	return dests
}

// eventPublisher fans events out to NATS, behind a breaker, and to the
// in-process stream hub.
func eventPublisher(cfg *config.Config, hub *server.EventHub, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("NATS events disabled (CONFIGMONKEY_NATS_URL not set)")
		return events.Fanout{hub}, nil
	}
	nats, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("NATS events enabled", "nats_url", cfg.NATSURL)
	return events.Fanout{events.NewBreakerPublisher(nats, events.DefaultBreakerConfig()), hub}, nil
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the registry HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// The server opens its own store instead of a client connection.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := config.NewViper()
		config.LoadEnvFiles()
		for key, flag := range map[string]string{
			"database_url": "database-url",
			"http_addr":    "http-addr",
			"grpc_addr":    "grpc-addr",
			"log_level":    "log-level",
		} {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}
		cfg, err := config.FromViper(v)
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		slog.SetDefault(logger)
		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}
	}()

	tracingCfg := tracing.DefaultConfig()
	tracingCfg.Exporter = cfg.TracingExporter
	if cfg.OTLPEndpoint != "" {
		tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	}
	tp, err := tracing.NewProvider(ctx, tracingCfg)
	if err != nil {
		return err
	}

	hub := server.NewEventHub()
	publisher, err := eventPublisher(cfg, hub, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
	}()

	collector := metrics.NewCollector()
	registry := service.New(st,
		service.WithPublisher(publisher),
		service.WithLogger(logger),
		service.WithTracer(tp.Tracer()),
		service.WithMetrics(collector),
	)
	srv := server.New(registry,
		server.WithMetrics(collector),
		server.WithEventHub(hub),
		server.WithLogger(logger),
	)

	grpcServer := server.NewGRPCServer(srv, cfg.AuthToken)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "err", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.NewHTTPHandler(cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "err", err)
		}
	}()

	var scheduler *snapshot.Scheduler
	if cfg.SnapshotInterval > 0 {
		if dests := snapshotDestinations(ctx, cfg, logger); len(dests) > 0 {
			scheduler = snapshot.NewScheduler(st, dests, cfg.SnapshotInterval, logger, collector)
			scheduler.Start()
			logger.Info("snapshot scheduler started", "interval", cfg.SnapshotInterval)
		}
	}

	logger.Info("configmonkey server started",
		"grpc_addr", cfg.GRPCAddr,
		"http_addr", cfg.HTTPAddr,
		"tracing", tp.Enabled(),
	)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	logger.Info("shutting down")

	if scheduler != nil {
		scheduler.Stop()
		logger.Info("snapshot scheduler stopped")
	}

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("HTTP server stopped")

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "err", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func init() {
	serveCmd.Flags().String("database-url", "", "postgres:// or sqlite: URL (overrides CONFIGMONKEY_DATABASE_URL)")
	serveCmd.Flags().String("http-addr", "", "HTTP listen address (overrides CONFIGMONKEY_HTTP_ADDR)")
	serveCmd.Flags().String("grpc-addr", "", "gRPC listen address (overrides CONFIGMONKEY_GRPC_ADDR)")
	serveCmd.Flags().String("log-level", "", "debug, info, warn or error (overrides CONFIGMONKEY_LOG_LEVEL)")
}
