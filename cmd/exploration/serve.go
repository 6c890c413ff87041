package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend"
	"github.com/Konfistador/ExplorationAppBackend/internal/backend/handlers"
	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/notify"
	"github.com/Konfistador/ExplorationAppBackend/internal/logger"
	"github.com/Konfistador/ExplorationAppBackend/internal/platform/otel"
)

const shutdownTimeout = 15 * time.Second

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts, seed)
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "insert demo data before serving")
	return cmd
}

func runServer(ctx context.Context, opts *RootOptions, seed bool) error {
	cfg := opts.cfg
	if cfg.HTTP.JWTSecret == "" {
		return errors.New("http.jwt_secret must be set to serve")
	}

	logger.LogSystem("Starting exploration backend",
		slog.String("version", version),
		slog.String("commit", commit))

	shutdownTracing, err := otel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.LogError("Tracer shutdown failed", err)
		}
	}()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store := database.NewStore(db.BunDB(), cfg.Progression.TxTimeoutDuration())
	if seed {
		if err := db.Seed(ctx, store); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dispatcher, err := notify.NewDispatcher(notify.LogSender{}, cfg.Notify, registry)
	if err != nil {
		return err
	}
	dispatcher.Start()

	engine, err := progression.NewEngine(store, progression.Config{
		VisitReward:      cfg.Progression.VisitReward,
		LeaderboardLimit: cfg.Progression.LeaderboardLimit,
	},
		progression.WithNotifier(dispatcher),
		progression.WithMetrics(progression.NewMetrics(registry)),
	)
	if err != nil {
		return err
	}

	app := backend.NewApp(&handlers.WebApp{
		Engine:    engine,
		JWTSecret: []byte(cfg.HTTP.JWTSecret),
		Version:   version,
	}, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.LogSystem("HTTP server listening", slog.String("addr", cfg.HTTP.Addr))
		return app.Listen(cfg.HTTP.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.LogSystem("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.LogError("Server shutdown error", err)
		}
		return dispatcher.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.LogSystem("Shutdown complete")
	return nil
}
