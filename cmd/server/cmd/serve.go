package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api"
	"github.com/Togather-Foundation/eventdesk/internal/audit"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/config"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/metrics"
	"github.com/Togather-Foundation/eventdesk/internal/storage/memory"
	"github.com/Togather-Foundation/eventdesk/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const storeMetricsInterval = 15 * time.Second

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the eventdesk HTTP server",
	Long: `Start the eventdesk HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (and --config if provided)
- Seed sample events in development unless EVENTS_SEED=false
- Serve the public and management event APIs
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug

  # Start with a config file
  server serve --config /etc/eventdesk/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

// application is everything a running server owns.
type application struct {
	handler   http.Handler
	collector *metrics.StoreCollector
}

func runServer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	for _, warning := range cfg.Warnings {
		logger.Warn().Msg(warning)
	}
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting eventdesk server")

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	metrics.Init(Version, GitCommit, BuildDate)

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		app.collector.Start(gctx, storeMetricsInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		return shutdown(server, app.collector, shutdownTracing, cfg.Server.ShutdownTimeout, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newApplication wires the store, the lifecycle engine and the HTTP surface.
func newApplication(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*application, error) {
	repo := memory.NewRepository()
	if cfg.Events.Seed {
		seeded, err := memory.Seed(ctx, repo.Events(), time.Now())
		if err != nil {
			return nil, fmt.Errorf("seed events: %w", err)
		}
		logger.Info().Int("events", len(seeded)).Msg("seeded sample events")
	}

	directory := auth.NewDirectory(cfg.Security.Users)
	if directory.Len() == 0 {
		logger.Warn().Msg("no users configured; login is disabled")
	}
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Expiry(), cfg.Auth.Issuer)

	service := events.NewService(repo.Events(), cfg.Security.Permissions,
		events.WithLogger(logger),
		events.WithClearRejectionReason(cfg.Events.ClearRejectionReason),
		events.WithRecorder(events.Recorders{
			audit.NewLogger(logger),
			metrics.NewTransitionRecorder(),
		}),
	)

	handler := api.NewRouter(api.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Events:    service,
		Directory: directory,
		JWT:       jwtManager,
		Store:     repo,
		Version:   Version,
		GitCommit: GitCommit,
	})

	return &application{
		handler:   handler,
		collector: metrics.NewStoreCollector(repo.EventStore(), logger),
	}, nil
}

func shutdown(server *http.Server, collector *metrics.StoreCollector, flush telemetry.Shutdown, timeout time.Duration, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	collector.Stop()

	var errs []error
	if err := server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := flush(ctx); err != nil {
		logger.Warn().Err(err).Msg("tracing shutdown failed")
	}
	return errors.Join(errs...)
}
