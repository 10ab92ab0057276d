package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/calendify/server/internal/api"
	"github.com/calendify/server/internal/config"
	"github.com/calendify/server/internal/domain/events"
	"github.com/calendify/server/internal/jobs"
	"github.com/calendify/server/internal/metrics"
	"github.com/calendify/server/internal/storage/postgres"
	"github.com/calendify/server/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host string
	port int
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (and .env if present)
- Apply pending migrations when DATABASE_AUTO_MIGRATE=true
- Prune old notifications in the background when JOBS_ENABLED=true
- Serve /api/events plus /healthz, /readyz, /version and /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug --log-format console`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, opts *serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger := config.NewLogger(cfg.Logging)
	info := buildInfo()
	logger.Info().Str("version", info.Version).Str("environment", cfg.Environment).Msg("starting calendify server")

	metrics.Init(info.Version, info.GitCommit, info.BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, info.Version)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("auto-migrate failed: %w", err)
		}
		logger.Info().Str("path", cfg.Database.MigrationsPath).Msg("migrations applied")
	}

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	collectorCtx, collectorCancel := context.WithCancel(ctx)
	defer collectorCancel()
	go metrics.NewDBCollector(pool).Start(collectorCtx, 15*time.Second)

	if cfg.Jobs.Enabled {
		stopJobs, err := startJobs(ctx, pool, repo, cfg, logger)
		if err != nil {
			return err
		}
		defer stopJobs()
	} else {
		logger.Info().Msg("background jobs disabled, notifications are kept indefinitely")
	}

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(api.RouterDeps{
			Logger:   logger,
			Events:   events.NewService(repo.Events(), logger),
			Database: repo,
			Build:    info,
		}),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return serveUntilDone(ctx, server, logger)
}

// startJobs runs River's migrations and starts the notification retention
// worker. The returned func stops the client, letting a running job finish.
func startJobs(ctx context.Context, pool *pgxpool.Pool, repo *postgres.Repository, cfg config.Config, logger zerolog.Logger) (func(), error) {
	if err := jobs.Migrate(ctx, pool); err != nil {
		return nil, err
	}

	jobLogger := config.NewSlogLogger(cfg.Logging)
	client, err := jobs.NewClient(
		pool,
		jobs.NewWorkers(repo.Events(), cfg.Jobs.NotificationRetention, jobLogger),
		jobLogger,
		[]rivertype.Hook{metrics.NewRiverMetricsHook()},
		jobs.NewPeriodicJobs(cfg.Jobs.PruneInterval),
	)
	if err != nil {
		return nil, fmt.Errorf("river client init failed: %w", err)
	}

	// River's fetch loop must outlive ctx so Stop can drain it.
	riverCtx, riverCancel := context.WithCancel(context.Background())
	if err := client.Start(riverCtx); err != nil {
		riverCancel()
		return nil, fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().
		Dur("retention", cfg.Jobs.NotificationRetention).
		Dur("interval", cfg.Jobs.PruneInterval).
		Msg("background jobs started")

	return func() {
		defer riverCancel()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river workers shutdown error")
			return
		}
		logger.Info().Msg("river workers stopped")
	}, nil
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// serveUntilDone runs server until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func serveUntilDone(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	applyLogFlags(&cfg.Logging)
	return cfg, nil
}

func applyLogFlags(cfg *config.LoggingConfig) {
	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
}
