package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pathofmirrors/internal/config"
	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/observability"
	"pathofmirrors/internal/orchestrator"
	"pathofmirrors/internal/provider"
	"pathofmirrors/internal/retention"
	"pathofmirrors/internal/source"
	"pathofmirrors/internal/source/poeninja"
	"pathofmirrors/internal/storage"
	chstore "pathofmirrors/internal/storage/clickhouse"
	"pathofmirrors/internal/storage/migrations"
	pgstore "pathofmirrors/internal/storage/postgres"
)

func main() {
	mode := flag.String("mode", "run", "Pipeline mode: run (continuous), once (single cycle), or sweep (retention only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure logging: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals: first one cancels, second one forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger, *mode)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("pipeline failed")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, mode string) error {
	metrics := observability.NewMetrics("pathofmirrors")

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("apply postgres migrations: %w", err)
	}

	var trendStore storage.TrendStore
	if cfg.ClickHouse.Enabled {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		defer conn.Close()
		trendStore = chstore.NewTrendStore(conn)
		logger.Info().Msg("trend projection backed by clickhouse")
	}

	repo := pgstore.NewRepository(pool, trendStore)

	sweeper := retention.New(retention.Options{
		Repository: repo,
		Window:     cfg.Retention.Window,
		Logger:     logger,
		Metrics:    metrics,
	})

	if mode == "sweep" {
		return sweeper.Sweep(ctx)
	}

	registry, err := provider.NewRegistry(
		newPoENinjaProvider(domain.GamePoE1, cfg.Sources.PoE1, logger, metrics),
		newPoENinjaProvider(domain.GamePoE2, cfg.Sources.PoE2, logger, metrics),
	)
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}

	orch := orchestrator.New(orchestrator.Options{
		Repository:  repo,
		DeadLetters: pgstore.NewDeadLetterStore(pool),
		Locks:       pgstore.NewLockStore(pool),
		Queue:       pgstore.NewJobQueue(pool, 0),
		Providers:   registry,
		Workers:     cfg.Ingest.Workers,
		RetryCap:    cfg.Ingest.RetryCap,
		RetryDelay:  cfg.Ingest.RetryDelay,
		MaxDelay:    cfg.Ingest.MaxDelay,
		JobTimeout:  cfg.Ingest.JobTimeout,
		LockTTL:     cfg.Ingest.LockTTL,
		Logger:      logger,
		Metrics:     metrics,
	})

	switch mode {
	case "once":
		return orch.RunOnce(ctx)
	case "run":
		startMetricsServer(cfg.Metrics.Addr, logger)
		go func() {
			if err := sweeper.Run(ctx, cfg.Retention.Interval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("retention sweeper stopped")
			}
		}()
		return orch.Run(ctx, cfg.Ingest.Interval)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// newPoENinjaProvider wires one game's upstream clients from config.
func newPoENinjaProvider(game domain.Game, cfg config.SourceConfig, logger zerolog.Logger, metrics *observability.Metrics) provider.Provider {
	opts := []source.Option{
		source.WithRateLimit(cfg.RateLimit, cfg.Burst),
		source.WithTimeout(cfg.Timeout),
		source.WithMaxRetries(cfg.MaxRetries),
		source.WithLogger(logger),
		source.WithMetrics(metrics),
	}
	economy := source.New(poeninja.SourceName+"-economy-"+string(game), cfg.EconomyURL, opts...)
	builds := source.New(poeninja.SourceName+"-builds-"+string(game), cfg.BuildsURL, opts...)
	return provider.NewPoENinja(poeninja.NewClient(game, economy, builds))
}

func startMetricsServer(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	go func() {
		logger.Info().Str("addr", addr).Msg("starting metrics server")
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

func newLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var out = os.Stdout
	logger := zerolog.New(out)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}
