package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/mentora/backend/internal/config"
	"github.com/mentora/backend/internal/engine"
	"github.com/mentora/backend/internal/expiry"
	"github.com/mentora/backend/internal/identity"
	"github.com/mentora/backend/internal/lock"
	"github.com/mentora/backend/internal/store"
)

// settlementd runs the settlement engine's background work, currently the
// periodic subscription-expiry sweep. The host application embeds the engine
// package directly for request-path operations.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var logger *slog.Logger
	if cfg.Env == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	slog.SetDefault(logger)

	ctx := context.Background()

	// River schedules the sweep and needs Postgres regardless of which
	// store driver holds the engine's data.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("cannot reach PostgreSQL, ensure it is running", "error", err)
		os.Exit(1)
	}

	var st store.Store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("memory store selected, data will not survive restarts")
		st = store.NewMemory()
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("cannot reach Redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		st = store.NewRedis(client, cfg.RedisPrefix)
	case config.StorePostgres:
		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("kv migration failed", "error", err)
			os.Exit(1)
		}
		st = pg
	default:
		logger.Error("unknown store driver", "driver", cfg.StoreDriver)
		os.Exit(1)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		logger.Error("failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		logger.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}

	locks := lock.NewManager(logger)
	eng := engine.New(st, locks, identity.NewVerifier([]byte(cfg.TokenSecret)), logger)

	workers := river.NewWorkers()
	river.AddWorker(workers, expiry.NewSweepWorker(eng.Subscriptions, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 4},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{expiry.PeriodicJob(cfg.SweepInterval)},
	})
	if err != nil {
		logger.Error("failed to create River client", "error", err)
		os.Exit(1)
	}

	if err := riverClient.Start(ctx); err != nil {
		logger.Error("River client failed to start", "error", err)
		os.Exit(1)
	}
	logger.Info("settlementd running", "store", cfg.StoreDriver, "sweep_interval", cfg.SweepInterval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	if err := riverClient.Stop(ctx); err != nil {
		logger.Error("River client stop failed", "error", err)
	}
}
