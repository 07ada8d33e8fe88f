// Package main is the entry point for the journal API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/journal/journal/internal/cache"
	"github.com/journal/journal/internal/config"
	"github.com/journal/journal/internal/database"
	"github.com/journal/journal/internal/handlers"
	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/metrics"
	"github.com/journal/journal/internal/repository"
	"github.com/journal/journal/internal/server"
	"github.com/journal/journal/internal/services"
	"github.com/journal/journal/internal/workerid"
	"github.com/journal/journal/pkg/logger"
)

const startupTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.App.LogLevel)
	log.Info("starting journal api", "env", cfg.App.Env, "worker_source", cfg.IDGen.WorkerSource)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	var redisClient *redis.Client
	if cfg.IDGen.WorkerSource == config.WorkerSourceRedis || (cfg.DatabaseEnabled() && cfg.UserCacheEnabled()) {
		redisClient, err = workerid.NewRedisClient(startCtx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	source, lease := setupWorkerSource(cfg, redisClient, log)

	workerID, err := source.Acquire(startCtx)
	if err != nil {
		if errors.Is(err, workerid.ErrNoWorkerIDAvailable) {
			metrics.RecordWorkerLeaseFailure()
		}
		return fmt.Errorf("failed to acquire worker id: %w", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := source.Release(releaseCtx); err != nil {
			log.Error("failed to release worker id", "error", err.Error())
		}
	}()

	gen, err := idgen.NewGenerator(workerID)
	if err != nil {
		return fmt.Errorf("failed to create id generator: %w", err)
	}
	metrics.SetWorkerID(workerID)
	log.Info("id generator ready", "worker_id", workerID)

	srv := server.New(cfg, log)
	srv.SetIDHandler(handlers.NewIDHandler(services.NewIDService(gen, log)))
	srv.HealthHandler().SetWorkerID(workerID)

	// nil for the static source; receiving from it blocks forever.
	var leaseLost <-chan error
	if lease != nil {
		leaseLost = lease.KeepAlive(ctx)
		srv.HealthHandler().AddCheck("worker_lease", func(context.Context) error {
			if _, held := lease.WorkerID(); !held {
				return workerid.ErrNotAcquired
			}
			return nil
		})
	}

	if cfg.DatabaseEnabled() {
		pool, err := setupDatabase(startCtx, cfg, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		var users repository.UserRepository = repository.NewPostgresUserRepository(pool)
		if cfg.UserCacheEnabled() {
			userCache := cache.NewUserCache(cache.NewRedisCache(redisClient), "journal:user:", cfg.Redis.UserCacheTTL)
			users = repository.NewCachedUserRepository(users, userCache, log)
			srv.HealthHandler().AddCheck("redis", userCache.Ping)
			log.Info("user cache enabled", "ttl", cfg.Redis.UserCacheTTL.String())
		}

		journal := services.NewJournalService(
			users,
			repository.NewPostgresEntryRepository(pool),
			gen,
			log,
		)
		srv.SetJournalHandler(handlers.NewJournalHandler(journal))
		srv.HealthHandler().AddCheck("database", pool.HealthCheck)
	} else {
		log.Warn("database not configured, journal endpoints disabled")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		runErr = err
	case err, ok := <-leaseLost:
		if ok && err != nil {
			// Another process may now hold our worker ID; keep minting and we
			// risk duplicate IDs.
			log.Error("worker id lease lost, shutting down", "error", err.Error())
			runErr = fmt.Errorf("worker id lease lost: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to shut down server: %w", err)
	}
	return runErr
}

// setupWorkerSource returns the configured worker ID source. The lease is
// non-nil only for the Redis source.
func setupWorkerSource(cfg *config.Config, client *redis.Client, log *logger.Logger) (workerid.Source, *workerid.RedisLease) {
	if cfg.IDGen.WorkerSource != config.WorkerSourceRedis {
		return workerid.NewStatic(cfg.IDGen.WorkerID), nil
	}
	lease := workerid.NewRedisLease(client, cfg.IDGen.KeyPrefix, cfg.IDGen.LeaseTTL, log)
	return lease, lease
}

func setupDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.Pool, error) {
	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrator, err := database.NewSchemaMigrator(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("database ready", "host", cfg.Database.Host, "migrations_applied", applied)
	return pool, nil
}
