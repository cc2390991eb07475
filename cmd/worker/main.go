package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/atheneum-lms/atheneum/internal/app"
	"github.com/atheneum-lms/atheneum/internal/departments"
	jobmetrics "github.com/atheneum-lms/atheneum/internal/jobs"
	"github.com/atheneum-lms/atheneum/internal/lookup"
	"github.com/atheneum-lms/atheneum/internal/permissions"
	"github.com/atheneum-lms/atheneum/internal/platform/cache"
	"github.com/atheneum-lms/atheneum/internal/platform/db"
	"github.com/atheneum-lms/atheneum/internal/roles"
	"github.com/atheneum-lms/atheneum/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry := lookup.NewRegistry(lookup.NewRepository(pool), logger)
	if err := registry.Initialize(ctx); err != nil {
		logger.Error("initialize validation catalog", slog.Any("error", err))
		os.Exit(1)
	}

	hierarchy := departments.NewHierarchy(departments.NewRepository(pool), logger)
	resolver := roles.NewResolver(roles.NewRepository(pool), logger)
	permCache := permissions.NewCache(redisClient, cfg.PermissionCacheTTL)
	permService := permissions.NewService(permCache, resolver, hierarchy, logger, nil)
	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPermissionsInvalidateAll, Handler: jobs.NewInvalidateAllHandler(permService, logger, metrics)},
			{Type: jobs.TaskPermissionsInvalidateUser, Handler: jobs.NewInvalidateUserHandler(permService, logger, metrics)},
			{Type: jobs.TaskLookupRefresh, Handler: jobs.NewLookupRefreshHandler(registry, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			// The catalog is also refreshed on demand; the nightly run is the
			// backstop for direct database edits.
			{Spec: "0 3 * * *", Task: jobs.NewLookupRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
