package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atheneum-lms/atheneum/internal/app"
	"github.com/atheneum-lms/atheneum/internal/audit"
	"github.com/atheneum-lms/atheneum/internal/authz"
	"github.com/atheneum-lms/atheneum/internal/departments"
	"github.com/atheneum-lms/atheneum/internal/escalation"
	"github.com/atheneum-lms/atheneum/internal/lookup"
	"github.com/atheneum-lms/atheneum/internal/observability"
	"github.com/atheneum-lms/atheneum/internal/permissions"
	"github.com/atheneum-lms/atheneum/internal/platform/cache"
	"github.com/atheneum-lms/atheneum/internal/platform/db"
	"github.com/atheneum-lms/atheneum/internal/roles"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "atheneum_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	registry := lookup.NewRegistry(lookup.NewRepository(dbpool), logger)
	if err := registry.Initialize(ctx); err != nil {
		logger.Error("initialize validation catalog", slog.Any("error", err))
		os.Exit(1)
	}

	hierarchy := departments.NewHierarchy(departments.NewRepository(dbpool), logger)
	departmentRepo := departments.NewRepository(dbpool)

	roleRepo := roles.NewRepository(dbpool)
	resolver := roles.NewResolver(roleRepo, logger)

	permCache := permissions.NewCache(redisClient, cfg.PermissionCacheTTL)
	permService := permissions.NewService(permCache, resolver, hierarchy, logger, metrics)

	escalationService := escalation.NewService(
		escalation.NewAccountRepository(dbpool),
		escalation.NewStore(redisClient),
		resolver,
		logger,
	)

	recorder := audit.NewRecorder(dbpool)
	authzService := authz.NewService(
		permService,
		escalationService,
		roleRepo,
		hierarchy,
		departmentRepo,
		recorder,
		logger,
		metrics,
	)
	authzMW := authz.Middleware{Service: authzService, Logger: logger}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Authz:              authzMW,
		LookupHandler:      lookup.NewHandler(logger, registry),
		RolesHandler:       roles.NewHandler(logger, roleRepo, jobClient),
		PermissionsHandler: permissions.NewHandler(logger, permService, authzMW.RequireAny("admin:permissions:manage")),
		EscalationHandler:  escalation.NewHandler(logger, escalationService),
		JobsHandler:        jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
