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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shiftline/shiftline/internal/app"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/directory"
	"github.com/shiftline/shiftline/internal/observability"
	"github.com/shiftline/shiftline/internal/rbac"
	"github.com/shiftline/shiftline/internal/shared"
	"github.com/shiftline/shiftline/internal/timesheet/comments"
	"github.com/shiftline/shiftline/internal/timesheet/declarations"
	"github.com/shiftline/shiftline/internal/timesheet/periods"
	"github.com/shiftline/shiftline/jobs"
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "shiftline_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	auditLogger := shared.NewAuditLogger(dbpool)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	directoryClient := directory.NewClient(cfg.DirectoryURL, cfg.DirectoryTimeout)
	if err := directoryClient.Ping(ctx); err != nil {
		logger.Warn("directory ping", slog.Any("error", err))
	}
	// FailClosed stays outermost so an upstream error degrades this request
	// only and is never stored in the cache.
	resolver := directory.NewFailClosed(
		directory.NewCachedResolver(directoryClient, redisClient, cfg.DirectoryCacheTTL),
		cfg.DirectoryTimeout,
		logger,
	)

	periodRepo := periods.NewRepository(dbpool)
	commentRepo := comments.NewRepository(dbpool)
	commentService := comments.NewService(commentRepo, logger)

	declarationRepo := declarations.NewRepository(dbpool)
	declarationService := declarations.NewService(declarationRepo, periodRepo, commentService, auditLogger, logger)
	accessResolver := declarations.NewAccessResolver(rbacService, resolver, logger)
	timesheetHandler := declarations.NewHandler(logger, declarationService, accessResolver)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		TimesheetHandler: timesheetHandler,
		JobHandler:       jobHandler,
		RBACMiddleware:   rbacMiddleware,
		Metrics:          metrics,
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
