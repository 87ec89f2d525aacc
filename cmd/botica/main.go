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

	"github.com/botica-erp/botica-erp/internal/analytics"
	"github.com/botica-erp/botica-erp/internal/app"
	"github.com/botica-erp/botica-erp/internal/auth"
	"github.com/botica-erp/botica-erp/internal/expense"
	"github.com/botica-erp/botica-erp/internal/inventory"
	"github.com/botica-erp/botica-erp/internal/masterdata"
	"github.com/botica-erp/botica-erp/internal/observability"
	"github.com/botica-erp/botica-erp/internal/platform/cache"
	"github.com/botica-erp/botica-erp/internal/platform/db"
	"github.com/botica-erp/botica-erp/internal/shared"
	"github.com/botica-erp/botica-erp/internal/wholesale"
	"github.com/botica-erp/botica-erp/jobs"
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

	metricClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := metricClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.NewMiddleware(authService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, metricClient, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo, auditLogger, logger)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	wholesaleRepo := wholesale.NewRepository(pool)
	wholesaleService := wholesale.NewService(wholesaleRepo, auditLogger, logger)
	wholesaleHandler := wholesale.NewHandler(logger, wholesaleService)

	expenseRepo := expense.NewRepository(pool)
	expenseService := expense.NewService(expenseRepo, auditLogger, logger)
	expenseHandler := expense.NewHandler(logger, expenseService)

	analyticsRepo := analytics.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient, cfg.CacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, inventoryService, analyticsCache, logger)
	analyticsHandler := analytics.NewHandler(logger, analyticsService)

	go func() {
		if err := analyticsCache.ListenForInvalidation(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("cache invalidation listener stopped", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthMiddleware:    authMiddleware,
		AuthHandler:       authHandler,
		InventoryHandler:  inventoryHandler,
		MasterDataHandler: masterdataHandler,
		WholesaleHandler:  wholesaleHandler,
		ExpenseHandler:    expenseHandler,
		AnalyticsHandler:  analyticsHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
