package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/krishi-kendra/krishi-kendra/internal/app"
	"github.com/krishi-kendra/krishi-kendra/internal/auth"
	"github.com/krishi-kendra/krishi-kendra/internal/billing"
	"github.com/krishi-kendra/krishi-kendra/internal/catalog"
	"github.com/krishi-kendra/krishi-kendra/internal/observability"
	"github.com/krishi-kendra/krishi-kendra/internal/platform/cache"
	"github.com/krishi-kendra/krishi-kendra/internal/platform/db"
	"github.com/krishi-kendra/krishi-kendra/internal/purchases"
	"github.com/krishi-kendra/krishi-kendra/internal/reporting"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/internal/stock"
	"github.com/krishi-kendra/krishi-kendra/jobs"
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
	location, _ := cfg.Location()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "krishi_session", cfg.SessionSecret, cfg.SessionTTL)
	engine := stock.NewEngine(logger, metrics)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	reportCache := reporting.NewCache(redisClient, cfg.ReportCacheTTL)
	go func() {
		if err := reportCache.ListenForInvalidation(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("report cache listener stopped", slog.Any("error", err))
		}
	}()
	reportService := reporting.NewService(reporting.NewRepository(pool), reportCache,
		reporting.ServiceConfig{Location: location}, logger, jobClient)

	authService := auth.NewService(auth.NewRepository(pool), sessionManager, logger)
	catalogService := catalog.NewService(catalog.NewRepository(pool), logger, reportService)
	gstRate := decimal.NewFromFloat(cfg.GSTRate)
	billingService := billing.NewService(billing.NewRepository(pool), engine, billing.ServiceConfig{
		GSTRate:  &gstRate,
		Location: location,
	}, logger, metrics, reportService)
	purchaseService := purchases.NewService(purchases.NewRepository(pool), engine, purchases.ServiceConfig{
		CreditStock: cfg.PurchasesCreditStock,
		Location:    location,
	}, logger, reportService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		Metrics:          metrics,
		AuthHandler:      auth.NewHandler(logger, authService),
		CatalogHandler:   catalog.NewHandler(logger, catalogService, auth.RequireUser),
		BillingHandler:   billing.NewHandler(logger, billingService, auth.RequireUser),
		ReportingHandler: reporting.NewHandler(logger, reportService, auth.RequireUser),
		PurchasesHandler: purchases.NewHandler(logger, purchaseService, auth.RequireUser),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Ready: map[string]app.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
