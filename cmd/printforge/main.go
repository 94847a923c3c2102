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

	"github.com/printforge/printforge/internal/app"
	"github.com/printforge/printforge/internal/auth"
	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/observability"
	"github.com/printforge/printforge/internal/orders"
	"github.com/printforge/printforge/internal/platform/cache"
	"github.com/printforge/printforge/internal/platform/db"
	"github.com/printforge/printforge/internal/pricing/books"
	"github.com/printforge/printforge/internal/production"
	"github.com/printforge/printforge/internal/shared"
	"github.com/printforge/printforge/internal/shipment"
	"github.com/printforge/printforge/jobs"
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

	metrics := observability.NewMetrics()
	idempotencyStore := shared.NewIdempotencyStore(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, redisClient, cfg.AuthTTL)
	guard := auth.NewMiddleware(logger, authService)
	authHandler := auth.NewHandler(logger, authService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, guard)

	booksRepo := books.NewRepository(pool)
	booksService := books.NewService(logger, booksRepo, redisClient, metrics)
	booksHandler := books.NewHandler(logger, booksService, guard)

	productionRepo := production.NewRepository(pool)
	productionService := production.NewService(logger, productionRepo)
	productionHandler := production.NewHandler(logger, productionService, guard)

	serviceability := shipment.NewHTTPServiceability(logger, nil, redisClient, cfg.CourierAPIURL, cfg.CourierAPIKey)

	mailClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init mail queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("mail queue close", slog.Any("error", err))
		}
	}()

	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(logger, orderRepo, catalogRepo, orders.ServiceConfig{
		Prices:             booksService,
		Serviceability:     serviceability,
		Idempotency:        idempotencyStore,
		Mail:               mailClient,
		Metrics:            metrics,
		ProductionLeadDays: cfg.ProductionLeadDays,
		PickupPincode:      cfg.PickupPincode,
	})

	courierRepo := shipment.NewRepository(pool)
	webhookService := shipment.NewWebhookService(logger, courierRepo, orderRepo, redisClient, metrics)
	shipmentHandler := shipment.NewHandler(logger, webhookService, serviceability)

	timelineBuilder := orders.NewTimelineBuilder(orderRepo, productionRepo, courierRepo, metrics)
	ordersHandler := orders.NewHandler(logger, orderService, timelineBuilder, guard)

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
		AuthHandler:       authHandler,
		CatalogHandler:    catalogHandler,
		PricingHandler:    booksHandler,
		OrdersHandler:     ordersHandler,
		ProductionHandler: productionHandler,
		ShipmentHandler:   shipmentHandler,
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
