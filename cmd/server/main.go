package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiranalabs/kirana/internal"
	"github.com/kiranalabs/kirana/internal/events"
	"github.com/kiranalabs/kirana/internal/handler"
	"github.com/kiranalabs/kirana/internal/handler/api"
	"github.com/kiranalabs/kirana/internal/handler/webhook"
	"github.com/kiranalabs/kirana/internal/jobs"
	"github.com/kiranalabs/kirana/internal/middleware"
	"github.com/kiranalabs/kirana/internal/payment"
	"github.com/kiranalabs/kirana/internal/postgres"
	"github.com/kiranalabs/kirana/internal/service"
	"github.com/kiranalabs/kirana/internal/telemetry"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Migrations run through database/sql; the application itself uses pgx.
	logger.Info().Msg("connecting to database")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info().Msg("running database migrations")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Stores
	catalogStore := postgres.NewCatalogStore(pool)
	orderStore := postgres.NewOrderStore(pool)

	// Payment provider
	provider, err := payment.NewRazorpayProvider(cfg.Razorpay)
	if err != nil {
		return fmt.Errorf("failed to initialize payment provider: %w", err)
	}

	// Messaging is optional; without it the sweep worker alone recovers
	// stuck stock decrements.
	var publisher events.Publisher
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		publisher = events.NewNATSPublisher(nc)
		logger.Info().Str("url", cfg.NATS.URL).Msg("connected to NATS")
	}

	// Telemetry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	businessMetrics := telemetry.NewBusinessMetrics(registry)
	httpMetrics := middleware.NewHTTPMetrics(registry, "kirana")

	// Services
	checkoutService := service.NewCheckoutService(catalogStore, provider, businessMetrics, logger)
	orderService := service.NewOrderService(orderStore, catalogStore, publisher, businessMetrics, logger)
	poller := service.NewConfirmationPoller(orderStore, cfg.Poll.Interval, cfg.Poll.MaxAttempts)

	// Background stock retry worker
	retryWorker := jobs.NewStockRetryWorker(orderService, orderStore, logger, cfg.Jobs.StockSweepInterval)
	if nc != nil {
		if err := retryWorker.Subscribe(nc); err != nil {
			return fmt.Errorf("failed to subscribe stock retry worker: %w", err)
		}
		defer retryWorker.Close()
	}
	go retryWorker.Run(ctx)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(httpMetrics.Middleware())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.BuyerIdentity())

	checkoutHandler := api.NewCheckoutHandler(checkoutService, logger)
	orderHandler := api.NewOrderHandler(orderService, poller)
	verifyHandler := api.NewVerifyHandler(provider)
	webhookHandler := webhook.NewRazorpayHandler(provider, orderService, businessMetrics, logger)

	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	e.POST("/api/checkout", checkoutHandler.CreateSession, middleware.RequireBuyer())
	e.POST("/api/payments/verify", verifyHandler.VerifyPayment)
	e.GET("/api/orders/by-payment/:paymentID", orderHandler.GetByPaymentID)
	e.GET("/api/orders/confirmation", orderHandler.AwaitConfirmation)

	e.POST("/webhooks/razorpay", webhookHandler.HandleWebhook)

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		logger.Info().Str("address", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
