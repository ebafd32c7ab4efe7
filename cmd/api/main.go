package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maiyoury/pkasla/api/routes"
	"github.com/maiyoury/pkasla/internal/catalog"
	"github.com/maiyoury/pkasla/internal/payments"
	"github.com/maiyoury/pkasla/internal/settlement"
	"github.com/maiyoury/pkasla/internal/webhooks"
	bakongwebhook "github.com/maiyoury/pkasla/internal/webhooks/bakong"
	stripewebhook "github.com/maiyoury/pkasla/internal/webhooks/stripe"
	"github.com/maiyoury/pkasla/pkg/bakong"
	"github.com/maiyoury/pkasla/pkg/config"
	"github.com/maiyoury/pkasla/pkg/db"
	"github.com/maiyoury/pkasla/pkg/logger"
	"github.com/maiyoury/pkasla/pkg/metrics"
	"github.com/maiyoury/pkasla/pkg/migrate"
	"github.com/maiyoury/pkasla/pkg/redis"
	"github.com/maiyoury/pkasla/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}
	bakongClient := bakong.NewClient(cfg.Bakong, logg)

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	settlementService, err := settlement.NewService(settlement.ServiceParams{
		DB:      dbClient.DB(),
		Repo:    settlement.NewRepository(dbClient.DB()),
		Logger:  logg,
		Metrics: settlementMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo: catalog.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	paymentsRepo := payments.NewRepository(dbClient.DB())
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:       paymentsRepo,
		Catalog:    catalogService,
		Card:       stripeClient,
		QR:         bakongClient,
		Reconciler: settlementService,
		Limiter:    redisClient,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	guard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Transactions: paymentsRepo,
		Reconciler:   settlementService,
		Guard:        guard,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	bakongWebhookService, err := bakongwebhook.NewService(bakongwebhook.ServiceParams{
		Reconciler: settlementService,
		Guard:      guard,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bakong webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Payments:      paymentsService,
			StripeClient:  stripeClient,
			StripeWebhook: stripeWebhookService,
			BakongWebhook: bakongWebhookService,
			AuthRecorder:  settlementService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
