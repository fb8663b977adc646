package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/tipflow-backend/api/routes"
	"github.com/angelmondragon/tipflow-backend/internal/billing"
	"github.com/angelmondragon/tipflow-backend/internal/checkout"
	"github.com/angelmondragon/tipflow-backend/internal/invites"
	"github.com/angelmondragon/tipflow-backend/internal/tenants"
	"github.com/angelmondragon/tipflow-backend/internal/tips"
	stripewebhook "github.com/angelmondragon/tipflow-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/tipflow-backend/pkg/config"
	"github.com/angelmondragon/tipflow-backend/pkg/db"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
	"github.com/angelmondragon/tipflow-backend/pkg/metrics"
	"github.com/angelmondragon/tipflow-backend/pkg/migrate"
	"github.com/angelmondragon/tipflow-backend/pkg/outbox"
	"github.com/angelmondragon/tipflow-backend/pkg/redis"
	"github.com/angelmondragon/tipflow-backend/pkg/stripe"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	stripeClient := stripe.NewClient(cfg.Stripe)

	gormDB := dbClient.DB()
	tenantsRepo := tenants.NewRepository(gormDB)
	tipsRepo := tips.NewRepository(gormDB)
	sessionsRepo := checkout.NewRepository(gormDB)
	plansRepo := billing.NewRepository(gormDB)
	resolver := tips.NewResolver(tenantsRepo)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tenants:  tenantsRepo,
		Tips:     tipsRepo,
		Sessions: sessionsRepo,
		Plans:    plansRepo,
		Provider: checkout.NewProviderClient(stripeClient),
		Resolver: resolver,
		Logger:   logg,
		Checkout: cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	tipsService, err := tips.NewService(tipsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tips service", err)
		os.Exit(1)
	}

	tenantsService, err := tenants.NewService(tenantsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tenants service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(plansRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	invitesService, err := invites.NewService(invites.NewRepository(gormDB), cfg.Invites, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create invites service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Ledger:            stripewebhook.NewLedger(gormDB),
		Sessions:          sessionsRepo,
		Tips:              tipsRepo,
		Tenants:           tenantsRepo,
		Resolver:          resolver,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           webhookMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
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
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			Registry:             registry,
			CheckoutService:      checkoutService,
			TipsService:          tipsService,
			TenantsService:       tenantsService,
			BillingService:       billingService,
			InvitesService:       invitesService,
			StripeClient:         stripeClient,
			StripeWebhookService: webhookService,
			WebhookMetrics:       webhookMetrics,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
