package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/aquatrade/aquatrade-backend/api/routes"
	"github.com/aquatrade/aquatrade-backend/internal/deliveries"
	"github.com/aquatrade/aquatrade-backend/internal/ledger"
	"github.com/aquatrade/aquatrade-backend/internal/orders"
	"github.com/aquatrade/aquatrade-backend/internal/payments"
	"github.com/aquatrade/aquatrade-backend/internal/products"
	"github.com/aquatrade/aquatrade-backend/internal/provenance"
	"github.com/aquatrade/aquatrade-backend/internal/settlement"
	"github.com/aquatrade/aquatrade-backend/internal/withdrawals"
	"github.com/aquatrade/aquatrade-backend/pkg/config"
	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/geo"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/metrics"
	"github.com/aquatrade/aquatrade-backend/pkg/migrate"
	"github.com/aquatrade/aquatrade-backend/pkg/redis"
	"github.com/aquatrade/aquatrade-backend/pkg/security"
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

	marketMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	ledgerRepo := ledger.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	deliveriesRepo := deliveries.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)
	withdrawalsRepo := withdrawals.NewRepository(conn)
	provenanceRepo := provenance.NewRepository(conn)
	productsRepo := products.NewRepository(conn)

	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(ledgerService, decimal.NewFromInt(cfg.Payment.PlatformFee), logg, marketMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	resolver := geo.FallbackResolver{Primary: geo.NewRoutingClient()}
	ordersService, err := orders.NewService(ordersRepo, dbClient, resolver, orders.PricingFromConfig(cfg.Payment), cfg.Payment.DefaultDistanceKm, logg, marketMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	deliveriesService, err := deliveries.NewService(deliveriesRepo, ordersRepo, settlementService, dbClient, nil, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	paymentsGuard, err := payments.NewIdempotencyGuard(redisClient, cfg.Payment.WebhookIdemTTL, "payment")
	if err != nil {
		logg.Error(context.Background(), "failed to create payments idempotency guard", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:           paymentsRepo,
		OrdersRepo:     ordersRepo,
		DeliveriesRepo: deliveriesRepo,
		Ledger:         ledgerService,
		Tokens:         security.RandomTokenGenerator{},
		Guard:          paymentsGuard,
		Tx:             dbClient,
		Logger:         logg,
		Metrics:        marketMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	withdrawalsService, err := withdrawals.NewService(withdrawalsRepo, ledgerService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}

	provenanceService, err := provenance.NewService(provenanceRepo, dbClient, logg, marketMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create provenance service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(productsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersService,
			deliveriesService,
			ledgerService,
			ledgerRepo,
			withdrawalsService,
			paymentsService,
			provenanceService,
			productsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
