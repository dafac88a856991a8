package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketplace-escrow/api/routes"
	"github.com/angelmondragon/marketplace-escrow/internal/disputes"
	"github.com/angelmondragon/marketplace-escrow/internal/listings"
	"github.com/angelmondragon/marketplace-escrow/internal/notifications"
	"github.com/angelmondragon/marketplace-escrow/internal/payouts"
	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/internal/transactions"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/instance"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/metrics"
	"github.com/angelmondragon/marketplace-escrow/pkg/migrate"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/redis"
	"github.com/angelmondragon/marketplace-escrow/pkg/square"
)

const shutdownTimeout = 15 * time.Second

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

	cfg.Service.Kind = "api"

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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), dbClient, outboxService)
	requireResource(logg, "notifications service", err)

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()))
	requireResource(logg, "wallet service", err)
	walletReader := wallet.NewCachedReader(walletService, redisClient, cfg.Settlement.WalletCacheTTL, logg)

	transactionRepo := transactions.NewRepository(dbClient.DB())
	disputeRepo := disputes.NewRepository(dbClient.DB())
	payoutRepo := payouts.NewRepository(dbClient.DB())
	listingRepo := listings.NewRepository(dbClient.DB())

	transactionReader, err := transactions.NewReader(transactionRepo)
	requireResource(logg, "transaction reader", err)
	disputeReader, err := disputes.NewReader(disputeRepo)
	requireResource(logg, "dispute reader", err)
	payoutReader, err := payouts.NewReader(payoutRepo)
	requireResource(logg, "payout reader", err)
	listingService, err := listings.NewService(listingRepo)
	requireResource(logg, "listing service", err)

	var refunds settlement.RefundIssuer
	if cfg.Square.Enabled() {
		squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
		requireResource(logg, "square client", err)
		refunds = squareClient
	} else {
		logg.Warn(context.Background(), "square access token not configured; card refunds disabled")
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		TxRunner:     dbClient,
		Outbox:       outboxService,
		Wallets:      walletService,
		Transactions: transactionRepo,
		Disputes:     disputeRepo,
		Payouts:      payoutRepo,
		Listings:     listingRepo,
		Notifier:     notificationsService,
		Refunds:      refunds,
		Cache:        walletReader,
		Metrics:      metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
		Options: settlement.Options{
			DefaultFeeBPS:  cfg.Settlement.DefaultFeeBPS,
			ReleaseBasis:   enums.ReleaseBasis(cfg.Settlement.DisputeReleaseBasis),
			RefundsEnabled: cfg.FeatureFlags.RefundsEnabled,
			Currency:       cfg.Square.Currency,
		},
	})
	requireResource(logg, "settlement service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(cfg.Service.Kind),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.Handler(),
			routes.Services{
				Settlement:    settlementService,
				Listings:      listingService,
				Wallets:       walletService,
				WalletReader:  walletReader,
				Transactions:  transactionReader,
				Disputes:      disputeReader,
				Payouts:       payoutReader,
				Notifications: notificationsService,
				DeadLetters:   outbox.NewDLQRepository(dbClient.DB()),
			},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shutting down gracefully")
	}
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}
