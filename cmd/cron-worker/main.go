package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/marketplace-escrow/internal/cron"
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
)

const autoCompleteBatchSize = 100

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+lockEnv(cfg.App.Env)), 0)
	requireResource(logg, "cron lock", err)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), dbClient, outboxService)
	requireResource(logg, "notifications service", err)

	walletRepo := wallet.NewRepository(dbClient.DB())
	walletService, err := wallet.NewService(walletRepo)
	requireResource(logg, "wallet service", err)
	walletCache := wallet.NewCachedReader(walletService, redisClient, cfg.Settlement.WalletCacheTTL, logg)

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	transactionRepo := transactions.NewRepository(dbClient.DB())
	settlementService, err := settlement.NewService(settlement.ServiceParams{
		TxRunner:     dbClient,
		Outbox:       outboxService,
		Wallets:      walletService,
		Transactions: transactionRepo,
		Disputes:     disputes.NewRepository(dbClient.DB()),
		Payouts:      payouts.NewRepository(dbClient.DB()),
		Listings:     listings.NewRepository(dbClient.DB()),
		Notifier:     notificationsService,
		Cache:        walletCache,
		Metrics:      settlementMetrics,
		Logger:       logg,
		Options: settlement.Options{
			DefaultFeeBPS:  cfg.Settlement.DefaultFeeBPS,
			ReleaseBasis:   enums.ReleaseBasis(cfg.Settlement.DisputeReleaseBasis),
			RefundsEnabled: cfg.FeatureFlags.RefundsEnabled,
			Currency:       cfg.Square.Currency,
		},
	})
	requireResource(logg, "settlement service", err)

	autoComplete, err := cron.NewAutoCompleteJob(cron.AutoCompleteJobParams{
		Logger:       logg,
		Transactions: transactionRepo,
		Settlement:   settlementService,
		Metrics:      metricsCollector,
		ActorID:      cfg.Settlement.SystemActor(),
		After:        cfg.Settlement.AutoCompleteAfter,
		BatchSize:    autoCompleteBatchSize,
	})
	requireResource(logg, "auto-complete job", err)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Metrics:    metricsCollector,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	requireResource(logg, "outbox retention job", err)

	reconciler, err := wallet.NewReconciler(walletRepo, settlementMetrics, logg, cfg.Cron.ReconcileBatchSize)
	requireResource(logg, "wallet reconciler", err)
	reconcile, err := cron.NewWalletReconcileJob(cron.WalletReconcileJobParams{
		Logger:     logg,
		Reconciler: reconciler,
		Metrics:    metricsCollector,
	})
	requireResource(logg, "wallet reconcile job", err)

	registry := cron.NewRegistry(autoComplete, retention, reconcile)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	requireResource(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(cfg.Service.Kind),
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}
