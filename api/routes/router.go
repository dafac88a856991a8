package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/controllers"
	"github.com/angelmondragon/marketplace-escrow/api/middleware"
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
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/redis"
)

// edgeStore is the redis surface used at the API edge.
type edgeStore interface {
	redis.IdempotencyStore
	redis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type snapshotReader interface {
	Get(ctx context.Context, ownerID uuid.UUID) (wallet.Snapshot, error)
}

// Services carries everything the HTTP surface calls into. Nil readers make their
// routes answer INTERNAL_ERROR rather than panic.
type Services struct {
	Settlement    settlement.Service
	Listings      listings.Service
	Wallets       wallet.Service
	WalletReader  snapshotReader
	Transactions  transactions.Reader
	Disputes      disputes.Reader
	Payouts       payouts.Reader
	Notifications notifications.Service
	DeadLetters   controllers.DeadLetterStore
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store edgeStore,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	policy := middleware.NewRateLimitPolicy(
		"api",
		cfg.HTTP.RateLimitWindow,
		cfg.HTTP.RateLimitPerUser,
		cfg.HTTP.RateLimitPerIP,
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["database"] = dbP
	}
	if store != nil {
		deps["redis"] = store
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if store != nil {
			r.Use(middleware.RateLimit(policy, store, logg))
			r.Use(middleware.Idempotency(store, cfg.HTTP.IdempotencyTTL, logg))
		}

		r.Route("/internal/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleSystem))
			r.Post("/payments/captured", controllers.RecordPayment(svc.Settlement, logg))
			r.Put("/listings/{listingId}", controllers.UpsertListing(svc.Listings, logg))
		})

		r.Route("/v1", func(r chi.Router) {
			r.Get("/wallet", controllers.GetWallet(svc.WalletReader, logg))
			r.Get("/wallet/entries", controllers.ListWalletEntries(svc.Wallets, logg))

			r.Route("/transactions/{transactionId}", func(r chi.Router) {
				r.Get("/", controllers.GetTransaction(svc.Transactions, logg))
				r.Post("/ship", controllers.ShipTransaction(svc.Settlement, logg))
				r.Post("/confirm-delivery", controllers.ConfirmDelivery(svc.Settlement, logg))
				r.Post("/disputes", controllers.OpenDispute(svc.Settlement, logg))
			})

			r.Post("/payouts", controllers.RequestPayout(svc.Settlement, logg))
			r.Get("/payouts", controllers.ListMyPayouts(svc.Payouts, logg))

			r.Get("/notifications", controllers.ListNotifications(svc.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleSystem))
			r.Post("/transactions/{transactionId}/complete", controllers.CompleteTransaction(svc.Settlement, logg))
			r.Get("/disputes", controllers.ListDisputes(svc.Disputes, logg))
			r.Post("/disputes/{disputeId}/resolve", controllers.ResolveDispute(svc.Settlement, logg))
			r.Get("/payouts", controllers.ListPayouts(svc.Payouts, logg))
			r.Post("/payouts/{payoutId}/resolve", controllers.ResolvePayout(svc.Settlement, logg))
			r.Get("/outbox/dead-letters", controllers.ListDeadLetters(svc.DeadLetters, logg))
			r.Post("/outbox/dead-letters/{eventId}/replay", controllers.ReplayDeadLetter(svc.DeadLetters, logg))
		})
	})

	return r
}
