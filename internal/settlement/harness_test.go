package settlement

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/internal/disputes"
	"github.com/angelmondragon/marketplace-escrow/internal/listings"
	"github.com/angelmondragon/marketplace-escrow/internal/notifications"
	"github.com/angelmondragon/marketplace-escrow/internal/payouts"
	"github.com/angelmondragon/marketplace-escrow/internal/transactions"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/square"
)

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notifications.NotifyInput
	err     error
}

func (f *fakeNotifier) Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.notices = append(f.notices, input)
	return &models.Notification{ID: uuid.New(), RecipientID: input.RecipientID, Type: input.Type}, nil
}

func (f *fakeNotifier) count(kind enums.NotificationType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, notice := range f.notices {
		if notice.Type == kind {
			n++
		}
	}
	return n
}

type fakeRefunds struct {
	mu    sync.Mutex
	calls []square.RefundParams
	err   error
}

func (f *fakeRefunds) RefundPayment(ctx context.Context, params square.RefundParams) (*square.RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return &square.RefundResult{RefundID: "rf_" + params.IdempotencyKey, Status: "PENDING"}, nil
}

type fakeCache struct {
	mu      sync.Mutex
	evicted []uuid.UUID
	err     error
}

func (f *fakeCache) Invalidate(ctx context.Context, ownerIDs ...uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, ownerIDs...)
	return f.err
}

type fakeMetrics struct {
	mu          sync.Mutex
	outcomes    map[string][]string
	alerts      map[string]int
	sideEffects map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		outcomes:    map[string][]string{},
		alerts:      map[string]int{},
		sideEffects: map[string]int{},
	}
}

func (f *fakeMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[operation] = append(f.outcomes[operation], outcome)
}

func (f *fakeMetrics) IncLedgerAlert(operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts[operation]++
}

func (f *fakeMetrics) IncSideEffectFailure(effect string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sideEffects[effect]++
}

type harness struct {
	t        *testing.T
	client   *db.Client
	svc      Service
	wallets  wallet.Service
	listings listings.Repository
	notifier *fakeNotifier
	refunds  *fakeRefunds
	cache    *fakeCache
	metrics  *fakeMetrics
}

var (
	admin  = Actor{ID: uuid.MustParse("00000000-0000-0000-0000-00000000a001"), Role: enums.ActorRoleAdmin}
	system = Actor{ID: uuid.MustParse("00000000-0000-0000-0000-00000000a002"), Role: enums.ActorRoleSystem}
)

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard})

	walletSvc, err := wallet.NewService(wallet.NewRepository(conn))
	require.NoError(t, err)

	h := &harness{
		t:        t,
		client:   client,
		wallets:  walletSvc,
		listings: listings.NewRepository(conn),
		notifier: &fakeNotifier{},
		refunds:  &fakeRefunds{},
		cache:    &fakeCache{},
		metrics:  newFakeMetrics(),
	}
	svc, err := NewService(ServiceParams{
		TxRunner:     client,
		Outbox:       outbox.NewService(outbox.NewRepository(conn), logg),
		Wallets:      walletSvc,
		Transactions: transactions.NewRepository(conn),
		Disputes:     disputes.NewRepository(conn),
		Payouts:      payouts.NewRepository(conn),
		Listings:     h.listings,
		Notifier:     h.notifier,
		Refunds:      h.refunds,
		Cache:        h.cache,
		Metrics:      h.metrics,
		Logger:       logg,
		Options:      opts,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func defaultOptions() Options {
	return Options{DefaultFeeBPS: 500, RefundsEnabled: true}
}

func (h *harness) listing(seller uuid.UUID, price int64) uuid.UUID {
	h.t.Helper()
	id := uuid.New()
	require.NoError(h.t, h.listings.Upsert(context.Background(), &models.Listing{
		ID:         id,
		SellerID:   seller,
		Title:      "Vintage camera",
		PriceCents: price,
		Available:  true,
	}))
	return id
}

// sale records a 1000 cent card sale with a 50 cent fee.
func (h *harness) sale(buyer, seller uuid.UUID) uuid.UUID {
	h.t.Helper()
	fee := int64(50)
	res, err := h.svc.RecordPayment(context.Background(), RecordPaymentInput{
		Actor:         system,
		ListingID:     h.listing(seller, 1000),
		BuyerID:       buyer,
		SellerID:      seller,
		AmountCents:   1000,
		FeeCents:      &fee,
		PaymentMethod: enums.PaymentMethodCard,
		PaymentRef:    "pay_" + uuid.NewString(),
	})
	require.NoError(h.t, err)
	return res.Transaction.ID
}

func (h *harness) ship(txID, seller uuid.UUID) {
	h.t.Helper()
	_, err := h.svc.MarkShipped(context.Background(), MarkShippedInput{
		Actor:          Actor{ID: seller, Role: enums.ActorRoleUser},
		TransactionID:  txID,
		TrackingNumber: "1Z999AA10123456784",
	})
	require.NoError(h.t, err)
}

func (h *harness) fund(owner uuid.UUID, cents int64) {
	h.t.Helper()
	require.NoError(h.t, h.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := h.wallets.Ledger(tx, wallet.Reference{Type: enums.WalletReferenceTransaction, ID: uuid.New()}).
			Credit(context.Background(), owner, cents, false)
		return err
	}))
}

func (h *harness) wallet(owner uuid.UUID) *models.Wallet {
	h.t.Helper()
	w, err := h.wallets.Get(context.Background(), owner)
	require.NoError(h.t, err)
	return w
}

func (h *harness) transaction(id uuid.UUID) *models.Transaction {
	h.t.Helper()
	txn, err := transactions.NewRepository(h.client.DB()).FindByID(context.Background(), id)
	require.NoError(h.t, err)
	return txn
}

func (h *harness) countEvents(eventType enums.OutboxEventType) int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func (h *harness) countEntries(owner uuid.UUID, entryType enums.WalletEntryType) int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.client.DB().Model(&models.WalletEntry{}).
		Where("owner_id = ? AND type = ?", owner, entryType).Count(&n).Error)
	return n
}

func user(id uuid.UUID) Actor {
	return Actor{ID: id, Role: enums.ActorRoleUser}
}
