package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/internal/disputes"
	"github.com/angelmondragon/marketplace-escrow/internal/listings"
	"github.com/angelmondragon/marketplace-escrow/internal/notifications"
	"github.com/angelmondragon/marketplace-escrow/internal/payouts"
	"github.com/angelmondragon/marketplace-escrow/internal/transactions"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/metrics"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgers interface {
	Ledger(tx *gorm.DB, ref wallet.Reference) wallet.Ledger
}

// Notifier delivers in-app notifications after commit.
type Notifier interface {
	Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error)
}

// RefundIssuer returns a captured card payment to the buyer.
type RefundIssuer interface {
	RefundPayment(ctx context.Context, params square.RefundParams) (*square.RefundResult, error)
}

// WalletCache drops cached wallet snapshots once their rows change.
type WalletCache interface {
	Invalidate(ctx context.Context, ownerIDs ...uuid.UUID) error
}

type settlementMetrics interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
	IncLedgerAlert(operation string)
	IncSideEffectFailure(effect string)
}

// Service is the settlement orchestrator. Every method is one unit of work across the
// transaction, dispute, payout and wallet aggregates it touches.
type Service interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentResult, error)
	MarkShipped(ctx context.Context, input MarkShippedInput) (*TransactionResult, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*TransactionResult, error)
	MarkCompleted(ctx context.Context, input MarkCompletedInput) (*TransactionResult, error)
	RequestPayout(ctx context.Context, input RequestPayoutInput) (*PayoutResult, error)
	ResolvePayout(ctx context.Context, input ResolvePayoutInput) (*PayoutResult, error)
	OpenDispute(ctx context.Context, input OpenDisputeInput) (*DisputeResult, error)
	ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*DisputeResult, error)
}

// Options carries the settlement policy knobs.
type Options struct {
	DefaultFeeBPS  int
	ReleaseBasis   enums.ReleaseBasis
	RefundsEnabled bool
	Currency       string
}

// ServiceParams wires the orchestrator. Notifier, Refunds, Cache and Metrics are optional.
type ServiceParams struct {
	TxRunner     txRunner
	Outbox       outboxPublisher
	Wallets      ledgers
	Transactions transactions.Repository
	Disputes     disputes.Repository
	Payouts      payouts.Repository
	Listings     listings.Repository
	Notifier     Notifier
	Refunds      RefundIssuer
	Cache        WalletCache
	Metrics      settlementMetrics
	Logger       *logger.Logger
	Options      Options
}

type service struct {
	tx           txRunner
	outbox       outboxPublisher
	wallets      ledgers
	transactions transactions.Repository
	disputes     disputes.Repository
	payouts      payouts.Repository
	listings     listings.Repository
	notifier     Notifier
	refunds      RefundIssuer
	cache        WalletCache
	metrics      settlementMetrics
	logg         *logger.Logger
	opts         Options
	now          func() time.Time
}

// NewService validates the dependencies and builds the orchestrator.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Wallets == nil:
		return nil, fmt.Errorf("wallet ledgers required")
	case params.Transactions == nil:
		return nil, fmt.Errorf("transactions repository required")
	case params.Disputes == nil:
		return nil, fmt.Errorf("disputes repository required")
	case params.Payouts == nil:
		return nil, fmt.Errorf("payouts repository required")
	case params.Listings == nil:
		return nil, fmt.Errorf("listings repository required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}

	opts := params.Options
	if opts.DefaultFeeBPS < 0 || opts.DefaultFeeBPS >= 10000 {
		return nil, fmt.Errorf("default fee bps must be in [0, 10000)")
	}
	if opts.ReleaseBasis == "" {
		opts.ReleaseBasis = enums.ReleaseBasisGross
	}
	if _, err := enums.ParseReleaseBasis(string(opts.ReleaseBasis)); err != nil {
		return nil, err
	}
	if opts.Currency == "" {
		opts.Currency = enums.CurrencyUSD.String()
	}
	currency, err := enums.ParseCurrency(opts.Currency)
	if err != nil {
		return nil, err
	}
	opts.Currency = currency.String()

	var m settlementMetrics = metrics.NewSettlementMetrics(nil)
	if params.Metrics != nil {
		m = params.Metrics
	}

	return &service{
		tx:           params.TxRunner,
		outbox:       params.Outbox,
		wallets:      params.Wallets,
		transactions: params.Transactions,
		disputes:     params.Disputes,
		payouts:      params.Payouts,
		listings:     params.Listings,
		notifier:     params.Notifier,
		refunds:      params.Refunds,
		cache:        params.Cache,
		metrics:      m,
		logg:         params.Logger,
		opts:         opts,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// run executes fn as one unit of work, then the effects it queued, then records the outcome.
func (s *service) run(ctx context.Context, operation string, fn func(tx *gorm.DB, uow *unitOfWork) error) (*unitOfWork, error) {
	start := time.Now()
	ctx = s.logg.WithOperation(ctx, operation)

	var uow *unitOfWork
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		uow = &unitOfWork{operation: operation}
		return fn(tx, uow)
	})
	if err != nil {
		uow = nil
		err = normalizeError(err)
		s.metrics.ObserveOperation(operation, string(pkgerrors.CodeOf(err)), time.Since(start))
		s.logFailure(ctx, operation, err)
		return nil, err
	}

	s.applyEffects(ctx, uow)
	outcome := metrics.OutcomeSuccess
	if uow.noop {
		outcome = metrics.OutcomeNoop
	}
	s.metrics.ObserveOperation(operation, outcome, time.Since(start))
	return uow, nil
}

func (s *service) logFailure(ctx context.Context, operation string, err error) {
	code := pkgerrors.CodeOf(err)
	logCtx := s.logg.WithField(ctx, "error_code", string(code))
	switch code {
	case pkgerrors.CodeInsufficientPending:
		s.metrics.IncLedgerAlert(operation)
		s.logg.Error(logCtx, "escrow hold does not cover release; ledger invariant broken", err)
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		s.logg.Error(logCtx, "settlement operation failed", err)
	default:
		s.logg.Info(logCtx, "settlement operation rejected: "+err.Error())
	}
}

// normalizeError keeps typed errors and classifies anything else as a dependency failure.
func normalizeError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement unit of work failed")
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, event outbox.DomainEvent) error {
	if actor.ID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(event.EventType))
	}
	return nil
}

func (s *service) ledger(tx *gorm.DB, refType enums.WalletReferenceType, refID uuid.UUID) wallet.Ledger {
	return s.wallets.Ledger(tx, wallet.Reference{Type: refType, ID: refID})
}
