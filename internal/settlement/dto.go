package settlement

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/internal/disputes"
	"github.com/angelmondragon/marketplace-escrow/internal/payouts"
	"github.com/angelmondragon/marketplace-escrow/internal/transactions"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// RecordPaymentInput is a capture-success event from the payment rail. A nil FeeCents
// applies the platform default.
type RecordPaymentInput struct {
	Actor         Actor
	ListingID     uuid.UUID
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	AmountCents   int64
	FeeCents      *int64
	PaymentMethod enums.PaymentMethod
	PaymentRef    string
}

type MarkShippedInput struct {
	Actor          Actor
	TransactionID  uuid.UUID
	TrackingNumber string
}

type ConfirmDeliveryInput struct {
	Actor         Actor
	TransactionID uuid.UUID
}

// MarkCompletedInput drives the administrative completion path. AutoCompleted marks
// calls made by the scheduler.
type MarkCompletedInput struct {
	Actor         Actor
	TransactionID uuid.UUID
	AutoCompleted bool
}

type RequestPayoutInput struct {
	Actor       Actor
	AmountCents int64
	Method      enums.PayoutMethod
	Details     string
}

type ResolvePayoutInput struct {
	Actor    Actor
	PayoutID uuid.UUID
	Decision enums.PayoutDecision
	Note     string
}

type OpenDisputeInput struct {
	Actor         Actor
	TransactionID uuid.UUID
	Reason        string
	Description   string
}

type ResolveDisputeInput struct {
	Actor      Actor
	DisputeID  uuid.UUID
	Decision   enums.DisputeDecision
	Resolution string
}

// PaymentResult reports the escrowed sale. Replayed is set when the payment reference
// had already been recorded.
type PaymentResult struct {
	Transaction transactions.View `json:"transaction"`
	Wallet      *wallet.Snapshot  `json:"seller_wallet,omitempty"`
	Replayed    bool              `json:"replayed"`
}

// TransactionResult reports a fulfillment transition. Wallet is set when the seller's
// wallet changed; Noop when the call was an idempotent replay.
type TransactionResult struct {
	Transaction transactions.View `json:"transaction"`
	Wallet      *wallet.Snapshot  `json:"seller_wallet,omitempty"`
	Noop        bool              `json:"noop"`
}

type DisputeResult struct {
	Dispute     disputes.View     `json:"dispute"`
	Transaction transactions.View `json:"transaction"`
	Wallet      *wallet.Snapshot  `json:"seller_wallet,omitempty"`
}

type PayoutResult struct {
	Payout payouts.View    `json:"payout"`
	Wallet wallet.Snapshot `json:"wallet"`
}
