package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// PaymentRecordedEvent is emitted when a sale is paid and escrow is credited.
type PaymentRecordedEvent struct {
	TransactionID  uuid.UUID           `json:"transaction_id"`
	ListingID      uuid.UUID           `json:"listing_id"`
	BuyerID        uuid.UUID           `json:"buyer_id"`
	SellerID       uuid.UUID           `json:"seller_id"`
	AmountCents    int64               `json:"amount_cents"`
	FeeCents       int64               `json:"fee_cents"`
	NetAmountCents int64               `json:"net_amount_cents"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	PaymentRef     string              `json:"payment_ref,omitempty"`
}

// TransactionShippedEvent is emitted when the seller attaches a tracking number.
type TransactionShippedEvent struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	BuyerID        uuid.UUID `json:"buyer_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	TrackingNumber string    `json:"tracking_number"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// FundsReleasedEvent is emitted whenever escrowed funds reach a seller balance.
type FundsReleasedEvent struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	AmountCents   int64      `json:"amount_cents"`
	DisputeID     *uuid.UUID `json:"dispute_id,omitempty"`
	ReleasedAt    time.Time  `json:"released_at"`
}

// TransactionCompletedEvent is emitted when a transaction reaches COMPLETED.
type TransactionCompletedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	AutoCompleted bool      `json:"auto_completed"`
	CompletedAt   time.Time `json:"completed_at"`
}

// DisputeOpenedEvent is emitted when a party freezes a transaction.
type DisputeOpenedEvent struct {
	DisputeID     uuid.UUID `json:"dispute_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	RaisedBy      uuid.UUID `json:"raised_by"`
	Reason        string    `json:"reason"`
}

// DisputeResolvedEvent is emitted once an admin rules on a dispute.
type DisputeResolvedEvent struct {
	DisputeID     uuid.UUID             `json:"dispute_id"`
	TransactionID uuid.UUID             `json:"transaction_id"`
	Decision      enums.DisputeDecision `json:"decision"`
	Status        enums.DisputeStatus   `json:"status"`
	ResolvedBy    uuid.UUID             `json:"resolved_by"`
	AmountCents   int64                 `json:"amount_cents"`
}

// PayoutRequestedEvent is emitted when a seller earmarks balance for withdrawal.
type PayoutRequestedEvent struct {
	PayoutRequestID uuid.UUID          `json:"payout_request_id"`
	UserID          uuid.UUID          `json:"user_id"`
	AmountCents     int64              `json:"amount_cents"`
	Method          enums.PayoutMethod `json:"method"`
}

// PayoutResolvedEvent is emitted once an admin approves or rejects a payout.
type PayoutResolvedEvent struct {
	PayoutRequestID uuid.UUID            `json:"payout_request_id"`
	UserID          uuid.UUID            `json:"user_id"`
	AmountCents     int64                `json:"amount_cents"`
	Decision        enums.PayoutDecision `json:"decision"`
	Status          enums.PayoutStatus   `json:"status"`
	ProcessedBy     uuid.UUID            `json:"processed_by"`
}

// NotificationRequestedEvent fans an in-app notification out to external channels.
type NotificationRequestedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	RecipientID    uuid.UUID              `json:"recipient_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	EntityID       *uuid.UUID             `json:"entity_id,omitempty"`
}
