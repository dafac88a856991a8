package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// Transaction is one escrowed sale. NetAmountCents is fixed at creation.
type Transaction struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID      uuid.UUID               `gorm:"column:listing_id;type:uuid;not null;uniqueIndex"`
	BuyerID        uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID       uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	AmountCents    int64                   `gorm:"column:amount_cents;not null"`
	FeeCents       int64                   `gorm:"column:fee_cents;not null"`
	NetAmountCents int64                   `gorm:"column:net_amount_cents;not null"`
	Status         enums.TransactionStatus `gorm:"column:status;type:text;not null"`
	ShipmentStatus enums.ShipmentStatus    `gorm:"column:shipment_status;type:text;not null"`
	PaymentMethod  enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	PaymentRef     *string                 `gorm:"column:payment_ref;uniqueIndex"`
	TrackingNumber *string                 `gorm:"column:tracking_number"`
	BuyerConfirmed bool                    `gorm:"column:buyer_confirmed;not null;default:false"`
	ConfirmedAt    *time.Time              `gorm:"column:confirmed_at"`
	FundsReleased  bool                    `gorm:"column:funds_released;not null;default:false"`
	ReleasedAt     *time.Time              `gorm:"column:released_at"`
	ShippedAt      *time.Time              `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time              `gorm:"column:delivered_at"`
	CompletedAt    *time.Time              `gorm:"column:completed_at"`
	CancelledAt    *time.Time              `gorm:"column:cancelled_at"`
	RefundedAt     *time.Time              `gorm:"column:refunded_at"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// IsParty reports whether the actor is the buyer or the seller.
func (t Transaction) IsParty(actorID uuid.UUID) bool {
	return actorID == t.BuyerID || actorID == t.SellerID
}
