package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// Wallet holds a seller's withdrawable balance and the two kinds of held funds.
// Columns are written only by the wallet ledger.
type Wallet struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID         uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	BalanceCents    int64     `gorm:"column:balance_cents;not null;default:0"`
	EscrowHeldCents int64     `gorm:"column:escrow_held_cents;not null;default:0"`
	PayoutHeldCents int64     `gorm:"column:payout_held_cents;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PendingCents is the total of funds held but not withdrawable.
func (w Wallet) PendingCents() int64 {
	return w.EscrowHeldCents + w.PayoutHeldCents
}

// WalletEntry is an append-only journal row for one ledger mutation.
type WalletEntry struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID          uuid.UUID                 `gorm:"column:wallet_id;type:uuid;not null;index"`
	OwnerID           uuid.UUID                 `gorm:"column:owner_id;type:uuid;not null"`
	Type              enums.WalletEntryType     `gorm:"column:type;type:text;not null"`
	AmountCents       int64                     `gorm:"column:amount_cents;not null"`
	BalanceDeltaCents int64                     `gorm:"column:balance_delta_cents;not null"`
	EscrowDeltaCents  int64                     `gorm:"column:escrow_delta_cents;not null"`
	PayoutDeltaCents  int64                     `gorm:"column:payout_delta_cents;not null"`
	ReferenceType     enums.WalletReferenceType `gorm:"column:reference_type;type:text"`
	ReferenceID       *uuid.UUID                `gorm:"column:reference_id;type:uuid"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
