package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// Dispute is a buyer-raised contest over a transaction. Resolution is terminal.
type Dispute struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID uuid.UUID              `gorm:"column:transaction_id;type:uuid;not null;index"`
	BuyerID       uuid.UUID              `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID      uuid.UUID              `gorm:"column:seller_id;type:uuid;not null"`
	Reason        string                 `gorm:"column:reason;not null"`
	Description   string                 `gorm:"column:description;not null;default:''"`
	Status        enums.DisputeStatus    `gorm:"column:status;type:text;not null"`
	Decision      *enums.DisputeDecision `gorm:"column:decision;type:text"`
	Resolution    *string                `gorm:"column:resolution"`
	ResolvedBy    *uuid.UUID             `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt    *time.Time             `gorm:"column:resolved_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
