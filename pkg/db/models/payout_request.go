package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// PayoutRequest is a seller withdrawal awaiting review. AmountCents never changes.
type PayoutRequest struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	AmountCents int64              `gorm:"column:amount_cents;not null"`
	Method      enums.PayoutMethod `gorm:"column:method;type:text;not null"`
	Details     string             `gorm:"column:details;not null"`
	Status      enums.PayoutStatus `gorm:"column:status;type:text;not null"`
	ReviewNote  *string            `gorm:"column:review_note"`
	ReviewedBy  *uuid.UUID         `gorm:"column:reviewed_by;type:uuid"`
	ResolvedAt  *time.Time         `gorm:"column:resolved_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
