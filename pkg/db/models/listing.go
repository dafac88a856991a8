package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing mirrors the purchasable state of a catalog listing.
type Listing struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID   uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	Title      string    `gorm:"column:title;not null;default:''"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	Available  bool      `gorm:"column:available;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
