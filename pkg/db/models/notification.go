package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// Notification stores an in-app message for one recipient.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title       string                 `gorm:"column:title;type:text;not null"`
	Message     string                 `gorm:"column:message;type:text;not null"`
	EntityID    *uuid.UUID             `gorm:"column:entity_id;type:uuid"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
