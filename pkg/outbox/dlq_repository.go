package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
)

const (
	maxDLQErrorLen       = 1024
	defaultDeadLetterCap = 50
	maxDeadLetterCap     = 200
)

// ErrDeadLetterNotFound is returned when no DLQ entry exists for an event id.
var ErrDeadLetterNotFound = errors.New("dead letter not found")

// DLQRepository stores events the relay gave up on and lets operators requeue them.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := truncate(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List returns the most recent dead letters, newest first.
func (r *DLQRepository) List(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	switch {
	case limit <= 0:
		limit = defaultDeadLetterCap
	case limit > maxDeadLetterCap:
		limit = maxDeadLetterCap
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Replay puts a dead-lettered event back in the relay queue with a fresh attempt budget
// and removes its DLQ entry. If retention already purged the parked row it is rebuilt
// from the DLQ copy under the same id.
func (r *DLQRepository) Replay(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Order("failed_at DESC").First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeadLetterNotFound
			}
			return err
		}

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return fmt.Errorf("requeue outbox event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			row := models.OutboxEvent{
				ID:            entry.EventID,
				EventType:     entry.EventType,
				AggregateType: entry.AggregateType,
				AggregateID:   entry.AggregateID,
				Payload:       entry.Payload,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("rebuild outbox event: %w", err)
			}
		}
		return tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func truncate(message string, limit int) string {
	if len(message) <= limit {
		return message
	}
	return message[:limit]
}
