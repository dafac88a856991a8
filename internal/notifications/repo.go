package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

// Repository stores in-app notifications. Every read and write is scoped to a recipient.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

type listNotificationsParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
	UnreadOnly  bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) inbox(ctx context.Context, recipientID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	query := r.inbox(ctx, params.RecipientID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var rows []models.Notification
	if err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, notificationCursor)
	return page, next, nil
}

func (r *gormRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.inbox(ctx, recipientID).Where("read_at IS NULL").Count(&count).Error
	return count, err
}

// MarkRead stamps read_at once. A notification that is already read is found but not updated.
func (r *gormRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	var row models.Notification
	err := r.inbox(ctx, recipientID).Where("id = ?", notificationID).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notificationMarkResult{}, nil
	case err != nil:
		return notificationMarkResult{}, err
	case row.ReadAt != nil:
		return notificationMarkResult{Found: true}, nil
	}

	result := r.inbox(ctx, recipientID).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}
	return notificationMarkResult{Found: true, Updated: result.RowsAffected > 0}, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	result := r.inbox(ctx, recipientID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}

func notificationCursor(row models.Notification) pagination.Cursor {
	return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
}
