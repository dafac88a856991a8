package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

// Service defines notification delivery and list/read operations.
type Service interface {
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo      Repository
	tx        txRunner
	publisher outboxPublisher
}

// NotifyInput is one in-app message for a single recipient.
type NotifyInput struct {
	RecipientID uuid.UUID
	Type        enums.NotificationType
	Title       string
	Message     string
	EntityID    *uuid.UUID
}

// ListParams configures pagination for notifications.
type ListParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      string
	UnreadOnly  bool
}

// Item is the API view of a notification.
type Item struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	EntityID  *uuid.UUID             `json:"entity_id,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []Item `json:"items"`
	Cursor string `json:"cursor"`
	Unread int64  `json:"unread"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &service{repo: repo, tx: tx, publisher: publisher}, nil
}

// Notify persists the in-app row and queues the fan-out event in one unit of work.
func (s *service) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	if input.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}

	notification := &models.Notification{
		ID:          uuid.New(),
		RecipientID: input.RecipientID,
		Type:        input.Type,
		Title:       title,
		Message:     message,
		EntityID:    input.EntityID,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}
		return s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   notification.ID,
			Data: payloads.NotificationRequestedEvent{
				NotificationID: notification.ID,
				RecipientID:    notification.RecipientID,
				Type:           notification.Type,
				Title:          notification.Title,
				Message:        notification.Message,
				EntityID:       notification.EntityID,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit notification event")
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	query := listNotificationsParams{
		RecipientID: params.RecipientID,
		Limit:       pagination.NormalizeLimit(params.Limit),
		UnreadOnly:  params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.RecipientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			ID:        row.ID,
			Type:      row.Type,
			Title:     row.Title,
			Message:   row.Message,
			EntityID:  row.EntityID,
			ReadAt:    row.ReadAt,
			CreatedAt: row.CreatedAt,
		})
	}
	return &ListResult{Items: items, Cursor: cursor, Unread: unread}, nil
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if recipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, recipientID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	count, err := s.repo.MarkAllRead(ctx, recipientID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
