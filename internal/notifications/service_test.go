package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	paginationpkg "github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

type fakeRepository struct {
	created       []*models.Notification
	createErr     error
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error)
	markReadFn    func(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)
	unread        int64
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return f.unread, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, recipientID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, recipientID, now)
	}
	return 0, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakePublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo, fakeTxRunner{}, &fakePublisher{})
	return svc
}

func TestService_Notify(t *testing.T) {
	repo := &fakeRepository{}
	publisher := &fakePublisher{}
	svc, err := NewService(repo, fakeTxRunner{}, publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	entityID := uuid.New()
	recipient := uuid.New()
	n, err := svc.Notify(context.Background(), NotifyInput{
		RecipientID: recipient,
		Type:        enums.NotificationTypeDisputeOpened,
		Title:       " Dispute opened ",
		Message:     "The buyer opened a dispute.",
		EntityID:    &entityID,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.Title != "Dispute opened" || n.RecipientID != recipient {
		t.Fatalf("unexpected notification %+v", n)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one row, got %d", len(repo.created))
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventNotificationRequested {
		t.Fatalf("expected notification event, got %+v", publisher.events)
	}
	if publisher.events[0].AggregateID != n.ID {
		t.Fatalf("event aggregate %s does not match notification %s", publisher.events[0].AggregateID, n.ID)
	}
}

func TestService_NotifyValidation(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	cases := map[string]NotifyInput{
		"missing recipient": {Type: enums.NotificationTypeSaleRecorded, Title: "t", Message: "m"},
		"unknown type":      {RecipientID: uuid.New(), Type: "bogus", Title: "t", Message: "m"},
		"blank message":     {RecipientID: uuid.New(), Type: enums.NotificationTypeSaleRecorded, Title: "t", Message: "  "},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Notify(context.Background(), input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_NotifyPublisherFailure(t *testing.T) {
	svc, _ := NewService(&fakeRepository{}, fakeTxRunner{}, &fakePublisher{err: errors.New("boom")})
	_, err := svc.Notify(context.Background(), NotifyInput{
		RecipientID: uuid.New(),
		Type:        enums.NotificationTypeFundsReleased,
		Title:       "Funds released",
		Message:     "Funds are available.",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_ListNotifications(t *testing.T) {
	first := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)}
	second := models.Notification{ID: uuid.New(), CreatedAt: time.Now()}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			if params.Limit != 1 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return []models.Notification{first}, &paginationpkg.Cursor{CreatedAt: second.CreatedAt, ID: second.ID}, nil
		},
		unread: 7,
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New(), Limit: 1})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 || result.Unread != 7 {
		t.Fatalf("expected 1 notification and 7 unread, got %d and %d", len(result.Items), result.Unread)
	}
	if result.Cursor == "" {
		t.Fatal("expected cursor for next page")
	}
	decoded, err := paginationpkg.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("invalid cursor %q: %v", result.Cursor, err)
	}
	if decoded.ID != second.ID {
		t.Fatalf("expected cursor id %s got %s", second.ID, decoded.ID)
	}
}

func TestService_ListNotificationsInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New(), Cursor: "bad"})
	if err == nil {
		t.Fatal("expected error for invalid cursor")
	}
	errCode := pkgerrors.As(err).Code()
	if errCode != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", errCode)
	}
}

func TestService_MarkRead(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: true, Updated: true}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("unexpected mark read error: %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Fatal("expected not found error")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	svc := newServiceWithRepo(repo)
	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected mark all read error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 updated rows, got %d", count)
	}
}

func TestService_MarkAllReadError(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
			return 0, errors.New("boom")
		},
	}
	svc := newServiceWithRepo(repo)
	if _, err := svc.MarkAllRead(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRepositoryPaginatesAndScopesByRecipient(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, outbox.NewService(outbox.NewRepository(client.DB()), nil))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	recipient := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := repo.Create(context.Background(), &models.Notification{
			RecipientID: recipient,
			Type:        enums.NotificationTypeSaleRecorded,
			Title:       "Sale",
			Message:     "Sold",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := svc.Notify(context.Background(), NotifyInput{
		RecipientID: uuid.New(),
		Type:        enums.NotificationTypeSaleRecorded,
		Title:       "Other",
		Message:     "Someone else",
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	seen := map[uuid.UUID]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := svc.List(context.Background(), ListParams{RecipientID: recipient, Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		pages++
		for _, item := range page.Items {
			if seen[item.ID] {
				t.Fatalf("notification %s returned twice", item.ID)
			}
			seen[item.ID] = true
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	if len(seen) != 5 || pages != 3 {
		t.Fatalf("expected 5 notifications over 3 pages, got %d over %d", len(seen), pages)
	}

	var events int64
	if err := client.DB().Model(&models.OutboxEvent{}).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one notification event, got %d", events)
	}

	var target models.Notification
	if err := client.DB().Where("recipient_id = ?", recipient).First(&target).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := svc.MarkRead(context.Background(), recipient, target.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := svc.MarkRead(context.Background(), recipient, target.ID); err != nil {
		t.Fatalf("mark read twice: %v", err)
	}
	first, err := svc.List(context.Background(), ListParams{RecipientID: recipient, Limit: 1})
	if err != nil {
		t.Fatalf("list after read: %v", err)
	}
	if first.Unread != 4 {
		t.Fatalf("expected 4 unread after marking one, got %d", first.Unread)
	}
	if err := svc.MarkRead(context.Background(), uuid.New(), target.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign recipient, got %v", err)
	}
	count, err := svc.MarkAllRead(context.Background(), recipient)
	if err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 remaining unread, got %d", count)
	}
}
