package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

func TestEmitPersistsEnvelope(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	aggregateID := uuid.New()
	actorID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   aggregateID,
			Actor:         &ActorRef{UserID: actorID, Role: "user"},
			Data:          map[string]string{"reason": "damaged"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var rows []models.OutboxEvent
	if err := client.DB().Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].AggregateID != aggregateID || rows[0].PublishedAt != nil {
		t.Fatalf("unexpected row %+v", rows[0])
	}
	var envelope PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != CurrentVersion || envelope.EventID != rows[0].ID.String() {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if envelope.Actor == nil || envelope.Actor.UserID != actorID {
		t.Fatalf("actor not carried: %+v", envelope.Actor)
	}
	if string(envelope.Data) != `{"reason":"damaged"}` {
		t.Fatalf("unexpected data %s", envelope.Data)
	}
}

func TestEmitRolledBackWithUnitOfWork(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventFundsReleased,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"amount_cents": 1},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	count, err := NewRepository(client.DB()).CountUnpublished(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows after rollback, got %d", count)
	}
}

func TestEmitRejectsUnknownEventAndMissingTx(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatalf("expected error without tx")
	}
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.OutboxEventType("unknown"),
			AggregateType: enums.AggregateTransaction,
			AggregateID:   uuid.New(),
		})
	})
	if err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	first := seedEvent(t, client.DB(), time.Now().Add(-2*time.Minute))
	second := seedEvent(t, client.DB(), time.Now().Add(-time.Minute))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		if err != nil {
			return err
		}
		if len(rows) != 2 || rows[0].ID != first.ID {
			t.Fatalf("unexpected fetch order %+v", rows)
		}
		if err := repo.MarkPublishedTx(tx, first.ID); err != nil {
			return err
		}
		if err := repo.MarkFailedTx(tx, second.ID, errors.New("pubsub down")); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("publish cycle: %v", err)
	}

	var reloaded models.OutboxEvent
	if err := client.DB().First(&reloaded, "id = ?", second.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.AttemptCount != 1 || reloaded.LastError == nil || *reloaded.LastError != "pubsub down" {
		t.Fatalf("failure not recorded: %+v", reloaded)
	}

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := repo.MarkTerminalTx(tx, second.ID, errors.New("gave up"), 3); err != nil {
			return err
		}
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		if err != nil {
			return err
		}
		if len(rows) != 0 {
			t.Fatalf("terminal row fetched again: %+v", rows)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("terminal cycle: %v", err)
	}
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	old := seedEvent(t, client.DB(), time.Now().Add(-48*time.Hour))
	recent := seedEvent(t, client.DB(), time.Now())
	pending := seedEvent(t, client.DB(), time.Now().Add(-72*time.Hour))

	oldPublished := time.Now().Add(-40 * time.Hour).UTC()
	recentPublished := time.Now().UTC()
	client.DB().Model(&models.OutboxEvent{}).Where("id = ?", old.ID).Update("published_at", oldPublished)
	client.DB().Model(&models.OutboxEvent{}).Where("id = ?", recent.ID).Update("published_at", recentPublished)

	if _, err := repo.DeletePublishedBefore(context.Background(), time.Now(), 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one deleted row, got %d", deleted)
	}
	var remaining int64
	client.DB().Model(&models.OutboxEvent{}).Where("id IN ?", []string{recent.ID.String(), pending.ID.String()}).Count(&remaining)
	if remaining != 2 {
		t.Fatalf("expected recent and pending rows kept, got %d", remaining)
	}
}

func TestDLQRepositoryInsertTruncates(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewDLQRepository(client.DB())

	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return repo.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  5,
		})
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := repo.List(context.Background(), 0)
	if err != nil || len(rows) != 1 {
		t.Fatalf("list: %v %d", err, len(rows))
	}
	if rows[0].EventID != eventID || len(*rows[0].ErrorMessage) != maxDLQErrorLen {
		t.Fatalf("message not truncated: %d", len(*rows[0].ErrorMessage))
	}
}

func TestDLQReplayRequeuesParkedEvent(t *testing.T) {
	client := dbtest.Open(t)
	outboxRepo := NewRepository(client.DB())
	dlq := NewDLQRepository(client.DB())

	parked := seedEvent(t, client.DB(), time.Now().Add(-time.Minute))
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := outboxRepo.MarkTerminalTx(tx, parked.ID, errors.New("topic missing"), 10); err != nil {
			return err
		}
		msg := "topic missing"
		return dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       parked.ID,
			EventType:     parked.EventType,
			AggregateType: parked.AggregateType,
			AggregateID:   parked.AggregateID,
			Payload:       parked.Payload,
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &msg,
			AttemptCount:  10,
		})
	})
	if err != nil {
		t.Fatalf("park: %v", err)
	}

	entry, err := dlq.Replay(context.Background(), parked.ID)
	if err != nil || entry.EventID != parked.ID {
		t.Fatalf("replay: %+v %v", entry, err)
	}

	var row models.OutboxEvent
	if err := client.DB().First(&row, "id = ?", parked.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.AttemptCount != 0 || row.LastError != nil {
		t.Fatalf("expected fresh attempt budget, got %+v", row)
	}
	if rows, _ := dlq.List(context.Background(), 10); len(rows) != 0 {
		t.Fatalf("expected dlq entry removed, got %d", len(rows))
	}
	if _, err := dlq.Replay(context.Background(), parked.ID); !errors.Is(err, ErrDeadLetterNotFound) {
		t.Fatalf("expected not found on second replay, got %v", err)
	}
}

func TestDLQReplayRebuildsPurgedEvent(t *testing.T) {
	client := dbtest.Open(t)
	dlq := NewDLQRepository(client.DB())

	eventID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		})
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := dlq.Replay(context.Background(), eventID); err != nil {
		t.Fatalf("replay: %v", err)
	}
	var row models.OutboxEvent
	if err := client.DB().First(&row, "id = ?", eventID).Error; err != nil {
		t.Fatalf("expected rebuilt row: %v", err)
	}
	if row.EventType != enums.EventPayoutRequested || row.PublishedAt != nil {
		t.Fatalf("unexpected rebuilt row %+v", row)
	}
}

func seedEvent(t *testing.T, db *gorm.DB, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPaymentRecorded,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt.UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed outbox event: %v", err)
	}
	return row
}

func TestEmitRequiresAggregateID(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventFundsReleased,
			AggregateType: enums.AggregateTransaction,
			Data:          map[string]int{"amount_cents": 1},
		})
	})
	if err == nil {
		t.Fatalf("expected error for missing aggregate id")
	}
}
