package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/registry"
)

// processBatch claims one batch and settles every row in it. Once a row for an aggregate
// fails, later rows for that aggregate stay untouched until the failed row goes through.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.settings.batchSize, s.settings.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0

		blocked := map[uuid.UUID]uuid.UUID{}
		for _, event := range events {
			if failedID, ok := blocked[event.AggregateID]; ok {
				s.logg.Info(s.logg.WithFields(ctx, map[string]any{
					"outbox_id":    event.ID.String(),
					"aggregate_id": event.AggregateID.String(),
					"blocked_by":   failedID.String(),
				}), "outbox event held behind failed predecessor")
				continue
			}
			delivered, err := s.dispatch(ctx, tx, event)
			if err != nil {
				return err
			}
			if !delivered {
				blocked[event.AggregateID] = event.ID
			}
		}
		return nil
	})
	return processed, err
}

// dispatch publishes one row and records the outcome on it. It reports whether the row
// left the queue in order; rows that will be retried return false.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (bool, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return true, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, newEventFields(event, nil))
	}

	fields := newEventFields(event, resolved)
	err = s.publish(ctx, event, resolved)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return false, fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.metrics.IncPublished(string(event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return true, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return true, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.settings.maxAttempts {
		return true, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
	s.logg.Warn(logCtx, "outbox publish failed")
	s.metrics.IncFailed(string(event.EventType))
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return false, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return false, nil
}

// deadLetter copies the row into the DLQ and parks it so the relay never claims it again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(logCtx, "outbox event dead-lettered")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.settings.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(event.EventType), string(reason))
	return nil
}

func newEventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
			fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		}
	}
	return fields
}
