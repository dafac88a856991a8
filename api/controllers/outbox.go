package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
)

// DeadLetterStore is the operator view over events the relay gave up on.
type DeadLetterStore interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type deadLetterView struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	ErrorReason   string    `json:"error_reason"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	AttemptCount  int       `json:"attempt_count"`
	FailedAt      time.Time `json:"failed_at"`
}

func newDeadLetterView(row models.OutboxDLQ) deadLetterView {
	view := deadLetterView{
		EventID:       row.EventID.String(),
		EventType:     string(row.EventType),
		AggregateType: string(row.AggregateType),
		AggregateID:   row.AggregateID.String(),
		ErrorReason:   string(row.ErrorReason),
		AttemptCount:  row.AttemptCount,
		FailedAt:      row.FailedAt,
	}
	if row.ErrorMessage != nil {
		view.ErrorMessage = *row.ErrorMessage
	}
	return view
}

// ListDeadLetters shows the newest dead-lettered outbox events.
func ListDeadLetters(store DeadLetterStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := store.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		views := make([]deadLetterView, 0, len(rows))
		for _, row := range rows {
			views = append(views, newDeadLetterView(row))
		}
		responses.WriteSuccess(w, views)
	}
}

// ReplayDeadLetter hands a dead-lettered event back to the relay.
func ReplayDeadLetter(store DeadLetterStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := store.Replay(r.Context(), eventID)
		switch {
		case errors.Is(err, outbox.ErrDeadLetterNotFound):
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
			return
		case err != nil:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay dead letter"))
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(r.Context(), map[string]any{
				"event_id":   entry.EventID.String(),
				"event_type": entry.EventType,
			}), "dead letter requeued")
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, newDeadLetterView(*entry))
	}
}
