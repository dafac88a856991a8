package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/payloads"
)

// EventDescriptor ties an event type to the aggregate that owns it, the topic it is
// published on and the shape of its data.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row after its envelope and data have been checked.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry knows every event the relay may publish.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish, however often it is retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err so the relay dead-letters the row instead of retrying.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// describe builds a descriptor whose data decodes into T.
func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			out := new(T)
			if err := json.Unmarshal(raw, out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// NewEventRegistry wires settlement, dispute and notification events to the settlement
// topic and payout events to the payout topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.SettlementTopic == "":
		return nil, errors.New("settlement topic is required")
	case cfg.PayoutTopic == "":
		return nil, errors.New("payout topic is required")
	}

	settlement, payout := cfg.SettlementTopic, cfg.PayoutTopic
	descriptors := []EventDescriptor{
		describe[payloads.PaymentRecordedEvent](enums.EventPaymentRecorded, enums.AggregateTransaction, settlement),
		describe[payloads.TransactionShippedEvent](enums.EventTransactionShipped, enums.AggregateTransaction, settlement),
		describe[payloads.FundsReleasedEvent](enums.EventFundsReleased, enums.AggregateTransaction, settlement),
		describe[payloads.TransactionCompletedEvent](enums.EventTransactionCompleted, enums.AggregateTransaction, settlement),
		describe[payloads.DisputeOpenedEvent](enums.EventDisputeOpened, enums.AggregateDispute, settlement),
		describe[payloads.DisputeResolvedEvent](enums.EventDisputeResolved, enums.AggregateDispute, settlement),
		describe[payloads.NotificationRequestedEvent](enums.EventNotificationRequested, enums.AggregateNotification, settlement),
		describe[payloads.PayoutRequestedEvent](enums.EventPayoutRequested, enums.AggregatePayoutRequest, payout),
		describe[payloads.PayoutResolvedEvent](enums.EventPayoutResolved, enums.AggregatePayoutRequest, payout),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		if _, dup := reg.entries[desc.EventType]; dup {
			return nil, fmt.Errorf("event %s registered twice", desc.EventType)
		}
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics returns the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, 2)
	for _, desc := range r.entries {
		set[desc.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row against its descriptor and decodes the envelope data. Every
// failure is non-retryable: a malformed row stays malformed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, nonRetryable("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if envelope.Version < 1 || envelope.Version > outbox.CurrentVersion {
		return nil, nonRetryable("unsupported envelope version %d", envelope.Version)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
