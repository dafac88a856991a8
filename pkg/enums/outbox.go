package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateTransaction   OutboxAggregateType = "transaction"
	AggregateDispute       OutboxAggregateType = "dispute"
	AggregatePayoutRequest OutboxAggregateType = "payout_request"
	AggregateNotification  OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransaction,
	AggregateDispute,
	AggregatePayoutRequest,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPaymentRecorded       OutboxEventType = "payment_recorded"
	EventTransactionShipped    OutboxEventType = "transaction_shipped"
	EventFundsReleased         OutboxEventType = "funds_released"
	EventTransactionCompleted  OutboxEventType = "transaction_completed"
	EventDisputeOpened         OutboxEventType = "dispute_opened"
	EventDisputeResolved       OutboxEventType = "dispute_resolved"
	EventPayoutRequested       OutboxEventType = "payout_requested"
	EventPayoutResolved        OutboxEventType = "payout_resolved"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentRecorded,
	EventTransactionShipped,
	EventFundsReleased,
	EventTransactionCompleted,
	EventDisputeOpened,
	EventDisputeResolved,
	EventPayoutRequested,
	EventPayoutResolved,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
