package enums

import "fmt"

// NotificationType maps to the notification_type column.
type NotificationType string

const (
	NotificationTypeSaleRecorded    NotificationType = "sale_recorded"
	NotificationTypeOrderShipped    NotificationType = "order_shipped"
	NotificationTypeFundsReleased   NotificationType = "funds_released"
	NotificationTypeDisputeOpened   NotificationType = "dispute_opened"
	NotificationTypeDisputeResolved NotificationType = "dispute_resolved"
	NotificationTypePayoutRequested NotificationType = "payout_requested"
	NotificationTypePayoutResolved  NotificationType = "payout_resolved"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeSaleRecorded,
	NotificationTypeOrderShipped,
	NotificationTypeFundsReleased,
	NotificationTypeDisputeOpened,
	NotificationTypeDisputeResolved,
	NotificationTypePayoutRequested,
	NotificationTypePayoutResolved,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
