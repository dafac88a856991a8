package enums

import "fmt"

// ShipmentStatus tracks fulfillment of a sale.
type ShipmentStatus string

const (
	ShipmentStatusPendingShipment ShipmentStatus = "PENDING_SHIPMENT"
	ShipmentStatusShipped         ShipmentStatus = "SHIPPED"
	ShipmentStatusDelivered       ShipmentStatus = "DELIVERED"
	ShipmentStatusCompleted       ShipmentStatus = "COMPLETED"
	ShipmentStatusDispute         ShipmentStatus = "DISPUTE"
	ShipmentStatusReturned        ShipmentStatus = "RETURNED"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPendingShipment,
	ShipmentStatusShipped,
	ShipmentStatusDelivered,
	ShipmentStatusCompleted,
	ShipmentStatusDispute,
	ShipmentStatusReturned,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfillment transition is expected.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusCompleted || s == ShipmentStatusReturned
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
