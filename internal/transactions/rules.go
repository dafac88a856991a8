package transactions

import (
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

var shipmentTransitions = map[enums.ShipmentStatus][]enums.ShipmentStatus{
	enums.ShipmentStatusPendingShipment: {enums.ShipmentStatusShipped, enums.ShipmentStatusDelivered, enums.ShipmentStatusDispute},
	enums.ShipmentStatusShipped:         {enums.ShipmentStatusDelivered, enums.ShipmentStatusCompleted, enums.ShipmentStatusDispute},
	enums.ShipmentStatusDelivered:       {enums.ShipmentStatusCompleted, enums.ShipmentStatusDispute},
	enums.ShipmentStatusDispute:         {enums.ShipmentStatusCompleted, enums.ShipmentStatusReturned},
}

// CanTransition reports whether the shipment state machine allows from -> to.
func CanTransition(from, to enums.ShipmentStatus) bool {
	for _, next := range shipmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Disputable reports whether a buyer may still contest the sale.
func Disputable(txn *models.Transaction) bool {
	if txn.Status == enums.TransactionStatusCancelled {
		return false
	}
	return CanTransition(txn.ShipmentStatus, enums.ShipmentStatusDispute)
}

// CheckShip validates a seller's shipment of the sale.
func CheckShip(txn *models.Transaction) error {
	if txn.ShipmentStatus != enums.ShipmentStatusPendingShipment || txn.Status == enums.TransactionStatusCancelled {
		return invalidState("transaction cannot be shipped", txn)
	}
	return nil
}

// CheckConfirmDelivery validates a buyer's confirmation. Callers handle the
// already-released replay before calling it.
func CheckConfirmDelivery(txn *models.Transaction) error {
	if txn.FundsReleased {
		return invalidState("funds already released", txn)
	}
	switch txn.ShipmentStatus {
	case enums.ShipmentStatusPendingShipment, enums.ShipmentStatusShipped:
		return nil
	}
	return invalidState("delivery cannot be confirmed", txn)
}

// CheckComplete validates the administrative completion path.
func CheckComplete(txn *models.Transaction) error {
	if txn.Status == enums.TransactionStatusCancelled || !CanTransition(txn.ShipmentStatus, enums.ShipmentStatusCompleted) ||
		txn.ShipmentStatus == enums.ShipmentStatusDispute {
		return invalidState("transaction cannot be completed", txn)
	}
	return nil
}

func invalidState(message string, txn *models.Transaction) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, message).WithDetails(map[string]any{
		"status":          txn.Status,
		"shipment_status": txn.ShipmentStatus,
	})
}
