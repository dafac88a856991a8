package transactions

import (
	"testing"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.ShipmentStatus
		want     bool
	}{
		{enums.ShipmentStatusPendingShipment, enums.ShipmentStatusShipped, true},
		{enums.ShipmentStatusShipped, enums.ShipmentStatusDelivered, true},
		{enums.ShipmentStatusDelivered, enums.ShipmentStatusCompleted, true},
		{enums.ShipmentStatusDelivered, enums.ShipmentStatusDispute, true},
		{enums.ShipmentStatusDispute, enums.ShipmentStatusReturned, true},
		{enums.ShipmentStatusShipped, enums.ShipmentStatusReturned, false},
		{enums.ShipmentStatusCompleted, enums.ShipmentStatusDispute, false},
		{enums.ShipmentStatusReturned, enums.ShipmentStatusCompleted, false},
		{enums.ShipmentStatusDelivered, enums.ShipmentStatusShipped, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCheckShip(t *testing.T) {
	txn := &models.Transaction{Status: enums.TransactionStatusPending, ShipmentStatus: enums.ShipmentStatusPendingShipment}
	if err := CheckShip(txn); err != nil {
		t.Fatalf("expected shippable, got %v", err)
	}
	txn.ShipmentStatus = enums.ShipmentStatusDelivered
	if err := CheckShip(txn); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestCheckConfirmDelivery(t *testing.T) {
	txn := &models.Transaction{Status: enums.TransactionStatusShipped, ShipmentStatus: enums.ShipmentStatusShipped}
	if err := CheckConfirmDelivery(txn); err != nil {
		t.Fatalf("expected confirmable, got %v", err)
	}
	for _, status := range []enums.ShipmentStatus{enums.ShipmentStatusDispute, enums.ShipmentStatusReturned, enums.ShipmentStatusCompleted} {
		txn.ShipmentStatus = status
		if err := CheckConfirmDelivery(txn); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
			t.Fatalf("%s: expected invalid state, got %v", status, err)
		}
	}
	txn.ShipmentStatus = enums.ShipmentStatusShipped
	txn.FundsReleased = true
	if err := CheckConfirmDelivery(txn); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("released funds must not confirm again, got %v", err)
	}
}

func TestCheckCompleteAndDisputable(t *testing.T) {
	txn := &models.Transaction{Status: enums.TransactionStatusShipped, ShipmentStatus: enums.ShipmentStatusShipped}
	if err := CheckComplete(txn); err != nil {
		t.Fatalf("expected completable, got %v", err)
	}
	if !Disputable(txn) {
		t.Fatal("shipped sale should be disputable")
	}

	txn.ShipmentStatus = enums.ShipmentStatusDispute
	if err := CheckComplete(txn); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("disputed sale must not complete administratively, got %v", err)
	}
	if Disputable(txn) {
		t.Fatal("disputed sale cannot be disputed twice")
	}

	txn.ShipmentStatus = enums.ShipmentStatusPendingShipment
	if err := CheckComplete(txn); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("unshipped sale must not complete, got %v", err)
	}

	txn.Status = enums.TransactionStatusCancelled
	if Disputable(txn) {
		t.Fatal("cancelled sale is not disputable")
	}
}
