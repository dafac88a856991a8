package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/internal/transactions"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/money"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/payloads"
)

const maxTrackingNumberLength = 100

func (s *service) MarkShipped(ctx context.Context, input MarkShippedInput) (*TransactionResult, error) {
	if err := requireIdentity(input.Actor, input.TransactionID); err != nil {
		return nil, err
	}
	tracking := strings.TrimSpace(input.TrackingNumber)
	if len(tracking) > maxTrackingNumberLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number too long")
	}

	result := &TransactionResult{}
	_, err := s.run(ctx, "mark_shipped", func(tx *gorm.DB, uow *unitOfWork) error {
		txRepo := s.transactions.WithTx(tx)
		txn, err := lockTransaction(ctx, txRepo, input.TransactionID)
		if err != nil {
			return err
		}
		if input.Actor.ID != txn.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can mark the sale shipped")
		}
		if err := transactions.CheckShip(txn); err != nil {
			return err
		}

		now := s.now()
		txn.ShipmentStatus = enums.ShipmentStatusShipped
		txn.Status = enums.TransactionStatusShipped
		txn.ShippedAt = &now
		if tracking != "" {
			txn.TrackingNumber = &tracking
		}
		if err := txRepo.Save(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save transaction")
		}

		if err := s.emit(ctx, tx, input.Actor, outbox.DomainEvent{
			EventType:     enums.EventTransactionShipped,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Data: payloads.TransactionShippedEvent{
				TransactionID:  txn.ID,
				BuyerID:        txn.BuyerID,
				SellerID:       txn.SellerID,
				TrackingNumber: tracking,
				ShippedAt:      now,
			},
		}); err != nil {
			return err
		}

		message := "Your order is on its way."
		if tracking != "" {
			message = fmt.Sprintf("Your order is on its way. Tracking number: %s.", tracking)
		}
		uow.notify(txn.BuyerID, enums.NotificationTypeOrderShipped, txn.ID, "Order shipped", message)
		result.Transaction = transactions.NewView(txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmDelivery releases the escrowed net amount to the seller. The status flags and the
// release commit together or not at all; a repeat after release is a no-op success.
func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*TransactionResult, error) {
	if err := requireIdentity(input.Actor, input.TransactionID); err != nil {
		return nil, err
	}

	result := &TransactionResult{}
	_, err := s.run(ctx, "confirm_delivery", func(tx *gorm.DB, uow *unitOfWork) error {
		txRepo := s.transactions.WithTx(tx)
		txn, err := lockTransaction(ctx, txRepo, input.TransactionID)
		if err != nil {
			return err
		}
		if input.Actor.ID != txn.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm delivery")
		}
		if txn.FundsReleased && txn.BuyerConfirmed {
			uow.noop = true
			result.Transaction = transactions.NewView(txn)
			result.Noop = true
			return nil
		}
		if err := transactions.CheckConfirmDelivery(txn); err != nil {
			return err
		}

		now := s.now()
		txn.ShipmentStatus = enums.ShipmentStatusDelivered
		txn.BuyerConfirmed = true
		txn.ConfirmedAt = &now
		txn.DeliveredAt = &now

		w, err := s.release(ctx, tx, input.Actor, txn, nil)
		if err != nil {
			return err
		}
		txn.Status = enums.TransactionStatusCompleted
		if err := txRepo.Save(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save transaction")
		}

		uow.touchWallet(txn.SellerID)
		uow.notify(txn.SellerID, enums.NotificationTypeFundsReleased, txn.ID, "Funds released",
			fmt.Sprintf("The buyer confirmed delivery. %s is now available in your wallet.", money.Format(txn.NetAmountCents)))
		snap := wallet.NewSnapshot(w)
		result.Transaction = transactions.NewView(txn)
		result.Wallet = &snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkCompleted is the administrative settlement path. Funds still in escrow are released
// with it so that a completed sale never strands its hold.
func (s *service) MarkCompleted(ctx context.Context, input MarkCompletedInput) (*TransactionResult, error) {
	if !input.Actor.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an administrator can complete a sale")
	}
	if input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	result := &TransactionResult{}
	_, err := s.run(ctx, "mark_completed", func(tx *gorm.DB, uow *unitOfWork) error {
		txRepo := s.transactions.WithTx(tx)
		txn, err := lockTransaction(ctx, txRepo, input.TransactionID)
		if err != nil {
			return err
		}
		if txn.ShipmentStatus == enums.ShipmentStatusCompleted {
			uow.noop = true
			result.Transaction = transactions.NewView(txn)
			result.Noop = true
			return nil
		}
		if err := transactions.CheckComplete(txn); err != nil {
			return err
		}

		now := s.now()
		txn.ShipmentStatus = enums.ShipmentStatusCompleted
		txn.Status = enums.TransactionStatusCompleted
		txn.CompletedAt = &now

		if !txn.FundsReleased {
			w, err := s.release(ctx, tx, input.Actor, txn, nil)
			if err != nil {
				return err
			}
			snap := wallet.NewSnapshot(w)
			result.Wallet = &snap
			uow.touchWallet(txn.SellerID)
			uow.notify(txn.SellerID, enums.NotificationTypeFundsReleased, txn.ID, "Funds released",
				fmt.Sprintf("Your sale was completed. %s is now available in your wallet.", money.Format(txn.NetAmountCents)))
		}
		if err := txRepo.Save(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save transaction")
		}

		if err := s.emit(ctx, tx, input.Actor, outbox.DomainEvent{
			EventType:     enums.EventTransactionCompleted,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Data: payloads.TransactionCompletedEvent{
				TransactionID: txn.ID,
				BuyerID:       txn.BuyerID,
				SellerID:      txn.SellerID,
				AutoCompleted: input.AutoCompleted,
				CompletedAt:   now,
			},
		}); err != nil {
			return err
		}
		result.Transaction = transactions.NewView(txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// release moves the sale's net amount out of escrow and flips the release guard.
// The caller saves the transaction row.
func (s *service) release(ctx context.Context, tx *gorm.DB, actor Actor, txn *models.Transaction, disputeID *uuid.UUID) (*models.Wallet, error) {
	if txn.FundsReleased {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "funds already released")
	}
	w, err := s.ledger(tx, enums.WalletReferenceTransaction, txn.ID).ReleaseFromPendingToBalance(ctx, txn.SellerID, txn.NetAmountCents)
	if err != nil {
		return nil, err
	}
	now := s.now()
	txn.FundsReleased = true
	txn.ReleasedAt = &now

	if err := s.emit(ctx, tx, actor, outbox.DomainEvent{
		EventType:     enums.EventFundsReleased,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		Data: payloads.FundsReleasedEvent{
			TransactionID: txn.ID,
			SellerID:      txn.SellerID,
			AmountCents:   txn.NetAmountCents,
			DisputeID:     disputeID,
			ReleasedAt:    now,
		},
	}); err != nil {
		return nil, err
	}
	return w, nil
}

func lockTransaction(ctx context.Context, repo transactions.Repository, id uuid.UUID) (*models.Transaction, error) {
	txn, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return txn, nil
}

func requireIdentity(actor Actor, entityID uuid.UUID) error {
	if actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if entityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "id required")
	}
	return nil
}
