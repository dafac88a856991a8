package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/internal/disputes"
	"github.com/angelmondragon/marketplace-escrow/internal/transactions"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/money"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/payloads"
)

const maxResolutionLength = 4000

// OpenDispute freezes the sale. Escrow stays where it is until an admin rules.
func (s *service) OpenDispute(ctx context.Context, input OpenDisputeInput) (*DisputeResult, error) {
	if err := requireIdentity(input.Actor, input.TransactionID); err != nil {
		return nil, err
	}
	reason, description, err := disputes.ValidateOpen(input.Reason, input.Description)
	if err != nil {
		return nil, err
	}

	result := &DisputeResult{}
	_, err = s.run(ctx, "open_dispute", func(tx *gorm.DB, uow *unitOfWork) error {
		txRepo := s.transactions.WithTx(tx)
		disputeRepo := s.disputes.WithTx(tx)

		txn, err := lockTransaction(ctx, txRepo, input.TransactionID)
		if err != nil {
			return err
		}
		if input.Actor.ID != txn.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can open a dispute")
		}

		open, err := disputeRepo.FindOpenByTransaction(ctx, txn.ID)
		switch {
		case err == nil:
			return pkgerrors.New(pkgerrors.CodeConflict, "transaction already has an open dispute").WithDetails(map[string]any{
				"dispute_id": open.ID,
			})
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup open dispute")
		}
		if !transactions.Disputable(txn) {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "transaction can no longer be disputed").WithDetails(map[string]any{
				"status":          txn.Status,
				"shipment_status": txn.ShipmentStatus,
			})
		}

		txn.ShipmentStatus = enums.ShipmentStatusDispute
		if err := txRepo.Save(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save transaction")
		}

		dispute := &models.Dispute{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			BuyerID:       txn.BuyerID,
			SellerID:      txn.SellerID,
			Reason:        reason,
			Description:   description,
			Status:        enums.DisputeStatusOpen,
		}
		if err := disputeRepo.Create(ctx, dispute); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction already has an open dispute")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		if err := s.emit(ctx, tx, input.Actor, outbox.DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Data: payloads.DisputeOpenedEvent{
				DisputeID:     dispute.ID,
				TransactionID: txn.ID,
				RaisedBy:      input.Actor.ID,
				Reason:        reason,
			},
		}); err != nil {
			return err
		}

		uow.notify(txn.SellerID, enums.NotificationTypeDisputeOpened, dispute.ID, "Dispute opened",
			fmt.Sprintf("The buyer disputed your sale: %s. Funds stay in escrow until it is resolved.", reason))
		result.Dispute = disputes.NewView(dispute)
		result.Transaction = transactions.NewView(txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveDispute applies an admin ruling. Locks are taken transaction first, then dispute,
// then wallet, the same order every other operation uses.
func (s *service) ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*DisputeResult, error) {
	if !input.Actor.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an administrator can resolve disputes")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.DisputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be REFUND_BUYER or RELEASE_SELLER")
	}
	resolution := strings.TrimSpace(input.Resolution)
	if len(resolution) > maxResolutionLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution too long")
	}

	result := &DisputeResult{}
	_, err := s.run(ctx, "resolve_dispute", func(tx *gorm.DB, uow *unitOfWork) error {
		disputeRepo := s.disputes.WithTx(tx)
		txRepo := s.transactions.WithTx(tx)

		ref, err := disputeRepo.FindByID(ctx, input.DisputeID)
		if err != nil {
			return notFoundOr(err, "dispute not found", "load dispute")
		}
		txn, err := lockTransaction(ctx, txRepo, ref.TransactionID)
		if err != nil {
			return err
		}
		dispute, err := disputeRepo.FindByIDForUpdate(ctx, input.DisputeID)
		if err != nil {
			return notFoundOr(err, "dispute not found", "load dispute")
		}
		if err := disputes.CheckResolvable(dispute); err != nil {
			return err
		}

		var (
			w      *models.Wallet
			amount int64
		)
		switch input.Decision {
		case enums.DisputeDecisionRefundBuyer:
			w, amount, err = s.refundBuyer(ctx, tx, txn, dispute.ID)
			if err != nil {
				return err
			}
			uow.refund = s.refundFor(txn)
		case enums.DisputeDecisionReleaseSeller:
			w, amount, err = s.releaseSeller(ctx, tx, input.Actor, txn, dispute.ID)
			if err != nil {
				return err
			}
		}
		if err := txRepo.Save(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save transaction")
		}

		now := s.now()
		decision := input.Decision
		resolvedBy := input.Actor.ID
		dispute.Status = decision.ResolvedStatus()
		dispute.Decision = &decision
		dispute.ResolvedBy = &resolvedBy
		dispute.ResolvedAt = &now
		if resolution != "" {
			dispute.Resolution = &resolution
		}
		if err := disputeRepo.Save(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save dispute")
		}

		if err := s.emit(ctx, tx, input.Actor, outbox.DomainEvent{
			EventType:     enums.EventDisputeResolved,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Data: payloads.DisputeResolvedEvent{
				DisputeID:     dispute.ID,
				TransactionID: txn.ID,
				Decision:      decision,
				Status:        dispute.Status,
				ResolvedBy:    resolvedBy,
				AmountCents:   amount,
			},
		}); err != nil {
			return err
		}

		if w != nil {
			uow.touchWallet(txn.SellerID)
			snap := wallet.NewSnapshot(w)
			result.Wallet = &snap
		}
		outcome := "The dispute was resolved in the seller's favour."
		if decision == enums.DisputeDecisionRefundBuyer {
			outcome = fmt.Sprintf("The dispute was resolved with a refund of %s to the buyer.", money.Format(txn.AmountCents))
		}
		uow.notify(txn.BuyerID, enums.NotificationTypeDisputeResolved, dispute.ID, "Dispute resolved", outcome)
		uow.notify(txn.SellerID, enums.NotificationTypeDisputeResolved, dispute.ID, "Dispute resolved", outcome)

		result.Dispute = disputes.NewView(dispute)
		result.Transaction = transactions.NewView(txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// refundBuyer removes the sale's net amount from the seller's ledger, from escrow when it
// is still held and from the balance when it was already released.
func (s *service) refundBuyer(ctx context.Context, tx *gorm.DB, txn *models.Transaction, disputeID uuid.UUID) (*models.Wallet, int64, error) {
	ledger := s.ledger(tx, enums.WalletReferenceDispute, disputeID)
	if !txn.FundsReleased {
		if _, err := ledger.ReleaseFromPendingToBalance(ctx, txn.SellerID, txn.NetAmountCents); err != nil {
			return nil, 0, err
		}
	}
	w, err := ledger.DebitBalance(ctx, txn.SellerID, txn.NetAmountCents)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	txn.Status = enums.TransactionStatusCancelled
	txn.ShipmentStatus = enums.ShipmentStatusReturned
	txn.CancelledAt = &now
	txn.RefundedAt = &now
	return w, txn.NetAmountCents, nil
}

// releaseSeller settles the sale in the seller's favour. Funds already released stay
// untouched. Under the gross basis the withheld fee is credited on top of the escrowed net.
func (s *service) releaseSeller(ctx context.Context, tx *gorm.DB, actor Actor, txn *models.Transaction, disputeID uuid.UUID) (*models.Wallet, int64, error) {
	now := s.now()
	txn.ShipmentStatus = enums.ShipmentStatusCompleted
	txn.Status = enums.TransactionStatusCompleted
	txn.CompletedAt = &now
	if txn.FundsReleased {
		return nil, 0, nil
	}

	id := disputeID
	w, err := s.release(ctx, tx, actor, txn, &id)
	if err != nil {
		return nil, 0, err
	}
	amount := txn.NetAmountCents
	if s.opts.ReleaseBasis == enums.ReleaseBasisGross && txn.FeeCents > 0 {
		w, err = s.ledger(tx, enums.WalletReferenceDispute, disputeID).Credit(ctx, txn.SellerID, txn.FeeCents, false)
		if err != nil {
			return nil, 0, err
		}
		amount = txn.AmountCents
	}
	return w, amount, nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
