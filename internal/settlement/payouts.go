package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/internal/payouts"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/money"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/payloads"
)

const maxReviewNoteLength = 1000

// RequestPayout earmarks withdrawable balance for admin review.
func (s *service) RequestPayout(ctx context.Context, input RequestPayoutInput) (*PayoutResult, error) {
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	details, err := payouts.ValidateRequest(input.AmountCents, input.Method, input.Details)
	if err != nil {
		return nil, err
	}

	result := &PayoutResult{}
	_, err = s.run(ctx, "request_payout", func(tx *gorm.DB, uow *unitOfWork) error {
		request := &models.PayoutRequest{
			ID:          uuid.New(),
			SellerID:    input.Actor.ID,
			AmountCents: input.AmountCents,
			Method:      input.Method,
			Details:     details,
			Status:      enums.PayoutStatusPending,
		}
		if err := s.payouts.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout request")
		}

		w, err := s.ledger(tx, enums.WalletReferencePayout, request.ID).MoveBalanceToPending(ctx, request.SellerID, request.AmountCents)
		if err != nil {
			return err
		}

		if err := s.emit(ctx, tx, input.Actor, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   request.ID,
			Data: payloads.PayoutRequestedEvent{
				PayoutRequestID: request.ID,
				UserID:          request.SellerID,
				AmountCents:     request.AmountCents,
				Method:          request.Method,
			},
		}); err != nil {
			return err
		}

		uow.touchWallet(request.SellerID)
		uow.notify(request.SellerID, enums.NotificationTypePayoutRequested, request.ID, "Payout requested",
			fmt.Sprintf("Your withdrawal of %s is awaiting review.", money.Format(request.AmountCents)))
		result.Payout = payouts.NewView(request)
		result.Wallet = wallet.NewSnapshot(w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolvePayout approves or rejects a pending withdrawal. Approval pays the earmark out
// of the ledger; rejection returns it to the balance.
func (s *service) ResolvePayout(ctx context.Context, input ResolvePayoutInput) (*PayoutResult, error) {
	if !input.Actor.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an administrator can resolve payouts")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be APPROVE or REJECT")
	}
	note := strings.TrimSpace(input.Note)
	if len(note) > maxReviewNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review note too long")
	}

	result := &PayoutResult{}
	_, err := s.run(ctx, "resolve_payout", func(tx *gorm.DB, uow *unitOfWork) error {
		payoutRepo := s.payouts.WithTx(tx)
		request, err := payoutRepo.FindByIDForUpdate(ctx, input.PayoutID)
		if err != nil {
			return notFoundOr(err, "payout request not found", "load payout request")
		}
		if err := payouts.CheckResolvable(request); err != nil {
			return err
		}

		now := s.now()
		reviewer := input.Actor.ID
		request.Status = payouts.ResolvedStatus(input.Decision)
		request.ReviewedBy = &reviewer
		request.ResolvedAt = &now
		if note != "" {
			request.ReviewNote = &note
		}
		if err := payoutRepo.MarkResolved(ctx, request); err != nil {
			if payouts.IsAlreadyResolved(err) {
				return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payout request already processed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve payout request")
		}

		ledger := s.ledger(tx, enums.WalletReferencePayout, request.ID)
		w, err := ledger.MovePendingToBalance(ctx, request.SellerID, request.AmountCents)
		if err != nil {
			return err
		}
		if input.Decision == enums.PayoutDecisionApprove {
			w, err = ledger.DebitBalance(ctx, request.SellerID, request.AmountCents)
			if err != nil {
				return err
			}
		}

		if err := s.emit(ctx, tx, input.Actor, outbox.DomainEvent{
			EventType:     enums.EventPayoutResolved,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   request.ID,
			Data: payloads.PayoutResolvedEvent{
				PayoutRequestID: request.ID,
				UserID:          request.SellerID,
				AmountCents:     request.AmountCents,
				Decision:        input.Decision,
				Status:          request.Status,
				ProcessedBy:     reviewer,
			},
		}); err != nil {
			return err
		}

		message := fmt.Sprintf("Your withdrawal of %s was approved.", money.Format(request.AmountCents))
		if input.Decision == enums.PayoutDecisionReject {
			message = fmt.Sprintf("Your withdrawal of %s was rejected and returned to your balance.", money.Format(request.AmountCents))
		}
		uow.touchWallet(request.SellerID)
		uow.notify(request.SellerID, enums.NotificationTypePayoutResolved, request.ID, "Payout reviewed", message)
		result.Payout = payouts.NewView(request)
		result.Wallet = wallet.NewSnapshot(w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
