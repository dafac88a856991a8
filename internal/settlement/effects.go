package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/internal/notifications"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/square"
)

const (
	effectNotify     = "notification"
	effectRefund     = "refund"
	effectCacheEvict = "wallet_cache"
)

// unitOfWork collects what one operation decided. Effects run only after commit.
type unitOfWork struct {
	operation    string
	noop         bool
	walletOwners []uuid.UUID
	notices      []notifications.NotifyInput
	refund       *square.RefundParams
}

func (u *unitOfWork) touchWallet(ownerID uuid.UUID) {
	for _, existing := range u.walletOwners {
		if existing == ownerID {
			return
		}
	}
	u.walletOwners = append(u.walletOwners, ownerID)
}

func (u *unitOfWork) notify(recipient uuid.UUID, kind enums.NotificationType, entityID uuid.UUID, title, message string) {
	id := entityID
	u.notices = append(u.notices, notifications.NotifyInput{
		RecipientID: recipient,
		Type:        kind,
		Title:       title,
		Message:     message,
		EntityID:    &id,
	})
}

// applyEffects runs best-effort side effects. Failures are logged and counted, never returned.
func (s *service) applyEffects(ctx context.Context, uow *unitOfWork) {
	if s.cache != nil && len(uow.walletOwners) > 0 {
		if err := s.cache.Invalidate(ctx, uow.walletOwners...); err != nil {
			s.effectFailed(ctx, effectCacheEvict, err)
		}
	}

	if uow.refund != nil {
		s.issueRefund(ctx, *uow.refund)
	}

	if s.notifier == nil {
		return
	}
	for _, notice := range uow.notices {
		if _, err := s.notifier.Notify(ctx, notice); err != nil {
			s.effectFailed(s.logg.WithField(ctx, "recipient_id", notice.RecipientID.String()), effectNotify, err)
		}
	}
}

func (s *service) issueRefund(ctx context.Context, params square.RefundParams) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id":      params.PaymentID,
		"idempotency_key": params.IdempotencyKey,
	})
	if !s.opts.RefundsEnabled || s.refunds == nil {
		s.logg.Warn(logCtx, "refund rail disabled; refund must be issued manually")
		return
	}
	result, err := s.refunds.RefundPayment(ctx, params)
	if err != nil {
		s.effectFailed(logCtx, effectRefund, err)
		return
	}
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"refund_id":     result.RefundID,
		"refund_status": result.Status,
	}), "buyer refund issued")
}

func (s *service) effectFailed(ctx context.Context, effect string, err error) {
	s.metrics.IncSideEffectFailure(effect)
	s.logg.Error(s.logg.WithField(ctx, "effect", effect), "post-commit side effect failed", err)
}

// refundFor builds the rail request for a cancelled card sale. COD sales and sales
// without a captured payment reference have nothing to refund on the rail.
func (s *service) refundFor(txn *models.Transaction) *square.RefundParams {
	if txn.PaymentMethod != enums.PaymentMethodCard || txn.PaymentRef == nil || *txn.PaymentRef == "" {
		return nil
	}
	return &square.RefundParams{
		PaymentID:      *txn.PaymentRef,
		AmountCents:    txn.AmountCents,
		Currency:       s.opts.Currency,
		Reason:         fmt.Sprintf("dispute refund for transaction %s", txn.ID),
		IdempotencyKey: "refund-" + txn.ID.String(),
	}
}
