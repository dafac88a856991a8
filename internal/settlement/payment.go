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
	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/money"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/payloads"
)

// RecordPayment turns a captured payment into an escrowed sale: the listing is taken off
// the market, the transaction is created and the seller's escrow hold is credited net.
func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentResult, error) {
	if !input.Actor.Role.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment capture is reported by the payment rail only")
	}
	if input.ListingID == uuid.Nil || input.BuyerID == uuid.Nil || input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing, buyer and seller ids are required")
	}
	if input.BuyerID == input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	var fee int64
	if input.FeeCents != nil {
		fee = *input.FeeCents
	} else {
		computed, err := money.FeeFromBasisPoints(input.AmountCents, s.opts.DefaultFeeBPS)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "compute platform fee")
		}
		fee = computed
	}
	net, err := money.Net(input.AmountCents, fee)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fee")
	}
	paymentRef := strings.TrimSpace(input.PaymentRef)

	result := &PaymentResult{}
	_, err = s.run(ctx, "record_payment", func(tx *gorm.DB, uow *unitOfWork) error {
		txRepo := s.transactions.WithTx(tx)

		if paymentRef != "" {
			existing, err := txRepo.FindByPaymentRef(ctx, paymentRef)
			switch {
			case err == nil:
				if existing.ListingID != input.ListingID || existing.AmountCents != input.AmountCents {
					return pkgerrors.New(pkgerrors.CodeConflict, "payment reference already recorded for a different sale")
				}
				uow.noop = true
				result.Transaction = transactions.NewView(existing)
				result.Replayed = true
				return nil
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment reference")
			}
		}

		listingRepo := s.listings.WithTx(tx)
		listing, err := listingRepo.FindByID(ctx, input.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeListingUnavailable, "listing is not purchasable")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if listing.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeValidation, "seller does not own the listing")
		}
		marked, err := listingRepo.MarkUnavailable(ctx, input.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark listing unavailable")
		}
		if !marked {
			return pkgerrors.New(pkgerrors.CodeListingUnavailable, "listing is not purchasable")
		}

		txn := &models.Transaction{
			ID:             uuid.New(),
			ListingID:      input.ListingID,
			BuyerID:        input.BuyerID,
			SellerID:       input.SellerID,
			AmountCents:    input.AmountCents,
			FeeCents:       fee,
			NetAmountCents: net,
			Status:         method.InitialStatus(),
			ShipmentStatus: enums.ShipmentStatusPendingShipment,
			PaymentMethod:  method,
		}
		if paymentRef != "" {
			ref := paymentRef
			txn.PaymentRef = &ref
		}
		if err := txRepo.Create(ctx, txn); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sale already recorded for listing or payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
		}

		w, err := s.ledger(tx, enums.WalletReferenceTransaction, txn.ID).Credit(ctx, txn.SellerID, net, true)
		if err != nil {
			return err
		}

		event := payloads.PaymentRecordedEvent{
			TransactionID:  txn.ID,
			ListingID:      txn.ListingID,
			BuyerID:        txn.BuyerID,
			SellerID:       txn.SellerID,
			AmountCents:    txn.AmountCents,
			FeeCents:       txn.FeeCents,
			NetAmountCents: txn.NetAmountCents,
			PaymentMethod:  txn.PaymentMethod,
			PaymentRef:     paymentRef,
		}
		if err := s.emit(ctx, tx, input.Actor, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Data:          event,
		}); err != nil {
			return err
		}

		uow.touchWallet(txn.SellerID)
		uow.notify(txn.SellerID, enums.NotificationTypeSaleRecorded, txn.ID, "New sale",
			fmt.Sprintf("Your listing sold for %s. %s is held in escrow until delivery.", money.Format(txn.AmountCents), money.Format(net)))

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
