package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

type paymentCapturedRequest struct {
	ListingID     uuid.UUID `json:"listing_id" validate:"required"`
	BuyerID       uuid.UUID `json:"buyer_id" validate:"required"`
	SellerID      uuid.UUID `json:"seller_id" validate:"required"`
	AmountCents   int64     `json:"amount_cents" validate:"cents"`
	FeeCents      *int64    `json:"fee_cents" validate:"omitempty,gte=0"`
	PaymentMethod string    `json:"payment_method" validate:"required,payment_method"`
	PaymentRef    string    `json:"payment_ref" validate:"required,max=255"`
}

// RecordPayment handles the payment rail's capture callback. A replayed payment
// reference answers 200 with the original transaction.
func RecordPayment(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentCapturedRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordPayment(r.Context(), settlement.RecordPaymentInput{
			Actor:         actor,
			ListingID:     body.ListingID,
			BuyerID:       body.BuyerID,
			SellerID:      body.SellerID,
			AmountCents:   body.AmountCents,
			FeeCents:      body.FeeCents,
			PaymentMethod: enums.PaymentMethod(body.PaymentMethod),
			PaymentRef:    body.PaymentRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
