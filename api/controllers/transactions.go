package controllers

import (
	"net/http"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/internal/transactions"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

type shipRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,notblank,max=100"`
}

// GetTransaction returns a transaction to one of its parties or an arbitrator.
func GetTransaction(reader transactions.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions reader unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := reader.Get(r.Context(), id, actor.ID, actor.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ShipTransaction records the seller's shipment with its tracking number.
func ShipTransaction(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actionTarget(w, r, svc, "transactionId", logg)
		if !ok {
			return
		}
		var body shipRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.MarkShipped(r.Context(), settlement.MarkShippedInput{
			Actor:          actor,
			TransactionID:  id,
			TrackingNumber: body.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConfirmDelivery releases escrow to the seller on the buyer's confirmation.
func ConfirmDelivery(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actionTarget(w, r, svc, "transactionId", logg)
		if !ok {
			return
		}
		result, err := svc.ConfirmDelivery(r.Context(), settlement.ConfirmDeliveryInput{
			Actor:         actor,
			TransactionID: id,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CompleteTransaction closes a transaction on behalf of the platform.
func CompleteTransaction(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actionTarget(w, r, svc, "transactionId", logg)
		if !ok {
			return
		}
		result, err := svc.MarkCompleted(r.Context(), settlement.MarkCompletedInput{
			Actor:         actor,
			TransactionID: id,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
