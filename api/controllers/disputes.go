package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/disputes"
	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

type openDisputeRequest struct {
	Reason      string `json:"reason" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=4000"`
}

type resolveDisputeRequest struct {
	Decision   string `json:"decision" validate:"required,dispute_decision"`
	Resolution string `json:"resolution" validate:"max=4000"`
}

// OpenDispute lets the buyer contest a transaction and freezes it for arbitration.
func OpenDispute(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actionTarget(w, r, svc, "transactionId", logg)
		if !ok {
			return
		}
		var body openDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.OpenDispute(r.Context(), settlement.OpenDisputeInput{
			Actor:         actor,
			TransactionID: id,
			Reason:        body.Reason,
			Description:   body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListDisputes pages through the arbitration queue, optionally filtered by status.
func ListDisputes(reader disputes.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes reader unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := reader.List(r.Context(), status, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ResolveDispute applies an arbitrator's ruling to an open dispute.
func ResolveDispute(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actionTarget(w, r, svc, "disputeId", logg)
		if !ok {
			return
		}
		var body resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ResolveDispute(r.Context(), settlement.ResolveDisputeInput{
			Actor:      actor,
			DisputeID:  id,
			Decision:   enums.DisputeDecision(body.Decision),
			Resolution: body.Resolution,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
