package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/payouts"
	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

type requestPayoutRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"cents"`
	Method      string `json:"method" validate:"required,payout_method"`
	Details     string `json:"details" validate:"required,notblank,max=500"`
}

type resolvePayoutRequest struct {
	Decision string `json:"decision" validate:"required,payout_decision"`
	Note     string `json:"note" validate:"max=1000"`
}

// RequestPayout earmarks part of the seller's balance for withdrawal.
func RequestPayout(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RequestPayout(r.Context(), settlement.RequestPayoutInput{
			Actor:       actor,
			AmountCents: body.AmountCents,
			Method:      enums.PayoutMethod(body.Method),
			Details:     body.Details,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListMyPayouts pages through the caller's own payout requests.
func ListMyPayouts(reader payouts.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listPayouts(w, r, reader, &actor.ID, logg)
	}
}

// ListPayouts pages through every seller's payout requests for reviewers.
func ListPayouts(reader payouts.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listPayouts(w, r, reader, nil, logg)
	}
}

func listPayouts(w http.ResponseWriter, r *http.Request, reader payouts.Reader, sellerID *uuid.UUID, logg *logger.Logger) {
	if reader == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts reader unavailable"))
		return
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	result, err := reader.List(r.Context(), payouts.Query{
		SellerID: sellerID,
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
		Limit:    limit,
		Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

// ResolvePayout approves or rejects a pending payout request.
func ResolvePayout(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actionTarget(w, r, svc, "payoutId", logg)
		if !ok {
			return
		}
		var body resolvePayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ResolvePayout(r.Context(), settlement.ResolvePayoutInput{
			Actor:    actor,
			PayoutID: id,
			Decision: enums.PayoutDecision(body.Decision),
			Note:     body.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
