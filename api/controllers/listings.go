package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/listings"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

type upsertListingRequest struct {
	SellerID   uuid.UUID `json:"seller_id" validate:"required"`
	Title      string    `json:"title" validate:"required,max=255"`
	PriceCents int64     `json:"price_cents" validate:"gte=0"`
	Available  *bool     `json:"available" validate:"required"`
}

// UpsertListing mirrors a catalog listing pushed by the listing service.
func UpsertListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}
		listingID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body upsertListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Upsert(r.Context(), listings.UpsertInput{
			ListingID:  listingID,
			SellerID:   body.SellerID,
			Title:      body.Title,
			PriceCents: body.PriceCents,
			Available:  *body.Available,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"id":          listing.ID,
			"seller_id":   listing.SellerID,
			"title":       listing.Title,
			"price_cents": listing.PriceCents,
			"available":   listing.Available,
		})
	}
}
