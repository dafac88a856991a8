package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/middleware"
	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

// actorFromRequest rebuilds the authenticated caller from the request context.
func actorFromRequest(r *http.Request) (settlement.Actor, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return settlement.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return settlement.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return settlement.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}
	return settlement.Actor{ID: id, Role: role}, nil
}

// actionTarget resolves the caller and the aggregate id named by param for a settlement
// command. It writes the error response and reports false when either is missing.
func actionTarget(w http.ResponseWriter, r *http.Request, svc settlement.Service, param string, logg *logger.Logger) (settlement.Actor, uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
		return settlement.Actor{}, uuid.Nil, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return settlement.Actor{}, uuid.Nil, false
	}
	id, err := validators.ParseUUIDParam(r, param)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return settlement.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}
