package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/notifications"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

// inboxOwner resolves whose inbox the request addresses and writes the error response
// when it cannot.
func inboxOwner(w http.ResponseWriter, r *http.Request, svc notifications.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
		return uuid.Nil, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return actor.ID, true
}

func listParams(r *http.Request, recipientID uuid.UUID) (notifications.ListParams, error) {
	params := notifications.ListParams{
		RecipientID: recipientID,
		Cursor:      strings.TrimSpace(r.URL.Query().Get("cursor")),
	}
	var err error
	if params.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return params, err
	}
	params.UnreadOnly, err = validators.ParseQueryBool(r, "unreadOnly")
	return params, err
}

// ListNotifications pages through the caller's inbox, newest first, with the unread count.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := inboxOwner(w, r, svc, logg)
		if !ok {
			return
		}
		params, err := listParams(r, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := inboxOwner(w, r, svc, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err == nil {
			err = svc.MarkRead(r.Context(), owner, id)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := inboxOwner(w, r, svc, logg)
		if !ok {
			return
		}
		updated, err := svc.MarkAllRead(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
