package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/api/responses"
	"github.com/angelmondragon/marketplace-escrow/api/validators"
	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

type walletReader interface {
	Get(ctx context.Context, ownerID uuid.UUID) (wallet.Snapshot, error)
}

type walletEntryLister interface {
	ListEntries(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

// GetWallet returns the caller's wallet snapshot.
func GetWallet(reader walletReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet reader unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := reader.Get(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// ListWalletEntries returns the most recent journal rows of the caller's wallet.
func ListWalletEntries(svc walletEntryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListEntries(r.Context(), actor.ID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]wallet.EntryView, 0, len(entries))
		for i := range entries {
			items = append(items, wallet.NewEntryView(&entries[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
