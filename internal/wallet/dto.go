package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/money"
)

// Snapshot is the read model of a wallet returned to callers and cached.
type Snapshot struct {
	OwnerID         uuid.UUID `json:"owner_id"`
	BalanceCents    int64     `json:"balance_cents"`
	PendingCents    int64     `json:"pending_cents"`
	EscrowHeldCents int64     `json:"escrow_held_cents"`
	PayoutHeldCents int64     `json:"payout_held_cents"`
	Balance         string    `json:"balance"`
	Pending         string    `json:"pending"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewSnapshot converts a wallet row into its read model.
func NewSnapshot(w *models.Wallet) Snapshot {
	if w == nil {
		return Snapshot{Balance: money.Format(0), Pending: money.Format(0)}
	}
	return Snapshot{
		OwnerID:         w.OwnerID,
		BalanceCents:    w.BalanceCents,
		PendingCents:    w.PendingCents(),
		EscrowHeldCents: w.EscrowHeldCents,
		PayoutHeldCents: w.PayoutHeldCents,
		Balance:         money.Format(w.BalanceCents),
		Pending:         money.Format(w.PendingCents()),
		UpdatedAt:       w.UpdatedAt,
	}
}

// EntryView is the API representation of one journal row.
type EntryView struct {
	ID                uuid.UUID                 `json:"id"`
	Type              enums.WalletEntryType     `json:"type"`
	AmountCents       int64                     `json:"amount_cents"`
	Amount            string                    `json:"amount"`
	BalanceDeltaCents int64                     `json:"balance_delta_cents"`
	EscrowDeltaCents  int64                     `json:"escrow_delta_cents"`
	PayoutDeltaCents  int64                     `json:"payout_delta_cents"`
	ReferenceType     enums.WalletReferenceType `json:"reference_type,omitempty"`
	ReferenceID       *uuid.UUID                `json:"reference_id,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

func NewEntryView(e *models.WalletEntry) EntryView {
	return EntryView{
		ID:                e.ID,
		Type:              e.Type,
		AmountCents:       e.AmountCents,
		Amount:            money.Format(e.AmountCents),
		BalanceDeltaCents: e.BalanceDeltaCents,
		EscrowDeltaCents:  e.EscrowDeltaCents,
		PayoutDeltaCents:  e.PayoutDeltaCents,
		ReferenceType:     e.ReferenceType,
		ReferenceID:       e.ReferenceID,
		CreatedAt:         e.CreatedAt,
	}
}
