package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/money"
)

// View is the party-facing representation of a transaction.
type View struct {
	ID             uuid.UUID               `json:"id"`
	ListingID      uuid.UUID               `json:"listing_id"`
	BuyerID        uuid.UUID               `json:"buyer_id"`
	SellerID       uuid.UUID               `json:"seller_id"`
	AmountCents    int64                   `json:"amount_cents"`
	FeeCents       int64                   `json:"fee_cents"`
	NetAmountCents int64                   `json:"net_amount_cents"`
	Amount         string                  `json:"amount"`
	Status         enums.TransactionStatus `json:"status"`
	ShipmentStatus enums.ShipmentStatus    `json:"shipment_status"`
	PaymentMethod  enums.PaymentMethod     `json:"payment_method"`
	TrackingNumber *string                 `json:"tracking_number,omitempty"`
	BuyerConfirmed bool                    `json:"buyer_confirmed"`
	ConfirmedAt    *time.Time              `json:"confirmed_at,omitempty"`
	FundsReleased  bool                    `json:"funds_released"`
	ReleasedAt     *time.Time              `json:"released_at,omitempty"`
	ShippedAt      *time.Time              `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time              `json:"delivered_at,omitempty"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	CancelledAt    *time.Time              `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time              `json:"refunded_at,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// NewView converts a transaction row into its API view.
func NewView(txn *models.Transaction) View {
	return View{
		ID:             txn.ID,
		ListingID:      txn.ListingID,
		BuyerID:        txn.BuyerID,
		SellerID:       txn.SellerID,
		AmountCents:    txn.AmountCents,
		FeeCents:       txn.FeeCents,
		NetAmountCents: txn.NetAmountCents,
		Amount:         money.Format(txn.AmountCents),
		Status:         txn.Status,
		ShipmentStatus: txn.ShipmentStatus,
		PaymentMethod:  txn.PaymentMethod,
		TrackingNumber: txn.TrackingNumber,
		BuyerConfirmed: txn.BuyerConfirmed,
		ConfirmedAt:    txn.ConfirmedAt,
		FundsReleased:  txn.FundsReleased,
		ReleasedAt:     txn.ReleasedAt,
		ShippedAt:      txn.ShippedAt,
		DeliveredAt:    txn.DeliveredAt,
		CompletedAt:    txn.CompletedAt,
		CancelledAt:    txn.CancelledAt,
		RefundedAt:     txn.RefundedAt,
		CreatedAt:      txn.CreatedAt,
		UpdatedAt:      txn.UpdatedAt,
	}
}

// Reader serves committed transaction reads.
type Reader interface {
	Get(ctx context.Context, id, actorID uuid.UUID, role enums.ActorRole) (View, error)
}

type reader struct {
	repo Repository
}

// NewReader wires the read side of the transactions package.
func NewReader(repo Repository) (Reader, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	return &reader{repo: repo}, nil
}

// Get returns the transaction to one of its parties or to a privileged actor.
func (r *reader) Get(ctx context.Context, id, actorID uuid.UUID, role enums.ActorRole) (View, error) {
	txn, err := r.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if !role.IsPrivileged() && !txn.IsParty(actorID) {
		return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return NewView(txn), nil
}
