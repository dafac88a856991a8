package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/money"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

// View is the API representation of a payout request.
type View struct {
	ID          uuid.UUID          `json:"id"`
	SellerID    uuid.UUID          `json:"seller_id"`
	AmountCents int64              `json:"amount_cents"`
	Amount      string             `json:"amount"`
	Method      enums.PayoutMethod `json:"method"`
	Details     string             `json:"details"`
	Status      enums.PayoutStatus `json:"status"`
	ReviewNote  *string            `json:"review_note,omitempty"`
	ReviewedBy  *uuid.UUID         `json:"reviewed_by,omitempty"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewView converts a payout row into its API view.
func NewView(p *models.PayoutRequest) View {
	return View{
		ID:          p.ID,
		SellerID:    p.SellerID,
		AmountCents: p.AmountCents,
		Amount:      money.Format(p.AmountCents),
		Method:      p.Method,
		Details:     p.Details,
		Status:      p.Status,
		ReviewNote:  p.ReviewNote,
		ReviewedBy:  p.ReviewedBy,
		ResolvedAt:  p.ResolvedAt,
		CreatedAt:   p.CreatedAt,
	}
}

// ListResult is one page of payout requests.
type ListResult struct {
	Items  []View `json:"items"`
	Cursor string `json:"cursor"`
}

// Query narrows a payout listing. A nil SellerID lists every seller.
type Query struct {
	SellerID *uuid.UUID
	Status   string
	Limit    int
	Cursor   string
}

// Reader lists payout requests for sellers and reviewers.
type Reader interface {
	List(ctx context.Context, query Query) (*ListResult, error)
}

type reader struct {
	repo Repository
}

// NewReader wires the payout reader.
func NewReader(repo Repository) (Reader, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	return &reader{repo: repo}, nil
}

func (r *reader) List(ctx context.Context, query Query) (*ListResult, error) {
	params := ListParams{SellerID: query.SellerID, Limit: query.Limit}
	if query.Status != "" {
		status, err := enums.ParsePayoutStatus(query.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	if query.Cursor != "" {
		cursor, err := pagination.ParseCursor(query.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := r.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout requests")
	}
	result := &ListResult{Items: make([]View, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, NewView(&rows[i]))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}
