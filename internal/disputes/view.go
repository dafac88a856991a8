package disputes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

// View is the API representation of a dispute.
type View struct {
	ID            uuid.UUID              `json:"id"`
	TransactionID uuid.UUID              `json:"transaction_id"`
	BuyerID       uuid.UUID              `json:"buyer_id"`
	SellerID      uuid.UUID              `json:"seller_id"`
	Reason        string                 `json:"reason"`
	Description   string                 `json:"description"`
	Status        enums.DisputeStatus    `json:"status"`
	Decision      *enums.DisputeDecision `json:"decision,omitempty"`
	Resolution    *string                `json:"resolution,omitempty"`
	ResolvedBy    *uuid.UUID             `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewView converts a dispute row into its API view.
func NewView(d *models.Dispute) View {
	return View{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		BuyerID:       d.BuyerID,
		SellerID:      d.SellerID,
		Reason:        d.Reason,
		Description:   d.Description,
		Status:        d.Status,
		Decision:      d.Decision,
		Resolution:    d.Resolution,
		ResolvedBy:    d.ResolvedBy,
		ResolvedAt:    d.ResolvedAt,
		CreatedAt:     d.CreatedAt,
	}
}

// ListResult is one page of the arbitration queue.
type ListResult struct {
	Items  []View `json:"items"`
	Cursor string `json:"cursor"`
}

// Reader lists disputes for arbitrators.
type Reader interface {
	List(ctx context.Context, status string, limit int, cursor string) (*ListResult, error)
}

type reader struct {
	repo Repository
}

// NewReader wires the dispute queue reader.
func NewReader(repo Repository) (Reader, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	return &reader{repo: repo}, nil
}

func (r *reader) List(ctx context.Context, status string, limit int, cursor string) (*ListResult, error) {
	params := ListParams{Limit: limit}
	if status != "" {
		parsed, err := enums.ParseDisputeStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &parsed
	}
	if cursor != "" {
		parsed, err := pagination.ParseCursor(cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = parsed
	}

	rows, next, err := r.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
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
