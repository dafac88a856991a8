package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/pagination"
)

// Repository persists payout requests. AmountCents is never part of an update.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.PayoutRequest) error
	MarkResolved(ctx context.Context, request *models.PayoutRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	List(ctx context.Context, params ListParams) ([]models.PayoutRequest, *pagination.Cursor, error)
}

// ListParams filters payout requests by seller and status.
type ListParams struct {
	SellerID *uuid.UUID
	Status   *enums.PayoutStatus
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.PayoutRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	return r.db.WithContext(ctx).Create(request).Error
}

// MarkResolved writes the review columns only while the row is still PENDING.
func (r *repository) MarkResolved(ctx context.Context, request *models.PayoutRequest) error {
	request.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", request.ID, enums.PayoutStatusPending).
		Updates(map[string]any{
			"status":      request.Status,
			"review_note": request.ReviewNote,
			"reviewed_by": request.ReviewedBy,
			"resolved_at": request.ResolvedAt,
			"updated_at":  request.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return errAlreadyResolved
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var request models.PayoutRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var request models.PayoutRequest
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.PayoutRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutRequest{})
	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.PayoutRequest
	if err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, payoutCursor)
	return page, next, nil
}

func payoutCursor(row models.PayoutRequest) pagination.Cursor {
	return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
}
