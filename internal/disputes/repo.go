package disputes

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

// Repository persists disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	Save(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindOpenByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, params ListParams) ([]models.Dispute, *pagination.Cursor, error)
}

// ListParams filters the arbitration queue.
type ListParams struct {
	Status *enums.DisputeStatus
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a disputes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	now := time.Now().UTC()
	dispute.CreatedAt = now
	dispute.UpdatedAt = now
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) Save(ctx context.Context, dispute *models.Dispute) error {
	dispute.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(dispute).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindOpenByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("transaction_id = ? AND status = ?", transactionID, enums.DisputeStatusOpen).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Dispute, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Dispute{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.Dispute
	if err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, disputeCursor)
	return page, next, nil
}

func disputeCursor(row models.Dispute) pagination.Cursor {
	return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
}
