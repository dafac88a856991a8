package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// Repository persists transactions. Status changes go through Save on a row loaded
// with FindByIDForUpdate inside the same unit of work.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	Save(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Transaction, error)
	ListAwaitingCompletion(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transactions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) Save(ctx context.Context, txn *models.Transaction) error {
	txn.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("payment_ref = ?", paymentRef).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListAwaitingCompletion returns shipped or delivered sales whose last fulfillment
// step happened before the cutoff, oldest first.
func (r *repository) ListAwaitingCompletion(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("shipment_status IN ?", []string{
			string(enums.ShipmentStatusShipped),
			string(enums.ShipmentStatusDelivered),
		}).
		Where("status <> ?", enums.TransactionStatusCancelled).
		Where("COALESCE(delivered_at, shipped_at) < ?", before.UTC()).
		Order("COALESCE(delivered_at, shipped_at) ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
