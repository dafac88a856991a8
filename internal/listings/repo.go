package listings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
)

// Repository is the catalog mirror the settlement engine reads purchasability from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	IsPurchasable(ctx context.Context, id uuid.UUID) (bool, error)
	MarkUnavailable(ctx context.Context, id uuid.UUID) (bool, error)
	Upsert(ctx context.Context, listing *models.Listing) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a listings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) IsPurchasable(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND available = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

// MarkUnavailable flips available only when it is still set, so concurrent
// purchases of one listing see exactly one winner.
func (r *repository) MarkUnavailable(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND available = ?", id, true).
		Updates(map[string]any{
			"available":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Upsert mirrors the catalog row. Availability is only ever lowered by a purchase, so
// an upsert never revives a sold listing.
func (r *repository) Upsert(ctx context.Context, listing *models.Listing) error {
	now := time.Now().UTC()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"title":       listing.Title,
				"price_cents": listing.PriceCents,
				"available":   gorm.Expr("listings.available AND ?", listing.Available),
				"updated_at":  now,
			}),
		}).
		Create(listing).Error
}
