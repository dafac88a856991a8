package listings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

// UpsertInput is a catalog update pushed by the listing service.
type UpsertInput struct {
	ListingID  uuid.UUID
	SellerID   uuid.UUID
	Title      string
	PriceCents int64
	Available  bool
}

// Service maintains the catalog mirror.
type Service interface {
	Upsert(ctx context.Context, input UpsertInput) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type service struct {
	repo Repository
}

// NewService wires the listing mirror service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.Listing, error) {
	if input.ListingID == uuid.Nil || input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing and seller ids are required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	existing, err := s.repo.FindByID(ctx, input.ListingID)
	switch {
	case err == nil:
		if existing.SellerID != input.SellerID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "listing belongs to another seller")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	listing := &models.Listing{
		ID:         input.ListingID,
		SellerID:   input.SellerID,
		Title:      input.Title,
		PriceCents: input.PriceCents,
		Available:  input.Available,
	}
	if err := s.repo.Upsert(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert listing")
	}
	return s.Get(ctx, input.ListingID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}
