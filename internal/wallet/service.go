package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

const (
	defaultEntryLimit = 50
	maxEntryLimit     = 200
)

// Service exposes ledgers bound to a unit of work and committed wallet reads.
type Service interface {
	Ledger(tx *gorm.DB, ref Reference) Ledger
	Get(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	ListEntries(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

type service struct {
	repo Repository
}

// NewService wires the wallet service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Ledger(tx *gorm.DB, ref Reference) Ledger {
	return &ledger{repo: s.repo.WithTx(tx), ref: ref}
}

// Get returns the committed wallet. An owner without a wallet reads as an empty one.
func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet owner required")
	}
	wallet, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Wallet{OwnerID: ownerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) ListEntries(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet owner required")
	}
	if limit <= 0 {
		limit = defaultEntryLimit
	}
	if limit > maxEntryLimit {
		limit = maxEntryLimit
	}
	entries, err := s.repo.ListEntries(ctx, ownerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet entries")
	}
	return entries, nil
}
