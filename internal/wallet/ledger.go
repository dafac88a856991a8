package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

// Ledger is the only mutation surface for wallet counters. Implementations are bound
// to one unit of work; every call changes one wallet row and appends one journal entry.
type Ledger interface {
	// Credit adds funds to the escrow hold when toPending is set, otherwise to the
	// withdrawable balance. The wallet is created on first credit.
	Credit(ctx context.Context, ownerID uuid.UUID, amountCents int64, toPending bool) (*models.Wallet, error)
	// ReleaseFromPendingToBalance moves escrowed funds to the balance.
	ReleaseFromPendingToBalance(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error)
	// DebitBalance removes funds from the ledger.
	DebitBalance(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error)
	// MoveBalanceToPending earmarks balance for an in-flight payout.
	MoveBalanceToPending(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error)
	// MovePendingToBalance returns a payout earmark to the balance.
	MovePendingToBalance(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error)
}

// Reference names the aggregate a ledger mutation is performed for.
type Reference struct {
	Type enums.WalletReferenceType
	ID   uuid.UUID
}

type ledger struct {
	repo Repository
	ref  Reference
}

type movement struct {
	entryType    enums.WalletEntryType
	delta        Delta
	insufficient pkgerrors.Code
	message      string
}

func (l *ledger) Credit(ctx context.Context, ownerID uuid.UUID, amountCents int64, toPending bool) (*models.Wallet, error) {
	if err := validateMutation(ownerID, amountCents); err != nil {
		return nil, err
	}
	column, entryType, delta := columnBalance, enums.WalletEntryCredit, Delta{Balance: amountCents}
	if toPending {
		column, entryType, delta = columnEscrowHeld, enums.WalletEntryEscrowCredit, Delta{Escrow: amountCents}
	}
	if err := l.repo.UpsertCredit(ctx, ownerID, column, amountCents); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}
	return l.journal(ctx, ownerID, entryType, amountCents, delta)
}

func (l *ledger) ReleaseFromPendingToBalance(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return l.move(ctx, ownerID, amountCents, movement{
		entryType:    enums.WalletEntryEscrowRelease,
		delta:        Delta{Balance: amountCents, Escrow: -amountCents},
		insufficient: pkgerrors.CodeInsufficientPending,
		message:      "escrow hold does not cover the release",
	})
}

func (l *ledger) DebitBalance(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return l.move(ctx, ownerID, amountCents, movement{
		entryType:    enums.WalletEntryDebit,
		delta:        Delta{Balance: -amountCents},
		insufficient: pkgerrors.CodeInsufficientFunds,
		message:      "insufficient balance",
	})
}

func (l *ledger) MoveBalanceToPending(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return l.move(ctx, ownerID, amountCents, movement{
		entryType:    enums.WalletEntryPayoutEarmark,
		delta:        Delta{Balance: -amountCents, Payout: amountCents},
		insufficient: pkgerrors.CodeInsufficientFunds,
		message:      "insufficient balance",
	})
}

func (l *ledger) MovePendingToBalance(ctx context.Context, ownerID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return l.move(ctx, ownerID, amountCents, movement{
		entryType:    enums.WalletEntryPayoutUnmark,
		delta:        Delta{Balance: amountCents, Payout: -amountCents},
		insufficient: pkgerrors.CodeInsufficientPending,
		message:      "payout hold does not cover the amount",
	})
}

func (l *ledger) move(ctx context.Context, ownerID uuid.UUID, amountCents int64, m movement) (*models.Wallet, error) {
	if err := validateMutation(ownerID, amountCents); err != nil {
		return nil, err
	}
	applied, err := l.repo.ApplyDelta(ctx, ownerID, m.delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet")
	}
	if !applied {
		return nil, pkgerrors.New(m.insufficient, m.message)
	}
	return l.journal(ctx, ownerID, m.entryType, amountCents, m.delta)
}

func (l *ledger) journal(ctx context.Context, ownerID uuid.UUID, entryType enums.WalletEntryType, amountCents int64, delta Delta) (*models.Wallet, error) {
	wallet, err := l.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wallet vanished inside unit of work")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	entry := &models.WalletEntry{
		WalletID:          wallet.ID,
		OwnerID:           ownerID,
		Type:              entryType,
		AmountCents:       amountCents,
		BalanceDeltaCents: delta.Balance,
		EscrowDeltaCents:  delta.Escrow,
		PayoutDeltaCents:  delta.Payout,
		ReferenceType:     l.ref.Type,
	}
	if l.ref.ID != uuid.Nil {
		refID := l.ref.ID
		entry.ReferenceID = &refID
	}
	if err := l.repo.CreateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "journal wallet entry")
	}
	return wallet, nil
}

func validateMutation(ownerID uuid.UUID, amountCents int64) error {
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet owner required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
