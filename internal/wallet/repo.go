package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

// Repository manages persistence for wallets and their journal.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	UpsertCredit(ctx context.Context, ownerID uuid.UUID, column string, amountCents int64) error
	ApplyDelta(ctx context.Context, ownerID uuid.UUID, delta Delta) (bool, error)
	CreateEntry(ctx context.Context, entry *models.WalletEntry) error
	ListEntries(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.WalletEntry, error)
	ListWalletsAfter(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Wallet, error)
	JournalTotals(ctx context.Context, walletIDs []uuid.UUID) (map[uuid.UUID]Delta, error)
	PendingPayoutTotals(ctx context.Context, ownerIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// Delta is a signed change to the three wallet counters.
type Delta struct {
	Balance int64
	Escrow  int64
	Payout  int64
}

const (
	columnBalance    = "balance_cents"
	columnEscrowHeld = "escrow_held_cents"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// UpsertCredit creates the wallet holding amountCents in column, or adds to the existing row.
func (r *repository) UpsertCredit(ctx context.Context, ownerID uuid.UUID, column string, amountCents int64) error {
	now := time.Now().UTC()
	wallet := models.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch column {
	case columnEscrowHeld:
		wallet.EscrowHeldCents = amountCents
	default:
		column = columnBalance
		wallet.BalanceCents = amountCents
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				column:       gorm.Expr("wallets."+column+" + ?", amountCents),
				"updated_at": now,
			}),
		}).
		Create(&wallet).Error
}

// ApplyDelta changes the counters only when none of them would go negative.
// It reports false when the wallet is missing or a counter is insufficient.
func (r *repository) ApplyDelta(ctx context.Context, ownerID uuid.UUID, delta Delta) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance_cents = balance_cents + ?,
			escrow_held_cents = escrow_held_cents + ?,
			payout_held_cents = payout_held_cents + ?,
			updated_at = ?
		WHERE owner_id = ?
			AND balance_cents + ? >= 0
			AND escrow_held_cents + ? >= 0
			AND payout_held_cents + ? >= 0`,
		delta.Balance, delta.Escrow, delta.Payout, time.Now().UTC(),
		ownerID,
		delta.Balance, delta.Escrow, delta.Payout,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.WalletEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	var entries []models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListWalletsAfter(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Wallet, error) {
	var wallets []models.Wallet
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	err := query.Find(&wallets).Error
	return wallets, err
}

type journalTotalRow struct {
	WalletID uuid.UUID
	Balance  int64
	Escrow   int64
	Payout   int64
}

func (r *repository) JournalTotals(ctx context.Context, walletIDs []uuid.UUID) (map[uuid.UUID]Delta, error) {
	totals := make(map[uuid.UUID]Delta, len(walletIDs))
	if len(walletIDs) == 0 {
		return totals, nil
	}
	var rows []journalTotalRow
	err := r.db.WithContext(ctx).
		Model(&models.WalletEntry{}).
		Select(`wallet_id,
			CAST(COALESCE(SUM(balance_delta_cents), 0) AS BIGINT) AS balance,
			CAST(COALESCE(SUM(escrow_delta_cents), 0) AS BIGINT) AS escrow,
			CAST(COALESCE(SUM(payout_delta_cents), 0) AS BIGINT) AS payout`).
		Where("wallet_id IN ?", walletIDs).
		Group("wallet_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		totals[row.WalletID] = Delta{Balance: row.Balance, Escrow: row.Escrow, Payout: row.Payout}
	}
	return totals, nil
}

type pendingPayoutRow struct {
	SellerID uuid.UUID
	Total    int64
}

func (r *repository) PendingPayoutTotals(ctx context.Context, ownerIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	totals := make(map[uuid.UUID]int64, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return totals, nil
	}
	var rows []pendingPayoutRow
	err := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Select("seller_id, CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT) AS total").
		Where("seller_id IN ? AND status = ?", ownerIDs, enums.PayoutStatusPending).
		Group("seller_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		totals[row.SellerID] = row.Total
	}
	return totals, nil
}
