package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

const defaultReconcileBatch = 500

type driftRecorder interface {
	IncWalletDrift(counter string)
}

// Drift describes one wallet counter that disagrees with its source of truth.
type Drift struct {
	OwnerID  uuid.UUID
	WalletID uuid.UUID
	Counter  string
	Stored   int64
	Expected int64
}

// ReconcileReport summarizes a reconciliation pass.
type ReconcileReport struct {
	Checked int
	Drifts  []Drift
}

// Reconciler compares stored wallet counters with the journal and with pending payouts.
type Reconciler struct {
	repo      Repository
	metrics   driftRecorder
	logg      *logger.Logger
	batchSize int
}

// NewReconciler builds a reconciler. batchSize <= 0 uses the default.
func NewReconciler(repo Repository, metrics driftRecorder, logg *logger.Logger, batchSize int) (*Reconciler, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if batchSize <= 0 {
		batchSize = defaultReconcileBatch
	}
	return &Reconciler{repo: repo, metrics: metrics, logg: logg, batchSize: batchSize}, nil
}

// Run walks every wallet in id order. Drifts are reported, never repaired.
func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	var (
		report ReconcileReport
		after  uuid.UUID
	)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		wallets, err := r.repo.ListWalletsAfter(ctx, after, r.batchSize)
		if err != nil {
			return report, fmt.Errorf("list wallets: %w", err)
		}
		if len(wallets) == 0 {
			return report, nil
		}

		walletIDs := make([]uuid.UUID, 0, len(wallets))
		ownerIDs := make([]uuid.UUID, 0, len(wallets))
		for _, w := range wallets {
			walletIDs = append(walletIDs, w.ID)
			ownerIDs = append(ownerIDs, w.OwnerID)
		}
		journal, err := r.repo.JournalTotals(ctx, walletIDs)
		if err != nil {
			return report, fmt.Errorf("sum journal: %w", err)
		}
		payouts, err := r.repo.PendingPayoutTotals(ctx, ownerIDs)
		if err != nil {
			return report, fmt.Errorf("sum pending payouts: %w", err)
		}

		for _, w := range wallets {
			report.Checked++
			totals := journal[w.ID]
			checks := []Drift{
				{Counter: "balance", Stored: w.BalanceCents, Expected: totals.Balance},
				{Counter: "escrow_held", Stored: w.EscrowHeldCents, Expected: totals.Escrow},
				{Counter: "payout_held", Stored: w.PayoutHeldCents, Expected: totals.Payout},
				{Counter: "payout_requests", Stored: w.PayoutHeldCents, Expected: payouts[w.OwnerID]},
			}
			for _, check := range checks {
				if check.Stored == check.Expected {
					continue
				}
				check.OwnerID = w.OwnerID
				check.WalletID = w.ID
				report.Drifts = append(report.Drifts, check)
				r.report(ctx, check)
			}
		}

		after = wallets[len(wallets)-1].ID
		if len(wallets) < r.batchSize {
			return report, nil
		}
	}
}

func (r *Reconciler) report(ctx context.Context, drift Drift) {
	if r.metrics != nil {
		r.metrics.IncWalletDrift(drift.Counter)
	}
	if r.logg == nil {
		return
	}
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"owner_id":  drift.OwnerID.String(),
		"wallet_id": drift.WalletID.String(),
		"counter":   drift.Counter,
		"stored":    drift.Stored,
		"expected":  drift.Expected,
	})
	r.logg.Error(logCtx, "wallet counter drift", fmt.Errorf("%s drifted by %d", drift.Counter, drift.Stored-drift.Expected))
}
