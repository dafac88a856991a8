package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marketplace-escrow/internal/wallet"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

type walletReconciler interface {
	Run(ctx context.Context) (wallet.ReconcileReport, error)
}

type WalletReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler walletReconciler
	Metrics    processedRecorder
}

// NewWalletReconcileJob builds the job that audits wallet counters against the journal.
// Drift is reported by the reconciler; the job fails only when the audit cannot run.
func NewWalletReconcileJob(params WalletReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("wallet reconciler required")
	}
	return &walletReconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		metrics:    params.Metrics,
	}, nil
}

type walletReconcileJob struct {
	logg       *logger.Logger
	reconciler walletReconciler
	metrics    processedRecorder
}

func (j *walletReconcileJob) Name() string { return "wallet-reconcile" }

func (j *walletReconcileJob) Run(ctx context.Context) error {
	report, err := j.reconciler.Run(ctx)
	if err != nil {
		return fmt.Errorf("wallet reconcile: %w", err)
	}
	recordProcessed(j.metrics, j.Name(), report.Checked)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"wallets_checked": report.Checked,
		"drifts":          len(report.Drifts),
	})
	if len(report.Drifts) > 0 {
		j.logg.Warn(logCtx, "wallet reconciliation found drift")
		return nil
	}
	j.logg.Info(logCtx, "wallet reconciliation clean")
	return nil
}
