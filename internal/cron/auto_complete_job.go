package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-escrow/internal/settlement"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

const (
	defaultAutoCompleteAfter = 72 * time.Hour
	defaultAutoCompleteBatch = 200
)

// AutoCompleteJobParams configure the job that settles sales the buyer never confirmed.
type AutoCompleteJobParams struct {
	Logger       *logger.Logger
	Transactions awaitingCompletionLister
	Settlement   completer
	Metrics      processedRecorder
	ActorID      uuid.UUID
	After        time.Duration
	BatchSize    int
}

type awaitingCompletionLister interface {
	ListAwaitingCompletion(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
}

type completer interface {
	MarkCompleted(ctx context.Context, input settlement.MarkCompletedInput) (*settlement.TransactionResult, error)
}

// NewAutoCompleteJob builds the auto-complete job.
func NewAutoCompleteJob(params AutoCompleteJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	after := params.After
	if after <= 0 {
		after = defaultAutoCompleteAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultAutoCompleteBatch
	}
	return &autoCompleteJob{
		logg:       params.Logger,
		lister:     params.Transactions,
		settlement: params.Settlement,
		metrics:    params.Metrics,
		actor:      settlement.Actor{ID: params.ActorID, Role: enums.ActorRoleSystem},
		after:      after,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type autoCompleteJob struct {
	logg       *logger.Logger
	lister     awaitingCompletionLister
	settlement completer
	metrics    processedRecorder
	actor      settlement.Actor
	after      time.Duration
	batch      int
	now        func() time.Time
}

func (j *autoCompleteJob) Name() string { return "auto-complete" }

// Run completes one batch per cycle. Rows that fail stay eligible for the next cycle.
func (j *autoCompleteJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	rows, err := j.lister.ListAwaitingCompletion(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list transactions awaiting completion: %w", err)
	}

	var (
		errs      error
		completed int
		skipped   int
	)
	for _, txn := range rows {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		_, err := j.settlement.MarkCompleted(ctx, settlement.MarkCompletedInput{
			Actor:         j.actor,
			TransactionID: txn.ID,
			AutoCompleted: true,
		})
		switch {
		case err == nil:
			completed++
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidState):
			skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("complete transaction %s: %w", txn.ID, err))
		}
	}
	recordProcessed(j.metrics, j.Name(), completed)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(rows),
		"completed":  completed,
		"skipped":    skipped,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "auto-complete pass finished")
	return errs
}
