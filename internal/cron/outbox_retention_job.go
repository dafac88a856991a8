package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

const (
	outboxRetentionDays  = 30
	outboxRetentionBatch = 1000
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxRetentionRepo
	Metrics    processedRecorder
	Retention  int
	BatchSize  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	CountUnpublished(ctx context.Context) (int64, error)
}

// NewOutboxRetentionJob builds the job that purges published outbox rows once they are
// older than the retention window. Unpublished and dead-lettered rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = outboxRetentionDays
	}
	if job.batch <= 0 {
		job.batch = outboxRetentionBatch
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxRetentionRepo
	metrics   processedRecorder
	retention int
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in batches until a short batch shows nothing older is left.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)

	var total int64
	for batches := 0; ; batches++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("outbox retention after %d rows: %w", total, err)
		}
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}
	recordProcessed(j.metrics, j.Name(), int(total))

	fields := map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   total,
	}
	if backlog, err := j.repo.CountUnpublished(ctx); err == nil {
		fields["unpublished_backlog"] = backlog
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention cleanup complete")
	return nil
}
