package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 10 * time.Minute
)

var errLeaseLost = errors.New("cron lock lost mid-cycle")

type jobMetrics interface {
	ObserveDuration(job string, duration time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    jobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval. Only the replica holding the
// lock runs a cycle.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    jobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if svc.registry == nil {
		svc.registry = NewRegistry()
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	if svc.jobTimeout <= 0 {
		svc.jobTimeout = defaultJobTimeout
	}
	return svc, nil
}

// Run starts with an immediate cycle, then ticks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs the cycle under the lock. Every job runs even when an earlier one fails;
// the failures come back combined.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	cycleCtx := s.logg.WithField(ctx, "jobs", s.registry.Names())
	s.logg.Info(cycleCtx, "scheduled run starting")

	var errs error
	for i, job := range s.registry.Jobs() {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if i > 0 {
			held, err := s.lock.Refresh(ctx)
			if err != nil {
				return multierr.Append(errs, err)
			}
			if !held {
				return multierr.Append(errs, errLeaseLost)
			}
		}
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	s.logg.Info(s.logg.WithField(cycleCtx, "failed_jobs", len(multierr.Errors(errs))), "scheduled run complete")
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	jobCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
		s.finishJob(jobCtx, name, time.Since(start), err)
	}()

	s.logg.Info(jobCtx, "job start")
	return job.Run(jobCtx)
}

func (s *Service) finishJob(ctx context.Context, name string, took time.Duration, err error) {
	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if s.metrics != nil {
		s.metrics.ObserveDuration(name, took)
	}
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		if s.metrics != nil {
			s.metrics.IncFailure(name)
		}
		return
	}
	s.logg.Info(ctx, "job completed")
	if s.metrics != nil {
		s.metrics.IncSuccess(name)
	}
}
