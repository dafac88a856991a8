package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/metrics"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/registry"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type outboxMetrics interface {
	IncPublished(eventType string)
	IncFailed(eventType string)
	IncDeadLettered(eventType, reason string)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Topics        topicSource
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Metrics       outboxMetrics
}

// Service relays committed outbox rows to Pub/Sub. Each batch is claimed under
// SKIP LOCKED so several relays can share the table.
type Service struct {
	logg     *logger.Logger
	db       dbClient
	topics   topicSource
	repo     outboxRepository
	registry registryResolver
	dlq      dlqRepository
	metrics  outboxMetrics
	settings relaySettings
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Topics == nil:
		return nil, errors.New("topic source is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	var m outboxMetrics = metrics.NewOutboxMetrics(nil)
	if params.Metrics != nil {
		m = params.Metrics
	}

	return &Service{
		logg:     params.Logger,
		db:       params.DB,
		topics:   params.Topics,
		repo:     params.Repository,
		registry: params.Registry,
		dlq:      params.DLQRepository,
		metrics:  m,
		settings: settingsFrom(params.Config.Outbox),
	}, nil
}

// Run polls until ctx is cancelled. Busy batches are followed immediately; empty ones
// wait one poll interval; failing ones back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.settings.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.settings.pollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
		case processed:
			backoff = s.settings.pollInterval
		default:
			backoff = s.settings.pollInterval
			if err := sleep(ctx, withJitter(s.settings.pollInterval)); err != nil {
				return err
			}
		}
	}
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.topics.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
