package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/metrics"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/registry"
)

func TestProcessBatchHoldsLaterEventsOfFailedAggregate(t *testing.T) {
	saleA := uuid.New()
	saleB := uuid.New()
	recordedA := newEvent(t, enums.EventPaymentRecorded, saleA, 0)
	releasedA := newEvent(t, enums.EventFundsReleased, saleA, 0)
	recordedB := newEvent(t, enums.EventPaymentRecorded, saleB, 0)

	repo := &fakeRepo{events: []models.OutboxEvent{recordedA, releasedA, recordedB}}
	topics := &fakeTopics{errs: []error{errors.New("transient"), nil}}
	service := newTestService(t, repo, topics, settlementRegistry(), &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != recordedA.ID {
		t.Fatalf("expected only the first sale A event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != recordedB.ID {
		t.Fatalf("expected sale B to publish past the blocked aggregate, got %v", repo.published)
	}
	if len(topics.sent) != 2 {
		t.Fatalf("held event must not reach pubsub, sent %d", len(topics.sent))
	}
}

func TestProcessBatchKeysMessagesByAggregate(t *testing.T) {
	sale := uuid.New()
	event := newEvent(t, enums.EventTransactionShipped, sale, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	topics := &fakeTopics{}
	service := newTestService(t, repo, topics, settlementRegistry(), &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(topics.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(topics.sent))
	}
	msg := topics.sent[0]
	if msg.topic != "settlement-topic" {
		t.Fatalf("unexpected topic %q", msg.topic)
	}
	if msg.OrderingKey != sale.String() {
		t.Fatalf("ordering key should be the sale id, got %q", msg.OrderingKey)
	}
	if msg.Attributes["event_type"] != string(enums.EventTransactionShipped) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["event_id"] != event.ID.String() {
		t.Fatalf("event id attribute should come from the envelope, got %q", msg.Attributes["event_id"])
	}
}

func TestProcessBatchCountsOutcomes(t *testing.T) {
	event := newEvent(t, enums.EventFundsReleased, uuid.New(), 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, &fakeTopics{}, settlementRegistry(), &fakeDLQRepo{}, nil)
	reg := prometheus.NewRegistry()
	service.metrics = metrics.NewOutboxMetrics(reg)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var published float64
	for _, mf := range mfs {
		if mf.GetName() == "escrow_outbox_published_total" {
			published = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if published != 1 {
		t.Fatalf("expected one published event counted, got %f", published)
	}
}

func TestProcessBatchMissingPublisherIsTerminal(t *testing.T) {
	event := newEvent(t, enums.EventPayoutRequested, uuid.New(), 0)
	event.AggregateType = enums.AggregatePayoutRequest
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlqRepo := &fakeDLQRepo{}
	resolver := &fakeRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "payout-topic"},
		Payload:    &payloads.PayoutRequestedEvent{},
	}}
	service := newTestService(t, repo, &fakeTopics{missing: true}, resolver, dlqRepo, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 || dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlqRepo.entries)
	}
	if len(repo.published) != 0 {
		t.Fatalf("event should not be marked published")
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
}

func TestProcessBatchDeadLettersUndecodableRows(t *testing.T) {
	sale := uuid.New()
	broken := newEvent(t, enums.EventPaymentRecorded, sale, 0)
	next := newEvent(t, enums.EventTransactionShipped, sale, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{broken, next}}
	resolver := &fakeRegistry{
		failFor:  broken.ID,
		err:      registry.NewNonRetryableError(errors.New("invalid payload")),
		resolved: settlementResolved(),
	}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakeTopics{}, resolver, dlqRepo, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlqRepo.entries))
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != broken.ID || string(entry.Payload) != string(broken.Payload) {
		t.Fatalf("dlq entry does not mirror the row: %+v", entry)
	}
	if entry.ErrorMessage == nil || *entry.ErrorMessage != "invalid payload" {
		t.Fatalf("unexpected dlq message %v", entry.ErrorMessage)
	}
	if len(repo.published) != 1 || repo.published[0] != next.ID {
		t.Fatalf("dead-lettered row must not block its aggregate, published %v", repo.published)
	}
}

func TestProcessBatchDeadLettersAfterMaxAttempts(t *testing.T) {
	event := newEvent(t, enums.EventPaymentRecorded, uuid.New(), 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	topics := &fakeTopics{errs: []error{errors.New("transient")}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, topics, settlementRegistry(), dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 || dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("expected max-attempts dlq entry, got %+v", dlqRepo.entries)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal row should not also be marked failed")
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeTopics{}, settlementRegistry(), &fakeDLQRepo{}, nil)
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error for missing config")
	}
	_, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{Output: io.Discard}),
		DB:         &fakeDB{},
		Topics:     &fakeTopics{},
		Repository: &fakeRepo{},
		Registry:   &fakeRegistry{},
	})
	if err == nil {
		t.Fatalf("expected error for missing dlq repository")
	}
}

func TestSettingsFromDefaults(t *testing.T) {
	got := settingsFrom(config.OutboxConfig{})
	if got.batchSize != defaultBatchSize || got.maxAttempts != defaultMaxAttempts || got.pollInterval != defaultPollInterval {
		t.Fatalf("unexpected defaults %+v", got)
	}
	got = settingsFrom(config.OutboxConfig{BatchSize: 5, PollIntervalMS: 20, MaxAttempts: 3})
	if got.batchSize != 5 || got.maxAttempts != 3 || got.pollInterval != 20*time.Millisecond {
		t.Fatalf("overrides ignored %+v", got)
	}
}

func TestNextBackoffCapsAtMax(t *testing.T) {
	if got := nextBackoff(0, time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("unexpected backoff %s", got)
	}
	if got := nextBackoff(8*time.Second, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
	if got := withJitter(time.Second); got < time.Second || got >= time.Second+jitterWindow {
		t.Fatalf("jitter out of window: %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, topics topicSource, resolver registryResolver, dlq dlqRepository, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{BatchSize: 10, PollIntervalMS: 100, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	service, err := NewService(ServiceParams{
		Config:        &config.Config{Outbox: outboxCfg},
		Logger:        logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:            &fakeDB{},
		Topics:        topics,
		Repository:    repo,
		Registry:      resolver,
		DLQRepository: dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func newEvent(tb testing.TB, eventType enums.OutboxEventType, aggregateID uuid.UUID, attempts int) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   aggregateID,
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now(),
	}
}

func settlementResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "settlement-topic", AggregateType: enums.AggregateTransaction},
		Payload:    &payloads.PaymentRecordedEvent{},
	}
}

func settlementRegistry() *fakeRegistry {
	return &fakeRegistry{resolved: settlementResolved()}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type sentMessage struct {
	topic string
	*gcppubsub.Message
}

// fakeTopics returns errs in order for successive publishes; nil entries and an
// exhausted list mean success.
type fakeTopics struct {
	missing bool
	errs    []error
	sent    []sentMessage
}

func (f *fakeTopics) Ping(context.Context) error { return nil }

func (f *fakeTopics) Topic(name string) topicPublisher {
	if f.missing {
		return nil
	}
	return fakeTopic{parent: f, name: name}
}

type fakeTopic struct {
	parent *fakeTopics
	name   string
}

func (t fakeTopic) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	t.parent.sent = append(t.parent.sent, sentMessage{topic: t.name, Message: msg})
	if len(t.parent.errs) == 0 {
		return "server-id", nil
	}
	err := t.parent.errs[0]
	t.parent.errs = t.parent.errs[1:]
	return "server-id", err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	failFor  uuid.UUID
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil && (f.failFor == uuid.Nil || f.failFor == event.ID) {
		return nil, f.err
	}
	if f.resolved == nil {
		return nil, errors.New("no descriptor")
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
