package main

import (
	"math/rand/v2"
	"time"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type relaySettings struct {
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func settingsFrom(cfg config.OutboxConfig) relaySettings {
	settings := relaySettings{
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		pollInterval:   defaultPollInterval,
		publishTimeout: defaultPublishTimeout,
	}
	if cfg.BatchSize > 0 {
		settings.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		settings.maxAttempts = cfg.MaxAttempts
	}
	if cfg.PollIntervalMS > 0 {
		settings.pollInterval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return settings
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < limit {
		return next
	}
	return limit
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
