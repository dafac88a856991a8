package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 2 * time.Hour

// Lock is a lease that keeps a cron cycle to one replica at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	// Refresh extends the lease and reports false once another replica holds it.
	Refresh(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisLock stores a random owner token under key. Refresh and Release only act while
// the token is still ours, so an expired lease taken over by another replica is left alone.
type RedisLock struct {
	store leaseStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store leaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

func (l *RedisLock) Refresh(ctx context.Context) (bool, error) {
	if l.token == "" {
		return false, nil
	}
	ok, err := l.store.CompareAndExpire(ctx, l.key, l.token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("refresh lock %s: %w", l.key, err)
	}
	if !ok {
		l.token = ""
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, token); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
