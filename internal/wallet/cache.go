package wallet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

type walletReader interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	WalletKey(ownerID string) string
}

// CachedReader serves wallet snapshots through Redis. Reads fall back to the database on
// any cache failure; writers invalidate after commit.
type CachedReader struct {
	source walletReader
	cache  cacheStore
	ttl    time.Duration
	logg   *logger.Logger
}

// NewCachedReader wraps source with a read-through cache. A nil cache disables caching.
func NewCachedReader(source walletReader, cache cacheStore, ttl time.Duration, logg *logger.Logger) *CachedReader {
	return &CachedReader{source: source, cache: cache, ttl: ttl, logg: logg}
}

func (r *CachedReader) Get(ctx context.Context, ownerID uuid.UUID) (Snapshot, error) {
	if r.cache != nil && r.ttl > 0 {
		if raw, err := r.cache.Get(ctx, r.cache.WalletKey(ownerID.String())); err == nil && raw != "" {
			var snap Snapshot
			if json.Unmarshal([]byte(raw), &snap) == nil {
				return snap, nil
			}
		}
	}

	wallet, err := r.source.Get(ctx, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := NewSnapshot(wallet)

	if r.cache != nil && r.ttl > 0 {
		if data, err := json.Marshal(snap); err == nil {
			if err := r.cache.Set(ctx, r.cache.WalletKey(ownerID.String()), data, r.ttl); err != nil && r.logg != nil {
				r.logg.Warn(r.logg.WithField(ctx, "owner_id", ownerID.String()), "wallet cache write failed")
			}
		}
	}
	return snap, nil
}

// Invalidate drops cached snapshots for the given owners.
func (r *CachedReader) Invalidate(ctx context.Context, ownerIDs ...uuid.UUID) error {
	if r == nil || r.cache == nil || len(ownerIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		keys = append(keys, r.cache.WalletKey(id.String()))
	}
	return r.cache.Del(ctx, keys...)
}
