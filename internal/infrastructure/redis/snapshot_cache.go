package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/domain"
)

const snapshotKey = "ratehub:snapshot"

var _ application.RateStore = (*SnapshotCache)(nil)

// SnapshotCache fronts a RateStore with a redis copy of the snapshot that
// expires after TTL. The wrapped store stays the source of truth; cache
// failures are logged and never surface to callers.
type SnapshotCache struct {
	Next   application.RateStore
	Client *redis.Client
	TTL    time.Duration
	Log    *zap.Logger
}

func NewSnapshotCache(next application.RateStore, client *redis.Client, ttl time.Duration, log *zap.Logger) *SnapshotCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotCache{Next: next, Client: client, TTL: ttl, Log: log}
}

// SaveSnapshot drops the cached entry before writing through, so a failed
// cache refresh afterwards leaves readers on the file instead of the old
// snapshot.
func (c *SnapshotCache) SaveSnapshot(ctx context.Context, snap domain.RatesSnapshot) error {
	if err := c.Invalidate(ctx); err != nil {
		c.Log.Warn("snapshot_cache.invalidate_failed", zap.Error(err))
	}
	if err := c.Next.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	c.put(ctx, snap)
	return nil
}

func (c *SnapshotCache) ReadSnapshot(ctx context.Context) (domain.RatesSnapshot, error) {
	raw, err := c.Client.Get(ctx, snapshotKey).Bytes()
	switch {
	case err == nil:
		var snap domain.RatesSnapshot
		if jerr := json.Unmarshal(raw, &snap); jerr == nil && !snap.IsEmpty() {
			return snap, nil
		}
		c.Log.Warn("snapshot_cache.malformed_entry")
	case errors.Is(err, redis.Nil):
	default:
		c.Log.Warn("snapshot_cache.get_failed", zap.Error(err))
	}

	snap, err := c.Next.ReadSnapshot(ctx)
	if err != nil {
		return snap, err
	}
	if !snap.IsEmpty() {
		c.put(ctx, snap)
	}
	return snap, nil
}

func (c *SnapshotCache) AppendHistory(ctx context.Context, rec domain.HistoricalRecord) error {
	return c.Next.AppendHistory(ctx, rec)
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	return c.Client.Del(ctx, snapshotKey).Err()
}

func (c *SnapshotCache) put(ctx context.Context, snap domain.RatesSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.Log.Warn("snapshot_cache.encode_failed", zap.Error(err))
		return
	}
	if err := c.Client.Set(ctx, snapshotKey, data, c.TTL).Err(); err != nil {
		c.Log.Warn("snapshot_cache.set_failed", zap.Error(err))
	}
}
