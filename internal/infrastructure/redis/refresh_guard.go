package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ratehub/internal/application"
)

const refreshKeyPrefix = "ratehub:refresh:"

var _ application.RefreshGuard = (*RefreshGuard)(nil)

// RefreshGuard holds manual refresh keys in redis for TTL.
type RefreshGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRefreshGuard(client *redis.Client, ttl time.Duration) *RefreshGuard {
	return &RefreshGuard{Client: client, TTL: ttl}
}

func (g *RefreshGuard) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := g.Client.SetNX(ctx, refreshKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: reserve refresh key: %w", err)
	}
	return ok, nil
}

// Release frees key so a failed refresh can be retried with it.
func (g *RefreshGuard) Release(ctx context.Context, key string) error {
	if err := g.Client.Del(ctx, refreshKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: release refresh key: %w", err)
	}
	return nil
}
