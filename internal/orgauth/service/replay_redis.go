package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultReplayKeyPrefix namespaces replay keys in a shared Redis.
const DefaultReplayKeyPrefix = "orgauth:selection:"

// RedisReplayGuard marks jtis with SETNX so replicas share one view of which
// selection tokens were exchanged. Keys expire once the token can no longer
// verify, leeway included.
type RedisReplayGuard struct {
	Client *redis.Client
	Prefix string
}

func (g *RedisReplayGuard) MarkUsed(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	ttl := time.Until(retainUntil(expiresAt))
	if ttl < time.Second {
		ttl = time.Second
	}

	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultReplayKeyPrefix
	}

	ok, err := g.Client.SetNX(ctx, prefix+jti, userID, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return ErrTokenReplayed
	}
	return nil
}
