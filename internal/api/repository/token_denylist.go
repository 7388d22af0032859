package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist records access-token IDs that were logged out before their
// expiry, so a revoked bearer token stops working immediately.
type TokenDenylist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type redisTokenDenylist struct {
	client *redis.Client
}

// NewRedisTokenDenylist connects to Redis and verifies the connection. A nil
// receiver or client behaves as an always-empty denylist, which keeps tests
// and denylist-less deployments working without a Redis instance.
func NewRedisTokenDenylist(redisURL, password string) (TokenDenylist, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         redisURL,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisTokenDenylist{client: rdb}, nil
}

// NewNoopTokenDenylist returns a denylist that never matches, for
// deployments without Redis.
func NewNoopTokenDenylist() TokenDenylist {
	return &redisTokenDenylist{client: nil}
}

func denyKey(jti string) string {
	return "denylist:token:" + jti
}

func (d *redisTokenDenylist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if d == nil || d.client == nil {
		return nil
	}
	if ttl <= 0 {
		// token already expired, nothing to remember
		return nil
	}
	return d.client.Set(ctx, denyKey(jti), "1", ttl).Err()
}

func (d *redisTokenDenylist) Contains(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.client == nil {
		return false, nil
	}
	n, err := d.client.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
