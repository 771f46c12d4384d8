// Package idempotency rejects replays of create requests that carry the
// same Idempotency-Key header.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight means the key was already claimed by an earlier request.
var ErrInFlight = errors.New("idempotency key already used")

type Guard interface {
	// Claim reserves key. It returns ErrInFlight when the key is taken.
	Claim(ctx context.Context, key string) error
	// Release frees key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}

// Client is the subset of *redis.Client the guard needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ Client = (*redis.Client)(nil)

type RedisGuard struct {
	client Client
	ttl    time.Duration
}

func NewRedisGuard(client Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, key string) error {
	ok, err := g.client.SetNX(ctx, buildKey(key), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if !ok {
		return ErrInFlight
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, buildKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func buildKey(key string) string {
	return fmt.Sprintf("idem:%s", key)
}

// NopGuard accepts every key. Used when Redis is not configured.
type NopGuard struct{}

func (NopGuard) Claim(context.Context, string) error   { return nil }
func (NopGuard) Release(context.Context, string) error { return nil }
