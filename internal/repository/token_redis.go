package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/coupon-console/internal/token"
)

// RedisCmdable is the subset of the go-redis client the token store uses.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisTokenStore keeps the bearer token under a single Redis key.
type RedisTokenStore struct {
	client RedisCmdable
	key    string
}

var _ token.Store = (*RedisTokenStore)(nil)

// NewRedisTokenStore creates a store on client under key.
func NewRedisTokenStore(client RedisCmdable, key string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key}
}

// Set stores the token without expiry; expiry is judged from the token's own claims.
func (r *RedisTokenStore) Set(ctx context.Context, tok string) error {
	if err := r.client.Set(ctx, r.key, tok, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// Get returns the stored token, or "" when the key is absent.
func (r *RedisTokenStore) Get(ctx context.Context) (string, error) {
	tok, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return tok, nil
}

// Remove deletes the key.
func (r *RedisTokenStore) Remove(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}
	return nil
}
