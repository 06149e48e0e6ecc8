package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/annotation"

	"github.com/redis/go-redis/v9"
)

// RedisResultRepository implements ResultRepository on Redis with a TTL per
// entry.
type RedisResultRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultRepository creates a Redis-backed result repository.
func NewRedisResultRepository(addr, password string, db int, ttl time.Duration) *RedisResultRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisResultRepository{client: client, ttl: ttl}
}

// Save stores an analysis result under the given key
func (r *RedisResultRepository) Save(ctx context.Context, key string, result *annotation.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}

// Get retrieves a stored result, ErrResultNotFound when absent
func (r *RedisResultRepository) Get(ctx context.Context, key string) (*annotation.Result, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	var result annotation.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &result, nil
}

// Close releases the underlying Redis connection
func (r *RedisResultRepository) Close() error {
	return r.client.Close()
}
