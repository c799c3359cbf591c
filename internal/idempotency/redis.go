package idempotency

import (
	"context"
	"errors"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "webhook:seen:"

// RedisRegistry shares the transient registry across instances using SET NX.
type RedisRegistry struct {
	client *redis.Client
	ttl    TTLFunc
}

func NewRedisRegistry(client *redis.Client, ttl TTLFunc) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func (r *RedisRegistry) Mark(ctx context.Context, key string) (bool, error) {
	if r == nil || r.client == nil {
		return false, errors.New("redis registry not configured")
	}
	if key == "" {
		return false, errors.New("idempotency key is empty")
	}
	ttl := r.ttl()
	if ttl <= 0 {
		return false, errors.New("idempotency ttl must be positive")
	}
	return r.client.SetNX(ctx, redisKeyPrefix+key, uuid.NewString(), ttl).Result()
}

func (r *RedisRegistry) Forget(ctx context.Context, key string) error {
	if r == nil || r.client == nil || key == "" {
		return nil
	}
	return r.client.Del(ctx, redisKeyPrefix+key).Err()
}

var _ Registry = (*RedisRegistry)(nil)
