package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSlotRepository keeps each snapshot as a plain string value.
type RedisSlotRepository struct {
	rdb *redis.Client
}

func NewRedisSlotRepository(rdb *redis.Client) *RedisSlotRepository {
	return &RedisSlotRepository{rdb: rdb}
}

func (r *RedisSlotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisSlotRepository) Save(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

func (r *RedisSlotRepository) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return nil
}

func (r *RedisSlotRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisSlotRepository) Driver() string { return DriverRedis }
func (r *RedisSlotRepository) Close() error   { return r.rdb.Close() }
