package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "forecast:table:"

// RedisStore keeps each table in a single Redis string value, so the
// pipeline's full-replace hand-off can target a shared Redis instead of
// a shared filesystem
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(addr, password string, db int, dialTimeout time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client}, nil
}

// Put replaces the table value. SET is atomic, so readers never observe
// a partially written table.
func (rs *RedisStore) Put(ctx context.Context, tableID string, data []byte) error {
	if err := rs.client.Set(ctx, redisKeyPrefix+tableID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write table %s: %w", tableID, err)
	}
	return nil
}

// Get reads the full contents of a table
func (rs *RedisStore) Get(ctx context.Context, tableID string) ([]byte, error) {
	data, err := rs.client.Get(ctx, redisKeyPrefix+tableID).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", tableID, err)
	}
	return data, nil
}

// Close releases the underlying Redis connection
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
