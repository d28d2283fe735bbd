// Package redis кэш baseline рядов и истории телеметрии поверх Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 5 * time.Minute
	// размер пачки UNLINK при инвалидации по префиксу
	unlinkBatch = 100
)

// Options параметры подключения к Redis
type Options struct {
	Addr         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisCache хранит значения как JSON с TTL
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ port.Cache = (*RedisCache)(nil)

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(opts Options) (*RedisCache, error) {
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, opts.TTL), nil
}

// NewWithClient оборачивает готовый клиент (тесты, кластер)
func NewWithClient(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return port.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// битое значение считаем промахом, следующий Set его перезапишет
		return fmt.Errorf("%w: undecodable value at %s: %v", port.ErrCacheMiss, key, err)
	}
	return nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// InvalidatePrefix обходит ключи через SCAN и удаляет их пачками UNLINK
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return errors.New("refusing to invalidate an empty prefix")
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", unlinkBatch).Iterator()
	batch := make([]string, 0, unlinkBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to unlink cache keys: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys %s*: %w", prefix, err)
	}
	return flush()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// BaselineKey ключ кэша исторической базы ряда.
// Бакет по часу: база за 30 дней меняется медленно.
func BaselineKey(vesselID, parameterName string, windowDays int, now time.Time) string {
	bucket := now.UTC().Truncate(time.Hour).Unix()
	return fmt.Sprintf("telemetry:baseline:%s:%s:%d:%d", vesselID, parameterName, windowDays, bucket)
}
