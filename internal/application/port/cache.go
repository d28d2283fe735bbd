package port

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss возвращается Get, если ключа нет в кэше
var ErrCacheMiss = errors.New("cache miss")

// Cache кэш результатов чтения (baseline рядов, история для графиков).
// Значения сериализуются реализацией; ttl <= 0 означает TTL по умолчанию.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// InvalidatePrefix удаляет все ключи, начинающиеся с prefix
	InvalidatePrefix(ctx context.Context, prefix string) error

	Close() error
}
