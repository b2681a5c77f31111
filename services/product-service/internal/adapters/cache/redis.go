package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/metrics"
	"github.com/go-redis/redis/v8"
)

const scanBatchSize = 100

// Options настройки подключения к Redis
type Options struct {
	Host              string
	Port              int
	Password          string
	DB                int
	PoolSize          int
	MinIdleConns      int
	MaxRetries        int
	DialTimeout       time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	DefaultExpiration time.Duration
}

type RedisCache struct {
	client            *redis.Client
	defaultExpiration time.Duration
}

func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, opts.DefaultExpiration), nil
}

// NewRedisCacheWithClient оборачивает готовый клиент
func NewRedisCacheWithClient(client *redis.Client, defaultExpiration time.Duration) *RedisCache {
	return &RedisCache{client: client, defaultExpiration: defaultExpiration}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
			return nil, apperrors.ErrCacheMiss
		}
		metrics.CacheOperations.WithLabelValues("get", metrics.StatusError).Inc()
		return nil, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration == 0 {
		expiration = r.defaultExpiration
	}
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		metrics.CacheOperations.WithLabelValues("set", metrics.StatusError).Inc()
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	metrics.CacheOperations.WithLabelValues("set", metrics.StatusSuccess).Inc()
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// DeleteByPattern сначала собирает ключи по шаблону, затем удаляет их пачками
func (r *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("ошибка при сканировании ключей по шаблону: %w", err)
	}

	for start := 0; start < len(keys); start += scanBatchSize {
		end := min(start+scanBatchSize, len(keys))
		if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("ошибка при удалении ключей кэша: %w", err)
		}
	}

	return nil
}

func (r *RedisCache) Version(ctx context.Context, versionKey string) (int64, error) {
	version, err := r.client.Get(ctx, versionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get cache version %s: %w", versionKey, err)
	}
	return version, nil
}

func (r *RedisCache) BumpVersion(ctx context.Context, versionKey string) error {
	if err := r.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("failed to bump cache version %s: %w", versionKey, err)
	}
	return nil
}

// SetIfVersion выполняет SET в транзакции под WATCH на versionKey
func (r *RedisCache) SetIfVersion(ctx context.Context, versionKey string, version int64, key string, value []byte, expiration time.Duration) (bool, error) {
	if expiration == 0 {
		expiration = r.defaultExpiration
	}

	written := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, expiration)
			return nil
		}); err != nil {
			return err
		}
		written = true
		return nil
	}, versionKey)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		metrics.CacheOperations.WithLabelValues("set", "stale").Inc()
		return false, nil
	case err != nil:
		metrics.CacheOperations.WithLabelValues("set", metrics.StatusError).Inc()
		return false, fmt.Errorf("failed to set cache key %s: %w", key, err)
	case !written:
		metrics.CacheOperations.WithLabelValues("set", "stale").Inc()
		return false, nil
	}
	metrics.CacheOperations.WithLabelValues("set", metrics.StatusSuccess).Inc()
	return true, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
