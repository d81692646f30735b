// Package cache 提供基于键值存储的泛型缓存实现，值使用 sonic 序列化.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore)
//	stats, err := cache.GetOrSet(ctx, c, "admin:stats", func() (Stats, error) {
//	    return computeStats(ctx)
//	}, 30*time.Second)
//
// 缓存读写失败不会让 GetOrSet 失败，只会退化为直接调用 getter.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/eduaccess/pkg/internal/storage/kv"
	nlog "github.com/yeisme/eduaccess/pkg/log"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache miss")

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{kvStore: kvStore, prefix: "cache:"}
}

// Get 泛型获取缓存值，未命中返回 ErrMiss.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.prefix+key)
	if errors.Is(err, kv.ErrNotFound) {
		return zero, ErrMiss
	}

	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.prefix+key, data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.prefix+key)
}

// GetOrSet 获取缓存值，未命中时调用 getter 并写回.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	var zero T

	if c != nil {
		value, err := Get[T](ctx, c, key)
		if err == nil {
			return value, nil
		}

		if !errors.Is(err, ErrMiss) {
			nlog.Logger().Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
	}

	value, err := getter()
	if err != nil {
		return zero, err
	}

	if c != nil && ttl > 0 {
		if setErr := Set(ctx, c, key, value, ttl); setErr != nil {
			nlog.Logger().Warn().Err(setErr).Str("key", key).Msg("cache write failed")
		}
	}

	return value, nil
}
