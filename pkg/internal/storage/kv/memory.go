package kv

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// MemoryKV 基于 sync.Map 的内存 KV 实现，过期时间通过 ttl 包装在值里.
type MemoryKV struct {
	data sync.Map
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{now: time.Now}
}

// Get 获取键的值，过期的键会被顺带删除.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	value, exists := m.data.Load(key)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	raw, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid value type for key: %s", key)
	}

	data, expired, _, err := decodeWithTTL(raw, m.now())
	if err != nil {
		return nil, err
	}

	if expired {
		m.data.Delete(key)

		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	result := make([]byte, len(data))
	copy(result, data)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	wrapped, _, err := encodeWithTTL(data, ttl, m.now())
	if err != nil {
		return err
	}

	m.data.Store(key, wrapped)

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.data.Delete(key)

	return nil
}

// Exists 检查键是否存在且未过期.
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := m.Get(ctx, key); err != nil {
		return false, nil
	}

	return true, nil
}

// Keys 获取以 prefix 开头的键.
func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)

	m.data.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if ok && strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(configs.KVMemory, func(context.Context, *configs.KVConfig) (KVStore, error) {
		return NewMemoryKV(), nil
	})
}
