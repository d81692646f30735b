package kv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// NATSKV 基于 NATS JetStream KV 的实现.
// JetStream 键不允许出现 ':' 等字符，键名统一做 base64url 编码；过期由 ttl 包装懒删除.
type NATSKV struct {
	kv   nats.KeyValue
	conn *nats.Conn
	now  func() time.Time
}

// NewNATSKV 连接 NATS 并创建或复用 bucket.
func NewNATSKV(_ context.Context, cfg *configs.NATSKVConfig) (*NATSKV, error) {
	opts := []nats.Option{nats.Name("eduaccess-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: cfg.Bucket})
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create/get KV bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{kv: kv, conn: nc, now: time.Now}, nil
}

func encodeNATSKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeNATSKey(k string) (string, bool) {
	b, err := base64.RawURLEncoding.DecodeString(k)
	if err != nil {
		return "", false
	}

	return string(b), true
}

// load 读取并解包，过期条目顺手删除.
func (n *NATSKV) load(key string) ([]byte, error) {
	entry, err := n.kv.Get(encodeNATSKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, expired, _, err := decodeWithTTL(entry.Value(), n.now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = n.kv.Delete(encodeNATSKey(key))
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return val, nil
}

// Get 获取键的值.
func (n *NATSKV) Get(_ context.Context, key string) ([]byte, error) {
	return n.load(key)
}

// Set 设置键的值.
func (n *NATSKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl, n.now())
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(encodeNATSKey(key), encoded); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete 删除键，键不存在时不报错.
func (n *NATSKV) Delete(_ context.Context, key string) error {
	err := n.kv.Delete(encodeNATSKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Exists 检查键是否存在.
func (n *NATSKV) Exists(_ context.Context, key string) (bool, error) {
	_, err := n.load(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 获取匹配前缀的键.
func (n *NATSKV) Keys(_ context.Context, prefix string) ([]string, error) {
	raw, err := n.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var keys []string

	for _, k := range raw {
		key, ok := decodeNATSKey(k)
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}

		if _, err := n.load(key); err != nil {
			continue
		}

		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys, nil
}

// Close 关闭 NATS 连接.
func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	RegisterKVFactory(configs.KVNATS, func(ctx context.Context, cfg *configs.KVConfig) (KVStore, error) {
		return NewNATSKV(ctx, &cfg.NATS)
	})
}
