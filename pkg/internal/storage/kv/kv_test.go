package kv

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func TestMemoryKVTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryKV()
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "stats", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.Set(ctx, "forever", []byte("v2"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "stats")
	if err != nil || string(got) != "v1" {
		t.Fatalf("get before expiry = %q, %v", got, err)
	}

	now = now.Add(2 * time.Minute)

	if _, err := store.Get(ctx, "stats"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	if ok, _ := store.Exists(ctx, "stats"); ok {
		t.Fatal("expired key should not exist")
	}

	got, err = store.Get(ctx, "forever")
	if err != nil || string(got) != "v2" {
		t.Fatalf("get without ttl = %q, %v", got, err)
	}
}

func TestMemoryKVKeysByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKV()

	for _, k := range []string{"stats:admin", "stats:user", "other"} {
		if err := store.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	keys, err := store.Keys(ctx, "stats:")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestNewKVStoreUnknownType(t *testing.T) {
	_, err := NewKVStore(context.Background(), &configs.KVConfig{Type: "etcd"})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestRegisteredKVTypes(t *testing.T) {
	got := GetRegisteredKVTypes()
	want := []configs.KVType{configs.KVMemory, configs.KVNATS, configs.KVRedis}

	if len(got) != len(want) {
		t.Fatalf("registered = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("registered = %v, want %v", got, want)
		}
	}
}

func TestNATSKeyEncoding(t *testing.T) {
	for _, key := range []string{"admin:stats", "stats:a/b", "plain"} {
		enc := encodeNATSKey(key)

		for _, r := range enc {
			valid := r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			if !valid {
				t.Fatalf("encoded key %q contains %q", enc, r)
			}
		}

		got, ok := decodeNATSKey(enc)
		if !ok || got != key {
			t.Errorf("decode(%q) = %q, %v", enc, got, ok)
		}
	}

	if _, ok := decodeNATSKey("not*base64"); ok {
		t.Error("expected invalid key to be rejected")
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := NewKVStore(context.Background(), &configs.KVConfig{Type: configs.KVMemory})
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

// 设置 ENABLE_REDIS_BENCH=1 与 REDIS_ADDR（默认 127.0.0.1:6379）后启用.
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	cfg := &configs.KVConfig{
		Type:  configs.KVRedis,
		Redis: configs.RedisKVConfig{Addr: addr, KeyPrefix: "bench:"},
	}

	store, err := NewKVStore(context.Background(), cfg)
	if err != nil {
		b.Skipf("redis not available: %v", err)
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

func randBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = crand.Read(b)

	return b
}

// benchKV 执行基本的 Set/Get/Delete 基准测试.
func benchKV(b *testing.B, name string, store KVStore) {
	ctx := context.Background()
	sizes := []int{32, 1024, 64 * 1024}
	ttls := []time.Duration{0, 5 * time.Second}

	for _, size := range sizes {
		payload := randBytes(size)
		for _, ttl := range ttls {
			b.Run(fmt.Sprintf("%s/size=%d/ttl=%s", name, size, ttl), func(b *testing.B) {
				b.ReportAllocs()

				for i := 0; b.Loop(); i++ {
					key := fmt.Sprintf("bench-%s-%d", name, i)
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						b.Fatalf("set failed: %v", err)
					}

					if _, err := store.Get(ctx, key); err != nil {
						b.Fatalf("get failed: %v", err)
					}

					if err := store.Delete(ctx, key); err != nil {
						b.Fatalf("delete failed: %v", err)
					}
				}
			})
		}
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store KVStore) {
	ctx := context.Background()
	payload := randBytes(1024)

	var ctr uint64

	b.Run(name+"/parallel", func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				key := fmt.Sprintf("bench-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Errorf("set failed: %v", err)

					return
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Errorf("get failed: %v", err)

					return
				}

				_ = store.Delete(ctx, key)
			}
		})
	})
}
