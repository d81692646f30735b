package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/eduaccess/pkg/cache"
	"github.com/yeisme/eduaccess/pkg/internal/storage/kv"
)

type snapshot struct {
	Users  int64  `json:"users"`
	Volume string `json:"volume"`
}

func TestGetMiss(t *testing.T) {
	c := cache.NewCache(kv.NewMemoryKV())

	_, err := cache.Get[snapshot](context.Background(), c, "missing")
	if !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestGetOrSetCallsGetterOnce(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV())
	calls := 0

	getter := func() (snapshot, error) {
		calls++

		return snapshot{Users: 3, Volume: "2.0MB"}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, c, "stats", getter, time.Minute)
		if err != nil {
			t.Fatalf("GetOrSet: %v", err)
		}

		if got.Users != 3 || got.Volume != "2.0MB" {
			t.Fatalf("unexpected value %+v", got)
		}
	}

	if calls != 1 {
		t.Fatalf("getter called %d times, want 1", calls)
	}
}

func TestGetOrSetZeroTTLSkipsCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV())
	calls := 0

	getter := func() (int, error) {
		calls++

		return calls, nil
	}

	_, _ = cache.GetOrSet(ctx, c, "n", getter, 0)
	_, _ = cache.GetOrSet(ctx, c, "n", getter, 0)

	if calls != 2 {
		t.Fatalf("getter called %d times, want 2", calls)
	}
}

func TestGetOrSetPropagatesGetterError(t *testing.T) {
	boom := errors.New("boom")

	_, err := cache.GetOrSet(context.Background(), cache.NewCache(kv.NewMemoryKV()), "k", func() (int, error) {
		return 0, boom
	}, time.Minute)
	if !errors.Is(err, boom) {
		t.Fatalf("expected getter error, got %v", err)
	}
}

func TestNilCacheFallsBackToGetter(t *testing.T) {
	got, err := cache.GetOrSet(context.Background(), nil, "k", func() (string, error) {
		return "direct", nil
	}, time.Minute)
	if err != nil || got != "direct" {
		t.Fatalf("got %q, %v", got, err)
	}
}
