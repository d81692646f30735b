package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	"github.com/yeisme/eduaccess/pkg/internal/storage/db"
	"github.com/yeisme/eduaccess/pkg/internal/storage/db/dbtest"
)

// fixture 测试共用的数据库、对象存储与网关.
type fixture struct {
	db    *db.Client
	blobs *blob.Memory
	gw    *storage.Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := dbtest.Open(t)
	blobs := blob.NewMemory()

	return &fixture{db: client, blobs: blobs, gw: storage.NewGateway(client, blobs)}
}

func (f *fixture) material(t *testing.T, m *model.Material, content string) *model.Material {
	t.Helper()

	ctx := context.Background()

	if content != "" {
		if err := f.blobs.Put(ctx, m.FileURL, []byte(content), m.FileType); err != nil {
			t.Fatalf("put blob: %v", err)
		}
	}

	if err := f.gw.CreateMaterial(ctx, m); err != nil {
		t.Fatalf("create material: %v", err)
	}

	return m
}

func (f *fixture) reload(t *testing.T, id string) *model.Material {
	t.Helper()

	m, err := f.gw.FetchMetadata(context.Background(), id)
	if err != nil {
		t.Fatalf("reload %s: %v", id, err)
	}

	return m
}

// capturePublisher 记录发布的消息.
type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
}

func (c *capturePublisher) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range msgs {
		c.topics = append(c.topics, topic)
		c.msgs = append(c.msgs, m)
	}

	return nil
}

func (c *capturePublisher) published(topic string) []*message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*message.Message

	for i, tp := range c.topics {
		if tp == topic {
			out = append(out, c.msgs[i])
		}
	}

	return out
}
