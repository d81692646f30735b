package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/queue"
)

func TestMaterialUpload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &capturePublisher{}

	cfg := configs.Defaults()
	cfg.Pipeline.AutoProcess = true

	svc := service.NewMaterialService(f.gw, pub, &cfg)

	m, err := svc.Upload(ctx, service.UploadInput{
		UserID:   "u1",
		FileName: "Week 1 Notes.TXT",
		Data:     []byte(lecture),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if m.Status != model.StatusPending || m.Title != "Week 1 Notes" || m.FileSize != int64(len(lecture)) {
		t.Fatalf("unexpected material %+v", m)
	}

	if !strings.HasPrefix(m.FileURL, "u1/") || !strings.HasSuffix(m.FileURL, ".txt") {
		t.Fatalf("file_url = %s", m.FileURL)
	}

	if !strings.HasPrefix(m.FileType, "text/plain") {
		t.Errorf("file_type = %s", m.FileType)
	}

	if data, err := f.blobs.Get(ctx, m.FileURL); err != nil || string(data) != lecture {
		t.Fatalf("blob not stored: %v", err)
	}

	if n := len(pub.published(queue.TopicMaterialUploaded)); n != 1 {
		t.Errorf("uploaded events = %d", n)
	}

	requested := pub.published(queue.TopicMaterialProcessRequested)
	if len(requested) != 1 {
		t.Fatalf("process requests = %d", len(requested))
	}

	env, err := queue.ParseProcessRequested(requested[0])
	if err != nil || env.Payload.MaterialID != m.ID || env.Payload.RequestedBy != "u1" {
		t.Fatalf("unexpected request %+v (%v)", env.Payload, err)
	}
}

func TestMaterialUploadRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	cfg := configs.Defaults()

	if _, err := service.NewMaterialService(f.gw, nil, &cfg).Upload(context.Background(), service.UploadInput{FileName: "a.txt"}); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestMaterialDownloadURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cfg := configs.Defaults()
	svc := service.NewMaterialService(f.gw, nil, &cfg)

	m := f.material(t, &model.Material{FileURL: "u1/a.txt", FileType: "text/plain"}, "hello")

	url, err := svc.DownloadURL(ctx, m.ID, service.KindFile)
	if err != nil || !strings.HasPrefix(url, "memory://u1/a.txt?expires=") {
		t.Fatalf("file url = %q, err %v", url, err)
	}

	if _, err := svc.DownloadURL(ctx, m.ID, service.KindAudio); !errors.Is(err, service.ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestMaterialEnqueueWithoutQueue(t *testing.T) {
	f := newFixture(t)
	cfg := configs.Defaults()

	if err := service.NewMaterialService(f.gw, nil, &cfg).Enqueue(context.Background(), "m1", "u1"); err == nil {
		t.Fatal("expected error without task queue")
	}
}

// insertFailingRepo 写库失败，对象存储走真实网关.
type insertFailingRepo struct{ *storage.Gateway }

func (insertFailingRepo) CreateMaterial(context.Context, *model.Material) error {
	return errors.New("create material: UNIQUE constraint failed")
}

func TestMaterialUploadRemovesBlobOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &capturePublisher{}

	cfg := configs.Defaults()
	cfg.Pipeline.AutoProcess = true

	svc := service.NewMaterialService(insertFailingRepo{f.gw}, pub, &cfg)

	if _, err := svc.Upload(ctx, service.UploadInput{UserID: "u1", FileName: "notes.txt", Data: []byte(lecture)}); err == nil {
		t.Fatal("expected insert error")
	}

	left, err := f.blobs.List(ctx, "u1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(left) != 0 {
		t.Errorf("orphaned objects left behind: %+v", left)
	}

	if n := len(pub.published(queue.TopicMaterialProcessRequested)); n != 0 {
		t.Errorf("process requests = %d", n)
	}
}
