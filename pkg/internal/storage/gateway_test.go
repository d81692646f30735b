package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	"github.com/yeisme/eduaccess/pkg/internal/storage/db/dbtest"
)

func newGateway(t *testing.T) (*storage.Gateway, *blob.Memory) {
	t.Helper()

	blobs := blob.NewMemory()

	return storage.NewGateway(dbtest.Open(t), blobs), blobs
}

func seed(t *testing.T, gw *storage.Gateway, m *model.Material) *model.Material {
	t.Helper()

	if err := gw.CreateMaterial(context.Background(), m); err != nil {
		t.Fatalf("create material: %v", err)
	}

	return m
}

func TestFetchMetadataNotFound(t *testing.T) {
	gw, _ := newGateway(t)

	_, err := gw.FetchMetadata(context.Background(), "nope")
	if !errors.Is(err, storage.ErrMaterialNotFound) {
		t.Fatalf("expected ErrMaterialNotFound, got %v", err)
	}
}

func TestUpdateStatusPartial(t *testing.T) {
	ctx := context.Background()
	gw, _ := newGateway(t)
	m := seed(t, gw, &model.Material{Title: "Cells", FileURL: "u1/cells.txt", UploadedBy: "u1", Description: "week 1"})

	if m.Status != model.StatusPending {
		t.Fatalf("new material status = %s, want pending", m.Status)
	}

	if err := gw.UpdateStatus(ctx, m.ID, map[string]any{"summary": "short"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := gw.FetchMetadata(ctx, m.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if got.Summary == nil || *got.Summary != "short" {
		t.Fatalf("summary not written: %v", got.Summary)
	}

	if got.Title != "Cells" || got.Description != "week 1" || got.Status != model.StatusPending {
		t.Fatalf("untouched fields changed: %+v", got)
	}

	if err := gw.UpdateStatus(ctx, "missing", map[string]any{"status": "failed"}); !errors.Is(err, storage.ErrMaterialNotFound) {
		t.Fatalf("expected not found for missing id, got %v", err)
	}
}

func TestClaimProcessing(t *testing.T) {
	ctx := context.Background()
	gw, _ := newGateway(t)
	now := time.Now().UTC()
	staleBefore := now.Add(-30 * time.Minute)

	pending := seed(t, gw, &model.Material{FileURL: "u1/a.txt"})
	fresh := seed(t, gw, &model.Material{FileURL: "u1/b.txt", Status: model.StatusProcessing, UpdatedAt: now.Add(-5 * time.Minute)})
	stale := seed(t, gw, &model.Material{FileURL: "u1/c.txt", Status: model.StatusProcessing, UpdatedAt: now.Add(-time.Hour)})

	cases := []struct {
		name string
		id   string
		want bool
	}{
		{"pending is claimed", pending.ID, true},
		{"second claim loses", pending.ID, false},
		{"fresh processing is left alone", fresh.ID, false},
		{"stale processing is reclaimed", stale.ID, true},
		{"unknown id", "missing", false},
	}

	for _, tc := range cases {
		ok, err := gw.ClaimProcessing(ctx, tc.id, staleBefore)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}

		if ok != tc.want {
			t.Errorf("%s: claimed=%v, want %v", tc.name, ok, tc.want)
		}
	}
}

func TestMarkMissingOnlyOnce(t *testing.T) {
	ctx := context.Background()
	gw, _ := newGateway(t)
	m := seed(t, gw, &model.Material{FileURL: "u1/a.pdf", Status: model.StatusCompleted})

	changed, err := gw.MarkMissing(ctx, m.ID, "gone")
	if err != nil || !changed {
		t.Fatalf("first mark: changed=%v err=%v", changed, err)
	}

	changed, err = gw.MarkMissing(ctx, m.ID, "gone again")
	if err != nil || changed {
		t.Fatalf("second mark: changed=%v err=%v", changed, err)
	}

	got, _ := gw.FetchMetadata(ctx, m.ID)
	if got.Status != model.StatusFailed || got.Description != "gone" {
		t.Fatalf("unexpected row %+v", got)
	}
}

func TestSweepStuck(t *testing.T) {
	ctx := context.Background()
	gw, _ := newGateway(t)
	now := time.Now().UTC()

	old := seed(t, gw, &model.Material{FileURL: "u/a", Status: model.StatusProcessing, UpdatedAt: now.Add(-31 * time.Minute)})
	recent := seed(t, gw, &model.Material{FileURL: "u/b", Status: model.StatusProcessing, UpdatedAt: now.Add(-29 * time.Minute)})
	done := seed(t, gw, &model.Material{FileURL: "u/c", Status: model.StatusCompleted, UpdatedAt: now.Add(-2 * time.Hour)})

	n, err := gw.SweepStuck(ctx, now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if n != 1 {
		t.Fatalf("swept %d rows, want 1", n)
	}

	for id, want := range map[string]model.MaterialStatus{
		old.ID:    model.StatusFailed,
		recent.ID: model.StatusProcessing,
		done.ID:   model.StatusCompleted,
	} {
		got, _ := gw.FetchMetadata(ctx, id)
		if got.Status != want {
			t.Errorf("material %s status = %s, want %s", id, got.Status, want)
		}
	}
}

func TestListBlobsByFolderAndFilter(t *testing.T) {
	ctx := context.Background()
	gw, blobs := newGateway(t)

	for _, key := range []string{"u1/notes.pdf", "u1/notes.pdf.bak", "u1/other.txt", "u2/notes.pdf"} {
		_ = blobs.Put(ctx, key, []byte("x"), "text/plain")
	}

	got, err := gw.ListBlobs(ctx, "u1", "notes.pdf")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(got) != 2 || got[0].Key != "u1/notes.pdf" {
		t.Fatalf("unexpected listing %+v", got)
	}

	all, _ := gw.ListBlobs(ctx, "u1", "")
	if len(all) != 3 {
		t.Fatalf("folder listing returned %d objects, want 3", len(all))
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	gw, _ := newGateway(t)

	ok, err := gw.ProfileExists(ctx, "id-1")
	if err != nil || ok {
		t.Fatalf("exists before create: %v %v", ok, err)
	}

	if err := gw.CreateProfile(ctx, &model.UserProfile{ID: "id-1", Email: "a@b.c", Role: model.RoleStudent}); err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err := gw.FetchProfile(ctx, "id-1")
	if err != nil || p.Email != "a@b.c" {
		t.Fatalf("fetch profile: %+v %v", p, err)
	}

	if _, err := gw.FetchProfile(ctx, "id-2"); !errors.Is(err, storage.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
