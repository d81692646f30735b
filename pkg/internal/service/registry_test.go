package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/identity"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
)

func registryConfig() configs.RegistryConfig {
	return configs.RegistryConfig{Concurrency: 4, DefaultFullName: "New User", DefaultRole: model.RoleStudent}
}

func TestSyncUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.gw.CreateProfile(ctx, &model.UserProfile{ID: "u1", Email: "a@x.io", Role: model.RoleAdmin}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	dir := identity.Static{
		{ID: "u1", Email: "a@x.io"},
		{ID: "u2", Email: "b@x.io", FullName: "Grace Hopper", Role: model.RoleAdmin},
		{ID: "u3", Email: "c@x.io", Role: "teacher"},
	}

	svc := service.NewRegistryService(f.gw, dir, registryConfig(), 0)

	res := svc.SyncUsers(ctx)
	if res.Status != service.ScanSuccess || res.Total != 3 || res.Repaired != 2 {
		t.Fatalf("first sync = %+v", res)
	}

	u3, err := f.gw.FetchProfile(ctx, "u3")
	if err != nil {
		t.Fatalf("fetch u3: %v", err)
	}

	if u3.Role != model.RoleStudent || u3.FullName != "New User" {
		t.Errorf("defaults not applied: %+v", u3)
	}

	u2, _ := f.gw.FetchProfile(ctx, "u2")
	if u2.Role != model.RoleAdmin || u2.FullName != "Grace Hopper" {
		t.Errorf("identity metadata not kept: %+v", u2)
	}

	if again := svc.SyncUsers(ctx); again.Repaired != 0 {
		t.Fatalf("second sync repaired %d", again.Repaired)
	}
}

func TestSyncUsersWithoutDirectory(t *testing.T) {
	f := newFixture(t)

	res := service.NewRegistryService(f.gw, nil, registryConfig(), 0).FullSync(context.Background())
	if res.Users.Status != service.ScanError || res.Users.Message == "" {
		t.Fatalf("users = %+v", res.Users)
	}

	if res.Materials.Status != service.ScanSuccess || res.Cleanup.Status != service.ScanSuccess {
		t.Fatalf("sibling scans should still run: %+v", res)
	}
}

func TestSyncMaterialsMarksMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	present := f.material(t, &model.Material{FileURL: "u1/present.pdf", Status: model.StatusCompleted, Description: "kept"}, "x")
	gone := f.material(t, &model.Material{FileURL: "u1/gone.pdf", Status: model.StatusCompleted, Description: "Week 3 slides"}, "x")
	empty := f.material(t, &model.Material{FileURL: "u2/empty.txt", Status: model.StatusPending}, "")
	failed := f.material(t, &model.Material{FileURL: "u1/failed.pdf", Status: model.StatusFailed, Description: "old"}, "")
	// 同目录下文件名前缀相同的对象不能算作存在
	f.material(t, &model.Material{FileURL: "u1/gone.pdf.bak", Status: model.StatusCompleted}, "x")

	f.blobs.Delete(gone.FileURL)

	svc := service.NewRegistryService(f.gw, identity.Static{}, registryConfig(), 0)

	res := svc.SyncMaterials(ctx)
	if res.Status != service.ScanSuccess || res.Total != 4 || res.MissingFiles != 2 {
		t.Fatalf("sync = %+v", res)
	}

	got := f.reload(t, gone.ID)
	if got.Status != model.StatusFailed {
		t.Fatalf("gone status = %s", got.Status)
	}

	if !strings.HasPrefix(got.Description, "Week 3 slides") || !strings.Contains(got.Description, service.MissingFileMarker) {
		t.Fatalf("description = %q", got.Description)
	}

	if got := f.reload(t, empty.ID); got.Description != service.MissingFileMarker {
		t.Fatalf("empty description = %q", got.Description)
	}

	if got := f.reload(t, present.ID); got.Status != model.StatusCompleted || got.Description != "kept" {
		t.Fatalf("present material changed: %+v", got)
	}

	if got := f.reload(t, failed.ID); got.Description != "old" {
		t.Fatalf("already failed material changed: %q", got.Description)
	}

	again := svc.SyncMaterials(ctx)
	if again.MissingFiles != 0 {
		t.Fatalf("second run marked %d", again.MissingFiles)
	}

	if d := f.reload(t, gone.ID).Description; strings.Count(d, service.MissingFileMarker) != 1 {
		t.Fatalf("marker appended twice: %q", d)
	}
}

func TestCleanupStuck(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t)

	old := f.material(t, &model.Material{FileURL: "u/a", Status: model.StatusProcessing, UpdatedAt: now.Add(-45 * time.Minute)}, "")
	fresh := f.material(t, &model.Material{FileURL: "u/b", Status: model.StatusProcessing, UpdatedAt: now.Add(-10 * time.Minute)}, "")

	svc := service.NewRegistryService(f.gw, identity.Static{}, registryConfig(), 30*time.Minute,
		service.WithRegistryClock(func() time.Time { return now }))

	res := svc.CleanupStuck(ctx)
	if res.Status != service.ScanSuccess || res.Cleaned != 1 {
		t.Fatalf("cleanup = %+v", res)
	}

	if got := f.reload(t, old.ID); got.Status != model.StatusFailed {
		t.Errorf("old status = %s", got.Status)
	}

	if got := f.reload(t, fresh.ID); got.Status != model.StatusProcessing {
		t.Errorf("fresh status = %s", got.Status)
	}
}

func TestFullSyncIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t)

	f.material(t, &model.Material{FileURL: "u1/lost.pdf", Status: model.StatusCompleted}, "")
	f.material(t, &model.Material{FileURL: "u1/stuck.txt", Status: model.StatusProcessing, UpdatedAt: now.Add(-2 * time.Hour)}, "x")

	svc := service.NewRegistryService(f.gw, identity.Static{{ID: "u1", Email: "a@x.io"}}, registryConfig(), 0)

	first := svc.FullSync(ctx)
	if first.Users.Repaired != 1 || first.Materials.MissingFiles != 1 || first.Cleanup.Cleaned != 1 {
		t.Fatalf("first run = %+v", first)
	}

	second := svc.FullSync(ctx)
	if second.Users.Repaired != 0 || second.Materials.MissingFiles != 0 || second.Cleanup.Cleaned != 0 {
		t.Fatalf("second run = %+v", second)
	}
}

func TestFullSyncResultJSON(t *testing.T) {
	res := service.FullSyncResult{
		Users:     service.UsersResult{Status: service.ScanError, Message: "directory down"},
		Materials: service.MaterialsResult{Status: service.ScanSuccess, Total: 4, MissingFiles: 1},
		Cleanup:   service.CleanupResult{Status: service.ScanSuccess},
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(got["users"]) != 2 || got["users"]["status"] != "error" || got["users"]["message"] != "directory down" {
		t.Errorf("users = %v", got["users"])
	}

	if got["materials"]["missingFiles"] != float64(1) || got["materials"]["total"] != float64(4) {
		t.Errorf("materials = %v", got["materials"])
	}

	if got["cleanup"]["cleaned"] != float64(0) || got["cleanup"]["status"] != "success" {
		t.Errorf("cleanup = %v", got["cleanup"])
	}

	if res.Errors() != 1 {
		t.Errorf("errors = %d", res.Errors())
	}
}

func TestAppendMissingMarker(t *testing.T) {
	if got := service.AppendMissingMarker(""); got != service.MissingFileMarker {
		t.Errorf("empty = %q", got)
	}

	want := "notes\n\n" + service.MissingFileMarker
	if got := service.AppendMissingMarker("notes"); got != want {
		t.Errorf("got %q", got)
	}

	if got := service.AppendMissingMarker(want); got != want {
		t.Errorf("marker appended twice: %q", got)
	}
}

// listFailingStore 列资料时报错，其余操作走真实网关.
type listFailingStore struct{ *storage.Gateway }

func (listFailingStore) ListMaterials(context.Context) ([]model.Material, error) {
	return nil, errors.New("list materials: database is locked")
}

func TestFullSyncIsolatesFailedScan(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t)

	stuck := f.material(t, &model.Material{FileURL: "u1/stuck.txt", Status: model.StatusProcessing, UpdatedAt: now.Add(-2 * time.Hour)}, "x")

	svc := service.NewRegistryService(listFailingStore{f.gw}, identity.Static{{ID: "u1", Email: "a@x.io"}}, registryConfig(), 30*time.Minute)

	res := svc.FullSync(ctx)
	if res.Materials.Status != service.ScanError || !strings.Contains(res.Materials.Message, "database is locked") {
		t.Fatalf("materials = %+v", res.Materials)
	}

	if res.Users.Status != service.ScanSuccess || res.Users.Repaired != 1 {
		t.Errorf("users = %+v", res.Users)
	}

	if res.Cleanup.Status != service.ScanSuccess || res.Cleanup.Cleaned != 1 {
		t.Errorf("cleanup = %+v", res.Cleanup)
	}

	if res.Errors() != 1 {
		t.Errorf("errors = %d", res.Errors())
	}

	if got := f.reload(t, stuck.ID); got.Status != model.StatusFailed {
		t.Errorf("stuck status = %s", got.Status)
	}

	if ok, err := f.gw.ProfileExists(ctx, "u1"); err != nil || !ok {
		t.Errorf("profile u1 exists = %v, err = %v", ok, err)
	}
}

// countingStore 记录 ListBlobs 的调用次数.
type countingStore struct {
	*storage.Gateway
	lists int
}

func (c *countingStore) ListBlobs(ctx context.Context, folder, filename string) ([]blob.Info, error) {
	c.lists++

	return c.Gateway.ListBlobs(ctx, folder, filename)
}

func TestSyncMaterialsEmptyFileURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.blobs.Put(ctx, "stray.pdf", []byte("x"), ""); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	blank := f.material(t, &model.Material{FileURL: "", Status: model.StatusCompleted}, "")
	folderOnly := f.material(t, &model.Material{FileURL: "u1/", Status: model.StatusCompleted}, "")

	store := &countingStore{Gateway: f.gw}
	svc := service.NewRegistryService(store, identity.Static{}, configs.RegistryConfig{Concurrency: 1}, 0)

	res := svc.SyncMaterials(ctx)
	if res.Total != 2 || res.MissingFiles != 2 {
		t.Fatalf("sync = %+v", res)
	}

	if store.lists != 0 {
		t.Errorf("storage listed %d time(s) for materials without a file name", store.lists)
	}

	for _, id := range []string{blank.ID, folderOnly.ID} {
		if got := f.reload(t, id); got.Status != model.StatusFailed || got.Description != service.MissingFileMarker {
			t.Errorf("material %s = %+v", id, got)
		}
	}
}
