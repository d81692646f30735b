package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	dbc "github.com/yeisme/eduaccess/pkg/internal/storage/db"
)

var (
	// ErrMaterialNotFound 资料不存在.
	ErrMaterialNotFound = errors.New("material not found")
	// ErrProfileNotFound 用户资料不存在.
	ErrProfileNotFound = errors.New("profile not found")
)

// Gateway 资料存储网关：元数据表 + 对象存储.
// 所有写操作都是独立请求，网关本身不重试.
type Gateway struct {
	db    *gorm.DB
	blobs blob.Store
	now   func() time.Time
}

// NewGateway 创建网关.
func NewGateway(db *dbc.Client, blobs blob.Store) *Gateway {
	return &Gateway{db: db.DB, blobs: blobs, now: func() time.Time { return time.Now().UTC() }}
}

// FetchMetadata 按 id 读取资料.
func (g *Gateway) FetchMetadata(ctx context.Context, id string) (*model.Material, error) {
	var m model.Material

	err := g.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMaterialNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("fetch material %s: %w", id, err)
	}

	return &m, nil
}

// UpdateStatus 部分更新资料字段（列名 -> 值），后写者生效，同时刷新 updated_at.
func (g *Gateway) UpdateStatus(ctx context.Context, id string, fields map[string]any) error {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}

	updates["updated_at"] = g.now()

	res := g.db.WithContext(ctx).Model(&model.Material{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update material %s: %w", id, res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrMaterialNotFound, id)
	}

	return nil
}

// ClaimProcessing 条件更新为 processing：仅当当前状态不是 processing，
// 或者 processing 已超过 staleBefore 未更新. 返回是否抢到.
func (g *Gateway) ClaimProcessing(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	res := g.db.WithContext(ctx).Model(&model.Material{}).
		Where("id = ?", id).
		Where("(status IN ? OR (status = ? AND updated_at < ?))",
			[]string{string(model.StatusPending), string(model.StatusFailed), string(model.StatusCompleted)},
			string(model.StatusProcessing), staleBefore).
		Updates(map[string]any{
			"status":     string(model.StatusProcessing),
			"updated_at": g.now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim material %s: %w", id, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// CreateMaterial 新建资料记录.
func (g *Gateway) CreateMaterial(ctx context.Context, m *model.Material) error {
	if err := g.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create material: %w", err)
	}

	return nil
}

// ListMaterials 列出全部资料（仅对账需要的列）.
func (g *Gateway) ListMaterials(ctx context.Context) ([]model.Material, error) {
	var out []model.Material

	err := g.db.WithContext(ctx).
		Select("id", "file_url", "status", "description", "uploaded_by", "updated_at").
		Order("created_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}

	return out, nil
}

// MarkMissing 将非 failed 的资料标记为 failed 并写入新的描述，返回是否发生了修改.
func (g *Gateway) MarkMissing(ctx context.Context, id, description string) (bool, error) {
	res := g.db.WithContext(ctx).Model(&model.Material{}).
		Where("id = ? AND status <> ?", id, string(model.StatusFailed)).
		Updates(map[string]any{
			"status":      string(model.StatusFailed),
			"description": description,
			"updated_at":  g.now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark material %s missing: %w", id, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// SweepStuck 一次性把 updated_at 早于 before 的 processing 资料置为 failed.
func (g *Gateway) SweepStuck(ctx context.Context, before time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Model(&model.Material{}).
		Where("status = ? AND updated_at < ?", string(model.StatusProcessing), before).
		Updates(map[string]any{
			"status":     string(model.StatusFailed),
			"updated_at": g.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep stuck materials: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// ProfileExists 按 id 探测用户资料.
func (g *Gateway) ProfileExists(ctx context.Context, id string) (bool, error) {
	var count int64

	if err := g.db.WithContext(ctx).Model(&model.UserProfile{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("probe profile %s: %w", id, err)
	}

	return count > 0, nil
}

// FetchProfile 读取用户资料.
func (g *Gateway) FetchProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	var p model.UserProfile

	err := g.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}

	return &p, nil
}

// CreateProfile 插入用户资料.
func (g *Gateway) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	if err := g.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create profile %s: %w", p.ID, err)
	}

	return nil
}

// DownloadBlob 下载对象.
func (g *Gateway) DownloadBlob(ctx context.Context, path string) ([]byte, error) {
	return g.blobs.Get(ctx, path)
}

// UploadBlob 上传对象.
func (g *Gateway) UploadBlob(ctx context.Context, path string, data []byte, contentType string) error {
	return g.blobs.Put(ctx, path, data, contentType)
}

// RemoveBlob 删除对象.
func (g *Gateway) RemoveBlob(ctx context.Context, path string) error {
	return g.blobs.Remove(ctx, path)
}

// ListBlobs 列出 folder 下文件名以 filenameFilter 开头的对象.
func (g *Gateway) ListBlobs(ctx context.Context, folder, filenameFilter string) ([]blob.Info, error) {
	prefix := blob.JoinKey(folder, filenameFilter)
	if folder != "" && filenameFilter == "" {
		prefix = strings.TrimSuffix(folder, "/") + "/"
	}

	return g.blobs.List(ctx, prefix)
}

// PresignBlob 生成限时下载链接.
func (g *Gateway) PresignBlob(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return g.blobs.PresignGet(ctx, path, expiry)
}
