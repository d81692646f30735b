package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/eduaccess/pkg/cache"
	"github.com/yeisme/eduaccess/pkg/internal/model"
)

const (
	statsCacheKey = "admin:stats"

	// neuralThroughputPlaceholder 没有真实测量来源的固定值，有资料时返回.
	neuralThroughputPlaceholder = 92
)

// Stats 管理端统计.
type Stats struct {
	TotalUsers   int64       `json:"totalUsers"`
	AssetsStored int64       `json:"assetsStored"`
	SyncSuccess  string      `json:"syncSuccess"`
	DataVolume   string      `json:"dataVolume"`
	Health       StatsHealth `json:"health"`
}

// StatsHealth 健康指标. NeuralThroughput 是占位值，不是测量结果.
type StatsHealth struct {
	GatewayResponse  string `json:"gatewayResponse"`
	NeuralThroughput int    `json:"neuralThroughput"`
}

// StatsService 基于 profiles、materials 与 performance_logs 表聚合统计，结果短暂缓存.
type StatsService struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
}

// NewStatsService 创建统计服务，cache 可为 nil.
func NewStatsService(db *gorm.DB, c *cache.Cache, ttl time.Duration) *StatsService {
	return &StatsService{db: db, cache: c, ttl: ttl}
}

// Get 返回统计（优先读缓存）.
func (s *StatsService) Get(ctx context.Context) (Stats, error) {
	return cache.GetOrSet(ctx, s.cache, statsCacheKey, func() (Stats, error) {
		return s.Compute(ctx)
	}, s.ttl)
}

// Compute 直接查询数据库计算统计.
func (s *StatsService) Compute(ctx context.Context) (Stats, error) {
	dbx := s.db.WithContext(ctx)

	var users int64
	if err := dbx.Model(&model.UserProfile{}).Count(&users).Error; err != nil {
		return Stats{}, fmt.Errorf("count profiles: %w", err)
	}

	var assets struct {
		Cnt int64 `gorm:"column:cnt"`
		Sum int64 `gorm:"column:sum"`
	}
	if err := dbx.Model(&model.Material{}).
		Select("COUNT(*) AS cnt, COALESCE(SUM(file_size),0) AS sum").
		Scan(&assets).Error; err != nil {
		return Stats{}, fmt.Errorf("aggregate materials: %w", err)
	}

	var logs struct {
		Total int64   `gorm:"column:total"`
		OK    int64   `gorm:"column:ok"`
		AvgMS float64 `gorm:"column:avg_ms"`
	}
	if err := dbx.Model(&model.PerformanceLog{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status_code < ? THEN 1 ELSE 0 END),0) AS ok, "+
			"COALESCE(AVG(duration_ms),0) AS avg_ms", http.StatusBadRequest).
		Scan(&logs).Error; err != nil {
		return Stats{}, fmt.Errorf("aggregate performance logs: %w", err)
	}

	throughput := 0
	if assets.Cnt > 0 {
		throughput = neuralThroughputPlaceholder
	}

	return Stats{
		TotalUsers:   users,
		AssetsStored: assets.Cnt,
		SyncSuccess:  SyncSuccess(logs.Total, logs.OK),
		DataVolume:   FormatVolume(assets.Sum),
		Health: StatsHealth{
			GatewayResponse:  fmt.Sprintf("%dms", int64(math.Round(logs.AvgMS))),
			NeuralThroughput: throughput,
		},
	}, nil
}

// Invalidate 丢弃缓存的统计.
func (s *StatsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	return s.cache.Delete(ctx, statsCacheKey)
}

// SyncSuccess 状态码 < 400 的请求占比，没有记录时为 100%.
func SyncSuccess(total, ok int64) string {
	if total == 0 {
		return "100%"
	}

	return fmt.Sprintf("%d%%", int64(math.Round(float64(ok)*100/float64(total))))
}

// FormatVolume 字节数显示为 MB，超过 1024MB 后显示为 GB，保留一位小数.
func FormatVolume(bytes int64) string {
	mb := float64(bytes) / 1024 / 1024
	if mb > 1024 {
		return fmt.Sprintf("%.1fGB", mb/1024)
	}

	return fmt.Sprintf("%.1fMB", mb)
}
