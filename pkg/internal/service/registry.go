package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/identity"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	nlog "github.com/yeisme/eduaccess/pkg/log"
	"github.com/yeisme/eduaccess/pkg/metrics"
	"github.com/yeisme/eduaccess/pkg/queue"
	"github.com/yeisme/eduaccess/pkg/tracing"
)

// MissingFileMarker 存储中找不到源文件时追加到 description 的标记.
const MissingFileMarker = "[registry sync] source file missing from storage"

// 子任务状态.
const (
	ScanSuccess = "success"
	ScanError   = "error"
)

// 子任务名称.
const (
	ScanUsers     = "users"
	ScanMaterials = "materials"
	ScanCleanup   = "cleanup"
)

// RegistryStore 对账使用的存储操作，由 storage.Gateway 实现.
type RegistryStore interface {
	ProfileExists(ctx context.Context, id string) (bool, error)
	CreateProfile(ctx context.Context, p *model.UserProfile) error
	ListMaterials(ctx context.Context) ([]model.Material, error)
	ListBlobs(ctx context.Context, folder, filenameFilter string) ([]blob.Info, error)
	MarkMissing(ctx context.Context, id, description string) (bool, error)
	SweepStuck(ctx context.Context, before time.Time) (int64, error)
}

type scanError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UsersResult 用户同步结果.
type UsersResult struct {
	Status   string
	Total    int
	Repaired int
	Message  string
}

// MarshalJSON 失败时只输出 {status, message}.
func (r UsersResult) MarshalJSON() ([]byte, error) {
	if r.Status == ScanError {
		return sonic.Marshal(scanError{Status: r.Status, Message: r.Message})
	}

	return sonic.Marshal(struct {
		Status   string `json:"status"`
		Total    int    `json:"total"`
		Repaired int    `json:"repaired"`
	}{r.Status, r.Total, r.Repaired})
}

// MaterialsResult 存储对账结果.
type MaterialsResult struct {
	Status       string
	Total        int
	MissingFiles int
	Message      string
}

// MarshalJSON 失败时只输出 {status, message}.
func (r MaterialsResult) MarshalJSON() ([]byte, error) {
	if r.Status == ScanError {
		return sonic.Marshal(scanError{Status: r.Status, Message: r.Message})
	}

	return sonic.Marshal(struct {
		Status       string `json:"status"`
		Total        int    `json:"total"`
		MissingFiles int    `json:"missingFiles"`
	}{r.Status, r.Total, r.MissingFiles})
}

// CleanupResult 卡住任务清理结果.
type CleanupResult struct {
	Status  string
	Cleaned int64
	Message string
}

// MarshalJSON 失败时只输出 {status, message}.
func (r CleanupResult) MarshalJSON() ([]byte, error) {
	if r.Status == ScanError {
		return sonic.Marshal(scanError{Status: r.Status, Message: r.Message})
	}

	return sonic.Marshal(struct {
		Status  string `json:"status"`
		Cleaned int64  `json:"cleaned"`
	}{r.Status, r.Cleaned})
}

// FullSyncResult 完整对账结果.
type FullSyncResult struct {
	Users     UsersResult     `json:"users"`
	Materials MaterialsResult `json:"materials"`
	Cleanup   CleanupResult   `json:"cleanup"`
}

// Errors 失败的子任务数.
func (r FullSyncResult) Errors() int {
	n := 0

	for _, s := range []string{r.Users.Status, r.Materials.Status, r.Cleanup.Status} {
		if s == ScanError {
			n++
		}
	}

	return n
}

// RegistryService 修复元数据、身份目录与对象存储之间的漂移.
type RegistryService struct {
	store     RegistryStore
	directory identity.Directory
	cfg       configs.RegistryConfig
	staleness time.Duration
	events    queue.Publisher
	eventsCfg configs.EventsConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// RegistryOption 对账服务可选项.
type RegistryOption func(*RegistryService)

// WithRegistryEvents 对账结束后发布 ea.registry.synced.
func WithRegistryEvents(pub queue.Publisher, cfg configs.EventsConfig) RegistryOption {
	return func(s *RegistryService) {
		s.events = pub
		s.eventsCfg = cfg
	}
}

// WithRegistryClock 替换时钟，测试使用.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(s *RegistryService) { s.now = now }
}

// NewRegistryService 创建对账服务；directory 为 nil 时用户同步返回错误结果.
func NewRegistryService(store RegistryStore, directory identity.Directory, cfg configs.RegistryConfig, staleness time.Duration, opts ...RegistryOption) *RegistryService {
	if staleness <= 0 {
		staleness = configs.DefaultStaleness
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	if cfg.DefaultFullName == "" {
		cfg.DefaultFullName = "New User"
	}

	if cfg.DefaultRole == "" {
		cfg.DefaultRole = model.RoleStudent
	}

	s := &RegistryService{
		store:     store,
		directory: directory,
		cfg:       cfg,
		staleness: staleness,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    nlog.Component("registry"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SyncUsers 为身份目录中缺少本地资料的用户补建 profile. 单个用户失败只记录日志.
func (s *RegistryService) SyncUsers(ctx context.Context) (res UsersResult) {
	ctx, span := tracing.StartSpan(ctx, "registry."+ScanUsers)
	defer func() {
		span.End()
		metrics.RegistryScans.WithLabelValues(ScanUsers, res.Status).Inc()
	}()

	if s.directory == nil {
		return UsersResult{Status: ScanError, Message: identity.ErrNotConfigured.Error()}
	}

	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		tracing.Fail(span, err)
		s.logger.Error().Err(err).Msg("拉取身份目录失败")

		return UsersResult{Status: ScanError, Message: err.Error()}
	}

	res = UsersResult{Status: ScanSuccess, Total: len(users)}

	for _, u := range users {
		exists, err := s.store.ProfileExists(ctx, u.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("探测用户资料失败")

			continue
		}

		if exists {
			continue
		}

		if err := s.store.CreateProfile(ctx, s.profileFor(u)); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("补建用户资料失败")

			continue
		}

		res.Repaired++
	}

	s.logger.Info().Int("total", res.Total).Int("repaired", res.Repaired).Msg("用户同步完成")

	return res
}

func (s *RegistryService) profileFor(u identity.User) *model.UserProfile {
	role := u.Role
	if role != model.RoleStudent && role != model.RoleAdmin {
		role = s.cfg.DefaultRole
	}

	name := strings.TrimSpace(u.FullName)
	if name == "" {
		name = s.cfg.DefaultFullName
	}

	return &model.UserProfile{ID: u.ID, Email: u.Email, Role: role, FullName: name}
}

// SyncMaterials 检查每份资料的源文件是否还在存储中，缺失的标记为 failed.
// 检查以有限并发执行，已是 failed 的资料不再检查，也不计入 Total.
func (s *RegistryService) SyncMaterials(ctx context.Context) (res MaterialsResult) {
	ctx, span := tracing.StartSpan(ctx, "registry."+ScanMaterials)
	defer func() {
		span.End()
		metrics.RegistryScans.WithLabelValues(ScanMaterials, res.Status).Inc()
	}()

	materials, err := s.store.ListMaterials(ctx)
	if err != nil {
		tracing.Fail(span, err)
		s.logger.Error().Err(err).Msg("列出资料失败")

		return MaterialsResult{Status: ScanError, Message: err.Error()}
	}

	var missing atomic.Int64

	checked := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range materials {
		m := materials[i]
		if m.Status == model.StatusFailed {
			continue
		}

		checked++

		g.Go(func() error {
			if s.checkMaterial(gctx, &m) {
				missing.Add(1)
			}

			return nil
		})
	}

	_ = g.Wait()

	res = MaterialsResult{Status: ScanSuccess, Total: checked, MissingFiles: int(missing.Load())}
	s.logger.Info().Int("total", res.Total).Int("missing", res.MissingFiles).Msg("存储对账完成")

	return res
}

// checkMaterial 返回该资料是否被新标记为缺失.
func (s *RegistryService) checkMaterial(ctx context.Context, m *model.Material) bool {
	logger := s.logger.With().Str("material_id", m.ID).Str("file_url", m.FileURL).Logger()

	// 空文件名会按空前缀列出整个目录，直接视为缺失.
	if folder, filename := blob.SplitKey(strings.TrimSpace(m.FileURL)); filename != "" {
		infos, err := s.store.ListBlobs(ctx, folder, filename)
		if err != nil {
			logger.Warn().Err(err).Msg("查询存储失败")

			return false
		}

		want := blob.JoinKey(folder, filename)
		for _, info := range infos {
			if info.Key == want {
				return false
			}
		}
	}

	changed, err := s.store.MarkMissing(ctx, m.ID, AppendMissingMarker(m.Description))
	if err != nil {
		logger.Warn().Err(err).Msg("标记缺失文件失败")

		return false
	}

	if changed {
		logger.Warn().Msg("源文件缺失，已标记为 failed")
	}

	return changed
}

// AppendMissingMarker 在原描述后追加缺失标记，已包含时原样返回.
func AppendMissingMarker(description string) string {
	if strings.Contains(description, MissingFileMarker) {
		return description
	}

	if strings.TrimSpace(description) == "" {
		return MissingFileMarker
	}

	return description + "\n\n" + MissingFileMarker
}

// CleanupStuck 把超过时限仍在 processing 的资料一次性置为 failed.
func (s *RegistryService) CleanupStuck(ctx context.Context) (res CleanupResult) {
	ctx, span := tracing.StartSpan(ctx, "registry."+ScanCleanup)
	defer func() {
		span.End()
		metrics.RegistryScans.WithLabelValues(ScanCleanup, res.Status).Inc()
	}()

	cleaned, err := s.store.SweepStuck(ctx, s.now().Add(-s.staleness))
	if err != nil {
		tracing.Fail(span, err)
		s.logger.Error().Err(err).Msg("清理卡住的资料失败")

		return CleanupResult{Status: ScanError, Message: err.Error()}
	}

	s.logger.Info().Int64("cleaned", cleaned).Msg("卡住任务清理完成")

	return CleanupResult{Status: ScanSuccess, Cleaned: cleaned}
}

// FullSync 依次执行用户同步、存储对账、卡住任务清理；某一步失败不影响其余步骤.
func (s *RegistryService) FullSync(ctx context.Context) FullSyncResult {
	ctx, span := tracing.StartSpan(ctx, "registry.full_sync")
	defer span.End()

	res := FullSyncResult{
		Users:     s.SyncUsers(ctx),
		Materials: s.SyncMaterials(ctx),
		Cleanup:   s.CleanupStuck(ctx),
	}

	if s.events != nil && s.eventsCfg.Enabled && s.eventsCfg.Registry.Synced {
		err := queue.PublishRegistrySynced(ctx, s.events, queue.RegistrySyncedPayload{
			UsersRepaired: res.Users.Repaired,
			MissingFiles:  res.Materials.MissingFiles,
			Cleaned:       res.Cleanup.Cleaned,
			Errors:        res.Errors(),
		}, queue.WithProducer(configs.AppName))
		if err != nil {
			s.logger.Warn().Err(err).Msg("发布对账事件失败")
		}
	}

	return res
}
