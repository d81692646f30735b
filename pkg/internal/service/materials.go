package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	nlog "github.com/yeisme/eduaccess/pkg/log"
	"github.com/yeisme/eduaccess/pkg/queue"
)

// 下载链接类型.
const (
	KindFile  = "file"
	KindAudio = "audio"
)

// anonymousFolder 未登录上传时使用的目录.
const anonymousFolder = "anonymous"

// ErrNoAudio 资料还没有音频.
var ErrNoAudio = errors.New("material has no audio")

// MaterialRepository 资料上传与查询使用的存储操作，由 storage.Gateway 实现.
type MaterialRepository interface {
	CreateMaterial(ctx context.Context, m *model.Material) error
	FetchMetadata(ctx context.Context, id string) (*model.Material, error)
	UploadBlob(ctx context.Context, path string, data []byte, contentType string) error
	RemoveBlob(ctx context.Context, path string) error
	PresignBlob(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// UploadInput 上传参数.
type UploadInput struct {
	UserID      string
	Title       string
	Description string
	FileName    string
	ContentType string
	Data        []byte
}

// MaterialService 资料上传、查询、提交处理与下载链接.
type MaterialService struct {
	repo          MaterialRepository
	tasks         queue.Publisher
	eventsCfg     configs.EventsConfig
	autoProcess   bool
	presignExpiry time.Duration
	now           func() time.Time
	logger        zerolog.Logger
}

// NewMaterialService 创建资料服务. tasks 用于提交处理任务与发布上传事件.
func NewMaterialService(repo MaterialRepository, tasks queue.Publisher, cfg *configs.AppConfig) *MaterialService {
	expiry := time.Duration(cfg.Blob.PresignExpiry) * time.Second
	if expiry <= 0 {
		expiry = time.Duration(configs.DefaultPresignExpiry) * time.Second
	}

	return &MaterialService{
		repo:          repo,
		tasks:         tasks,
		eventsCfg:     cfg.Events,
		autoProcess:   cfg.Pipeline.AutoProcess,
		presignExpiry: expiry,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        nlog.Component("materials"),
	}
}

// Upload 写入对象存储并创建 pending 状态的资料记录，对象路径为 <用户>/<uuid><扩展名>.
func (s *MaterialService) Upload(ctx context.Context, in UploadInput) (*model.Material, error) {
	if len(in.Data) == 0 {
		return nil, errors.New("file is empty")
	}

	folder := in.UserID
	if folder == "" {
		folder = anonymousFolder
	}

	ext := strings.ToLower(path.Ext(in.FileName))
	key := blob.JoinKey(folder, uuid.NewString()+ext)
	contentType := detectContentType(in.ContentType, ext, in.Data)

	if err := s.repo.UploadBlob(ctx, key, in.Data, contentType); err != nil {
		return nil, fmt.Errorf("upload material file: %w", err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(path.Base(in.FileName), path.Ext(in.FileName))
	}

	m := &model.Material{
		Title:       title,
		FileURL:     key,
		FileType:    contentType,
		FileSize:    int64(len(in.Data)),
		Status:      model.StatusPending,
		Description: in.Description,
		UploadedBy:  in.UserID,
	}
	if err := s.repo.CreateMaterial(ctx, m); err != nil {
		// 记录没建成，刚上传的对象不会再被引用.
		if rerr := s.repo.RemoveBlob(context.WithoutCancel(ctx), key); rerr != nil {
			s.logger.Error().Err(rerr).Str("file_url", key).Msg("清理孤立对象失败")
		}

		return nil, err
	}

	s.logger.Info().Str("material_id", m.ID).Str("file_url", key).Int64("size", m.FileSize).Msg("资料已上传")

	if s.tasks != nil && s.eventsCfg.Enabled && s.eventsCfg.Material.Uploaded {
		if err := queue.PublishMaterialUploaded(ctx, s.tasks, queue.MaterialUploadedPayload{
			Material: materialRef(m),
			Size:     m.FileSize,
		}, queue.WithProducer(configs.AppName)); err != nil {
			s.logger.Warn().Err(err).Msg("发布上传事件失败")
		}
	}

	if s.autoProcess {
		if err := s.Enqueue(ctx, m.ID, in.UserID); err != nil {
			s.logger.Warn().Err(err).Str("material_id", m.ID).Msg("自动提交处理失败")
		}
	}

	return m, nil
}

func detectContentType(declared, ext string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return declared
	}

	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}

	return http.DetectContentType(data)
}

// PresignExpiry 下载链接有效期.
func (s *MaterialService) PresignExpiry() time.Duration {
	return s.presignExpiry
}

// Get 查询资料.
func (s *MaterialService) Get(ctx context.Context, id string) (*model.Material, error) {
	return s.repo.FetchMetadata(ctx, id)
}

// Enqueue 提交处理任务后立即返回，不等待处理结果.
func (s *MaterialService) Enqueue(ctx context.Context, id, requestedBy string) error {
	if s.tasks == nil {
		return errors.New("task queue not initialized")
	}

	return queue.PublishProcessRequested(ctx, s.tasks, queue.ProcessRequestedPayload{
		MaterialID:  id,
		RequestedBy: requestedBy,
		RequestedAt: s.now(),
	}, queue.WithProducer(configs.AppName))
}

// DownloadURL 生成源文件或音频的限时下载链接.
func (s *MaterialService) DownloadURL(ctx context.Context, id, kind string) (string, error) {
	m, err := s.repo.FetchMetadata(ctx, id)
	if err != nil {
		return "", err
	}

	key := m.FileURL
	if kind == KindAudio {
		if m.AudioURL == nil || *m.AudioURL == "" {
			return "", fmt.Errorf("%w: %s", ErrNoAudio, id)
		}

		key = *m.AudioURL
	}

	return s.repo.PresignBlob(ctx, key, s.presignExpiry)
}
