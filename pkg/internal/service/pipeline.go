// Package service 实现资料处理流水线、登记对账、管理端统计与资料上传下载等业务逻辑.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/ai"
	"github.com/yeisme/eduaccess/pkg/internal/extract"
	"github.com/yeisme/eduaccess/pkg/internal/model"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	nlog "github.com/yeisme/eduaccess/pkg/log"
	"github.com/yeisme/eduaccess/pkg/metrics"
	"github.com/yeisme/eduaccess/pkg/queue"
	"github.com/yeisme/eduaccess/pkg/tracing"
)

var (
	// ErrAlreadyProcessing 另一个运行正在处理该资料.
	ErrAlreadyProcessing = errors.New("material is already being processed")
	// ErrEmptyText 资料中没有可用文本.
	ErrEmptyText = extract.ErrEmptyText
)

// 流水线阶段，用于日志、失败事件与 span 名称.
const (
	StageFetch     = "fetch"
	StageClaim     = "claim"
	StageDownload  = "download"
	StageExtract   = "extract"
	StageSummarize = "summarize"
	StageSpeech    = "speech"
	StageSave      = "save"
)

// MaterialStore 流水线使用的存储操作，由 storage.Gateway 实现.
type MaterialStore interface {
	FetchMetadata(ctx context.Context, id string) (*model.Material, error)
	UpdateStatus(ctx context.Context, id string, fields map[string]any) error
	ClaimProcessing(ctx context.Context, id string, staleBefore time.Time) (bool, error)
	DownloadBlob(ctx context.Context, path string) ([]byte, error)
	UploadBlob(ctx context.Context, path string, data []byte, contentType string) error
}

// TextExtractor 从原始字节中提取文本.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}

// Summarizer 生成摘要与简化文本.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (ai.Result, error)
}

// Pipeline 资料处理流水线：pending -> processing -> completed | failed.
type Pipeline struct {
	store      MaterialStore
	extractor  TextExtractor
	summarizer Summarizer
	speech     ai.SpeechSynthesizer
	events     queue.Publisher
	eventsCfg  configs.EventsConfig
	staleness  time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// PipelineOption 流水线可选项.
type PipelineOption func(*Pipeline)

// WithSpeech 启用语音合成，nil 表示关闭.
func WithSpeech(s ai.SpeechSynthesizer) PipelineOption {
	return func(p *Pipeline) { p.speech = s }
}

// WithEvents 处理结束后按开关发布领域事件.
func WithEvents(pub queue.Publisher, cfg configs.EventsConfig) PipelineOption {
	return func(p *Pipeline) {
		p.events = pub
		p.eventsCfg = cfg
	}
}

// WithStaleness processing 状态超过该时长可被重新抢占.
func WithStaleness(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.staleness = d
		}
	}
}

// WithClock 替换时钟，测试使用.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline 创建流水线.
func NewPipeline(store MaterialStore, extractor TextExtractor, summarizer Summarizer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:      store,
		extractor:  extractor,
		summarizer: summarizer,
		staleness:  configs.DefaultStaleness,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     nlog.Component("pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// AudioPath 语音文件的存储路径：<所属目录>/audio/<id>.mp3，所属目录取 file_url 的第一段.
func AudioPath(m *model.Material) string {
	folder, _ := blob.SplitKey(m.FileURL)
	if folder == "" {
		folder = m.UploadedBy
	}

	return blob.JoinKey(folder, "audio/"+m.ID+".mp3")
}

// Run 处理一份资料. 除了抢占失败（ErrAlreadyProcessing）与资料不存在，任何致命错误都会尽力写入 status=failed.
func (p *Pipeline) Run(ctx context.Context, id string) (err error) {
	start := p.now()
	logger := p.logger.With().Str("material_id", id).Logger()

	ctx, span := tracing.StartSpan(ctx, "pipeline.run", trace.WithAttributes(attribute.String("material.id", id)))
	defer func() {
		tracing.Fail(span, err)
		span.End()
	}()

	m, err := p.store.FetchMetadata(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrMaterialNotFound) {
			p.finish(start, metrics.ResultFailed)
			logger.Warn().Err(err).Msg("资料不存在")

			return err
		}

		return p.fail(ctx, &model.Material{ID: id}, start, StageFetch, err)
	}

	claimed, err := p.store.ClaimProcessing(ctx, id, p.now().Add(-p.staleness))
	if err != nil {
		return p.fail(ctx, m, start, StageClaim, err)
	}

	if !claimed {
		p.finish(start, metrics.ResultSkipped)
		logger.Info().Str("status", string(m.Status)).Msg("资料正在处理中，跳过")

		return fmt.Errorf("%w: %s", ErrAlreadyProcessing, id)
	}

	logger.Info().Str("file_url", m.FileURL).Msg("开始处理资料")

	data, err := p.download(ctx, m)
	if err != nil {
		return p.fail(ctx, m, start, StageDownload, err)
	}

	text, err := p.extract(ctx, m, data)
	if err != nil {
		return p.fail(ctx, m, start, StageExtract, err)
	}

	result, err := p.summarize(ctx, text)
	if err != nil {
		return p.fail(ctx, m, start, StageSummarize, err)
	}

	audioURL := p.synthesize(ctx, m, result, logger)

	fields := map[string]any{
		"summary":            result.Summary,
		"simplified_content": result.Simplified,
		"status":             string(model.StatusCompleted),
		"audio_url":          nil,
	}
	if audioURL != "" {
		fields["audio_url"] = audioURL
	}

	if err := p.store.UpdateStatus(ctx, id, fields); err != nil {
		return p.fail(ctx, m, start, StageSave, err)
	}

	elapsed := p.finish(start, metrics.ResultCompleted)
	logger.Info().Dur("elapsed", elapsed).Bool("audio", audioURL != "").Msg("资料处理完成")

	if p.events != nil && p.eventsCfg.Enabled && p.eventsCfg.Material.Processed {
		p.emit(queue.TopicMaterialProcessed, func() error {
			return queue.PublishMaterialProcessed(ctx, p.events, queue.MaterialProcessedPayload{
				Material:   materialRef(m),
				HasAudio:   audioURL != "",
				DurationMS: elapsed.Milliseconds(),
			}, queue.WithProducer(configs.AppName))
		})
	}

	return nil
}

func (p *Pipeline) download(ctx context.Context, m *model.Material) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline."+StageDownload)
	defer span.End()

	data, err := p.store.DownloadBlob(ctx, m.FileURL)
	tracing.Fail(span, err)

	return data, err
}

func (p *Pipeline) extract(ctx context.Context, m *model.Material, data []byte) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline."+StageExtract)
	defer span.End()

	text, err := p.extractor.Extract(ctx, data, m.FileType)
	tracing.Fail(span, err)

	return text, err
}

func (p *Pipeline) summarize(ctx context.Context, text string) (ai.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline."+StageSummarize)
	defer span.End()

	result, err := p.summarizer.Summarize(ctx, text)
	tracing.Fail(span, err)

	return result, err
}

// synthesize 语音失败不影响整体结果，返回空串表示没有音频.
func (p *Pipeline) synthesize(ctx context.Context, m *model.Material, result ai.Result, logger zerolog.Logger) string {
	if p.speech == nil {
		return ""
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline."+StageSpeech)
	defer span.End()

	text := result.Simplified
	if text == "" {
		text = result.Summary
	}

	audio, err := p.speech.Synthesize(ctx, text)
	if err != nil {
		tracing.Fail(span, err)
		logger.Warn().Err(err).Msg("语音合成失败，跳过音频")

		return ""
	}

	path := AudioPath(m)
	if err := p.store.UploadBlob(ctx, path, audio, "audio/mpeg"); err != nil {
		tracing.Fail(span, err)
		logger.Warn().Err(err).Str("path", path).Msg("音频上传失败，跳过音频")

		return ""
	}

	return path
}

// fail 尽力写入 failed，写入失败只记录日志；返回原始错误.
func (p *Pipeline) fail(ctx context.Context, m *model.Material, start time.Time, stage string, cause error) error {
	logger := p.logger.With().Str("material_id", m.ID).Str("stage", stage).Logger()
	logger.Error().Err(cause).Msg("资料处理失败")

	// 调用方取消后仍要落库
	writeCtx := context.WithoutCancel(ctx)
	if err := p.store.UpdateStatus(writeCtx, m.ID, map[string]any{"status": string(model.StatusFailed)}); err != nil {
		logger.Error().Err(err).Msg("写入 failed 状态失败")
	}

	p.finish(start, metrics.ResultFailed)

	if p.events != nil && p.eventsCfg.Enabled && p.eventsCfg.Material.Failed {
		p.emit(queue.TopicMaterialFailed, func() error {
			return queue.PublishMaterialFailed(writeCtx, p.events, queue.MaterialFailedPayload{
				Material: materialRef(m),
				Stage:    stage,
				Error:    cause.Error(),
			}, queue.WithProducer(configs.AppName))
		})
	}

	return fmt.Errorf("%s: %w", stage, cause)
}

func (p *Pipeline) finish(start time.Time, result string) time.Duration {
	elapsed := p.now().Sub(start)

	metrics.PipelineRuns.WithLabelValues(result).Inc()

	if result != metrics.ResultSkipped {
		metrics.PipelineDuration.Observe(elapsed.Seconds())
	}

	return elapsed
}

func (p *Pipeline) emit(topic string, publish func() error) {
	if err := publish(); err != nil {
		p.logger.Warn().Err(err).Str("topic", topic).Msg("发布事件失败")
	}
}

func materialRef(m *model.Material) queue.MaterialRef {
	return queue.MaterialRef{
		ID:         m.ID,
		FileURL:    m.FileURL,
		FileType:   m.FileType,
		UploadedBy: m.UploadedBy,
	}
}
