package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/eduaccess/pkg/cache"
	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/ai"
	"github.com/yeisme/eduaccess/pkg/internal/extract"
	"github.com/yeisme/eduaccess/pkg/internal/identity"
	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/log"
)

// Components 组装好的业务组件，serve / sync / process 命令共用.
type Components struct {
	Storage   *storage.Manager
	Gateway   *storage.Gateway
	Pipeline  *service.Pipeline
	Registry  *service.RegistryService
	Stats     *service.StatsService
	Materials *service.MaterialService
}

// Build 初始化存储并按配置组装流水线、对账、统计与资料服务.
func Build(ctx context.Context, cfg *configs.AppConfig) (*Components, error) {
	mgr, err := storage.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, err := assemble(mgr, cfg)
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}

	return c, nil
}

func assemble(mgr *storage.Manager, cfg *configs.AppConfig) (*Components, error) {
	l := log.Component("app")
	gw := storage.NewGateway(mgr.DB, mgr.Blob)

	provider, err := ai.NewProvider(&cfg.AI, cfg.CircuitBreaker)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}

	text := ai.NewTextService(provider, cfg.Pipeline.MaxInputChars, cfg.Pipeline.PreviewChars)

	opts := []service.PipelineOption{
		service.WithStaleness(cfg.Pipeline.Staleness),
		service.WithEvents(mgr.MQ, cfg.Events),
	}

	if cfg.Pipeline.SpeechEnabled {
		speech, err := ai.NewSpeech(&cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("init speech provider: %w", err)
		}

		if speech != nil {
			opts = append(opts, service.WithSpeech(speech))
		}
	}

	var directory identity.Directory

	switch idc, err := identity.New(cfg.Identity); {
	case err == nil:
		directory = idc
	case errors.Is(err, identity.ErrNotConfigured):
		l.Warn().Msg("identity directory not configured, user sync will report an error")
	default:
		return nil, fmt.Errorf("init identity directory: %w", err)
	}

	l.Info().
		Str("ai_provider", provider.Name()).
		Str("speech_provider", cfg.AI.SpeechProvider).
		Bool("identity", directory != nil).
		Msg("components assembled")

	return &Components{
		Storage:  mgr,
		Gateway:  gw,
		Pipeline: service.NewPipeline(gw, extract.New(), text, opts...),
		Registry: service.NewRegistryService(gw, directory, cfg.Registry, cfg.Pipeline.Staleness,
			service.WithRegistryEvents(mgr.MQ, cfg.Events)),
		Stats:     service.NewStatsService(mgr.DB.DB, cache.NewCache(mgr.KV), cfg.Stats.CacheTTL),
		Materials: service.NewMaterialService(gw, mgr.MQ, cfg),
	}, nil
}

// Close 释放存储资源.
func (c *Components) Close() error {
	if c == nil || c.Storage == nil {
		return nil
	}

	return c.Storage.Close()
}
