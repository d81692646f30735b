// Package app 提供应用程序的初始化和配置功能：组装业务组件、后台任务与 gin 引擎.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/eduaccess/pkg/api"
	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/handle"
	"github.com/yeisme/eduaccess/pkg/internal/jobs"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/log"
	"github.com/yeisme/eduaccess/pkg/metrics"
	"github.com/yeisme/eduaccess/pkg/middleware"
	"github.com/yeisme/eduaccess/pkg/scheduler"
	"github.com/yeisme/eduaccess/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Engine     *gin.Engine
	config     *configs.AppConfig
	components *Components
	scheduler  *scheduler.Scheduler
	worker     *jobs.Worker
	perfLog    *middleware.PerfLogWriter
	stopWorker context.CancelFunc
}

// NewApp 加载配置并组装 HTTP 服务与后台任务.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	components, err := Build(ctx, config)
	if err != nil {
		return nil, err
	}

	a := &App{config: config, components: components}

	if err := a.startBackground(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.Engine = a.newEngine()

	return a, nil
}

// startBackground 启动处理队列消费者与定时任务.
func (a *App) startBackground(ctx context.Context) error {
	c := a.components

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopWorker = cancel
	a.worker = jobs.NewWorker(c.Storage.MQ, c.Pipeline, a.config.Pipeline)

	if err := a.worker.Start(workerCtx); err != nil {
		return fmt.Errorf("start process worker: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	a.scheduler = sched

	if err := jobs.RegisterCronJobs(sched, a.config.Registry, c.Registry, c.Stats); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}

	sched.Start()

	if a.config.Stats.PerfLog.Enabled {
		a.perfLog = middleware.NewPerfLogWriter(c.Storage.DB.DB, a.config.Stats.PerfLog)
	}

	return nil
}

func (a *App) newEngine() *gin.Engine {
	cfg := a.config

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Server.MaxUploadSizeMB << 20

	engine.Use(globalMiddleware(cfg, a.components.Storage, a.scheduler, a.perfLog)...)

	if cfg.Metrics.Enabled {
		_ = metrics.StartMetricsServer(cfg.Metrics, engine)
	}

	h := &handle.Handlers{
		Materials:     a.components.Materials,
		Registry:      a.components.Registry,
		Stats:         a.components.Stats,
		MaxUploadSize: cfg.Server.MaxUploadSizeMB << 20,
	}
	adminOnly := middleware.RequireAdmin(cfg.Auth, a.components.Gateway)

	return api.RegisterGroup(engine, h, adminOnly, cfg.Server)
}

// globalMiddleware 全局中间件链.
// 性能日志放在最外层，鉴权、限流、熔断拒绝的请求以及 panic 转成的 500 都会被记录.
func globalMiddleware(
	cfg *configs.AppConfig,
	mgr *storage.Manager,
	sched *scheduler.Scheduler,
	perfLog *middleware.PerfLogWriter,
) []gin.HandlerFunc {
	var chain []gin.HandlerFunc

	if perfLog != nil {
		chain = append(chain, middleware.PerformanceLogMiddleware(perfLog, cfg.Stats.PerfLog.SkipPaths))
	}

	chain = append(chain,
		middleware.RecoveryMiddleware(),
		middleware.CORSMiddleware(cfg.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.StorageMiddleware(mgr),
		middleware.SchedulerMiddleware(sched),
		middleware.AuthMiddleware(cfg.Auth),
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker),
	)

	if cfg.Server.EnableGzip {
		chain = append(chain, gzip.Gzip(gzip.DefaultCompression))
	}

	return chain
}

// Run 启动 HTTP 服务，ctx 取消后优雅退出并释放资源.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Msg("HTTP server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logger().Warn().Err(err).Msg("HTTP server shutdown")
	}

	return errors.Join(runErr, a.Close(shutdownCtx))
}

// Close 停止后台任务并释放存储.
func (a *App) Close(ctx context.Context) error {
	if a.scheduler != nil {
		_ = a.scheduler.Shutdown()
	}

	if a.stopWorker != nil {
		a.stopWorker()
		a.worker.Wait()
	}

	if a.perfLog != nil {
		a.perfLog.Close()
	}

	var errs []error

	if err := tracing.ShutdownTracer(ctx); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, a.components.Close())

	return errors.Join(errs...)
}
