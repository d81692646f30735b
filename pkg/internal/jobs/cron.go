// Package jobs 负责后台任务：处理队列消费者与对账定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/log"
	"github.com/yeisme/eduaccess/pkg/scheduler"
)

// FullSyncer 执行一次完整对账，*service.RegistryService 实现该接口.
type FullSyncer interface {
	FullSync(ctx context.Context) service.FullSyncResult
}

// StatsInvalidator 让统计缓存失效，*service.StatsService 实现该接口.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RegisterCronJobs 配置业务定时任务：
//   - 按 registry.cron 执行完整对账（用户、存储、卡住的任务）
//   - 每 5 分钟让统计缓存失效，避免对账后仪表盘长期显示旧数据
func RegisterCronJobs(sched *scheduler.Scheduler, cfg configs.RegistryConfig, registry FullSyncer, stats StatsInvalidator) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if registry == nil {
		return errors.New("registry service is nil")
	}

	if cfg.ScheduleEnabled {
		if err := sched.AddCron(JobRegistryFullSync, cfg.Cron, func(ctx context.Context) error {
			return runFullSync(ctx, registry, stats)
		}); err != nil {
			return err
		}
	}

	if stats != nil {
		if err := sched.AddCron(JobStatsRefresh, CronStatsRefresh, stats.Invalidate); err != nil {
			return err
		}
	}

	return nil
}

// runFullSync 执行对账并记录汇总结果，任一扫描失败时返回错误.
func runFullSync(ctx context.Context, registry FullSyncer, stats StatsInvalidator) error {
	l := log.Logger().With().Str("job", JobRegistryFullSync).Logger()
	start := time.Now()

	res := registry.FullSync(ctx)

	ev := l.Info()
	if res.Errors() > 0 {
		ev = l.Warn()
	}

	ev.Int("users_repaired", res.Users.Repaired).
		Int("materials_missing", res.Materials.MissingFiles).
		Int("materials_total", res.Materials.Total).
		Int64("stuck_cleaned", res.Cleanup.Cleaned).
		Int("errors", res.Errors()).
		Dur("took", time.Since(start)).
		Msg("registry full sync done")

	if stats != nil {
		if err := stats.Invalidate(ctx); err != nil {
			l.Warn().Err(err).Msg("invalidate stats failed")
		}
	}

	if n := res.Errors(); n > 0 {
		return fmt.Errorf("registry full sync: %d scan(s) failed", n)
	}

	return nil
}
