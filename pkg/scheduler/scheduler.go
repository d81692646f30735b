// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
//
// 每个任务以名称注册，同名任务不会并发执行（上一次未结束时顺延）.
// 任务运行结果记录在 JobInfo 中，供管理端接口展示.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/eduaccess/pkg/log"
)

const (
	// updateInterval 定义下次运行时间的刷新间隔.
	updateInterval = 10 * time.Second
)

// ErrJobNotFound 指定名称的任务不存在.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 等待下次运行
	StatusRunning   JobStatus = "running"   // 正在运行
	StatusError     JobStatus = "error"     // 最近一次运行失败
)

// Task 定时任务函数，返回的错误会记录到 JobInfo.Error.
type Task func(ctx context.Context) error

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CronExpr     string    `json:"cron_expr"`
	NextRun      time.Time `json:"next_run"`
	LastRun      time.Time `json:"last_run"`
	LastSuccess  time.Time `json:"last_success"`
	LastDuration string    `json:"last_duration,omitempty"`
	Runs         int64     `json:"runs"`
	Failures     int64     `json:"failures"`
	Status       JobStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Scheduler 是定时任务调度器的实现.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	mu        sync.RWMutex
	logger    *zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	now       func() time.Time
}

// NewScheduler 创建一个新的 Scheduler 实例.
func NewScheduler(opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	scheduler := &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		logger:    log.Logger(),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}

	go scheduler.nextRunUpdater()

	return scheduler, nil
}

// AddCron 添加一个基于 cron 表达式（5 段）的定时任务.
func (s *Scheduler) AddCron(name, cronExpr string, task Task) error {
	if task == nil {
		return fmt.Errorf("job %s: task is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func(ctx context.Context) { s.run(ctx, name, task) }, s.ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	now := s.now()
	nextRun, _ := j.NextRun()

	s.jobs[name] = j
	s.jobInfos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("Added cron job")

	return nil
}

// run 执行任务并记录结果，任务 panic 时记为失败.
func (s *Scheduler) run(ctx context.Context, name string, task Task) {
	start := s.now()
	s.markRunning(name, start)

	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
			}
		}()

		err = task(ctx)
	}()

	s.markDone(name, start, err)

	if err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("Job failed")
	}
}

func (s *Scheduler) markRunning(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.jobInfos[name]; ok {
		info.Status = StatusRunning
		info.LastRun = at
		info.UpdatedAt = at
	}
}

func (s *Scheduler) markDone(name string, start time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.jobInfos[name]
	if !ok {
		return
	}

	end := s.now()
	info.Runs++
	info.LastDuration = end.Sub(start).Round(time.Millisecond).String()
	info.UpdatedAt = end

	if err != nil {
		info.Failures++
		info.Status = StatusError
		info.Error = err.Error()

		return
	}

	info.Status = StatusScheduled
	info.Error = ""
	info.LastSuccess = end
}

// RunNow 立即触发一次指定任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return j.RunNow()
}

// RemoveJobByName 通过名称移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.jobInfos, name)

	s.logger.Info().Str("job", name).Msg("Removed job")

	return nil
}

// GetJobInfoByName 通过名称获取任务信息的副本.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return *info, nil
}

// GetJobInfos 返回所有定时任务的信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobInfos))
	for _, info := range s.jobInfos {
		jobs = append(jobs, *info)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

// JobsWaitingInQueue number of jobs waiting in Queue.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.scheduler.JobsWaitingInQueue()
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.GetJobInfos())).Msg("Starting scheduler")
	s.scheduler.Start()
}

// Shutdown 取消运行中任务的 ctx 并等待其退出.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.scheduler.Shutdown()
}

// nextRunUpdater 定期刷新下次运行时间.
func (s *Scheduler) nextRunUpdater() {
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.refreshNextRuns()
		}
	}
}

func (s *Scheduler) refreshNextRuns() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, job := range s.jobs {
		info := s.jobInfos[name]
		if info == nil {
			continue
		}

		if nextRun, err := job.NextRun(); err == nil {
			info.NextRun = nextRun
		}
	}
}
