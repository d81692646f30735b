package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/internal/storage/mq"
	"github.com/yeisme/eduaccess/pkg/queue"
	"github.com/yeisme/eduaccess/pkg/scheduler"
)

type recordRunner struct {
	mu       sync.Mutex
	ids      []string
	inflight int
	peak     int
	hold     time.Duration
	done     chan string
}

func (r *recordRunner) Run(ctx context.Context, id string) error {
	r.mu.Lock()
	r.inflight++
	if r.inflight > r.peak {
		r.peak = r.inflight
	}
	r.mu.Unlock()

	time.Sleep(r.hold)

	r.mu.Lock()
	r.inflight--
	r.ids = append(r.ids, id)
	r.mu.Unlock()

	r.done <- id

	if id == "busy" {
		return service.ErrAlreadyProcessing
	}

	return ctx.Err()
}

func newBus(t *testing.T) *mq.Client {
	t.Helper()

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	client := mq.NewClient(ch, ch)

	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestWorkerRunsRequestedMaterials(t *testing.T) {
	bus := newBus(t)
	runner := &recordRunner{hold: 20 * time.Millisecond, done: make(chan string, 8)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorker(bus, runner, configs.PipelineConfig{Workers: 2, RunTimeout: time.Second})
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	want := []string{"m-1", "m-2", "busy", "m-3"}
	for _, id := range want {
		if err := queue.PublishProcessRequested(ctx, bus, queue.ProcessRequestedPayload{MaterialID: id}); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}

	got := map[string]bool{}

	for range want {
		select {
		case id := <-runner.done:
			got[id] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}

	for _, id := range want {
		if !got[id] {
			t.Errorf("material %s was not processed", id)
		}
	}

	cancel()
	w.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()

	if runner.peak > 2 {
		t.Errorf("concurrency peak = %d, want <= 2", runner.peak)
	}
}

func TestWorkerDropsMalformedMessages(t *testing.T) {
	bus := newBus(t)
	runner := &recordRunner{done: make(chan string, 4)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorker(bus, runner, configs.PipelineConfig{})
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	bad := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	if err := bus.Publish(ctx, queue.TopicMaterialProcessRequested, bad); err != nil {
		t.Fatalf("publish bad: %v", err)
	}

	if err := queue.PublishProcessRequested(ctx, bus, queue.ProcessRequestedPayload{MaterialID: "ok"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case id := <-runner.done:
		if id != "ok" {
			t.Errorf("runner got %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("valid request after malformed one was not processed")
	}

	cancel()
	w.Wait()

	if len(runner.ids) != 1 {
		t.Errorf("runner calls = %v", runner.ids)
	}
}

func TestWorkerRequiresDependencies(t *testing.T) {
	w := NewWorker(nil, nil, configs.PipelineConfig{})
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error without subscriber")
	}

	if w.workers != configs.DefaultWorkers {
		t.Errorf("workers = %d, want default %d", w.workers, configs.DefaultWorkers)
	}
}

type countingSyncer struct {
	calls int
}

func (c *countingSyncer) FullSync(context.Context) service.FullSyncResult {
	c.calls++

	return service.FullSyncResult{Users: service.UsersResult{Status: service.ScanError, Message: "down"}}
}

type countingStats struct {
	calls int
}

func (c *countingStats) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func TestRegisterCronJobs(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Shutdown() })

	cfg := configs.RegistryConfig{ScheduleEnabled: true, Cron: "*/15 * * * *"}
	if err := RegisterCronJobs(sched, cfg, &countingSyncer{}, &countingStats{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	infos := sched.GetJobInfos()
	names := map[string]string{}

	for _, info := range infos {
		names[info.Name] = info.CronExpr
	}

	if names[JobRegistryFullSync] != "*/15 * * * *" || names[JobStatsRefresh] != CronStatsRefresh {
		t.Errorf("registered jobs = %v", names)
	}
}

func TestRegisterCronJobsScheduleDisabled(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Shutdown() })

	if err := RegisterCronJobs(sched, configs.RegistryConfig{Cron: "*/15 * * * *"}, &countingSyncer{}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	if n := len(sched.GetJobInfos()); n != 0 {
		t.Errorf("jobs = %d, want 0", n)
	}

	if err := RegisterCronJobs(nil, configs.RegistryConfig{}, &countingSyncer{}, nil); err == nil {
		t.Error("expected error for nil scheduler")
	}
}

func TestRunFullSyncInvalidatesStats(t *testing.T) {
	syncer := &countingSyncer{}
	stats := &countingStats{}

	if err := runFullSync(context.Background(), syncer, stats); err == nil {
		t.Error("expected error when a scan fails")
	}

	if syncer.calls != 1 || stats.calls != 1 {
		t.Errorf("syncer=%d stats=%d", syncer.calls, stats.calls)
	}
}
