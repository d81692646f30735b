package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

// yearly 测试期间不会自然触发.
const yearly = "0 0 1 1 *"

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	s, err := NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

// waitRuns 等待任务至少运行 n 次.
func waitRuns(t *testing.T, s *Scheduler, name string, n int64) JobInfo {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		info, err := s.GetJobInfoByName(name)
		if err != nil {
			t.Fatalf("job info: %v", err)
		}

		if info.Runs >= n && info.Status != StatusRunning {
			return info
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("job %s did not run %d time(s)", name, n)

	return JobInfo{}
}

func TestRunNowRecordsSuccess(t *testing.T) {
	s := newTestScheduler(t)

	ran := make(chan struct{}, 1)

	if err := s.AddCron("ok", yearly, func(context.Context) error {
		ran <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.Start()

	if err := s.RunNow("ok"); err != nil {
		t.Fatalf("run now: %v", err)
	}

	info := waitRuns(t, s, "ok", 1)
	<-ran

	if info.Status != StatusScheduled || info.Error != "" || info.Failures != 0 {
		t.Errorf("unexpected info %+v", info)
	}

	if info.LastSuccess.IsZero() || info.LastRun.IsZero() {
		t.Errorf("run times not recorded: %+v", info)
	}
}

func TestRunNowRecordsFailureAndPanic(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.AddCron("fail", yearly, func(context.Context) error {
		return errors.New("storage unreachable")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.AddCron("boom", yearly, func(context.Context) error {
		panic("nil map")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.Start()

	for _, name := range []string{"fail", "boom"} {
		if err := s.RunNow(name); err != nil {
			t.Fatalf("run now %s: %v", name, err)
		}
	}

	if info := waitRuns(t, s, "fail", 1); info.Status != StatusError || info.Error != "storage unreachable" || info.Failures != 1 {
		t.Errorf("fail info = %+v", info)
	}

	if info := waitRuns(t, s, "boom", 1); info.Status != StatusError || info.Error != "panic in job: nil map" {
		t.Errorf("boom info = %+v", info)
	}
}

func TestAddCronValidation(t *testing.T) {
	s := newTestScheduler(t)

	noop := func(context.Context) error { return nil }

	if err := s.AddCron("a", yearly, noop); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.AddCron("a", yearly, noop); err == nil {
		t.Error("duplicate name should fail")
	}

	if err := s.AddCron("bad", "not a cron", noop); err == nil {
		t.Error("invalid cron should fail")
	}

	if err := s.AddCron("nil", yearly, nil); err == nil {
		t.Error("nil task should fail")
	}

	if err := s.AddCron("b", "*/5 * * * *", noop); err != nil {
		t.Fatalf("add: %v", err)
	}

	infos := s.GetJobInfos()
	if len(infos) != 2 || infos[0].Name != "a" || infos[1].Name != "b" {
		t.Errorf("infos = %+v", infos)
	}
}

func TestUnknownJob(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.RunNow("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("run now err = %v", err)
	}

	if err := s.RemoveJobByName("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("remove err = %v", err)
	}

	if err := s.AddCron("x", yearly, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.RemoveJobByName("x"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := s.GetJobInfoByName("x"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("info err = %v", err)
	}
}
