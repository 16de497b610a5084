package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"namereg/internal/slogutil"
)

func newTestRunner(t *testing.T, cfg RunnerConfig) *Runner {
	t.Helper()
	r := NewRunner(slogutil.NewDiscardLogger(), cfg)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Stop(5 * time.Second) })
	return r
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(slogutil.NewDiscardLogger(), RunnerConfig{QueueSize: -3})

	stats := r.Stats()
	if stats.Workers != 1 {
		t.Errorf("Workers = %d, want 1", stats.Workers)
	}
	if stats.QueueCapacity != 0 {
		t.Errorf("QueueCapacity = %d, want 0", stats.QueueCapacity)
	}
	if r.IsRunning() {
		t.Error("runner should not be running before Start")
	}
}

func TestRunner_ExecutesTasks(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{WorkerCount: 3, QueueSize: 8})

	const n = 50
	var (
		count atomic.Int64
		wg    sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		err := r.Submit(context.Background(), Task{Kind: "count", Run: func(context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	wg.Wait()

	if got := count.Load(); got != n {
		t.Errorf("executed %d tasks, want %d", got, n)
	}
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	const workers = 2
	r := newTestRunner(t, RunnerConfig{WorkerCount: workers, QueueSize: 16})

	var (
		active, peak atomic.Int64
		wg           sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		_ = r.Submit(context.Background(), Task{Run: func(context.Context) error {
			defer wg.Done()
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return nil
		}})
	}
	wg.Wait()

	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency = %d, want <= %d", got, workers)
	}
}

func TestRunner_SubmitBlocksUntilContextDone(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{WorkerCount: 1, QueueSize: 0})

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})

	err := r.Submit(context.Background(), Task{Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err = r.Submit(ctx, Task{Run: func(context.Context) error { return nil }})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit() error = %v, want deadline exceeded", err)
	}
}

func TestRunner_TaskContextIgnoresSubmitterCancellation(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{WorkerCount: 1, QueueSize: 1})

	type key struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "req-1"))

	result := make(chan error, 1)
	value := make(chan any, 1)
	err := r.Submit(ctx, Task{Run: func(taskCtx context.Context) error {
		cancel()
		value <- taskCtx.Value(key{})
		result <- taskCtx.Err()
		return nil
	}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got := <-value; got != "req-1" {
		t.Errorf("task context value = %v, want req-1", got)
	}
	if err := <-result; err != nil {
		t.Errorf("task context err = %v, want nil", err)
	}
}

func TestRunner_RecoversPanics(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{WorkerCount: 1, QueueSize: 2})

	_ = r.Submit(context.Background(), Task{ID: "boom", Run: func(context.Context) error {
		panic("boom")
	}})

	done := make(chan struct{})
	_ = r.Submit(context.Background(), Task{Run: func(context.Context) error {
		close(done)
		return nil
	}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}

	_ = r.Stop(time.Second)
	if got := r.Stats().Panicked; got != 1 {
		t.Errorf("Panicked = %d, want 1", got)
	}
}

func TestRunner_CountsFailures(t *testing.T) {
	r := NewRunner(slogutil.NewDiscardLogger(), RunnerConfig{WorkerCount: 1, QueueSize: 4})
	_ = r.Start()

	_ = r.Submit(context.Background(), Task{Run: func(context.Context) error { return errors.New("nope") }})
	_ = r.Submit(context.Background(), Task{Run: func(context.Context) error { return nil }})

	if err := r.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	stats := r.Stats()
	if stats.Failed != 1 || stats.Processed != 1 {
		t.Errorf("stats = %+v, want 1 failed and 1 processed", stats)
	}
}

func TestRunner_StopDrainsQueue(t *testing.T) {
	r := NewRunner(slogutil.NewDiscardLogger(), RunnerConfig{WorkerCount: 1, QueueSize: 10})

	var count atomic.Int64
	for i := 0; i < 10; i++ {
		if err := r.Submit(context.Background(), Task{Run: func(context.Context) error {
			count.Add(1)
			return nil
		}}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	_ = r.Start()
	if err := r.Stop(2 * time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := count.Load(); got != 10 {
		t.Errorf("executed %d queued tasks, want 10", got)
	}
}

func TestRunner_SubmitAfterStop(t *testing.T) {
	r := NewRunner(slogutil.NewDiscardLogger(), DefaultRunnerConfig())
	_ = r.Start()

	if err := r.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}

	err := r.Submit(context.Background(), Task{Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrRunnerStopped) {
		t.Errorf("Submit() error = %v, want ErrRunnerStopped", err)
	}

	if err := r.Stop(time.Second); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestRunner_StopTimeout(t *testing.T) {
	r := NewRunner(slogutil.NewDiscardLogger(), RunnerConfig{WorkerCount: 1, QueueSize: 1})
	_ = r.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = r.Submit(context.Background(), Task{Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})
	<-started

	if err := r.Stop(20 * time.Millisecond); err == nil {
		t.Error("Stop() should time out while a task is running")
	}
	close(release)
}
