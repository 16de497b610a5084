package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runner executes tasks on a fixed set of worker goroutines fed by a
// bounded queue. Its size is independent of how many callers submit.
type Runner struct {
	logger *slog.Logger

	queue       chan queuedTask
	queueSize   int
	workerCount int

	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup

	running   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
}

// RunnerConfig contains configuration for the job runner.
type RunnerConfig struct {
	QueueSize   int
	WorkerCount int
}

// DefaultRunnerConfig returns the default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		QueueSize:   64,
		WorkerCount: 4,
	}
}

// NewRunner creates a new job runner. A QueueSize of zero means an
// unbuffered queue: Submit waits for an idle worker.
func NewRunner(logger *slog.Logger, config RunnerConfig) *Runner {
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}

	return &Runner{
		logger:      logger,
		queue:       make(chan queuedTask, config.QueueSize),
		queueSize:   config.QueueSize,
		workerCount: config.WorkerCount,
		done:        make(chan struct{}),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (r *Runner) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	r.logger.Info("Starting job runner",
		"workers", r.workerCount,
		"queueSize", r.queueSize,
	)

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return nil
}

// Stop refuses new tasks, lets the workers finish everything already
// queued, and waits up to timeout for them to exit.
func (r *Runner) Stop(timeout time.Duration) error {
	var err error
	r.stopOnce.Do(func() {
		r.logger.Info("Stopping job runner", "queued", len(r.queue))

		close(r.done)

		// wait out Submits that are mid-send, then no sender can remain
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.queue)

		finished := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(finished)
		}()

		select {
		case <-finished:
			r.logger.Info("Job runner stopped cleanly")
		case <-time.After(timeout):
			err = fmt.Errorf("job runner shutdown timed out after %v", timeout)
		}
	})
	return err
}

// Submit enqueues task. It blocks while the queue is full until a slot
// frees, ctx ends, or the runner stops.
func (r *Runner) Submit(ctx context.Context, task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		return ErrRunnerStopped
	}

	qt := queuedTask{ctx: context.WithoutCancel(ctx), task: task}
	select {
	case r.queue <- qt:
		r.logger.Debug("Task queued", "taskId", task.ID, "kind", task.Kind)
		return nil
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("Job worker started", "workerId", id)
	for qt := range r.queue {
		r.process(qt)
	}
	r.logger.Debug("Job worker stopping", "workerId", id)
}

func (r *Runner) process(qt queuedTask) {
	r.running.Add(1)
	defer r.running.Add(-1)

	start := time.Now()
	err := r.run(qt)
	duration := time.Since(start)

	if err != nil {
		r.failed.Add(1)
		r.logger.Warn("Task failed",
			"taskId", qt.task.ID,
			"kind", qt.task.Kind,
			"error", err.Error(),
			"duration", duration.String(),
		)
		return
	}

	r.processed.Add(1)
	r.logger.Debug("Task completed",
		"taskId", qt.task.ID,
		"kind", qt.task.Kind,
		"duration", duration.String(),
	)
}

func (r *Runner) run(qt queuedTask) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.panicked.Add(1)
			r.logger.Error("Task panicked",
				"taskId", qt.task.ID,
				"kind", qt.task.Kind,
				"panic", fmt.Sprint(p),
			)
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return qt.task.Run(qt.ctx)
}

// RunnerStats is a snapshot of runner activity.
type RunnerStats struct {
	Workers       int   `json:"workers"`
	QueueLength   int   `json:"queueLength"`
	QueueCapacity int   `json:"queueCapacity"`
	Running       int64 `json:"running"`
	Processed     int64 `json:"processedTotal"`
	Failed        int64 `json:"failedTotal"`
	Panicked      int64 `json:"panickedTotal"`
}

// Stats returns runner statistics.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Workers:       r.workerCount,
		QueueLength:   len(r.queue),
		QueueCapacity: r.queueSize,
		Running:       r.running.Load(),
		Processed:     r.processed.Load(),
		Failed:        r.failed.Load(),
		Panicked:      r.panicked.Load(),
	}
}

// IsRunning returns true if the runner is started and not stopped.
func (r *Runner) IsRunning() bool {
	if !r.started.Load() {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
