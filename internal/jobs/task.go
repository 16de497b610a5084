package jobs

import (
	"context"
	"errors"
)

// ErrRunnerStopped is returned by Submit once Stop has been called.
var ErrRunnerStopped = errors.New("job runner is stopped")

// Task is a unit of work executed on a runner worker.
type Task struct {
	// ID identifies the task in logs.
	ID string
	// Kind groups tasks for logs and stats, e.g. "register".
	Kind string
	// Run does the work. The context carries the submitter's values but is
	// never cancelled by the submitter.
	Run func(ctx context.Context) error
}

type queuedTask struct {
	ctx  context.Context
	task Task
}
