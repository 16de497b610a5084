package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"namereg/internal/errors"
	"namereg/internal/identity"
	"namereg/internal/jobs"
	"namereg/internal/storage"
)

// Submitter hands tasks to a worker pool. *jobs.Runner implements it.
type Submitter interface {
	Submit(ctx context.Context, task jobs.Task) error
}

// Service binds the registration sequence to one strategy. The pool and
// the submitter are shared by reference with the rest of the process.
type Service struct {
	pool     storage.Pool
	ids      identity.Generator
	runner   Submitter
	strategy Strategy
	logger   *slog.Logger
}

// NewService creates a Service. runner may be nil only for Inline.
func NewService(pool storage.Pool, ids identity.Generator, runner Submitter, strategy Strategy, logger *slog.Logger) (*Service, error) {
	if strategy == Offload && runner == nil {
		return nil, fmt.Errorf("strategy %q requires a job runner", Offload)
	}
	if ids == nil {
		ids = identity.UUIDGenerator{}
	}
	return &Service{
		pool:     pool,
		ids:      ids,
		runner:   runner,
		strategy: strategy,
		logger:   logger,
	}, nil
}

// Strategy returns the strategy Handle dispatches to.
func (s *Service) Strategy() Strategy {
	return s.strategy
}

// Handle registers name with the configured strategy.
func (s *Service) Handle(ctx context.Context, name string) (storage.Record, error) {
	if s.strategy == Inline {
		return s.Inline(ctx, name)
	}
	return s.Offload(ctx, name)
}

// Inline runs the sequence on the calling goroutine. Caller cancellation
// is not propagated into the sequence once it has started.
func (s *Service) Inline(ctx context.Context, name string) (storage.Record, error) {
	rec, err := Register(context.WithoutCancel(ctx), s.pool, s.ids, name)
	s.logResult(Inline, rec, err)
	return rec, err
}

type result struct {
	rec storage.Record
	err error
}

// Offload runs the sequence on a runner worker and waits for its result.
// If ctx ends first the caller gets a Cancelled error while the worker
// still completes the sequence.
func (s *Service) Offload(ctx context.Context, name string) (storage.Record, error) {
	if s.runner == nil {
		return storage.Record{}, errors.New(errors.InternalError, "offload without a job runner", nil)
	}

	done := make(chan result, 1)
	task := jobs.Task{
		ID:   "register:" + name,
		Kind: "register",
		Run: func(taskCtx context.Context) error {
			// the waiting caller still gets an answer; the runner sees the
			// panic again and accounts for it
			defer func() {
				if p := recover(); p != nil {
					done <- result{err: errors.New(errors.InternalError, fmt.Sprintf("registration panicked: %v", p), nil)}
					panic(p)
				}
			}()
			rec, err := Register(taskCtx, s.pool, s.ids, name)
			s.logResult(Offload, rec, err)
			done <- result{rec: rec, err: err}
			return err
		},
	}

	if err := s.runner.Submit(ctx, task); err != nil {
		if stderrors.Is(err, jobs.ErrRunnerStopped) {
			return storage.Record{}, errors.New(errors.InternalError, "submit registration", err)
		}
		return storage.Record{}, errors.New(errors.Cancelled, "waiting for a worker", err)
	}

	select {
	case r := <-done:
		return r.rec, r.err
	case <-ctx.Done():
		return storage.Record{}, errors.New(errors.Cancelled, "waiting for registration result", ctx.Err())
	}
}

func (s *Service) logResult(strategy Strategy, rec storage.Record, err error) {
	if err != nil {
		s.logger.Debug("Registration failed",
			"strategy", strategy,
			"code", errors.CodeOf(err),
			"error", err.Error(),
		)
		return
	}
	s.logger.Debug("Registered name",
		"strategy", strategy,
		"id", rec.ID,
		"name", rec.Name,
	)
}
