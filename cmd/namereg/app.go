package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"namereg/internal/api"
	"namereg/internal/config"
	"namereg/internal/identity"
	"namereg/internal/jobs"
	"namereg/internal/registry"
	"namereg/internal/slogutil"
	"namereg/internal/storage"
	"namereg/internal/tracing"
	"namereg/internal/version"
)

// app holds every long-lived component of a running server. The pool is
// built once and shared by reference with the service and the server.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	logCloser  io.Closer
	shutdownTr tracing.ShutdownFunc
	db         *storage.DB
	runner     *jobs.Runner
	service    *registry.Service
	server     *api.Server
}

func newLogger(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	return slogutil.New(w, slogutil.Options{
		Format:     cfg.Format,
		Level:      cfg.Level,
		File:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
	})
}

// newApp wires config -> logger -> tracing -> storage -> runner -> service
// -> server. On error everything already built is released.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (_ *app, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := registry.ParseStrategy(cfg.Handler.Strategy)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.logger, a.logCloser, err = newLogger(logOut, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if cfg.Tracing.Enabled {
		a.shutdownTr, err = tracing.Init(version.ServiceName, version.Version, cfg.Tracing.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	a.db, err = storage.Open(ctx, cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	if err := storage.InitSchema(ctx, a.db); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	var opts []api.Option
	var submitter registry.Submitter
	if strategy == registry.Offload {
		a.runner = jobs.NewRunner(a.logger, jobs.RunnerConfig{
			WorkerCount: cfg.Handler.Workers,
			QueueSize:   cfg.Handler.QueueSize,
		})
		if err := a.runner.Start(); err != nil {
			return nil, err
		}
		submitter = a.runner
		opts = append(opts, api.WithRunner(a.runner))
	}

	a.service, err = registry.NewService(a.db, identity.UUIDGenerator{}, submitter, strategy, a.logger)
	if err != nil {
		return nil, err
	}

	a.server, err = api.NewServer(cfg.Server, a.service, a.db, a.logger, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// close stops components in reverse start order. The HTTP server must
// already be shut down.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.runner != nil {
		if err := a.runner.Stop(a.cfg.Server.ShutdownTimeout()); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.shutdownTr != nil {
		tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.shutdownTr(tctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
