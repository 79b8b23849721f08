package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/metrics"
)

// Job is one piece of periodic maintenance, such as failing stuck batch
// imports or pruning published outbox rows.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Config  config.CronConfig
	Logger  *logger.Logger
	Jobs    []Job
	Lock    Lock
	Metrics *metrics.CronJobMetrics
}

// Service runs every job once per interval on whichever worker holds the lock.
type Service struct {
	cfg     config.CronConfig
	logg    *logger.Logger
	jobs    []Job
	lock    Lock
	metrics *metrics.CronJobMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	if params.Config.Interval <= 0 {
		return nil, fmt.Errorf("cron interval must be positive, got %s", params.Config.Interval)
	}

	seen := make(map[string]struct{}, len(params.Jobs))
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job == nil {
			continue
		}
		if _, dup := seen[job.Name()]; dup {
			return nil, fmt.Errorf("cron job %q registered twice", job.Name())
		}
		seen[job.Name()] = struct{}{}
		jobs = append(jobs, job)
	}

	return &Service{
		cfg:     params.Config,
		logg:    params.Logger,
		jobs:    jobs,
		lock:    params.Lock,
		metrics: params.Metrics,
	}, nil
}

// JobNames lists the jobs in run order.
func (s *Service) JobNames() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

// Run starts with an immediate cycle, then ticks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "interval", s.cfg.Interval.String())
	s.cycle(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "cron.cycle_failed", err)
	}
}

// runCycle runs each job in order. A failing job does not stop the rest;
// all failures come back combined.
func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		if h, ok := s.lock.(interface {
			Holder(context.Context) (string, error)
		}); ok {
			if holder, err := h.Holder(ctx); err == nil && holder != "" {
				ctx = s.logg.WithField(ctx, "holder", holder)
			}
		}
		s.metrics.IncSkipped()
		s.logg.Info(ctx, "cron.cycle_skipped_lock_held")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	start := time.Now()
	var errs error
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		errs = multierr.Append(errs, s.runJob(ctx, job))
	}

	done := s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(s.jobs),
		"failed":      len(multierr.Errors(errs)),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	s.logg.Info(done, "cron.cycle_complete")
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, s.cfg.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(jobCtx)
	end := time.Now()
	s.metrics.ObserveRun(job.Name(), end.Sub(start), end, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", end.Sub(start).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "cron.job_complete")
	return nil
}
