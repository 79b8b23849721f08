package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/printdock/printdock-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	outboxDeleteBatch   = 500
	// Bounds a single run so a large backlog is drained over several cycles.
	outboxMaxBatches = 20
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository publishedOutboxPurger
	DLQ        deadLetterPurger
	Retention  int
	BatchSize  int
}

type publishedOutboxPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type deadLetterPurger interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob builds the job that prunes published outbox rows and
// expired dead letters.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = outboxDeleteBatch
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		dlq:       params.DLQ,
		retention: retention,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      publishedOutboxPurger
	dlq       deadLetterPurger
	retention int
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)

	published, pubErr := drain(ctx, j.batch, func(ctx context.Context, limit int) (int64, error) {
		return j.repo.DeletePublishedBefore(ctx, cutoff, limit)
	})
	if pubErr != nil {
		pubErr = fmt.Errorf("purge published outbox rows: %w", pubErr)
	}

	var dead int64
	var dlqErr error
	if j.dlq != nil {
		dead, dlqErr = drain(ctx, j.batch, func(ctx context.Context, limit int) (int64, error) {
			return j.dlq.DeleteFailedBefore(ctx, cutoff, limit)
		})
		if dlqErr != nil {
			dlqErr = fmt.Errorf("purge outbox dead letters: %w", dlqErr)
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":            cutoff,
		"retention_days":    j.retention,
		"rows_deleted":      published,
		"dead_letters_gone": dead,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return multierr.Combine(pubErr, dlqErr)
}

// drain calls del until a batch comes back short or the batch cap is hit.
func drain(ctx context.Context, limit int, del func(context.Context, int) (int64, error)) (int64, error) {
	var total int64
	for i := 0; i < outboxMaxBatches; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := del(ctx, limit)
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(limit) {
			break
		}
	}
	return total, nil
}
