package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/printdock/printdock-backend/pkg/logger"
)

const (
	defaultBatchImportStale = time.Hour
	staleBatchImportReason  = "import did not finish before the processing deadline"
)

type BatchImportReaperJobParams struct {
	Logger     *logger.Logger
	Repository staleBatchImportMarker
	StaleAfter time.Duration
}

type staleBatchImportMarker interface {
	FailStaleProcessing(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// NewBatchImportReaperJob builds the job that fails imports stuck in processing.
func NewBatchImportReaperJob(params BatchImportReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("batch import repository required")
	}
	stale := params.StaleAfter
	if stale <= 0 {
		stale = defaultBatchImportStale
	}
	return &batchImportReaperJob{
		logg:  params.Logger,
		repo:  params.Repository,
		stale: stale,
		now:   time.Now,
	}, nil
}

type batchImportReaperJob struct {
	logg  *logger.Logger
	repo  staleBatchImportMarker
	stale time.Duration
	now   func() time.Time
}

func (j *batchImportReaperJob) Name() string { return "batch-import-reaper" }

func (j *batchImportReaperJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.stale)
	failed, err := j.repo.FailStaleProcessing(ctx, cutoff, staleBatchImportReason)
	if err != nil {
		return fmt.Errorf("fail stale batch imports: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_updated": failed,
	})
	j.logg.Info(logCtx, "batch import reaper complete")
	return nil
}
