package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/printdock/printdock-backend/pkg/logger"
)

func TestOutboxRetentionJobDrainsInBatches(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakePurger{results: []int64{2, 2, 1}}
	dlq := &fakePurger{results: []int64{0}}
	job := newOutboxRetentionJob(t, repo, dlq)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 3 {
		t.Fatalf("expected three batches, got %d", repo.called)
	}
	if dlq.called != 1 {
		t.Fatalf("expected dlq purged once, got %d", dlq.called)
	}
}

func TestOutboxRetentionJobCombinesErrors(t *testing.T) {
	repo := &fakePurger{err: errors.New("outbox down")}
	dlq := &fakePurger{err: errors.New("dlq down")}
	job := newOutboxRetentionJob(t, repo, dlq)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, repo.err) || !errors.Is(err, dlq.err) {
		t.Fatalf("expected both failures to surface, got %v", err)
	}
}

func TestOutboxRetentionJobRequiresRepository(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err == nil {
		t.Fatal("expected missing repository to fail")
	}
}

func newOutboxRetentionJob(t *testing.T, repo, dlq *fakePurger) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		DLQ:        dlq,
		BatchSize:  2,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakePurger struct {
	results    []int64
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakePurger) next(cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	n := f.results[0]
	f.results = f.results[1:]
	return n, nil
}

func (f *fakePurger) DeletePublishedBefore(_ context.Context, cutoff time.Time, _ int) (int64, error) {
	return f.next(cutoff)
}

func (f *fakePurger) DeleteFailedBefore(_ context.Context, cutoff time.Time, _ int) (int64, error) {
	return f.next(cutoff)
}
