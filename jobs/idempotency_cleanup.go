package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/printforge/printforge/internal/jobs"
	"github.com/printforge/printforge/internal/shared"
)

// IdempotencyCleanupJob prunes webhook dedup keys past their retention.
type IdempotencyCleanupJob struct {
	Store     *shared.IdempotencyStore
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Retention time.Duration
}

// NewIdempotencyCleanupJob wires the cleanup handler.
func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{
		Store:     store,
		Logger:    logger,
		Metrics:   metrics,
		Retention: 30 * 24 * time.Hour,
	}
}

// Handle processes cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	err := j.Store.Cleanup(ctx, j.Retention)
	if err != nil {
		j.Logger.Error("idempotency cleanup failed", "error", err)
	} else {
		j.Logger.Info("idempotency cleanup completed", "retention", j.Retention.String())
	}
	return tracker.End(err)
}
