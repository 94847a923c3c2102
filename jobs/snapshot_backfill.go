package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/printforge/printforge/internal/jobs"
	"github.com/printforge/printforge/internal/orders"
)

// SnapshotBackfillPayload bounds one backfill batch.
type SnapshotBackfillPayload struct {
	Limit int `json:"limit"`
}

// SnapshotBackfillJob freezes price snapshots onto orders created before
// snapshots existed. The recomputed totals use today's product data, so
// a backfilled snapshot records the display price from the day the job
// ran, not the historically charged amount; it only stops the displayed
// total from drifting any further.
type SnapshotBackfillJob struct {
	Orders  *orders.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSnapshotBackfillJob wires the backfill handler.
func NewSnapshotBackfillJob(ordersSvc *orders.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotBackfillJob {
	return &SnapshotBackfillJob{Orders: ordersSvc, Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes backfill tasks.
func (j *SnapshotBackfillJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Orders == nil || j.Pool == nil {
		return errors.New("snapshot backfill: handler not configured")
	}
	var payload SnapshotBackfillPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 200
	}

	tracker := j.Metrics.Track(TaskSnapshotBackfill)
	var resultErr error
	defer func() { _ = tracker.End(resultErr) }()

	ids, err := j.legacyOrderIDs(ctx, payload.Limit)
	if err != nil {
		resultErr = err
		return resultErr
	}
	if len(ids) == 0 {
		j.Logger.Info("no legacy orders left to backfill")
		return nil
	}

	backfilled := 0
	for _, id := range ids {
		if err := j.backfillOne(ctx, id); err != nil {
			j.Logger.Error("snapshot backfill failed for order", "order_id", id, "error", err)
			resultErr = err
			return resultErr
		}
		backfilled++
	}
	j.Logger.Info("snapshot backfill completed", "orders", backfilled)
	return nil
}

func (j *SnapshotBackfillJob) legacyOrderIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT id FROM orders
		WHERE price_snapshot IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *SnapshotBackfillJob) backfillOne(ctx context.Context, orderID int64) error {
	order, err := j.Orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	breakdown, err := j.Orders.Breakdown(ctx, order)
	if err != nil {
		return err
	}
	snapshot := orders.SnapshotFromBreakdown(breakdown, order.CreatedAt)

	// Guarded by the NULL check so a concurrently written snapshot is
	// never overwritten.
	_, err = j.Pool.Exec(ctx, `
		UPDATE orders SET price_snapshot = $1, updated_at = now()
		WHERE id = $2 AND price_snapshot IS NULL`, snapshot, orderID)
	return err
}
