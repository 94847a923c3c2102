package shipment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the append-only courier feed.
type Repository interface {
	Append(ctx context.Context, entry CourierTimelineEntry) error
	ListByOrder(ctx context.Context, orderID int64) ([]CourierTimelineEntry, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed courier feed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Append(ctx context.Context, entry CourierTimelineEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO courier_timeline_entries (order_id, status, location, occurred_at, notes)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.OrderID, entry.Status, entry.Location, entry.Timestamp, entry.Notes)
	if err != nil {
		return fmt.Errorf("append courier entry: %w", err)
	}
	return nil
}

func (r *pgRepository) ListByOrder(ctx context.Context, orderID int64) ([]CourierTimelineEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, status, COALESCE(location, ''), occurred_at, COALESCE(notes, ''), created_at
		FROM courier_timeline_entries
		WHERE order_id = $1
		ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list courier entries: %w", err)
	}
	defer rows.Close()

	var entries []CourierTimelineEntry
	for rows.Next() {
		var entry CourierTimelineEntry
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Status, &entry.Location,
			&entry.Timestamp, &entry.Notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan courier entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
