package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printforge/printforge/internal/platform/db"
)

// ErrEntryNotFound indicates the requested price book entry was not found.
var ErrEntryNotFound = errors.New("price book entry not found")

// Repository provides price book persistence.
type Repository interface {
	CandidateEntries(ctx context.Context, productID int64, rctx ResolutionContext) ([]Entry, error)
	ActiveModifiers(ctx context.Context) ([]Modifier, error)
	GetEntry(ctx context.Context, level Level, productID int64, zoneID, segmentID *int64) (*Entry, error)
	DescendantEntries(ctx context.Context, edit Edit) ([]Entry, error)
	UpsertEntry(ctx context.Context, entry Entry) error
	SetAvailability(ctx context.Context, id int64, available bool, reason *string) error
	ApplyPlan(ctx context.Context, plan ResolutionPlan) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed price book repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `id, level, zone_id, segment_id, product_id, price,
	available, unavailable_reason, created_at, updated_at`

// CandidateEntries loads every entry that could price the product for the
// context: the MASTER row plus any zone/segment rows matching it.
func (r *repository) CandidateEntries(ctx context.Context, productID int64, rctx ResolutionContext) ([]Entry, error) {
	const query = `
		SELECT ` + entryColumns + `
		FROM price_book_entries
		WHERE product_id = $1
		  AND (level = 'MASTER'
		       OR (level = 'ZONE' AND zone_id = $2)
		       OR (level IN ('ZONE_SEGMENT', 'SINGLE_CELL') AND zone_id = $2 AND segment_id = $3))
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, productID, int8OrNil(rctx.ZoneID), int8OrNil(rctx.SegmentID))
	if err != nil {
		return nil, fmt.Errorf("books: candidate entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ActiveModifiers loads every active modifier ordered by scope position.
func (r *repository) ActiveModifiers(ctx context.Context) ([]Modifier, error) {
	const query = `
		SELECT id, name, scope, logic, conditions, effect, decrease, value, position, is_active
		FROM price_modifiers
		WHERE is_active
		ORDER BY scope, position, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("books: active modifiers: %w", err)
	}
	defer rows.Close()

	var modifiers []Modifier
	for rows.Next() {
		var m Modifier
		if err := rows.Scan(&m.ID, &m.Name, &m.Scope, &m.Logic, &m.Conditions,
			&m.Effect, &m.Decrease, &m.Value, &m.Position, &m.IsActive); err != nil {
			return nil, fmt.Errorf("books: scan modifier: %w", err)
		}
		modifiers = append(modifiers, m)
	}
	return modifiers, rows.Err()
}

func (r *repository) GetEntry(ctx context.Context, level Level, productID int64, zoneID, segmentID *int64) (*Entry, error) {
	const query = `
		SELECT ` + entryColumns + `
		FROM price_book_entries
		WHERE level = $1 AND product_id = $2
		  AND zone_id IS NOT DISTINCT FROM $3
		  AND segment_id IS NOT DISTINCT FROM $4`

	rows, err := r.pool.Query(ctx, query, level, productID, int8OrNil(zoneID), int8OrNil(segmentID))
	if err != nil {
		return nil, fmt.Errorf("books: get entry: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEntryNotFound
	}
	return &entries[0], nil
}

// DescendantEntries returns every entry strictly more specific than the
// edited level for the same product. A MASTER edit conflicts with every
// zone/segment override in the system; the full set is returned and the
// handler paginates the report.
func (r *repository) DescendantEntries(ctx context.Context, edit Edit) ([]Entry, error) {
	var (
		query string
		args  []interface{}
	)
	switch edit.Level {
	case LevelMaster:
		query = `
			SELECT ` + entryColumns + `
			FROM price_book_entries
			WHERE product_id = $1 AND level <> 'MASTER'
			ORDER BY level, zone_id, segment_id, id`
		args = []interface{}{edit.ProductID}
	case LevelZone:
		query = `
			SELECT ` + entryColumns + `
			FROM price_book_entries
			WHERE product_id = $1 AND zone_id = $2
			  AND level IN ('ZONE_SEGMENT', 'SINGLE_CELL')
			ORDER BY level, segment_id, id`
		args = []interface{}{edit.ProductID, int8OrNil(edit.ZoneID)}
	case LevelZoneSegment:
		query = `
			SELECT ` + entryColumns + `
			FROM price_book_entries
			WHERE product_id = $1 AND zone_id = $2 AND segment_id = $3
			  AND level = 'SINGLE_CELL'
			ORDER BY id`
		args = []interface{}{edit.ProductID, int8OrNil(edit.ZoneID), int8OrNil(edit.SegmentID)}
	case LevelSingleCell:
		return nil, nil
	default:
		return nil, fmt.Errorf("books: descendant entries: unknown level %q", edit.Level)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("books: descendant entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *repository) UpsertEntry(ctx context.Context, entry Entry) error {
	const query = `
		INSERT INTO price_book_entries
			(level, zone_id, segment_id, product_id, price, available, unavailable_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (level, product_id, zone_id, segment_id)
		DO UPDATE SET price = EXCLUDED.price,
			available = EXCLUDED.available,
			unavailable_reason = EXCLUDED.unavailable_reason,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query,
		entry.Level, int8OrNil(entry.ZoneID), int8OrNil(entry.SegmentID),
		entry.ProductID, entry.Price, entry.Available, textOrNil(entry.UnavailableReason))
	if err != nil {
		return fmt.Errorf("books: upsert entry: %w", err)
	}
	return nil
}

func (r *repository) SetAvailability(ctx context.Context, id int64, available bool, reason *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE price_book_entries
		SET available = $2, unavailable_reason = $3, updated_at = NOW()
		WHERE id = $1`, id, available, textOrNil(reason))
	if err != nil {
		return fmt.Errorf("books: set availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ApplyPlan executes a resolution plan atomically: the parent write and
// every descendant delete/rewrite commit together or not at all.
func (r *repository) ApplyPlan(ctx context.Context, plan ResolutionPlan) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const upsert = `
			INSERT INTO price_book_entries
				(level, zone_id, segment_id, product_id, price, available, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
			ON CONFLICT (level, product_id, zone_id, segment_id)
			DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()`
		if _, err := tx.Exec(ctx, upsert,
			plan.Edit.Level, int8OrNil(plan.Edit.ZoneID), int8OrNil(plan.Edit.SegmentID),
			plan.Edit.ProductID, plan.Edit.NewPrice); err != nil {
			return fmt.Errorf("parent upsert: %w", err)
		}

		for _, id := range plan.DeleteEntryIDs {
			if _, err := tx.Exec(ctx, `DELETE FROM price_book_entries WHERE id = $1`, id); err != nil {
				return fmt.Errorf("delete entry %d: %w", id, err)
			}
		}
		for _, rewrite := range plan.Rewrites {
			tag, err := tx.Exec(ctx, `
				UPDATE price_book_entries SET price = $2, updated_at = NOW() WHERE id = $1`,
				rewrite.EntryID, rewrite.NewPrice)
			if err != nil {
				return fmt.Errorf("rewrite entry %d: %w", rewrite.EntryID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("rewrite entry %d: missing", rewrite.EntryID)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	return nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			entry             Entry
			zoneID, segmentID pgtype.Int8
			reason            pgtype.Text
		)
		if err := rows.Scan(&entry.ID, &entry.Level, &zoneID, &segmentID,
			&entry.ProductID, &entry.Price, &entry.Available, &reason,
			&entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("books: scan entry: %w", err)
		}
		if zoneID.Valid {
			entry.ZoneID = &zoneID.Int64
		}
		if segmentID.Valid {
			entry.SegmentID = &segmentID.Int64
		}
		if reason.Valid {
			entry.UnavailableReason = &reason.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func int8OrNil(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func textOrNil(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
