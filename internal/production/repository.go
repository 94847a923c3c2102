package production

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printforge/printforge/internal/platform/db"
)

// ErrDepartmentNotFound indicates an unknown department id.
var ErrDepartmentNotFound = errors.New("department not found")

// DecideFunc inspects the locked row and returns its next state.
type DecideFunc func(current DepartmentStatus, activeElsewhere bool) (DepartmentStatus, error)

// Repository persists departments and their per-order workflow rows.
type Repository interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	ListByOrder(ctx context.Context, orderID int64) ([]DepartmentStatus, error)
	ApplyAction(ctx context.Context, orderID, departmentID int64, decide DecideFunc) (DepartmentStatus, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed production repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, sequence FROM departments ORDER BY sequence`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var dept Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Sequence); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		departments = append(departments, dept)
	}
	return departments, rows.Err()
}

func (r *pgRepository) ListByOrder(ctx context.Context, orderID int64) ([]DepartmentStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ds.id, ds.order_id, ds.department_id, d.name, d.sequence, ds.status,
		       ds.started_at, ds.paused_at, ds.completed_at, ds.stopped_at,
		       COALESCE(ds.operator, ''), COALESCE(ds.notes, '')
		FROM department_statuses ds
		JOIN departments d ON d.id = ds.department_id
		WHERE ds.order_id = $1
		ORDER BY d.sequence`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list department statuses: %w", err)
	}
	defer rows.Close()

	var statuses []DepartmentStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// ApplyAction locks the workflow row (creating a pending one on first
// touch), checks the order's work slot, and writes the decided state.
// Everything happens in one transaction so two operators cannot both
// start work on the same order.
func (r *pgRepository) ApplyAction(ctx context.Context, orderID, departmentID int64, decide DecideFunc) (DepartmentStatus, error) {
	var result DepartmentStatus
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, departmentID).Scan(&exists); err != nil {
			return fmt.Errorf("check department: %w", err)
		}
		if !exists {
			return ErrDepartmentNotFound
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO department_statuses (order_id, department_id, status)
			VALUES ($1, $2, 'pending')
			ON CONFLICT (order_id, department_id) DO NOTHING`, orderID, departmentID); err != nil {
			return fmt.Errorf("seed department status: %w", err)
		}

		row := tx.QueryRow(ctx, `
			SELECT ds.id, ds.order_id, ds.department_id, d.name, d.sequence, ds.status,
			       ds.started_at, ds.paused_at, ds.completed_at, ds.stopped_at,
			       COALESCE(ds.operator, ''), COALESCE(ds.notes, '')
			FROM department_statuses ds
			JOIN departments d ON d.id = ds.department_id
			WHERE ds.order_id = $1 AND ds.department_id = $2
			FOR UPDATE OF ds`, orderID, departmentID)
		current, err := scanStatus(row)
		if err != nil {
			return err
		}

		var activeElsewhere bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM department_statuses
				WHERE order_id = $1 AND department_id <> $2
				AND status IN ('in_progress', 'paused')
			)`, orderID, departmentID).Scan(&activeElsewhere); err != nil {
			return fmt.Errorf("check active departments: %w", err)
		}

		next, err := decide(current, activeElsewhere)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE department_statuses
			SET status = $1, started_at = $2, paused_at = $3, completed_at = $4,
			    stopped_at = $5, operator = $6, notes = $7
			WHERE id = $8`,
			next.Status, next.StartedAt, next.PausedAt, next.CompletedAt,
			next.StoppedAt, next.Operator, next.Notes, next.ID); err != nil {
			return fmt.Errorf("update department status: %w", err)
		}
		result = next
		return nil
	})
	return result, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (DepartmentStatus, error) {
	var status DepartmentStatus
	if err := row.Scan(&status.ID, &status.OrderID, &status.DepartmentID,
		&status.DepartmentName, &status.Sequence, &status.Status,
		&status.StartedAt, &status.PausedAt, &status.CompletedAt, &status.StoppedAt,
		&status.Operator, &status.Notes); err != nil {
		return DepartmentStatus{}, fmt.Errorf("scan department status: %w", err)
	}
	return status, nil
}
