package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printforge/printforge/internal/shipment"
)

const orderColumns = `
	id, order_number, product_id, quantity, selection, need_designer,
	COALESCE(artwork_url, ''), customer, status, payment_status, price_snapshot,
	zone_id, segment_id, COALESCE(awb_code, ''), COALESCE(courier_partner, ''),
	COALESCE(courier_status, ''), COALESCE(courier_charges, 0),
	production_start_date, production_end_date, estimated_delivery_date,
	delivered_at, created_at, updated_at`

// Repository persists orders. The price_snapshot column is written by
// Create and never touched by any other statement in this package.
type Repository interface {
	Create(ctx context.Context, order Order) (Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, query ListQuery) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	SetPaymentStatus(ctx context.Context, id int64, status string) error
	SetCourierAssignment(ctx context.Context, id int64, awbCode, partner string, charges float64, estimatedDelivery *time.Time) error

	// shipment.OrderFeed
	OrderIDByAWB(ctx context.Context, awbCode string) (int64, error)
	SetCourierStatus(ctx context.Context, orderID int64, status string, deliveredAt *time.Time) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed order repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

var _ shipment.OrderFeed = (*pgRepository)(nil)

func (r *pgRepository) Create(ctx context.Context, order Order) (Order, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO orders (
			order_number, product_id, quantity, selection, need_designer,
			artwork_url, customer, status, payment_status, price_snapshot,
			zone_id, segment_id, estimated_delivery_date,
			awb_code, courier_partner, courier_charges
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`,
		order.OrderNumber, order.ProductID, order.Quantity, order.Selection,
		order.NeedDesigner, textOrNil(order.ArtworkURL), order.Customer,
		order.Status, order.PaymentStatus, order.PriceSnapshot,
		order.ZoneID, order.SegmentID, order.EstimatedDelivery,
		textOrNil(order.AWBCode), textOrNil(order.CourierPartner), order.CourierCharges)
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Order, error) {
	return r.getWhere(ctx, "id = $1", id)
}

func (r *pgRepository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return r.getWhere(ctx, "order_number = $1", number)
}

func (r *pgRepository) getWhere(ctx context.Context, clause string, arg any) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+clause, arg)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *pgRepository) List(ctx context.Context, query ListQuery) ([]Order, int, error) {
	where := ""
	args := []any{}
	if query.Status != "" {
		where = "WHERE status = $1"
		args = append(args, query.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := (query.Page - 1) * query.PerPage
	args = append(args, query.PerPage, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *order)
	}
	return result, total, rows.Err()
}

func (r *pgRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *pgRepository) SetPaymentStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *pgRepository) SetCourierAssignment(ctx context.Context, id int64, awbCode, partner string, charges float64, estimatedDelivery *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET awb_code = $1, courier_partner = $2, courier_charges = $3,
		    estimated_delivery_date = $4, updated_at = now()
		WHERE id = $5`,
		awbCode, partner, charges, estimatedDelivery, id)
	if err != nil {
		return fmt.Errorf("assign courier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *pgRepository) OrderIDByAWB(ctx context.Context, awbCode string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM orders WHERE awb_code = $1`, awbCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shipment.ErrUnknownAWB
		}
		return 0, fmt.Errorf("lookup order by awb: %w", err)
	}
	return id, nil
}

func (r *pgRepository) SetCourierStatus(ctx context.Context, orderID int64, status string, deliveredAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET courier_status = $1,
		    delivered_at = COALESCE($2, delivered_at),
		    updated_at = now()
		WHERE id = $3`,
		status, deliveredAt, orderID)
	if err != nil {
		return fmt.Errorf("update courier status: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var order Order
	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.ProductID, &order.Quantity,
		&order.Selection, &order.NeedDesigner, &order.ArtworkURL, &order.Customer,
		&order.Status, &order.PaymentStatus, &order.PriceSnapshot,
		&order.ZoneID, &order.SegmentID, &order.AWBCode, &order.CourierPartner,
		&order.CourierStatus, &order.CourierCharges,
		&order.ProductionStart, &order.ProductionEnd, &order.EstimatedDelivery,
		&order.DeliveredAt, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &order, nil
}

func textOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
