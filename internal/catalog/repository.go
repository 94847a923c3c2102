package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested product was not found.
var ErrNotFound = errors.New("product not found")

// Repository provides product persistence.
type Repository interface {
	List(ctx context.Context, req ListRequest) ([]Product, int, error)
	Get(ctx context.Context, id int64) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Create(ctx context.Context, product Product) (int64, error)
	Update(ctx context.Context, id int64, product Product) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed product repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, sku, name, description, base_price, gst_percentage,
	additional_design_charge, options, attributes, quantity_tiers, is_active,
	created_at, updated_at`

func (r *repository) List(ctx context.Context, req ListRequest) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	var args []interface{}
	argCount := 0

	if req.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+req.Search+"%")
	}
	if req.IsActive != nil {
		argCount++
		clause := ` AND is_active = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *req.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY name, id LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, base_price, gst_percentage,
			additional_design_charge, options, attributes, quantity_tiers, is_active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`,
		p.SKU, p.Name, textOrNil(p.Description), p.BasePrice, p.GSTPercentage,
		p.AdditionalDesignCharge, p.Options, p.Attributes, p.QuantityTiers, p.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create product: %w", err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET name = $2, description = $3, base_price = $4,
			gst_percentage = $5, additional_design_charge = $6, options = $7,
			attributes = $8, quantity_tiers = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1`,
		id, p.Name, textOrNil(p.Description), p.BasePrice, p.GSTPercentage,
		p.AdditionalDesignCharge, p.Options, p.Attributes, p.QuantityTiers, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p           Product
		description pgtype.Text
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &description, &p.BasePrice, &p.GSTPercentage,
		&p.AdditionalDesignCharge, &p.Options, &p.Attributes, &p.QuantityTiers,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Product{}, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	return p, nil
}

func textOrNil(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
