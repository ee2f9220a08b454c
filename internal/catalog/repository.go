package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/db"
)

const productColumns = `id, name, technical_name, company, category, quantity, quantity_alert,
	buying_price, selling_price_cash, selling_price_udhaar, created_at, updated_at`

// PostgresRepository persists products in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PostgresRepository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}

	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR technical_name ILIKE $` + n + ` OR company ILIKE $` + n + `)`
	}
	if filter.LowStock {
		query += ` AND quantity <= quantity_alert`
		query += ` ORDER BY quantity ASC, name ASC`
	} else {
		query += ` ORDER BY created_at DESC`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id.String())
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, technical_name, company, category, quantity, quantity_alert,
		buying_price, selling_price_cash, selling_price_udhaar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		p.ID.String(), p.Name, p.TechnicalName, p.Company, string(p.Category), p.Quantity, p.QuantityAlert,
		p.BuyingPrice, p.SellingPriceCash, p.SellingPriceUdhaar, now)
	if err != nil {
		if db.IsCheckViolation(err) {
			return Product{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
		}
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products SET name = $2, technical_name = $3, company = $4, category = $5,
		quantity = $6, quantity_alert = $7, buying_price = $8, selling_price_cash = $9, selling_price_udhaar = $10,
		updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID.String(), p.Name, p.TechnicalName, p.Company, string(p.Category), p.Quantity, p.QuantityAlert,
		p.BuyingPrice, p.SellingPriceCash, p.SellingPriceUdhaar)
	updated, err := scanProduct(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Product{}, ErrProductNotFound
	case db.IsCheckViolation(err):
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	case err != nil:
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		category string
	)
	err := row.Scan(&p.ID, &p.Name, &p.TechnicalName, &p.Company, &category, &p.Quantity, &p.QuantityAlert,
		&p.BuyingPrice, &p.SellingPriceCash, &p.SellingPriceUdhaar, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Category = Category(category)
	return p, nil
}
