package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/catalog"
)

const healthCheckTimeout = 2 * time.Second

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateWithStock inserts a product and its stock row in one transaction.
// Either both records exist afterwards or neither does.
func (r *PostgresRepository) CreateWithStock(ctx context.Context, p catalog.Product, count int64) (catalog.Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertProduct := `
		INSERT INTO products (id, title, description, price)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, insertProduct, p.ID, p.Title, p.Description, p.Price).Scan(&p.CreatedAt); err != nil {
		return catalog.Item{}, fmt.Errorf("insert product: %w", err)
	}

	insertStock := `INSERT INTO stock (product_id, count) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertStock, p.ID, count); err != nil {
		return catalog.Item{}, fmt.Errorf("insert stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return catalog.Item{}, fmt.Errorf("commit tx: %w", err)
	}

	return catalog.Item{Product: p, Count: count}, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (catalog.Product, error) {
	query := `
		SELECT id, title, description, price, created_at
		FROM products
		WHERE id = $1
	`

	var p catalog.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("query product %s: %w", id, err)
	}
	return p, nil
}

// StockCount returns the stock count for one product. A product without a
// stock row counts as zero.
func (r *PostgresRepository) StockCount(ctx context.Context, productID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT count FROM stock WHERE product_id = $1`, productID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query stock %s: %w", productID, err)
	}
	return count, nil
}

// List returns products ordered newest first. A non-positive limit returns
// the whole catalog.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]catalog.Product, error) {
	query := `
		SELECT id, title, description, price, created_at
		FROM products
		ORDER BY created_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	list := make([]catalog.Product, 0)
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return list, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}
