package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Zhima-Mochi/colleshop/internal/domain/catalog"
	"github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRepository is both the catalog and the inventory ledger.
type ProductRepository struct {
	pool *pgxpool.Pool
}

const productColumns = `id, name, type, description, price::text, stock, image, created_at`

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Description, &price, &p.Stock, &p.Image, &p.CreatedAt); err != nil {
		return nil, err
	}
	d, err := parseDecimal(price)
	if err != nil {
		return nil, err
	}
	p.Price = d
	return &p, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.pool, "products")
}

func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, type, description, price, stock, image, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, COALESCE($8, now()))
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			image = EXCLUDED.image`,
		p.ID, p.Name, p.Type, p.Description, p.Price.String(), p.Stock, p.Image, nullTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Reserve(ctx context.Context, productID string, qty int) error {
	return reserve(ctx, r.pool, productID, qty)
}

func (r *ProductRepository) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	tag, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("postgres: release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

// ReserveBatch reserves all lines in one transaction. Rows are locked in product id order so
// two overlapping checkouts cannot deadlock.
func (r *ProductRepository) ReserveBatch(ctx context.Context, lines []inventory.Reservation) (err error) {
	merged := make(map[string]int, len(lines))
	for _, l := range lines {
		if verr := l.Validate(); verr != nil {
			return verr
		}
		merged[l.ProductID] += l.Quantity
	}
	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	for _, id := range ids {
		if err = reserve(ctx, tx, id, merged[id]); err != nil {
			return err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit reservation: %w", err)
	}
	return nil
}

func reserve(ctx context.Context, q querier, productID string, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	tag, err := q.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return fmt.Errorf("postgres: reserve stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: reserve stock: %w", err)
	}
	if !exists {
		return inventory.ErrNotFound
	}
	return inventory.ErrInsufficientStock
}
