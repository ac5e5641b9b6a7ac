package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

const orderColumns = `id, user_id, items, subtotal::text, shipping_fee::text, total::text, status,
	shipping_address, billing_address, customer, payment_intent_id, mock_payment, tracking, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                        domain.Order
		items, ship, bill, cust  []byte
		tracking                 []byte
		subtotal, shipFee, total string
		status                   string
	)
	err := row.Scan(&o.ID, &o.UserID, &items, &subtotal, &shipFee, &total, &status,
		&ship, &bill, &cust, &o.PaymentIntentID, &o.MockPayment, &tracking, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)

	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{items, &o.Items},
		{ship, &o.ShippingAddress},
		{bill, &o.BillingAddress},
		{cust, &o.Customer},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("postgres: decode order %s: %w", o.ID, err)
		}
	}
	if len(tracking) > 0 {
		var t domain.Tracking
		if err := json.Unmarshal(tracking, &t); err != nil {
			return nil, fmt.Errorf("postgres: decode tracking %s: %w", o.ID, err)
		}
		o.Tracking = &t
	}

	if o.Subtotal, err = parseDecimal(subtotal); err != nil {
		return nil, err
	}
	if o.ShippingFee, err = parseDecimal(shipFee); err != nil {
		return nil, err
	}
	if o.Total, err = parseDecimal(total); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("postgres: encode items: %w", err)
	}
	ship, _ := json.Marshal(o.ShippingAddress)
	bill, _ := json.Marshal(o.BillingAddress)
	cust, _ := json.Marshal(o.Customer)
	tracking, err := marshalTracking(o.Tracking)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, items, subtotal, shipping_fee, total, status,
			shipping_address, billing_address, customer, payment_intent_id, mock_payment, tracking, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.UserID, items, o.Subtotal.String(), o.ShippingFee.String(), o.Total.String(), string(o.Status),
		ship, bill, cust, o.PaymentIntentID, o.MockPayment, tracking, o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
}

func (r *OrderRepository) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	out := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Summarize lets Postgres do the sum so NUMERIC precision survives.
func (r *OrderRepository) Summarize(ctx context.Context, userID string) (domain.Summary, error) {
	var (
		n       int
		revenue string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total) FILTER (WHERE status IN ($2, $3)), 0)::text
		FROM orders
		WHERE $1 = '' OR user_id = $1`,
		userID, string(domain.StatusPaid), string(domain.StatusShipped),
	).Scan(&n, &revenue)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("postgres: summarize orders: %w", err)
	}
	sum, err := parseDecimal(revenue)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summary{Orders: n, Revenue: sum}, nil
}

// ApplyStatus changes status only while the row still holds u.From.
func (r *OrderRepository) ApplyStatus(ctx context.Context, id string, u domain.StatusUpdate) (*domain.Order, error) {
	tracking, err := marshalTracking(u.Tracking)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $3, tracking = COALESCE($4, tracking), updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns,
		id, string(u.From), string(u.To), tracking, time.Now().UTC(),
	))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: update order status: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: update order status: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrConflict
}

func marshalTracking(t *domain.Tracking) ([]byte, error) {
	if t == nil {
		return nil, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode tracking: %w", err)
	}
	return b, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
