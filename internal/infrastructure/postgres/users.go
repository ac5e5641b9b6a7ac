package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/colleshop/internal/domain/settings"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, full_name, role, tax_code, shipping_address, billing_address`

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u          user.User
		ship, bill []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.TaxCode, &ship, &bill); err != nil {
		return nil, err
	}
	var err error
	if u.ShippingAddress, err = decodeAddress(ship); err != nil {
		return nil, err
	}
	if u.BillingAddress, err = decodeAddress(bill); err != nil {
		return nil, err
	}
	return &u, nil
}

func decodeAddress(raw []byte) (*user.Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a user.Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("postgres: decode address: %w", err)
	}
	return &a, nil
}

func encodeAddress(a *user.Address) []byte {
	if a == nil {
		return nil
	}
	b, _ := json.Marshal(a)
	return b
}

func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) one(ctx context.Context, sql string, arg string) (*user.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.pool, "users")
}

func (r *UserRepository) Upsert(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, full_name, role, tax_code, shipping_address, billing_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			role = EXCLUDED.role,
			tax_code = EXCLUDED.tax_code,
			shipping_address = EXCLUDED.shipping_address,
			billing_address = EXCLUDED.billing_address`,
		u.ID, u.Email, u.FullName, u.Role, u.TaxCode, encodeAddress(u.ShippingAddress), encodeAddress(u.BillingAddress),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert user: %w", err)
	}
	return nil
}

// UpdateCheckoutProfile writes exactly the fields in user.ProfileUpdate. An empty tax code keeps
// the stored one.
func (r *UserRepository) UpdateCheckoutProfile(ctx context.Context, id string, update user.ProfileUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET shipping_address = $2, billing_address = $3, tax_code = COALESCE(NULLIF(btrim($4), ''), tax_code)
		WHERE id = $1`,
		id, encodeAddress(&update.ShippingAddress), encodeAddress(&update.BillingAddress), update.TaxCode,
	)
	if err != nil {
		return fmt.Errorf("postgres: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

type SettingsRepository struct {
	pool *pgxpool.Pool
}

func (r *SettingsRepository) Get(ctx context.Context) (settings.SiteSettings, error) {
	var (
		fee, threshold *string
		s              settings.SiteSettings
	)
	err := r.pool.QueryRow(ctx,
		`SELECT shipping_cost::text, free_shipping_threshold::text, contact_email FROM site_settings WHERE id = 1`,
	).Scan(&fee, &threshold, &s.ContactEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return settings.Defaults(), nil
	}
	if err != nil {
		return settings.SiteSettings{}, fmt.Errorf("postgres: get settings: %w", err)
	}
	if s.ShippingCost, err = parseOptionalDecimal(fee); err != nil {
		return settings.SiteSettings{}, err
	}
	if s.FreeShippingThreshold, err = parseOptionalDecimal(threshold); err != nil {
		return settings.SiteSettings{}, err
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s settings.SiteSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO site_settings (id, shipping_cost, free_shipping_threshold, contact_email)
		VALUES (1, $1::numeric, $2::numeric, $3)
		ON CONFLICT (id) DO UPDATE SET
			shipping_cost = EXCLUDED.shipping_cost,
			free_shipping_threshold = EXCLUDED.free_shipping_threshold,
			contact_email = EXCLUDED.contact_email`,
		optionalDecimalString(s.ShippingCost), optionalDecimalString(s.FreeShippingThreshold), s.ContactEmail,
	)
	if err != nil {
		return fmt.Errorf("postgres: save settings: %w", err)
	}
	return nil
}
