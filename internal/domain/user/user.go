package user

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("user: not found")
	ErrForbidden       = errors.New("user: not authorized")
	ErrUnauthenticated = errors.New("user: not authenticated")
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "user"
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type User struct {
	ID              string
	Email           string
	FullName        string
	Role            string
	TaxCode         string
	ShippingAddress *Address
	BillingAddress  *Address
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.ShippingAddress != nil {
		a := *u.ShippingAddress
		clone.ShippingAddress = &a
	}
	if u.BillingAddress != nil {
		a := *u.BillingAddress
		clone.BillingAddress = &a
	}
	return &clone
}

// ProfileUpdate lists the only user fields checkout is allowed to write back.
type ProfileUpdate struct {
	ShippingAddress Address
	BillingAddress  Address
	TaxCode         string
}

// Apply copies the update onto u. An empty tax code leaves the stored one untouched.
func (p ProfileUpdate) Apply(u *User) {
	shipping, billing := p.ShippingAddress, p.BillingAddress
	u.ShippingAddress = &shipping
	u.BillingAddress = &billing
	if tc := strings.TrimSpace(p.TaxCode); tc != "" {
		u.TaxCode = tc
	}
}

type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Upsert(ctx context.Context, u *User) error
	UpdateCheckoutProfile(ctx context.Context, id string, update ProfileUpdate) error
	Count(ctx context.Context) (int, error)
}
