package order

import (
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	"github.com/Zhima-Mochi/colleshop/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: status changed concurrently")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrInvalidStatus     = errors.New("order: unknown status")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrEmptyOrder        = errors.New("order: at least one item is required")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusPaid, StatusShipped, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// LineItem is a snapshot of a product taken at checkout. Later catalog edits never touch it.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	TaxCode string `json:"tax_code"`
}

type Tracking struct {
	Number  string `json:"tracking_number"`
	Courier string `json:"courier_name"`
}

type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	Subtotal        decimal.Decimal
	ShippingFee     decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	ShippingAddress Address
	BillingAddress  Address
	Customer        Customer
	PaymentIntentID string
	MockPayment     bool
	Tracking        *Tracking
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Draft carries everything needed to create an order except the derived amounts.
type Draft struct {
	UserID          string
	Items           []LineItem
	ShippingAddress Address
	BillingAddress  Address
	Customer        Customer
	PaymentIntentID string
	MockPayment     bool
}

// New prices the draft once and returns a pending order. Amounts are never recomputed afterwards.
func New(id string, d Draft, policy pricing.ShippingPolicy) (*Order, error) {
	if len(d.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	lines := make([]pricing.Line, 0, len(d.Items))
	for _, it := range d.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		lines = append(lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	b := pricing.Calculate(lines, policy)

	items := make([]LineItem, len(d.Items))
	copy(items, d.Items)

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		UserID:          d.UserID,
		Items:           items,
		Subtotal:        b.Subtotal,
		ShippingFee:     b.Shipping,
		Total:           b.Total,
		Status:          StatusPending,
		ShippingAddress: d.ShippingAddress,
		BillingAddress:  d.BillingAddress,
		Customer:        d.Customer,
		PaymentIntentID: d.PaymentIntentID,
		MockPayment:     d.MockPayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = make([]LineItem, len(o.Items))
	copy(clone.Items, o.Items)
	if o.Tracking != nil {
		t := *o.Tracking
		clone.Tracking = &t
	}
	return &clone
}

// Reservations lists the stock held by the order, one entry per line item.
func (o *Order) Reservations() []inventory.Reservation {
	out := make([]inventory.Reservation, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, inventory.Reservation{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// StatusUpdate is the only mutation allowed on a persisted order.
// Stores apply it only while the order is still in From.
type StatusUpdate struct {
	From     Status
	To       Status
	Tracking *Tracking
}

// Apply mutates o in memory the same way a store applies u.
func (u StatusUpdate) Apply(o *Order, at time.Time) {
	o.Status = u.To
	if u.Tracking != nil {
		t := *u.Tracking
		o.Tracking = &t
	}
	o.UpdatedAt = at
}
