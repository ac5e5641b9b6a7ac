package inventory

import "errors"

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Reservation ties a stock decrement to a product. Quantity is always positive.
type Reservation struct {
	ProductID string
	Quantity  int
}

func (r Reservation) Validate() error {
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
