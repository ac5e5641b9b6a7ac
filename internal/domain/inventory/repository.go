package inventory

import (
	"context"
)

// Repository is the stock ledger. Implementations must apply Reserve as a single conditional
// update (decrement only while stock >= quantity) so concurrent checkouts from any number of
// processes can never drive stock below zero.
type Repository interface {
	Reserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
}

// BatchRepository is implemented by stores that can reserve several lines inside one
// transaction. Either every line is reserved or none is.
type BatchRepository interface {
	Repository
	ReserveBatch(ctx context.Context, lines []Reservation) error
}
