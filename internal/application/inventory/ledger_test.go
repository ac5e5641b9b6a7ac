package inventory

import (
	"context"
	"errors"
	"testing"

	dominv "github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
)

// stockRepo is a minimal map-backed repository; failRelease simulates a storage outage on release.
type stockRepo struct {
	stock       map[string]int
	failRelease error
}

func (r *stockRepo) Reserve(_ context.Context, id string, qty int) error {
	have, ok := r.stock[id]
	if !ok {
		return dominv.ErrNotFound
	}
	if have < qty {
		return dominv.ErrInsufficientStock
	}
	r.stock[id] = have - qty
	return nil
}

func (r *stockRepo) Release(_ context.Context, id string, qty int) error {
	if r.failRelease != nil {
		return r.failRelease
	}
	if _, ok := r.stock[id]; !ok {
		return dominv.ErrNotFound
	}
	r.stock[id] += qty
	return nil
}

func TestReserveAllCompensatesOnFailure(t *testing.T) {
	t.Parallel()

	repo := &stockRepo{stock: map[string]int{"A": 5, "B": 1}}
	ledger := NewLedger(repo, observability.Nop())

	err := ledger.ReserveAll(context.Background(), []dominv.Reservation{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 3},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}
	if repo.stock["A"] != 5 || repo.stock["B"] != 1 {
		t.Fatalf("stock not restored: %v", repo.stock)
	}
}

func TestReserveAllSuccess(t *testing.T) {
	t.Parallel()

	repo := &stockRepo{stock: map[string]int{"A": 5, "B": 1}}
	ledger := NewLedger(repo, observability.Nop())

	err := ledger.ReserveAll(context.Background(), []dominv.Reservation{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ReserveAll: %v", err)
	}
	if repo.stock["A"] != 3 || repo.stock["B"] != 0 {
		t.Fatalf("stock = %v", repo.stock)
	}
}

func TestReserveAllRejectsInvalidQuantityBeforeTouchingStock(t *testing.T) {
	t.Parallel()

	repo := &stockRepo{stock: map[string]int{"A": 5}}
	ledger := NewLedger(repo, observability.Nop())

	err := ledger.ReserveAll(context.Background(), []dominv.Reservation{
		{ProductID: "A", Quantity: 1},
		{ProductID: "A", Quantity: -1},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("got %v", err)
	}
	if repo.stock["A"] != 5 {
		t.Fatalf("stock changed: %d", repo.stock["A"])
	}
}

func TestReleaseAllSkipsDeletedProducts(t *testing.T) {
	t.Parallel()

	repo := &stockRepo{stock: map[string]int{"A": 0}}
	ledger := NewLedger(repo, observability.Nop())

	err := ledger.ReleaseAll(context.Background(), []dominv.Reservation{
		{ProductID: "gone", Quantity: 1},
		{ProductID: "A", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("ReleaseAll: %v", err)
	}
	if repo.stock["A"] != 2 {
		t.Fatalf("stock = %d, want 2", repo.stock["A"])
	}
}

func TestReleaseAllReportsStorageErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	repo := &stockRepo{stock: map[string]int{"A": 0}, failRelease: boom}
	ledger := NewLedger(repo, observability.Nop())

	if err := ledger.ReleaseAll(context.Background(), []dominv.Reservation{{ProductID: "A", Quantity: 1}}); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped storage error", err)
	}
}

type batchRepo struct {
	stockRepo
	batches int
}

func (r *batchRepo) ReserveBatch(ctx context.Context, lines []dominv.Reservation) error {
	r.batches++
	for _, l := range lines {
		if r.stock[l.ProductID] < l.Quantity {
			return dominv.ErrInsufficientStock
		}
	}
	for _, l := range lines {
		r.stock[l.ProductID] -= l.Quantity
	}
	return nil
}

func TestReserveAllPrefersBatchReservation(t *testing.T) {
	t.Parallel()

	repo := &batchRepo{stockRepo: stockRepo{stock: map[string]int{"A": 1}}}
	ledger := NewLedger(repo, observability.Nop())

	err := ledger.ReserveAll(context.Background(), []dominv.Reservation{{ProductID: "A", Quantity: 2}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v", err)
	}
	if repo.batches != 1 {
		t.Fatalf("batch path used %d times, want 1", repo.batches)
	}
}
