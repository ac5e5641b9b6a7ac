package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Zhima-Mochi/colleshop/internal/domain/catalog"
	"github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
)

// ProductRepository backs both the catalog and the inventory ledger so that stock
// reads and conditional decrements share one lock.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*catalog.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*catalog.Product),
	}
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products), nil
}

func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = p.Clone()
	return nil
}

// Reserve decrements stock only if enough is available.
func (r *ProductRepository) Reserve(ctx context.Context, productID string, qty int) error {
	_ = ctx
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return inventory.ErrNotFound
	}
	if p.Stock < qty {
		return inventory.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (r *ProductRepository) Release(ctx context.Context, productID string, qty int) error {
	_ = ctx
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return inventory.ErrNotFound
	}
	p.Stock += qty
	return nil
}
