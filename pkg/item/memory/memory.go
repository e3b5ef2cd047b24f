// Package memory implements an in-memory item repository.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"shopmart/pkg/item"
)

// Repository provides an in-memory implementation of item.Repository.
type Repository struct {
	mu    sync.RWMutex
	items map[string]item.Item
}

// New creates a new in-memory repository holding seed.
func New(seed ...item.Item) *Repository {
	r := &Repository{items: make(map[string]item.Item, len(seed))}
	for _, it := range seed {
		r.items[it.ID] = it
	}
	return r
}

// Create stores the item.
func (r *Repository) Create(ctx context.Context, it item.Item) error {
	if err := item.Validate(it); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; ok {
		return item.ErrAlreadyExists
	}
	r.items[it.ID] = it
	return nil
}

// Get retrieves an item by ID.
func (r *Repository) Get(ctx context.Context, id string) (item.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return item.Item{}, item.ErrNotFound
	}
	return it, nil
}

// List returns all items ordered by ID.
func (r *Repository) List(ctx context.Context) ([]item.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]item.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b item.Item) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Update replaces an existing item.
func (r *Repository) Update(ctx context.Context, it item.Item) error {
	if err := item.Validate(it); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; !ok {
		return item.ErrNotFound
	}
	r.items[it.ID] = it
	return nil
}

// Delete removes an item by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return item.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// DecrementStock checks every guard before touching any item, all under one
// lock, so the batch is applied whole or not at all.
func (r *Repository) DecrementStock(ctx context.Context, decrements []item.Decrement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range decrements {
		if d.Quantity < 1 {
			return fmt.Errorf("%w: quantity %d for %s", item.ErrInvalid, d.Quantity, d.ID)
		}
		it, ok := r.items[d.ID]
		if !ok || it.Stock < d.Quantity {
			return fmt.Errorf("%w: %s", item.ErrInsufficientStock, d.ID)
		}
	}

	for _, d := range decrements {
		it := r.items[d.ID]
		it.Stock -= d.Quantity
		r.items[d.ID] = it
	}
	return nil
}
