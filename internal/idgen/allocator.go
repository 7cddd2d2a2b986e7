// Package idgen generates collision-free integer identifiers for named
// logical tables, in the absence of a native auto-increment facility in the
// storage layer.
package idgen

import (
	"context"
	"fmt"

	"qzone-service/internal/domain"
	"qzone-service/internal/keylock"
)

// Store exposes the single storage query the allocator needs.
type Store interface {
	// MaxID returns the current maximum id of the named table, 0 if empty.
	MaxID(ctx context.Context, table string) (int64, error)
}

// Allocator hands out fresh ids per table. Allocations for the same table are
// totally ordered; different tables proceed independently. The sequence is
// not protected against external writers that bypass the allocator.
type Allocator struct {
	store Store
	locks *keylock.Registry
}

func New(store Store) *Allocator {
	return &Allocator{store: store, locks: keylock.New()}
}

// Allocate computes max+1 for the table and runs the dependent insert with
// that id while still holding the table's critical section. The first id of
// an empty table is 1. If the insert fails the id is permanently skipped;
// gaps are expected and never rolled back.
func (a *Allocator) Allocate(ctx context.Context, table string, insert func(ctx context.Context, id int64) error) (int64, error) {
	unlock := a.locks.Lock("table:" + table)
	defer unlock()

	max, err := a.store.MaxID(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("%w: read max id of %s: %v", domain.ErrAllocation, table, err)
	}
	id := max + 1
	if err := insert(ctx, id); err != nil {
		return 0, fmt.Errorf("insert %s id %d: %w", table, id, err)
	}
	return id, nil
}
