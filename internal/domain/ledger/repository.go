package ledger

import (
	"context"

	"stockbi/internal/core/id"
)

// Repository defines transaction persistence.
// Implementations join the transaction carried by ctx when there is one.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error

	// Update persists t. The stored row must still be at version t.Version-1,
	// otherwise a ConcurrentModification AppError is returned.
	Update(ctx context.Context, t *Transaction) error

	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)

	// GetForUpdate reads and locks the row until the transaction ends.
	GetForUpdate(ctx context.Context, txID id.ID) (*Transaction, error)

	// List returns matches ordered by creation (oldest first).
	List(ctx context.Context, filter ListFilter) ([]*Transaction, error)
}
