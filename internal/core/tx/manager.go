// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the Postgres and in-memory
// stores provide the implementations.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back; otherwise it is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Savepoint executes fn as a nested unit of the transaction in ctx: an
	// error undoes only fn's writes and the outer transaction stays usable.
	// Outside a transaction it behaves like RunInTransaction.
	Savepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
// Aggregation reads use it to get a consistent snapshot without taking locks.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
