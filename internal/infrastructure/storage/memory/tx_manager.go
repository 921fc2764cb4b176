// Package memory provides in-process stores used in development mode and
// tests. A single writer holds the database lock for the whole transaction;
// a failed transaction restores the snapshot taken when it began.
package memory

import (
	"context"
	"errors"
	"sync"

	"stockbi/internal/core/id"
	"stockbi/internal/core/tx"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/domain/ledger"
)

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// ErrReadOnly is returned when a write is attempted inside ReadOnly.
var ErrReadOnly = errors.New("memory: write inside read-only transaction")

// DB is the operational data set: products, categories and ledger rows.
type DB struct {
	mu sync.RWMutex

	products     map[id.ID]product.Product
	codes        map[string]id.ID
	categories   map[id.ID]product.Category
	transactions map[id.ID]ledger.Transaction
}

// NewDB creates an empty database.
func NewDB() *DB {
	return &DB{
		products:     make(map[id.ID]product.Product),
		codes:        make(map[string]id.ID),
		categories:   make(map[id.ID]product.Category),
		transactions: make(map[id.ID]ledger.Transaction),
	}
}

type snapshot struct {
	products     map[id.ID]product.Product
	codes        map[string]id.ID
	categories   map[id.ID]product.Category
	transactions map[id.ID]ledger.Transaction
}

func (db *DB) snapshot() snapshot {
	return snapshot{
		products:     cloneMap(db.products),
		codes:        cloneMap(db.codes),
		categories:   cloneMap(db.categories),
		transactions: cloneMap(db.transactions),
	}
}

func (db *DB) restore(s snapshot) {
	db.products = s.products
	db.codes = s.codes
	db.categories = s.categories
	db.transactions = s.transactions
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type txMode int

const (
	modeWrite txMode = iota + 1
	modeRead
)

type txKey struct{}

func modeOf(ctx context.Context) txMode {
	if m, ok := ctx.Value(txKey{}).(txMode); ok {
		return m
	}
	return 0
}

// read runs fn under the read lock unless ctx already holds a transaction.
func (db *DB) read(ctx context.Context, fn func()) {
	if modeOf(ctx) != 0 {
		fn()
		return
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn()
}

// write runs fn under the write lock unless ctx already holds a write transaction.
func (db *DB) write(ctx context.Context, fn func() error) error {
	switch modeOf(ctx) {
	case modeWrite:
		return fn()
	case modeRead:
		return ErrReadOnly
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

// TxManager implements tx.ReadOnlyManager over a DB.
type TxManager struct {
	db *DB
}

// NewTxManager creates a transaction manager.
func NewTxManager(db *DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTransaction executes fn holding the write lock. Nested calls reuse
// the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	switch modeOf(ctx) {
	case modeWrite:
		return fn(ctx)
	case modeRead:
		return ErrReadOnly
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	snap := m.db.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, modeWrite)); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

// Savepoint runs fn inside the current write transaction and restores the
// state from before fn if it fails.
func (m *TxManager) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	switch modeOf(ctx) {
	case modeRead:
		return ErrReadOnly
	case 0:
		return m.RunInTransaction(ctx, fn)
	}

	snap := m.db.snapshot()
	if err := fn(ctx); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

// ReadOnly executes fn against a stable view; concurrent readers share it.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if modeOf(ctx) != 0 {
		return fn(ctx)
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	return fn(context.WithValue(ctx, txKey{}, modeRead))
}
