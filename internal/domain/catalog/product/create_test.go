package product

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/core/apperror"
)

var errTxAborted = errors.New("current transaction is aborted, commands ignored until end of transaction block")

// pgLikeTx mimics Postgres: a failed statement poisons the transaction
// until a savepoint around it is rolled back.
type pgLikeTx struct {
	aborted bool
}

func (m *pgLikeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	defer func() { m.aborted = false }()
	return fn(ctx)
}

func (m *pgLikeTx) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.aborted {
		return errTxAborted
	}
	err := fn(ctx)
	if err != nil {
		m.aborted = false
	}
	return err
}

type codeClashRepo struct {
	Repository
	tx      *pgLikeTx
	taken   map[string]bool
	inserts int
}

func (r *codeClashRepo) Create(_ context.Context, p *Product) error {
	if r.tx.aborted {
		return errTxAborted
	}
	r.inserts++
	if r.taken[p.InternalCode] {
		r.tx.aborted = true
		return apperror.NewDuplicate("product", "internal_code", p.InternalCode)
	}
	r.taken[p.InternalCode] = true
	return nil
}

func sequentialCodes() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("PROD-%08X", n)
	}
}

func TestCreate_CodeCollisionRetriesInSavepoint(t *testing.T) {
	txm := &pgLikeTx{}
	repo := &codeClashRepo{tx: txm, taken: map[string]bool{"PROD-00000001": true, "PROD-00000002": true}}
	svc := NewService(repo, txm)
	svc.newCode = sequentialCodes()

	p, err := svc.Create(context.Background(), CreateInput{Name: "Widget", Kind: KindGoods})
	require.NoError(t, err)
	assert.Equal(t, "PROD-00000003", p.InternalCode)
	assert.Equal(t, 3, repo.inserts)
}

func TestCreate_CodeCollisionGivesUp(t *testing.T) {
	txm := &pgLikeTx{}
	repo := &codeClashRepo{tx: txm, taken: map[string]bool{}}
	for i := 1; i <= maxCodeAttempts; i++ {
		repo.taken[fmt.Sprintf("PROD-%08X", i)] = true
	}
	svc := NewService(repo, txm)
	svc.newCode = sequentialCodes()

	_, err := svc.Create(context.Background(), CreateInput{Name: "Widget", Kind: KindGoods})
	assert.True(t, apperror.IsDuplicate(err), "got %v", err)
	assert.Equal(t, maxCodeAttempts, repo.inserts)
}
