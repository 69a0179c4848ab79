package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goaccount/internal/infrastructure/postgres/generated"
	"github.com/iho/goaccount/internal/usecase"
)

// accountTxOptions is used for every account write. Saves are conditional on
// the version column, so read committed is enough to detect lost races.
var accountTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

type txBeginner interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager on a pgx pool.
type TxManager struct {
	pool txBeginner
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManager(pool)
}

func newTxManager(pool txBeginner) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts an account write transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, accountTxOptions)
	if err != nil {
		return nil, fmt.Errorf("begin account transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. Rolling back a committed transaction
// is a no-op, so callers can defer it unconditionally.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

// queriesIn binds generated queries to tx, or returns base outside one.
func queriesIn(base *generated.Queries, tx usecase.Transaction) *generated.Queries {
	if tx == nil {
		return base
	}
	return generated.New(tx.(*Tx).PgxTx())
}
