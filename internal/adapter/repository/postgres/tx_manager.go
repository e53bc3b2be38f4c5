package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/usecase"
)

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Every ledger unit of work
// is a read-write transaction at one isolation level. Transaction numbering
// takes a row lock on the company counter and matching uses compare-and-set
// updates, so read committed is the lowest level either may run at.
type TxManager struct {
	pool txBeginner
	opts pgx.TxOptions
}

// NewTxManager creates a TxManager whose units of work run at iso.
func NewTxManager(pool *pgxpool.Pool, iso pgx.TxIsoLevel) *TxManager {
	return newTxManagerWithPool(pool, iso)
}

func newTxManagerWithPool(pool txBeginner, iso pgx.TxIsoLevel) *TxManager {
	return &TxManager{pool: pool, opts: ledgerTxOptions(iso)}
}

func ledgerTxOptions(iso pgx.TxIsoLevel) pgx.TxOptions {
	if iso == "" {
		iso = pgx.ReadCommitted
	}
	return pgx.TxOptions{IsoLevel: iso, AccessMode: pgx.ReadWrite}
}

// ParseIsolation maps a DATABASE_ISOLATION value to a pgx isolation level.
// Read uncommitted is refused: Postgres would silently run it as read committed.
func ParseIsolation(s string) (pgx.TxIsoLevel, error) {
	switch strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")) {
	case "", "read committed":
		return pgx.ReadCommitted, nil
	case "repeatable read":
		return pgx.RepeatableRead, nil
	case "serializable":
		return pgx.Serializable, nil
	default:
		return "", fmt.Errorf("unsupported isolation level %q", s)
	}
}

// Begin starts a unit of work.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", m.opts.IsoLevel, err)
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

// Rollback rolls back the transaction. Rolling back a transaction that has
// already committed or rolled back is a no-op, so callers may defer it.
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
