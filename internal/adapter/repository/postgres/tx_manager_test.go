package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

func TestParseIsolation(t *testing.T) {
	tests := []struct {
		in      string
		want    pgx.TxIsoLevel
		wantErr bool
	}{
		{in: "", want: pgx.ReadCommitted},
		{in: "read committed", want: pgx.ReadCommitted},
		{in: "READ_COMMITTED", want: pgx.ReadCommitted},
		{in: "Repeatable Read", want: pgx.RepeatableRead},
		{in: "serializable", want: pgx.Serializable},
		{in: "read uncommitted", wantErr: true},
		{in: "snapshot", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIsolation(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.in, got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseIsolation(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestTxManagerBeginsAtConfiguredIsolation(t *testing.T) {
	for _, iso := range []pgx.TxIsoLevel{pgx.ReadCommitted, pgx.RepeatableRead, pgx.Serializable} {
		t.Run(string(iso), func(t *testing.T) {
			mock := newMockPool(t)
			mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: iso, AccessMode: pgx.ReadWrite})
			mock.ExpectCommit()

			tx, err := newTxManagerWithPool(mock, iso).Begin(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := tx.Commit(context.Background()); err != nil {
				t.Fatalf("commit failed: %v", err)
			}
			assertExpectations(t, mock)
		})
	}
}

func TestTxManagerDefaultsToReadCommitted(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	mock.ExpectRollback()

	tx, err := newTxManagerWithPool(mock, "").Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	assertExpectations(t, mock)
}

func TestTxManagerBeginError(t *testing.T) {
	mock := newMockPool(t)
	mockErr := errors.New("too many connections")
	mock.ExpectBeginTx(ledgerTxOptions(pgx.Serializable)).WillReturnError(mockErr)

	tx, err := newTxManagerWithPool(mock, pgx.Serializable).Begin(context.Background())
	if !errors.Is(err, mockErr) {
		t.Fatalf("expected begin error, got err=%v tx=%v", err, tx)
	}
}

func TestTxManagerNumbersTransactionInsideUnitOfWork(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBeginTx(ledgerTxOptions(pgx.ReadCommitted))
	mock.ExpectQuery("INSERT INTO transaction_counters").
		WithArgs(companyID).
		WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(int64(42)))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := newTxManagerWithPool(mock, pgx.ReadCommitted).Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	n, err := newTransactionRepository(mock).NextNumber(ctx, tx, companyID)
	if err != nil || n != 42 {
		t.Fatalf("expected number 42, got %d (%v)", n, err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	assertExpectations(t, mock)
}

func TestTxManagerSerializationFailureIsRetryable(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBeginTx(ledgerTxOptions(pgx.Serializable))
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

	tx, err := newTxManagerWithPool(mock, pgx.Serializable).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = tx.Commit(context.Background())
	if !isRetryableError(err) {
		t.Fatalf("expected commit error to be retryable, got %v", err)
	}
}

type closedTx struct {
	pgx.Tx
	rollbackErr error
}

func (c closedTx) Rollback(context.Context) error { return c.rollbackErr }

func TestTxRollbackAfterCommit(t *testing.T) {
	tx := &Tx{tx: closedTx{rollbackErr: pgx.ErrTxClosed}}
	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback of a finished unit of work must be a no-op, got %v", err)
	}

	broken := errors.New("conn closed")
	tx = &Tx{tx: closedTx{rollbackErr: broken}}
	if err := tx.Rollback(context.Background()); !errors.Is(err, broken) {
		t.Fatalf("expected rollback error, got %v", err)
	}
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	if err := pool.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}
