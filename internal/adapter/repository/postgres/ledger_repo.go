package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/infrastructure/postgres/generated"
	"github.com/iho/bookkeeper/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepository(pool)
}

func newLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// CheckConsistency gathers the raw figures of a company's ledger check: the
// debit and credit totals over counted postings, the transactions that do not
// balance on their own, and the entries whose reconciled flag has drifted from
// the statement lines. The verdict is left to the caller.
func (r *LedgerRepository) CheckConsistency(ctx context.Context, companyID string) (*usecase.ConsistencyReport, error) {
	totals, err := r.queries.CheckLedgerTotals(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("ledger totals: %w", err)
	}

	unbalanced, err := r.queries.ListUnbalancedTransactions(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("unbalanced transactions: %w", err)
	}

	drift, err := r.queries.ListReconciliationDrift(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("reconciliation drift: %w", err)
	}

	return &usecase.ConsistencyReport{
		CompanyID:              companyID,
		TotalDebits:            numericToDecimal(totals.TotalDebits),
		TotalCredits:           numericToDecimal(totals.TotalCredits),
		UnbalancedTransactions: unbalanced,
		ReconciliationDrift:    drift,
	}, nil
}
