package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres/generated"
	"github.com/iho/bookkeeper/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return newEntryRepository(pool)
}

func newEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// CreateBatch inserts all legs of a transaction.
func (r *EntryRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, entries []*domain.TransactionEntry) error {
	q := queriesFor(tx)
	for _, e := range entries {
		err := q.CreateEntry(ctx, generated.CreateEntryParams{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			AccountID:     e.AccountID,
			Description:   e.Description,
			Debit:         decimalToNumeric(e.Debit),
			Credit:        decimalToNumeric(e.Credit),
			IsReconciled:  e.IsReconciled,
			CreatedAt:     timeToPgTimestamptz(e.CreatedAt),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves one entry scoped to the company.
func (r *EntryRepository) GetByID(ctx context.Context, companyID, id string) (*domain.TransactionEntry, error) {
	row, err := r.queries.GetEntryByID(ctx, generated.GetEntryByIDParams{CompanyID: companyID, ID: id})
	if err != nil {
		return nil, notFound(err, "transaction entry", id)
	}

	return rowToEntry(row), nil
}

// Sums totals debits and credits per account over posted and reversed transactions.
// Nil bounds are open; both bounds are inclusive.
func (r *EntryRepository) Sums(ctx context.Context, companyID string, accountIDs []string, from, to *time.Time) (map[string]usecase.EntrySums, error) {
	rows, err := r.queries.SumEntriesByAccount(ctx, generated.SumEntriesByAccountParams{
		CompanyID:  companyID,
		AccountIds: accountIDs,
		FromDate:   optionalTimeToPgDate(from),
		ToDate:     optionalTimeToPgDate(to),
	})
	if err != nil {
		return nil, err
	}

	sums := make(map[string]usecase.EntrySums, len(rows))
	for _, row := range rows {
		sums[row.AccountID] = usecase.EntrySums{
			Debits:  numericToDecimal(row.Debits),
			Credits: numericToDecimal(row.Credits),
		}
	}

	return sums, nil
}

// ListForLedger returns the account's entries in posting order. Running
// balances are filled in by the caller.
func (r *EntryRepository) ListForLedger(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.LedgerLine, error) {
	rows, err := r.queries.ListLedgerEntries(ctx, generated.ListLedgerEntriesParams{
		CompanyID: companyID,
		AccountID: accountID,
		FromDate:  timeToPgDate(from),
		ToDate:    timeToPgDate(to),
	})
	if err != nil {
		return nil, err
	}

	lines := make([]domain.LedgerLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, domain.LedgerLine{
			Entry:             rowToEntry(row.TransactionEntry),
			TransactionNumber: row.Number,
			Date:              pgDateToTime(row.Date),
			Description:       row.TransactionDescription,
		})
	}

	return lines, nil
}

// ListUnreconciled returns posted, non-reversal entries on the account that
// have no bank match yet.
func (r *EntryRepository) ListUnreconciled(ctx context.Context, companyID, accountID string) ([]domain.BookCandidate, error) {
	rows, err := r.queries.ListUnreconciledEntries(ctx, generated.ListUnreconciledEntriesParams{
		CompanyID: companyID,
		AccountID: accountID,
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.BookCandidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.BookCandidate{
			Entry: rowToEntry(row.TransactionEntry),
			Date:  pgDateToTime(row.Date),
		})
	}

	return out, nil
}

// MarkReconciled flags an entry as matched. It reports false when another
// writer reconciled it first.
func (r *EntryRepository) MarkReconciled(ctx context.Context, tx usecase.Transaction, id string, bankDate time.Time, bankReference string, at time.Time) (bool, error) {
	n, err := queriesFor(tx).MarkEntryReconciled(ctx, generated.MarkEntryReconciledParams{
		ID:            id,
		BankDate:      timeToPgDate(bankDate),
		BankReference: bankReference,
		ReconciledAt:  timeToPgTimestamptz(at),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// ClearReconciled resets the bank match fields.
func (r *EntryRepository) ClearReconciled(ctx context.Context, tx usecase.Transaction, id string) error {
	n, err := queriesFor(tx).ClearEntryReconciled(ctx, id)

	return affected(n, err, "transaction entry", id)
}

func rowToEntry(row generated.TransactionEntry) *domain.TransactionEntry {
	return &domain.TransactionEntry{
		ID:            row.ID,
		TransactionID: row.TransactionID,
		AccountID:     row.AccountID,
		Description:   row.Description,
		Debit:         numericToDecimal(row.Debit),
		Credit:        numericToDecimal(row.Credit),
		IsReconciled:  row.IsReconciled,
		ReconciledAt:  pgTimestamptzToTime(row.ReconciledAt),
		BankDate:      pgDateToOptionalTime(row.BankDate),
		BankReference: row.BankReference,
		CreatedAt:     row.CreatedAt.Time,
	}
}
