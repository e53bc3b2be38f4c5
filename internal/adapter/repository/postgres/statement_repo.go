package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres/generated"
	"github.com/iho/bookkeeper/internal/usecase"
)

// StatementRepository implements usecase.StatementRepository.
type StatementRepository struct {
	queries *generated.Queries
}

// NewStatementRepository creates a new StatementRepository.
func NewStatementRepository(pool *pgxpool.Pool) *StatementRepository {
	return newStatementRepository(pool)
}

func newStatementRepository(db generated.DBTX) *StatementRepository {
	return &StatementRepository{queries: generated.New(db)}
}

// Insert stores a statement line. It returns false when a line with the same
// dedupe key already exists.
func (r *StatementRepository) Insert(ctx context.Context, tx usecase.Transaction, e *domain.BankStatementEntry) (bool, error) {
	key := e.DedupeKey()
	amount, err := decimalFromKey(key.Amount)
	if err != nil {
		return false, err
	}

	n, err := queriesFor(tx).InsertStatementEntry(ctx, generated.InsertStatementEntryParams{
		ID:             e.ID,
		CompanyID:      e.CompanyID,
		BankAccountID:  e.BankAccountID,
		ImportBatchID:  optionalStringToPgText(e.ImportBatchID),
		ValueDate:      timeToPgDate(e.ValueDate),
		PostingDate:    optionalTimeToPgDate(e.PostingDate),
		Amount:         amount,
		Reference:      key.Reference,
		Description:    e.Description,
		RunningBalance: optionalDecimalToNumeric(e.RunningBalance),
		Status:         string(e.Status),
		CreatedAt:      timeToPgTimestamptz(e.CreatedAt),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// GetByID retrieves a statement line.
func (r *StatementRepository) GetByID(ctx context.Context, companyID, id string) (*domain.BankStatementEntry, error) {
	row, err := r.queries.GetStatementEntryByID(ctx, generated.GetStatementEntryByIDParams{CompanyID: companyID, ID: id})
	if err != nil {
		return nil, notFound(err, "bank statement entry", id)
	}

	return rowToStatementEntry(row), nil
}

// GetByIDForUpdate retrieves a statement line and locks it.
func (r *StatementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, companyID, id string) (*domain.BankStatementEntry, error) {
	row, err := queriesFor(tx).GetStatementEntryByIDForUpdate(ctx, generated.GetStatementEntryByIDParams{CompanyID: companyID, ID: id})
	if err != nil {
		return nil, notFound(err, "bank statement entry", id)
	}

	return rowToStatementEntry(row), nil
}

// ListPending returns the bank account's pending lines by value date.
func (r *StatementRepository) ListPending(ctx context.Context, companyID, bankAccountID string) ([]*domain.BankStatementEntry, error) {
	rows, err := r.queries.ListPendingStatementEntries(ctx, generated.ListPendingStatementEntriesParams{
		CompanyID:     companyID,
		BankAccountID: bankAccountID,
	})
	if err != nil {
		return nil, err
	}

	return rowsToStatementEntries(rows), nil
}

// List lists statement lines by value date.
func (r *StatementRepository) List(ctx context.Context, companyID string, filter domain.StatementFilter, limit, offset int) ([]*domain.BankStatementEntry, error) {
	rows, err := r.queries.ListStatementEntries(ctx, generated.ListStatementEntriesParams{
		CompanyID:     companyID,
		BankAccountID: stringToPgText(filter.BankAccountID),
		Status:        stringToPgText(string(filter.Status)),
		FromDate:      optionalTimeToPgDate(filter.From),
		ToDate:        optionalTimeToPgDate(filter.To),
		Limit:         int32(limit),
		Offset:        int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToStatementEntries(rows), nil
}

// MarkMatched links a pending line to a ledger entry. It reports false when
// the line is no longer pending.
func (r *StatementRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, id, entryID string, createdTransactionID *string, at time.Time) (bool, error) {
	n, err := queriesFor(tx).MarkStatementEntryMatched(ctx, generated.MarkStatementEntryMatchedParams{
		ID:                   id,
		MatchedEntryID:       pgtype.Text{String: entryID, Valid: true},
		CreatedTransactionID: optionalStringToPgText(createdTransactionID),
		MatchedAt:            timeToPgTimestamptz(at),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// Transition moves a line between statuses with a compare-and-set on from.
// Moving back to pending clears the match link.
func (r *StatementRepository) Transition(ctx context.Context, tx usecase.Transaction, id string, from, to domain.StatementStatus) (bool, error) {
	n, err := queriesFor(tx).TransitionStatementEntry(ctx, generated.TransitionStatementEntryParams{
		ID:         id,
		FromStatus: string(from),
		ToStatus:   string(to),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func decimalFromKey(amount string) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(amount); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func rowsToStatementEntries(rows []generated.BankStatementEntry) []*domain.BankStatementEntry {
	out := make([]*domain.BankStatementEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToStatementEntry(row))
	}

	return out
}

func rowToStatementEntry(row generated.BankStatementEntry) *domain.BankStatementEntry {
	return &domain.BankStatementEntry{
		ID:                   row.ID,
		CompanyID:            row.CompanyID,
		BankAccountID:        row.BankAccountID,
		ImportBatchID:        pgTextToOptionalString(row.ImportBatchID),
		ValueDate:            pgDateToTime(row.ValueDate),
		PostingDate:          pgDateToOptionalTime(row.PostingDate),
		Amount:               numericToDecimal(row.Amount),
		Reference:            row.Reference,
		Description:          row.Description,
		RunningBalance:       numericToOptionalDecimal(row.RunningBalance),
		Status:               domain.StatementStatus(row.Status),
		MatchedEntryID:       pgTextToOptionalString(row.MatchedEntryID),
		CreatedTransactionID: pgTextToOptionalString(row.CreatedTransactionID),
		MatchedAt:            pgTimestamptzToTime(row.MatchedAt),
		CreatedAt:            row.CreatedAt.Time,
	}
}
