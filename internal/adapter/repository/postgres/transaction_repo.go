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

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepository(pool)
}

func newTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

const openingBalanceConstraint = "transactions_opening_balance_key"

// NextNumber increments the company's counter row. The row lock is held until
// the surrounding transaction ends, so numbers are gap-free and ordered.
func (r *TransactionRepository) NextNumber(ctx context.Context, tx usecase.Transaction, companyID string) (int64, error) {
	return queriesFor(tx).NextTransactionNumber(ctx, companyID)
}

// Create inserts the transaction header. Entries are written by EntryRepository.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	err := queriesFor(tx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:            t.ID,
		CompanyID:     t.CompanyID,
		Number:        t.Number,
		Date:          timeToPgDate(t.Date),
		Description:   t.Description,
		ReferenceType: string(t.Reference.Type),
		ReferenceID:   optionalStringToPgText(t.Reference.ID),
		Status:        string(t.Status),
		IsReconciled:  t.IsReconciled,
		ReversesID:    optionalStringToPgText(t.ReversesID),
		ReversedByID:  optionalStringToPgText(t.ReversedByID),
		CreatedAt:     timeToPgTimestamptz(t.CreatedAt),
		PostedAt:      optionalTimeToPgTimestamptz(t.PostedAt),
	})
	if isUniqueViolation(err, openingBalanceConstraint) {
		return domain.ErrOpeningBalanceExists
	}
	return err
}

// GetByID retrieves a transaction with its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, companyID, id string) (*domain.Transaction, error) {
	return r.get(ctx, r.queries, companyID, id, false)
}

// GetByIDForUpdate retrieves a transaction with its entries, locking the header row.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, companyID, id string) (*domain.Transaction, error) {
	return r.get(ctx, queriesFor(tx), companyID, id, true)
}

func (r *TransactionRepository) get(ctx context.Context, q *generated.Queries, companyID, id string, lock bool) (*domain.Transaction, error) {
	arg := generated.GetTransactionByIDParams{CompanyID: companyID, ID: id}

	var (
		row generated.Transaction
		err error
	)
	if lock {
		row, err = q.GetTransactionByIDForUpdate(ctx, arg)
	} else {
		row, err = q.GetTransactionByID(ctx, arg)
	}
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}

	txs := []*domain.Transaction{rowToTransaction(row)}
	if err := attachEntries(ctx, q, txs); err != nil {
		return nil, err
	}

	return txs[0], nil
}

// MarkPosted moves a draft to posted.
func (r *TransactionRepository) MarkPosted(ctx context.Context, tx usecase.Transaction, id string, postedAt time.Time) error {
	n, err := queriesFor(tx).MarkTransactionPosted(ctx, generated.MarkTransactionPostedParams{
		ID:       id,
		PostedAt: timeToPgTimestamptz(postedAt),
	})

	return affected(n, err, "transaction", id)
}

// MarkReversed flags the original of a reversal pair.
func (r *TransactionRepository) MarkReversed(ctx context.Context, tx usecase.Transaction, id, reversedByID string) error {
	n, err := queriesFor(tx).MarkTransactionReversed(ctx, generated.MarkTransactionReversedParams{
		ID:           id,
		ReversedByID: pgtype.Text{String: reversedByID, Valid: true},
	})

	return affected(n, err, "transaction", id)
}

// RefreshReconciled recomputes the reconciled flag from the transaction's bank legs.
func (r *TransactionRepository) RefreshReconciled(ctx context.Context, tx usecase.Transaction, id string) error {
	n, err := queriesFor(tx).RefreshTransactionReconciled(ctx, id)

	return affected(n, err, "transaction", id)
}

// List lists transactions, newest number first.
func (r *TransactionRepository) List(ctx context.Context, companyID string, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, generated.ListTransactionsParams{
		CompanyID:     companyID,
		Status:        stringToPgText(string(filter.Status)),
		ReferenceType: stringToPgText(string(filter.ReferenceType)),
		FromDate:      optionalTimeToPgDate(filter.From),
		ToDate:        optionalTimeToPgDate(filter.To),
		Limit:         int32(limit),
		Offset:        int32(offset),
	})
	if err != nil {
		return nil, err
	}

	txs := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, rowToTransaction(row))
	}
	if err := attachEntries(ctx, r.queries, txs); err != nil {
		return nil, err
	}

	return txs, nil
}

func attachEntries(ctx context.Context, q *generated.Queries, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Transaction, len(txs))
	ids := make([]string, 0, len(txs))
	for _, t := range txs {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	rows, err := q.ListEntriesByTransactions(ctx, ids)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if t, ok := byID[row.TransactionID]; ok {
			t.Entries = append(t.Entries, rowToEntry(row))
		}
	}

	return nil
}

func affected(n int64, err error, resource, id string) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError(resource, id)
	}

	return nil
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:          row.ID,
		CompanyID:   row.CompanyID,
		Number:      row.Number,
		Date:        pgDateToTime(row.Date),
		Description: row.Description,
		Reference: domain.Reference{
			Type: domain.ReferenceType(row.ReferenceType),
			ID:   pgTextToOptionalString(row.ReferenceID),
		},
		Status:       domain.TransactionStatus(row.Status),
		IsReconciled: row.IsReconciled,
		ReversesID:   pgTextToOptionalString(row.ReversesID),
		ReversedByID: pgTextToOptionalString(row.ReversedByID),
		CreatedAt:    row.CreatedAt.Time,
		PostedAt:     pgTimestamptzToTime(row.PostedAt),
	}
}
