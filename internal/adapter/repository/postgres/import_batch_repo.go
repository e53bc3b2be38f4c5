package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres/generated"
	"github.com/iho/bookkeeper/internal/usecase"
)

// ImportBatchRepository implements usecase.ImportBatchRepository.
type ImportBatchRepository struct {
	queries *generated.Queries
}

// NewImportBatchRepository creates a new ImportBatchRepository.
func NewImportBatchRepository(pool *pgxpool.Pool) *ImportBatchRepository {
	return newImportBatchRepository(pool)
}

func newImportBatchRepository(db generated.DBTX) *ImportBatchRepository {
	return &ImportBatchRepository{queries: generated.New(db)}
}

// Create records a new import batch.
func (r *ImportBatchRepository) Create(ctx context.Context, tx usecase.Transaction, b *domain.StatementImportBatch) error {
	rowErrors, err := marshalRowErrors(b.RowErrors)
	if err != nil {
		return err
	}

	return queriesFor(tx).CreateImportBatch(ctx, generated.CreateImportBatchParams{
		ID:            b.ID,
		CompanyID:     b.CompanyID,
		BankAccountID: b.BankAccountID,
		Source:        b.Source,
		Format:        b.Format,
		RowsTotal:     int32(b.RowsTotal),
		RowsImported:  int32(b.RowsImported),
		RowsDuplicate: int32(b.RowsDuplicate),
		RowErrors:     rowErrors,
		CreatedAt:     timeToPgTimestamptz(b.CreatedAt),
	})
}

// UpdateCounts stores the final counts and row errors of a batch.
func (r *ImportBatchRepository) UpdateCounts(ctx context.Context, tx usecase.Transaction, b *domain.StatementImportBatch) error {
	rowErrors, err := marshalRowErrors(b.RowErrors)
	if err != nil {
		return err
	}

	return queriesFor(tx).UpdateImportBatchCounts(ctx, generated.UpdateImportBatchCountsParams{
		ID:            b.ID,
		RowsTotal:     int32(b.RowsTotal),
		RowsImported:  int32(b.RowsImported),
		RowsDuplicate: int32(b.RowsDuplicate),
		RowErrors:     rowErrors,
	})
}

// List lists batches newest first. An empty bankAccountID lists all of them.
func (r *ImportBatchRepository) List(ctx context.Context, companyID, bankAccountID string, limit, offset int) ([]*domain.StatementImportBatch, error) {
	rows, err := r.queries.ListImportBatches(ctx, generated.ListImportBatchesParams{
		CompanyID:     companyID,
		BankAccountID: stringToPgText(bankAccountID),
		Limit:         int32(limit),
		Offset:        int32(offset),
	})
	if err != nil {
		return nil, err
	}

	batches := make([]*domain.StatementImportBatch, 0, len(rows))
	for _, row := range rows {
		b := &domain.StatementImportBatch{
			ID:            row.ID,
			CompanyID:     row.CompanyID,
			BankAccountID: row.BankAccountID,
			Source:        row.Source,
			Format:        row.Format,
			RowsTotal:     int(row.RowsTotal),
			RowsImported:  int(row.RowsImported),
			RowsDuplicate: int(row.RowsDuplicate),
			CreatedAt:     row.CreatedAt.Time,
		}
		if len(row.RowErrors) > 0 {
			if err := json.Unmarshal(row.RowErrors, &b.RowErrors); err != nil {
				return nil, err
			}
		}
		batches = append(batches, b)
	}

	return batches, nil
}

func marshalRowErrors(rowErrors []domain.RowError) ([]byte, error) {
	if rowErrors == nil {
		rowErrors = []domain.RowError{}
	}
	return json.Marshal(rowErrors)
}
