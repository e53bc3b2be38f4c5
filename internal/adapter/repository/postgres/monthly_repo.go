package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/postgres/generated"
	"github.com/iho/bookkeeper/internal/usecase"
)

// MonthlyReconciliationRepository implements usecase.MonthlyReconciliationRepository.
type MonthlyReconciliationRepository struct {
	queries *generated.Queries
}

// NewMonthlyReconciliationRepository creates a new MonthlyReconciliationRepository.
func NewMonthlyReconciliationRepository(pool *pgxpool.Pool) *MonthlyReconciliationRepository {
	return newMonthlyReconciliationRepository(pool)
}

func newMonthlyReconciliationRepository(db generated.DBTX) *MonthlyReconciliationRepository {
	return &MonthlyReconciliationRepository{queries: generated.New(db)}
}

// Insert creates the period row unless it already exists.
func (r *MonthlyReconciliationRepository) Insert(ctx context.Context, tx usecase.Transaction, rec *domain.MonthlyBankReconciliation) error {
	return queriesFor(tx).InsertMonthlyReconciliation(ctx, generated.InsertMonthlyReconciliationParams{
		ID:                 rec.ID,
		CompanyID:          rec.CompanyID,
		BankAccountID:      rec.BankAccountID,
		Year:               int32(rec.Year),
		Month:              int32(rec.Month),
		BankOpening:        decimalToNumeric(rec.BankOpening),
		BankClosing:        decimalToNumeric(rec.BankClosing),
		BookOpening:        decimalToNumeric(rec.BookOpening),
		BookClosing:        decimalToNumeric(rec.BookClosing),
		BookDebits:         decimalToNumeric(rec.BookDebits),
		BookCredits:        decimalToNumeric(rec.BookCredits),
		OutstandingCheques: decimalToNumeric(rec.Adjustments.OutstandingCheques),
		DepositsInTransit:  decimalToNumeric(rec.Adjustments.DepositsInTransit),
		UnbookedCharges:    decimalToNumeric(rec.Adjustments.UnbookedCharges),
		UnbookedInterest:   decimalToNumeric(rec.Adjustments.UnbookedInterest),
		OtherAdjustments:   decimalToNumeric(rec.Adjustments.Other),
		Notes:              rec.Notes,
		Status:             string(rec.Status),
		ClosedBy:           optionalStringToPgText(rec.ClosedBy),
		ClosedAt:           optionalTimeToPgTimestamptz(rec.ClosedAt),
		CreatedAt:          timeToPgTimestamptz(rec.CreatedAt),
		UpdatedAt:          timeToPgTimestamptz(rec.UpdatedAt),
	})
}

// GetForUpdate locks and returns the period row.
func (r *MonthlyReconciliationRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, companyID, bankAccountID string, year, month int) (*domain.MonthlyBankReconciliation, error) {
	row, err := queriesFor(tx).GetMonthlyReconciliationForUpdate(ctx, generated.GetMonthlyReconciliationForUpdateParams{
		CompanyID:     companyID,
		BankAccountID: bankAccountID,
		Year:          int32(year),
		Month:         int32(month),
	})
	if err != nil {
		return nil, notFound(err, "monthly reconciliation", bankAccountID)
	}

	return rowToMonthly(row), nil
}

// Save writes every mutable field of the period row.
func (r *MonthlyReconciliationRepository) Save(ctx context.Context, tx usecase.Transaction, rec *domain.MonthlyBankReconciliation) error {
	n, err := queriesFor(tx).SaveMonthlyReconciliation(ctx, generated.SaveMonthlyReconciliationParams{
		ID:                 rec.ID,
		BankOpening:        decimalToNumeric(rec.BankOpening),
		BankClosing:        decimalToNumeric(rec.BankClosing),
		BookOpening:        decimalToNumeric(rec.BookOpening),
		BookClosing:        decimalToNumeric(rec.BookClosing),
		BookDebits:         decimalToNumeric(rec.BookDebits),
		BookCredits:        decimalToNumeric(rec.BookCredits),
		OutstandingCheques: decimalToNumeric(rec.Adjustments.OutstandingCheques),
		DepositsInTransit:  decimalToNumeric(rec.Adjustments.DepositsInTransit),
		UnbookedCharges:    decimalToNumeric(rec.Adjustments.UnbookedCharges),
		UnbookedInterest:   decimalToNumeric(rec.Adjustments.UnbookedInterest),
		OtherAdjustments:   decimalToNumeric(rec.Adjustments.Other),
		Notes:              rec.Notes,
		Status:             string(rec.Status),
		ClosedBy:           optionalStringToPgText(rec.ClosedBy),
		ClosedAt:           optionalTimeToPgTimestamptz(rec.ClosedAt),
		UpdatedAt:          timeToPgTimestamptz(rec.UpdatedAt),
	})

	return affected(n, err, "monthly reconciliation", rec.ID)
}

func rowToMonthly(row generated.MonthlyBankReconciliation) *domain.MonthlyBankReconciliation {
	return &domain.MonthlyBankReconciliation{
		ID:            row.ID,
		CompanyID:     row.CompanyID,
		BankAccountID: row.BankAccountID,
		Year:          int(row.Year),
		Month:         int(row.Month),
		BankOpening:   numericToDecimal(row.BankOpening),
		BankClosing:   numericToDecimal(row.BankClosing),
		BookOpening:   numericToDecimal(row.BookOpening),
		BookClosing:   numericToDecimal(row.BookClosing),
		BookDebits:    numericToDecimal(row.BookDebits),
		BookCredits:   numericToDecimal(row.BookCredits),
		Adjustments: domain.Adjustments{
			OutstandingCheques: numericToDecimal(row.OutstandingCheques),
			DepositsInTransit:  numericToDecimal(row.DepositsInTransit),
			UnbookedCharges:    numericToDecimal(row.UnbookedCharges),
			UnbookedInterest:   numericToDecimal(row.UnbookedInterest),
			Other:              numericToDecimal(row.OtherAdjustments),
		},
		Notes:     row.Notes,
		Status:    domain.MonthlyStatus(row.Status),
		ClosedBy:  pgTextToOptionalString(row.ClosedBy),
		ClosedAt:  pgTimestamptzToTime(row.ClosedAt),
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}
