package usecase

import (
	"context"
	"errors"

	"github.com/iho/bookkeeper/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when posted debits do not equal posted credits.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: debits do not equal credits")
)

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
	auditRepo  AuditRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// WithAudit enables audit log queries.
func (uc *LedgerUseCase) WithAudit(r AuditRepository) *LedgerUseCase {
	uc.auditRepo = r
	return uc
}

// CheckConsistency verifies that the company's ledger is balanced. The report is
// returned alongside ErrInconsistentLedger so callers can show what is off.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context, companyID string) (*ConsistencyReport, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}

	report, err := uc.ledgerRepo.CheckConsistency(ctx, companyID)
	if err != nil {
		return nil, err
	}

	// 1. Total debits over all posted entries must equal total credits.
	// 2. Every transaction must balance on its own; a global balance can hide two offsetting errors.
	// 3. An entry is reconciled exactly when a matched statement line points at it.
	report.Consistent = report.TotalDebits.Equal(report.TotalCredits) &&
		len(report.UnbalancedTransactions) == 0 &&
		len(report.ReconciliationDrift) == 0
	if !report.Consistent {
		return report, ErrInconsistentLedger
	}

	return report, nil
}

// ListAuditLogs returns the company's audit trail, newest first.
func (uc *LedgerUseCase) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	if err := requireCompany(filter.CompanyID); err != nil {
		return nil, err
	}
	if uc.auditRepo == nil {
		return []*domain.AuditLog{}, nil
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		if err := domain.ValidateDateRange(*filter.StartDate, *filter.EndDate); err != nil {
			return nil, err
		}
	}
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.auditRepo.List(ctx, filter)
}
