package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
)

type fakeLedgerRepository struct {
	report *ConsistencyReport
	err    error
}

func (f *fakeLedgerRepository) CheckConsistency(ctx context.Context, companyID string) (*ConsistencyReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.report
	r.CompanyID = companyID
	return &r, nil
}

func TestLedgerUseCase_CheckConsistency(t *testing.T) {
	tests := []struct {
		name        string
		repo        *fakeLedgerRepository
		want        bool
		expectedErr error
	}{
		{
			name: "happy path balanced ledger",
			repo: &fakeLedgerRepository{report: &ConsistencyReport{
				TotalDebits:  decimal.NewFromInt(6180),
				TotalCredits: decimal.NewFromInt(6180),
			}},
			want: true,
		},
		{
			name:        "repo error surfaces",
			repo:        &fakeLedgerRepository{err: errors.New("db down")},
			expectedErr: errors.New("db down"),
		},
		{
			name: "totals differ",
			repo: &fakeLedgerRepository{report: &ConsistencyReport{
				TotalDebits:  decimal.NewFromInt(10),
				TotalCredits: decimal.NewFromInt(9),
			}},
			expectedErr: ErrInconsistentLedger,
		},
		{
			name: "offsetting unbalanced transactions",
			repo: &fakeLedgerRepository{report: &ConsistencyReport{
				TotalDebits:            decimal.NewFromInt(100),
				TotalCredits:           decimal.NewFromInt(100),
				UnbalancedTransactions: []string{"t1", "t2"},
			}},
			expectedErr: ErrInconsistentLedger,
		},
		{
			name: "balanced but reconciliation drifted",
			repo: &fakeLedgerRepository{report: &ConsistencyReport{
				TotalDebits:         decimal.NewFromInt(100),
				TotalCredits:        decimal.NewFromInt(100),
				ReconciliationDrift: []string{"e7"},
			}},
			expectedErr: ErrInconsistentLedger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewLedgerUseCase(tt.repo)
			report, err := uc.CheckConsistency(context.Background(), "c1")

			if tt.expectedErr != nil {
				if err == nil || err.Error() != tt.expectedErr.Error() {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.want && (report == nil || !report.Consistent) {
				t.Fatalf("expected consistent report, got %+v", report)
			}
			if errors.Is(tt.expectedErr, ErrInconsistentLedger) && (report == nil || report.Consistent) {
				t.Fatalf("expected an inconsistent report alongside the error, got %+v", report)
			}
		})
	}
}

func TestLedgerUseCase_CheckConsistencyRequiresCompany(t *testing.T) {
	uc := NewLedgerUseCase(&fakeLedgerRepository{})
	if _, err := uc.CheckConsistency(context.Background(), ""); err == nil {
		t.Fatal("expected validation error for empty company")
	}
}

type fakeAuditRepository struct {
	got domain.AuditFilter
}

func (f *fakeAuditRepository) CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error {
	return nil
}

func (f *fakeAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	f.got = filter
	return []*domain.AuditLog{{ID: "a1", CompanyID: filter.CompanyID}}, nil
}

func TestLedgerUseCase_ListAuditLogs(t *testing.T) {
	repo := &fakeAuditRepository{}
	uc := NewLedgerUseCase(&fakeLedgerRepository{}).WithAudit(repo)
	ctx := context.Background()

	logs, err := uc.ListAuditLogs(ctx, domain.AuditFilter{CompanyID: "c1", Limit: 100000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 || repo.got.CompanyID != "c1" {
		t.Fatalf("unexpected result %v / filter %+v", logs, repo.got)
	}
	if repo.got.Limit >= 100000 {
		t.Fatalf("expected limit to be clamped, got %d", repo.got.Limit)
	}

	if _, err := uc.ListAuditLogs(ctx, domain.AuditFilter{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error without company, got %v", err)
	}

	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := uc.ListAuditLogs(ctx, domain.AuditFilter{CompanyID: "c1", StartDate: &from, EndDate: &to}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}
