package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

var march = usecase.Period{CompanyID: companyID, BankAccountID: bankAccountID, Year: 2024, Month: 3}

func TestMonthlyCloseUseCase_BalancedMonth(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	f.book(t, "2024-02-10", domain.CodeBank, domain.CodeOwnersEquity, "5000.00")
	f.book(t, "2024-03-04", domain.CodeBank, domain.CodeAccountsReceivable, "1180.00")
	f.book(t, "2024-04-02", domain.CodeBankCharges, domain.CodeBank, "10.00")

	rec, err := f.monthly.UpdateMonthlyReconciliation(ctx, usecase.UpdateMonthlyInput{
		Period:      march,
		BankOpening: ptr(d("5000.00")),
		BankClosing: ptr(d("6180.00")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rec.BookOpening.Equal(d("5000.00")) || !rec.BookDebits.Equal(d("1180.00")) || !rec.BookCredits.IsZero() {
		t.Fatalf("unexpected book figures: opening %s debits %s credits %s", rec.BookOpening, rec.BookDebits, rec.BookCredits)
	}
	if !rec.BookClosing.Equal(d("6180.00")) {
		t.Errorf("expected book closing 6180.00, got %s", rec.BookClosing)
	}
	if !rec.ExpectedBankClosing().Equal(d("6180.00")) || !rec.Difference().IsZero() {
		t.Fatalf("expected no difference, got expected %s difference %s", rec.ExpectedBankClosing(), rec.Difference())
	}
}

func TestMonthlyCloseUseCase_DifferenceExplainedByAdjustments(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	f.book(t, "2024-03-04", domain.CodeBank, domain.CodeAccountsReceivable, "1180.00")

	rec, err := f.monthly.UpdateMonthlyReconciliation(ctx, usecase.UpdateMonthlyInput{
		Period:      march,
		BankClosing: ptr(d("1155.00")),
		Adjustments: &domain.Adjustments{UnbookedCharges: d("-25.00")},
		Notes:       ptr("  bank charge not yet booked "),
		Status:      ptr(domain.MonthlyStatusReconciled),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Difference().Equal(d("-25.00")) || !rec.UnexplainedDifference().IsZero() {
		t.Fatalf("expected -25.00 fully explained, got difference %s unexplained %s", rec.Difference(), rec.UnexplainedDifference())
	}
	if rec.Notes != "bank charge not yet booked" || rec.Status != domain.MonthlyStatusReconciled {
		t.Errorf("unexpected notes/status: %q %s", rec.Notes, rec.Status)
	}
}

func TestMonthlyCloseUseCase_OpeningCarriesOver(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	feb := march
	feb.Month = 2
	if _, err := f.monthly.UpdateMonthlyReconciliation(ctx, usecase.UpdateMonthlyInput{Period: feb, BankClosing: ptr(d("4321.00"))}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := f.monthly.GetMonthlyReconciliation(ctx, march)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.BankOpening.Equal(d("4321.00")) {
		t.Fatalf("expected March to open at February's closing, got %s", rec.BankOpening)
	}

	jan := usecase.Period{CompanyID: companyID, BankAccountID: bankAccountID, Year: 2025, Month: 1}
	dec := usecase.Period{CompanyID: companyID, BankAccountID: bankAccountID, Year: 2024, Month: 12}
	if _, err := f.monthly.UpdateMonthlyReconciliation(ctx, usecase.UpdateMonthlyInput{Period: dec, BankClosing: ptr(d("10.00"))}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, err = f.monthly.GetMonthlyReconciliation(ctx, jan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.BankOpening.Equal(d("10.00")) {
		t.Fatalf("expected carry-over across the year boundary, got %s", rec.BankOpening)
	}
}

func TestMonthlyCloseUseCase_Close(t *testing.T) {
	f := seeded(t)
	ctx := domain.ContextWithPrincipal(context.Background(), &domain.Principal{UserID: "accountant-7", CompanyID: companyID, Role: domain.RoleAdmin})
	f.book(t, "2024-03-04", domain.CodeBank, domain.CodeAccountsReceivable, "1180.00")

	if _, err := f.monthly.UpdateMonthlyReconciliation(ctx, usecase.UpdateMonthlyInput{Period: march, BankClosing: ptr(d("1180.00"))}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closed, err := f.monthly.CloseMonthlyReconciliation(ctx, march, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.Status != domain.MonthlyStatusClosed || closed.ClosedBy == nil || *closed.ClosedBy != "accountant-7" || closed.ClosedAt == nil {
		t.Fatalf("unexpected closed period: %+v", closed)
	}

	// Late postings do not change a closed period's snapshot.
	f.book(t, "2024-03-30", domain.CodeBank, domain.CodeSalesRevenue, "50.00")
	rec, err := f.monthly.GetMonthlyReconciliation(ctx, march)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.BookDebits.Equal(d("1180.00")) {
		t.Fatalf("expected frozen book debits 1180.00, got %s", rec.BookDebits)
	}

	_, err = f.monthly.UpdateMonthlyReconciliation(ctx, usecase.UpdateMonthlyInput{Period: march, Notes: ptr("late note")})
	if !errors.Is(err, domain.ErrReconciliationClosed) {
		t.Fatalf("expected closed period to reject updates, got %v", err)
	}
	if _, err := f.monthly.CloseMonthlyReconciliation(ctx, march, "someone"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict closing twice, got %v", err)
	}

	events := f.repos.Store.EventTypes()
	if events[len(events)-2] != domain.EventTypeMonthClosed {
		t.Errorf("expected monthly_reconciliation.closed before the late posting, got %v", events)
	}
}

func TestMonthlyCloseUseCase_Validation(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.UpdateMonthlyInput
		errorType error
	}{
		{
			name:      "month out of range",
			input:     usecase.UpdateMonthlyInput{Period: usecase.Period{CompanyID: companyID, BankAccountID: bankAccountID, Year: 2024, Month: 13}},
			errorType: domain.ErrInvalidPeriod,
		},
		{
			name:      "fractional cents",
			input:     usecase.UpdateMonthlyInput{Period: march, BankClosing: ptr(d("1.001"))},
			errorType: domain.ErrValidation,
		},
		{
			name:      "close via update",
			input:     usecase.UpdateMonthlyInput{Period: march, Status: ptr(domain.MonthlyStatusClosed)},
			errorType: domain.ErrValidation,
		},
		{
			name:      "unlinked bank account",
			input:     usecase.UpdateMonthlyInput{Period: usecase.Period{CompanyID: companyID, BankAccountID: "icici-404", Year: 2024, Month: 3}},
			errorType: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := seeded(t)
			_, err := f.monthly.UpdateMonthlyReconciliation(context.Background(), tt.input)
			if !errors.Is(err, tt.errorType) {
				t.Fatalf("expected %v, got %v", tt.errorType, err)
			}
		})
	}
}

func TestMonthlyCloseUseCase_SaveFailure(t *testing.T) {
	f := seeded(t)
	f.repos.Monthly.SaveFunc = func(context.Context, usecase.Transaction, *domain.MonthlyBankReconciliation) error {
		return errors.New("connection reset")
	}

	if _, err := f.monthly.CloseMonthlyReconciliation(context.Background(), march, "me"); err == nil {
		t.Fatal("expected error")
	}
	for _, e := range f.repos.Store.EventTypes() {
		if e == domain.EventTypeMonthClosed {
			t.Fatal("failed close must not emit an event")
		}
	}
}
