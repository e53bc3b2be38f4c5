package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

func TestAccountUseCase_InitializeChart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.accounts.InitializeChart(ctx, companyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Created) != len(domain.DefaultChart) || first.Skipped != 0 {
		t.Fatalf("expected %d created, got %d created / %d skipped", len(domain.DefaultChart), len(first.Created), first.Skipped)
	}

	second, err := f.accounts.InitializeChart(ctx, companyID)
	if err != nil {
		t.Fatalf("unexpected error on reseed: %v", err)
	}
	if len(second.Created) != 0 || second.Skipped != len(domain.DefaultChart) {
		t.Fatalf("expected reseed to skip everything, got %d created / %d skipped", len(second.Created), second.Skipped)
	}

	index, _ := f.repos.Accounts.CodeIndex(ctx, companyID)
	cgst := index[domain.CodeCGSTPayable]
	if cgst.ParentID == nil || *cgst.ParentID != index[domain.CodeTaxPayable].ID {
		t.Errorf("expected CGST payable to hang under tax payable, got parent %v", cgst.ParentID)
	}

	events := f.repos.Store.EventTypes()
	if len(events) != 1 || events[0] != domain.EventTypeChartInitialized {
		t.Errorf("expected a single chart.initialized event, got %v", events)
	}
}

func TestAccountUseCase_InitializeChartFillsGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{
		CompanyID: companyID,
		Code:      domain.CodeCash,
		Name:      "Petty Cash",
		Type:      domain.AccountTypeAsset,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := f.accounts.InitializeChart(ctx, companyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != 1 || len(result.Created) != len(domain.DefaultChart)-1 {
		t.Fatalf("expected existing cash account to be kept, got %d created / %d skipped", len(result.Created), result.Skipped)
	}

	index, _ := f.repos.Accounts.CodeIndex(ctx, companyID)
	if index[domain.CodeCash].Name != "Petty Cash" {
		t.Errorf("existing account was overwritten: %q", index[domain.CodeCash].Name)
	}
}

func TestAccountUseCase_CreateAccount(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.CreateAccountInput
		errorType error
	}{
		{
			name: "valid expense account",
			input: usecase.CreateAccountInput{
				CompanyID: companyID, Code: "6200", Name: "Rent", Type: domain.AccountTypeExpense,
			},
		},
		{
			name: "duplicate code",
			input: usecase.CreateAccountInput{
				CompanyID: companyID, Code: domain.CodeBank, Name: "Second bank", Type: domain.AccountTypeAsset,
			},
			errorType: domain.ErrDuplicateAccountCode,
		},
		{
			name: "unknown type",
			input: usecase.CreateAccountInput{
				CompanyID: companyID, Code: "9999", Name: "Mystery", Type: "suspense",
			},
			errorType: domain.ErrValidation,
		},
		{
			name: "missing parent",
			input: usecase.CreateAccountInput{
				CompanyID: companyID, Code: "6210", Name: "Office rent", Type: domain.AccountTypeExpense, ParentID: ptr("nope"),
			},
			errorType: domain.ErrNotFound,
		},
		{
			name: "bank link on a liability",
			input: usecase.CreateAccountInput{
				CompanyID: companyID, Code: "2500", Name: "Overdraft", Type: domain.AccountTypeLiability, BankAccountID: ptr("od-1"),
			},
			errorType: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := seeded(t)
			account, err := f.accounts.CreateAccount(context.Background(), tt.input)

			if tt.errorType != nil {
				if !errors.Is(err, tt.errorType) {
					t.Fatalf("expected %v, got %v", tt.errorType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !account.IsActive || account.IsSystem {
				t.Errorf("expected an active user account, got %+v", account)
			}
		})
	}
}

func TestAccountUseCase_DeactivateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("system account", func(t *testing.T) {
		f := seeded(t)
		_, err := f.accounts.DeactivateAccount(ctx, companyID, f.id(domain.CodeBank))
		if !errors.Is(err, domain.ErrSystemAccount) || !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected system account conflict, got %v", err)
		}
	})

	t.Run("account with balance", func(t *testing.T) {
		f := seeded(t)
		rent, err := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{CompanyID: companyID, Code: "6200", Name: "Rent", Type: domain.AccountTypeExpense})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.chart["6200"] = rent
		f.book(t, "2024-03-01", "6200", domain.CodeBank, "500.00")

		_, err = f.accounts.DeactivateAccount(ctx, companyID, rent.ID)
		if !errors.Is(err, domain.ErrAccountHasBalance) {
			t.Fatalf("expected ErrAccountHasBalance, got %v", err)
		}
	})

	t.Run("empty user account", func(t *testing.T) {
		f := seeded(t)
		rent, _ := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{CompanyID: companyID, Code: "6200", Name: "Rent", Type: domain.AccountTypeExpense})

		got, err := f.accounts.DeactivateAccount(ctx, companyID, rent.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.IsActive {
			t.Fatal("expected account to be inactive")
		}

		listed, _ := f.accounts.ListAccounts(ctx, usecase.ListAccountsInput{CompanyID: companyID, Filter: domain.AccountFilter{Type: domain.AccountTypeExpense}})
		for _, a := range listed {
			if a.ID == rent.ID {
				t.Fatal("inactive account listed without IncludeInactive")
			}
		}
	})
}

func TestAccountUseCase_LinkBankAccount(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	if _, err := f.accounts.LinkBankAccount(ctx, companyID, f.id(domain.CodeSalesRevenue), "acct-9"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error linking a revenue account, got %v", err)
	}

	linked, err := f.repos.Accounts.GetByBankAccountID(ctx, companyID, bankAccountID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if linked.Code != domain.CodeBank {
		t.Errorf("expected bank account linked to %s, got %s", domain.CodeBank, linked.Code)
	}
}

func TestAccountUseCase_TenantIsolation(t *testing.T) {
	f := seeded(t)

	_, err := f.accounts.GetAccount(context.Background(), "company-2", f.id(domain.CodeBank))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected another company's account to be not found, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
