package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
	"github.com/iho/bookkeeper/internal/usecase/mocks"
)

func TestBalanceUseCase_GetBalanceAsOf(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	f.book(t, "2024-03-01", domain.CodeBank, domain.CodeOwnersEquity, "5000.00")
	f.book(t, "2024-03-20", domain.CodeBankCharges, domain.CodeBank, "25.50")

	tests := []struct {
		name string
		asOf *time.Time
		want string
	}{
		{name: "before any posting", asOf: ptr(day("2024-02-29")), want: "0"},
		{name: "same day counts", asOf: ptr(day("2024-03-01")), want: "5000.00"},
		{name: "time of day ignored", asOf: ptr(day("2024-03-20").Add(3 * time.Hour)), want: "4974.50"},
		{name: "no cutoff", asOf: nil, want: "4974.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := f.balances.GetBalance(ctx, companyID, f.id(domain.CodeBank), tt.asOf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !b.Balance.Equal(d(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, b.Balance)
			}
		})
	}
}

func TestBalanceUseCase_CreditNormalAccounts(t *testing.T) {
	f := seeded(t)
	f.book(t, "2024-03-01", domain.CodeBank, domain.CodeSalesRevenue, "700.00")
	f.book(t, "2024-03-02", domain.CodeSalesRevenue, domain.CodeBank, "200.00")

	b, err := f.balances.GetBalance(context.Background(), companyID, f.id(domain.CodeSalesRevenue), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Balance.Equal(d("500.00")) || !b.Debits.Equal(d("200.00")) || !b.Credits.Equal(d("700.00")) {
		t.Fatalf("unexpected revenue balance: %+v", b)
	}
}

func TestBalanceUseCase_IgnoresDrafts(t *testing.T) {
	f := seeded(t)
	_, err := f.journal.CreateJournalEntry(context.Background(), usecase.CreateJournalEntryInput{
		CompanyID: companyID,
		Date:      day("2024-03-01"),
		Entries: []usecase.EntryInput{
			{AccountID: f.id(domain.CodeCash), Debit: d("10.00")},
			{AccountID: f.id(domain.CodeOwnersEquity), Credit: d("10.00")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.balance(t, domain.CodeCash); !got.IsZero() {
		t.Fatalf("expected drafts to be excluded, got %s", got)
	}
}

func TestBalanceUseCase_GetBalances(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	f.book(t, "2024-03-01", domain.CodeBank, domain.CodeOwnersEquity, "100.00")

	balances, err := f.balances.GetBalances(ctx, companyID, []string{
		f.id(domain.CodeOwnersEquity), f.id(domain.CodeBank), f.id(domain.CodeBank), f.id(domain.CodeCash),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("expected duplicates collapsed to 3 balances, got %d", len(balances))
	}
	for _, b := range balances {
		want := "0"
		if b.AccountID != f.id(domain.CodeCash) {
			want = "100.00"
		}
		if !b.Balance.Equal(d(want)) {
			t.Errorf("account %s: expected %s, got %s", b.AccountID, want, b.Balance)
		}
	}

	_, err = f.balances.GetBalances(ctx, companyID, []string{f.id(domain.CodeBank), "ghost"}, nil)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestBalanceUseCase_GetPeriodMovement(t *testing.T) {
	f := seeded(t)
	f.book(t, "2024-02-28", domain.CodeBank, domain.CodeOwnersEquity, "1000.00")
	f.book(t, "2024-03-01", domain.CodeBank, domain.CodeSalesRevenue, "300.00")
	f.book(t, "2024-03-31", domain.CodeBankCharges, domain.CodeBank, "20.00")
	f.book(t, "2024-04-01", domain.CodeBank, domain.CodeSalesRevenue, "999.00")

	m, err := f.balances.GetPeriodMovement(context.Background(), companyID, f.id(domain.CodeBank), day("2024-03-01"), day("2024-03-31"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Debits.Equal(d("300.00")) || !m.Credits.Equal(d("20.00")) || !m.Net.Equal(d("280.00")) {
		t.Fatalf("unexpected movement: %+v", m)
	}

	_, err = f.balances.GetPeriodMovement(context.Background(), companyID, f.id(domain.CodeBank), day("2024-03-31"), day("2024-03-01"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

func TestBalanceUseCase_GetAccountLedger(t *testing.T) {
	f := seeded(t)
	f.book(t, "2024-02-15", domain.CodeBank, domain.CodeOwnersEquity, "1000.00")
	f.book(t, "2024-03-05", domain.CodeBank, domain.CodeSalesRevenue, "200.00")
	f.book(t, "2024-03-02", domain.CodeBankCharges, domain.CodeBank, "50.00")

	ledger, err := f.balances.GetAccountLedger(context.Background(), companyID, f.id(domain.CodeBank), day("2024-03-01"), day("2024-03-31"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ledger.Opening.Equal(d("1000.00")) {
		t.Fatalf("expected opening 1000.00, got %s", ledger.Opening)
	}
	if len(ledger.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(ledger.Lines))
	}
	if !ledger.Lines[0].Date.Equal(day("2024-03-02")) || !ledger.Lines[0].Running.Equal(d("950.00")) {
		t.Errorf("unexpected first line: %+v", ledger.Lines[0])
	}
	if !ledger.Lines[1].Running.Equal(d("1150.00")) || !ledger.Closing.Equal(d("1150.00")) {
		t.Errorf("expected closing 1150.00, got line %s closing %s", ledger.Lines[1].Running, ledger.Closing)
	}
}

func TestBalanceUseCase_ReadThroughCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockBalanceCache(ctrl)

	f := seeded(t)
	f.balances.WithCache(cache)
	bank := f.id(domain.CodeBank)
	ctx := context.Background()

	t.Run("miss populates", func(t *testing.T) {
		gomock.InOrder(
			cache.EXPECT().Get(gomock.Any(), companyID, bank, gomock.Nil()).Return(nil, int64(7), nil),
			cache.EXPECT().Set(gomock.Any(), companyID, int64(7), gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, _ int64, b domain.Balance) error {
					if b.AccountID != bank {
						t.Errorf("cached wrong account %s", b.AccountID)
					}
					return nil
				}),
		)
		if _, err := f.balances.GetBalance(ctx, companyID, bank, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("hit skips the store", func(t *testing.T) {
		cached := domain.NewBalance(bank, domain.AccountTypeAsset, d("42.00"), d("0"), nil)
		cache.EXPECT().Get(gomock.Any(), companyID, bank, gomock.Nil()).Return(&cached, int64(7), nil)
		f.repos.Entries.SumsFunc = func(context.Context, string, []string, *time.Time, *time.Time) (map[string]usecase.EntrySums, error) {
			t.Fatal("store must not be queried on a cache hit")
			return nil, nil
		}
		defer func() { f.repos.Entries.SumsFunc = nil }()

		b, err := f.balances.GetBalance(ctx, companyID, bank, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !b.Balance.Equal(d("42.00")) {
			t.Fatalf("expected cached balance, got %s", b.Balance)
		}
	})

	t.Run("read error skips the write", func(t *testing.T) {
		cache.EXPECT().Get(gomock.Any(), companyID, bank, gomock.Nil()).Return(nil, int64(0), errors.New("connection refused"))

		if _, err := f.balances.GetBalance(ctx, companyID, bank, nil); err != nil {
			t.Fatalf("cache failures must not fail reads: %v", err)
		}
	})

	t.Run("write error falls through", func(t *testing.T) {
		cache.EXPECT().Get(gomock.Any(), companyID, bank, gomock.Nil()).Return(nil, int64(8), nil)
		cache.EXPECT().Set(gomock.Any(), companyID, int64(8), gomock.Any()).Return(errors.New("connection refused"))

		if _, err := f.balances.GetBalance(ctx, companyID, bank, nil); err != nil {
			t.Fatalf("cache failures must not fail reads: %v", err)
		}
	})
}
