package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
	"github.com/iho/bookkeeper/internal/usecase/mocks"
)

const (
	companyID     = "company-1"
	bankAccountID = "hdfc-001"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fixture wires every use case over one in-memory store.
type fixture struct {
	repos      *mocks.Repositories
	accounts   *usecase.AccountUseCase
	journal    *usecase.JournalUseCase
	balances   *usecase.BalanceUseCase
	reconciler *usecase.ReconciliationUseCase
	monthly    *usecase.MonthlyCloseUseCase
	chart      domain.AccountsByCode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := mocks.NewRepositories()

	f := &fixture{repos: r}
	f.accounts = usecase.NewAccountUseCase(r.TxManager, r.Accounts, r.Entries, r.Outbox, r.Audit, r.IDGen)
	f.journal = usecase.NewJournalUseCase(r.TxManager, r.Accounts, r.Transactions, r.Entries, r.Outbox, r.Audit, r.IDGen)
	f.balances = usecase.NewBalanceUseCase(r.Accounts, r.Entries)
	f.reconciler = usecase.NewReconciliationUseCase(r.TxManager, r.Accounts, r.Transactions, r.Entries, r.Statements, f.journal, r.Outbox, r.Audit, r.IDGen)
	f.monthly = usecase.NewMonthlyCloseUseCase(r.TxManager, r.Accounts, r.Monthly, f.balances, r.Outbox, r.Audit, r.IDGen)
	return f
}

// seeded returns a fixture with the default chart and the Bank account linked to bankAccountID.
func seeded(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.accounts.InitializeChart(ctx, companyID); err != nil {
		t.Fatalf("failed to seed chart: %v", err)
	}
	index, err := f.repos.Accounts.CodeIndex(ctx, companyID)
	if err != nil {
		t.Fatalf("failed to index chart: %v", err)
	}
	if _, err := f.accounts.LinkBankAccount(ctx, companyID, index[domain.CodeBank].ID, bankAccountID); err != nil {
		t.Fatalf("failed to link bank: %v", err)
	}
	f.chart, _ = f.repos.Accounts.CodeIndex(ctx, companyID)
	return f
}

func (f *fixture) id(code string) string {
	return f.chart[code].ID
}

// book posts a two-leg transaction between two well-known codes.
func (f *fixture) book(t *testing.T, date, debitCode, creditCode, amount string) *domain.Transaction {
	t.Helper()
	tx, err := f.journal.CreateJournalEntry(context.Background(), usecase.CreateJournalEntryInput{
		CompanyID:   companyID,
		Date:        day(date),
		Description: debitCode + "/" + creditCode,
		Entries: []usecase.EntryInput{
			{AccountID: f.id(debitCode), Debit: d(amount), Credit: decimal.Zero},
			{AccountID: f.id(creditCode), Debit: decimal.Zero, Credit: d(amount)},
		},
		AutoPost: true,
	})
	if err != nil {
		t.Fatalf("failed to book %s/%s %s: %v", debitCode, creditCode, amount, err)
	}
	return tx
}

func (f *fixture) balance(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), companyID, f.id(code), nil)
	if err != nil {
		t.Fatalf("failed to get balance of %s: %v", code, err)
	}
	return b.Balance
}

func (f *fixture) addStatement(id, date, amount, reference string) {
	f.repos.Store.AddStatement(&domain.BankStatementEntry{
		ID:            id,
		CompanyID:     companyID,
		BankAccountID: bankAccountID,
		ValueDate:     day(date),
		Amount:        d(amount),
		Reference:     reference,
		Status:        domain.StatementStatusPending,
	})
}

func bankEntryOf(t *testing.T, f *fixture, tx *domain.Transaction) *domain.TransactionEntry {
	t.Helper()
	for _, e := range tx.Entries {
		if e.AccountID == f.id(domain.CodeBank) {
			return e
		}
	}
	t.Fatalf("transaction %s has no bank leg", tx.ID)
	return nil
}
