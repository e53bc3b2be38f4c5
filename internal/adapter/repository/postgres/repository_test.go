package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

const companyID = "acme"

var (
	accountCols = []string{"id", "company_id", "code", "name", "type", "parent_id", "bank_account_id", "is_system", "is_active", "created_at", "updated_at"}
	entryCols   = []string{"id", "transaction_id", "account_id", "description", "debit", "credit", "is_reconciled", "reconciled_at", "bank_date", "bank_reference", "created_at"}
	txCols      = []string{"id", "company_id", "number", "date", "description", "reference_type", "reference_id", "status", "is_reconciled", "reverses_id", "reversed_by_id", "created_at", "posted_at"}
)

func begin(t *testing.T, mock pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	mock.ExpectBeginTx(ledgerTxOptions(pgx.ReadCommitted))
	tx, err := newTxManagerWithPool(mock, pgx.ReadCommitted).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func num(s string) pgtype.Numeric {
	return decimalToNumeric(decimal.RequireFromString(s))
}

func keyAmount(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	n, err := decimalFromKey(s)
	if err != nil {
		t.Fatalf("numeric %q: %v", s, err)
	}
	return n
}

func ts(t time.Time) pgtype.Timestamptz {
	return timeToPgTimestamptz(t)
}

func entryRow(id, txID, accountID, debit, credit string, at time.Time) []any {
	return []any{id, txID, accountID, "", num(debit), num(credit), false, pgtype.Timestamptz{}, pgtype.Date{}, "", ts(at)}
}

func TestAccountRepositoryCreateTxDuplicateCode(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: accountCodeConstraint})

	repo := newAccountRepository(mock)
	err := repo.CreateTx(context.Background(), tx, &domain.Account{
		ID: "a1", CompanyID: companyID, Code: "1010", Name: "Bank", Type: domain.AccountTypeAsset, IsActive: true,
	})
	if !errors.Is(err, domain.ErrDuplicateAccountCode) {
		t.Fatalf("expected duplicate code error, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestAccountRepositoryGetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("FROM accounts WHERE company_id").
		WithArgs(companyID, "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := newAccountRepository(mock).GetByID(context.Background(), companyID, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestAccountRepositoryCodeIndex(t *testing.T) {
	mock := newMockPool(t)
	now := time.Now()
	bank := "hdfc-001"
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE company_id = \\$1 ORDER BY code").
		WithArgs(companyID).
		WillReturnRows(mock.NewRows(accountCols).
			AddRow("a1", companyID, "1010", "Bank", "asset", pgtype.Text{}, pgtype.Text{String: bank, Valid: true}, true, true, ts(now), ts(now)).
			AddRow("a2", companyID, "4000", "Sales Revenue", "revenue", pgtype.Text{}, pgtype.Text{}, true, false, ts(now), ts(now)))

	index, err := newAccountRepository(mock).CodeIndex(context.Background(), companyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(index))
	}
	if got := index[domain.CodeBank]; got.BankAccountID == nil || *got.BankAccountID != bank {
		t.Fatalf("expected bank link on 1010, got %+v", got)
	}
	if index[domain.CodeSalesRevenue].IsActive {
		t.Fatal("expected 4000 to be inactive")
	}
	assertExpectations(t, mock)
}

func TestAccountRepositoryLinkBankAccount(t *testing.T) {
	tests := []struct {
		name    string
		result  pgconn.CommandTag
		err     error
		wantErr error
	}{
		{name: "linked", result: pgxmock.NewResult("UPDATE", 1)},
		{name: "missing account", result: pgxmock.NewResult("UPDATE", 0), wantErr: domain.ErrNotFound},
		{name: "already linked", err: &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: accountBankConstraint}, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tx := begin(t, mock)
			exp := mock.ExpectExec("UPDATE accounts SET bank_account_id").
				WithArgs(companyID, "a1", pgtype.Text{String: "hdfc-001", Valid: true}, pgxmock.AnyArg())
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := newAccountRepository(mock).LinkBankAccount(context.Background(), tx, companyID, "a1", "hdfc-001", time.Now())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			assertExpectations(t, mock)
		})
	}
}

func TestTransactionRepositoryNextNumber(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectQuery("INSERT INTO transaction_counters").
		WithArgs(companyID).
		WillReturnRows(mock.NewRows([]string{"last_number"}).AddRow(int64(7)))

	n, err := newTransactionRepository(mock).NextNumber(context.Background(), tx, companyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
	assertExpectations(t, mock)
}

func TestTransactionRepositoryGetByIDLoadsEntries(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	date := pgtype.Date{Time: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Valid: true}

	mock.ExpectQuery("FROM transactions WHERE company_id = \\$1 AND id = \\$2").
		WithArgs(companyID, "t1").
		WillReturnRows(mock.NewRows(txCols).
			AddRow("t1", companyID, int64(1), date, "Invoice INV-1", "invoice", pgtype.Text{String: "INV-1", Valid: true},
				"posted", false, pgtype.Text{}, pgtype.Text{}, ts(now), ts(now)))
	mock.ExpectQuery("FROM transaction_entries e").
		WithArgs([]string{"t1"}).
		WillReturnRows(mock.NewRows(entryCols).
			AddRow(entryRow("e1", "t1", "ar", "1180.00", "0", now)...).
			AddRow(entryRow("e2", "t1", "sales", "0", "1180.00", now)...))

	got, err := newTransactionRepository(mock).GetByID(context.Background(), companyID, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Number != 1 || got.Status != domain.TransactionStatusPosted || got.PostedAt == nil {
		t.Fatalf("unexpected header: %+v", got)
	}
	if got.Reference.ID == nil || *got.Reference.ID != "INV-1" {
		t.Fatalf("expected reference INV-1, got %+v", got.Reference)
	}
	if !got.Date.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got.Date)
	}
	if len(got.Entries) != 2 || !got.Entries[0].Debit.Equal(decimal.RequireFromString("1180")) {
		t.Fatalf("unexpected entries: %+v", got.Entries)
	}
	assertExpectations(t, mock)
}

func TestTransactionRepositoryMarkPostedMissing(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectExec("UPDATE transactions SET status = 'posted'").
		WithArgs("ghost", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := newTransactionRepository(mock).MarkPosted(context.Background(), tx, "ghost", time.Now())
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected transaction not found, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestTransactionRepositoryCreateSecondOpeningBalance(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: openingBalanceConstraint})

	code := domain.CodeBank
	err := newTransactionRepository(mock).Create(context.Background(), tx, &domain.Transaction{
		ID:        "t2",
		CompanyID: companyID,
		Number:    2,
		Date:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Reference: domain.Reference{Type: domain.ReferenceOpeningBalance, ID: &code},
		Status:    domain.TransactionStatusPosted,
	})
	if !errors.Is(err, domain.ErrOpeningBalanceExists) {
		t.Fatalf("expected opening balance conflict, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestEntryRepositorySums(t *testing.T) {
	mock := newMockPool(t)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("GROUP BY e.account_id").
		WithArgs(companyID, []string{"bank", "ar"}, pgtype.Date{}, pgtype.Date{Time: to, Valid: true}).
		WillReturnRows(mock.NewRows([]string{"account_id", "debits", "credits"}).
			AddRow("bank", num("6180.00"), num("10.00")))

	sums, err := newEntryRepository(mock).Sums(context.Background(), companyID, []string{"bank", "ar"}, nil, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("expected only accounts with activity, got %v", sums)
	}
	if !sums["bank"].Debits.Equal(decimal.RequireFromString("6180")) || !sums["bank"].Credits.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("unexpected sums: %+v", sums["bank"])
	}
	assertExpectations(t, mock)
}

func TestEntryRepositoryMarkReconciledRace(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	bankDate := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE transaction_entries").
		WithArgs("e1", pgtype.Date{Time: bankDate, Valid: true}, "UTR001", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := newEntryRepository(mock).MarkReconciled(context.Background(), tx, "e1", bankDate, "UTR001", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected compare-and-set to report a lost race")
	}
	assertExpectations(t, mock)
}

func TestStatementRepositoryInsertDedupes(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "new line", affected: 1, want: true},
		{name: "duplicate", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tx := begin(t, mock)
			mock.ExpectExec("ON CONFLICT ON CONSTRAINT bank_statement_entries_dedupe_key DO NOTHING").
				WithArgs("s1", companyID, "hdfc-001", pgtype.Text{}, pgxmock.AnyArg(), pgtype.Date{},
					keyAmount(t, "1180.00"), "UTR001", "NEFT CR", pgtype.Numeric{}, "pending", pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))

			got, err := newStatementRepository(mock).Insert(context.Background(), tx, &domain.BankStatementEntry{
				ID:            "s1",
				CompanyID:     companyID,
				BankAccountID: "hdfc-001",
				ValueDate:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
				Amount:        decimal.RequireFromString("1180"),
				Reference:     " UTR001 ",
				Description:   "NEFT CR",
				Status:        domain.StatementStatusPending,
				CreatedAt:     time.Now(),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected inserted=%v, got %v", tt.want, got)
			}
			assertExpectations(t, mock)
		})
	}
}

func TestStatementRepositoryTransition(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectExec("UPDATE bank_statement_entries").
		WithArgs("s1", "matched", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := newStatementRepository(mock).Transition(context.Background(), tx, "s1", domain.StatementStatusMatched, domain.StatementStatusPending)
	if err != nil || !ok {
		t.Fatalf("expected transition, got ok=%v err=%v", ok, err)
	}
	assertExpectations(t, mock)
}

func TestMonthlyRepositoryGetForUpdateMissing(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectQuery("FROM monthly_bank_reconciliations").
		WithArgs(companyID, "hdfc-001", int32(2024), int32(3)).
		WillReturnError(pgx.ErrNoRows)

	_, err := newMonthlyReconciliationRepository(mock).GetForUpdate(context.Background(), tx, companyID, "hdfc-001", 2024, 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestImportBatchRepositoryListDecodesRowErrors(t *testing.T) {
	mock := newMockPool(t)
	now := time.Now()
	mock.ExpectQuery("FROM statement_import_batches").
		WithArgs(companyID, pgtype.Text{String: "hdfc-001", Valid: true}, int32(20), int32(0)).
		WillReturnRows(mock.NewRows([]string{"id", "company_id", "bank_account_id", "source", "format", "rows_total", "rows_imported", "rows_duplicate", "row_errors", "created_at"}).
			AddRow("b1", companyID, "hdfc-001", "march.csv", "generic", int32(5), int32(2), int32(1),
				[]byte(`[{"line":8,"reason":"invalid date"}]`), ts(now)))

	batches, err := newImportBatchRepository(mock).List(context.Background(), companyID, "hdfc-001", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 1 || batches[0].RowsImported != 2 {
		t.Fatalf("unexpected batches: %+v", batches)
	}
	if len(batches[0].RowErrors) != 1 || batches[0].RowErrors[0].Line != 8 {
		t.Fatalf("unexpected row errors: %+v", batches[0].RowErrors)
	}
	assertExpectations(t, mock)
}

func TestLedgerRepositoryCheckConsistency(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("SUM\\(e.debit\\)").
		WithArgs(companyID).
		WillReturnRows(mock.NewRows([]string{"total_debits", "total_credits"}).AddRow(num("2360.00"), num("2350.00")))
	mock.ExpectQuery("HAVING SUM").
		WithArgs(companyID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("t9"))
	mock.ExpectQuery("LEFT JOIN bank_statement_entries").
		WithArgs(companyID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("e3").AddRow("e8"))

	report, err := newLedgerRepository(mock).CheckConsistency(context.Background(), companyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.TotalDebits.Equal(decimal.RequireFromString("2360")) || !report.TotalCredits.Equal(decimal.RequireFromString("2350")) {
		t.Fatalf("unexpected totals: %s / %s", report.TotalDebits, report.TotalCredits)
	}
	if len(report.UnbalancedTransactions) != 1 || report.UnbalancedTransactions[0] != "t9" {
		t.Fatalf("unexpected unbalanced list: %v", report.UnbalancedTransactions)
	}
	if len(report.ReconciliationDrift) != 2 || report.ReconciliationDrift[1] != "e8" {
		t.Fatalf("unexpected drift list: %v", report.ReconciliationDrift)
	}
	assertExpectations(t, mock)
}

func TestLedgerRepositoryCheckConsistencyWrapsQueryError(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("SUM\\(e.debit\\)").
		WithArgs(companyID).
		WillReturnRows(mock.NewRows([]string{"total_debits", "total_credits"}).AddRow(num("0"), num("0")))
	mock.ExpectQuery("HAVING SUM").
		WithArgs(companyID).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectQuery("LEFT JOIN bank_statement_entries").
		WithArgs(companyID).
		WillReturnError(errors.New("relation does not exist"))

	_, err := newLedgerRepository(mock).CheckConsistency(context.Background(), companyID)
	if err == nil || err.Error() != "reconciliation drift: relation does not exist" {
		t.Fatalf("expected wrapped drift error, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestOutboxRepositoryCreate(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("ev1", companyID, "t1", domain.AggregateTypeTransaction, domain.EventTypeTransactionPosted,
			[]byte(`{"number":1}`), pgxmock.AnyArg(), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ev := domain.NewOutboxEvent("ev1", companyID, domain.AggregateTypeTransaction, "t1", domain.EventTypeTransactionPosted,
		map[string]any{"number": 1}, time.Now())
	if err := newOutboxRepository(mock).Create(context.Background(), tx, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, mock)
}

func TestAuditRepositoryCreateTxAssignsID(t *testing.T) {
	mock := newMockPool(t)
	tx := begin(t, mock)
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(pgxmock.AnyArg(), companyID, "u1", "statement.dispute", "bank_statement_entry", "s1",
			"", "", "", []byte(nil), []byte(`{"status":"disputed"}`), "success", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	log := &domain.AuditLog{
		ID:           "caller-chosen",
		CompanyID:    companyID,
		UserID:       "u1",
		Action:       "statement.dispute",
		ResourceType: "bank_statement_entry",
		ResourceID:   "s1",
		AfterState:   domain.JSON{"status": "disputed"},
		Status:       "success",
		CreatedAt:    time.Now(),
	}
	if err := newAuditRepository(mock).CreateTx(context.Background(), tx, log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(log.ID); err != nil {
		t.Fatalf("expected the repository to assign a UUID, got %q", log.ID)
	}
	assertExpectations(t, mock)
}
