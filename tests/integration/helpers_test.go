package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/tests/testutil"
)

const bankAccountID = "hdfc-001"

type env struct {
	db      *testutil.TestDB
	app     *testutil.App
	company string
	ctx     context.Context
}

func setup(t *testing.T) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.NewTestDB(t)
	t.Cleanup(db.Cleanup)

	return &env{
		db:      db,
		app:     testutil.NewApp(t, db),
		company: testutil.NewCompanyID(),
		ctx:     context.Background(),
	}
}

// seedChart initializes the default chart and links the bank ledger account to bankAccountID.
// It returns the accounts keyed by code.
func (e *env) seedChart(t *testing.T) map[string]*dto.AccountResponse {
	t.Helper()

	var seeded dto.InitializeChartResponse
	e.app.MustDo(http.StatusCreated, e.company, http.MethodPost, "/chart/initialize", nil, &seeded)

	byCode := make(map[string]*dto.AccountResponse, len(seeded.Created))
	for _, a := range seeded.Created {
		byCode[a.Code] = a
	}

	bank := byCode[domain.CodeBank]
	if bank == nil {
		t.Fatalf("seeded chart has no bank account")
	}
	e.app.MustDo(http.StatusOK, e.company, http.MethodPut, "/accounts/"+bank.ID+"/bank-link",
		map[string]string{"bank_account_id": bankAccountID}, nil)
	return byCode
}

func (e *env) balance(t *testing.T, accountID string) string {
	t.Helper()
	var b dto.BalanceResponse
	e.app.MustDo(http.StatusOK, e.company, http.MethodGet, "/accounts/"+accountID+"/balance", nil, &b)
	return b.Balance
}

func (e *env) postInvoiceAndPayment(t *testing.T, invoiceID, date string) *dto.PostingResultResponse {
	t.Helper()

	e.app.MustDo(http.StatusCreated, e.company, http.MethodPost, "/postings/invoice", map[string]any{
		"invoice_id":     invoiceID,
		"invoice_number": "INV-" + invoiceID,
		"date":           date,
		"subtotal":       "1000.00",
		"cgst":           "90.00",
		"sgst":           "90.00",
	}, nil)

	var payment dto.PostingResultResponse
	e.app.MustDo(http.StatusCreated, e.company, http.MethodPost, "/postings/payment", map[string]any{
		"payment_id": "pay-" + invoiceID,
		"invoice_id": invoiceID,
		"date":       date,
		"amount":     "1180.00",
		"method":     "bank",
	}, &payment)
	return &payment
}

func (e *env) requireConsistent(t *testing.T) {
	t.Helper()
	var report dto.ConsistencyResponse
	e.app.MustDo(http.StatusOK, e.company, http.MethodGet, "/ledger/consistency", nil, &report)
	if !report.Consistent || report.TotalDebits != report.TotalCredits {
		t.Fatalf("ledger inconsistent: %+v", report)
	}
}
