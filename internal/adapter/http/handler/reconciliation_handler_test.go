package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

type reconciliationServiceStub struct {
	autoFn       func(ctx context.Context, input usecase.AutoMatchInput) (*usecase.AutoMatchResult, error)
	matchFn      func(ctx context.Context, companyID, statementEntryID, transactionEntryID string) (*domain.BankStatementEntry, error)
	unmatchFn    func(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error)
	categorizeFn func(ctx context.Context, input usecase.CategorizeInput) (*usecase.CategorizeResult, error)
	confirmFn    func(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error)
}

func (s *reconciliationServiceStub) AutoMatch(ctx context.Context, input usecase.AutoMatchInput) (*usecase.AutoMatchResult, error) {
	return s.autoFn(ctx, input)
}

func (s *reconciliationServiceStub) ManualMatch(ctx context.Context, companyID, statementEntryID, transactionEntryID string) (*domain.BankStatementEntry, error) {
	return s.matchFn(ctx, companyID, statementEntryID, transactionEntryID)
}

func (s *reconciliationServiceStub) Unmatch(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error) {
	return s.unmatchFn(ctx, companyID, statementEntryID)
}

func (s *reconciliationServiceStub) Categorize(ctx context.Context, input usecase.CategorizeInput) (*usecase.CategorizeResult, error) {
	return s.categorizeFn(ctx, input)
}

func (s *reconciliationServiceStub) ConfirmUnmatched(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error) {
	return s.confirmFn(ctx, companyID, statementEntryID)
}

func TestReconciliationHandler_AutoMatch(t *testing.T) {
	var captured usecase.AutoMatchInput
	handler := NewReconciliationHandler(&reconciliationServiceStub{
		autoFn: func(ctx context.Context, input usecase.AutoMatchInput) (*usecase.AutoMatchResult, error) {
			captured = input
			return &usecase.AutoMatchResult{}, nil
		},
	}, domain.DefaultMatchTolerance())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bank-accounts/hdfc-001/auto-match", nil)
	handler.AutoMatch(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.BankAccountID != "hdfc-001" || captured.Tolerance != nil {
		t.Fatalf("expected default tolerance, got %+v", captured)
	}
	if !strings.Contains(rec.Body.String(), `"matched":[]`) {
		t.Errorf("expected empty matched array, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/bank-accounts/hdfc-001/auto-match", strings.NewReader(`{"amount_tolerance":"1.00"}`))
	handler.AutoMatch(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))
	if captured.Tolerance == nil || !captured.Tolerance.Amount.Equal(decimal.RequireFromString("1")) {
		t.Fatalf("expected overridden amount tolerance, got %+v", captured.Tolerance)
	}
	if captured.Tolerance.DateDays != domain.DefaultMatchTolerance().DateDays {
		t.Errorf("expected default date window, got %d", captured.Tolerance.DateDays)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/bank-accounts/hdfc-001/auto-match", strings.NewReader(`{"date_tolerance_days":90}`))
	handler.AutoMatch(rec, withParams(withPrincipal(req), "bankAccountID", "hdfc-001"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized window, got %d", rec.Code)
	}
}

func TestReconciliationHandler_Match(t *testing.T) {
	handler := NewReconciliationHandler(&reconciliationServiceStub{
		matchFn: func(ctx context.Context, companyID, statementEntryID, transactionEntryID string) (*domain.BankStatementEntry, error) {
			if transactionEntryID == "taken" {
				return nil, domain.ErrEntryAlreadyReconciled
			}
			return &domain.BankStatementEntry{ID: statementEntryID, Status: domain.StatementStatusMatched, MatchedEntryID: &transactionEntryID}, nil
		},
		unmatchFn: func(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error) {
			return nil, domain.ErrStatementNotMatched
		},
	}, domain.DefaultMatchTolerance())

	match := func(body string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/statements/s-1/match", strings.NewReader(body))
		handler.Match(rec, withParams(withPrincipal(req), "id", "s-1"))
		return rec.Code
	}

	if code := match(`{"transaction_entry_id":"e-1"}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := match(`{"transaction_entry_id":"taken"}`); code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if code := match(`{}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	rec := httptest.NewRecorder()
	handler.Unmatch(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodPost, "/statements/s-1/unmatch", nil)), "id", "s-1"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 unmatching an open line, got %d", rec.Code)
	}
}

func TestReconciliationHandler_Categorize(t *testing.T) {
	var captured usecase.CategorizeInput
	handler := NewReconciliationHandler(&reconciliationServiceStub{
		categorizeFn: func(ctx context.Context, input usecase.CategorizeInput) (*usecase.CategorizeResult, error) {
			captured = input
			return &usecase.CategorizeResult{
				StatementEntry: &domain.BankStatementEntry{ID: input.StatementEntryID, Status: domain.StatementStatusMatched},
				Transaction:    sampleTransaction(),
			}, nil
		},
		confirmFn: func(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error) {
			return &domain.BankStatementEntry{ID: statementEntryID, Status: domain.StatementStatusUnmatchedConfirmed}, nil
		},
	}, domain.DefaultMatchTolerance())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/statements/s-1/categorize", strings.NewReader(`{"account_code":" 6100 ","description":"bank charges"}`))
	handler.Categorize(rec, withParams(withPrincipal(req), "id", "s-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.AccountCode != "6100" || captured.StatementEntryID != "s-1" || captured.CompanyID != testCompany {
		t.Fatalf("unexpected input %+v", captured)
	}

	rec = httptest.NewRecorder()
	handler.ConfirmUnmatched(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodPost, "/statements/s-2/confirm-unmatched", nil)), "id", "s-2"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"unmatched_confirmed"`) {
		t.Fatalf("unexpected confirm response %d %s", rec.Code, rec.Body.String())
	}
}
