package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
)

type balanceServiceStub struct {
	balanceFn  func(ctx context.Context, companyID, accountID string, asOf *time.Time) (*domain.Balance, error)
	balancesFn func(ctx context.Context, companyID string, accountIDs []string, asOf *time.Time) ([]domain.Balance, error)
	movementFn func(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.Movement, error)
	ledgerFn   func(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.AccountLedger, error)
}

func (s *balanceServiceStub) GetBalance(ctx context.Context, companyID, accountID string, asOf *time.Time) (*domain.Balance, error) {
	return s.balanceFn(ctx, companyID, accountID, asOf)
}

func (s *balanceServiceStub) GetBalances(ctx context.Context, companyID string, accountIDs []string, asOf *time.Time) ([]domain.Balance, error) {
	return s.balancesFn(ctx, companyID, accountIDs, asOf)
}

func (s *balanceServiceStub) GetPeriodMovement(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.Movement, error) {
	return s.movementFn(ctx, companyID, accountID, from, to)
}

func (s *balanceServiceStub) GetAccountLedger(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.AccountLedger, error) {
	return s.ledgerFn(ctx, companyID, accountID, from, to)
}

func TestBalanceHandler_Get(t *testing.T) {
	var gotAsOf *time.Time
	handler := NewBalanceHandler(&balanceServiceStub{
		balanceFn: func(ctx context.Context, companyID, accountID string, asOf *time.Time) (*domain.Balance, error) {
			gotAsOf = asOf
			b := domain.NewBalance(accountID, domain.AccountTypeAsset, decimal.RequireFromString("1180"), decimal.RequireFromString("25"), asOf)
			return &b, nil
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/accounts/bank/balance?as_of=2024-03-31", nil)
	handler.Get(rec, withParams(withPrincipal(req), "id", "bank"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotAsOf == nil || gotAsOf.Format("2006-01-02") != "2024-03-31" {
		t.Fatalf("unexpected as_of %v", gotAsOf)
	}

	var resp dto.BalanceResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Balance != "1155.00" || resp.AsOf == nil {
		t.Fatalf("unexpected balance %+v", resp)
	}
}

func TestBalanceHandler_GetMany(t *testing.T) {
	var gotIDs []string
	handler := NewBalanceHandler(&balanceServiceStub{
		balancesFn: func(ctx context.Context, companyID string, accountIDs []string, asOf *time.Time) ([]domain.Balance, error) {
			gotIDs = accountIDs
			return []domain.Balance{{AccountID: "a"}, {AccountID: "b"}}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.GetMany(rec, withPrincipal(httptest.NewRequest(http.MethodPost, "/balances", strings.NewReader(`{"account_ids":["a","b"]}`))))
	if rec.Code != http.StatusOK || len(gotIDs) != 2 {
		t.Fatalf("unexpected result %d %v", rec.Code, gotIDs)
	}

	rec = httptest.NewRecorder()
	handler.GetMany(rec, withPrincipal(httptest.NewRequest(http.MethodPost, "/balances", strings.NewReader(`{"account_ids":[]}`))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", rec.Code)
	}
}

func TestBalanceHandler_MovementRequiresRange(t *testing.T) {
	handler := NewBalanceHandler(&balanceServiceStub{
		movementFn: func(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.Movement, error) {
			return &domain.Movement{AccountID: accountID, From: from, To: to, Net: decimal.RequireFromString("10")}, nil
		},
		ledgerFn: func(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.AccountLedger, error) {
			return &domain.AccountLedger{Account: &domain.Account{ID: accountID}, From: from, To: to}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Movement(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodGet, "/accounts/bank/movement?from=2024-03-01", nil)), "id", "bank"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without to, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Movement(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodGet, "/accounts/bank/movement?from=2024-03-01&to=2024-03-31", nil)), "id", "bank"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"net":"10.00"`) {
		t.Fatalf("unexpected movement response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.Ledger(rec, withParams(withPrincipal(httptest.NewRequest(http.MethodGet, "/accounts/bank/ledger?from=2024-03-01&to=2024-03-31", nil)), "id", "bank"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"lines":[]`) {
		t.Fatalf("unexpected ledger response %d %s", rec.Code, rec.Body.String())
	}
}
