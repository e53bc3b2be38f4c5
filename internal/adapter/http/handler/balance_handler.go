package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	GetBalance(ctx context.Context, companyID, accountID string, asOf *time.Time) (*domain.Balance, error)
	GetBalances(ctx context.Context, companyID string, accountIDs []string, asOf *time.Time) ([]domain.Balance, error)
	GetPeriodMovement(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.Movement, error)
	GetAccountLedger(ctx context.Context, companyID, accountID string, from, to time.Time) (*domain.AccountLedger, error)
}

// BalanceHandler serves derived balances and account statements.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// Get returns an account balance, optionally as of a date.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	balance, err := h.balanceUC.GetBalance(r.Context(), companyID, chi.URLParam(r, "id"), asOf)
	if err != nil {
		writeDomainError(w, r, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(*balance))
}

// GetMany returns balances for several accounts.
func (h *BalanceHandler) GetMany(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.BalancesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	balances, err := h.balanceUC.GetBalances(r.Context(), companyID, req.AccountIDs, req.AsOf.Ptr())
	if err != nil {
		writeDomainError(w, r, "failed to get balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromDomain(balances))
}

// Movement returns account activity between from and to.
func (h *BalanceHandler) Movement(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}
	from, to, err := requireDateRange(r)
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	m, err := h.balanceUC.GetPeriodMovement(r.Context(), companyID, chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeDomainError(w, r, "failed to get movement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MovementFromDomain(m))
}

// Ledger returns the account statement with running balances.
func (h *BalanceHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}
	from, to, err := requireDateRange(r)
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	l, err := h.balanceUC.GetAccountLedger(r.Context(), companyID, chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeDomainError(w, r, "failed to get account ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountLedgerFromDomain(l))
}
