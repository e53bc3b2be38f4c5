package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// MonthlyService defines the behavior needed by MonthlyHandler.
type MonthlyService interface {
	GetMonthlyReconciliation(ctx context.Context, p usecase.Period) (*domain.MonthlyBankReconciliation, error)
	UpdateMonthlyReconciliation(ctx context.Context, input usecase.UpdateMonthlyInput) (*domain.MonthlyBankReconciliation, error)
	CloseMonthlyReconciliation(ctx context.Context, p usecase.Period, closedBy string) (*domain.MonthlyBankReconciliation, error)
}

// MonthlyHandler handles the monthly bank reconciliation.
type MonthlyHandler struct {
	monthlyUC MonthlyService
}

// NewMonthlyHandler creates a new MonthlyHandler.
func NewMonthlyHandler(monthlyUC MonthlyService) *MonthlyHandler {
	return &MonthlyHandler{monthlyUC: monthlyUC}
}

func period(r *http.Request) (usecase.Period, error) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		return usecase.Period{}, err
	}
	year, month, err := parsePeriod(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if err != nil {
		return usecase.Period{}, err
	}
	return usecase.Period{
		CompanyID:     companyID,
		BankAccountID: chi.URLParam(r, "bankAccountID"),
		Year:          year,
		Month:         month,
	}, nil
}

// Get returns the period's reconciliation, computing book figures for open periods.
func (h *MonthlyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := period(r)
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	rec, err := h.monthlyUC.GetMonthlyReconciliation(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, "failed to get monthly reconciliation", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MonthlyFromDomain(rec))
}

// Update sets the bank-side figures, adjustments, notes or status.
func (h *MonthlyHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := period(r)
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	var req dto.UpdateMonthlyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	rec, err := h.monthlyUC.UpdateMonthlyReconciliation(r.Context(), req.ToUseCaseInput(p))
	if err != nil {
		writeDomainError(w, r, "failed to update monthly reconciliation", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MonthlyFromDomain(rec))
}

// Close freezes the period.
func (h *MonthlyHandler) Close(w http.ResponseWriter, r *http.Request) {
	p, err := period(r)
	if err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	var req dto.CloseMonthlyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	rec, err := h.monthlyUC.CloseMonthlyReconciliation(r.Context(), p, req.ClosedBy)
	if err != nil {
		writeDomainError(w, r, "failed to close monthly reconciliation", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MonthlyFromDomain(rec))
}
