package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	AutoMatch(ctx context.Context, input usecase.AutoMatchInput) (*usecase.AutoMatchResult, error)
	ManualMatch(ctx context.Context, companyID, statementEntryID, transactionEntryID string) (*domain.BankStatementEntry, error)
	Unmatch(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error)
	Categorize(ctx context.Context, input usecase.CategorizeInput) (*usecase.CategorizeResult, error)
	ConfirmUnmatched(ctx context.Context, companyID, statementEntryID string) (*domain.BankStatementEntry, error)
}

// ReconciliationHandler matches statement lines to ledger entries.
type ReconciliationHandler struct {
	reconUC   ReconciliationService
	tolerance domain.MatchTolerance
}

// NewReconciliationHandler creates a new ReconciliationHandler. tolerance fills
// fields a request leaves unset.
func NewReconciliationHandler(reconUC ReconciliationService, tolerance domain.MatchTolerance) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC, tolerance: tolerance}
}

// AutoMatch runs a matching pass over a bank account's open lines.
func (h *ReconciliationHandler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.AutoMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	result, err := h.reconUC.AutoMatch(r.Context(), req.ToUseCaseInput(companyID, chi.URLParam(r, "bankAccountID"), h.tolerance))
	if err != nil {
		writeDomainError(w, r, "failed to auto-match", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AutoMatchFromUseCase(result))
}

// Match pairs a statement line with a ledger entry chosen by the caller.
func (h *ReconciliationHandler) Match(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.ManualMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	entry, err := h.reconUC.ManualMatch(r.Context(), companyID, chi.URLParam(r, "id"), req.TransactionEntryID)
	if err != nil {
		writeDomainError(w, r, "failed to match", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementEntryFromDomain(entry))
}

// Unmatch undoes a match and reopens both sides.
func (h *ReconciliationHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	entry, err := h.reconUC.Unmatch(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to unmatch", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementEntryFromDomain(entry))
}

// Categorize books a statement line against an offset account and matches it.
func (h *ReconciliationHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.CategorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	result, err := h.reconUC.Categorize(r.Context(), req.ToUseCaseInput(companyID, chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, "failed to categorize", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CategorizeResponse{
		StatementEntry: dto.StatementEntryFromDomain(result.StatementEntry),
		Transaction:    dto.TransactionFromDomain(result.Transaction),
	})
}

// ConfirmUnmatched records that a statement line has no ledger counterpart.
func (h *ReconciliationHandler) ConfirmUnmatched(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	entry, err := h.reconUC.ConfirmUnmatched(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to confirm unmatched", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementEntryFromDomain(entry))
}
