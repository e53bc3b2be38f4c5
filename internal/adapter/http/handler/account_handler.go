package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bookkeeper/internal/adapter/http/dto"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	InitializeChart(ctx context.Context, companyID string) (*usecase.InitializeChartResult, error)
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, companyID, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
	DeactivateAccount(ctx context.Context, companyID, id string) (*domain.Account, error)
	LinkBankAccount(ctx context.Context, companyID, id, bankAccountID string) (*domain.Account, error)
}

// AccountHandler handles chart of accounts requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// InitializeChart seeds the standard chart for the caller's company.
func (h *AccountHandler) InitializeChart(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	result, err := h.accountUC.InitializeChart(r.Context(), companyID)
	if err != nil {
		writeDomainError(w, r, "failed to initialize chart", err)
		return
	}

	status := http.StatusOK
	if len(result.Created) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.InitializeChartFromResult(result))
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput(companyID))
	if err != nil {
		writeDomainError(w, r, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts, optionally by type.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		CompanyID: companyID,
		Filter: domain.AccountFilter{
			Type:            domain.AccountType(r.URL.Query().Get("type")),
			IncludeInactive: includeInactive,
		},
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Count:    len(accounts),
	})
}

// Deactivate retires an account with a zero balance.
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	account, err := h.accountUC.DeactivateAccount(r.Context(), companyID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to deactivate account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// LinkBankAccount ties an account to an external bank account ID.
func (h *AccountHandler) LinkBankAccount(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyFromRequest(r)
	if err != nil {
		writeDomainError(w, r, "missing company", err)
		return
	}

	var req dto.LinkBankAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request", err)
		return
	}

	account, err := h.accountUC.LinkBankAccount(r.Context(), companyID, chi.URLParam(r, "id"), req.BankAccountID)
	if err != nil {
		writeDomainError(w, r, "failed to link bank account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
