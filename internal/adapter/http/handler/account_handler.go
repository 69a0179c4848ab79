package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/adapter/http/dto"
	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/logger"
	"github.com/iho/goaccount/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	GetAccountsByCustomer(ctx context.Context, customerID string) ([]*domain.Account, error)
	GetAccountsByCustomerAndStatus(ctx context.Context, customerID string, status domain.AccountStatus) ([]*domain.Account, error)
	GetAccountsByEmail(ctx context.Context, email string) ([]*domain.Account, error)
	ListAccountsByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.Account, error)
	UpdateStatus(ctx context.Context, input usecase.UpdateStatusInput) (*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	logger    zerolog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		accountUC: accountUC,
		logger:    log.With().Str("component", "account_handler").Logger(),
	}
}

// Create opens a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if fields := dto.Validate(&req); fields != nil {
		writeValidationError(w, fields)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		h.fail(w, r, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// ListByStatus lists accounts in the status given by the status query
// parameter.
func (h *AccountHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "status query parameter is required")
		return
	}
	status, err := domain.ParseAccountStatus(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	accounts, err := h.accountUC.ListAccountsByStatus(r.Context(), status)
	if err != nil {
		h.fail(w, r, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// ListByCustomer lists a customer's accounts, optionally filtered by status.
func (h *AccountHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "missing customer ID")
		return
	}

	var (
		accounts []*domain.Account
		err      error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, perr := domain.ParseAccountStatus(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		accounts, err = h.accountUC.GetAccountsByCustomerAndStatus(r.Context(), customerID, status)
	} else {
		accounts, err = h.accountUC.GetAccountsByCustomer(r.Context(), customerID)
	}
	if err != nil {
		h.fail(w, r, "failed to list customer accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// ListByEmail lists the accounts bound to an email address.
func (h *AccountHandler) ListByEmail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		writeError(w, http.StatusBadRequest, "missing or malformed email")
		return
	}

	accounts, err := h.accountUC.GetAccountsByEmail(r.Context(), email)
	if err != nil {
		h.fail(w, r, "failed to list accounts by email", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// UpdateStatus applies a status transition.
func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID")
		return
	}

	var req dto.UpdateAccountStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if fields := dto.Validate(&req); fields != nil {
		writeValidationError(w, fields)
		return
	}

	account, err := h.accountUC.UpdateStatus(r.Context(), req.ToUseCaseInput(accountID))
	if err != nil {
		h.fail(w, r, "failed to update account status", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := mapDomainError(err)
	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context(), h.logger)
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	}
	writeError(w, status, errorMessage(status, err))
}
