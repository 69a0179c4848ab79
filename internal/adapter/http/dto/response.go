package dto

import (
	"net/http"
	"time"

	"github.com/iho/goaccount/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	AccountID    string    `json:"accountId"`
	CustomerID   string    `json:"customerId"`
	AccountType  string    `json:"accountType"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customerName"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		AccountID:    a.AccountID,
		CustomerID:   a.CustomerID,
		AccountType:  a.AccountType.String(),
		Currency:     a.Currency,
		Status:       a.Status.String(),
		CustomerName: a.CustomerName,
		Email:        a.Email,
		PhoneNumber:  a.PhoneNumber,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// NewErrorResponse builds an ErrorResponse for status.
func NewErrorResponse(status int, message string, now time.Time) ErrorResponse {
	return ErrorResponse{
		Timestamp: now,
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	}
}
