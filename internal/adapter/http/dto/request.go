package dto

import (
	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/usecase"
)

// CreateAccountRequest represents a request to open an account.
type CreateAccountRequest struct {
	CustomerID   string `json:"customerId"            validate:"notblank"`
	AccountType  string `json:"accountType"           validate:"notblank,oneof=SAVINGS CURRENT SALARY FIXED_DEPOSIT"`
	Currency     string `json:"currency"              validate:"notblank,iso_currency"`
	CustomerName string `json:"customerName"          validate:"notblank,max=255"`
	Email        string `json:"email"                 validate:"notblank,email"`
	PhoneNumber  string `json:"phoneNumber,omitempty" validate:"omitempty,phone"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		CustomerID:   r.CustomerID,
		AccountType:  domain.AccountType(r.AccountType),
		Currency:     r.Currency,
		CustomerName: r.CustomerName,
		Email:        r.Email,
		PhoneNumber:  r.PhoneNumber,
	}
}

// UpdateAccountStatusRequest represents a requested status change.
type UpdateAccountStatusRequest struct {
	Status string `json:"status"           validate:"notblank,oneof=ACTIVE INACTIVE SUSPENDED CLOSED"`
	Reason string `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateAccountStatusRequest) ToUseCaseInput(accountID string) usecase.UpdateStatusInput {
	return usecase.UpdateStatusInput{
		AccountID: accountID,
		Status:    domain.AccountStatus(r.Status),
		Reason:    r.Reason,
	}
}
