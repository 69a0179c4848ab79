package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccountType is the product kind of an account. It never changes after creation.
type AccountType string

const (
	AccountTypeSavings      AccountType = "SAVINGS"
	AccountTypeCurrent      AccountType = "CURRENT"
	AccountTypeSalary       AccountType = "SALARY"
	AccountTypeFixedDeposit AccountType = "FIXED_DEPOSIT"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusClosed    AccountStatus = "CLOSED"
)

// AccountIDPrefix prefixes every generated account identifier.
const AccountIDPrefix = "ACC"

// Account is a customer-facing account record.
type Account struct {
	AccountID    string
	CustomerID   string
	AccountType  AccountType
	Currency     string
	Status       AccountStatus
	CustomerName string
	Email        string
	PhoneNumber  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	// Version is the optimistic concurrency token. Zero means the account
	// has never been persisted.
	Version int64
}

// IsNew reports whether the account has not been persisted yet.
func (a *Account) IsNew() bool {
	return a.Version == 0
}

// IsClosed reports whether the account reached the terminal state.
func (a *Account) IsClosed() bool {
	return a.Status == AccountStatusClosed
}

// Clone returns a copy of the account that shares no state with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// AccountTypes lists every valid account type.
func AccountTypes() []AccountType {
	return []AccountType{
		AccountTypeSavings,
		AccountTypeCurrent,
		AccountTypeSalary,
		AccountTypeFixedDeposit,
	}
}

// AccountStatuses lists every valid account status.
func AccountStatuses() []AccountStatus {
	return []AccountStatus{
		AccountStatusActive,
		AccountStatusInactive,
		AccountStatusSuspended,
		AccountStatusClosed,
	}
}

// ParseAccountType converts a wire value into an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
	return t, nil
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeCurrent, AccountTypeSalary, AccountTypeFixedDeposit:
		return true
	}
	return false
}

func (t AccountType) String() string { return string(t) }

// ParseAccountStatus converts a wire value into an AccountStatus.
func ParseAccountStatus(s string) (AccountStatus, error) {
	st := AccountStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountStatus, s)
	}
	return st, nil
}

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended, AccountStatusClosed:
		return true
	}
	return false
}

func (s AccountStatus) String() string { return string(s) }
