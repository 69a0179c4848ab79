package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountAlreadyExists    = errors.New("account already exists")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrConcurrencyConflict     = errors.New("account was modified concurrently")
	ErrInvalidAccountType      = errors.New("invalid account type")
	ErrInvalidAccountStatus    = errors.New("invalid account status")

	// Event errors
	ErrEventSerialization = errors.New("failed to serialize account event")
	ErrEventTransport     = errors.New("failed to deliver account event")
	ErrPublishTimeout     = errors.New("timed out waiting for event acknowledgement")
)
