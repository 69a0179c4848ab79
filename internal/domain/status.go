package domain

import "fmt"

// transitions holds the permitted targets for every non-terminal status.
// A status never lists itself and CLOSED has no entry.
var transitions = map[AccountStatus]map[AccountStatus]bool{
	AccountStatusActive: {
		AccountStatusInactive:  true,
		AccountStatusSuspended: true,
		AccountStatusClosed:    true,
	},
	AccountStatusInactive: {
		AccountStatusActive:    true,
		AccountStatusSuspended: true,
		AccountStatusClosed:    true,
	},
	AccountStatusSuspended: {
		AccountStatusActive:   true,
		AccountStatusInactive: true,
		AccountStatusClosed:   true,
	},
}

// ValidateTransition checks a requested status change against the lifecycle
// table and returns the event type the change produces.
//
// Requests from CLOSED are rejected whatever the target, and so are requests
// whose target equals the current status.
func ValidateTransition(from, to AccountStatus) (EventType, error) {
	if !from.Valid() {
		return "", fmt.Errorf("%w: unknown current status %q", ErrInvalidStatusTransition, from)
	}
	if !to.Valid() {
		return "", fmt.Errorf("%w: unknown target status %q", ErrInvalidStatusTransition, to)
	}
	if from == AccountStatusClosed {
		return "", fmt.Errorf("%w: cannot change status of a closed account", ErrInvalidStatusTransition)
	}
	if from == to {
		return "", fmt.Errorf("%w: account is already in %s status", ErrInvalidStatusTransition, to)
	}
	if !transitions[from][to] {
		return "", fmt.Errorf("%w: %s to %s is not allowed", ErrInvalidStatusTransition, from, to)
	}
	return EventTypeForStatus(to), nil
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to AccountStatus) bool {
	_, err := ValidateTransition(from, to)
	return err == nil
}

// AllowedTransitions returns the targets reachable from a status in a stable order.
func AllowedTransitions(from AccountStatus) []AccountStatus {
	var out []AccountStatus
	for _, s := range AccountStatuses() {
		if transitions[from][s] {
			out = append(out, s)
		}
	}
	return out
}

// EventTypeForStatus derives the event emitted when an account moves to target.
func EventTypeForStatus(target AccountStatus) EventType {
	switch target {
	case AccountStatusActive:
		return EventTypeAccountReactivated
	case AccountStatusSuspended:
		return EventTypeAccountSuspended
	case AccountStatusClosed:
		return EventTypeAccountClosed
	default:
		return EventTypeAccountUpdated
	}
}
