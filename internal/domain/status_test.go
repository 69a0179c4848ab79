package domain

import (
	"errors"
	"testing"
)

func TestValidateTransition_Table(t *testing.T) {
	allowed := map[AccountStatus]map[AccountStatus]EventType{
		AccountStatusActive: {
			AccountStatusInactive:  EventTypeAccountUpdated,
			AccountStatusSuspended: EventTypeAccountSuspended,
			AccountStatusClosed:    EventTypeAccountClosed,
		},
		AccountStatusInactive: {
			AccountStatusActive:    EventTypeAccountReactivated,
			AccountStatusSuspended: EventTypeAccountSuspended,
			AccountStatusClosed:    EventTypeAccountClosed,
		},
		AccountStatusSuspended: {
			AccountStatusActive:   EventTypeAccountReactivated,
			AccountStatusInactive: EventTypeAccountUpdated,
			AccountStatusClosed:   EventTypeAccountClosed,
		},
	}

	for _, from := range AccountStatuses() {
		for _, to := range AccountStatuses() {
			name := string(from) + "->" + string(to)
			t.Run(name, func(t *testing.T) {
				got, err := ValidateTransition(from, to)

				want, ok := allowed[from][to]
				if !ok {
					if !errors.Is(err, ErrInvalidStatusTransition) {
						t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
					}
					if got != "" {
						t.Fatalf("rejected transition returned event type %s", got)
					}
					return
				}

				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != want {
					t.Errorf("expected %s, got %s", want, got)
				}
			})
		}
	}
}

func TestValidateTransition_SameStatusIsRejected(t *testing.T) {
	for _, s := range AccountStatuses() {
		if _, err := ValidateTransition(s, s); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Errorf("%s -> %s: expected rejection, got %v", s, s, err)
		}
	}
}

func TestValidateTransition_ClosedIsTerminal(t *testing.T) {
	for _, to := range AccountStatuses() {
		_, err := ValidateTransition(AccountStatusClosed, to)
		if !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("CLOSED -> %s: expected rejection, got %v", to, err)
		}
		if err.Error() != "invalid status transition: cannot change status of a closed account" {
			t.Errorf("unexpected message: %s", err)
		}
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	if _, err := ValidateTransition("FROZEN", AccountStatusActive); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected rejection for unknown current status, got %v", err)
	}
	if _, err := ValidateTransition(AccountStatusActive, "FROZEN"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected rejection for unknown target status, got %v", err)
	}
}

func TestAllowedTransitions(t *testing.T) {
	got := AllowedTransitions(AccountStatusActive)
	want := []AccountStatus{AccountStatusInactive, AccountStatusSuspended, AccountStatusClosed}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if len(AllowedTransitions(AccountStatusClosed)) != 0 {
		t.Fatal("closed accounts must not allow any transition")
	}
}

func TestEventTypeForStatus(t *testing.T) {
	cases := map[AccountStatus]EventType{
		AccountStatusActive:    EventTypeAccountReactivated,
		AccountStatusSuspended: EventTypeAccountSuspended,
		AccountStatusClosed:    EventTypeAccountClosed,
		AccountStatusInactive:  EventTypeAccountUpdated,
	}
	for status, want := range cases {
		if got := EventTypeForStatus(status); got != want {
			t.Errorf("%s: expected %s, got %s", status, want, got)
		}
	}
}
