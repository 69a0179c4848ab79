package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies what happened to an account.
type EventType string

const (
	EventTypeAccountCreated     EventType = "ACCOUNT_CREATED"
	EventTypeAccountUpdated     EventType = "ACCOUNT_UPDATED"
	EventTypeAccountSuspended   EventType = "ACCOUNT_SUSPENDED"
	EventTypeAccountClosed      EventType = "ACCOUNT_CLOSED"
	EventTypeAccountReactivated EventType = "ACCOUNT_REACTIVATED"
)

func (t EventType) String() string { return string(t) }

// AggregateTypeAccount tags outbox rows that belong to accounts.
const AggregateTypeAccount = "account"

// AccountEvent is an immutable snapshot of an account taken right after a
// successful write.
type AccountEvent struct {
	EventID        string    `json:"eventId"`
	AccountID      string    `json:"accountId"`
	CustomerID     string    `json:"customerId"`
	AccountType    string    `json:"accountType"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CustomerName   string    `json:"customerName"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phoneNumber,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	EventType      EventType `json:"eventType"`
	EventTimestamp time.Time `json:"eventTimestamp"`

	// Version is the account version the event was built from. It travels
	// in transport metadata, not in the payload.
	Version int64 `json:"-"`
}

// NewAccountEvent builds the event for an account. Fields are copied by value
// so later changes to account do not leak into the event.
func NewAccountEvent(account *Account, eventType EventType, eventID string, now time.Time) *AccountEvent {
	return &AccountEvent{
		EventID:        eventID,
		AccountID:      account.AccountID,
		CustomerID:     account.CustomerID,
		AccountType:    account.AccountType.String(),
		Currency:       account.Currency,
		Status:         account.Status.String(),
		CustomerName:   account.CustomerName,
		Email:          account.Email,
		PhoneNumber:    account.PhoneNumber,
		CreatedAt:      account.CreatedAt,
		EventType:      eventType,
		EventTimestamp: now,
		Version:        account.Version,
	}
}

// Key is the partitioning key of the event.
func (e *AccountEvent) Key() string {
	return e.AccountID
}

// Encode serializes the event into its wire form.
func (e *AccountEvent) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventSerialization, err)
	}
	return data, nil
}

// DecodeAccountEvent parses the wire form produced by Encode.
func DecodeAccountEvent(data []byte) (*AccountEvent, error) {
	var e AccountEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode account event: %w", err)
	}
	return &e, nil
}

// OutboxEvent is an encoded event waiting to be relayed to the event channel.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
	Attempts      int
	LastError     string
}

// NewOutboxEvent wraps an encoded account event for the outbox.
func NewOutboxEvent(event *AccountEvent, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		ID:            event.EventID,
		AggregateID:   event.AccountID,
		AggregateType: AggregateTypeAccount,
		EventType:     event.EventType.String(),
		Payload:       payload,
		CreatedAt:     event.EventTimestamp,
	}
}

// DeadLetter records an event the channel rejected or never acknowledged.
type DeadLetter struct {
	EventID   string    `json:"eventId"`
	Key       string    `json:"key"`
	EventType string    `json:"eventType"`
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failedAt"`
}
