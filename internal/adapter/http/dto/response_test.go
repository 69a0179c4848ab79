package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/iho/goaccount/internal/domain"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Date(2024, 11, 8, 10, 30, 0, 0, time.UTC)
	account := &domain.Account{
		AccountID:    "ACC1",
		CustomerID:   "CUST1",
		AccountType:  domain.AccountTypeCurrent,
		Currency:     "EUR",
		Status:       domain.AccountStatusActive,
		CustomerName: "Jane",
		Email:        "jane@example.com",
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      3,
	}

	resp := AccountFromDomain(account)
	if resp.AccountID != "ACC1" || resp.AccountType != "CURRENT" || resp.Status != "ACTIVE" {
		t.Fatalf("unexpected account response: %+v", resp)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := fields["version"]; ok {
		t.Fatalf("version must not be exposed: %s", data)
	}
	if _, ok := fields["phoneNumber"]; ok {
		t.Fatalf("empty phone number should be omitted: %s", data)
	}
	if fields["createdAt"] != "2024-11-08T10:30:00Z" {
		t.Fatalf("unexpected createdAt: %v", fields["createdAt"])
	}
}

func TestAccountsFromDomain(t *testing.T) {
	resp := AccountsFromDomain([]*domain.Account{{AccountID: "A"}, {AccountID: "B"}})
	if len(resp) != 2 || resp[1].AccountID != "B" {
		t.Fatalf("unexpected responses: %+v", resp)
	}

	if empty := AccountsFromDomain(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}

func TestNewErrorResponse(t *testing.T) {
	now := time.Now()
	resp := NewErrorResponse(http.StatusConflict, "account already exists", now)

	if resp.Status != 409 || resp.Error != "Conflict" || resp.Message != "account already exists" {
		t.Fatalf("unexpected error response: %+v", resp)
	}
	if !resp.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp: %v", resp.Timestamp)
	}
}
