package dto

import (
	"testing"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/usecase"
)

func validCreateRequest() CreateAccountRequest {
	return CreateAccountRequest{
		CustomerID:   "CUST123456",
		AccountType:  "SAVINGS",
		Currency:     "USD",
		CustomerName: "John Doe",
		Email:        "john.doe@example.com",
		PhoneNumber:  "+11234567890",
	}
}

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	req := validCreateRequest()

	got := req.ToUseCaseInput()
	want := usecase.CreateAccountInput{
		CustomerID:   "CUST123456",
		AccountType:  domain.AccountTypeSavings,
		Currency:     "USD",
		CustomerName: "John Doe",
		Email:        "john.doe@example.com",
		PhoneNumber:  "+11234567890",
	}

	if got != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestUpdateAccountStatusRequest_ToUseCaseInput(t *testing.T) {
	req := UpdateAccountStatusRequest{Status: "SUSPENDED", Reason: "fraud review"}

	got := req.ToUseCaseInput("ACC1")
	if got.AccountID != "ACC1" || got.Status != domain.AccountStatusSuspended || got.Reason != "fraud review" {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestValidateCreateAccountRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateAccountRequest)
		field  string
		msg    string
	}{
		{"valid", func(*CreateAccountRequest) {}, "", ""},
		{"phone optional", func(r *CreateAccountRequest) { r.PhoneNumber = "" }, "", ""},
		{"phone without plus", func(r *CreateAccountRequest) { r.PhoneNumber = "11234567890" }, "", ""},
		{"blank customer", func(r *CreateAccountRequest) { r.CustomerID = "   " }, "customerId", "Customer ID is required"},
		{"unknown type", func(r *CreateAccountRequest) { r.AccountType = "CHECKING" }, "accountType", "Invalid account type"},
		{"lowercase currency", func(r *CreateAccountRequest) { r.Currency = "usd" }, "currency", "Currency must be 3-letter ISO code"},
		{"long currency", func(r *CreateAccountRequest) { r.Currency = "USDT" }, "currency", "Currency must be 3-letter ISO code"},
		{"missing name", func(r *CreateAccountRequest) { r.CustomerName = "" }, "customerName", "Customer name is required"},
		{"bad email", func(r *CreateAccountRequest) { r.Email = "not-an-email" }, "email", "Invalid email format"},
		{"bad phone", func(r *CreateAccountRequest) { r.PhoneNumber = "+0123" }, "phoneNumber", "Invalid phone number format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)

			errs := Validate(&req)
			if tt.field == "" {
				if errs != nil {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if got := errs[tt.field]; got != tt.msg {
				t.Fatalf("errs[%s] = %q, want %q (all: %v)", tt.field, got, tt.msg, errs)
			}
		})
	}
}

func TestValidateReportsEveryFailingField(t *testing.T) {
	errs := Validate(&CreateAccountRequest{})

	for _, field := range []string{"customerId", "accountType", "currency", "customerName", "email"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}
	if _, ok := errs["phoneNumber"]; ok {
		t.Fatalf("phone number is optional, got %v", errs)
	}
}

func TestValidateUpdateAccountStatusRequest(t *testing.T) {
	if errs := Validate(&UpdateAccountStatusRequest{Status: "CLOSED"}); errs != nil {
		t.Fatalf("expected valid request, got %v", errs)
	}
	if errs := Validate(&UpdateAccountStatusRequest{}); errs["status"] != "Status is required" {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs := Validate(&UpdateAccountStatusRequest{Status: "FROZEN"}); errs["status"] != "Invalid status" {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
