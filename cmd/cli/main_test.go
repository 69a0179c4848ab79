package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedRequest struct {
	Method         string
	Path           string
	Query          string
	Body           string
	IdempotencyKey string
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = capturedRequest{
			Method:         r.Method,
			Path:           r.URL.EscapedPath(),
			Query:          r.URL.RawQuery,
			Body:           string(body),
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--url", srv.URL}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	printJSON(&out, []byte(`{"a":1}`+"\n"))

	expected := "{\n  \"a\": 1\n}\n"
	if out.String() != expected {
		t.Fatalf("unexpected json output:\n%q", out.String())
	}

	out.Reset()
	printJSON(&out, []byte("not json"))
	if out.String() != "not json\n" {
		t.Fatalf("expected raw passthrough, got %q", out.String())
	}

	out.Reset()
	printJSON(&out, nil)
	if out.Len() != 0 {
		t.Fatalf("expected no output for empty body, got %q", out.String())
	}
}

func TestCreateAccountCmd(t *testing.T) {
	srv, req := newTestServer(t, http.StatusCreated, `{"accountId":"ACC1"}`)

	out, err := execute(t, srv, "account", "create",
		"--customer-id", "CUST1", "--type", "SAVINGS", "--currency", "USD",
		"--name", "Jane", "--email", "jane@example.com", "--idempotency-key", "k-1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if req.Method != http.MethodPost || req.Path != "/api/v1/accounts" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.Path)
	}
	if req.IdempotencyKey != "k-1" {
		t.Fatalf("expected idempotency key, got %q", req.IdempotencyKey)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if body["customerId"] != "CUST1" || body["currency"] != "USD" || body["email"] != "jane@example.com" {
		t.Fatalf("unexpected request body: %v", body)
	}
	if _, ok := body["phoneNumber"]; ok {
		t.Fatalf("empty phone number should be omitted: %v", body)
	}
	if !strings.Contains(out, `"accountId": "ACC1"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCreateAccountCmdRequiresFlags(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusCreated, `{}`)

	if _, err := execute(t, srv, "account", "create", "--customer-id", "CUST1"); err == nil {
		t.Fatalf("expected missing flag error")
	}
}

func TestReadCommands(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantPath  string
		wantQuery string
	}{
		{"get", []string{"account", "get", "ACC1"}, "/api/v1/accounts/ACC1", ""},
		{"list", []string{"account", "list", "--status", "ACTIVE"}, "/api/v1/accounts", "status=ACTIVE"},
		{"customer", []string{"account", "customer", "CUST1"}, "/api/v1/accounts/customer/CUST1", ""},
		{"customer with status", []string{"account", "customer", "CUST1", "--status", "CLOSED"}, "/api/v1/accounts/customer/CUST1", "status=CLOSED"},
		{"by email", []string{"account", "by-email", "jane@example.com"}, "/api/v1/accounts/by-email/jane@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, req := newTestServer(t, http.StatusOK, `[]`)

			if _, err := execute(t, srv, tt.args...); err != nil {
				t.Fatalf("command failed: %v", err)
			}
			if req.Method != http.MethodGet || req.Path != tt.wantPath || req.Query != tt.wantQuery {
				t.Fatalf("unexpected request: %s %s?%s", req.Method, req.Path, req.Query)
			}
		})
	}
}

func TestUpdateStatusCmd(t *testing.T) {
	srv, req := newTestServer(t, http.StatusOK, `{"status":"SUSPENDED"}`)

	if _, err := execute(t, srv, "account", "status", "ACC1", "--to", "SUSPENDED", "--reason", "fraud check"); err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if req.Method != http.MethodPatch || req.Path != "/api/v1/accounts/ACC1/status" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.Path)
	}
	if req.Body != `{"status":"SUSPENDED","reason":"fraud check"}` {
		t.Fatalf("unexpected body: %s", req.Body)
	}
}

func TestErrorStatusIsReported(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{"status":404,"message":"account not found"}`)

	out, err := execute(t, srv, "account", "get", "missing")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
	if !strings.Contains(out, "account not found") {
		t.Fatalf("error body should still be printed: %s", out)
	}
}
