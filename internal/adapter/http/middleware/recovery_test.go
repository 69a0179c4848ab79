package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func TestRecoveryReturnsJSONError(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/ACC1", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":500`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

func TestRequestContextPropagatesID(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	handler := chimiddleware.RequestID(RequestContext(NewLoggingMiddleware(log).Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}),
	)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/missing", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get(RequestIDHeader) != "req-42" {
		t.Fatalf("expected request id echoed, got %q", rr.Header().Get(RequestIDHeader))
	}

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-42"`) || !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"status":404`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
