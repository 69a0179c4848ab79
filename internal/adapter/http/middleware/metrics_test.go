package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/goaccount/internal/infrastructure/metrics"
)

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		label      string
		statusCode int
	}{
		{
			name:       "uses route pattern for account path",
			method:     http.MethodGet,
			path:       "/api/v1/accounts/ACC123",
			label:      "/api/v1/accounts/{accountId}",
			statusCode: http.StatusTeapot,
		},
		{
			name:       "static route",
			method:     http.MethodGet,
			path:       "/health",
			label:      "/health",
			statusCode: http.StatusOK,
		},
		{
			name:       "unmatched route",
			method:     http.MethodGet,
			path:       "/nope",
			label:      unmatchedRoute,
			statusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.NewWithRegisterer(prometheus.NewRegistry())

			r := chi.NewRouter()
			r.Use(Metrics(m))
			r.Get("/api/v1/accounts/{accountId}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			})
			r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

			if rr.Code != tc.statusCode {
				t.Fatalf("expected status %d, got %d", tc.statusCode, rr.Code)
			}

			count := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(tc.method, tc.label, strconv.Itoa(tc.statusCode)))
			if count != 1 {
				t.Fatalf("expected counter 1 for %s, got %v", tc.label, count)
			}
			if got := testutil.CollectAndCount(m.HTTPDuration); got != 1 {
				t.Fatalf("expected one duration series, got %d", got)
			}
		})
	}
}
