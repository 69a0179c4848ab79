package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/adapter/http/handler"
	"github.com/iho/goaccount/internal/adapter/http/middleware"
	"github.com/iho/goaccount/internal/infrastructure/metrics"
	"github.com/iho/goaccount/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore // optional
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter // optional
	Metrics          *metrics.Metrics        // optional
	MetricsHandler   http.Handler            // defaults to promhttp.Handler()
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.ListByStatus)
			r.Get("/customer/{customerId}", cfg.AccountHandler.ListByCustomer)
			r.Get("/by-email/{email}", cfg.AccountHandler.ListByEmail)
			r.Get("/{accountId}", cfg.AccountHandler.Get)
			r.Patch("/{accountId}/status", cfg.AccountHandler.UpdateStatus)
		})
	})

	return r
}
