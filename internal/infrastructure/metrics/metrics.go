package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish failure stages.
const (
	StageSerialization = "serialization"
	StageTransport     = "transport"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Account metrics
	AccountsCreated       prometheus.Counter
	StatusTransitions     *prometheus.CounterVec
	RejectedTransitions   *prometheus.CounterVec
	ConcurrencyConflicts  prometheus.Counter
	AccountOperations     *prometheus.CounterVec
	AccountCacheLookups   *prometheus.CounterVec
	AccountUpdateDuration prometheus.Histogram

	// Event metrics
	EventsPublished      *prometheus.CounterVec
	EventPublishFailures *prometheus.CounterVec
	EventPublishLatency  prometheus.Histogram
	DeadLetters          prometheus.Counter
	OutboxBacklog        prometheus.Gauge
	OutboxRelayed        prometheus.Counter
	OutboxRelayFailures  prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "goaccount_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_status_transitions_total",
				Help: "Total accepted status transitions",
			},
			[]string{"from", "to"},
		),
		RejectedTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_status_transitions_rejected_total",
				Help: "Total rejected status transition requests",
			},
			[]string{"from", "to"},
		),
		ConcurrencyConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "goaccount_concurrency_conflicts_total",
			Help: "Total writes rejected because of a version mismatch",
		}),
		AccountOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_account_operations_total",
				Help: "Total account operations by type and result",
			},
			[]string{"operation", "result"},
		),
		AccountCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_account_cache_lookups_total",
				Help: "Account cache lookups by result",
			},
			[]string{"result"},
		),
		AccountUpdateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goaccount_account_update_duration_seconds",
			Help:    "Duration of account write operations",
			Buckets: prometheus.DefBuckets,
		}),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_events_published_total",
				Help: "Total account events acknowledged by the event channel",
			},
			[]string{"event_type"},
		),
		EventPublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_event_publish_failures_total",
				Help: "Total account events that failed to publish",
			},
			[]string{"event_type", "stage"},
		),
		EventPublishLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goaccount_event_publish_latency_seconds",
			Help:    "Time from enqueue to acknowledgement",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DeadLetters: factory.NewCounter(prometheus.CounterOpts{
			Name: "goaccount_event_dead_letters_total",
			Help: "Total account events written to the dead-letter sink",
		}),
		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "goaccount_outbox_backlog",
			Help: "Number of unpublished outbox events",
		}),
		OutboxRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "goaccount_outbox_relayed_total",
			Help: "Total outbox events relayed to the event channel",
		}),
		OutboxRelayFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "goaccount_outbox_relay_failures_total",
			Help: "Total outbox relay delivery failures",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccount_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goaccount_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
