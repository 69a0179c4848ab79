package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.AccountsCreated == nil || m.EventPublishFailures == nil || m.HTTPRequests == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.AccountsCreated.Inc()
	m.EventPublishFailures.WithLabelValues("ACCOUNT_CREATED", StageTransport).Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.EventPublishFailures.WithLabelValues("ACCOUNT_CREATED", StageTransport)); got != 1 {
		t.Fatalf("expected one transport failure, got %v", got)
	}
}

func TestNewWithRegistererIsolatesRegistries(t *testing.T) {
	// Two services in one process must not collide on registration.
	a := NewWithRegisterer(prometheus.NewRegistry())
	b := NewWithRegisterer(prometheus.NewRegistry())

	a.AccountsCreated.Inc()

	if testutil.ToFloat64(b.AccountsCreated) != 0 {
		t.Fatal("metrics leaked between registries")
	}
}
