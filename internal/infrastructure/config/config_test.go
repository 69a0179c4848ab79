package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/iho/goaccount/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.EventDelivery != "direct" || cfg.StoreDriver != config.StoreDriverPostgres {
		t.Fatalf("unexpected defaults: delivery=%s store=%s", cfg.EventDelivery, cfg.StoreDriver)
	}

	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaTopic != "account-events" || cfg.KafkaRequiredAcks != -1 {
		t.Fatalf("unexpected kafka defaults: %v %s %d", cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaRequiredAcks)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EVENT_DELIVERY", "outbox")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("OUTBOX_RETENTION", "1h")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPAddr() != ":9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPAddr())
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("expected two brokers, got %v", cfg.KafkaBrokers)
	}

	if cfg.EventDelivery != "outbox" || cfg.StoreDriver != config.StoreDriverMemory || cfg.OutboxRetention != time.Hour {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("HTTP_READ_TIMEOUT")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("HTTP_READ_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"store driver", "STORE_DRIVER", "sqlite"},
		{"delivery", "EVENT_DELIVERY", "carrier-pigeon"},
		{"log format", "LOG_FORMAT", "xml"},
		{"required acks", "KAFKA_REQUIRED_ACKS", "2"},
		{"batch size", "OUTBOX_BATCH_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
