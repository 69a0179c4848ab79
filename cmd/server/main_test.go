package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goaccount/internal/infrastructure/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreDriver:         config.StoreDriverMemory,
		KafkaBrokers:        []string{"localhost:9092"},
		KafkaTopic:          "account-events",
		KafkaRequiredAcks:   -1,
		KafkaBatchTimeout:   10 * time.Millisecond,
		KafkaAckTimeout:     time.Second,
		EventDelivery:       "outbox",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     10,
		HTTPPort:            "0",
		HTTPShutdownTimeout: time.Second,
		IdempotencyTTL:      time.Hour,
		LogFormat:           "json",
	}
}

func TestBuildAppMemoryStore(t *testing.T) {
	a, err := buildApp(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.close()

	assert.NotNil(t, a.relay, "outbox delivery should start a relay")
	assert.Nil(t, a.limiter, "rate limiting is disabled at zero rps")

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"customerId":"CUST1","accountType":"SAVINGS","currency":"USD","customerName":"Jane","email":"jane@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "accounts_created_total")
}

func TestBuildAppDirectDelivery(t *testing.T) {
	cfg := memoryConfig()
	cfg.EventDelivery = "direct"
	cfg.RateLimitRPS = 5
	cfg.RateLimitBurst = 5

	a, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.relay)
	assert.NotNil(t, a.limiter)
}

func TestBuildAppWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := memoryConfig()
	cfg.RedisEnabled = true
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.DeadLetterStream = "dlq"

	a, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close()

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis unhealthy")
}

func TestBuildAppRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := memoryConfig()
	cfg.RedisEnabled = true
	cfg.RedisURL = "redis://" + addr

	_, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestBuildAppRejectsUnknownDelivery(t *testing.T) {
	cfg := memoryConfig()
	cfg.EventDelivery = "carrier-pigeon"

	_, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestBuildAppRequiresBrokers(t *testing.T) {
	cfg := memoryConfig()
	cfg.KafkaBrokers = nil

	_, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}

func TestAppRunStopsOnCancel(t *testing.T) {
	a, err := buildApp(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	up, _, err := root.Find([]string{"migrate", "up"})
	require.NoError(t, err)
	assert.Equal(t, "up", up.Name())

	down, _, err := root.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	assert.Equal(t, "down", down.Name())
}

func TestLoadConfigRejectsInvalidEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	_, _, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}
