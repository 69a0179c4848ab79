package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestRedisClient starts an in-process Redis and a client bound to it.
// The client is pinged so scripts and streams fail here rather than mid-test.
func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr:     mr.Addr(),
		Protocol: 2,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to reach miniredis: %v", err)
	}

	return client, mr
}
