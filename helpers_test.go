package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns defaults with all pacing delays zeroed so tests run
// instantly.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.VariantDelayMs = 0
	cfg.ProductDelayMs = 0
	cfg.RetryBackoffBaseMs = 1
	cfg.RetryBackoffCapMs = 2
	cfg.SchedulerPollMs = 1
	cfg.DOMWaitTimeoutMs = 50
	cfg.DOMPollIntervalMs = 1
	return cfg
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}
