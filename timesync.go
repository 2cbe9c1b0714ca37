package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// TimeSync estimates the offset between the local clock and wall-clock time
// by sampling Date headers from a set of reliable servers. Campaign timers
// fire on synchronized time so a drifting local clock cannot miss a sale
// window.
type TimeSync struct {
	servers      []string
	offset       time.Duration
	lastSyncTime time.Time
	synced       bool
	log          *slog.Logger
}

func NewTimeSync(servers []string, log *slog.Logger) *TimeSync {
	if len(servers) == 0 {
		servers = []string{
			"https://www.google.com",
			"https://www.cloudflare.com",
			"https://www.amazon.com",
		}
	}
	return &TimeSync{servers: servers, log: log}
}

// Sync samples every configured server and averages the offsets. It fails
// only if no server answered.
func (ts *TimeSync) Sync() error {
	var totalOffset time.Duration
	successCount := 0

	for _, server := range ts.servers {
		offset, err := ts.getTimeOffset(server)
		if err != nil {
			ts.log.Debug("time sync server failed", "server", server, "error", err)
			continue
		}

		totalOffset += offset
		successCount++
		ts.log.Debug("time sync sample", "server", server, "offset", offset)
	}

	if successCount == 0 {
		return fmt.Errorf("failed to sync time with any server")
	}

	ts.offset = totalOffset / time.Duration(successCount)
	ts.lastSyncTime = time.Now()
	ts.synced = true

	ts.log.Info("time synchronized", "offset", ts.offset, "servers", successCount)
	return nil
}

// getTimeOffset makes an HTTP HEAD request and calculates the offset from
// the Date header, compensating for half the round trip.
func (ts *TimeSync) getTimeOffset(url string) (time.Duration, error) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	beforeRequest := time.Now()

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	afterRequest := time.Now()

	dateHeader := resp.Header.Get("Date")
	if dateHeader == "" {
		return 0, fmt.Errorf("no Date header in response")
	}

	serverTime, err := http.ParseTime(dateHeader)
	if err != nil {
		return 0, fmt.Errorf("failed to parse Date header: %w", err)
	}

	latency := afterRequest.Sub(beforeRequest) / 2
	localTime := beforeRequest.Add(latency)
	return serverTime.Sub(localTime), nil
}

// Now returns the current synchronized time, or local time before the first
// successful sync.
func (ts *TimeSync) Now() time.Time {
	if !ts.synced {
		return time.Now()
	}
	return time.Now().Add(ts.offset)
}

func (ts *TimeSync) IsSynced() bool {
	return ts.synced
}

func (ts *TimeSync) GetOffset() time.Duration {
	return ts.offset
}

// ShouldResync reports whether the last sync is stale (over an hour old).
func (ts *TimeSync) ShouldResync() bool {
	if !ts.synced {
		return true
	}
	return time.Since(ts.lastSyncTime) > 1*time.Hour
}
