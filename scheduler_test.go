package main

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTimerServiceScheduleAndPending(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ts := NewTimerService(testRedis(t), func() time.Time { return now }, time.Second, testLogger())
	ctx := context.Background()

	when := now.Add(5 * time.Minute)
	if err := ts.ScheduleAt(ctx, "campaign_zl1", when); err != nil {
		t.Fatalf("ScheduleAt: %v", err)
	}
	if err := ts.ScheduleIn(ctx, "cart_extension", 3*time.Minute); err != nil {
		t.Fatalf("ScheduleIn: %v", err)
	}

	pending, err := ts.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending timers, want 2", len(pending))
	}
	if !pending["campaign_zl1"].Equal(when) {
		t.Errorf("campaign timer at %v, want %v", pending["campaign_zl1"], when)
	}
	if !pending["cart_extension"].Equal(now.Add(3 * time.Minute)) {
		t.Errorf("extension timer at %v", pending["cart_extension"])
	}
}

func TestTimerServiceRescheduleReplaces(t *testing.T) {
	now := time.Now()
	ts := NewTimerService(testRedis(t), func() time.Time { return now }, time.Second, testLogger())
	ctx := context.Background()

	if err := ts.ScheduleIn(ctx, "cart_extension", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := ts.ScheduleIn(ctx, "cart_extension", 2*time.Minute); err != nil {
		t.Fatal(err)
	}

	pending, err := ts.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("got %d pending timers, want 1 (re-arm replaces)", len(pending))
	}
}

func TestTimerServiceCancel(t *testing.T) {
	ts := NewTimerService(testRedis(t), time.Now, time.Second, testLogger())
	ctx := context.Background()

	if err := ts.ScheduleIn(ctx, "campaign_zl1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := ts.Cancel(ctx, "campaign_zl1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := ts.Cancel(ctx, "never_existed"); err != nil {
		t.Errorf("cancelling unknown timer must be a no-op, got %v", err)
	}

	pending, err := ts.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending timers, want 0", len(pending))
	}
}

func TestTimerServiceFiresDueOnce(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ts := NewTimerService(testRedis(t), func() time.Time { return now }, time.Second, testLogger())
	ctx := context.Background()

	var mu sync.Mutex
	fired := map[string]int{}
	done := make(chan struct{}, 4)
	ts.SetHandler(func(ctx context.Context, name string) error {
		mu.Lock()
		fired[name]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	if err := ts.ScheduleAt(ctx, "campaign_due", now.Add(-time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := ts.ScheduleAt(ctx, "campaign_future", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	if err := ts.fireDue(ctx); err != nil {
		t.Fatalf("fireDue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("due timer never dispatched")
	}

	// A second pass must not re-fire the claimed timer.
	if err := ts.fireDue(ctx); err != nil {
		t.Fatalf("fireDue second pass: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired["campaign_due"] != 1 {
		t.Errorf("campaign_due fired %d times, want exactly 1", fired["campaign_due"])
	}
	if fired["campaign_future"] != 0 {
		t.Error("future timer fired early")
	}

	pending, err := ts.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pending["campaign_future"]; !ok {
		t.Error("future timer lost")
	}
	if _, ok := pending["campaign_due"]; ok {
		t.Error("fired timer still pending")
	}
}

func TestTimerServiceDropsMalformedEntries(t *testing.T) {
	rdb := testRedis(t)
	ts := NewTimerService(rdb, time.Now, time.Second, testLogger())
	ctx := context.Background()

	if err := rdb.HSet(ctx, timersKey, "broken", "not-a-number").Err(); err != nil {
		t.Fatal(err)
	}

	pending, err := ts.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("malformed entry surfaced: %v", pending)
	}
}
