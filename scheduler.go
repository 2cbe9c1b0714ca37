package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const timersKey = "timers"

// TimerHandler receives the name of an expired timer. Handlers are invoked
// on their own goroutine; returning an error only logs it.
type TimerHandler func(ctx context.Context, name string) error

// TimerService keeps named one-shot timers in a redis hash so pending work
// survives restarts. Due timers are claimed with HDEL before dispatch: the
// delete succeeding is the claim, so a timer fires at most once even with
// several pollers against the same redis.
type TimerService struct {
	rdb    *redis.Client
	now    func() time.Time
	poll   time.Duration
	log    *slog.Logger
	handle TimerHandler
}

func NewTimerService(rdb *redis.Client, now func() time.Time, poll time.Duration, log *slog.Logger) *TimerService {
	if now == nil {
		now = time.Now
	}
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &TimerService{rdb: rdb, now: now, poll: poll, log: log}
}

// SetHandler installs the dispatch target. Must be called before Run.
func (t *TimerService) SetHandler(h TimerHandler) { t.handle = h }

// ScheduleAt arms (or re-arms) a named timer for the given wall-clock time.
func (t *TimerService) ScheduleAt(ctx context.Context, name string, when time.Time) error {
	if err := t.rdb.HSet(ctx, timersKey, name, when.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("scheduling timer %s: %w", name, err)
	}
	return nil
}

func (t *TimerService) ScheduleIn(ctx context.Context, name string, delay time.Duration) error {
	return t.ScheduleAt(ctx, name, t.now().Add(delay))
}

// Cancel removes a pending timer. Cancelling an unknown name is a no-op.
func (t *TimerService) Cancel(ctx context.Context, name string) error {
	if err := t.rdb.HDel(ctx, timersKey, name).Err(); err != nil {
		return fmt.Errorf("cancelling timer %s: %w", name, err)
	}
	return nil
}

// Pending returns all armed timers and their fire times.
func (t *TimerService) Pending(ctx context.Context) (map[string]time.Time, error) {
	entries, err := t.rdb.HGetAll(ctx, timersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing timers: %w", err)
	}
	pending := make(map[string]time.Time, len(entries))
	for name, raw := range entries {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			t.log.Warn("dropping malformed timer", "name", name, "value", raw)
			t.rdb.HDel(ctx, timersKey, name)
			continue
		}
		pending[name] = time.UnixMilli(ms)
	}
	return pending, nil
}

// Run polls for due timers until the context is cancelled.
func (t *TimerService) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.fireDue(ctx); err != nil {
				t.log.Error("timer poll failed", "error", err)
			}
		}
	}
}

func (t *TimerService) fireDue(ctx context.Context) error {
	pending, err := t.Pending(ctx)
	if err != nil {
		return err
	}

	now := t.now()
	for name, when := range pending {
		if when.After(now) {
			continue
		}
		claimed, err := t.rdb.HDel(ctx, timersKey, name).Result()
		if err != nil {
			return fmt.Errorf("claiming timer %s: %w", name, err)
		}
		if claimed == 0 {
			continue
		}
		t.dispatch(ctx, name)
	}
	return nil
}

func (t *TimerService) dispatch(ctx context.Context, name string) {
	if t.handle == nil {
		t.log.Warn("timer fired with no handler installed", "name", name)
		return
	}
	go func() {
		if err := t.handle(ctx, name); err != nil {
			t.log.Error("timer handler failed", "name", name, "error", err)
		}
	}()
}
