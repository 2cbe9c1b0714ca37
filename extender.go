package main

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

const cartExtensionTimer = "cart_extension"

// CartExtender keeps a won reservation alive by touching the cart on a
// jittered interval. The schedule is a single self-rearming timer persisted
// through TimerService, so extension survives process restarts; the enabled
// flag lives in settings and is the source of truth.
type CartExtender struct {
	store        *CampaignStore
	timers       *TimerService
	reservations ReservationClient
	log          *slog.Logger

	minDelay time.Duration
	maxDelay time.Duration
}

func NewCartExtender(store *CampaignStore, timers *TimerService, reservations ReservationClient,
	cfg *Config, log *slog.Logger) *CartExtender {
	minDelay := time.Duration(cfg.ExtensionMinMinutes) * time.Minute
	maxDelay := time.Duration(cfg.ExtensionMaxMinutes) * time.Minute
	if maxDelay <= minDelay {
		maxDelay = minDelay + time.Minute
	}
	return &CartExtender{
		store:        store,
		timers:       timers,
		reservations: reservations,
		log:          log,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
	}
}

// Enable turns auto-extension on and arms the timer. Re-enabling just
// re-arms the single timer, there is never more than one pending.
func (x *CartExtender) Enable(ctx context.Context) error {
	if err := x.store.SetAutoExtend(ctx, true); err != nil {
		return err
	}
	delay := x.nextDelay()
	x.log.Info("cart auto-extension enabled", "next_in", delay)
	return x.timers.ScheduleIn(ctx, cartExtensionTimer, delay)
}

// Disable turns auto-extension off and cancels any pending timer.
func (x *CartExtender) Disable(ctx context.Context) error {
	if err := x.store.SetAutoExtend(ctx, false); err != nil {
		return err
	}
	x.log.Info("cart auto-extension disabled")
	return x.timers.Cancel(ctx, cartExtensionTimer)
}

// HandleTimer is the dispatch target for the extension timer. Extension
// errors are swallowed: a failed touch costs nothing, the next one may
// succeed, and the reservation is best kept warm rather than abandoned.
func (x *CartExtender) HandleTimer(ctx context.Context) error {
	settings, err := x.store.Settings(ctx)
	if err != nil {
		return err
	}
	if !settings.AutoExtendCart {
		x.log.Debug("cart extension timer fired while disabled, ignoring")
		return nil
	}

	if err := x.reservations.ExtendCart(ctx); err != nil {
		x.log.Warn("cart extension failed", "error", err)
	} else {
		x.log.Info("cart reservation extended")
	}

	delay := x.nextDelay()
	return x.timers.ScheduleIn(ctx, cartExtensionTimer, delay)
}

// RestoreOnStartup re-arms the timer when the persisted flag says extension
// should be running but no timer is pending, e.g. after a crash.
func (x *CartExtender) RestoreOnStartup(ctx context.Context) error {
	settings, err := x.store.Settings(ctx)
	if err != nil {
		return err
	}
	if !settings.AutoExtendCart {
		return nil
	}

	pending, err := x.timers.Pending(ctx)
	if err != nil {
		return err
	}
	if _, armed := pending[cartExtensionTimer]; armed {
		return nil
	}

	delay := x.nextDelay()
	x.log.Info("restoring cart extension schedule", "next_in", delay)
	return x.timers.ScheduleIn(ctx, cartExtensionTimer, delay)
}

// nextDelay draws a uniform delay in [min, max). Jitter keeps the touch
// pattern from looking like a fixed-period bot.
func (x *CartExtender) nextDelay() time.Duration {
	span := x.maxDelay - x.minDelay
	return x.minDelay + time.Duration(rand.Int63n(int64(span)))
}
