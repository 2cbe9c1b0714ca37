package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Engine runs one campaign end to end: translate filters, find candidates,
// reserve, persist the outcome, notify, and arm the cart extender on
// success. Run never panics outward; every failure path ends in a persisted
// result and a notification.
type Engine struct {
	store        *CampaignStore
	catalog      CatalogClient
	orchestrator *Orchestrator
	translator   *FilterTranslator
	extender     *CartExtender
	notifier     Notifier
	log          *slog.Logger

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

func NewEngine(store *CampaignStore, catalog CatalogClient, orchestrator *Orchestrator,
	translator *FilterTranslator, extender *CartExtender, notifier Notifier,
	cfg *Config, log *slog.Logger) *Engine {
	return &Engine{
		store:        store,
		catalog:      catalog,
		orchestrator: orchestrator,
		translator:   translator,
		extender:     extender,
		notifier:     notifier,
		log:          log,
		maxAttempts:  cfg.MaxExecutionAttempts,
		backoffBase:  time.Duration(cfg.RetryBackoffBaseMs) * time.Millisecond,
		backoffCap:   time.Duration(cfg.RetryBackoffCapMs) * time.Millisecond,
	}
}

// Run executes the named campaign. Re-running a campaign that already has a
// recorded result is a no-op; a stale timer firing twice must not buy twice.
func (e *Engine) Run(ctx context.Context, campaignID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("campaign %s: panic during execution: %v", campaignID, r)
			e.log.Error("campaign execution panicked", "campaign", campaignID, "panic", r)
		}
	}()

	campaign, err := e.store.Campaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			e.notifier.Notify(ctx, "Błąd Kampanii",
				fmt.Sprintf("Kampania %s nie istnieje", campaignID))
		}
		return err
	}

	if campaign.Result != nil {
		e.log.Info("campaign already executed, skipping", "campaign", campaignID, "status", campaign.Status)
		return nil
	}

	if err := e.store.SetStatus(ctx, campaignID, StatusRunning); err != nil {
		e.log.Warn("failed to mark campaign running", "campaign", campaignID, "error", err)
	}

	if campaign.PreExecutionDelay > 0 {
		e.log.Info("pre-execution delay", "campaign", campaignID, "delay_ms", campaign.PreExecutionDelay)
		select {
		case <-ctx.Done():
			return e.finish(ctx, campaign, ExecutionOutcome{ErrorMessage: ctx.Err().Error()})
		case <-time.After(time.Duration(campaign.PreExecutionDelay) * time.Millisecond):
		}
	}

	outcome := e.execute(ctx, campaign)
	return e.finish(ctx, campaign, outcome)
}

// execute runs the search-and-reserve pipeline with coarse retries. A retry
// covers pipeline errors and empty catalogs; once candidates were found the
// reservation pass runs exactly once, partial fills are final.
func (e *Engine) execute(ctx context.Context, campaign *Campaign) ExecutionOutcome {
	query := e.translator.Translate(campaign.Filters, campaign.SortMethod)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.backoff(attempt)
			e.log.Info("retrying campaign", "campaign", campaign.ID, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ExecutionOutcome{ErrorMessage: ctx.Err().Error()}
			case <-time.After(delay):
			}
		}

		candidates, err := e.catalog.Search(ctx, campaign.ID, query)
		if err != nil {
			lastErr = err
			e.log.Warn("catalog search failed", "campaign", campaign.ID, "attempt", attempt, "error", err)
			continue
		}
		if len(candidates) == 0 {
			lastErr = errors.New("no matching products found")
			e.log.Info("catalog empty", "campaign", campaign.ID, "attempt", attempt)
			continue
		}

		return e.orchestrator.ReserveQuantity(ctx, campaign.ID, candidates, campaign.DesiredQuantity)
	}

	if lastErr == nil {
		lastErr = errors.New("execution attempts exhausted")
	}
	return ExecutionOutcome{ErrorMessage: lastErr.Error()}
}

// backoff returns the delay before the given attempt: base doubling per
// retry, clamped to the cap.
func (e *Engine) backoff(attempt int) time.Duration {
	d := e.backoffBase << (attempt - 2)
	if d > e.backoffCap || d <= 0 {
		d = e.backoffCap
	}
	return d
}

// finish persists the outcome, sends exactly one notification, and arms the
// cart extender when anything was reserved.
func (e *Engine) finish(ctx context.Context, campaign *Campaign, outcome ExecutionOutcome) error {
	result := &ExecutionResult{
		Attempted:      true,
		SucceededCount: outcome.UnitsReserved,
		FoundCount:     outcome.TotalFound,
		ErrorMessage:   outcome.ErrorMessage,
	}
	status := outcome.TerminalStatus(campaign.DesiredQuantity)

	if err := e.store.SetResult(ctx, campaign.ID, result, status); err != nil {
		e.log.Error("failed to persist campaign result", "campaign", campaign.ID, "error", err)
	}

	if outcome.UnitsReserved > 0 {
		e.notifier.Notify(ctx, "Kampania Zakończona!",
			fmt.Sprintf("Zarezerwowano %d z %d produktów (znaleziono %d)",
				outcome.UnitsReserved, campaign.DesiredQuantity, outcome.TotalFound))
		if err := e.extender.Enable(ctx); err != nil {
			e.log.Error("failed to enable cart extension", "campaign", campaign.ID, "error", err)
		}
	} else {
		message := outcome.ErrorMessage
		if message == "" {
			message = "nie udało się zarezerwować żadnego produktu"
		}
		e.notifier.Notify(ctx, "Błąd Kampanii",
			fmt.Sprintf("Kampania %s: %s", campaign.ID, message))
	}

	e.log.Info("campaign finished",
		"campaign", campaign.ID,
		"status", status,
		"reserved", outcome.UnitsReserved,
		"found", outcome.TotalFound)

	if outcome.UnitsReserved == 0 && outcome.ErrorMessage != "" {
		return fmt.Errorf("campaign %s failed: %s", campaign.ID, outcome.ErrorMessage)
	}
	return nil
}
