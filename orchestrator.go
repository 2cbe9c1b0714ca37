package main

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Orchestrator fills a desired quantity from a ranked candidate list. It
// walks products in catalog order, tries the available variants of each, and
// stops as soon as the quantity is met. Reservations are single units; the
// surface rejects bulk adds during a sale.
type Orchestrator struct {
	reservations ReservationClient
	log          *slog.Logger

	variantCap   int
	variantDelay time.Duration
	productDelay time.Duration
	dryRun       bool
}

func NewOrchestrator(reservations ReservationClient, cfg *Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		reservations: reservations,
		log:          log,
		variantCap:   cfg.VariantAttemptCap,
		variantDelay: time.Duration(cfg.VariantDelayMs) * time.Millisecond,
		productDelay: time.Duration(cfg.ProductDelayMs) * time.Millisecond,
		dryRun:       cfg.DryRun,
	}
}

// ReserveQuantity greedily reserves up to desired units across candidates.
// Per product at most variantCap reservation calls are made, over available
// variants only, so one stubborn product cannot burn the sale window. The
// outcome reports partial fills; Success means at least one unit landed.
func (o *Orchestrator) ReserveQuantity(ctx context.Context, campaignID string, candidates []Product, desired int) ExecutionOutcome {
	outcome := ExecutionOutcome{TotalFound: len(candidates)}
	if desired < 1 {
		desired = 1
	}

	for pi, product := range candidates {
		if outcome.UnitsReserved >= desired {
			break
		}
		if ctx.Err() != nil {
			outcome.ErrorMessage = ctx.Err().Error()
			break
		}

		if o.reserveProduct(ctx, campaignID, product) {
			outcome.UnitsReserved++
		} else {
			outcome.UnitsFailed++
		}

		if outcome.UnitsReserved < desired && pi < len(candidates)-1 {
			o.pause(ctx, o.productDelay)
		}
	}

	outcome.Success = outcome.UnitsReserved > 0
	return outcome
}

// reserveProduct tries one product's variants in order and reports whether
// a unit was reserved.
func (o *Orchestrator) reserveProduct(ctx context.Context, campaignID string, product Product) bool {
	attempts := 0
	for _, variant := range product.Variants {
		if attempts >= o.variantCap {
			break
		}
		if variant.Availability != Available {
			continue
		}
		if ctx.Err() != nil {
			return false
		}

		attempts++
		if attempts > 1 {
			o.pause(ctx, o.variantDelay)
		}

		if o.dryRun {
			o.log.Info("dry run: would reserve",
				"configSku", product.ConfigSKU, "simpleSku", variant.SimpleSKU, "size", variant.Size)
			return true
		}

		err := o.reservations.Reserve(ctx, campaignID, product.ConfigSKU, variant.SimpleSKU)
		if err == nil {
			return true
		}

		var resErr *ReservationError
		if errors.As(err, &resErr) {
			o.log.Warn("variant reservation failed",
				"configSku", product.ConfigSKU, "simpleSku", variant.SimpleSKU, "reason", resErr.Reason)
		} else {
			o.log.Warn("variant reservation failed",
				"configSku", product.ConfigSKU, "simpleSku", variant.SimpleSKU, "error", err)
		}
	}
	return false
}

func (o *Orchestrator) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
