package main

import (
	"time"
)

// Campaign statuses. A campaign moves Scheduled -> Running -> one of the
// terminal states; terminal states are final.
const (
	StatusScheduled          = "scheduled"
	StatusRunning            = "running"
	StatusSucceeded          = "succeeded"
	StatusPartiallySucceeded = "partial"
	StatusFailed             = "failed"
)

// Campaign is a scheduled, filtered, quantity-bounded attempt to reserve
// inventory from a single sale event.
type Campaign struct {
	ID string `json:"id"`

	// ScheduledTime is the execution instant in epoch milliseconds.
	ScheduledTime int64 `json:"scheduledTime"`

	// PreExecutionDelay is extra milliseconds to wait after the scheduled
	// instant before the first network call, as jitter against
	// exact-second contention.
	PreExecutionDelay int64 `json:"preExecutionDelay,omitempty"`

	Filters         FilterSpec `json:"filters"`
	SortMethod      string     `json:"sortMethod"`
	DesiredQuantity int        `json:"desiredQuantity"`

	Status string `json:"status,omitempty"`

	// Result is set exactly once, when the campaign reaches a terminal
	// state. A campaign with a non-nil Result is immutable except for
	// deletion.
	Result *ExecutionResult `json:"executionResult,omitempty"`
}

// ScheduledAt returns the scheduled instant as a time.Time.
func (c *Campaign) ScheduledAt() time.Time {
	return time.UnixMilli(c.ScheduledTime)
}

// FilterSpec is the user-facing search criteria for a campaign.
//
// At most one of the four subcategory fields may be set; setting one clears
// the others at the form boundary, and the translator enforces the same rule
// defensively (first set wins, in declaration order).
type FilterSpec struct {
	Brands   []string `json:"brands,omitempty"`
	Size     string   `json:"size,omitempty"`
	Color    string   `json:"color,omitempty"`
	MaxPrice float64  `json:"maxPrice,omitempty"`

	Gender              string `json:"gender,omitempty"`
	ClothingCategory    string `json:"clothingCategory,omitempty"`
	ShoesCategory       string `json:"shoesCategory,omitempty"`
	AccessoriesCategory string `json:"accessoriesCategory,omitempty"`
	EquipmentCategory   string `json:"equipmentCategory,omitempty"`

	IncludeSoldOut bool `json:"includeSoldOut,omitempty"`
}

// ExecutionResult is the persisted summary of a finished execution.
type ExecutionResult struct {
	Attempted      bool   `json:"attempted"`
	SucceededCount int    `json:"succeededCount"`
	FoundCount     int    `json:"foundCount"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

// Availability of a single variant as reported by the catalog.
type Availability string

const (
	Available           Availability = "AVAILABLE"
	VariantSoldOut      Availability = "SOLD_OUT"
	AvailabilityUnknown Availability = "UNKNOWN"
)

// ProductVariant is one sellable size/option ("simple") of a parent product.
// Variant values are fetched fresh per execution attempt and never cached
// across campaign runs.
type ProductVariant struct {
	SimpleSKU    string
	Size         string
	Availability Availability
}

// Product is a catalog candidate: a parent config plus its variants, in the
// order the execution surface returned them.
type Product struct {
	ConfigSKU string
	Name      string
	Variants  []ProductVariant
}

// ExecutionOutcome aggregates one orchestration run. A partial fill is still
// Success=true with the actual count; the caller decides presentation.
type ExecutionOutcome struct {
	Success       bool
	TotalFound    int
	UnitsReserved int
	UnitsFailed   int
	ErrorMessage  string
}

// TerminalStatus maps an outcome onto the campaign state machine.
func (o ExecutionOutcome) TerminalStatus(desired int) string {
	switch {
	case o.UnitsReserved >= desired && desired > 0:
		return StatusSucceeded
	case o.UnitsReserved > 0:
		return StatusPartiallySucceeded
	default:
		return StatusFailed
	}
}

// Settings is the single shared settings document in the persistent store.
type Settings struct {
	DefaultSortMethod string `json:"defaultSortMethod"`
	MaxItemsToAdd     int    `json:"maxItemsToAdd"`
	DebugMode         bool   `json:"debugMode"`
	AutoExtendCart    bool   `json:"autoExtendCart"`
}

// DefaultSettings mirrors the values written on first install.
func DefaultSettings() Settings {
	return Settings{
		DefaultSortMethod: "Popularne",
		MaxItemsToAdd:     5,
	}
}
