package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// SiteURL is the root of the target store. The private API lives under
	// SiteURL + "/api/phoenix".
	SiteURL string `yaml:"site_url" env:"SITE_URL"`

	// Mode selects the execution surface: "api" issues direct HTTP calls,
	// "dom" drives the rendered pages through the browser.
	Mode string `yaml:"mode" env:"MODE"`

	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`

	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"REQUEST_TIMEOUT_SECONDS"`
	PageSize              int `yaml:"page_size" env:"PAGE_SIZE"`

	// Reservation rate shaping. Both delays are politeness measures, not
	// correctness requirements.
	VariantAttemptCap int `yaml:"variant_attempt_cap" env:"VARIANT_ATTEMPT_CAP"`
	VariantDelayMs    int `yaml:"variant_delay_ms" env:"VARIANT_DELAY_MS"`
	ProductDelayMs    int `yaml:"product_delay_ms" env:"PRODUCT_DELAY_MS"`

	// Coarse whole-pipeline retry.
	MaxExecutionAttempts int `yaml:"max_execution_attempts" env:"MAX_EXECUTION_ATTEMPTS"`
	RetryBackoffBaseMs   int `yaml:"retry_backoff_base_ms" env:"RETRY_BACKOFF_BASE_MS"`
	RetryBackoffCapMs    int `yaml:"retry_backoff_cap_ms" env:"RETRY_BACKOFF_CAP_MS"`

	SchedulerPollMs int `yaml:"scheduler_poll_ms" env:"SCHEDULER_POLL_MS"`

	// Cart extension rescheduling window. The delay is drawn uniformly from
	// [min, max] so the keep-alive calls never form a fixed interval.
	ExtensionMinMinutes int `yaml:"extension_min_minutes" env:"EXTENSION_MIN_MINUTES"`
	ExtensionMaxMinutes int `yaml:"extension_max_minutes" env:"EXTENSION_MAX_MINUTES"`

	TimeServers []string `yaml:"time_servers"`

	NotifyWebhookURL string `yaml:"notify_webhook_url" env:"NOTIFY_WEBHOOK_URL"`

	BrowserProfilePath string `yaml:"browser_profile_path" env:"BROWSER_PROFILE_PATH"`
	Headless           bool   `yaml:"headless" env:"HEADLESS"`
	ViewportWidth      int    `yaml:"viewport_width"`
	ViewportHeight     int    `yaml:"viewport_height"`

	// DOM wait tuning for the automation surface.
	DOMWaitTimeoutMs  int `yaml:"dom_wait_timeout_ms" env:"DOM_WAIT_TIMEOUT_MS"`
	DOMPollIntervalMs int `yaml:"dom_poll_interval_ms" env:"DOM_POLL_INTERVAL_MS"`

	DryRun    bool `yaml:"dry_run" env:"DRY_RUN"`
	DebugMode bool `yaml:"debug_mode" env:"DEBUG_MODE"`

	Log LogConfig `yaml:"log" envPrefix:"LOG_"`

	Selectors SelectorConfig `yaml:"selectors"`
}

// LogConfig configures the structured logger. Level is one of "debug",
// "info", "warn", "error"; Format is "text" or "json". Unknown values fall
// back to info/text.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler builds the slog handler described by the config.
func (c LogConfig) Handler() slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.ToLower(c.Format) == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// SelectorConfig holds the page anchors the DOM surface depends on. The
// on-page structure is an unstable external contract, so every selector is
// configurable.
type SelectorConfig struct {
	FilterTabs       string `yaml:"filter_tabs"`
	SubFilterWrapper string `yaml:"sub_filter_wrapper"`
	CategoryFilter   string `yaml:"category_filter"`
	FilterOption     string `yaml:"filter_option"`
	ArticleTile      string `yaml:"article_tile"`
	SizePicker       string `yaml:"size_picker"`
	AddToCartButton  string `yaml:"add_to_cart_button"`
}

func DefaultConfig() *Config {
	userDataDir := getUserDataDir()

	return &Config{
		SiteURL:               "https://www.zalando-lounge.pl",
		Mode:                  "api",
		RedisAddr:             "localhost:6379",
		RequestTimeoutSeconds: 15,
		PageSize:              60,
		VariantAttemptCap:     3,
		VariantDelayMs:        300,
		ProductDelayMs:        500,
		MaxExecutionAttempts:  3,
		RetryBackoffBaseMs:    1000,
		RetryBackoffCapMs:     10000,
		SchedulerPollMs:       500,
		ExtensionMinMinutes:   2,
		ExtensionMaxMinutes:   7,
		TimeServers: []string{
			"https://www.google.com",
			"https://www.cloudflare.com",
			"https://www.amazon.com",
		},
		BrowserProfilePath: filepath.Join(userDataDir, "browser-profile"),
		Headless:           false,
		ViewportWidth:      1920,
		ViewportHeight:     1080,
		DOMWaitTimeoutMs:   5000,
		DOMPollIntervalMs:  100,
		Log:                LogConfig{Level: "info", Format: "text"},
		Selectors: SelectorConfig{
			FilterTabs:       `[data-testid="filter-tabs-container-with-header"]`,
			SubFilterWrapper: `[data-testid="sub-filter-wrapper"]`,
			CategoryFilter:   `[data-testid="category-filter"]`,
			FilterOption:     `label.filter-option`,
			ArticleTile:      `article[data-testid="article-tile"]`,
			SizePicker:       `[data-testid="size-picker"] button`,
			AddToCartButton:  `button[data-testid="add-to-cart"]`,
		},
	}
}

// LoadConfig reads the yaml file at path (writing defaults there when it does
// not exist), then applies RESVI_-prefixed environment overrides.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: "RESVI_"}); err != nil {
		return nil, err
	}

	if config.BrowserProfilePath != "" {
		if err := os.MkdirAll(config.BrowserProfilePath, 0755); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func getUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./resvi-data"
	}
	return filepath.Join(home, ".resvi")
}
