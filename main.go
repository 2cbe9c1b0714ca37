package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const campaignTimerPrefix = "campaign_"

func main() {
	configPath := flag.String("config", filepath.Join(getUserDataDir(), "config.yaml"), "Path to configuration file")
	serve := flag.Bool("serve", false, "Run the scheduler loop and execute campaigns as they come due")
	list := flag.Bool("list", false, "List stored campaigns and exit")
	cancel := flag.String("cancel", "", "Cancel the campaign with this ID and exit")
	runNow := flag.String("run-now", "", "Execute the campaign with this ID immediately and exit")
	mode := flag.String("mode", "", "Execution surface: api or dom (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Count matches without reserving anything")
	debug := flag.Bool("debug", false, "Enable debug logging")
	extendCart := flag.String("extend-cart", "", "Turn cart auto-extension on or off and exit")

	schedule := flag.Bool("schedule", false, "Schedule a new campaign from the flags below and exit")
	campaignID := flag.String("id", "", "Campaign (sale event) identifier; generated when empty")
	at := flag.String("at", "", "Execution time, e.g. \"2026-09-01 07:00\" (UTC)")
	delayMs := flag.Int64("delay-ms", 0, "Extra delay in milliseconds after the scheduled instant")
	brands := flag.String("brands", "", "Comma-separated brand names or codes")
	size := flag.String("size", "", "Size expression, e.g. \"46\" or \"M,L\"")
	color := flag.String("color", "", "Color name")
	maxPrice := flag.Float64("max-price", 0, "Price ceiling in major currency units")
	sortMethod := flag.String("sort", "", "Sort method, e.g. Popularne or \"Najniższa cena\"")
	quantity := flag.Int("quantity", 1, "Units to reserve")
	gender := flag.String("gender", "", "Gender filter: male, female or unisex")
	clothing := flag.String("clothing-category", "", "Clothing subcategory")
	shoes := flag.String("shoes-category", "", "Shoes subcategory")
	accessories := flag.String("accessories-category", "", "Accessories subcategory")
	equipment := flag.String("equipment-category", "", "Sport equipment subcategory")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *mode != "" {
		config.Mode = *mode
	}
	if *dryRun {
		config.DryRun = true
	}
	if *debug {
		config.DebugMode = true
		config.Log.Level = "debug"
	}

	logger := slog.New(config.Log.Handler())
	slog.SetDefault(logger)

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
	defer rdb.Close()
	store := NewCampaignStore(rdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *schedule:
		err = scheduleCampaign(ctx, store, rdb, config, logger, scheduleArgs{
			id: *campaignID, at: *at, delayMs: *delayMs,
			brands: *brands, size: *size, color: *color, maxPrice: *maxPrice,
			sortMethod: *sortMethod, quantity: *quantity, gender: *gender,
			clothing: *clothing, shoes: *shoes, accessories: *accessories, equipment: *equipment,
		})
	case *list:
		err = listCampaigns(ctx, store)
	case *cancel != "":
		err = cancelCampaign(ctx, store, rdb, config, logger, *cancel)
	case *extendCart != "":
		err = toggleExtendCart(ctx, store, rdb, config, logger, *extendCart)
	case *runNow != "" || *serve:
		err = runEngine(ctx, store, rdb, config, logger, *runNow)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type scheduleArgs struct {
	id, at                                  string
	delayMs                                 int64
	brands, size, color                     string
	maxPrice                                float64
	sortMethod                              string
	quantity                                int
	gender                                  string
	clothing, shoes, accessories, equipment string
}

func scheduleCampaign(ctx context.Context, store *CampaignStore, rdb *redis.Client,
	config *Config, logger *slog.Logger, args scheduleArgs) error {
	if args.at == "" {
		return fmt.Errorf("-at is required when scheduling")
	}
	when, err := ParseScheduleTime(args.at)
	if err != nil {
		return err
	}
	if !when.After(time.Now()) {
		return fmt.Errorf("scheduled time %s is in the past", when.UTC().Format("2006-01-02 15:04:05"))
	}

	id := args.id
	if id == "" {
		id = uuid.NewString()
	}

	settings, err := store.Settings(ctx)
	if err != nil {
		return err
	}
	sortMethod := args.sortMethod
	if sortMethod == "" {
		sortMethod = settings.DefaultSortMethod
	}
	quantity := args.quantity
	if quantity < 1 {
		quantity = 1
	}
	if settings.MaxItemsToAdd > 0 && quantity > settings.MaxItemsToAdd {
		quantity = settings.MaxItemsToAdd
	}

	var brandList []string
	for _, b := range strings.Split(args.brands, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brandList = append(brandList, b)
		}
	}

	campaign := &Campaign{
		ID:                id,
		ScheduledTime:     when.UnixMilli(),
		PreExecutionDelay: args.delayMs,
		Filters: FilterSpec{
			Brands:              brandList,
			Size:                args.size,
			Color:               args.color,
			MaxPrice:            args.maxPrice,
			Gender:              args.gender,
			ClothingCategory:    args.clothing,
			ShoesCategory:       args.shoes,
			AccessoriesCategory: args.accessories,
			EquipmentCategory:   args.equipment,
		},
		SortMethod:      sortMethod,
		DesiredQuantity: quantity,
		Status:          StatusScheduled,
	}

	if err := store.SaveCampaign(ctx, campaign); err != nil {
		return err
	}

	timers := NewTimerService(rdb, time.Now, time.Duration(config.SchedulerPollMs)*time.Millisecond, logger)
	if err := timers.ScheduleAt(ctx, campaignTimerPrefix+id, when); err != nil {
		return err
	}

	fmt.Printf("Scheduled campaign %s for %s UTC\n", id, when.UTC().Format("2006-01-02 15:04:05"))
	return nil
}

func listCampaigns(ctx context.Context, store *CampaignStore) error {
	campaigns, err := store.Campaigns(ctx)
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		fmt.Println("No campaigns stored.")
		return nil
	}

	ids := make([]string, 0, len(campaigns))
	for id := range campaigns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := campaigns[id]
		line := fmt.Sprintf("%s  %s  %s  qty=%d",
			c.ID, c.ScheduledAt().UTC().Format("2006-01-02 15:04"), c.Status, c.DesiredQuantity)
		if c.Result != nil {
			line += fmt.Sprintf("  reserved=%d/%d", c.Result.SucceededCount, c.Result.FoundCount)
			if c.Result.ErrorMessage != "" {
				line += "  error=" + c.Result.ErrorMessage
			}
		}
		fmt.Println(line)
	}
	return nil
}

func cancelCampaign(ctx context.Context, store *CampaignStore, rdb *redis.Client,
	config *Config, logger *slog.Logger, id string) error {
	timers := NewTimerService(rdb, time.Now, time.Duration(config.SchedulerPollMs)*time.Millisecond, logger)
	if err := timers.Cancel(ctx, campaignTimerPrefix+id); err != nil {
		return err
	}
	if err := store.DeleteCampaign(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Cancelled campaign %s\n", id)
	return nil
}

func toggleExtendCart(ctx context.Context, store *CampaignStore, rdb *redis.Client,
	config *Config, logger *slog.Logger, state string) error {
	timers := NewTimerService(rdb, time.Now, time.Duration(config.SchedulerPollMs)*time.Millisecond, logger)
	// Enable/Disable only touch settings and the timer; the reservation
	// client is needed when the timer fires, in the serve process.
	extender := NewCartExtender(store, timers, nil, config, logger)

	switch strings.ToLower(state) {
	case "on", "true", "1":
		return extender.Enable(ctx)
	case "off", "false", "0":
		return extender.Disable(ctx)
	default:
		return fmt.Errorf("invalid -extend-cart value %q, use on or off", state)
	}
}

// buildSurface wires up the execution surface for the configured mode. In
// api mode the browser only bootstraps the session.
func buildSurface(config *Config, logger *slog.Logger) (*Browser, *surface, error) {
	browser := NewBrowser(config, logger)
	if err := browser.Setup(); err != nil {
		return nil, nil, err
	}
	if err := browser.OpenSite(); err != nil {
		browser.Close()
		return nil, nil, err
	}

	switch config.Mode {
	case "dom":
		dom := NewDOMClient(browser, config, logger)
		return browser, &surface{catalog: dom, reservations: dom}, nil
	default:
		api, err := NewAPIClient(config, logger)
		if err != nil {
			browser.Close()
			return nil, nil, err
		}
		if err := api.LoadSessionFromBrowser(browser); err != nil {
			browser.Close()
			return nil, nil, err
		}
		return browser, &surface{catalog: api, reservations: api}, nil
	}
}

type surface struct {
	catalog      CatalogClient
	reservations ReservationClient
}

func runEngine(ctx context.Context, store *CampaignStore, rdb *redis.Client,
	config *Config, logger *slog.Logger, runNowID string) error {
	timeSync := NewTimeSync(config.TimeServers, logger)
	if err := timeSync.Sync(); err != nil {
		logger.Warn("time sync failed, using local clock", "error", err)
	}

	timers := NewTimerService(rdb, timeSync.Now,
		time.Duration(config.SchedulerPollMs)*time.Millisecond, logger)

	browser, surf, err := buildSurface(config, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	translator := NewFilterTranslator(LoungePolicy{}, config.PageSize, logger)
	orchestrator := NewOrchestrator(surf.reservations, config, logger)
	extender := NewCartExtender(store, timers, surf.reservations, config, logger)
	notifier := NewNotifier(config, logger)
	engine := NewEngine(store, surf.catalog, orchestrator, translator, extender, notifier, config, logger)

	if runNowID != "" {
		return engine.Run(ctx, runNowID)
	}

	timers.SetHandler(func(ctx context.Context, name string) error {
		switch {
		case name == cartExtensionTimer:
			return extender.HandleTimer(ctx)
		case strings.HasPrefix(name, campaignTimerPrefix):
			return engine.Run(ctx, strings.TrimPrefix(name, campaignTimerPrefix))
		default:
			logger.Warn("unknown timer fired", "name", name)
			return nil
		}
	})

	if err := extender.RestoreOnStartup(ctx); err != nil {
		logger.Warn("failed to restore cart extension schedule", "error", err)
	}

	logger.Info("scheduler running",
		"mode", config.Mode, "site", config.SiteURL, "redis", config.RedisAddr)

	if err := timers.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}
