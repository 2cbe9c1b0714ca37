package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DOMClient executes campaigns through the retailer's web UI instead of the
// API: it drives filter controls on the catalog page and clicks through the
// add-to-cart flow on article pages. The fallback surface for when the API
// is fenced off, slower but harder to block.
type DOMClient struct {
	browser *Browser
	cfg     *Config
	log     *slog.Logger
}

func NewDOMClient(browser *Browser, cfg *Config, log *slog.Logger) *DOMClient {
	return &DOMClient{browser: browser, cfg: cfg, log: log}
}

// Search opens the campaign page, applies the query through the filter UI,
// and scrapes the resulting article tiles.
func (d *DOMClient) Search(ctx context.Context, campaignID string, query QuerySpec) ([]Product, error) {
	if err := d.browser.OpenCampaign(campaignID); err != nil {
		return nil, err
	}

	sel := d.cfg.Selectors
	if err := d.browser.waitFor(fmt.Sprintf(
		`() => document.querySelector(%q) !== null`, sel.FilterTabs)); err != nil {
		return nil, fmt.Errorf("filter controls never appeared: %w", err)
	}

	if err := d.applyFilters(query); err != nil {
		return nil, err
	}

	// Let the catalog re-render after the last filter click.
	if err := d.browser.waitFor(fmt.Sprintf(
		`() => document.querySelectorAll(%q).length > 0`, sel.ArticleTile)); err != nil {
		d.log.Info("no article tiles after filtering", "campaign", campaignID)
		return nil, nil
	}

	return d.collectTiles(query)
}

// applyFilters walks the filter tabs in a fixed order. Each tab click opens
// a sub-filter panel; option matching is case-insensitive and bidirectional
// on substrings, since the page's labels rarely match user input exactly.
func (d *DOMClient) applyFilters(query QuerySpec) error {
	for _, code := range query.BrandCodes {
		if err := d.selectOption("marka", code); err != nil {
			d.log.Warn("brand filter not applied", "brand", code, "error", err)
		}
	}

	for _, size := range append(append([]string{}, query.ShoeSizes...), query.ClothingSizes...) {
		if err := d.selectSize(size); err != nil {
			d.log.Warn("size filter not applied", "size", size, "error", err)
		}
	}

	for _, id := range query.CategoryIDs {
		if err := d.selectCategory(id); err != nil {
			d.log.Warn("category filter not applied", "category", id, "error", err)
		}
	}

	if query.Sort != "" && query.Sort != "relevance" {
		label := sortLabels[query.Sort]
		if label == "" {
			label = query.Sort
		}
		if err := d.selectOption("sortowanie", label); err != nil {
			d.log.Warn("sort not applied", "sort", query.Sort, "error", err)
		}
	}

	return nil
}

// sortLabels maps sort tokens back to the labels the page renders.
var sortLabels = map[string]string{
	"relevance":  "popularne",
	"price_asc":  "najniższa cena",
	"price_desc": "najwyższa cena",
	"newest":     "nowości",
	"savings":    "wyprzedaż",
}

// selectOption opens the named filter tab and clicks the first option whose
// label matches the wanted value in either direction.
func (d *DOMClient) selectOption(tab, value string) error {
	if err := d.openTab(tab); err != nil {
		return err
	}

	sel := d.cfg.Selectors
	script := fmt.Sprintf(`() => {
		const wanted = %q.toLowerCase();
		const wrapper = document.querySelector(%q);
		if (!wrapper) return false;
		const options = wrapper.querySelectorAll(%q + ', label, button');
		for (const opt of options) {
			const label = (opt.textContent || '').trim().toLowerCase();
			if (!label) continue;
			if (label.includes(wanted) || wanted.includes(label)) {
				opt.click();
				return true;
			}
		}
		return false;
	}`, value, sel.SubFilterWrapper, sel.FilterOption)

	if err := d.browser.waitFor(script); err != nil {
		return fmt.Errorf("option %q not found in tab %q: %w", value, tab, err)
	}
	return nil
}

// selectSize tries every rendered form of a size before giving up: "46" may
// appear as "46", "46.5", "46 1/3" or "46 2/3".
func (d *DOMClient) selectSize(size string) error {
	var lastErr error
	for _, variant := range SizeVariants(size) {
		if err := d.selectOption("rozmiar", variant); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (d *DOMClient) selectCategory(categoryID string) error {
	if err := d.openTab("kategorie"); err != nil {
		return err
	}

	sel := d.cfg.Selectors
	script := fmt.Sprintf(`() => {
		const wanted = %q;
		const filters = document.querySelectorAll(%q);
		for (const f of filters) {
			if ((f.getAttribute('data-category-id') || '') === wanted ||
				(f.getAttribute('href') || '').includes(wanted)) {
				f.click();
				return true;
			}
		}
		return false;
	}`, categoryID, sel.CategoryFilter)

	if err := d.browser.waitFor(script); err != nil {
		return fmt.Errorf("category %s not found: %w", categoryID, err)
	}
	return nil
}

func (d *DOMClient) openTab(label string) error {
	sel := d.cfg.Selectors
	script := fmt.Sprintf(`() => {
		const wanted = %q;
		const container = document.querySelector(%q);
		if (!container) return false;
		const tabs = container.querySelectorAll('button, [role="tab"]');
		for (const tab of tabs) {
			if ((tab.textContent || '').trim().toLowerCase().includes(wanted)) {
				tab.click();
				return true;
			}
		}
		return false;
	}`, label, sel.FilterTabs)

	if err := d.browser.waitFor(script); err != nil {
		return fmt.Errorf("filter tab %q not found: %w", label, err)
	}

	return d.browser.waitFor(fmt.Sprintf(
		`() => document.querySelector(%q) !== null`, sel.SubFilterWrapper))
}

// collectTiles scrapes the filtered catalog grid. Tiles expose only the
// config SKU; the size picked in the filter stands in as the single variant
// and availability is resolved at reservation time.
func (d *DOMClient) collectTiles(query QuerySpec) ([]Product, error) {
	sel := d.cfg.Selectors
	result, err := d.browser.page.Eval(fmt.Sprintf(`() => {
		const tiles = document.querySelectorAll(%q);
		const out = [];
		for (const tile of tiles) {
			const sku = tile.getAttribute('data-sku') || tile.getAttribute('data-config-sku') || '';
			if (!sku) continue;
			const name = (tile.querySelector('h3, [data-testid="article-name"]')?.textContent || '').trim();
			out.push({sku: sku, name: name});
		}
		return JSON.stringify(out);
	}`, sel.ArticleTile))
	if err != nil {
		return nil, fmt.Errorf("scraping article tiles: %w", err)
	}

	var tiles []struct {
		Sku  string `json:"sku"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(result.Value.Str()), &tiles); err != nil {
		return nil, fmt.Errorf("decoding article tiles: %w", err)
	}

	size := ""
	if len(query.ShoeSizes) > 0 {
		size = query.ShoeSizes[0]
	} else if len(query.ClothingSizes) > 0 {
		size = query.ClothingSizes[0]
	}

	products := make([]Product, 0, len(tiles))
	for _, tile := range tiles {
		products = append(products, Product{
			ConfigSKU: tile.Sku,
			Name:      tile.Name,
			Variants: []ProductVariant{{
				Size:         size,
				Availability: Available,
			}},
		})
	}
	d.log.Debug("scraped article tiles", "count", len(products))
	return products, nil
}

// Reserve opens the article page, picks a matching size and clicks
// add-to-cart. The simpleSKU argument is unused on this surface; the page
// resolves the simple from the size selection.
func (d *DOMClient) Reserve(ctx context.Context, campaignID, configSKU, simpleSKU string) error {
	sel := d.cfg.Selectors
	url := fmt.Sprintf("%s/campaigns/%s/articles/%s", d.cfg.SiteURL, campaignID, configSKU)
	if err := d.browser.page.Navigate(url); err != nil {
		return &ReservationError{Reason: ReasonUnreachable, Detail: err.Error()}
	}
	if err := d.browser.page.WaitLoad(); err != nil {
		return &ReservationError{Reason: ReasonUnreachable, Detail: err.Error()}
	}

	if err := d.browser.waitFor(fmt.Sprintf(
		`() => document.querySelector(%q) !== null`, sel.SizePicker)); err != nil {
		return &ReservationError{Reason: ReasonRejected, Detail: "size picker never appeared"}
	}

	if !d.pickAnySize() {
		return &ReservationError{Reason: ReasonSoldOut, Detail: "no selectable size"}
	}

	script := fmt.Sprintf(`() => {
		const btn = document.querySelector(%q);
		if (!btn || btn.disabled) return false;
		btn.click();
		return true;
	}`, sel.AddToCartButton)
	if err := d.browser.waitFor(script); err != nil {
		return &ReservationError{Reason: ReasonSoldOut, Detail: "add-to-cart button disabled"}
	}

	// Give the cart call time to land before the next navigation.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(d.cfg.DOMPollIntervalMs) * time.Millisecond * 5):
	}

	d.log.Info("variant reserved via page", "configSku", configSKU)
	return nil
}

// pickAnySize clicks the first enabled option in the size picker.
func (d *DOMClient) pickAnySize() bool {
	sel := d.cfg.Selectors
	script := fmt.Sprintf(`() => {
		const options = document.querySelectorAll(%q);
		for (const opt of options) {
			if (opt.disabled || opt.getAttribute('aria-disabled') === 'true') continue;
			opt.click();
			return true;
		}
		return false;
	}`, sel.SizePicker)
	return d.browser.waitFor(script) == nil
}

// ExtendCart reloads the cart page, which the surface treats as a cart
// touch.
func (d *DOMClient) ExtendCart(ctx context.Context) error {
	if err := d.browser.page.Navigate(d.cfg.SiteURL + "/cart"); err != nil {
		return fmt.Errorf("opening cart page: %w", err)
	}
	if err := d.browser.page.WaitLoad(); err != nil {
		return fmt.Errorf("cart page failed to load: %w", err)
	}
	return nil
}

var _ CatalogClient = (*DOMClient)(nil)
var _ ReservationClient = (*DOMClient)(nil)
