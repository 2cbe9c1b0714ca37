package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// CatalogClient finds candidate products for a campaign. Implementations
// exist for the retailer API and for DOM scraping through a browser.
type CatalogClient interface {
	Search(ctx context.Context, campaignID string, query QuerySpec) ([]Product, error)
}

// ErrUnknownCatalogShape is returned when the catalog response matches none
// of the known payload layouts. A silent empty result here would make a
// retailer format change look like a sold-out sale, so the failure is loud.
var ErrUnknownCatalogShape = errors.New("unrecognized catalog response shape")

// APIClient talks to the retailer's private API directly, reusing the
// session (cookies, XSRF token, user agent) extracted from a logged-in
// browser profile.
type APIClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	xsrfToken string
	log       *slog.Logger
}

func NewAPIClient(cfg *Config, log *slog.Logger) (*APIClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &http.Client{
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &APIClient{
		client:    client,
		baseURL:   cfg.SiteURL,
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		log:       log,
	}, nil
}

// LoadSessionFromBrowser copies the logged-in browser's cookies, XSRF token
// and user agent into the HTTP client so API calls look like the browser's.
func (a *APIClient) LoadSessionFromBrowser(b *Browser) error {
	if b == nil || b.page == nil {
		return fmt.Errorf("browser not initialized")
	}

	cookies, err := b.SessionCookies(a.baseURL)
	if err != nil {
		return fmt.Errorf("failed to get cookies: %w", err)
	}

	site, err := url.Parse(a.baseURL)
	if err != nil {
		return fmt.Errorf("parsing site url: %w", err)
	}
	a.client.Jar.SetCookies(site, cookies)
	a.log.Debug("session cookies loaded", "count", len(cookies))

	if token, err := b.XSRFToken(); err == nil && token != "" {
		a.xsrfToken = token
	} else {
		a.log.Warn("xsrf token not found, requests may be rejected")
	}

	if ua, err := b.UserAgent(); err == nil && ua != "" {
		a.userAgent = ua
	}

	return nil
}

// catalogArticle is the wire shape of one product in the catalog payload.
type catalogArticle struct {
	Sku     string `json:"sku"`
	Name    string `json:"name"`
	Simples []struct {
		Sku         string `json:"sku"`
		Size        string `json:"size"`
		StockStatus string `json:"stockStatus"`
	} `json:"simples"`
}

// Search queries the event catalog. An empty result is a valid answer, not
// an error.
func (a *APIClient) Search(ctx context.Context, campaignID string, query QuerySpec) ([]Product, error) {
	endpoint := fmt.Sprintf("%s/api/phoenix/catalog/events/%s/articles?%s",
		a.baseURL, url.PathEscape(campaignID), query.Values().Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned HTTP %d", resp.StatusCode)
	}

	articles, err := normalizeCatalogPayload(body)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(articles))
	for _, art := range articles {
		p := Product{ConfigSKU: art.Sku, Name: art.Name}
		for _, s := range art.Simples {
			p.Variants = append(p.Variants, ProductVariant{
				SimpleSKU:    s.Sku,
				Size:         s.Size,
				Availability: parseAvailability(s.StockStatus),
			})
		}
		products = append(products, p)
	}

	a.log.Debug("catalog search complete", "campaign", campaignID, "found", len(products))
	return products, nil
}

// normalizeCatalogPayload accepts the three layouts the catalog has been
// observed to return: a bare article array, {"configs": [...]}, and
// {"articles": [...]}.
func normalizeCatalogPayload(body []byte) ([]catalogArticle, error) {
	var bare []catalogArticle
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Configs  []catalogArticle `json:"configs"`
		Articles []catalogArticle `json:"articles"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCatalogShape, snippet(body))
	}
	if wrapped.Configs != nil {
		return wrapped.Configs, nil
	}
	if wrapped.Articles != nil {
		return wrapped.Articles, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCatalogShape, snippet(body))
}

func parseAvailability(status string) Availability {
	switch status {
	case "AVAILABLE":
		return Available
	case "SOLD_OUT", "RESERVED":
		return VariantSoldOut
	default:
		return AvailabilityUnknown
	}
}

func (a *APIClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en;q=0.8")
	if a.xsrfToken != "" {
		req.Header.Set("x-xsrf-token", a.xsrfToken)
	}
}

func snippet(body []byte) string {
	const max = 120
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
