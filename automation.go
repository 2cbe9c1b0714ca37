package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Browser wraps a stealth-patched Chrome session on a persistent profile.
// The profile keeps the user's login between runs; the process never handles
// credentials itself.
type Browser struct {
	config   *Config
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	log      *slog.Logger
}

func NewBrowser(config *Config, log *slog.Logger) *Browser {
	return &Browser{config: config, log: log}
}

// Setup launches Chrome and opens a stealth page on the configured site.
func (b *Browser) Setup() error {
	b.log.Info("launching browser")

	// Disable leakless mode on Windows to prevent deadlock
	// See: https://github.com/go-rod/rod/issues/853
	useLeakless := runtime.GOOS != "windows"

	chromePath, chromeExists := launcher.LookPath()

	b.launcher = launcher.New().
		Leakless(useLeakless).
		Headless(b.config.Headless)

	if b.config.BrowserProfilePath != "" {
		b.launcher = b.launcher.UserDataDir(b.config.BrowserProfilePath)
	}

	if chromeExists {
		b.launcher = b.launcher.Bin(chromePath)
		b.log.Debug("using system chrome", "path", chromePath)
	} else {
		b.log.Info("system chrome not found, downloading chromium")
	}

	url, err := b.launcher.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.browser = browser

	page, err := stealth.Page(b.browser)
	if err != nil {
		return fmt.Errorf("failed to create stealth page: %w", err)
	}
	b.page = page

	if err := b.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: defaultUserAgent,
	}); err != nil {
		b.log.Warn("failed to set user agent", "error", err)
	}

	if err := b.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  b.config.ViewportWidth,
		Height: b.config.ViewportHeight,
	}); err != nil {
		b.log.Warn("failed to set viewport", "error", err)
	}

	b.log.Info("browser ready")
	return nil
}

func (b *Browser) Close() {
	if b.page != nil {
		b.page.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
}

// OpenSite navigates to the retailer's landing page and waits for load.
// With a fresh profile this is where the user logs in manually.
func (b *Browser) OpenSite() error {
	if err := b.page.Navigate(b.config.SiteURL); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if err := b.page.WaitLoad(); err != nil {
		return fmt.Errorf("page failed to load: %w", err)
	}
	return nil
}

// OpenCampaign navigates to a campaign's catalog page.
func (b *Browser) OpenCampaign(campaignID string) error {
	url := fmt.Sprintf("%s/campaigns/%s", b.config.SiteURL, campaignID)
	if err := b.page.Navigate(url); err != nil {
		return fmt.Errorf("failed to open campaign %s: %w", campaignID, err)
	}
	if err := b.page.WaitLoad(); err != nil {
		return fmt.Errorf("campaign page failed to load: %w", err)
	}
	return nil
}

// SessionCookies returns the page's cookies for the given origin as
// net/http cookies, for handoff to the API client.
func (b *Browser) SessionCookies(origin string) ([]*http.Cookie, error) {
	cookies, err := b.page.Cookies([]string{origin})
	if err != nil {
		return nil, err
	}

	out := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		var expires time.Time
		if cookie.Expires > 0 {
			expires = time.Unix(int64(cookie.Expires), 0)
		}
		out = append(out, &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HTTPOnly,
		})
	}
	return out, nil
}

// XSRFToken pulls the anti-forgery token from the page's cookies or meta
// tags.
func (b *Browser) XSRFToken() (string, error) {
	token, err := b.page.Eval(`() => {
		const cookies = document.cookie.split(';');
		for (const cookie of cookies) {
			const [name, value] = cookie.trim().split('=');
			if (name === 'frsx' || name === 'XSRF-TOKEN') {
				return decodeURIComponent(value);
			}
		}
		const meta = document.querySelector('meta[name="csrf-token"]');
		if (meta) return meta.getAttribute('content');
		return '';
	}`)
	if err != nil {
		return "", err
	}
	return token.Value.Str(), nil
}

func (b *Browser) UserAgent() (string, error) {
	ua, err := b.page.Eval(`() => navigator.userAgent`)
	if err != nil {
		return "", err
	}
	return ua.Value.Str(), nil
}

// waitFor polls a predicate script until it returns true or the configured
// timeout elapses. All DOM readiness waits go through this one primitive.
func (b *Browser) waitFor(script string) error {
	timeout := time.Duration(b.config.DOMWaitTimeoutMs) * time.Millisecond
	interval := time.Duration(b.config.DOMPollIntervalMs) * time.Millisecond
	deadline := time.Now().Add(timeout)

	for {
		result, err := b.page.Eval(script)
		if err == nil && result.Value.Bool() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for page condition", timeout)
		}
		time.Sleep(interval)
	}
}
