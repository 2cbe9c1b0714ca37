package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers fire-and-forget user notifications. Delivery failures
// never propagate into campaign execution.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, title, message string) {
	n.log.Info("notification", "title", title, "message", message)
}

// WebhookNotifier POSTs notifications as JSON to a configured endpoint, in
// addition to logging them.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func NewWebhookNotifier(url string, log *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, title, message string) {
	n.log.Info("notification", "title", title, "message", message)

	payload, err := json.Marshal(map[string]string{
		"title":   title,
		"message": message,
	})
	if err != nil {
		n.log.Warn("failed to encode notification", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.log.Warn("failed to build notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("notification delivery failed", "error", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn("notification endpoint rejected delivery", "status", resp.StatusCode)
	}
}

// NewNotifier picks the notifier implied by configuration.
func NewNotifier(cfg *Config, log *slog.Logger) Notifier {
	if cfg.NotifyWebhookURL != "" {
		return NewWebhookNotifier(cfg.NotifyWebhookURL, log)
	}
	return NewLogNotifier(log)
}
