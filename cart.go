package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ReservationClient places single-unit cart reservations and keeps the cart
// alive.
type ReservationClient interface {
	Reserve(ctx context.Context, campaignID, configSKU, simpleSKU string) error
	ExtendCart(ctx context.Context) error
}

// Reservation failure classes. The orchestrator treats SoldOut and Rejected
// as move-on signals; Unreachable means the surface itself is in trouble.
const (
	ReasonSoldOut     = "sold_out"
	ReasonRejected    = "rejected"
	ReasonUnreachable = "unreachable"
)

// ReservationError describes why one reservation attempt failed.
type ReservationError struct {
	Reason string
	Status int
	Detail string
}

func (e *ReservationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("reservation %s (HTTP %d): %s", e.Reason, e.Status, e.Detail)
	}
	return fmt.Sprintf("reservation %s (HTTP %d)", e.Reason, e.Status)
}

type cartItemRequest struct {
	Quantity           int            `json:"quantity"`
	CampaignIdentifier string         `json:"campaignIdentifier"`
	ConfigSKU          string         `json:"configSku"`
	SimpleSKU          string         `json:"simpleSku"`
	Additional         map[string]int `json:"additional"`
}

// Reserve attempts to put exactly one unit of one variant into the cart.
// A failure reports its class and returns; retry policy lives in the
// orchestrator and engine, not here.
func (a *APIClient) Reserve(ctx context.Context, campaignID, configSKU, simpleSKU string) error {
	payload, err := json.Marshal(cartItemRequest{
		Quantity:           1,
		CampaignIdentifier: campaignID,
		ConfigSKU:          configSKU,
		SimpleSKU:          simpleSKU,
		Additional:         map[string]int{"reco": 0},
	})
	if err != nil {
		return fmt.Errorf("encoding cart request: %w", err)
	}

	endpoint := a.baseURL + "/api/phoenix/stockcart/cart/items"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building cart request: %w", err)
	}
	a.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return &ReservationError{Reason: ReasonUnreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		a.log.Info("variant reserved", "configSku", configSKU, "simpleSku", simpleSKU)
		return nil
	case resp.StatusCode >= 500:
		return &ReservationError{Reason: ReasonUnreachable, Status: resp.StatusCode, Detail: snippet(body)}
	case isSoldOutResponse(resp.StatusCode, body):
		return &ReservationError{Reason: ReasonSoldOut, Status: resp.StatusCode, Detail: snippet(body)}
	default:
		return &ReservationError{Reason: ReasonRejected, Status: resp.StatusCode, Detail: snippet(body)}
	}
}

func isSoldOutResponse(status int, body []byte) bool {
	if status == http.StatusConflict {
		return true
	}
	text := strings.ToLower(string(body))
	return strings.Contains(text, "sold") ||
		strings.Contains(text, "out of stock") ||
		strings.Contains(text, "no stock")
}

// ExtendCart refreshes the cart reservation window. The surface resets the
// countdown on any cart touch; an empty-body PUT is the cheapest touch.
func (a *APIClient) ExtendCart(ctx context.Context) error {
	endpoint := a.baseURL + "/api/phoenix/stockcart/cart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building cart extension request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("cart extension failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cart extension returned HTTP %d", resp.StatusCode)
	}
	return nil
}
