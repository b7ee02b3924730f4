package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/env"
)

const defaultPayfrontAPIBaseURL = "https://api.payfront.example/v1"

// PayfrontClient talks to the Payfront checkout API.
type PayfrontClient struct {
	APIBaseURL string
	APIKey     string

	HTTPClient *http.Client
}

// PayfrontOrder is the provider-side order created for a purchase.
type PayfrontOrder struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
}

// NewPayfrontClientFromEnv builds a client from PAYFRONT_* environment
// variables.
func NewPayfrontClientFromEnv() *PayfrontClient {
	return &PayfrontClient{
		APIBaseURL: strings.TrimRight(env.GetEnv("PAYFRONT_API_BASE_URL", defaultPayfrontAPIBaseURL), "/"),
		APIKey:     strings.TrimSpace(env.GetEnv("PAYFRONT_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateOrder registers a checkout order with Payfront for a pending
// purchase. The purchase ID rides along as external reference so webhook
// events can be matched back even if the order id is lost.
func (c *PayfrontClient) CreateOrder(ctx context.Context, purchase *models.Purchase) (*PayfrontOrder, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("PAYFRONT_API_KEY is not configured")
	}
	if purchase == nil || strings.TrimSpace(purchase.ID) == "" {
		return nil, errors.New("purchase with id is required")
	}

	payload := map[string]interface{}{
		"external_reference": purchase.ID,
		"amount_cents":       purchase.PriceCents,
		"currency":           purchase.Currency,
		"description":        fmt.Sprintf("AI token pack %s (%d tokens)", purchase.PackID, purchase.TokenAmount),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	// The purchase idempotency key is forwarded so a retried create cannot
	// open two provider orders.
	req.Header.Set("Idempotency-Key", purchase.IdempotencyKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payfront order create failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out PayfrontOrder
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.OrderID) == "" {
		return nil, errors.New("payfront order create returned empty order_id")
	}
	return &out, nil
}

// ParsePayfrontWebhookEvent normalizes a raw Payfront webhook payload.
func ParsePayfrontWebhookEvent(payload []byte) (*PaymentEvent, error) {
	type rawEvent struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		CreatedAt string `json:"created_at"`
		Data      struct {
			OrderID     string `json:"order_id"`
			AmountCents int64  `json:"amount_cents"`
			Currency    string `json:"currency"`
		} `json:"data"`
	}

	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(raw.Type) == "" {
		return nil, errors.New("payfront webhook payload missing event type")
	}
	if strings.TrimSpace(raw.Data.OrderID) == "" {
		return nil, errors.New("payfront webhook payload missing order id")
	}

	out := &PaymentEvent{
		Provider:        ProviderPayfront,
		ProviderEventID: strings.TrimSpace(raw.ID),
		EventType:       normalizeEventType(raw.Type),
		ProviderOrderID: strings.TrimSpace(raw.Data.OrderID),
		AmountCents:     raw.Data.AmountCents,
		Currency:        strings.ToUpper(strings.TrimSpace(raw.Data.Currency)),
		RawPayloadJSON:  string(payload),
	}
	if ts := strings.TrimSpace(raw.CreatedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.OccurredAt = &t
		}
	}
	return out, nil
}

// normalizeEventType maps provider type aliases onto the canonical event
// types. Unknown types pass through unchanged so the orchestrator can drop
// them with a log line and the provider gets its 200.
func normalizeEventType(raw string) string {
	switch t := strings.ToLower(strings.TrimSpace(raw)); t {
	case "payment.captured", "order.paid":
		return EventPaymentCaptured
	case "payment.failed", "order.payment_failed":
		return EventPaymentFailed
	case "payment.canceled", "order.canceled":
		return EventPaymentCanceled
	default:
		return t
	}
}
