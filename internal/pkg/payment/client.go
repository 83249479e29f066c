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

	"github.com/photoflare/galleria/internal/pkg/env"
)

const defaultGatewayBaseURL = "https://api.paygate.example.com/v1"

// GatewayClient talks to the external payment gateway. The gateway itself is
// an external collaborator; only the adapter contract (idempotency keys and
// price re-validation upstream of this client) is ours.
type GatewayClient struct {
	BaseURL   string
	APIKey    string
	ReturnURL string

	HTTPClient *http.Client
}

// NewGatewayClientFromEnv builds a client from environment configuration.
func NewGatewayClientFromEnv() *GatewayClient {
	base := strings.TrimRight(env.GetEnv("PAYMENT_GATEWAY_URL", defaultGatewayBaseURL), "/")
	returnURL := strings.TrimSpace(env.GetEnv("PAYMENT_RETURN_URL", ""))
	if returnURL == "" {
		domain := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
		if domain != "" {
			returnURL = domain + "/checkout/complete"
		}
	}

	return &GatewayClient{
		BaseURL:   base,
		APIKey:    strings.TrimSpace(env.GetEnv("PAYMENT_GATEWAY_API_KEY", "")),
		ReturnURL: returnURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type gatewayCheckoutRequest struct {
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	ReturnURL   string `json:"return_url"`
	Description string `json:"description,omitempty"`
}

// CreateCheckout asks the gateway for a hosted checkout. The order UUID is
// sent as the Idempotency-Key header so a retried call cannot create a
// second gateway checkout for the same order.
func (c *GatewayClient) CreateCheckout(ctx context.Context, orderUUID string, amountCents int64, currency, description string) (*GatewayCheckout, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("PAYMENT_GATEWAY_API_KEY is not configured")
	}
	if strings.TrimSpace(orderUUID) == "" {
		return nil, errors.New("order reference is required")
	}

	body, err := json.Marshal(gatewayCheckoutRequest{
		Reference:   orderUUID,
		AmountCents: amountCents,
		Currency:    currency,
		ReturnURL:   c.ReturnURL,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Idempotency-Key", orderUUID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway checkout returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var checkout GatewayCheckout
	if err := json.Unmarshal(raw, &checkout); err != nil {
		return nil, fmt.Errorf("invalid gateway checkout response: %w", err)
	}
	if checkout.CheckoutURL == "" {
		return nil, errors.New("gateway checkout response missing checkout_url")
	}
	return &checkout, nil
}

// VerifyPayment probes the gateway for the current status of a payment.
// Used by the synchronous confirmation path; the webhook processor is the
// primary completion channel.
func (c *GatewayClient) VerifyPayment(ctx context.Context, paymentRef string) (*GatewayPaymentStatus, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("PAYMENT_GATEWAY_API_KEY is not configured")
	}
	if strings.TrimSpace(paymentRef) == "" {
		return nil, errors.New("payment reference is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/payments/"+paymentRef, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway status returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var status GatewayPaymentStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("invalid gateway status response: %w", err)
	}
	return &status, nil
}
