package payment

import "github.com/photoflare/galleria/app/models"

// Gateway event types handled by the webhook processor.
const (
	EventCheckoutCompleted       = "checkout.completed"
	EventPaymentSucceeded        = "payment.succeeded"
	EventPaymentFailed           = "payment.failed"
	EventInvoiceSucceeded        = "invoice.succeeded"
	EventInvoiceFailed           = "invoice.failed"
	EventConnectedAccountUpdated = "connected_account.updated"
)

// HandledEventTypes lists every event type the processor dispatches on.
var HandledEventTypes = []string{
	EventCheckoutCompleted,
	EventPaymentSucceeded,
	EventPaymentFailed,
	EventInvoiceSucceeded,
	EventInvoiceFailed,
	EventConnectedAccountUpdated,
}

// CheckoutItem is one photo with its client-submitted price. The submitted
// price is never trusted; the checkout service recomputes it from the policy.
type CheckoutItem struct {
	PhotoID    uint  `json:"photo_id"`
	PriceCents int64 `json:"price_cents"`
}

// CheckoutInput is the request to create a gateway checkout.
type CheckoutInput struct {
	SessionID uint
	ClientKey string
	Items     []CheckoutItem
	Mode      models.PolicyMode
}

// CheckoutResult is either a checkout URL to pay at, or a free-items
// confirmation when every requested item was covered by the free tier.
type CheckoutResult struct {
	CheckoutURL        string `json:"checkout_url,omitempty"`
	OrderUUID          string `json:"order_id,omitempty"`
	FreeItemsProcessed int    `json:"free_items_processed,omitempty"`
	Message            string `json:"message,omitempty"`
}

// GatewayEvent is the decoded webhook payload shape.
type GatewayEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	OrderRef  string `json:"order_ref"`
	PaymentID string `json:"payment_id"`
	AccountID string `json:"account_id,omitempty"`
	Amount    int64  `json:"amount_cents,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// GatewayCheckout is the gateway's response to a checkout creation call.
type GatewayCheckout struct {
	CheckoutID  string `json:"checkout_id"`
	CheckoutURL string `json:"checkout_url"`
}

// GatewayPaymentStatus is the gateway's answer to a status probe.
type GatewayPaymentStatus struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount_cents"`
	Currency  string `json:"currency"`
}

// IsPaid reports whether the gateway considers the payment settled.
func (s *GatewayPaymentStatus) IsPaid() bool {
	return s.Status == "succeeded" || s.Status == "paid"
}
