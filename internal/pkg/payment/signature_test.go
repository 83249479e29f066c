package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature_RoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	secret := "whsec_test"

	sig := SignWebhookPayload(payload, secret)
	assert.True(t, VerifyWebhookSignature(payload, sig, secret))

	// Hex case must not matter.
	assert.True(t, VerifyWebhookSignature(payload, strings.ToUpper(sig), secret))
}

func TestVerifyWebhookSignature_Rejects(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	sig := SignWebhookPayload(payload, secret)

	assert.False(t, VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), sig, secret), "tampered payload")
	assert.False(t, VerifyWebhookSignature(payload, sig, "other-secret"), "wrong secret")
	assert.False(t, VerifyWebhookSignature(payload, "", secret), "empty signature")
	assert.False(t, VerifyWebhookSignature(payload, sig, ""), "empty secret")
	assert.False(t, VerifyWebhookSignature(payload, "not-hex!", secret), "malformed signature")
}
