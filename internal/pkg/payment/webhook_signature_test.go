package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signSHA256(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPayfrontWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt-1"}`)
	secret := "whsec_test"

	assert.True(t, VerifyPayfrontWebhookSignature(payload, signSHA256(payload, secret), secret))
	// Uppercase hex is accepted.
	assert.True(t, VerifyPayfrontWebhookSignature(payload, strings.ToUpper(signSHA256(payload, secret)), secret))

	assert.False(t, VerifyPayfrontWebhookSignature(payload, signSHA256(payload, "wrong"), secret))
	assert.False(t, VerifyPayfrontWebhookSignature([]byte("tampered"), signSHA256(payload, secret), secret))
	assert.False(t, VerifyPayfrontWebhookSignature(payload, "", secret))
	assert.False(t, VerifyPayfrontWebhookSignature(payload, signSHA256(payload, secret), ""))
	assert.False(t, VerifyPayfrontWebhookSignature(payload, "not-hex", secret))
}
