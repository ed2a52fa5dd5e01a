package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "X-Razorpay-Signature"

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC of payload under secret.
// The comparison is constant time.
func Verify(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// VerifyWebhookSignature checks a webhook over its raw, unparsed body.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	return Verify(body, signature, webhookSecret)
}

// PaymentPayload is the canonical string signed for the client-return path.
func PaymentPayload(gatewayOrderID, gatewayPaymentID string) []byte {
	return []byte(gatewayOrderID + "|" + gatewayPaymentID)
}

// VerifyPaymentSignature checks the client-return callback, signed with the
// API key secret rather than the webhook secret.
func VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, keySecret string) bool {
	if gatewayOrderID == "" || gatewayPaymentID == "" {
		return false
	}
	return Verify(PaymentPayload(gatewayOrderID, gatewayPaymentID), signature, keySecret)
}
