package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testWebhookSecret = "whsec_test_123"
	testKeySecret     = "key_secret_456"
)

func TestVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{}}`)
	sig := Sign(body, testWebhookSecret)

	assert.True(t, VerifyWebhookSignature(body, sig, testWebhookSecret))
	assert.False(t, VerifyWebhookSignature(body, sig, testKeySecret), "signature must be bound to its secret")
}

func TestVerifyRejectsSingleByteMutations(t *testing.T) {
	body := []byte(`{"event":"payment.captured","amount":49900}`)
	sig := Sign(body, testWebhookSecret)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.Falsef(t, Verify(mutated, sig, testWebhookSecret), "payload byte %d flipped", i)
	}

	for i := range sig {
		mutated := []byte(sig)
		mutated[i] ^= 0x01
		assert.Falsef(t, Verify(body, string(mutated), testWebhookSecret), "signature byte %d flipped", i)
	}
}

func TestVerifyRejectsEmptyInputs(t *testing.T) {
	body := []byte("x")
	assert.False(t, Verify(body, "", testWebhookSecret))
	assert.False(t, Verify(body, Sign(body, ""), ""))
	assert.False(t, Verify(body, Sign(body, testWebhookSecret)[:10], testWebhookSecret))
}

func TestVerifyPaymentSignature(t *testing.T) {
	sig := Sign([]byte("order_ABC|pay_XYZ"), testKeySecret)

	assert.True(t, VerifyPaymentSignature("order_ABC", "pay_XYZ", sig, testKeySecret))
	assert.False(t, VerifyPaymentSignature("order_ABC", "pay_XYY", sig, testKeySecret))
	assert.False(t, VerifyPaymentSignature("order_ABD", "pay_XYZ", sig, testKeySecret))
	assert.False(t, VerifyPaymentSignature("order_ABC", "pay_XYZ", sig, testWebhookSecret))
	assert.False(t, VerifyPaymentSignature("", "pay_XYZ", Sign([]byte("|pay_XYZ"), testKeySecret), testKeySecret))
}
