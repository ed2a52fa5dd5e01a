package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventPaymentCaptured(t *testing.T) {
	body := []byte(`{
		"entity": "event",
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_29QQoUBi66xm2f",
					"order_id": "order_9A33XWu170gUtm",
					"amount": 49900,
					"currency": "INR",
					"notes": {"user_id": "u-1", "plan_id": "pro_plan", "local_order_id": "ord_1_u-1"}
				}
			}
		}
	}`)

	ev, err := ParseEvent(body)
	require.NoError(t, err)

	captured, ok := ev.(PaymentCaptured)
	require.True(t, ok, "expected PaymentCaptured, got %T", ev)
	assert.Equal(t, "pay_29QQoUBi66xm2f", captured.PaymentID)
	assert.Equal(t, "order_9A33XWu170gUtm", captured.GatewayOrderID)
	assert.Equal(t, int64(49900), captured.Amount)
	assert.Equal(t, "pro_plan", captured.Notes["plan_id"])
	assert.Equal(t, EventPaymentCaptured, captured.Type())
}

func TestParseEventIgnoresOtherEvents(t *testing.T) {
	for _, name := range []string{"payment.failed", "order.paid", "refund.processed"} {
		ev, err := ParseEvent([]byte(`{"event":"` + name + `","payload":{}}`))
		require.NoError(t, err)
		assert.Equal(t, IgnoredEvent{Name: name}, ev)
	}
}

func TestParseEventMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"event":`,
		"missing event":     `{"payload":{}}`,
		"missing payment":   `{"event":"payment.captured","payload":{}}`,
		"missing order id":  `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`,
		"notes wrong shape": `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"o","notes":["x"]}}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEvent([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestNotesAcceptsEmptyArray(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","notes":[]}}}}`))
	require.NoError(t, err)
	assert.Empty(t, ev.(PaymentCaptured).Notes)
}
