package payment

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventPaymentCaptured is the only webhook that settles an order.
const EventPaymentCaptured = "payment.captured"

// ErrMalformedEvent is returned for webhook bodies that cannot be decoded.
var ErrMalformedEvent = errors.New("malformed webhook event")

// Event is a decoded webhook, tagged by its "event" discriminator.
type Event interface {
	Type() string
}

// PaymentCaptured is the typed payload of a payment.captured webhook.
type PaymentCaptured struct {
	PaymentID      string
	GatewayOrderID string
	Amount         int64
	Currency       string
	Notes          Notes
}

func (PaymentCaptured) Type() string { return EventPaymentCaptured }

// IgnoredEvent stands for every other event; it is acknowledged and dropped.
type IgnoredEvent struct {
	Name string
}

func (e IgnoredEvent) Type() string { return e.Name }

type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Notes    Notes  `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedEvent)
	}
	if env.Event != EventPaymentCaptured {
		return IgnoredEvent{Name: env.Event}, nil
	}

	if env.Payload.Payment == nil {
		return nil, fmt.Errorf("%w: missing payment entity", ErrMalformedEvent)
	}
	entity := env.Payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		return nil, fmt.Errorf("%w: payment entity without id or order_id", ErrMalformedEvent)
	}

	notes := entity.Notes
	if notes == nil {
		notes = Notes{}
	}
	return PaymentCaptured{
		PaymentID:      entity.ID,
		GatewayOrderID: entity.OrderID,
		Amount:         entity.Amount,
		Currency:       entity.Currency,
		Notes:          notes,
	}, nil
}
