package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Gateway defines the interface for payment providers.
type Gateway interface {
	// Name identifies the provider in logs.
	Name() string
	// KeyID is the public key handed to the client checkout widget.
	KeyID() string
	// CreateOrder opens a payment session for the given amount.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// OrderRequest is the outbound order-creation call.
type OrderRequest struct {
	Amount   int64  `json:"amount"` // minor currency units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Notes    Notes  `json:"notes,omitempty"`
}

// Order is the gateway's view of a payment session.
type Order struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

// Notes is the free-form metadata map echoed back by the gateway. An empty
// map is sometimes serialized as a JSON array.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		if len(arr) > 0 {
			return fmt.Errorf("notes: unexpected non-empty array")
		}
		*n = Notes{}
		return nil
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out := make(Notes, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	*n = out
	return nil
}

// MockGateway is an in-process gateway for development and tests.
type MockGateway struct {
	mu     sync.Mutex
	seq    int
	Err    error
	Orders []OrderRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Name() string  { return "mock" }
func (g *MockGateway) KeyID() string { return "rzp_test_mock" }

func (g *MockGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Err != nil {
		return nil, g.Err
	}
	g.seq++
	g.Orders = append(g.Orders, req)

	return &Order{
		ID:        fmt.Sprintf("order_mock%06d", g.seq),
		Entity:    "order",
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     req.Notes,
		CreatedAt: time.Now().Unix(),
	}, nil
}
