package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(49900), req.Amount)
		assert.Equal(t, "INR", req.Currency)
		assert.Equal(t, "ord_1", req.Receipt)
		assert.Equal(t, "u-1", req.Notes["user_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_EKwxwAgItmmXdp","entity":"order","amount":49900,"currency":"INR","receipt":"ord_1","status":"created","notes":{"user_id":"u-1"},"created_at":1582628071}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(srv.URL+"/v1/", "rzp_test_key", "secret", time.Second)
	order, err := c.CreateOrder(context.Background(), OrderRequest{
		Amount:   49900,
		Currency: "INR",
		Receipt:  "ord_1",
		Notes:    Notes{"user_id": "u-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_EKwxwAgItmmXdp", order.ID)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, "u-1", order.Notes["user_id"])
	assert.Equal(t, "rzp_test_key", c.KeyID())
}

func TestRazorpayCreateOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(srv.URL, "k", "s", time.Second)
	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
}

func TestRazorpayCreateOrderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewRazorpayClient(srv.URL, "k", "s", 50*time.Millisecond)
	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	assert.Error(t, err)
}

func TestMockGateway(t *testing.T) {
	g := NewMockGateway()
	o, err := g.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR", Receipt: "r"})
	require.NoError(t, err)
	assert.Equal(t, "order_mock000001", o.ID)
	assert.Len(t, g.Orders, 1)
}
