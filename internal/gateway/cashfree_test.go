package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkloom/store/internal/domain"
)

func cashfreeTestServer(t *testing.T, orderStatus string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, cashfreeAPIVersion, r.Header.Get("x-api-version"))
		assert.Equal(t, "app-id", r.Header.Get("x-client-id"))

		var req cashfreeOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.OrderID)

		json.NewEncoder(w).Encode(cashfreeOrderResponse{
			OrderID:          req.OrderID,
			PaymentSessionID: "session_" + req.OrderID,
			OrderStatus:      "ACTIVE",
		})
	})
	mux.HandleFunc("GET /orders/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cashfreeOrderResponse{
			OrderID:     "cf-order-1",
			OrderStatus: orderStatus,
		})
	})
	return httptest.NewServer(mux)
}

func TestCashfree_Method(t *testing.T) {
	g := NewCashfreeGateway("app-id", "secret", "http://localhost")
	assert.Equal(t, domain.PaymentMethodCashfree, g.Method())
}

func TestCashfree_DisabledWithoutCredentials(t *testing.T) {
	g := NewCashfreeGateway("", "", "http://localhost")

	_, err := g.CreateIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	err = g.VerifyCompletion(context.Background(), &IntentHandle{}, Proof{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCashfree_CreateIntent(t *testing.T) {
	srv := cashfreeTestServer(t, "ACTIVE")
	defer srv.Close()

	g := NewCashfreeGateway("app-id", "secret", srv.URL)
	handle, err := g.CreateIntent(context.Background(), IntentRequest{
		Amount:   decimal.RequireFromString("4929.1"),
		Currency: "INR",
		Receipt:  "cf-order-1",
		UserRef:  "user-1",
		Email:    "buyer@example.com",
		Phone:    "9999999999",
	})

	require.NoError(t, err)
	assert.Equal(t, "cf-order-1", handle.GatewayOrderID)
	assert.Equal(t, "session_cf-order-1", handle.PaymentSessionID)
	assert.True(t, handle.Amount.Equal(decimal.RequireFromString("4929.1")))
}

func TestCashfree_VerifyCompletion_Paid(t *testing.T) {
	srv := cashfreeTestServer(t, "PAID")
	defer srv.Close()

	g := NewCashfreeGateway("app-id", "secret", srv.URL)
	err := g.VerifyCompletion(context.Background(), &IntentHandle{GatewayOrderID: "cf-order-1"}, Proof{})

	assert.NoError(t, err)
}

func TestCashfree_VerifyCompletion_NotPaid(t *testing.T) {
	for _, status := range []string{"ACTIVE", "EXPIRED", "TERMINATED"} {
		srv := cashfreeTestServer(t, status)

		g := NewCashfreeGateway("app-id", "secret", srv.URL)
		err := g.VerifyCompletion(context.Background(), &IntentHandle{GatewayOrderID: "cf-order-1"}, Proof{})

		assert.ErrorIs(t, err, ErrRejected, "status %s", status)
		srv.Close()
	}
}

func TestCashfree_VerifyCompletion_ServerDown(t *testing.T) {
	srv := cashfreeTestServer(t, "PAID")
	srv.Close() // immediately, so the poll fails

	g := NewCashfreeGateway("app-id", "secret", srv.URL)
	err := g.VerifyCompletion(context.Background(), &IntentHandle{GatewayOrderID: "cf-order-1"}, Proof{})

	assert.ErrorIs(t, err, ErrRejected)
}

func TestCashfree_VerifyCompletion_ProofOrderMismatch(t *testing.T) {
	g := NewCashfreeGateway("app-id", "secret", "http://localhost")
	err := g.VerifyCompletion(context.Background(),
		&IntentHandle{GatewayOrderID: "cf-order-1"},
		Proof{GatewayOrderID: "cf-order-2"})

	assert.ErrorIs(t, err, ErrRejected)
}
