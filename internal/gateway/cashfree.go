package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/silkloom/store/internal/domain"
)

const cashfreeAPIVersion = "2023-08-01"

// CashfreeGateway is the hosted-checkout processor: we open an order, the
// client pays inside Cashfree's page, and completion is confirmed with a
// server-to-server status poll accepted only on PAID.
type CashfreeGateway struct {
	appID      string
	secret     string
	baseURL    string
	httpClient *http.Client
}

func NewCashfreeGateway(appID, secret, baseURL string) *CashfreeGateway {
	return &CashfreeGateway{
		appID:   appID,
		secret:  secret,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *CashfreeGateway) Method() domain.PaymentMethod {
	return domain.PaymentMethodCashfree
}

func (g *CashfreeGateway) disabled() bool {
	return g.appID == "" || g.secret == ""
}

type cashfreeOrderRequest struct {
	OrderID         string                  `json:"order_id"`
	OrderAmount     float64                 `json:"order_amount"`
	OrderCurrency   string                  `json:"order_currency"`
	CustomerDetails cashfreeCustomerDetails `json:"customer_details"`
}

type cashfreeCustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
}

func (g *CashfreeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentHandle, error) {
	if g.disabled() {
		return nil, ErrGatewayUnavailable
	}

	payload := cashfreeOrderRequest{
		OrderID:       req.Receipt,
		OrderAmount:   req.Amount.InexactFloat64(),
		OrderCurrency: req.Currency,
		CustomerDetails: cashfreeCustomerDetails{
			CustomerID:    req.UserRef,
			CustomerEmail: req.Email,
			CustomerPhone: req.Phone,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal cashfree order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build cashfree request: %w", err)
	}
	g.setHeaders(httpReq)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cashfree order create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cashfree order create: unexpected status %d", resp.StatusCode)
	}

	var orderResp cashfreeOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, fmt.Errorf("decode cashfree response: %w", err)
	}
	if orderResp.OrderID == "" || orderResp.PaymentSessionID == "" {
		return nil, fmt.Errorf("cashfree order create: incomplete response")
	}

	return &IntentHandle{
		GatewayOrderID:   orderResp.OrderID,
		PaymentSessionID: orderResp.PaymentSessionID,
		Amount:           req.Amount,
	}, nil
}

func (g *CashfreeGateway) VerifyCompletion(ctx context.Context, handle *IntentHandle, proof Proof) error {
	if g.disabled() {
		return ErrGatewayUnavailable
	}
	if handle == nil || (proof.GatewayOrderID != "" && proof.GatewayOrderID != handle.GatewayOrderID) {
		return fmt.Errorf("%w: proof does not match the open intent", ErrRejected)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/orders/"+handle.GatewayOrderID, nil)
	if err != nil {
		return fmt.Errorf("build cashfree status request: %w", err)
	}
	g.setHeaders(httpReq)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		// Network failure or timeout: the checkout stays retryable.
		return fmt.Errorf("%w: status poll failed: %v", ErrRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status poll returned %d", ErrRejected, resp.StatusCode)
	}

	var orderResp cashfreeOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return fmt.Errorf("%w: decode status response: %v", ErrRejected, err)
	}

	if orderResp.OrderStatus != "PAID" {
		return fmt.Errorf("%w: order status %s", ErrRejected, orderResp.OrderStatus)
	}
	return nil
}

func (g *CashfreeGateway) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", cashfreeAPIVersion)
	req.Header.Set("x-client-id", g.appID)
	req.Header.Set("x-client-secret", g.secret)
}
