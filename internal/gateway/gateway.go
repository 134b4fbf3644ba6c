// Package gateway abstracts the two supported payment processors behind a
// single create-intent / verify-completion contract. Adapters never write
// orders; on success they hand control back to the checkout service.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/silkloom/store/internal/domain"
)

var (
	// ErrGatewayUnavailable means the adapter was built without
	// credentials and is running disabled.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected covers every failed completion check: bad signature,
	// unpaid status, status poll timeout. The checkout stays retryable.
	ErrRejected = errors.New("payment verification rejected")
)

// IntentRequest carries the server-computed charge. The amount already
// includes the online-payment adjustment.
type IntentRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string // merchant-side reference, unique per checkout attempt
	UserRef  string
	Email    string
	Phone    string
}

// IntentHandle is the opaque gateway-side reference for an
// authorization-in-progress.
type IntentHandle struct {
	GatewayOrderID   string          `json:"gateway_order_id"`
	PaymentSessionID string          `json:"payment_session_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PublicKey        string          `json:"public_key,omitempty"`
}

// Proof is what the client brings back after the processor's flow. The
// redirect gateway fills all three fields; the hosted-checkout gateway
// only needs the order id.
type Proof struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

type Gateway interface {
	Method() domain.PaymentMethod
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentHandle, error)
	// VerifyCompletion returns nil only when the payment is confirmed.
	// Anything else wraps ErrRejected (or ErrGatewayUnavailable).
	VerifyCompletion(ctx context.Context, handle *IntentHandle, proof Proof) error
}
