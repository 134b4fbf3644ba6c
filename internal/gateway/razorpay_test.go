package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/silkloom/store/internal/domain"
)

func signTriple(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpay_Method(t *testing.T) {
	g := NewRazorpayGateway("key", "secret")
	assert.Equal(t, domain.PaymentMethodRazorpay, g.Method())
}

func TestRazorpay_DisabledWithoutCredentials(t *testing.T) {
	g := NewRazorpayGateway("", "")

	_, err := g.CreateIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	err = g.VerifyCompletion(context.Background(), &IntentHandle{}, Proof{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestRazorpay_VerifyCompletion_ValidSignature(t *testing.T) {
	g := NewRazorpayGateway("key", "secret")
	handle := &IntentHandle{GatewayOrderID: "order_abc"}

	err := g.VerifyCompletion(context.Background(), handle, Proof{
		GatewayOrderID: "order_abc",
		PaymentID:      "pay_xyz",
		Signature:      signTriple("order_abc", "pay_xyz", "secret"),
	})

	assert.NoError(t, err)
}

func TestRazorpay_VerifyCompletion_TamperedSignature(t *testing.T) {
	g := NewRazorpayGateway("key", "secret")
	handle := &IntentHandle{GatewayOrderID: "order_abc"}

	err := g.VerifyCompletion(context.Background(), handle, Proof{
		GatewayOrderID: "order_abc",
		PaymentID:      "pay_xyz",
		Signature:      signTriple("order_abc", "pay_xyz", "wrong-secret"),
	})

	assert.ErrorIs(t, err, ErrRejected)
}

func TestRazorpay_VerifyCompletion_WrongOrder(t *testing.T) {
	g := NewRazorpayGateway("key", "secret")
	handle := &IntentHandle{GatewayOrderID: "order_abc"}

	err := g.VerifyCompletion(context.Background(), handle, Proof{
		GatewayOrderID: "order_other",
		PaymentID:      "pay_xyz",
		Signature:      signTriple("order_other", "pay_xyz", "secret"),
	})

	assert.ErrorIs(t, err, ErrRejected)
}

func TestRazorpay_VerifyCompletion_MissingProofFields(t *testing.T) {
	g := NewRazorpayGateway("key", "secret")
	handle := &IntentHandle{GatewayOrderID: "order_abc"}

	err := g.VerifyCompletion(context.Background(), handle, Proof{GatewayOrderID: "order_abc"})
	assert.ErrorIs(t, err, ErrRejected)
}
