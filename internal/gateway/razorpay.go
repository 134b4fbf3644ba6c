package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/silkloom/store/internal/domain"
)

// RazorpayGateway is the redirect-style processor: the client completes
// payment on Razorpay's widget and returns a signed triple which we verify
// against the key secret.
type RazorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

// NewRazorpayGateway degrades to a disabled adapter when credentials are
// missing, so a misconfigured deployment fails per-request instead of at
// startup.
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	g := &RazorpayGateway{keyID: keyID, keySecret: keySecret}
	if keyID != "" && keySecret != "" {
		g.client = razorpay.NewClient(keyID, keySecret)
	}
	return g
}

func (g *RazorpayGateway) Method() domain.PaymentMethod {
	return domain.PaymentMethodRazorpay
}

func (g *RazorpayGateway) CreateIntent(_ context.Context, req IntentRequest) (*IntentHandle, error) {
	if g.client == nil {
		return nil, ErrGatewayUnavailable
	}

	// Razorpay charges in minor units.
	paise := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	data := map[string]interface{}{
		"amount":   paise,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("razorpay order create: response missing order id")
	}

	return &IntentHandle{
		GatewayOrderID: orderID,
		Amount:         req.Amount,
		PublicKey:      g.keyID,
	}, nil
}

// VerifyCompletion checks the signature triple: HMAC-SHA256 over
// "orderID|paymentID" keyed with the secret, hex encoded.
func (g *RazorpayGateway) VerifyCompletion(_ context.Context, handle *IntentHandle, proof Proof) error {
	if g.client == nil {
		return ErrGatewayUnavailable
	}
	if handle == nil || proof.GatewayOrderID != handle.GatewayOrderID {
		return fmt.Errorf("%w: proof does not match the open intent", ErrRejected)
	}
	if proof.PaymentID == "" || proof.Signature == "" {
		return fmt.Errorf("%w: incomplete signature proof", ErrRejected)
	}

	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(proof.GatewayOrderID + "|" + proof.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(proof.Signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrRejected)
	}
	return nil
}
