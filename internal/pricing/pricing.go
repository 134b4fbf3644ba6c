package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/silkloom/store/internal/domain"
)

var (
	// discountThreshold is the subtotal above which the flat discount applies.
	discountThreshold = decimal.NewFromInt(5000)
	discountRate      = decimal.NewFromFloat(0.10)
	// onlineAdjustment is the flat reduction applied only when an online
	// payment intent is created or verified. It never appears on the
	// checkout summary.
	onlineAdjustment = decimal.NewFromInt(20)
)

var ErrMalformedPrice = errors.New("malformed price")

// Quote is the server-computed total for a cart snapshot. All figures are
// non-negative and rounded to 2 decimal places.
type Quote struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

// Compute prices a cart. The server is the sole source of truth for
// prices: callers must re-invoke this at every commit point rather than
// trusting figures captured earlier in the flow.
func Compute(cart *domain.Cart) Quote {
	subtotal := decimal.Zero
	if cart != nil {
		for _, line := range cart.Lines {
			subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	if subtotal.GreaterThan(discountThreshold) {
		discount = subtotal.Mul(discountRate).Round(2)
	}

	return Quote{
		Subtotal:   subtotal,
		Discount:   discount,
		FinalTotal: subtotal.Sub(discount).Round(2),
	}
}

// GatewayAmount applies the online-payment adjustment to a final total,
// clamped at zero so a small cart can never produce a negative charge.
func GatewayAmount(finalTotal decimal.Decimal) decimal.Decimal {
	adjusted := finalTotal.Sub(onlineAdjustment)
	if adjusted.IsNegative() {
		return decimal.Zero
	}
	return adjusted.Round(2)
}

// ParsePrice reads a display price such as "₹4,999" or "5499.00".
// Malformed input is rejected rather than silently priced at zero.
func ParsePrice(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "₹")
	cleaned = strings.TrimPrefix(cleaned, "Rs.")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, ErrMalformedPrice
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrMalformedPrice
	}
	if d.IsNegative() {
		return decimal.Zero, ErrMalformedPrice
	}
	return d.Round(2), nil
}

// MustParsePrice is for static catalog data known to be well formed.
func MustParsePrice(s string) decimal.Decimal {
	d, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return d
}
