package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkloom/store/internal/domain"
)

func cartWith(lines ...domain.CartLine) *domain.Cart {
	return &domain.Cart{SessionID: "s1", Lines: lines}
}

func line(name string, price string, qty int) domain.CartLine {
	return domain.CartLine{
		ItemKey:     name,
		DisplayName: name,
		UnitPrice:   decimal.RequireFromString(price),
		Quantity:    qty,
	}
}

func TestCompute_BelowThreshold_NoDiscount(t *testing.T) {
	q := Compute(cartWith(line("Royal Silk Emerald", "4999", 1)))

	assert.True(t, q.Subtotal.Equal(decimal.RequireFromString("4999")))
	assert.True(t, q.Discount.IsZero())
	assert.True(t, q.FinalTotal.Equal(decimal.RequireFromString("4999")))
}

func TestCompute_AboveThreshold_TenPercent(t *testing.T) {
	q := Compute(cartWith(line("Crimson Velvet", "5499", 1)))

	assert.True(t, q.Subtotal.Equal(decimal.RequireFromString("5499")))
	assert.True(t, q.Discount.Equal(decimal.RequireFromString("549.9")))
	assert.True(t, q.FinalTotal.Equal(decimal.RequireFromString("4949.1")))
}

func TestCompute_ExactlyThreshold_NoDiscount(t *testing.T) {
	q := Compute(cartWith(line("Midnight Azure", "2500", 2)))

	assert.True(t, q.Subtotal.Equal(decimal.NewFromInt(5000)))
	assert.True(t, q.Discount.IsZero())
	assert.True(t, q.FinalTotal.Equal(decimal.NewFromInt(5000)))
}

func TestCompute_MultipleLines(t *testing.T) {
	q := Compute(cartWith(
		line("Sunrise Gold", "5999", 1),
		line("Rose Petal", "5299", 2),
	))

	assert.True(t, q.Subtotal.Equal(decimal.RequireFromString("16597")))
	assert.True(t, q.Discount.Equal(decimal.RequireFromString("1659.7")))
	assert.True(t, q.FinalTotal.Equal(decimal.RequireFromString("14937.3")))
}

func TestCompute_EmptyAndNilCart(t *testing.T) {
	for _, cart := range []*domain.Cart{nil, cartWith()} {
		q := Compute(cart)
		assert.True(t, q.Subtotal.IsZero())
		assert.True(t, q.Discount.IsZero())
		assert.True(t, q.FinalTotal.IsZero())
	}
}

func TestGatewayAmount_FlatAdjustment(t *testing.T) {
	got := GatewayAmount(decimal.RequireFromString("4949.1"))
	assert.True(t, got.Equal(decimal.RequireFromString("4929.1")))
}

func TestGatewayAmount_ClampsAtZero(t *testing.T) {
	for _, total := range []string{"0", "10", "19.99", "20"} {
		got := GatewayAmount(decimal.RequireFromString(total))
		assert.False(t, got.IsNegative(), "total %s must not go negative", total)
	}

	got := GatewayAmount(decimal.NewFromInt(15))
	assert.True(t, got.IsZero())

	got = GatewayAmount(decimal.NewFromInt(20))
	assert.True(t, got.IsZero())
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"4999", "4999"},
		{"₹4,999", "4999"},
		{"Rs. 5,499.50", "5499.5"},
		{" 5299.00 ", "5299"},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "parse %q", tc.in)
	}
}

func TestParsePrice_Malformed(t *testing.T) {
	for _, in := range []string{"", "free", "₹", "-100", "1.2.3"} {
		_, err := ParsePrice(in)
		assert.ErrorIs(t, err, ErrMalformedPrice, "input %q", in)
	}
}
