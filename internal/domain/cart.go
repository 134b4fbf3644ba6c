package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is a single product entry in a session cart. The product name is
// the line identity; the price is snapshotted when the line is first added
// and later adds for the same key only bump the quantity.
type CartLine struct {
	ItemKey     string          `json:"item_key"`
	DisplayName string          `json:"display_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageRef    string          `json:"image_ref"`
	Quantity    int             `json:"quantity"`
	AddedAt     time.Time       `json:"added_at"`
}

// Cart holds the lines of one browsing session, in insertion order.
// A line with quantity zero is removed, never retained.
type Cart struct {
	SessionID string     `json:"session_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// Line returns the line with the given key, or nil.
func (c *Cart) Line(itemKey string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ItemKey == itemKey {
			return &c.Lines[i]
		}
	}
	return nil
}
