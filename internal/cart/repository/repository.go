package repository

import (
	"context"
	"errors"

	"github.com/silkloom/store/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// CartRepository defines the persistence contract for session carts.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	// AddLine appends a new line with quantity 1, or increments the
	// quantity of an existing line with the same item key. The price and
	// display name supplied for an existing key are ignored: first write
	// wins, so a later add cannot smuggle a different price.
	AddLine(ctx context.Context, sessionID string, line domain.CartLine) error
	RemoveLine(ctx context.Context, sessionID, itemKey string) error
	DeleteCart(ctx context.Context, sessionID string) error
}
