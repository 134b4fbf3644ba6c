package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrOrderAccessDenied = errors.New("order belongs to another user")
)
