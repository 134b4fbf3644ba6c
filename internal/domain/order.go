package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "COD"
	PaymentMethodRazorpay PaymentMethod = "RAZORPAY"
	PaymentMethodCashfree PaymentMethod = "CASHFREE"
)

func (m PaymentMethod) IsGateway() bool {
	return m == PaymentMethodRazorpay || m == PaymentMethodCashfree
}

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusPlaced  OrderStatus = "PLACED"
	OrderStatusPaid    OrderStatus = "PAID"
)

// OrderItem is a purchase-time snapshot of a cart line. Catalog changes
// after the order is committed must not alter it.
type OrderItem struct {
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	ImageRef    string          `json:"image_ref"`
}

// Order is the durable record of a committed purchase. Append-only once
// created; only status may move, driven by payment verification.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	IdempotencyKey uuid.UUID       `json:"idempotency_key"`
	UserID         string          `json:"user_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Status         OrderStatus     `json:"status"`
	GatewayOrderID string          `json:"gateway_order_id,omitempty"`
	Items          []OrderItem     `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
