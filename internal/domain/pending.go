package domain

import (
	"encoding/json"
	"time"
)

// ActionKind names the sensitive action a pending record guards. At most
// one live record per kind per session.
type ActionKind string

const (
	KindAccountSignup  ActionKind = "ACCOUNT_SIGNUP"
	KindPasswordReset  ActionKind = "PASSWORD_RESET"
	KindOrderPlacement ActionKind = "ORDER_PLACEMENT"
	KindPaymentIntent  ActionKind = "PAYMENT_INTENT"
)

// PendingAction is a transient, session-owned record: either an issued OTP
// waiting for its code, or an open payment intent waiting for gateway
// proof (in which case Code is empty). Consumed on successful
// verification, superseded on re-issue, expired by the store's TTL.
type PendingAction struct {
	Kind     ActionKind      `json:"kind"`
	Code     string          `json:"code,omitempty"`
	Payload  json.RawMessage `json:"payload"`
	IssuedAt time.Time       `json:"issued_at"`
}
