// Package checkout drives a session cart from editable to placed order.
// The cart is converted into a durable order exactly once; totals are
// recomputed server-side at every step that money depends on.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/silkloom/store/internal/domain"
	"github.com/silkloom/store/internal/gateway"
	"github.com/silkloom/store/internal/otp"
	"github.com/silkloom/store/internal/pricing"
	"github.com/silkloom/store/internal/repository"
)

const defaultCurrency = "INR"

// CartService is the slice of the cart API the orchestrator needs.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// OTPGate guards the cash-on-delivery path.
type OTPGate interface {
	Issue(ctx context.Context, sessionID string, kind domain.ActionKind, recipient string, payload any) (string, error)
	Verify(ctx context.Context, sessionID string, kind domain.ActionKind, submittedCode string) (json.RawMessage, error)
}

type Service struct {
	carts          CartService
	gate           OTPGate
	pending        otp.PendingStore
	repo           repository.Store
	gateways       map[domain.PaymentMethod]gateway.Gateway
	gatewayTimeout time.Duration
}

func NewService(carts CartService, gate OTPGate, pending otp.PendingStore, repo repository.Store, gatewayTimeout time.Duration, gateways ...gateway.Gateway) *Service {
	byMethod := make(map[domain.PaymentMethod]gateway.Gateway, len(gateways))
	for _, gw := range gateways {
		byMethod[gw.Method()] = gw
	}
	return &Service{
		carts:          carts,
		gate:           gate,
		pending:        pending,
		repo:           repo,
		gateways:       byMethod,
		gatewayTimeout: gatewayTimeout,
	}
}

// orderPlacementPayload rides inside the OTP pending action for the COD
// path. The idempotency key is minted when the OTP is issued, so a
// retried verification cannot create a second order.
type orderPlacementPayload struct {
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
	IdempotencyKey uuid.UUID            `json:"idempotency_key"`
}

// paymentIntentPayload is staged when a gateway intent opens.
type paymentIntentPayload struct {
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
	IdempotencyKey uuid.UUID            `json:"idempotency_key"`
	Handle         gateway.IntentHandle `json:"handle"`
}

// Quote computes the totals shown on the checkout page. Display only:
// commit recomputes from scratch.
func (s *Service) Quote(ctx context.Context, sessionID string) (pricing.Quote, error) {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("load cart: %w", err)
	}
	return pricing.Compute(cart), nil
}

// PlaceOrder starts the cash-on-delivery path: it stages an OTP bound to
// the payment method and emails the code. The cart is left untouched.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, user domain.User, method domain.PaymentMethod) error {
	if method != domain.PaymentMethodCOD {
		return ErrUnsupportedMethod
	}

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return ErrEmptyCart
	}

	payload := orderPlacementPayload{
		PaymentMethod:  method,
		IdempotencyKey: uuid.New(),
	}
	if _, err := s.gate.Issue(ctx, sessionID, domain.KindOrderPlacement, user.Email, payload); err != nil {
		return fmt.Errorf("issue order otp: %w", err)
	}
	return nil
}

// VerifyOrder completes the COD path. On a matching code the totals are
// recomputed from the current cart, the order is committed as PLACED and
// the cart cleared. A wrong code leaves everything staged for retry.
func (s *Service) VerifyOrder(ctx context.Context, sessionID string, user domain.User, code string) (*domain.Order, error) {
	raw, err := s.gate.Verify(ctx, sessionID, domain.KindOrderPlacement, code)
	if err != nil {
		return nil, err
	}

	var payload orderPlacementPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode pending order payload: %w", err)
	}

	return s.commit(ctx, sessionID, user, payload.PaymentMethod, domain.OrderStatusPlaced, payload.IdempotencyKey, "", false)
}

// CreatePaymentIntent starts the online path: it opens a gateway-side
// order for the adjusted total and stages the intent against the session.
func (s *Service) CreatePaymentIntent(ctx context.Context, sessionID string, user domain.User, method domain.PaymentMethod) (*gateway.IntentHandle, error) {
	gw, ok := s.gateways[method]
	if !ok || !method.IsGateway() {
		return nil, ErrUnsupportedMethod
	}

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	quote := pricing.Compute(cart)
	amount := pricing.GatewayAmount(quote.FinalTotal)
	idemKey := uuid.New()

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	handle, err := gw.CreateIntent(gwCtx, gateway.IntentRequest{
		Amount:   amount,
		Currency: defaultCurrency,
		Receipt:  idemKey.String(),
		UserRef:  user.ID,
		Email:    user.Email,
		Phone:    user.Phone,
	})
	if err != nil {
		return nil, err
	}

	action := &domain.PendingAction{
		Kind:     domain.KindPaymentIntent,
		Payload:  mustJSON(paymentIntentPayload{PaymentMethod: method, IdempotencyKey: idemKey, Handle: *handle}),
		IssuedAt: time.Now(),
	}
	if err := s.pending.Put(ctx, sessionID, action); err != nil {
		return nil, fmt.Errorf("stage payment intent: %w", err)
	}

	return handle, nil
}

// VerifyPayment completes the online path. The gateway confirms the
// proof; only then is the order committed as PAID. A rejected proof keeps
// the intent staged and the cart intact so the caller can retry.
func (s *Service) VerifyPayment(ctx context.Context, sessionID string, user domain.User, method domain.PaymentMethod, proof gateway.Proof) (*domain.Order, error) {
	action, err := s.pending.Get(ctx, sessionID, domain.KindPaymentIntent)
	if err != nil {
		return nil, err
	}

	var payload paymentIntentPayload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode pending intent payload: %w", err)
	}
	if payload.PaymentMethod != method {
		return nil, fmt.Errorf("%w: intent was opened for %s", gateway.ErrRejected, payload.PaymentMethod)
	}

	gw, ok := s.gateways[method]
	if !ok {
		return nil, ErrUnsupportedMethod
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	if err := gw.VerifyCompletion(gwCtx, &payload.Handle, proof); err != nil {
		return nil, err
	}

	order, err := s.commit(ctx, sessionID, user, method, domain.OrderStatusPaid, payload.IdempotencyKey, payload.Handle.GatewayOrderID, true)
	if err != nil {
		return nil, err
	}

	if err := s.pending.Delete(ctx, sessionID, domain.KindPaymentIntent); err != nil {
		log.Warn().Err(err).Msg("failed to consume payment intent after commit")
	}
	return order, nil
}

// GetOrder loads an order and enforces that the requester owns it.
func (s *Service) GetOrder(ctx context.Context, user domain.User, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

// ListOrders returns the requester's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, user domain.User) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, user.ID)
}

// commit is the single place a cart becomes an order. The order row, item
// snapshots and outbox event land in one transaction; the cart is cleared
// only after that transaction is confirmed. A duplicate idempotency key
// resolves to the already-committed order, which also makes a crashed
// clear step safe to retry.
func (s *Service) commit(ctx context.Context, sessionID string, user domain.User, method domain.PaymentMethod, status domain.OrderStatus, idemKey uuid.UUID, gatewayOrderID string, gatewayAdjusted bool) (*domain.Order, error) {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart for commit: %w", err)
	}

	if cart.IsEmpty() {
		// Double submit after a successful commit leaves an empty cart
		// behind; hand back the order the key already produced.
		existing, lookupErr := s.repo.GetOrderByIdempotencyKey(ctx, idemKey)
		if lookupErr == nil {
			return existing, nil
		}
		if errors.Is(lookupErr, repository.ErrOrderNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("lookup committed order: %w", lookupErr)
	}

	// Never trust totals captured earlier in the flow: the cart may have
	// changed since the OTP or intent was issued.
	quote := pricing.Compute(cart)
	total := quote.FinalTotal
	if gatewayAdjusted {
		total = pricing.GatewayAmount(total)
	}

	items := make([]domain.OrderItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, domain.OrderItem{
			ProductName: line.ItemKey,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			ImageRef:    line.ImageRef,
		})
	}

	now := time.Now()
	order := &domain.Order{
		ID:             uuid.New(),
		IdempotencyKey: idemKey,
		UserID:         user.ID,
		TotalAmount:    total,
		Currency:       defaultCurrency,
		PaymentMethod:  method,
		Status:         status,
		GatewayOrderID: gatewayOrderID,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			existing, lookupErr := s.repo.GetOrderByIdempotencyKey(ctx, idemKey)
			if lookupErr != nil {
				return nil, fmt.Errorf("lookup duplicate order: %w", lookupErr)
			}
			order = existing
		} else {
			// Persistence failure: the cart must survive so the user can
			// retry without rebuilding it.
			return nil, fmt.Errorf("persist order: %w", err)
		}
	}

	if err := s.carts.ClearCart(ctx, sessionID); err != nil {
		// The order is durable; a retried commit resolves the duplicate
		// key and clears again.
		log.Error().Err(err).Str("order_id", order.ID.String()).Msg("cart clear failed after commit")
	}

	return order, nil
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
