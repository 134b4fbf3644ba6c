package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/silkloom/store/internal/checkout"
	"github.com/silkloom/store/internal/domain"
	"github.com/silkloom/store/internal/gateway"
	"github.com/silkloom/store/internal/otp"
	"github.com/silkloom/store/internal/pricing"
	"github.com/silkloom/store/internal/repository"
)

// CheckoutAPI is the slice of the checkout service the handler uses.
type CheckoutAPI interface {
	Quote(ctx context.Context, sessionID string) (pricing.Quote, error)
	PlaceOrder(ctx context.Context, sessionID string, user domain.User, method domain.PaymentMethod) error
	VerifyOrder(ctx context.Context, sessionID string, user domain.User, code string) (*domain.Order, error)
	CreatePaymentIntent(ctx context.Context, sessionID string, user domain.User, method domain.PaymentMethod) (*gateway.IntentHandle, error)
	VerifyPayment(ctx context.Context, sessionID string, user domain.User, method domain.PaymentMethod, proof gateway.Proof) (*domain.Order, error)
	GetOrder(ctx context.Context, user domain.User, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, user domain.User) ([]*domain.Order, error)
}

type CheckoutHandler struct {
	checkout CheckoutAPI
	timeout  time.Duration
}

func NewCheckoutHandler(service CheckoutAPI, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: service,
		timeout:  timeout,
	}
}

type PlaceOrderRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

type VerifyOrderRequestDTO struct {
	Code string `json:"code"`
}

type VerifyPaymentRequestDTO struct {
	PaymentMethod  string `json:"payment_method"`
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

type CheckoutSummaryDTO struct {
	Quote pricing.Quote `json:"quote"`
}

// GetCheckout shows the server-computed totals for the current cart.
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	quote, err := h.checkout.Quote(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute totals")
		return
	}

	respondJSON(w, http.StatusOK, CheckoutSummaryDTO{Quote: quote})
}

// PlaceOrder starts the cash-on-delivery flow: a verification code is
// emailed and the order stays uncommitted until it comes back.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, user, ok := h.identify(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	err := h.checkout.PlaceOrder(ctx, sessionID, user, domain.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "verification_pending",
	})
}

// VerifyOrder completes the cash-on-delivery flow. The code arrives as a
// query parameter on GET (email link) or in the JSON body on POST.
func (h *CheckoutHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, user, ok := h.identify(w, r)
	if !ok {
		return
	}

	var req VerifyOrderRequestDTO
	if r.Method == http.MethodGet {
		req.Code = r.URL.Query().Get("code")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "missing_code", "code is required")
		return
	}

	order, err := h.checkout.VerifyOrder(ctx, sessionID, user, req.Code)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// CreatePayment opens a gateway intent for the adjusted total.
func (h *CheckoutHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	h.createPayment(w, r, domain.PaymentMethod(req.PaymentMethod))
}

// CreateCashfreeOrder is the method-pinned alias the hosted-checkout
// client posts to.
func (h *CheckoutHandler) CreateCashfreeOrder(w http.ResponseWriter, r *http.Request) {
	h.createPayment(w, r, domain.PaymentMethodCashfree)
}

func (h *CheckoutHandler) createPayment(w http.ResponseWriter, r *http.Request, method domain.PaymentMethod) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, user, ok := h.identify(w, r)
	if !ok {
		return
	}

	handle, err := h.checkout.CreatePaymentIntent(ctx, sessionID, user, method)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, handle)
}

// VerifyPayment closes the gateway flow with the proof the client brought
// back from the processor.
func (h *CheckoutHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	h.verifyPayment(w, r, "")
}

// VerifyCashfreePayment is the method-pinned alias for the hosted
// checkout's return leg.
func (h *CheckoutHandler) VerifyCashfreePayment(w http.ResponseWriter, r *http.Request) {
	h.verifyPayment(w, r, domain.PaymentMethodCashfree)
}

func (h *CheckoutHandler) verifyPayment(w http.ResponseWriter, r *http.Request, method domain.PaymentMethod) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, user, ok := h.identify(w, r)
	if !ok {
		return
	}

	var req VerifyPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if method == "" {
		method = domain.PaymentMethod(req.PaymentMethod)
	}

	proof := gateway.Proof{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	}
	order, err := h.checkout.VerifyPayment(ctx, sessionID, user, method, proof)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GetOrder serves the order confirmation. Orders are private to their
// owner; anyone else gets a 403 regardless of whether the id exists.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, user, ok := h.identify(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, err := h.checkout.GetOrder(ctx, user, orderID)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// ListOrders serves the requester's order history.
func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, user, ok := h.identify(w, r)
	if !ok {
		return
	}

	orders, err := h.checkout.ListOrders(ctx, user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *CheckoutHandler) identify(w http.ResponseWriter, r *http.Request) (string, domain.User, bool) {
	sessionID := sessionFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return "", domain.User{}, false
	}
	user, ok := userFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return "", domain.User{}, false
	}
	return sessionID, user, true
}

func (h *CheckoutHandler) handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, checkout.ErrUnsupportedMethod):
		respondError(w, http.StatusBadRequest, "unsupported_method", "unsupported payment method")
	case errors.Is(err, checkout.ErrOrderAccessDenied):
		respondError(w, http.StatusForbidden, "forbidden", "order belongs to another user")
	case errors.Is(err, otp.ErrInvalidCode):
		respondError(w, http.StatusBadRequest, "invalid_code", "wrong verification code, try again")
	case errors.Is(err, otp.ErrNoPendingAction):
		respondError(w, http.StatusConflict, "no_pending_action", "nothing to verify, start over")
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		respondError(w, http.StatusServiceUnavailable, "gateway_unavailable", "payment gateway unavailable")
	case errors.Is(err, gateway.ErrRejected):
		respondError(w, http.StatusPaymentRequired, "payment_rejected", "payment could not be verified, try again")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
