package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/silkloom/store/internal/cart/repository"
	"github.com/silkloom/store/internal/catalog"
	"github.com/silkloom/store/internal/domain"
)

// CartAPI is the slice of the cart service the handler uses.
type CartAPI interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddLine(ctx context.Context, sessionID string, line domain.CartLine) error
	RemoveLine(ctx context.Context, sessionID, itemKey string) error
}

type CartHandler struct {
	carts   CartAPI
	timeout time.Duration
}

func NewCartHandler(carts CartAPI, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductName string `json:"product_name"`
}

// ListProducts serves the static catalog.
func (h *CartHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, catalog.All())
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// AddItem resolves the product against the catalog, never against any
// price the client may send.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductName == "" {
		respondError(w, http.StatusBadRequest, "missing_product_name", "product_name is required")
		return
	}

	product, err := catalog.Lookup(req.ProductName)
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown_product", "no such product")
		return
	}

	line := domain.CartLine{
		ItemKey:     product.Name,
		DisplayName: product.Name,
		UnitPrice:   product.Price,
		ImageRef:    product.ImageRef,
		Quantity:    1,
		AddedAt:     time.Now(),
	}
	if err := h.carts.AddLine(ctx, sessionID, line); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item")
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	// Product names contain spaces, so the path segment arrives escaped.
	itemKey, err := url.PathUnescape(chi.URLParam(r, "product_name"))
	if err != nil || itemKey == "" {
		respondError(w, http.StatusBadRequest, "missing_product_name", "product_name is required")
		return
	}

	if err := h.carts.RemoveLine(ctx, sessionID, itemKey); err != nil {
		if errors.Is(err, repository.ErrLineNotFound) || errors.Is(err, repository.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not in cart")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove item")
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}
	respondJSON(w, http.StatusOK, cart)
}
