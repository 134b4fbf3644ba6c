// Package api is the HTTP surface of the storefront: cart editing,
// checkout, payment verification and order lookup.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the full route tree with the shared middleware set.
func NewRouter(cart *CartHandler, checkout *CheckoutHandler, requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", cart.ListProducts)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Post("/items", cart.AddItem)
			r.Delete("/items/{product_name}", cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkout.GetCheckout)
			r.Post("/place_order", checkout.PlaceOrder)
			r.Get("/verify_order", checkout.VerifyOrder)
			r.Post("/verify_order", checkout.VerifyOrder)
			r.Post("/create_payment", checkout.CreatePayment)
			r.Post("/verify_payment", checkout.VerifyPayment)
			r.Post("/create_cashfree_order", checkout.CreateCashfreeOrder)
			r.Post("/verify_cashfree_payment", checkout.VerifyCashfreePayment)
		})

		r.Get("/orders", checkout.ListOrders)
		r.Get("/order_success/{order_id}", checkout.GetOrder)
	})

	return r
}
