// Package catalog holds the storefront's product list. Cart additions are
// resolved against it so a request can never smuggle its own price.
package catalog

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/silkloom/store/internal/pricing"
)

var ErrUnknownProduct = errors.New("unknown product")

type Product struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image"`
}

// products is keyed by name; the name doubles as the cart line identity.
var products = []Product{
	{Name: "Royal Silk Emerald", Price: pricing.MustParsePrice("4999"), ImageRef: "/static/images/product1.png"},
	{Name: "Crimson Velvet", Price: pricing.MustParsePrice("5499"), ImageRef: "/static/images/product1.png"},
	{Name: "Midnight Azure", Price: pricing.MustParsePrice("4599"), ImageRef: "/static/images/product1.png"},
	{Name: "Sunrise Gold", Price: pricing.MustParsePrice("5999"), ImageRef: "/static/images/product1.png"},
	{Name: "Rose Petal", Price: pricing.MustParsePrice("5299"), ImageRef: "/static/images/product1.png"},
	{Name: "Lavender Dream", Price: pricing.MustParsePrice("4899"), ImageRef: "/static/images/product1.png"},
}

// All returns the catalog in display order.
func All() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// Lookup resolves a product by its name.
func Lookup(name string) (Product, error) {
	for _, p := range products {
		if p.Name == name {
			return p, nil
		}
	}
	return Product{}, ErrUnknownProduct
}
