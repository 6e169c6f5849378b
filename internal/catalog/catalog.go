package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image"`
	Sizes       []string        `json:"sizes"`
	MaxQuantity int             `json:"max_quantity"`
}

// OffersSize reports whether size is one of the product's sizes (case-insensitive).
// Products without sizes accept only an empty size.
func (p Product) OffersSize(size string) bool {
	size = strings.TrimSpace(size)
	if len(p.Sizes) == 0 {
		return size == ""
	}
	for _, candidate := range p.Sizes {
		if strings.EqualFold(candidate, size) {
			return true
		}
	}
	return false
}

// CanonicalSize returns the catalog spelling of size, or size unchanged.
func (p Product) CanonicalSize(size string) string {
	size = strings.TrimSpace(size)
	for _, candidate := range p.Sizes {
		if strings.EqualFold(candidate, size) {
			return candidate
		}
	}
	return size
}

// UnitAmountCents converts the decimal price to minor units.
func (p Product) UnitAmountCents() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}

// Catalog is a read-only, in-memory product list.
type Catalog struct {
	order    []string
	products map[string]Product
}

// New builds a catalog from the given products; later duplicates win.
func New(products ...Product) *Catalog {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}
		if _, seen := c.products[id]; !seen {
			c.order = append(c.order, id)
		}
		c.products[id] = p
	}
	return c
}

// Default returns the storefront's shipped catalog.
func Default() *Catalog {
	return New(Product{
		ID:          "born-to-dilly-shirt",
		Name:        "Born to Dilly Dally Shirt",
		Description: "Meme shirt with cats",
		Price:       decimal.RequireFromString("19.99"),
		ImageURL:    "https://th.bing.com/th/id/OIP.BomvC4d9K6_-VAKq2LQqQwHaHU?o=7rm=3&rs=1&pid=ImgDetMain&o=7&rm=3",
		Sizes:       []string{"S", "M", "L", "XL", "2XL", "3XL", "4XL", "5XL"},
		MaxQuantity: 10,
	})
}

// Lookup returns the product with the given id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.products[strings.TrimSpace(id)]
	return p, ok
}

// List returns products in insertion order.
func (c *Catalog) List() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}
