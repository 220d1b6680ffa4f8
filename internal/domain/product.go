package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry. Name is the canonical display name,
// casing and accents included.
type Product struct {
	Name      string          `json:"name" yaml:"name"`
	Price     decimal.Decimal `json:"price" yaml:"price"`
	PriceUnit Unit            `json:"price_unit" yaml:"price_unit"`
	Category  string          `json:"category,omitempty" yaml:"category,omitempty"`
}

// Catalog is an immutable set of products keyed by canonical name.
// Build it once with NewCatalog and share it freely between goroutines.
type Catalog struct {
	products map[string]Product
	names    []string
}

// NewCatalog validates products and returns an immutable catalog.
// Products without a price unit are priced per kilogram.
func NewCatalog(products []Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, ErrCatalogEmpty
	}

	c := &Catalog{
		products: make(map[string]Product, len(products)),
		names:    make([]string, 0, len(products)),
	}

	for _, p := range products {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: product without name", ErrInvalidProduct)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("%w: %q has a negative price", ErrInvalidProduct, p.Name)
		}
		if p.PriceUnit == "" {
			p.PriceUnit = UnitKilograms
		}
		if !p.PriceUnit.Valid() {
			return nil, fmt.Errorf("%w: %q has unknown price unit %q", ErrInvalidProduct, p.Name, p.PriceUnit)
		}
		if _, dup := c.products[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate product %q", ErrInvalidProduct, p.Name)
		}
		c.products[p.Name] = p
		c.names = append(c.names, p.Name)
	}

	sort.Strings(c.names)
	return c, nil
}

// Get returns the product registered under the canonical name.
func (c *Catalog) Get(name string) (Product, bool) {
	p, ok := c.products[name]
	return p, ok
}

// Names returns the canonical names in lexical order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Products returns every product ordered by name.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.products[n])
	}
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.names)
}
