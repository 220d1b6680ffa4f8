package domain

import (
	"github.com/shopspring/decimal"
)

// ReceiptLine is one priced (or pending) cart line.
type ReceiptLine struct {
	Product   string          `json:"product"`
	Quantity  Quantity        `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	PriceUnit Unit            `json:"price_unit"`
	// Subtotal is nil when the line cannot be priced until it is weighed.
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
}

// Pending reports whether the line still has to be weighed at the counter.
func (l ReceiptLine) Pending() bool {
	return l.Subtotal == nil
}

// Receipt is the priced summary of a cart.
type Receipt struct {
	Lines []ReceiptLine   `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// HasPending reports whether any line could not be priced.
func (r Receipt) HasPending() bool {
	for _, l := range r.Lines {
		if l.Pending() {
			return true
		}
	}
	return false
}
