package usecase

import (
	"testing"

	"github.com/carniceria-aranda/backend/internal/domain"
)

func TestBuildReceipt(t *testing.T) {
	catalog := shopCatalog(t)
	cart := domain.Cart{
		{Product: "Pollo", Unit: domain.UnitKilograms, Quantity: dec("1.5")},
		{Product: "Hamburguesa", Unit: domain.UnitPieces, Quantity: dec("3")},
		{Product: "Pollo", Unit: domain.UnitPieces, Quantity: dec("2")},
		{Product: "Cordero", Unit: domain.UnitKilograms, Quantity: dec("1")},
	}

	receipt := BuildReceipt(cart, catalog)

	if len(receipt.Lines) != 4 {
		t.Fatalf("Lines = %d, want 4", len(receipt.Lines))
	}

	tests := []struct {
		name         string
		line         int
		wantSubtotal string
	}{
		{name: "kilograms priced per kilogram", line: 0, wantSubtotal: "6.75"},
		{name: "pieces priced per piece", line: 1, wantSubtotal: "3.60"},
		{name: "pieces of a product sold by weight", line: 2},
		{name: "product no longer in catalog", line: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := receipt.Lines[tt.line]
			if tt.wantSubtotal == "" {
				if !line.Pending() {
					t.Errorf("line %d subtotal = %v, want pending", tt.line, line.Subtotal)
				}
				return
			}
			if line.Pending() {
				t.Fatalf("line %d is pending, want %s", tt.line, tt.wantSubtotal)
			}
			if !line.Subtotal.Equal(dec(tt.wantSubtotal)) {
				t.Errorf("line %d subtotal = %s, want %s", tt.line, line.Subtotal, tt.wantSubtotal)
			}
		})
	}

	if !receipt.Total.Equal(dec("10.35")) {
		t.Errorf("Total = %s, want 10.35", receipt.Total)
	}
	if !receipt.HasPending() {
		t.Error("HasPending() = false, want true")
	}
	if !receipt.Lines[2].UnitPrice.Equal(dec("4.50")) || receipt.Lines[2].PriceUnit != domain.UnitKilograms {
		t.Errorf("pending line price = %s/%s, want 4.50/kg", receipt.Lines[2].UnitPrice, receipt.Lines[2].PriceUnit)
	}
}

func TestBuildReceipt_RoundsToCents(t *testing.T) {
	catalog := newCatalog(t, product("Chorizo", "9.99", domain.UnitKilograms))
	cart := domain.Cart{{Product: "Chorizo", Unit: domain.UnitKilograms, Quantity: dec("0.333")}}

	receipt := BuildReceipt(cart, catalog)

	// 0.333 * 9.99 = 3.32667
	if !receipt.Total.Equal(dec("3.33")) {
		t.Errorf("Total = %s, want 3.33", receipt.Total)
	}
	if receipt.HasPending() {
		t.Error("HasPending() = true, want false")
	}
}

func TestBuildReceipt_EmptyCart(t *testing.T) {
	receipt := BuildReceipt(nil, shopCatalog(t))
	if len(receipt.Lines) != 0 || !receipt.Total.IsZero() {
		t.Errorf("BuildReceipt(nil) = %+v, want empty", receipt)
	}
}
