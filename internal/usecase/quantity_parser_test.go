package usecase

import (
	"testing"

	"github.com/carniceria-aranda/backend/internal/domain"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "2", want: "2", wantOK: true},
		{input: "1,5", want: "1.5", wantOK: true},
		{input: "0.75", want: "0.75", wantOK: true},
		{input: "1/2", want: "0.5", wantOK: true},
		{input: "3 / 4", want: "0.75", wantOK: true},
		{input: "1 1/2", want: "1.5", wantOK: true},
		{input: "½", want: "0.5", wantOK: true},
		{input: "una", want: "1", wantOK: true},
		{input: "Medio", want: "0.5", wantOK: true},
		{input: "tres  cuartos", want: "0.75", wantOK: true},
		{input: "veinte", want: "20", wantOK: true},
		{input: "docena", want: "12", wantOK: true},
		{input: "dos y medio", want: "2.5", wantOK: true},
		{input: "1/0", wantOK: false},
		{input: "muchos", wantOK: false},
		{input: "-1", wantOK: false},
		{input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseAmount(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(dec(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name      string
		quantity  string
		unit      string
		wantValue string
		wantUnit  domain.Unit
		wantValid bool
	}{
		{name: "grams to kilograms", quantity: "500", unit: "g", wantValue: "0.5", wantUnit: domain.UnitKilograms, wantValid: true},
		{name: "fraction without unit", quantity: "1/2", wantValue: "0.5", wantUnit: domain.UnitKilograms, wantValid: true},
		{name: "word with kilo unit", quantity: "medio", unit: "kg", wantValue: "0.5", wantUnit: domain.UnitKilograms, wantValid: true},
		{name: "spelled unit", quantity: "250", unit: "gramos", wantValue: "0.25", wantUnit: domain.UnitKilograms, wantValid: true},
		{name: "unit with trailing dot", quantity: "2", unit: "Kg.", wantValue: "2", wantUnit: domain.UnitKilograms, wantValid: true},
		{name: "gram precision", quantity: "333.3333", unit: "g", wantValue: "0.333", wantUnit: domain.UnitKilograms, wantValid: true},
		{name: "pieces", quantity: "3", unit: "uds", wantValue: "3", wantUnit: domain.UnitPieces, wantValid: true},
		{name: "dozen of pieces", quantity: "docena", unit: "u", wantValue: "12", wantUnit: domain.UnitPieces, wantValid: true},
		{name: "fractional pieces rejected", quantity: "1.5", unit: "u", wantValue: "0", wantUnit: domain.UnitPieces, wantValid: false},
		{name: "zero rejected", quantity: "0", unit: "kg", wantValue: "0", wantUnit: domain.UnitKilograms, wantValid: false},
		{name: "unknown unit", quantity: "2", unit: "litros", wantValue: "0", wantUnit: domain.UnitKilograms, wantValid: false},
		{name: "unparsable amount", quantity: "bastante", unit: "kg", wantValue: "0", wantUnit: domain.UnitKilograms, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuantity(tt.quantity, tt.unit)
			if !got.Value.Equal(dec(tt.wantValue)) {
				t.Errorf("Value = %s, want %s", got.Value, tt.wantValue)
			}
			if got.Unit != tt.wantUnit {
				t.Errorf("Unit = %q, want %q", got.Unit, tt.wantUnit)
			}
			if got.Valid() != tt.wantValid {
				t.Errorf("Valid() = %v, want %v", got.Valid(), tt.wantValid)
			}
		})
	}
}
