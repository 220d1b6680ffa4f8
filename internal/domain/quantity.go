package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Unit is the unit class of a quantity.
type Unit string

const (
	UnitKilograms Unit = "kg"
	UnitPieces    Unit = "u"
)

// Valid reports whether u is a known unit class.
func (u Unit) Valid() bool {
	return u == UnitKilograms || u == UnitPieces
}

// KilogramPrecision is the number of decimals kept for masses.
const KilogramPrecision = 3

// Quantity is an amount in kilograms or whole pieces. The zero value
// (or any non-positive value) means "no usable quantity".
type Quantity struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

// Kilograms builds a mass rounded to KilogramPrecision decimals.
func Kilograms(v decimal.Decimal) Quantity {
	return Quantity{Value: v.Round(KilogramPrecision), Unit: UnitKilograms}
}

// Pieces builds a piece count.
func Pieces(v decimal.Decimal) Quantity {
	return Quantity{Value: v, Unit: UnitPieces}
}

// IsZero reports whether the quantity carries no usable amount.
func (q Quantity) IsZero() bool {
	return !q.Value.IsPositive()
}

// Valid reports whether the quantity is positive and, for pieces, whole.
func (q Quantity) Valid() bool {
	if q.IsZero() || !q.Unit.Valid() {
		return false
	}
	if q.Unit == UnitPieces && !q.Value.IsInteger() {
		return false
	}
	return true
}

// String renders the quantity the way it is shown to customers, e.g.
// "1.5 kg" or "2 u".
func (q Quantity) String() string {
	return fmt.Sprintf("%s %s", q.Value.String(), q.Unit)
}
