package catalog

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Header names accepted for each column, compared case-insensitively.
var (
	nameHeaders     = []string{"nombre", "producto", "name", "product"}
	priceHeaders    = []string{"precio", "price", "precio/kg", "€/kg"}
	unitHeaders     = []string{"unidad", "unit", "venta"}
	categoryHeaders = []string{"categoria", "categoría", "category", "familia"}
)

var headerCaser = cases.Fold()

// columnMap holds the position of every known column, -1 when absent.
type columnMap struct {
	name     int
	price    int
	unit     int
	category int
}

// mapHeader locates the catalog columns in a header row.
func mapHeader(header []string) (columnMap, error) {
	cols := columnMap{name: -1, price: -1, unit: -1, category: -1}

	for i, h := range header {
		h = headerCaser.String(strings.TrimSpace(h))
		switch {
		case cols.name < 0 && contains(nameHeaders, h):
			cols.name = i
		case cols.price < 0 && contains(priceHeaders, h):
			cols.price = i
		case cols.unit < 0 && contains(unitHeaders, h):
			cols.unit = i
		case cols.category < 0 && contains(categoryHeaders, h):
			cols.category = i
		}
	}

	if cols.name < 0 || cols.price < 0 {
		return cols, fmt.Errorf("%w: header needs a name and a price column, got %q", domain.ErrInvalidProduct, header)
	}
	return cols, nil
}

// mapRow converts one data row into a product.
func mapRow(row []string, cols columnMap) (domain.Product, error) {
	name := cell(row, cols.name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: empty name", domain.ErrInvalidProduct)
	}

	price, err := ParsePrice(cell(row, cols.price))
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidProduct, name, err)
	}

	unit, err := ParseUnit(cell(row, cols.unit))
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidProduct, name, err)
	}

	return domain.Product{
		Name:      titleName(name),
		Price:     price,
		PriceUnit: unit,
		Category:  cell(row, cols.category),
	}, nil
}

// ParsePrice reads prices such as "12,50", "12.50 €" or "€8".
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/kg"), "/u")
	s = strings.Trim(s, "€ ")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("missing price")
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", raw)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", raw)
	}
	return price, nil
}

// ParseUnit reads the selling unit; an empty cell means kilograms.
func ParseUnit(raw string) (domain.Unit, error) {
	switch headerCaser.String(strings.TrimSpace(raw)) {
	case "", "kg", "kilo", "kilos", "peso":
		return domain.UnitKilograms, nil
	case "u", "ud", "uds", "unidad", "unidades", "pieza", "piezas":
		return domain.UnitPieces, nil
	default:
		return "", fmt.Errorf("unknown unit %q", raw)
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// titleName gives lowercase catalog names a display form, "pechuga de pollo"
// becomes "Pechuga de pollo". Names that already carry capitals are kept.
func titleName(name string) string {
	if name != strings.ToLower(name) {
		return name
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
