package usecase

import (
	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// centPrecision is the number of decimals of a money amount.
const centPrecision = 2

// BuildReceipt prices every cart line against the catalog. A line whose unit
// differs from the product's price unit (pieces of a product sold by the
// kilogram) stays pending until it is weighed and does not count towards
// the total. Lines of products no longer in the catalog are pending too.
func BuildReceipt(cart domain.Cart, catalog *domain.Catalog) domain.Receipt {
	receipt := domain.Receipt{
		Lines: make([]domain.ReceiptLine, 0, len(cart)),
		Total: decimal.Zero,
	}

	for _, line := range cart {
		rl := domain.ReceiptLine{
			Product:  line.Product,
			Quantity: domain.Quantity{Value: line.Quantity, Unit: line.Unit},
		}

		product, ok := catalog.Get(line.Product)
		if ok {
			rl.UnitPrice = product.Price
			rl.PriceUnit = product.PriceUnit
			if product.PriceUnit == line.Unit {
				subtotal := line.Quantity.Mul(product.Price).Round(centPrecision)
				rl.Subtotal = &subtotal
				receipt.Total = receipt.Total.Add(subtotal)
			}
		}

		receipt.Lines = append(receipt.Lines, rl)
	}

	receipt.Total = receipt.Total.Round(centPrecision)
	return receipt
}
