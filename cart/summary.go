package cart

import (
	"github.com/shopspring/decimal"

	"menu-api/domain"
)

// TaxRate is applied to the subtotal of every order.
var TaxRate = decimal.RequireFromString("0.10")

// Summarize derives the order totals from the cart items. Amounts are exact
// decimals; no rounding is applied.
func Summarize(items []domain.CartItem) domain.OrderSummary {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	tax := subtotal.Mul(TaxRate)
	return domain.OrderSummary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
