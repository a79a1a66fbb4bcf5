package order

import "github.com/shopspring/decimal"

// PricePlaces is the number of decimal places final prices are rounded to.
const PricePlaces = 2

var (
	// DiscountThreshold is the pre-discount total an order must exceed to
	// receive DiscountRate off.
	DiscountThreshold = decimal.NewFromInt(500)
	// DiscountRate is the fraction taken off eligible orders.
	DiscountRate = decimal.RequireFromString("0.10")
)

func eligible(total decimal.Decimal) bool {
	return total.GreaterThan(DiscountThreshold)
}

// applyDiscount is the only place the threshold and rate are applied.
func applyDiscount(total decimal.Decimal) decimal.Decimal {
	if !eligible(total) {
		return decimal.Zero
	}
	return total.Mul(DiscountRate)
}
