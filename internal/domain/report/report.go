// Package report aggregates order snapshots into spending and popularity
// rankings.
//
// Both rankings break ties by first appearance in the input: for customers
// the position of their first order, for products the position of their first
// line item (order index, then item index). Sharded aggregation carries these
// positions through the merge, so results never depend on execution order.
package report

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyInput is returned when an aggregation that needs at least one
// order is given none.
var ErrEmptyInput = errors.New("no orders to aggregate")

// CustomerSpend is the sum of final prices across one customer's orders.
type CustomerSpend struct {
	Customer string
	Total    decimal.Decimal
	Orders   int
}

// ProductSales is the total quantity sold of one product.
type ProductSales struct {
	Name     string
	Quantity int
}

// Popularity is an ordered mapping from product name to quantity sold,
// sorted by descending quantity.
type Popularity []ProductSales

// Quantity returns the quantity sold for name.
func (p Popularity) Quantity(name string) (int, bool) {
	for _, s := range p {
		if s.Name == name {
			return s.Quantity, true
		}
	}
	return 0, false
}

// Names returns the product names in ranking order.
func (p Popularity) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name
	}
	return names
}

// Summary bundles every figure derived from one snapshot.
type Summary struct {
	Orders       int
	GrossRevenue decimal.Decimal
	NetRevenue   decimal.Decimal
	TopSpender   string
	Customers    []CustomerSpend
	Popularity   Popularity
}
