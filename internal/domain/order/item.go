package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidArgument is matched by every line item construction failure.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidLineItemError describes why a line item was rejected.
type InvalidLineItemError struct {
	ProductName string
	Reason      string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %q: %s", e.ProductName, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidArgument).
func (e *InvalidLineItemError) Unwrap() error {
	return ErrInvalidArgument
}

// LineItem is a single immutable product line within an order.
type LineItem struct {
	productName string
	quantity    int
	unitPrice   decimal.Decimal
}

// NewLineItem validates and builds a line item. The product name must be
// non-empty and neither quantity nor unit price may be negative.
func NewLineItem(productName string, quantity int, unitPrice decimal.Decimal) (LineItem, error) {
	switch {
	case productName == "":
		return LineItem{}, &InvalidLineItemError{Reason: "product name required"}
	case quantity < 0:
		return LineItem{}, &InvalidLineItemError{
			ProductName: productName,
			Reason:      fmt.Sprintf("quantity %d is negative", quantity),
		}
	case unitPrice.IsNegative():
		return LineItem{}, &InvalidLineItemError{
			ProductName: productName,
			Reason:      fmt.Sprintf("unit price %s is negative", unitPrice),
		}
	}

	return LineItem{
		productName: productName,
		quantity:    quantity,
		unitPrice:   unitPrice,
	}, nil
}

// ProductName returns the product the line refers to.
func (i LineItem) ProductName() string { return i.productName }

// Quantity returns the number of units.
func (i LineItem) Quantity() int { return i.quantity }

// UnitPrice returns the price of a single unit.
func (i LineItem) UnitPrice() decimal.Decimal { return i.unitPrice }

// Subtotal returns quantity * unit price.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.unitPrice.Mul(decimal.NewFromInt(int64(i.quantity)))
}
