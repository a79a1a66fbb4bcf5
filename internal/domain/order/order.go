package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a customer purchase made of an ordered sequence of line
// items. Identity and customer fields are fixed at construction; items may
// only be appended.
type Order struct {
	id              int64
	customerName    string
	customerCountry string
	date            time.Time

	items []LineItem
}

// New creates an empty order dated at the current time.
func New(id int64, customerName, customerCountry string) *Order {
	return Restore(id, customerName, customerCountry, time.Now())
}

// Restore rebuilds a previously recorded order with its original date.
func Restore(id int64, customerName, customerCountry string, date time.Time) *Order {
	return &Order{
		id:              id,
		customerName:    customerName,
		customerCountry: customerCountry,
		date:            date,
	}
}

// ID returns the order identifier.
func (o *Order) ID() int64 { return o.id }

// CustomerName returns the name that identifies the customer in reports.
func (o *Order) CustomerName() string { return o.customerName }

// CustomerCountry returns the customer's country.
func (o *Order) CustomerCountry() string { return o.customerCountry }

// Date returns when the order was placed.
func (o *Order) Date() time.Time { return o.date }

// AddItem appends item to the end of the order.
func (o *Order) AddItem(item LineItem) {
	o.items = append(o.items, item)
}

// Items returns a copy of the order's line items in insertion order.
func (o *Order) Items() []LineItem {
	out := make([]LineItem, len(o.items))
	copy(out, o.items)
	return out
}

// TotalBeforeDiscount returns the sum of all item subtotals.
func (o *Order) TotalBeforeDiscount() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

// IsEligibleForDiscount reports whether the pre-discount total is strictly
// above DiscountThreshold.
func (o *Order) IsEligibleForDiscount() bool {
	return eligible(o.TotalBeforeDiscount())
}

// DiscountAmount returns the unrounded discount for the order, or zero when
// the order is not eligible.
func (o *Order) DiscountAmount() decimal.Decimal {
	return applyDiscount(o.TotalBeforeDiscount())
}

// TotalAfterDiscount returns the pre-discount total minus the discount.
func (o *Order) TotalAfterDiscount() decimal.Decimal {
	total := o.TotalBeforeDiscount()
	return total.Sub(applyDiscount(total))
}

// FinalPrice returns TotalAfterDiscount rounded to PricePlaces decimal places,
// half away from zero.
func (o *Order) FinalPrice() decimal.Decimal {
	return o.TotalAfterDiscount().Round(PricePlaces)
}
