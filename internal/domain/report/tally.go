package report

import (
	"cmp"
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-report/internal/domain/order"
)

// position locates a line item within the flattened input.
type position struct {
	order int
	item  int
}

func (p position) compare(o position) int {
	if c := cmp.Compare(p.order, o.order); c != 0 {
		return c
	}
	return cmp.Compare(p.item, o.item)
}

type customerAcc struct {
	total  decimal.Decimal
	orders int
	first  int
}

type productAcc struct {
	quantity int
	first    position
}

// tally holds per-key accumulators for a contiguous range of orders.
type tally struct {
	customers map[string]*customerAcc
	products  map[string]*productAcc
}

func newTally() *tally {
	return &tally{
		customers: make(map[string]*customerAcc),
		products:  make(map[string]*productAcc),
	}
}

// cancelCheckEvery is how many orders add folds between context checks.
const cancelCheckEvery = 256

// add folds orders into t, skipping nil entries. base is the index of
// orders[0] in the full input.
func (t *tally) add(ctx context.Context, orders []*order.Order, base int) error {
	for i, o := range orders {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if o == nil {
			continue
		}
		idx := base + i

		c, ok := t.customers[o.CustomerName()]
		if !ok {
			c = &customerAcc{total: decimal.Zero, first: idx}
			t.customers[o.CustomerName()] = c
		}
		c.total = c.total.Add(o.FinalPrice())
		c.orders++

		for j, item := range o.Items() {
			p, ok := t.products[item.ProductName()]
			if !ok {
				p = &productAcc{first: position{order: idx, item: j}}
				t.products[item.ProductName()] = p
			}
			p.quantity += item.Quantity()
		}
	}
	return nil
}

// merge folds other into t, keeping the earliest first-seen position per key.
func (t *tally) merge(other *tally) {
	for name, oc := range other.customers {
		c, ok := t.customers[name]
		if !ok {
			t.customers[name] = &customerAcc{total: oc.total, orders: oc.orders, first: oc.first}
			continue
		}
		c.total = c.total.Add(oc.total)
		c.orders += oc.orders
		c.first = min(c.first, oc.first)
	}

	for name, op := range other.products {
		p, ok := t.products[name]
		if !ok {
			t.products[name] = &productAcc{quantity: op.quantity, first: op.first}
			continue
		}
		p.quantity += op.quantity
		if op.first.compare(p.first) < 0 {
			p.first = op.first
		}
	}
}

// rankCustomers orders customers by descending spend, then first appearance.
func (t *tally) rankCustomers() ([]CustomerSpend, error) {
	if len(t.customers) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([]CustomerSpend, 0, len(t.customers))
	for name, acc := range t.customers {
		out = append(out, CustomerSpend{Customer: name, Total: acc.total, Orders: acc.orders})
	}
	slices.SortFunc(out, func(x, y CustomerSpend) int {
		if c := y.Total.Cmp(x.Total); c != 0 {
			return c
		}
		return cmp.Compare(t.customers[x.Customer].first, t.customers[y.Customer].first)
	})
	return out, nil
}

// rankProducts orders products by descending quantity, then first appearance.
func (t *tally) rankProducts() Popularity {
	out := make(Popularity, 0, len(t.products))
	for name, acc := range t.products {
		out = append(out, ProductSales{Name: name, Quantity: acc.quantity})
	}
	slices.SortFunc(out, func(x, y ProductSales) int {
		if c := cmp.Compare(y.Quantity, x.Quantity); c != 0 {
			return c
		}
		return t.products[x.Name].first.compare(t.products[y.Name].first)
	})
	return out
}
