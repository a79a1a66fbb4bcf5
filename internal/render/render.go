// Package render formats report summaries for people. The domain packages
// return raw decimal amounts; locale and currency are applied only here.
package render

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/xenking/order-report/internal/domain/order"
	"github.com/xenking/order-report/internal/domain/report"
)

// Formatter renders amounts with a fixed locale and currency.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
	point   string
}

// NewFormatter parses a BCP 47 locale and an ISO 4217 currency code.
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", locale)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, errors.Wrapf(err, "parse currency %q", code)
	}
	p := message.NewPrinter(tag)
	return &Formatter{
		printer: p,
		unit:    unit,
		point:   decimalPoint(p),
	}, nil
}

// decimalPoint returns the locale's decimal separator, taken from a formatted
// 1.5 with its two digits removed.
func decimalPoint(p *message.Printer) string {
	r := []rune(p.Sprint(number.Decimal(1.5, number.Scale(1))))
	if len(r) < 3 {
		return "."
	}
	return string(r[1 : len(r)-1])
}

// Money formats amount rounded to two places with the currency symbol. The
// digits come from the decimal itself, so large amounts keep their cents.
// Whole parts beyond the int64 range are printed without grouping.
func (f *Formatter) Money(amount decimal.Decimal) string {
	rounded := amount.Round(order.PricePlaces)
	sign := ""
	if rounded.IsNegative() {
		sign, rounded = "-", rounded.Abs()
	}

	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).Shift(order.PricePlaces).IntPart()

	var wholeText string
	if n := whole.BigInt(); n.IsInt64() {
		wholeText = f.printer.Sprint(number.Decimal(n.Int64()))
	} else {
		wholeText = n.String()
	}
	fraction := f.printer.Sprint(number.Decimal(cents, number.MinIntegerDigits(order.PricePlaces)))

	return f.printer.Sprintf("%v %s%s%s%s", currency.Symbol(f.unit), sign, wholeText, f.point, fraction)
}

// Order writes one order with its discount breakdown.
func (f *Formatter) Order(w io.Writer, o *order.Order) error {
	p := f.printer
	if _, err := p.Fprintf(w, "Order #%d  %s (%s)  %s\n",
		o.ID(), o.CustomerName(), o.CustomerCountry(), o.Date().Format("2006-01-02"),
	); err != nil {
		return err
	}
	for _, item := range o.Items() {
		if _, err := p.Fprintf(w, "  %-20s %4d x %12s = %12s\n",
			item.ProductName(), item.Quantity(), f.Money(item.UnitPrice()), f.Money(item.Subtotal()),
		); err != nil {
			return err
		}
	}
	_, err := p.Fprintf(w, "  subtotal %s, discount %s, total %s\n",
		f.Money(o.TotalBeforeDiscount()), f.Money(o.DiscountAmount()), f.Money(o.FinalPrice()))
	return err
}

// Summary writes the report summary.
func (f *Formatter) Summary(w io.Writer, s *report.Summary) error {
	p := f.printer
	if _, err := p.Fprintf(w, "Orders: %d\nGross revenue: %s\nNet revenue: %s\nTop spender: %s\n",
		s.Orders, f.Money(s.GrossRevenue), f.Money(s.NetRevenue), s.TopSpender,
	); err != nil {
		return err
	}

	if _, err := p.Fprintf(w, "\nCustomers:\n"); err != nil {
		return err
	}
	for i, c := range s.Customers {
		if _, err := p.Fprintf(w, "%3d. %-24s %14s (%d orders)\n", i+1, c.Customer, f.Money(c.Total), c.Orders); err != nil {
			return err
		}
	}

	if _, err := p.Fprintf(w, "\nProduct popularity:\n"); err != nil {
		return err
	}
	for i, ps := range s.Popularity {
		if _, err := p.Fprintf(w, "%3d. %-24s %d\n", i+1, ps.Name, ps.Quantity); err != nil {
			return err
		}
	}
	return nil
}
