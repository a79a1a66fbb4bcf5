// Package snapshot reads order snapshots from JSON documents.
//
// A snapshot is a JSON array of orders:
//
//	[{"id": 1, "date": "2024-03-01T10:00:00Z",
//	  "customer": {"name": "pers2", "country": "Spain"},
//	  "items": [{"product": "Laptop", "quantity": 1, "unit_price": "1200.00"}]}]
//
// Unit prices may be JSON strings or numbers and are parsed exactly. Files
// ending in .gz are gzip-decompressed.
package snapshot

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-report/internal/domain/order"
	"github.com/xenking/order-report/internal/domain/report"
)

const readBufSize = 32 * 1024

var _ report.Source = (*FileSource)(nil)

// FileSource implements report.Source by re-reading a snapshot file.
type FileSource struct {
	Path string
}

// List loads all orders from the snapshot file.
func (s *FileSource) List(ctx context.Context) ([]*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path)
}

// LoadFile opens path and decodes its orders.
func LoadFile(path string) ([]*order.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	orders, err := Load(r)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return orders, nil
}

type rawItem struct {
	product  string
	quantity int
	price    decimal.Decimal
	hasPrice bool
}

type rawOrder struct {
	id      int64
	date    time.Time
	hasDate bool
	name    string
	country string
	items   []rawItem
}

// Load decodes a snapshot from r. Orders without a date are stamped with the
// load time.
func Load(r io.Reader) ([]*order.Order, error) {
	now := time.Now()
	orders := make([]*order.Order, 0)

	d := jx.Decode(r, readBufSize)
	if err := d.Arr(func(d *jx.Decoder) error {
		raw, err := decodeOrder(d)
		if err != nil {
			return err
		}
		o, err := raw.build(now)
		if err != nil {
			return err
		}
		orders = append(orders, o)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}

	return orders, nil
}

func (raw *rawOrder) build(now time.Time) (*order.Order, error) {
	date := now
	if raw.hasDate {
		date = raw.date
	}

	o := order.Restore(raw.id, raw.name, raw.country, date)
	for i, it := range raw.items {
		if !it.hasPrice {
			return nil, errors.Errorf("order %d: item %d: unit_price required", raw.id, i)
		}
		item, err := order.NewLineItem(it.product, it.quantity, it.price)
		if err != nil {
			return nil, errors.Wrapf(err, "order %d", raw.id)
		}
		o.AddItem(item)
	}
	return o, nil
}

func decodeOrder(d *jx.Decoder) (*rawOrder, error) {
	raw := &rawOrder{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			raw.id = v
		case "date":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "date")
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return errors.Wrap(err, "date")
			}
			raw.date, raw.hasDate = t, true
		case "customer":
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "name":
					raw.name, err = d.Str()
				case "country":
					raw.country, err = d.Str()
				default:
					return d.Skip()
				}
				if err != nil {
					return errors.Wrapf(err, "customer.%s", key)
				}
				return nil
			})
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return errors.Wrapf(err, "items[%d]", len(raw.items))
				}
				raw.items = append(raw.items, it)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeItem(d *jx.Decoder) (it rawItem, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "product")
			}
			it.product = s
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			it.quantity = v
		case "unit_price":
			p, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "unit_price")
			}
			it.price, it.hasPrice = p, true
		default:
			return d.Skip()
		}
		return nil
	})
	return it, err
}

// decodeDecimal accepts either a JSON string or a JSON number without going
// through float64.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		s = v
	case jx.Number:
		v, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		s = v.String()
	default:
		return decimal.Decimal{}, errors.New("expected string or number")
	}
	return decimal.NewFromString(s)
}
