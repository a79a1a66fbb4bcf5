package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-report/internal/domain/order"
	"github.com/xenking/order-report/internal/domain/report"
)

const (
	listOrdersSQL = `SELECT id, customer_name, customer_country, created_at
		FROM orders ORDER BY id`

	listItemsSQL = `SELECT order_id, product_name, quantity, unit_price
		FROM order_items ORDER BY order_id, position`

	createOrderSQL = `INSERT INTO orders (id, customer_name, customer_country, created_at)
		VALUES ($1, $2, $3, $4)`

	saveOrderSQL = `INSERT INTO orders (id, customer_name, customer_country, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			customer_country = EXCLUDED.customer_country,
			created_at = EXCLUDED.created_at`

	deleteItemsSQL = `DELETE FROM order_items WHERE order_id = $1`

	createItemSQL = `INSERT INTO order_items (order_id, position, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ report.Source = (*OrderRepository)(nil)

// OrderRepository persists orders and their line items.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// List returns every stored order with its items in insertion order.
func (r *OrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*order.Order, error) {
		var (
			id            int64
			name, country string
			createdAt     time.Time
		)
		if err := row.Scan(&id, &name, &country, &createdAt); err != nil {
			return nil, err
		}
		return order.Restore(id, name, country, createdAt), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}

	byID := make(map[int64]*order.Order, len(orders))
	for _, o := range orders {
		byID[o.ID()] = o
	}

	rows, err = r.db.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID  int64
			product  string
			quantity int32
			price    decimal.Decimal
		)
		if err := rows.Scan(&orderID, &product, &quantity, &price); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}

		o, ok := byID[orderID]
		if !ok {
			// Inserted after the orders query ran.
			continue
		}
		item, err := order.NewLineItem(product, int(quantity), price)
		if err != nil {
			return nil, errors.Wrapf(err, "order %d", orderID)
		}
		o.AddItem(item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order items")
	}

	return orders, nil
}

// Create persists a new order and its items in one transaction. It fails if
// the order id is already stored.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.inTx(ctx, "create", o, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID(), o.CustomerName(), o.CustomerCountry(), o.Date(),
		); err != nil {
			return errors.Wrap(err, "insert order")
		}
		return insertItems(ctx, tx, o)
	})
}

// Save stores o, replacing any order with the same id and all of its items.
// Saving the same order twice leaves one copy.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.inTx(ctx, "save", o, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, saveOrderSQL,
			o.ID(), o.CustomerName(), o.CustomerCountry(), o.Date(),
		); err != nil {
			return errors.Wrap(err, "upsert order")
		}
		if _, err := tx.Exec(ctx, deleteItemsSQL, o.ID()); err != nil {
			return errors.Wrap(err, "delete items")
		}
		return insertItems(ctx, tx, o)
	})
}

func (r *OrderRepository) inTx(ctx context.Context, op string, o *order.Order, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return errors.Wrapf(err, "%s order %d", op, o.ID())
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(err, "commit order %d", o.ID())
	}
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	for i, item := range o.Items() {
		if _, err := tx.Exec(ctx, createItemSQL,
			o.ID(), i, item.ProductName(), item.Quantity(), item.UnitPrice(),
		); err != nil {
			return errors.Wrapf(err, "insert item %d", i)
		}
	}
	return nil
}
