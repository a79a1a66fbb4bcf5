package report

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-report/internal/domain/order"
)

// Config controls how an Aggregator spreads work.
type Config struct {
	// Workers is the number of shards the grouping pass is split into.
	// Values below 2 aggregate sequentially.
	Workers int
}

// Aggregator computes rankings over order snapshots. Nil orders are skipped.
// Orders must not be mutated while an aggregation is running.
type Aggregator struct {
	workers int
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	return &Aggregator{workers: max(cfg.Workers, 1)}
}

var sequential = New(Config{})

// TopSpender returns the customer with the highest summed final price using a
// sequential aggregator.
func TopSpender(orders []*order.Order) (string, error) {
	return sequential.TopSpender(orders)
}

// ProductPopularity ranks products by quantity sold using a sequential
// aggregator.
func ProductPopularity(orders []*order.Order) Popularity {
	return sequential.ProductPopularity(orders)
}

// CustomerSpending ranks customers by summed final price using a sequential
// aggregator.
func CustomerSpending(orders []*order.Order) ([]CustomerSpend, error) {
	return sequential.CustomerSpending(orders)
}

// TopSpender returns the customer whose orders have the highest summed final
// price. Customer names are compared exactly.
func (a *Aggregator) TopSpender(orders []*order.Order) (string, error) {
	return a.topSpender(context.Background(), orders)
}

// CustomerSpending returns every customer ranked by descending spend.
func (a *Aggregator) CustomerSpending(orders []*order.Order) ([]CustomerSpend, error) {
	return a.customerSpending(context.Background(), orders)
}

// ProductPopularity returns products ranked by descending quantity sold.
// Empty input yields an empty ranking.
func (a *Aggregator) ProductPopularity(orders []*order.Order) Popularity {
	// Only cancellation can fail collection.
	pop, _ := a.popularity(context.Background(), orders)
	return pop
}

// Summarize computes every figure of a Summary in one pass.
func (a *Aggregator) Summarize(orders []*order.Order) (*Summary, error) {
	return a.summarize(context.Background(), orders)
}

func (a *Aggregator) topSpender(ctx context.Context, orders []*order.Order) (string, error) {
	ranked, err := a.customerSpending(ctx, orders)
	if err != nil {
		return "", err
	}
	return ranked[0].Customer, nil
}

func (a *Aggregator) customerSpending(ctx context.Context, orders []*order.Order) ([]CustomerSpend, error) {
	t, err := a.collect(ctx, orders)
	if err != nil {
		return nil, err
	}
	return t.rankCustomers()
}

func (a *Aggregator) popularity(ctx context.Context, orders []*order.Order) (Popularity, error) {
	t, err := a.collect(ctx, orders)
	if err != nil {
		return nil, err
	}
	return t.rankProducts(), nil
}

func (a *Aggregator) summarize(ctx context.Context, orders []*order.Order) (*Summary, error) {
	t, err := a.collect(ctx, orders)
	if err != nil {
		return nil, err
	}
	customers, err := t.rankCustomers()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		GrossRevenue: decimal.Zero,
		NetRevenue:   decimal.Zero,
		TopSpender:   customers[0].Customer,
		Customers:    customers,
		Popularity:   t.rankProducts(),
	}
	for _, o := range orders {
		if o == nil {
			continue
		}
		s.Orders++
		s.GrossRevenue = s.GrossRevenue.Add(o.TotalBeforeDiscount())
	}
	for _, c := range customers {
		s.NetRevenue = s.NetRevenue.Add(c.Total)
	}
	return s, nil
}

// collect groups orders, sharding across workers when configured. The first
// shard to observe cancellation aborts the rest.
func (a *Aggregator) collect(ctx context.Context, orders []*order.Order) (*tally, error) {
	if a.workers < 2 || len(orders) <= a.workers {
		t := newTally()
		if err := t.add(ctx, orders, 0); err != nil {
			return nil, err
		}
		return t, nil
	}

	size := (len(orders) + a.workers - 1) / a.workers
	parts := make([]*tally, (len(orders)+size-1)/size)

	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		start := i * size
		end := min(start+size, len(orders))
		g.Go(func() error {
			t := newTally()
			if err := t.add(gctx, orders[start:end], start); err != nil {
				return err
			}
			parts[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newTally()
	for _, p := range parts {
		merged.merge(p)
	}
	return merged, nil
}
