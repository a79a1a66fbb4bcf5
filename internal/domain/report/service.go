package report

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/order-report/internal/domain/order"
)

// Source provides the snapshot of orders a report is computed over.
type Source interface {
	List(ctx context.Context) ([]*order.Order, error)
}

// Service loads a fresh snapshot from its Source for every report. Aggregation
// stops early when the request context is cancelled.
type Service struct {
	source Source
	agg    *Aggregator
}

// NewService creates a report Service reading from source.
func NewService(source Source, agg *Aggregator) *Service {
	return &Service{
		source: source,
		agg:    agg,
	}
}

// Summary loads orders and summarizes them.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.summarize(ctx, orders)
}

// TopSpender loads orders and returns the highest-spending customer.
func (s *Service) TopSpender(ctx context.Context) (string, error) {
	orders, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return s.agg.topSpender(ctx, orders)
}

// Popularity loads orders and ranks products by quantity sold.
func (s *Service) Popularity(ctx context.Context) (Popularity, error) {
	orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.popularity(ctx, orders)
}

func (s *Service) load(ctx context.Context) ([]*order.Order, error) {
	orders, err := s.source.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}
