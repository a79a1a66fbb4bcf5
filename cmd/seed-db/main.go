package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/order-report/internal/snapshot"
	"github.com/xenking/order-report/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		ordersFile  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&ordersFile, "orders-file", "db/seed/orders.json", "path to orders JSON file (.json or .json.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, ordersFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, ordersFile string) error {
	slog.Info("reading orders file", slog.String("path", ordersFile))

	orders, err := snapshot.LoadFile(ordersFile)
	if err != nil {
		return errors.Wrap(err, "load orders")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewOrderRepository(pool)

	slog.Info("upserting orders", slog.Int("count", len(orders)))

	for _, o := range orders {
		if err := repo.Save(ctx, o); err != nil {
			return errors.Wrapf(err, "upsert order %d", o.ID())
		}

		slog.Info("upserted order",
			slog.Int64("id", o.ID()),
			slog.String("customer", o.CustomerName()),
			slog.Int("items", len(o.Items())),
		)
	}

	return nil
}
