package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/order-report/internal/domain/report"
	"github.com/xenking/order-report/internal/handler"
	"github.com/xenking/order-report/internal/render"
	"github.com/xenking/order-report/internal/snapshot"
	"github.com/xenking/order-report/internal/storage/postgres"
	"github.com/xenking/order-report/pkg/health"
	"github.com/xenking/order-report/pkg/httpmiddleware"
)

// Run opens the configured order source and either prints the report or
// serves it over HTTP until ctx is cancelled. It is the single wiring point
// for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("source", cfg.Source),
		zap.Int("workers", cfg.Workers),
	)

	src, err := openSource(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open source")
	}
	defer src.close()

	agg := report.New(report.Config{Workers: cfg.Workers})

	if cfg.Addr == "" {
		f, err := render.NewFormatter(cfg.Locale, cfg.Currency)
		if err != nil {
			return errors.Wrap(err, "create formatter")
		}
		return printReport(ctx, lg, os.Stdout, src, agg, f)
	}

	return serve(ctx, lg, m, cfg, src, report.NewService(src, agg))
}

// orderSource is an opened report.Source with the readiness check that tells
// whether it can still be read.
type orderSource struct {
	report.Source

	checkName string
	check     health.CheckFunc
	close     func()
}

func openSource(ctx context.Context, cfg *Config) (*orderSource, error) {
	switch cfg.Source {
	case SourceFile:
		return &orderSource{
			Source:    &snapshot.FileSource{Path: cfg.OrdersFile},
			checkName: "orders-file",
			check:     health.FileCheck(cfg.OrdersFile),
			close:     func() {},
		}, nil
	case SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &orderSource{
			Source:    postgres.NewOrderRepository(pool),
			checkName: "postgres",
			check:     pool.Ping,
			close:     pool.Close,
		}, nil
	default:
		return nil, errors.Errorf("unknown source %q", cfg.Source)
	}
}

// printReport writes every order followed by the summary.
func printReport(
	ctx context.Context,
	lg *zap.Logger,
	w io.Writer,
	source report.Source,
	agg *report.Aggregator,
	f *render.Formatter,
) error {
	orders, err := source.List(ctx)
	if err != nil {
		return errors.Wrap(err, "load orders")
	}
	lg.Info("Orders loaded", zap.Int("orders", len(orders)))

	for _, o := range orders {
		if err := f.Order(w, o); err != nil {
			return errors.Wrap(err, "write order")
		}
	}

	s, err := agg.Summarize(orders)
	if err != nil {
		return errors.Wrap(err, "summarize")
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, "write summary")
	}
	if err := f.Summary(w, s); err != nil {
		return errors.Wrap(err, "write summary")
	}
	return nil
}

func serve(
	ctx context.Context,
	lg *zap.Logger,
	m *app.Telemetry,
	cfg *Config,
	src *orderSource,
	svc *report.Service,
) error {
	healthSvc := newHealth(src)
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	healthSvc.Register(mux)
	handler.NewHandler(svc).Register(mux)

	h := httpmiddleware.Wrap(mux,
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(h, "report-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHealth registers the process liveness checks and the source readiness
// check.
func newHealth(src *orderSource) *health.Health {
	h := health.New()
	h.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	h.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	h.AddReadinessCheck(src.checkName, 5*time.Second, src.check)
	return h
}
