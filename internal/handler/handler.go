package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-report/internal/domain/order"
	"github.com/xenking/order-report/internal/domain/report"
)

// Handler serves report endpoints over HTTP, delegating to the report
// service for every request.
type Handler struct {
	reports *report.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(reports *report.Service) *Handler {
	return &Handler{reports: reports}
}

// Register mounts the report routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/report", h.Summary)
	mux.HandleFunc("GET /api/report/top-spender", h.TopSpender)
	mux.HandleFunc("GET /api/report/popularity", h.Popularity)
}

// Summary responds with the full report summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.reports.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orders", func(e *jx.Encoder) { e.Int(s.Orders) })
		e.Field("gross_revenue", func(e *jx.Encoder) { e.Str(s.GrossRevenue.StringFixed(order.PricePlaces)) })
		e.Field("net_revenue", func(e *jx.Encoder) { e.Str(s.NetRevenue.StringFixed(order.PricePlaces)) })
		e.Field("top_spender", func(e *jx.Encoder) { e.Str(s.TopSpender) })
		e.Field("customers", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range s.Customers {
					encodeCustomer(e, c)
				}
			})
		})
		e.Field("popularity", func(e *jx.Encoder) { encodePopularity(e, s.Popularity) })
	})
	writeJSON(w, http.StatusOK, &e)
}

// TopSpender responds with the highest-spending customer.
func (h *Handler) TopSpender(w http.ResponseWriter, r *http.Request) {
	name, err := h.reports.TopSpender(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("customer", func(e *jx.Encoder) { e.Str(name) })
	})
	writeJSON(w, http.StatusOK, &e)
}

// Popularity responds with products ranked by quantity sold.
func (h *Handler) Popularity(w http.ResponseWriter, r *http.Request) {
	pop, err := h.reports.Popularity(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodePopularity(&e, pop)
	writeJSON(w, http.StatusOK, &e)
}

func encodeCustomer(e *jx.Encoder, c report.CustomerSpend) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("customer", func(e *jx.Encoder) { e.Str(c.Customer) })
		e.Field("total", func(e *jx.Encoder) { e.Str(c.Total.StringFixed(order.PricePlaces)) })
		e.Field("orders", func(e *jx.Encoder) { e.Int(c.Orders) })
	})
}

// encodePopularity writes the ranking as an array so the order survives
// JSON decoding on the client.
func encodePopularity(e *jx.Encoder, pop report.Popularity) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range pop {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product", func(e *jx.Encoder) { e.Str(p.Name) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(p.Quantity) })
			})
		}
	})
}

// writeError maps domain errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	if errors.Is(err, report.ErrEmptyInput) {
		status, msg = http.StatusUnprocessableEntity, err.Error()
	} else {
		zctx.From(r.Context()).Error("Report failed", zap.Error(err))
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; a failed write means the client went away.
	_, _ = w.Write(e.Bytes())
}
