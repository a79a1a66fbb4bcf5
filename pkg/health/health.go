// Package health serves liveness and readiness endpoints backed by
// periodically executed checks.
//
// A check flips to unhealthy after failureThreshold consecutive failures and
// back to healthy after successThreshold consecutive passes, so a single slow
// ping does not take the service out of rotation.
package health

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

const (
	failureThreshold = 3
	successThreshold = 1
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// check is one registered CheckFunc and its state. run is only called from
// the check's own goroutine; healthy and lastErr are read by HTTP handlers.
type check struct {
	name    string
	kind    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails  int
	passes int
}

func newCheck(kind, name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, kind: kind, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

func (c *check) isHealthy() bool {
	return c.healthy.Load()
}

func (c *check) lastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once and reports whether its health flipped.
func (c *check) run(ctx context.Context) (changed bool) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	was := c.isHealthy()
	if err != nil {
		c.passes = 0
		c.fails++
		if c.fails >= failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.fails = 0
		c.passes++
		if c.passes >= successThreshold {
			c.healthy.Store(true)
		}
	}
	return was != c.isHealthy()
}

// Health owns the liveness and readiness checks of one process.
type Health struct {
	ready atomic.Bool

	// mu guards the check slices and cancel; check state has its own atomics.
	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that reports whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck("liveness", name, timeout, fn))
}

// AddReadinessCheck registers a check that reports whether the process can
// serve reports, for example whether its order source is reachable.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck("readiness", name, timeout, fn))
}

// Start runs every registered check immediately and then once per interval,
// each in its own goroutine, until Stop is called or ctx is done. Health
// transitions are logged with the logger from ctx.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, c := range checks {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.run(ctx) {
			lg := zctx.From(ctx).With(zap.String("check", c.name), zap.String("kind", c.kind))
			if c.isHealthy() {
				lg.Info("Check recovered")
			} else {
				lg.Warn("Check failing", zap.Error(c.lastError()))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the check goroutines. It may be called more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the service ready after startup, or not ready while draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.readiness {
		if !c.isHealthy() {
			return false
		}
	}
	return true
}

// Register mounts /livez and /readyz on mux.
func (h *Health) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /livez", h.LiveEndpoint)
	mux.HandleFunc("GET /readyz", h.ReadyEndpoint)
}

// LiveEndpoint responds 200 while every liveness check passes and 503 with
// the failing checks otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	failures := failing(h.liveness)
	h.mu.RUnlock()

	writeStatus(w, failures)
}

// ReadyEndpoint responds 200 when the service is marked ready and every
// readiness check passes, and 503 with the reasons otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	failures := failing(h.readiness)
	h.mu.RUnlock()

	if !h.ready.Load() {
		failures = append(failures, failure{name: "_readiness", message: "service is not ready"})
	}
	writeStatus(w, failures)
}

type failure struct {
	name    string
	message string
}

// failing lists unhealthy checks by name using their last recorded error.
func failing(checks []*check) []failure {
	var out []failure
	for _, c := range checks {
		if c.isHealthy() {
			continue
		}
		msg := "check is unhealthy"
		if err := c.lastError(); err != nil {
			msg = err.Error()
		}
		out = append(out, failure{name: c.name, message: msg})
	}
	slices.SortFunc(out, func(a, b failure) int {
		return cmp.Compare(a.name, b.name)
	})
	return out
}

func writeStatus(w http.ResponseWriter, failures []failure) {
	status, text := http.StatusOK, "ok"
	if len(failures) > 0 {
		status, text = http.StatusServiceUnavailable, "unhealthy"
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(text) })
		if len(failures) == 0 {
			return
		}
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, f := range failures {
					e.Field(f.name, func(e *jx.Encoder) { e.Str(f.message) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; a failed write means the client went away.
	_, _ = w.Write(e.Bytes())
}
