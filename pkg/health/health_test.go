package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failingWith(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

// trip drives c past the failure threshold.
func trip(c *check) {
	for range failureThreshold {
		c.run(context.Background())
	}
}

func get(t *testing.T, h *Health, path string) (int, statusBody) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLivez(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		wantCode int
	}{
		{name: "passing", failures: 0, wantCode: http.StatusOK},
		{name: "below threshold", failures: failureThreshold - 1, wantCode: http.StatusOK},
		{name: "at threshold", failures: failureThreshold, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("goroutines", time.Second, failingWith("too many goroutines"))
			for range tt.failures {
				h.liveness[0].run(context.Background())
			}

			code, body := get(t, h, "/livez")
			assert.Equal(t, tt.wantCode, code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "ok", body.Status)
				assert.Empty(t, body.Checks)
				return
			}
			assert.Equal(t, "unhealthy", body.Status)
			assert.Equal(t, map[string]string{"goroutines": "too many goroutines"}, body.Checks)
		})
	}
}

func TestLivez_NoChecks(t *testing.T) {
	code, body := get(t, New(), "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyz(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing())
	h.AddReadinessCheck("orders-file", time.Second, failingWith("stat: no such file"))

	code, body := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"_readiness": "service is not ready"}, body.Checks)

	h.SetReady(true)
	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)

	trip(h.readiness[1])
	code, body = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"orders-file": "stat: no such file"}, body.Checks)

	h.SetReady(false)
	_, body = get(t, h, "/readyz")
	assert.Len(t, body.Checks, 2)
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, failingWith("connection refused"))
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())

	trip(h.readiness[0])
	assert.False(t, h.IsReady())
}

func TestCheck_Recovers(t *testing.T) {
	down := true
	c := newCheck("liveness", "flaky", time.Second, func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	assert.Nil(t, c.lastError())

	trip(c)
	assert.False(t, c.isHealthy())
	assert.EqualError(t, c.lastError(), "down")

	down = false
	assert.True(t, c.run(context.Background()), "transition reported")
	assert.True(t, c.isHealthy())
	assert.False(t, c.run(context.Background()), "steady state not reported")
}

func TestCheck_Timeout(t *testing.T) {
	c := newCheck("readiness", "slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c.run(context.Background())
	require.ErrorIs(t, c.lastError(), context.DeadlineExceeded)
}

func TestStart_LogsTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	h := New()
	h.AddReadinessCheck("postgres", time.Second, failingWith("connection refused"))
	h.Start(ctx, time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Check failing").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)

	entry := logs.FilterMessage("Check failing").All()[0]
	assert.Equal(t, "postgres", entry.ContextMap()["check"])
	assert.Equal(t, "readiness", entry.ContextMap()["kind"])
}

func TestStop_Idempotent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing())
	h.Start(context.Background(), 10*time.Millisecond)
	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, failingWith("err"))
	h.AddReadinessCheck("postgres", time.Second, passing())
	h.SetReady(true)
	h.Start(context.Background(), time.Millisecond)
	defer h.Stop()

	mux := http.NewServeMux()
	h.Register(mux)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				for _, path := range []string{"/livez", "/readyz"} {
					mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
				}
			}
		}()
	}
	wg.Wait()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}

func TestFileCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.Error(t, FileCheck(path)(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))
	assert.NoError(t, FileCheck(path)(context.Background()))
}
