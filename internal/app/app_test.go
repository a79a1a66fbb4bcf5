package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/order-report/internal/domain/order"
	"github.com/xenking/order-report/internal/domain/report"
	"github.com/xenking/order-report/internal/render"
	"github.com/xenking/order-report/internal/snapshot"
)

const seedFile = "../../db/seed/orders.json"

func TestOpenSource_File(t *testing.T) {
	src, err := openSource(context.Background(), &Config{Source: SourceFile, OrdersFile: seedFile})
	require.NoError(t, err)
	defer src.close()

	fs, ok := src.Source.(*snapshot.FileSource)
	require.True(t, ok)
	assert.Equal(t, seedFile, fs.Path)
	assert.Equal(t, "orders-file", src.checkName)
	assert.NoError(t, src.check(context.Background()))
}

func TestOpenSource_Unknown(t *testing.T) {
	_, err := openSource(context.Background(), &Config{Source: "kafka"})
	require.Error(t, err)
}

func TestNewHealth(t *testing.T) {
	ready := func(t *testing.T, path string) func() int {
		t.Helper()
		src, err := openSource(context.Background(), &Config{Source: SourceFile, OrdersFile: path})
		require.NoError(t, err)

		h := newHealth(src)
		h.Start(context.Background(), time.Millisecond)
		t.Cleanup(h.Stop)
		h.SetReady(true)

		mux := http.NewServeMux()
		h.Register(mux)
		return func() int {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			return w.Code
		}
	}

	t.Run("source present", func(t *testing.T) {
		status := ready(t, seedFile)
		assert.Equal(t, http.StatusOK, status())
	})

	t.Run("source missing", func(t *testing.T) {
		status := ready(t, filepath.Join(t.TempDir(), "gone.json"))
		require.Eventually(t, func() bool {
			return status() == http.StatusServiceUnavailable
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("liveness", func(t *testing.T) {
		src, err := openSource(context.Background(), &Config{Source: SourceFile, OrdersFile: seedFile})
		require.NoError(t, err)
		mux := http.NewServeMux()
		newHealth(src).Register(mux)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPrintReport(t *testing.T) {
	f, err := render.NewFormatter("en-US", "USD")
	require.NoError(t, err)

	var buf bytes.Buffer
	err = printReport(context.Background(), zap.NewNop(), &buf,
		&snapshot.FileSource{Path: seedFile}, report.New(report.Config{Workers: 2}), f)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Order #1")
	assert.Contains(t, out, "Order #3")
	assert.Contains(t, out, "Top spender: pers2")
	assert.Contains(t, out, "Orders: 3")
}

type staticSource []*order.Order

func (s staticSource) List(context.Context) ([]*order.Order, error) { return s, nil }

func TestPrintReport_Empty(t *testing.T) {
	f, err := render.NewFormatter("en-US", "USD")
	require.NoError(t, err)

	var buf bytes.Buffer
	err = printReport(context.Background(), zap.NewNop(), &buf, staticSource{}, report.New(report.Config{}), f)
	require.ErrorIs(t, err, report.ErrEmptyInput)
}
